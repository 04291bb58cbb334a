package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/bryanwahyu/palm-oracle/internal/application/history"
	"github.com/bryanwahyu/palm-oracle/internal/application/wizard"
	domai "github.com/bryanwahyu/palm-oracle/internal/domain/ai"
	"github.com/bryanwahyu/palm-oracle/internal/domain/reading"
	"github.com/bryanwahyu/palm-oracle/internal/domain/session"
	"github.com/bryanwahyu/palm-oracle/internal/middleware"
)

var errInvalidInput = errors.New("invalid input")

// Options for NewRouter. Zero values disable the matching feature.
type Options struct {
	Logger         *zap.Logger
	APIKeys        map[string]string
	AllowedOrigins []string
	Limiter        *middleware.RateLimiter
	Checkers       map[string]middleware.HealthChecker
}

type Router struct {
	wizard  *wizard.Service
	history *history.Service
	log     *zap.Logger
}

// NewRouter wires the wizard and history APIs. history may be nil.
func NewRouter(wiz *wizard.Service, hist *history.Service, opts Options) http.Handler {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	r := &Router{wizard: wiz, history: hist, log: log}
	mux := chi.NewRouter()

	mux.Use(chimw.RequestID)
	mux.Use(chimw.RealIP)
	mux.Use(middleware.LoggingMiddleware(log))
	mux.Use(middleware.MetricsMiddleware)
	mux.Use(chimw.Recoverer)
	if len(opts.AllowedOrigins) > 0 {
		mux.Use(cors.Handler(cors.Options{
			AllowedOrigins:   opts.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"Retry-After"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}

	mux.Get("/health", middleware.HealthHandler(opts.Checkers))
	mux.Get("/ready", middleware.ReadinessHandler(opts.Checkers))
	mux.Get("/live", middleware.LivenessHandler)
	mux.Get("/metrics", middleware.MetricsHandler)

	mux.Route("/v1", func(rt chi.Router) {
		rt.Use(middleware.APIKeyAuth(opts.APIKeys))

		rt.Route("/sessions", func(rt chi.Router) {
			rt.Post("/", r.wrap(r.handleStart))
			rt.Route("/{id}", func(rt chi.Router) {
				rt.Get("/", r.wrap(r.handleGetSession))
				rt.Delete("/", r.wrap(r.handleCloseSession))
				rt.Put("/profile", r.wrap(r.handleSubmitProfile))
				rt.Post("/profile/edit", r.wrap(r.handleEditProfile))
				rt.Post("/image", r.wrap(r.handleAttachImage))
				rt.Get("/image", r.wrap(r.handleGetImage))
				rt.Delete("/image", r.wrap(r.handleDiscardImage))
				rt.With(limit(opts.Limiter)).Post("/analyze", r.wrap(r.handleAnalyze))
				rt.Post("/reset", r.wrap(r.handleReset))
				rt.Get("/report", r.wrap(r.handleSessionReport))
			})
		})

		if hist != nil {
			rt.Route("/history", func(rt chi.Router) {
				rt.Get("/", r.wrap(r.handleHistoryList))
				rt.Delete("/", r.wrap(r.handleHistoryClear))
				rt.Get("/{id}", r.wrap(r.handleHistoryGet))
				rt.Delete("/{id}", r.wrap(r.handleHistoryDelete))
				rt.Get("/{id}/report", r.wrap(r.handleHistoryReport))
			})
		}
	})

	return mux
}

func limit(rl *middleware.RateLimiter) func(http.Handler) http.Handler {
	if rl == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return rl.Middleware
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if err := h(w, req); err != nil {
			status := statusOf(err)
			if status == http.StatusInternalServerError {
				r.log.Error("handler error", zap.String("path", req.URL.Path), zap.Error(err))
				http.Error(w, "internal error", status)
				return
			}
			http.Error(w, err.Error(), status)
		}
	}
}

func statusOf(err error) int {
	var tooBig *http.MaxBytesError
	switch {
	case errors.Is(err, session.ErrNotFound),
		errors.Is(err, reading.ErrNotFound),
		errors.Is(err, reading.ErrImageNotFound),
		errors.Is(err, wizard.ErrNoImage),
		errors.Is(err, wizard.ErrNoResult):
		return http.StatusNotFound
	case errors.Is(err, errInvalidInput),
		errors.Is(err, reading.ErrInvalidProfile),
		errors.Is(err, wizard.ErrEmptyImage),
		errors.Is(err, wizard.ErrInvalidDataURL):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrInvalidTransition),
		errors.Is(err, session.ErrAnalysisInFlight):
		return http.StatusConflict
	case errors.Is(err, wizard.ErrImageTooLarge), errors.As(err, &tooBig):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, wizard.ErrUnsupportedImage):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, domai.ErrQuotaExceeded):
		return http.StatusTooManyRequests
	}
	return http.StatusInternalServerError
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errInvalidInput, fmt.Sprintf(format, args...))
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}
