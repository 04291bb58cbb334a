package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/bryanwahyu/palm-oracle/internal/application/wizard"
	"github.com/bryanwahyu/palm-oracle/internal/domain/reading"
	"github.com/bryanwahyu/palm-oracle/internal/domain/session"
	"github.com/bryanwahyu/palm-oracle/internal/middleware"
	"github.com/bryanwahyu/palm-oracle/internal/report"
)

func sessionID(req *http.Request) (session.ID, error) {
	id := chi.URLParam(req, "id")
	if err := middleware.ValidateID("session", id); err != nil {
		return "", invalid("%v", err)
	}
	return session.ID(id), nil
}

// withSession runs fn for the {id} in the path and writes the snapshot.
func (r *Router) withSession(fn func(ctx context.Context, id session.ID) (wizard.Snapshot, error)) handlerFunc {
	return func(w http.ResponseWriter, req *http.Request) error {
		id, err := sessionID(req)
		if err != nil {
			return err
		}
		snap, err := fn(req.Context(), id)
		if err != nil {
			return err
		}
		return writeJSON(w, http.StatusOK, snap)
	}
}

// POST /v1/sessions
func (r *Router) handleStart(w http.ResponseWriter, req *http.Request) error {
	snap, err := r.wizard.Start(req.Context())
	if err != nil {
		return err
	}
	w.Header().Set("Location", "/v1/sessions/"+string(snap.ID))
	return writeJSON(w, http.StatusCreated, snap)
}

// GET /v1/sessions/{id}
func (r *Router) handleGetSession(w http.ResponseWriter, req *http.Request) error {
	return r.withSession(r.wizard.Get)(w, req)
}

// DELETE /v1/sessions/{id}
func (r *Router) handleCloseSession(w http.ResponseWriter, req *http.Request) error {
	id, err := sessionID(req)
	if err != nil {
		return err
	}
	if err := r.wizard.Close(req.Context(), id); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

// PUT /v1/sessions/{id}/profile
// Body: {"age": 25, "gender": "female"}
func (r *Router) handleSubmitProfile(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		Age    int    `json:"age"`
		Gender string `json:"gender"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, req.Body, 4<<10)).Decode(&body); err != nil {
		return invalid("decode body: %v", err)
	}
	gender, err := reading.ParseGender(middleware.SanitizeString(body.Gender))
	if err != nil {
		return err
	}
	p := reading.Profile{Age: body.Age, Gender: gender}
	return r.withSession(func(ctx context.Context, id session.ID) (wizard.Snapshot, error) {
		return r.wizard.SubmitProfile(ctx, id, p)
	})(w, req)
}

// POST /v1/sessions/{id}/profile/edit
func (r *Router) handleEditProfile(w http.ResponseWriter, req *http.Request) error {
	return r.withSession(r.wizard.EditProfile)(w, req)
}

// POST /v1/sessions/{id}/image
// multipart field "image", raw image/* body, or JSON {"data_url": "data:image/jpeg;base64,..."}
func (r *Router) handleAttachImage(w http.ResponseWriter, req *http.Request) error {
	id, err := sessionID(req)
	if err != nil {
		return err
	}
	limit := int64(r.wizard.MaxImageBytes)
	if limit <= 0 {
		limit = wizard.DefaultMaxImageBytes
	}
	// base64 and multipart framing overhead
	req.Body = http.MaxBytesReader(w, req.Body, limit*4/3+64<<10)

	ct, _, _ := mime.ParseMediaType(req.Header.Get("Content-Type"))
	var snap wizard.Snapshot
	switch {
	case ct == "multipart/form-data":
		f, _, err := req.FormFile("image")
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return fmt.Errorf("%w: %w", wizard.ErrImageTooLarge, err)
		}
		if err != nil {
			return invalid("image field: %v", err)
		}
		defer f.Close()
		data, err := io.ReadAll(f)
		if err != nil {
			return err
		}
		snap, err = r.wizard.AttachImage(req.Context(), id, data)
		if err != nil {
			return err
		}
	case ct == "application/json":
		var body struct {
			DataURL string `json:"data_url"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			return invalid("decode body: %v", err)
		}
		snap, err = r.wizard.AttachDataURL(req.Context(), id, body.DataURL)
		if err != nil {
			return err
		}
	case strings.HasPrefix(ct, "image/"), ct == "application/octet-stream":
		data, err := io.ReadAll(req.Body)
		if err != nil {
			return err
		}
		snap, err = r.wizard.AttachImage(req.Context(), id, data)
		if err != nil {
			return err
		}
	default:
		return invalid("unsupported content type %q", ct)
	}
	return writeJSON(w, http.StatusOK, snap)
}

// GET /v1/sessions/{id}/image
func (r *Router) handleGetImage(w http.ResponseWriter, req *http.Request) error {
	id, err := sessionID(req)
	if err != nil {
		return err
	}
	data, mimeType, err := r.wizard.Image(req.Context(), id)
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Cache-Control", "private, no-store")
	_, err = w.Write(data)
	return err
}

// DELETE /v1/sessions/{id}/image (retake)
func (r *Router) handleDiscardImage(w http.ResponseWriter, req *http.Request) error {
	return r.withSession(r.wizard.DiscardImage)(w, req)
}

// POST /v1/sessions/{id}/analyze
func (r *Router) handleAnalyze(w http.ResponseWriter, req *http.Request) error {
	id, err := sessionID(req)
	if err != nil {
		return err
	}

	done := middleware.BeginAnalysis()

	// jangan ikut cancel kalau client disconnect, supaya session gak nyangkut di analyzing
	ctx := context.WithoutCancel(req.Context())
	snap, err := r.wizard.Analyze(ctx, id)
	if err != nil {
		done(middleware.OutcomeRefused)
		return err
	}

	if snap.ErrorKind == session.ErrorNone {
		done(middleware.OutcomeOK)
	} else {
		done(string(snap.ErrorKind))
	}
	return writeJSON(w, http.StatusOK, snap)
}

// POST /v1/sessions/{id}/reset
func (r *Router) handleReset(w http.ResponseWriter, req *http.Request) error {
	return r.withSession(r.wizard.Reset)(w, req)
}

// GET /v1/sessions/{id}/report?format=html|text
func (r *Router) handleSessionReport(w http.ResponseWriter, req *http.Request) error {
	id, err := sessionID(req)
	if err != nil {
		return err
	}
	d, err := r.wizard.Report(req.Context(), id)
	if err != nil {
		return err
	}
	return writeReport(w, req, d)
}

func writeReport(w http.ResponseWriter, req *http.Request, d report.Data) error {
	switch req.URL.Query().Get("format") {
	case "", "html":
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		return report.RenderHTML(w, d)
	case "text":
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, err := io.WriteString(w, report.RenderTerminal(d))
		return err
	case "json":
		return writeJSON(w, http.StatusOK, d.Analysis)
	default:
		return invalid("format must be html, text or json")
	}
}
