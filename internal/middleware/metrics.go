package middleware

import (
	"encoding/json"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"
)

// Outcome labels for finished analyze calls. The failure ones match session.ErrorKind.
const (
	OutcomeOK         = "ok"
	OutcomeCredential = "credential"
	OutcomeQuota      = "quota"
	OutcomeRejected   = "rejected"
	OutcomeGeneric    = "generic"
	// analyze was refused before the model was called (wrong state, in flight)
	OutcomeRefused = "refused"
)

var outcomeLabels = []string{OutcomeOK, OutcomeCredential, OutcomeQuota, OutcomeRejected, OutcomeGeneric, OutcomeRefused}

// Metrics counters, exposed as JSON on /metrics
type Metrics struct {
	requests atomic.Uint64
	inFlight atomic.Int64
	success  atomic.Uint64
	failed   atomic.Uint64

	analyses      atomic.Uint64
	analyzing     atomic.Int64
	analysisNanos atomic.Int64
	outcomes      map[string]*atomic.Uint64

	started time.Time
}

func newMetrics() *Metrics {
	m := &Metrics{started: time.Now(), outcomes: make(map[string]*atomic.Uint64, len(outcomeLabels))}
	for _, l := range outcomeLabels {
		m.outcomes[l] = new(atomic.Uint64)
	}
	return m
}

var globalMetrics = newMetrics()

// BeginAnalysis marks one model call as running. Call the returned func exactly once
// with the outcome label.
func BeginAnalysis() (done func(outcome string)) {
	start := time.Now()
	globalMetrics.analyzing.Add(1)
	return func(outcome string) {
		globalMetrics.analyzing.Add(-1)
		c, ok := globalMetrics.outcomes[outcome]
		if !ok {
			c = globalMetrics.outcomes[OutcomeGeneric]
		}
		c.Add(1)
		if outcome == OutcomeRefused {
			return
		}
		globalMetrics.analyses.Add(1)
		globalMetrics.analysisNanos.Add(int64(time.Since(start)))
	}
}

// GetMetrics returns current metrics
func GetMetrics() map[string]interface{} {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	m := globalMetrics
	outcomes := make(map[string]uint64, len(m.outcomes))
	for l, c := range m.outcomes {
		outcomes[l] = c.Load()
	}
	avg := 0.0
	if n := m.analyses.Load(); n > 0 {
		avg = time.Duration(m.analysisNanos.Load() / int64(n)).Seconds()
	}

	return map[string]interface{}{
		"requests": map[string]interface{}{
			"total":       m.requests.Load(),
			"in_progress": m.inFlight.Load(),
			"success":     m.success.Load(),
			"failed":      m.failed.Load(),
		},
		"analyses": map[string]interface{}{
			"total":       m.analyses.Load(),
			"running":     m.analyzing.Load(),
			"avg_seconds": avg,
			"outcomes":    outcomes,
		},
		"uptime_seconds": time.Since(m.started).Seconds(),
		"memory": map[string]interface{}{
			"alloc_bytes": mem.Alloc,
			"sys_bytes":   mem.Sys,
			"num_gc":      mem.NumGC,
		},
		"goroutines": runtime.NumGoroutine(),
	}
}

// MetricsMiddleware counts requests by result class.
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		globalMetrics.requests.Add(1)
		globalMetrics.inFlight.Add(1)
		defer globalMetrics.inFlight.Add(-1)

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		// 4xx dihitung gagal juga, termasuk 429 dari rate limiter
		if wrapped.statusCode < 400 {
			globalMetrics.success.Add(1)
		} else {
			globalMetrics.failed.Add(1)
		}
	})
}

// MetricsHandler returns metrics as JSON
func MetricsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(GetMetrics())
}
