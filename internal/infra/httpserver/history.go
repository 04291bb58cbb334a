package httpserver

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/bryanwahyu/palm-oracle/internal/domain/reading"
	"github.com/bryanwahyu/palm-oracle/internal/middleware"
)

func readingID(req *http.Request) (reading.ReadingID, error) {
	id := chi.URLParam(req, "id")
	if err := middleware.ValidateID("reading", id); err != nil {
		return "", invalid("%v", err)
	}
	return reading.ReadingID(id), nil
}

// GET /v1/history?page=&page_size=
func (r *Router) handleHistoryList(w http.ResponseWriter, req *http.Request) error {
	page, _ := strconv.Atoi(req.URL.Query().Get("page"))
	size, _ := strconv.Atoi(req.URL.Query().Get("page_size"))

	list, err := r.history.List(req.Context(), middleware.ValidatePage(page), middleware.ValidateLimit(size))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, list)
}

// GET /v1/history/{id}
func (r *Router) handleHistoryGet(w http.ResponseWriter, req *http.Request) error {
	id, err := readingID(req)
	if err != nil {
		return err
	}
	rd, err := r.history.Get(req.Context(), id)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, rd)
}

// DELETE /v1/history/{id}
func (r *Router) handleHistoryDelete(w http.ResponseWriter, req *http.Request) error {
	id, err := readingID(req)
	if err != nil {
		return err
	}
	if err := r.history.Delete(req.Context(), id); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

// DELETE /v1/history
func (r *Router) handleHistoryClear(w http.ResponseWriter, req *http.Request) error {
	n, err := r.history.Clear(req.Context())
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, map[string]int64{"deleted": n})
}

// GET /v1/history/{id}/report?format=html|text|json
func (r *Router) handleHistoryReport(w http.ResponseWriter, req *http.Request) error {
	id, err := readingID(req)
	if err != nil {
		return err
	}
	d, err := r.history.Report(req.Context(), id)
	if err != nil {
		return err
	}
	return writeReport(w, req, d)
}
