// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"
	"strconv"
)

// TrendDependencies defines the interface for trend queries.
type TrendDependencies interface {
	Top(ctx context.Context, k int) (View, error)
}

// TrendsHandler handles trend listing requests.
type TrendsHandler struct {
	deps TrendDependencies
	maxK int
}

// NewTrendsHandler creates a new trends handler.
func NewTrendsHandler(deps TrendDependencies, maxK int) *TrendsHandler {
	return &TrendsHandler{deps: deps, maxK: maxK}
}

// HandleGetTrends handles GET /trends?k=N requests.
func (h *TrendsHandler) HandleGetTrends(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_trends"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	kStr := r.URL.Query().Get("k")
	k, err := strconv.Atoi(kStr)
	if err != nil || k < 1 {
		writeError(w, http.StatusBadRequest, "bad_request", newKind(op, ErrBadRequest))
		return
	}
	if k > h.maxK {
		k = h.maxK
	}
	view, err := h.deps.Top(r.Context(), k)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	writeJSON(w, http.StatusOK, trendsResponse{
		AsOf:    view.AsOf,
		Version: view.Version,
		Entries: view.Entries,
	})
}
