// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"
	"strings"
)

// TermDependencies defines the interface for single-term score lookups.
type TermDependencies interface {
	TermScore(ctx context.Context, term string) (Entry, bool)
}

// TermsHandler handles single-term score requests.
type TermsHandler struct {
	deps TermDependencies
}

// NewTermsHandler creates a new terms handler.
func NewTermsHandler(deps TermDependencies) *TermsHandler {
	return &TermsHandler{deps: deps}
}

// HandleGetTermScore handles GET /terms/{term}/score requests.
func (h *TermsHandler) HandleGetTermScore(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_term_score"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	// Extract path parameters after /terms/
	path := strings.TrimPrefix(r.URL.Path, "/terms/")
	term, ok := strings.CutSuffix(path, "/score")
	if !ok || term == "" || strings.Contains(term, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", newKind(op, ErrBadRequest))
		return
	}
	entry, found := h.deps.TermScore(r.Context(), term)
	if !found {
		writeError(w, http.StatusNotFound, "not_found", newKind(op, ErrNotFound))
		return
	}
	writeJSON(w, http.StatusOK, scoreResponse{
		Term:       entry.Term,
		Score:      entry.Score,
		LastUpdate: entry.LastUpdate,
	})
}
