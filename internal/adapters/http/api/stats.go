// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"
)

// StatsProvider exposes a point-in-time view of service internals
// (queue depth, tracked terms, worker counts) for operators.
type StatsProvider interface {
	GetStats() map[string]interface{}
}

// StatsHandler serves the operator stats endpoint.
type StatsHandler struct {
	provider StatsProvider
}

// NewStatsHandler creates a stats handler over the given provider.
func NewStatsHandler(provider StatsProvider) *StatsHandler {
	return &StatsHandler{provider: provider}
}

// HandleStats handles GET /stats requests.
func (h *StatsHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, h.provider.GetStats())
}
