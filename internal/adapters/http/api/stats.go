// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"net/http"
)

// StatsProvider exposes a snapshot of the evaluation pipeline's runtime
// state (queue depth, dedupe entries, worker count).
type StatsProvider interface {
	GetStats() map[string]interface{}
}

// StatsHandler serves the pipeline snapshot for operators.
type StatsHandler struct {
	statsProvider StatsProvider
}

// NewStatsHandler creates the handler around a snapshot source.
func NewStatsHandler(statsProvider StatsProvider) *StatsHandler {
	return &StatsHandler{statsProvider: statsProvider}
}

// HandleStats handles GET /stats requests with the current snapshot.
func (h *StatsHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	stats := h.statsProvider.GetStats()
	_ = json.NewEncoder(w).Encode(stats)
}
