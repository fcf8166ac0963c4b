// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"

	"github.com/okian/aula/internal/domain/model"
)

// ReportDependencies defines the interface for aggregate reads.
type ReportDependencies interface {
	GlobalStats(ctx context.Context) (model.Distribution, error)
	ClassStats(ctx context.Context, course string) (model.ClassDistribution, error)
}

// ReportHandler handles the teacher dashboard aggregates.
type ReportHandler struct {
	deps ReportDependencies
}

// NewReportHandler creates a new report handler.
func NewReportHandler(deps ReportDependencies) *ReportHandler {
	return &ReportHandler{deps: deps}
}

// HandleGlobalStats handles GET /api/admin/global-stats requests.
func (h *ReportHandler) HandleGlobalStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	dist, err := h.deps.GlobalStats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	writeJSON(w, http.StatusOK, dist)
}

// HandleClassStats handles GET /api/admin/class-stats requests, scoped to
// the caller's course.
func (h *ReportHandler) HandleClassStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	dist, err := h.deps.ClassStats(r.Context(), courseScope(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	writeJSON(w, http.StatusOK, dist)
}
