// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	service "github.com/okian/aula/internal/app"
	"github.com/okian/aula/internal/domain/model"
	"github.com/okian/aula/internal/domain/pss"
)

// submitRequest mirrors the questionnaire submission payload. PSSScore is a
// pointer so an absent field is distinguishable from a legitimate zero.
type submitRequest struct {
	UserID    int64  `json:"user_id" validate:"required"`
	SessionID string `json:"session_id" validate:"required"`
	PSSScore  *int   `json:"pss_score" validate:"required"`
}

// SubmitDependencies defines the interface for evaluation submission.
type SubmitDependencies interface {
	Submit(ctx context.Context, userID int64, sessionID string, pssScore int) (model.SubmitResult, error)
}

// SubmitHandler handles questionnaire submissions.
type SubmitHandler struct {
	deps SubmitDependencies
}

// NewSubmitHandler creates a new submit handler.
func NewSubmitHandler(deps SubmitDependencies) *SubmitHandler {
	return &SubmitHandler{deps: deps}
}

// HandleSubmit handles POST /api/pss/submit requests.
func (h *SubmitHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	result, err := h.deps.Submit(r.Context(), req.UserID, req.SessionID, *req.PSSScore)
	if err != nil {
		switch {
		case errors.Is(err, pss.ErrScoreOutOfRange):
			writeError(w, http.StatusBadRequest, "bad_request", err)
		case errors.Is(err, service.ErrUnknownStudent):
			writeError(w, http.StatusNotFound, "not_found", err)
		default:
			writeError(w, http.StatusInternalServerError, "internal_error", err)
		}
		return
	}
	writeJSON(w, http.StatusOK, result)
}
