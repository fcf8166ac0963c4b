// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	service "github.com/okian/aula/internal/app"
	"github.com/okian/aula/internal/domain/model"
)

// frameRequest mirrors the capture client's frame payload. The capture
// instant travels as "timestamp": it doubles as the per-session dedupe key,
// so dropping it would collapse a whole session onto one frame.
type frameRequest struct {
	UserID    int64              `json:"user_id" validate:"required"`
	SessionID string             `json:"session_id" validate:"required"`
	Emotions  map[string]float64 `json:"emotions" validate:"required,min=1,dive,gte=0,lte=1"`
	Timestamp float64            `json:"timestamp" validate:"gte=0"`
}

// FrameDependencies defines the interface for frame ingestion.
type FrameDependencies interface {
	Ingest(ctx context.Context, frame model.EmotionFrame) error
}

// FramesHandler handles emotion frame requests.
type FramesHandler struct {
	deps FrameDependencies
}

// NewFramesHandler creates a new frames handler.
func NewFramesHandler(deps FrameDependencies) *FramesHandler {
	return &FramesHandler{deps: deps}
}

// HandlePostFrame handles POST /api/emotions requests. Duplicates ack with
// 200 so retrying clients settle; backpressure is surfaced as 429.
func (h *FramesHandler) HandlePostFrame(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	var req frameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	frame := model.EmotionFrame{
		UserID:     req.UserID,
		SessionID:  req.SessionID,
		Emotions:   req.Emotions,
		CapturedAt: req.Timestamp,
	}
	if err := h.deps.Ingest(r.Context(), frame); err != nil {
		switch {
		case errors.Is(err, service.ErrDuplicateFrame):
			writeJSON(w, http.StatusOK, ackResponse{Status: "duplicate", Duplicate: true})
		case errors.Is(err, service.ErrQueueFull):
			writeError(w, http.StatusTooManyRequests, "backpressure", ErrBackpressure)
		default:
			writeError(w, http.StatusInternalServerError, "internal_error", err)
		}
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "ok"})
}
