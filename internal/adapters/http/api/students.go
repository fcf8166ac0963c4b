// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	service "github.com/okian/aula/internal/app"
	"github.com/okian/aula/internal/domain/model"
)

// StudentDependencies defines the interface for roster and history reads.
type StudentDependencies interface {
	Students(ctx context.Context, course string) ([]model.Student, error)
	StudentHistory(ctx context.Context, userID int64) ([]model.HistoryPoint, error)
}

// StudentsHandler handles roster and per-student history requests.
type StudentsHandler struct {
	deps StudentDependencies
}

// NewStudentsHandler creates a new students handler.
func NewStudentsHandler(deps StudentDependencies) *StudentsHandler {
	return &StudentsHandler{deps: deps}
}

// HandleListStudents handles GET /api/admin/students requests.
func (h *StudentsHandler) HandleListStudents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	students, err := h.deps.Students(r.Context(), courseScope(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	if students == nil {
		students = []model.Student{}
	}
	writeJSON(w, http.StatusOK, students)
}

// HandleStudentHistory handles GET /api/admin/student-history/{id} requests.
func (h *StudentsHandler) HandleStudentHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/api/admin/student-history/")
	if path == "" || strings.Contains(path, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}
	userID, err := strconv.ParseInt(path, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}

	points, err := h.deps.StudentHistory(r.Context(), userID)
	if err != nil {
		if errors.Is(err, service.ErrUnknownStudent) {
			writeError(w, http.StatusNotFound, "not_found", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	if points == nil {
		points = []model.HistoryPoint{}
	}
	writeJSON(w, http.StatusOK, points)
}
