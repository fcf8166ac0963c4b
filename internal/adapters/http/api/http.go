// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/okian/aula/internal/domain/model"
)

// CourseHeader is the development header that scopes admin reads to a
// course. Production deployments derive the scope from the authenticated
// teacher instead.
const CourseHeader = "X-Aula-Course"

// validate checks request payloads against their struct tags. Shared,
// thread-safe.
var validate = validator.New()

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Ingest accepts one emotion frame for asynchronous persistence.
	Ingest(ctx context.Context, frame model.EmotionFrame) error

	// Submit runs the synchronous evaluation pipeline.
	Submit(ctx context.Context, userID int64, sessionID string, pssScore int) (model.SubmitResult, error)

	// Read operations expose aggregated stress data.
	GlobalStats(ctx context.Context) (model.Distribution, error)
	ClassStats(ctx context.Context, course string) (model.ClassDistribution, error)
	Students(ctx context.Context, course string) ([]model.Student, error)
	StudentHistory(ctx context.Context, userID int64) ([]model.HistoryPoint, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	framesHandler   *FramesHandler
	submitHandler   *SubmitHandler
	reportHandler   *ReportHandler
	studentsHandler *StudentsHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:   NewHealthHandler(),
		statsHandler:    NewStatsHandler(statsProvider),
		framesHandler:   NewFramesHandler(deps),
		submitHandler:   NewSubmitHandler(deps),
		reportHandler:   NewReportHandler(deps),
		studentsHandler: NewStudentsHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/api/emotions", MetricsMiddleware(s.framesHandler.HandlePostFrame, "emotions"))
	mux.HandleFunc("/api/pss/submit", MetricsMiddleware(s.submitHandler.HandleSubmit, "pss_submit"))
	mux.HandleFunc("/api/admin/global-stats", MetricsMiddleware(s.reportHandler.HandleGlobalStats, "global_stats"))
	mux.HandleFunc("/api/admin/class-stats", MetricsMiddleware(s.reportHandler.HandleClassStats, "class_stats"))
	mux.HandleFunc("/api/admin/students", MetricsMiddleware(s.studentsHandler.HandleListStudents, "students"))
	mux.HandleFunc("/api/admin/student-history/", MetricsMiddleware(s.studentsHandler.HandleStudentHistory, "student_history"))
}

type ackResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate,omitempty"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// courseScope extracts the course scope of an admin read: the dev header
// first, then the query parameter. Empty means unscoped.
func courseScope(r *http.Request) string {
	if course := r.Header.Get(CourseHeader); course != "" {
		return course
	}
	return r.URL.Query().Get("course")
}
