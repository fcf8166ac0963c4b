// Package repository persists emotion frames, evaluations and the student
// directory. Frames and evaluations are append-only; reads aggregate.
package repository

import (
	"context"

	"github.com/okian/aula/internal/domain/model"
)

// FrameStore holds raw emotion frames keyed by (session, capture instant).
type FrameStore interface {
	// AppendFrame stores one frame. A frame with an already stored key is
	// ignored without error: ingestion retries must be idempotent.
	AppendFrame(ctx context.Context, frame model.EmotionFrame) error
	// FramesBySession returns every frame of a session in capture order.
	FramesBySession(ctx context.Context, sessionID string) ([]model.EmotionFrame, error)
}

// EvaluationStore holds fused stress verdicts, one per submitted session.
type EvaluationStore interface {
	// AppendEvaluation stores one verdict. Never updates in place.
	AppendEvaluation(ctx context.Context, eval model.Evaluation) error
	// FinalLevelCounts returns the count of evaluations per stored final
	// label, raw and unnormalized. Legacy rows may carry label variants;
	// normalization is the caller's concern.
	FinalLevelCounts(ctx context.Context) (map[string]int, error)
	// LatestFinalLabels returns the raw final label of the most recent
	// evaluation of each student, optionally scoped to a course. Recency
	// ties break toward the later insert. The latest evaluation is picked
	// first and the course filter applied to it after: a student whose most
	// recent evaluation belongs to another course is absent from the scoped
	// result rather than represented by an older in-course row.
	LatestFinalLabels(ctx context.Context, course string) ([]string, error)
	// EvaluationsByUser returns a student's evaluations, oldest first.
	EvaluationsByUser(ctx context.Context, userID int64) ([]model.Evaluation, error)
}

// StudentDirectory is the read-mostly student roster.
type StudentDirectory interface {
	StudentByID(ctx context.Context, id int64) (model.Student, error)
	// StudentsByCourse lists students; an empty course lists everyone.
	StudentsByCourse(ctx context.Context, course string) ([]model.Student, error)
	// CountByCourse counts enrollment; an empty course counts everyone.
	CountByCourse(ctx context.Context, course string) (int, error)
	// UpsertStudent inserts or replaces a roster row. Used by seeding and
	// directory sync.
	UpsertStudent(ctx context.Context, student model.Student) error
}

// Store bundles every persistence concern behind one handle.
type Store interface {
	FrameStore
	EvaluationStore
	StudentDirectory

	Close() error
}
