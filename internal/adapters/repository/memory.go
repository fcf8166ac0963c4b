package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/okian/aula/internal/domain/model"
)

// MemoryStore is the in-process Store used by tests and local development.
// Semantics mirror SQLiteStore: frame appends are idempotent on
// (session, instant), evaluations keep insert order as the recency
// tie-break.
type MemoryStore struct {
	mu        sync.RWMutex
	frames    map[string][]model.EmotionFrame // session -> frames, capture order
	frameKeys map[string]struct{}
	evals     []model.Evaluation
	students  map[int64]model.Student
}

// NewMemory returns an empty in-memory store.
func NewMemory() *MemoryStore {
	return &MemoryStore{
		frames:    make(map[string][]model.EmotionFrame),
		frameKeys: make(map[string]struct{}),
		students:  make(map[int64]model.Student),
	}
}

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }

func frameKey(sessionID string, capturedAt float64) string {
	return fmt.Sprintf("%s|%g", sessionID, capturedAt)
}

// AppendFrame stores a frame, dropping duplicates of (session, instant).
func (s *MemoryStore) AppendFrame(_ context.Context, frame model.EmotionFrame) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := frameKey(frame.SessionID, frame.CapturedAt)
	if _, ok := s.frameKeys[key]; ok {
		return nil
	}
	s.frameKeys[key] = struct{}{}

	frames := append(s.frames[frame.SessionID], frame)
	sort.SliceStable(frames, func(i, j int) bool {
		return frames[i].CapturedAt < frames[j].CapturedAt
	})
	s.frames[frame.SessionID] = frames
	return nil
}

// FramesBySession returns a session's frames in capture order.
func (s *MemoryStore) FramesBySession(_ context.Context, sessionID string) ([]model.EmotionFrame, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	src := s.frames[sessionID]
	out := make([]model.EmotionFrame, len(src))
	copy(out, src)
	return out, nil
}

// AppendEvaluation appends a verdict.
func (s *MemoryStore) AppendEvaluation(_ context.Context, eval model.Evaluation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evals = append(s.evals, eval)
	return nil
}

// FinalLevelCounts groups stored verdicts by raw final label.
func (s *MemoryStore) FinalLevelCounts(_ context.Context) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[string]int)
	for _, e := range s.evals {
		counts[string(e.FinalLevel)]++
	}
	return counts, nil
}

// LatestFinalLabels returns the last appended verdict per student, scoped to
// course when non-empty.
func (s *MemoryStore) LatestFinalLabels(_ context.Context, course string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	latest := make(map[int64]model.Evaluation)
	order := make([]int64, 0)
	for _, e := range s.evals {
		prev, seen := latest[e.UserID]
		if !seen {
			order = append(order, e.UserID)
			latest[e.UserID] = e
			continue
		}
		// Later inserts win on equal timestamps.
		if !e.CreatedAt.Before(prev.CreatedAt) {
			latest[e.UserID] = e
		}
	}

	var labels []string
	for _, id := range order {
		e := latest[id]
		if course != "" && e.Course != course {
			continue
		}
		labels = append(labels, string(e.FinalLevel))
	}
	return labels, nil
}

// EvaluationsByUser returns a student's verdicts, oldest first.
func (s *MemoryStore) EvaluationsByUser(_ context.Context, userID int64) ([]model.Evaluation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.Evaluation
	for _, e := range s.evals {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// StudentByID looks up one roster row.
func (s *MemoryStore) StudentByID(_ context.Context, id int64) (model.Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.students[id]
	if !ok {
		return model.Student{}, fmt.Errorf("%w: student %d", ErrNotFound, id)
	}
	return st, nil
}

// StudentsByCourse lists roster rows; empty course lists everyone.
func (s *MemoryStore) StudentsByCourse(_ context.Context, course string) ([]model.Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.Student
	for _, st := range s.students {
		if course == "" || st.Course == course {
			out = append(out, st)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// CountByCourse counts roster rows; empty course counts everyone.
func (s *MemoryStore) CountByCourse(_ context.Context, course string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, st := range s.students {
		if course == "" || st.Course == course {
			n++
		}
	}
	return n, nil
}

// UpsertStudent inserts or replaces a roster row.
func (s *MemoryStore) UpsertStudent(_ context.Context, student model.Student) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.students[student.ID] = student
	return nil
}
