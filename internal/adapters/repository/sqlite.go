package repository

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"

	"github.com/okian/aula/internal/domain/model"
	"github.com/okian/aula/pkg/logger"
	"github.com/okian/aula/pkg/metrics"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore is the durable Store backed by a single SQLite file. WAL mode
// lets the ingest writers and report readers proceed concurrently.
type SQLiteStore struct {
	db  *sql.DB
	lg  logger.Logger
	dsn string
}

// NewSQLite opens (creating if needed) the database at path and applies
// pending migrations.
func NewSQLite(ctx context.Context, path string, opts ...SQLiteOption) (*SQLiteStore, error) {
	s := &SQLiteStore{
		lg: logger.Named("sqlite"),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.dsn = fmt.Sprintf(
		"file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)",
		path,
	)
	db, err := sql.Open("sqlite", s.dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOpenStore, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %w", ErrOpenStore, err)
	}
	s.db = db

	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}

	s.lg.Info(ctx, "sqlite store ready", logger.String("path", path))
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMigrate, err)
	}
	drv, err := migratesqlite.WithInstance(s.db, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMigrate, err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", drv)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMigrate, err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("%w: %w", ErrMigrate, err)
	}
	return nil
}

// Close closes the underlying database handle.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("%w: %w", ErrCloseStore, err)
	}
	return nil
}

// AppendFrame inserts one frame; an existing (session, instant) row wins and
// the duplicate is dropped silently.
func (s *SQLiteStore) AppendFrame(ctx context.Context, frame model.EmotionFrame) error {
	emotions, err := json.Marshal(frame.Emotions)
	if err != nil {
		return fmt.Errorf("%w: encode emotions: %w", ErrAppend, err)
	}

	start := time.Now()
	_, err = s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO emotion_frames (session_id, captured_at, user_id, emotions)
		 VALUES (?, ?, ?, ?)`,
		frame.SessionID, frame.CapturedAt, frame.UserID, string(emotions),
	)
	metrics.RecordPersistLatency(float64(time.Since(start).Milliseconds()))
	if err != nil {
		return fmt.Errorf("%w: frame: %w", ErrAppend, err)
	}
	return nil
}

// FramesBySession returns a session's frames ordered by capture instant.
func (s *SQLiteStore) FramesBySession(ctx context.Context, sessionID string) ([]model.EmotionFrame, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT session_id, captured_at, user_id, emotions
		 FROM emotion_frames
		 WHERE session_id = ?
		 ORDER BY captured_at ASC`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: frames: %w", ErrQuery, err)
	}
	defer rows.Close()

	var frames []model.EmotionFrame
	for rows.Next() {
		var (
			f   model.EmotionFrame
			raw string
		)
		if err := rows.Scan(&f.SessionID, &f.CapturedAt, &f.UserID, &raw); err != nil {
			return nil, fmt.Errorf("%w: frames: %w", ErrQuery, err)
		}
		if err := json.Unmarshal([]byte(raw), &f.Emotions); err != nil {
			return nil, fmt.Errorf("%w: decode emotions: %w", ErrQuery, err)
		}
		frames = append(frames, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: frames: %w", ErrQuery, err)
	}
	return frames, nil
}

// AppendEvaluation stores one fused verdict.
func (s *SQLiteStore) AppendEvaluation(ctx context.Context, eval model.Evaluation) error {
	means, err := json.Marshal(eval.MeanEmotions)
	if err != nil {
		return fmt.Errorf("%w: encode means: %w", ErrAppend, err)
	}

	start := time.Now()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO evaluations
		   (user_id, session_id, course, pss_score, pss_level, facial_level,
		    final_level, mean_emotions, negative_ratio, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		eval.UserID, eval.SessionID, eval.Course, eval.PSSScore,
		string(eval.PSSLevel), string(eval.FacialLevel), string(eval.FinalLevel),
		string(means), eval.NegativeRatio, eval.CreatedAt.UnixNano(),
	)
	metrics.RecordPersistLatency(float64(time.Since(start).Milliseconds()))
	if err != nil {
		return fmt.Errorf("%w: evaluation: %w", ErrAppend, err)
	}
	return nil
}

// FinalLevelCounts groups every evaluation by its raw final label.
func (s *SQLiteStore) FinalLevelCounts(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT final_level, COUNT(*) FROM evaluations GROUP BY final_level`,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: level counts: %w", ErrQuery, err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			label string
			n     int
		)
		if err := rows.Scan(&label, &n); err != nil {
			return nil, fmt.Errorf("%w: level counts: %w", ErrQuery, err)
		}
		counts[label] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: level counts: %w", ErrQuery, err)
	}
	return counts, nil
}

// LatestFinalLabels picks each student's most recent verdict by created_at,
// falling back to insert order when two rows share an instant.
func (s *SQLiteStore) LatestFinalLabels(ctx context.Context, course string) ([]string, error) {
	query := `SELECT e.final_level
	          FROM evaluations e
	          WHERE e.id = (
	              SELECT e2.id FROM evaluations e2
	              WHERE e2.user_id = e.user_id
	              ORDER BY e2.created_at DESC, e2.id DESC
	              LIMIT 1
	          )`
	args := []any{}
	if course != "" {
		query += ` AND e.course = ?`
		args = append(args, course)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: latest labels: %w", ErrQuery, err)
	}
	defer rows.Close()

	var labels []string
	for rows.Next() {
		var label string
		if err := rows.Scan(&label); err != nil {
			return nil, fmt.Errorf("%w: latest labels: %w", ErrQuery, err)
		}
		labels = append(labels, label)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: latest labels: %w", ErrQuery, err)
	}
	return labels, nil
}

// EvaluationsByUser returns a student's verdicts, oldest first.
func (s *SQLiteStore) EvaluationsByUser(ctx context.Context, userID int64) ([]model.Evaluation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, session_id, course, pss_score, pss_level, facial_level,
		        final_level, mean_emotions, negative_ratio, created_at
		 FROM evaluations
		 WHERE user_id = ?
		 ORDER BY created_at ASC, id ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: evaluations: %w", ErrQuery, err)
	}
	defer rows.Close()

	var evals []model.Evaluation
	for rows.Next() {
		var (
			e         model.Evaluation
			pssLevel  string
			facial    string
			final     string
			meansRaw  string
			createdNs int64
		)
		if err := rows.Scan(&e.UserID, &e.SessionID, &e.Course, &e.PSSScore,
			&pssLevel, &facial, &final, &meansRaw, &e.NegativeRatio, &createdNs); err != nil {
			return nil, fmt.Errorf("%w: evaluations: %w", ErrQuery, err)
		}
		e.PSSLevel = model.Level(pssLevel)
		e.FacialLevel = model.Level(facial)
		e.FinalLevel = model.Level(final)
		e.CreatedAt = time.Unix(0, createdNs)
		if err := json.Unmarshal([]byte(meansRaw), &e.MeanEmotions); err != nil {
			return nil, fmt.Errorf("%w: decode means: %w", ErrQuery, err)
		}
		evals = append(evals, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: evaluations: %w", ErrQuery, err)
	}
	return evals, nil
}

// StudentByID looks up one roster row.
func (s *SQLiteStore) StudentByID(ctx context.Context, id int64) (model.Student, error) {
	var st model.Student
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, email, course FROM students WHERE id = ?`, id,
	).Scan(&st.ID, &st.Name, &st.Email, &st.Course)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Student{}, fmt.Errorf("%w: student %d", ErrNotFound, id)
	}
	if err != nil {
		return model.Student{}, fmt.Errorf("%w: student: %w", ErrQuery, err)
	}
	return st, nil
}

// StudentsByCourse lists roster rows; empty course lists everyone.
func (s *SQLiteStore) StudentsByCourse(ctx context.Context, course string) ([]model.Student, error) {
	query := `SELECT id, name, email, course FROM students`
	args := []any{}
	if course != "" {
		query += ` WHERE course = ?`
		args = append(args, course)
	}
	query += ` ORDER BY id ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: students: %w", ErrQuery, err)
	}
	defer rows.Close()

	var students []model.Student
	for rows.Next() {
		var st model.Student
		if err := rows.Scan(&st.ID, &st.Name, &st.Email, &st.Course); err != nil {
			return nil, fmt.Errorf("%w: students: %w", ErrQuery, err)
		}
		students = append(students, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: students: %w", ErrQuery, err)
	}
	return students, nil
}

// CountByCourse counts roster rows; empty course counts everyone.
func (s *SQLiteStore) CountByCourse(ctx context.Context, course string) (int, error) {
	query := `SELECT COUNT(*) FROM students`
	args := []any{}
	if course != "" {
		query += ` WHERE course = ?`
		args = append(args, course)
	}

	var n int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: count students: %w", ErrQuery, err)
	}
	return n, nil
}

// UpsertStudent inserts or replaces a roster row keyed by id.
func (s *SQLiteStore) UpsertStudent(ctx context.Context, student model.Student) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO students (id, name, email, course) VALUES (?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET name = excluded.name,
		                                email = excluded.email,
		                                course = excluded.course`,
		student.ID, student.Name, student.Email, student.Course,
	)
	if err != nil {
		return fmt.Errorf("%w: student: %w", ErrAppend, err)
	}
	return nil
}
