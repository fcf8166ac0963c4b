// Package service wires the stress evaluation pipeline together and
// implements the dependencies required by the HTTP and websocket APIs.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	framequeue "github.com/okian/aula/internal/adapters/mq/queue"
	workerpool "github.com/okian/aula/internal/adapters/mq/worker"
	"github.com/okian/aula/internal/adapters/repository"
	"github.com/okian/aula/internal/domain/classify"
	"github.com/okian/aula/internal/domain/dedupe"
	"github.com/okian/aula/internal/domain/emotion"
	"github.com/okian/aula/internal/domain/fusion"
	"github.com/okian/aula/internal/domain/model"
	"github.com/okian/aula/internal/domain/pss"
	"github.com/okian/aula/pkg/logger"
	"github.com/okian/aula/pkg/metrics"
)

// historyDateLayout is the timeline timestamp format consumed by the
// dashboard charts.
const historyDateLayout = "2006-01-02 15:04"

// Service implements the stress evaluation pipeline: frame ingest through
// the queue and workers, synchronous submit, and the reporting reads.
type Service struct {
	mu sync.RWMutex

	// Core components
	store      repository.Store
	deduper    dedupe.Deduper
	frameQueue framequeue.Queue
	aggregator *emotion.Aggregator
	forest     *classify.Forest
	workerPool *workerpool.Pool

	// Configuration
	workerCount int
	queueSize   int
	dedupeSize  int
	ratioMode   emotion.RatioMode
	modelPath   string

	// State
	started bool

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the persistence backend. Required before Start.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		s.store = store
	}
}

// WithWorkerCount sets the number of persist workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the frame queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets the size of the frame deduplication cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithRatioMode selects the negative-ratio computation.
func WithRatioMode(mode emotion.RatioMode) Option {
	return func(s *Service) {
		s.ratioMode = mode
	}
}

// WithModelPath points at the facial classifier artifact. Empty disables
// the model and keeps the ratio fallback.
func WithModelPath(path string) Option {
	return func(s *Service) {
		s.modelPath = path
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(lg logger.Logger) Option {
	return func(s *Service) {
		if lg != nil {
			s.logger = lg
		}
	}
}

// New constructs a Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount: runtime.NumCPU() * 2,
		queueSize:   50_000,
		dedupeSize:  200_000,
		ratioMode:   emotion.RatioDominant,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start initializes and starts the pipeline components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.store == nil {
		return errors.New("service requires a store")
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	s.logger.Info(ctx, "starting stress evaluation service...")

	s.aggregator = emotion.New(emotion.WithRatioMode(s.ratioMode))
	s.deduper = dedupe.New(dedupe.WithMaxSize(s.dedupeSize))
	s.frameQueue = framequeue.NewInMemoryQueue(framequeue.WithCapacity(s.queueSize))

	if s.modelPath != "" {
		forest, err := classify.Load(s.modelPath)
		if err != nil {
			// Degrade to the ratio fallback rather than refuse to start.
			s.logger.Warn(ctx, "classifier unavailable, using ratio fallback",
				logger.String("model_path", s.modelPath),
				logger.Error(err),
			)
		} else {
			s.forest = forest
			s.logger.Info(ctx, "classifier loaded", logger.String("model_path", s.modelPath))
		}
	}

	s.workerPool = workerpool.NewPool(s.workerCount, s.frameQueue, s.store)
	s.workerPool.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "stress evaluation service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queue_size", s.queueSize),
		logger.Int("dedupe_size", s.dedupeSize),
		logger.String("ratio_mode", string(s.ratioMode)),
		logger.Bool("classifier", s.forest != nil),
	)
	return nil
}

// Stop drains the queue and shuts the pipeline down. The store stays open;
// its owner closes it.
func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	s.logger.Info(ctx, "stopping stress evaluation service...")
	if s.workerPool != nil {
		_ = s.workerPool.Shutdown(ctx)
	}
	s.started = false
	s.logger.Info(ctx, "stress evaluation service stopped")
}

// Ingest accepts one emotion frame for asynchronous persistence.
// Duplicates of an already accepted (session, instant) pair report
// ErrDuplicateFrame; a saturated queue reports ErrQueueFull.
func (s *Service) Ingest(ctx context.Context, frame model.EmotionFrame) error {
	s.mu.RLock()
	started := s.started
	s.mu.RUnlock()
	if !started {
		return ErrNotStarted
	}

	key := dedupe.FrameKey(frame.SessionID, frame.CapturedAt)
	if s.deduper.SeenAndRecord(key) {
		metrics.RecordFrameDuplicate()
		return ErrDuplicateFrame
	}

	if !s.frameQueue.Enqueue(ctx, frame) {
		// Let a retry of the same frame through once there is room again.
		s.deduper.Unrecord(key)
		return ErrQueueFull
	}

	metrics.RecordFrameIngested()
	return nil
}

// Submit evaluates one questionnaire submission: categorizes the PSS score,
// aggregates the session's stored frames once, derives the facial category,
// fuses, and appends the verdict. Nothing is stored when any step fails.
func (s *Service) Submit(ctx context.Context, userID int64, sessionID string, pssScore int) (model.SubmitResult, error) {
	start := time.Now()
	defer func() {
		metrics.RecordSubmitLatency(float64(time.Since(start).Milliseconds()))
	}()

	s.mu.RLock()
	started := s.started
	s.mu.RUnlock()
	if !started {
		return model.SubmitResult{}, ErrNotStarted
	}

	student, err := s.store.StudentByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.SubmitResult{}, fmt.Errorf("%w: %d", ErrUnknownStudent, userID)
		}
		metrics.RecordEvaluationError()
		return model.SubmitResult{}, err
	}

	pssLevel, err := pss.Categorize(pssScore)
	if err != nil {
		return model.SubmitResult{}, err
	}

	// Single read point: every downstream stage sees this one snapshot,
	// frames arriving afterwards do not shift the verdict.
	frames, err := s.store.FramesBySession(ctx, sessionID)
	if err != nil {
		metrics.RecordEvaluationError()
		return model.SubmitResult{}, err
	}
	agg := s.aggregator.Aggregate(frames)

	facialLevel := s.facialCategory(ctx, agg)
	finalLevel := fusion.Fuse(pssLevel, facialLevel)

	eval := model.Evaluation{
		UserID:        userID,
		SessionID:     sessionID,
		Course:        student.Course,
		PSSScore:      pssScore,
		PSSLevel:      pssLevel,
		FacialLevel:   facialLevel,
		FinalLevel:    finalLevel,
		MeanEmotions:  agg.MeanEmotions,
		NegativeRatio: agg.NegativeRatio,
		CreatedAt:     time.Now(),
	}
	if err := s.store.AppendEvaluation(ctx, eval); err != nil {
		metrics.RecordEvaluationError()
		s.logger.Error(ctx, "evaluation append failed",
			logger.Int64("user_id", userID),
			logger.String("session_id", sessionID),
			logger.Error(err),
		)
		return model.SubmitResult{}, err
	}

	metrics.RecordEvaluation()
	return model.SubmitResult{
		PSSScore:      pssScore,
		PSSLevel:      pssLevel,
		FacialLevel:   facialLevel,
		FinalLevel:    finalLevel,
		NegativeRatio: agg.NegativeRatio,
		MeanEmotions:  agg.MeanEmotions,
	}, nil
}

// facialCategory derives the facial stress level from a session aggregate.
// No frames means no signal; otherwise the model predicts, and any model
// problem degrades to the deterministic ratio bands.
func (s *Service) facialCategory(ctx context.Context, agg emotion.Result) model.Level {
	if agg.Frames == 0 {
		return model.LevelUnknown
	}

	if s.forest != nil {
		level, err := s.forest.Predict(classify.Features(agg.MeanEmotions, agg.NegativeRatio))
		if err == nil {
			metrics.RecordClassifierPrediction()
			return level
		}
		s.logger.Warn(ctx, "classifier prediction failed, using ratio fallback",
			logger.Error(err),
		)
	}

	metrics.RecordClassifierFallback()
	return classify.LevelFromRatio(agg.NegativeRatio)
}

// GlobalStats returns the stress distribution across every evaluation on
// record. Stored legacy label variants fold into canonical buckets;
// unrecognized labels are dropped, never miscounted.
func (s *Service) GlobalStats(ctx context.Context) (model.Distribution, error) {
	counts, err := s.store.FinalLevelCounts(ctx)
	if err != nil {
		return model.Distribution{}, err
	}

	buckets, total := foldLabelCounts(counts)
	return model.Distribution{
		TotalEvaluations: total,
		Buckets:          buckets,
	}, nil
}

// ClassStats returns the per-course distribution over each student's most
// recent evaluation, with the enrollment denominator. An empty course
// covers every student.
func (s *Service) ClassStats(ctx context.Context, course string) (model.ClassDistribution, error) {
	labels, err := s.store.LatestFinalLabels(ctx, course)
	if err != nil {
		return model.ClassDistribution{}, err
	}
	enrolled, err := s.store.CountByCourse(ctx, course)
	if err != nil {
		return model.ClassDistribution{}, err
	}

	counts := make(map[string]int)
	for _, label := range labels {
		counts[label]++
	}
	buckets, total := foldLabelCounts(counts)

	return model.ClassDistribution{
		TotalEvaluated: total,
		TotalEnrolled:  enrolled,
		Buckets:        buckets,
	}, nil
}

// Students lists the roster, optionally scoped to a course.
func (s *Service) Students(ctx context.Context, course string) ([]model.Student, error) {
	return s.store.StudentsByCourse(ctx, course)
}

// StudentHistory returns one student's evaluation timeline, oldest first,
// projected for the dashboard: display timestamps, the negative ratio as a
// percentage, and normalized final categories. Rows whose stored label
// cannot be resolved default to medium rather than vanish from the chart.
func (s *Service) StudentHistory(ctx context.Context, userID int64) ([]model.HistoryPoint, error) {
	if _, err := s.store.StudentByID(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: %d", ErrUnknownStudent, userID)
		}
		return nil, err
	}

	evals, err := s.store.EvaluationsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	points := make([]model.HistoryPoint, len(evals))
	for i, e := range evals {
		level, ok := model.ParseLevel(string(e.FinalLevel))
		if !ok {
			level = model.LevelMedium
		}
		points[i] = model.HistoryPoint{
			Date:                 e.CreatedAt.Format(historyDateLayout),
			PSSScore:             e.PSSScore,
			NegativeRatioPercent: e.NegativeRatio * 100,
			FinalLevel:           level,
		}
	}
	return points, nil
}

// GetStats returns service statistics for the monitoring endpoint.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":      s.started,
		"worker_count": s.workerCount,
		"queue_size":   s.queueSize,
		"dedupe_size":  s.dedupeSize,
		"ratio_mode":   string(s.ratioMode),
		"classifier":   s.forest != nil,
	}
	if s.started {
		stats["queue_length"] = s.frameQueue.Len()
		stats["dedupe_entries"] = s.deduper.Size()
	}
	return stats
}

// foldLabelCounts normalizes raw label counts into the three canonical
// buckets, zero-filled and in severity order. Returns the folded buckets
// and the number of evaluations they cover.
func foldLabelCounts(counts map[string]int) ([]model.CategoryCount, int) {
	folded := map[model.Level]int{
		model.LevelLow:    0,
		model.LevelMedium: 0,
		model.LevelHigh:   0,
	}
	total := 0
	for raw, n := range counts {
		level, ok := model.ParseLevel(raw)
		if !ok {
			continue
		}
		folded[level] += n
		total += n
	}

	return []model.CategoryCount{
		{Category: model.LevelLow, Count: folded[model.LevelLow]},
		{Category: model.LevelMedium, Count: folded[model.LevelMedium]},
		{Category: model.LevelHigh, Count: folded[model.LevelHigh]},
	}, total
}
