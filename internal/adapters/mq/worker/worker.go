// Package worker drains the frame queue into durable storage.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"time"

	"github.com/okian/aula/internal/domain/model"
	"github.com/okian/aula/pkg/logger"
	"github.com/okian/aula/pkg/metrics"
)

const (
	defaultWorkerMultiplier = 2 // multiplier for runtime.NumCPU()
	poolShutdownTimeout     = 30 * time.Second
)

// Frame is what workers read off the queue.
type Frame = model.EmotionFrame

// Appender persists frames.
type Appender interface {
	AppendFrame(ctx context.Context, frame model.EmotionFrame) error
}

// Queue defines how workers receive frames.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Frame
}

// Worker persists frames until stopped.
type Worker interface {
	// Run starts the worker loop until ctx is canceled.
	Run(ctx context.Context)

	// Shutdown stops the worker, waiting for the in-flight frame.
	Shutdown(ctx context.Context) error
}

// PersistWorker implements Worker: it appends each dequeued frame to the
// store. A failed append drops the frame; the capture stream is lossy by
// contract and a stuck store must not back up the queue.
type PersistWorker struct {
	queue Queue
	store Appender
	name  string

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewPersistWorker creates a worker with configuration options.
func NewPersistWorker(queue Queue, store Appender, opts ...Option) *PersistWorker {
	w := &PersistWorker{
		queue:    queue,
		store:    store,
		name:     "worker",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}
	return w
}

// Run starts the worker loop.
func (w *PersistWorker) Run(ctx context.Context) {
	defer close(w.done)

	frames := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case frame, ok := <-frames:
			if !ok {
				return
			}
			if err := w.store.AppendFrame(ctx, frame); err != nil {
				metrics.RecordFrameDropped()
				w.logger.Error(ctx, "frame persist failed",
					logger.String("session_id", frame.SessionID),
					logger.Error(err),
				)
			}
		}
	}
}

// Shutdown stops the worker.
func (w *PersistWorker) Shutdown(ctx context.Context) error {
	close(w.shutdown)

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// Pool manages multiple persist workers draining one queue.
type Pool struct {
	workers []*PersistWorker
	queue   Queue

	logger logger.Logger
}

// NewPool creates a pool of workerCount workers. Counts below 1 default to
// a multiple of the CPU count.
func NewPool(workerCount int, queue Queue, store Appender) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU() * defaultWorkerMultiplier
	}

	p := &Pool{
		workers: make([]*PersistWorker, workerCount),
		queue:   queue,
		logger:  logger.Get().Named("worker-pool"),
	}
	for i := 0; i < workerCount; i++ {
		p.workers[i] = NewPersistWorker(queue, store, WithName("worker-"+strconv.Itoa(i)))
	}

	metrics.UpdateWorkerCount(workerCount)
	return p
}

// Start launches every worker.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Shutdown closes the queue and waits for the workers to drain.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}

	metrics.UpdateWorkerCount(0)
	return nil
}
