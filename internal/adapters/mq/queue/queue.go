// Package queue buffers ingested emotion frames between the HTTP and
// websocket receivers and the persistence workers.
//
// The queue is a bounded in-memory channel. When it fills, ingest sheds
// frames instead of blocking the capture client.
package queue

import (
	"context"
	"sync"

	"github.com/okian/aula/internal/domain/model"
	"github.com/okian/aula/pkg/metrics"
)

const defaultCapacity = 50_000

// Frame is the payload type flowing through the queue.
type Frame = model.EmotionFrame

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a frame. Returns false if the queue is full or closed
	// and the frame was shed.
	Enqueue(ctx context.Context, f Frame) bool

	// Dequeue returns a channel receiving frames as they become available.
	// Closed when the queue is closed and drained.
	Dequeue(ctx context.Context) <-chan Frame

	// Len returns the current number of buffered frames.
	Len() int

	// Close stops accepting frames. Buffered frames remain dequeueable.
	Close() error

	// IsClosed reports whether Close has been called.
	IsClosed() bool
}

// InMemoryQueue implements Queue on a buffered channel.
type InMemoryQueue struct {
	frames   chan Frame
	capacity int

	mu     sync.RWMutex
	closed bool
}

// NewInMemoryQueue creates a bounded queue.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{
		capacity: defaultCapacity,
	}
	for _, opt := range opts {
		opt(q)
	}
	q.frames = make(chan Frame, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	metrics.UpdateQueueUtilization(0)

	return q
}

// Enqueue adds a frame without blocking.
func (q *InMemoryQueue) Enqueue(ctx context.Context, f Frame) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueEnqueueError()
		return false
	}

	select {
	case q.frames <- f:
		q.observe()
		return true
	case <-ctx.Done():
		metrics.RecordQueueEnqueueError()
		return false
	default:
		// Queue full: shed the frame rather than stall the client.
		metrics.RecordQueueEnqueueError()
		metrics.RecordFrameDropped()
		return false
	}
}

// Dequeue returns a channel that yields frames until the queue closes.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Frame {
	out := make(chan Frame)
	go func() {
		defer close(out)
		for f := range q.frames {
			select {
			case out <- f:
				q.observe()
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Len returns the number of buffered frames.
func (q *InMemoryQueue) Len() int {
	size := len(q.frames)
	metrics.UpdateQueueSize(size)
	return size
}

func (q *InMemoryQueue) observe() {
	size := len(q.frames)
	metrics.UpdateQueueSize(size)
	metrics.UpdateQueueUtilization(float64(size) / float64(q.capacity))
}

// Close stops accepting new frames.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.frames)
	q.closed = true
	return nil
}

// IsClosed reports whether the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
