package queue

// Option configures the in-memory queue.
type Option func(*InMemoryQueue)

// WithCapacity bounds the number of buffered frames. Values below 1 keep
// the default.
func WithCapacity(n int) Option {
	return func(q *InMemoryQueue) {
		if n > 0 {
			q.capacity = n
		}
	}
}
