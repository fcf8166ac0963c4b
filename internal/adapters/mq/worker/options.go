package worker

import "github.com/okian/aula/pkg/logger"

// Option configures a worker.
type Option func(*PersistWorker)

// WithName sets the worker's name for logging.
func WithName(name string) Option {
	return func(w *PersistWorker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger overrides the worker's logger.
func WithLogger(lg logger.Logger) Option {
	return func(w *PersistWorker) {
		if lg != nil {
			w.logger = lg
		}
	}
}
