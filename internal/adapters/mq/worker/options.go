package worker

import (
	"github.com/okian/squid/pkg/logger"
)

// Option applies a configuration option to the Worker.
type Option func(*Worker)

// WithName sets the worker name for identification and logging.
func WithName(name string) Option {
	return func(w *Worker) {
		if name != "" {
			w.name = name
			w.logger = logger.Get().Named(name)
		}
	}
}

// WithBaseWeight sets the score weight passed with each occurrence.
func WithBaseWeight(weight float64) Option {
	return func(w *Worker) {
		if weight > 0 {
			w.baseWeight = weight
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(l logger.Logger) Option {
	return func(w *Worker) {
		if l != nil {
			w.logger = l
		}
	}
}
