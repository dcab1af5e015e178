package repository

import (
	"time"

	"github.com/okian/hiscores/pkg/logger"
)

// Option applies a configuration option to the PlayerRepository.
type Option func(*PlayerRepository)

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(r *PlayerRepository) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithRetryDelay sets the pause before the single read retry.
func WithRetryDelay(d time.Duration) Option {
	return func(r *PlayerRepository) {
		if d >= 0 {
			r.retryDelay = d
		}
	}
}

// WithBackendName sets the backend label used in logs.
func WithBackendName(name string) Option {
	return func(r *PlayerRepository) {
		if name != "" {
			r.backend = name
		}
	}
}
