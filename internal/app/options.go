package service

import (
	"time"

	"github.com/okian/hiscores/internal/adapters/repository"
	"github.com/okian/hiscores/internal/domain/generator"
	"github.com/okian/hiscores/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithRepository sets the player repository. Defaults to an in-memory store.
func WithRepository(repo *repository.PlayerRepository) Option {
	return func(s *Service) {
		if repo != nil {
			s.repo = repo
		}
	}
}

// WithGenerator sets the player generator.
func WithGenerator(g *generator.Generator) Option {
	return func(s *Service) {
		if g != nil {
			s.gen = g
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock sets the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithBatchSize sets how many users one job batch holds.
func WithBatchSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// WithBatchDelay sets the minimum gap between job batches.
func WithBatchDelay(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.batchDelay = d
		}
	}
}

// WithWorkerCount sets the number of workers draining one batch.
func WithWorkerCount(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithContextCacheTTL sets the achievement context cache lifetime. Zero
// disables caching.
func WithContextCacheTTL(ttl time.Duration) Option {
	return func(s *Service) {
		s.cacheTTL = ttl
	}
}

// WithHistoryRetention sets how long leaderboard snapshots are kept.
func WithHistoryRetention(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.historyRetention = d
		}
	}
}

// WithOnTheRise sets the minimum rank improvement and list size of onTheRise.
func WithOnTheRise(threshold, limit int) Option {
	return func(s *Service) {
		if threshold > 0 {
			s.riseThreshold = threshold
		}
		if limit >= 0 {
			s.riseLimit = limit
		}
	}
}

// WithLeaderboardLimits sets the default and maximum list sizes.
func WithLeaderboardLimits(def, max int) Option {
	return func(s *Service) {
		if max > 0 {
			s.maxLimit = max
		}
		if def > 0 {
			s.defaultLimit = def
		}
	}
}

// WithSeedPlayers makes Start generate n players when the store is empty.
func WithSeedPlayers(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.seedPlayers = n
		}
	}
}
