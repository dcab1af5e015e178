// Package service orchestrates the player store, the ranking and achievement
// engine, the context cache, the update job and leaderboard history.
package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/hiscores/internal/adapters/mq/worker"
	"github.com/okian/hiscores/internal/adapters/repository"
	"github.com/okian/hiscores/internal/domain/achievement"
	"github.com/okian/hiscores/internal/domain/contextcache"
	"github.com/okian/hiscores/internal/domain/generator"
	"github.com/okian/hiscores/internal/domain/model"
	"github.com/okian/hiscores/internal/domain/types"
	"github.com/okian/hiscores/pkg/logger"
	"github.com/okian/hiscores/pkg/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/okian/hiscores/internal/app"

// Service implements the API dependencies for the hiscores site.
type Service struct {
	mu sync.RWMutex

	// Core components
	repo   *repository.PlayerRepository
	cache  *contextcache.Cache
	gen    *generator.Generator
	pool   *worker.Pool
	tracer trace.Tracer
	now    func() time.Time

	// Configuration
	batchSize        int
	batchDelay       time.Duration
	workers          int
	cacheTTL         time.Duration
	historyRetention time.Duration
	riseThreshold    int
	riseLimit        int
	defaultLimit     int
	maxLimit         int
	seedPlayers      int

	// State
	started        bool
	jobRunning     atomic.Bool
	lastJob        *types.JobReport
	populationSize atomic.Int64

	logger logger.Logger
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		now:              time.Now,
		batchSize:        50,
		batchDelay:       250 * time.Millisecond,
		workers:          8,
		cacheTTL:         60 * time.Second,
		historyRetention: 72 * time.Hour,
		riseThreshold:    100,
		riseLimit:        10,
		defaultLimit:     50,
		maxLimit:         500,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.defaultLimit > s.maxLimit {
		s.defaultLimit = s.maxLimit
	}

	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	if s.repo == nil {
		s.repo = repository.NewPlayerRepository(repository.NewMemoryStore(),
			repository.WithLogger(s.logger), repository.WithBackendName("memory"))
	}
	if s.gen == nil {
		s.gen = generator.New(0, generator.WithClock(s.now))
	}
	s.cache = contextcache.New(contextcache.WithTTL(s.cacheTTL), contextcache.WithClock(s.now))
	s.pool = worker.NewPool(s.workers, worker.ProcessorFunc(s.updatePlayer),
		worker.WithPoolLogger(s.logger.Named("worker-pool")))
	s.tracer = otel.Tracer(tracerName)
	return s
}

// Start seeds an empty store when configured to and marks the service ready.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	s.logger.Info(ctx, "starting hiscores service...")

	names, err := s.repo.Usernames(ctx)
	if err != nil {
		return err
	}
	if len(names) == 0 && s.seedPlayers > 0 {
		created, err := s.Seed(ctx, s.seedPlayers)
		if err != nil {
			return err
		}
		s.logger.Info(ctx, "seeded empty store", logger.Int("players", created))
		names = append(names, make([]string, created)...)
	}
	s.observePopulation(len(names))

	s.started = true
	s.logger.Info(ctx, "hiscores service started",
		logger.Int("players", len(names)),
		logger.Int("workers", s.workers),
		logger.Int("batchSize", s.batchSize),
	)
	return nil
}

// Stop releases the store.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx := context.Background()
	s.logger.Info(ctx, "stopping hiscores service...")
	if err := s.repo.Close(); err != nil {
		s.logger.Error(ctx, "error closing store", logger.Error(err))
	}
	s.started = false
	s.logger.Info(ctx, "hiscores service stopped")
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, cached := s.cache.Peek()
	stats := map[string]interface{}{
		"started":          s.started,
		"workerCount":      s.workers,
		"batchSize":        s.batchSize,
		"batchDelayMs":     s.batchDelay.Milliseconds(),
		"contextCacheTTL":  s.cacheTTL.String(),
		"contextCached":    cached,
		"jobRunning":       s.jobRunning.Load(),
		"totalPlayers":     s.populationSize.Load(),
		"catalogSize":      len(achievement.Catalog()),
		"historyRetention": s.historyRetention.String(),
	}
	if s.lastJob != nil {
		stats["lastJob"] = *s.lastJob
	}
	return stats
}

// Catalog returns every achievement in declaration order.
func (s *Service) Catalog() []achievement.Entry {
	return achievement.Catalog()
}

// ClampLimit maps a requested list size into 1..max, using the default for
// non-positive values.
func (s *Service) ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return s.defaultLimit
	case limit > s.maxLimit:
		return s.maxLimit
	default:
		return limit
	}
}

// MaxLimit returns the largest list size served.
func (s *Service) MaxLimit() int { return s.maxLimit }

// DefaultLimit returns the list size used when none is given.
func (s *Service) DefaultLimit() int { return s.defaultLimit }

func (s *Service) observePopulation(n int) {
	s.populationSize.Store(int64(n))
	metrics.UpdatePopulationSize(n)
}

// population loads every player and the matching achievement context.
func (s *Service) population(ctx context.Context) ([]*model.Player, *achievement.Context, error) {
	ctx, span := s.tracer.Start(ctx, "BuildContext")
	defer span.End()

	players, err := s.repo.LoadPopulation(ctx)
	if err != nil {
		failSpan(span, err)
		metrics.RecordErrorByComponent("service", "population_load")
		return nil, nil, err
	}
	s.observePopulation(len(players))

	start := time.Now()
	c, hit := s.cache.GetOrBuild(players)
	metrics.RecordContextCache(hit)
	if !hit {
		took := time.Since(start)
		metrics.RecordContextBuild(float64(took.Microseconds()) / 1000)
		s.logger.Debug(ctx, "achievement context rebuilt",
			logger.Int("players", len(players)),
			logger.Duration("took", took),
		)
	}
	return players, c, nil
}

func failSpan(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
