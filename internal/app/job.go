package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/okian/hiscores/internal/adapters/mq/queue"
	"github.com/okian/hiscores/internal/domain/achievement"
	"github.com/okian/hiscores/internal/domain/types"
	"github.com/okian/hiscores/pkg/logger"
	"github.com/okian/hiscores/pkg/metrics"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"
)

// RunUpdateJob applies simulated XP gains to every player in paced batches,
// then evaluates achievements against a fresh context and stores new unlocks.
// Users that fail to load or save are logged and skipped. Only one job runs
// at a time.
func (s *Service) RunUpdateJob(ctx context.Context) (types.JobReport, error) {
	if !s.jobRunning.CompareAndSwap(false, true) {
		return types.JobReport{}, ErrJobRunning
	}
	defer s.jobRunning.Store(false)

	report := types.JobReport{RunID: uuid.NewString()}
	ctx, span := s.tracer.Start(ctx, "RunUpdateJob")
	defer span.End()
	span.SetAttributes(attribute.String("run_id", report.RunID))

	log := s.logger.With(logger.String("run_id", report.RunID))
	start := time.Now()
	log.Info(ctx, "update job started")

	err := s.runJob(ctx, &report, log)
	report.Duration = time.Since(start)
	s.cache.Invalidate()

	status := "success"
	if err != nil {
		status = "failed"
		failSpan(span, err)
		log.Error(ctx, "update job failed", logger.Error(err), logger.Duration("took", report.Duration))
	} else {
		log.Info(ctx, "update job finished",
			logger.Int("processed", report.Processed),
			logger.Int("failed", report.Failed),
			logger.Int("unlocked", report.Unlocked),
			logger.Int("saved", report.Saved),
			logger.Duration("took", report.Duration),
		)
	}
	metrics.RecordJobRun(status, float64(report.Duration.Milliseconds()))

	s.mu.Lock()
	last := report
	s.lastJob = &last
	s.mu.Unlock()
	return report, err
}

func (s *Service) runJob(ctx context.Context, report *types.JobReport, log logger.Logger) error {
	names, err := s.repo.Usernames(ctx)
	if err != nil {
		return fmt.Errorf("list players: %w", err)
	}

	limit := rate.Inf
	if s.batchDelay > 0 {
		limit = rate.Every(s.batchDelay)
	}
	limiter := rate.NewLimiter(limit, 1)

	for i, batch := 0, 0; i < len(names); i, batch = i+s.batchSize, batch+1 {
		if err := limiter.Wait(ctx); err != nil {
			return fmt.Errorf("batch %d: %w", batch, err)
		}
		end := min(i+s.batchSize, len(names))
		tasks := make([]queue.Task, 0, end-i)
		for _, name := range names[i:end] {
			tasks = append(tasks, queue.NewTask(report.RunID, batch, name))
		}
		res := s.pool.RunBatch(ctx, tasks)
		report.Processed += res.Processed
		report.Failed += res.Failed + res.Skipped
		metrics.RecordJobBatch()
		log.Debug(ctx, "batch done",
			logger.Int("batch", batch),
			logger.Int("processed", res.Processed),
			logger.Int("failed", res.Failed),
		)
	}

	unlocked, saved, err := s.evaluateAll(ctx, log)
	report.Unlocked = unlocked
	report.Saved = saved
	return err
}

// updatePlayer is the worker pool processor: load, gain, save.
func (s *Service) updatePlayer(ctx context.Context, t queue.Task) error {
	p, err := s.repo.Get(ctx, t.Username)
	if err != nil {
		metrics.RecordJobPlayerFailure()
		return fmt.Errorf("load %s: %w", t.Username, err)
	}
	s.gen.ApplyGains(p)
	if err := s.repo.Save(ctx, p); err != nil {
		metrics.RecordJobPlayerFailure()
		return fmt.Errorf("save %s: %w", t.Username, err)
	}
	return nil
}

// evaluateAll merges fresh unlocks and the denormalized tier into every
// player and saves the ones that changed.
func (s *Service) evaluateAll(ctx context.Context, log logger.Logger) (unlocked, saved int, err error) {
	players, skipped, err := s.repo.LoadPopulationBestEffort(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("reload population: %w", err)
	}
	if len(skipped) > 0 {
		log.Warn(ctx, "evaluating without unreadable players", logger.Int("skipped", len(skipped)))
	}

	start := time.Now()
	c := achievement.BuildContext(players)
	metrics.RecordContextBuild(float64(time.Since(start).Microseconds()) / 1000)

	sets, err := achievement.EvaluatePopulation(players, c)
	if err != nil {
		return 0, 0, err
	}

	nowMs := s.now().UnixMilli()
	for _, p := range players {
		added := achievement.MergeNewUnlocks(p, sets[p.Key()], nowMs)
		info := c.TierInfo(p)
		tierChanged := p.TierInfo == nil || *p.TierInfo != info
		if added == 0 && !tierChanged {
			continue
		}
		p.Tier = info.Name
		p.TierInfo = &info
		if err := s.repo.Save(ctx, p); err != nil {
			metrics.RecordJobPlayerFailure()
			log.Warn(ctx, "failed to save achievements, skipping user",
				logger.String("username", p.Username), logger.Error(err))
			continue
		}
		unlocked += added
		saved++
	}
	metrics.RecordAchievementUnlocks(unlocked)
	return unlocked, saved, nil
}
