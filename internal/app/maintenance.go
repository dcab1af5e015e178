package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/okian/hiscores/internal/adapters/repository"
	"github.com/okian/hiscores/internal/domain/achievement"
	"github.com/okian/hiscores/internal/domain/history"
	"github.com/okian/hiscores/pkg/logger"
	"github.com/okian/hiscores/pkg/metrics"
)

const maxUsernameAttempts = 8

// PruneAchievements drops lower family keys from every stored player and
// returns the number of players changed and keys removed.
func (s *Service) PruneAchievements(ctx context.Context) (players, removed int, err error) {
	population, err := s.repo.LoadPopulation(ctx)
	if err != nil {
		return 0, 0, err
	}
	for _, p := range population {
		n := achievement.PruneAchievementFamilies(p)
		if n == 0 {
			continue
		}
		if err := s.repo.Save(ctx, p); err != nil {
			s.logger.Warn(ctx, "failed to save pruned player",
				logger.String("username", p.Username), logger.Error(err))
			continue
		}
		players++
		removed += n
	}
	metrics.RecordAchievementPrunes(removed)
	s.cache.Invalidate()
	s.logger.Info(ctx, "achievement families pruned",
		logger.Int("players", players), logger.Int("removed", removed))
	return players, removed, nil
}

// Seed generates n new players with unused usernames and returns how many
// were stored.
func (s *Service) Seed(ctx context.Context, n int) (int, error) {
	created := 0
	for i := 0; i < n; i++ {
		name, err := s.freeUsername(ctx)
		if err != nil {
			return created, err
		}
		if name == "" {
			s.logger.Warn(ctx, "no free username found, stopping seed", logger.Int("created", created))
			break
		}
		if err := s.repo.Save(ctx, s.gen.Player(name)); err != nil {
			return created, fmt.Errorf("seed %s: %w", name, err)
		}
		created++
	}
	if created > 0 {
		s.cache.Invalidate()
	}
	return created, nil
}

func (s *Service) freeUsername(ctx context.Context) (string, error) {
	for attempt := 0; attempt < maxUsernameAttempts; attempt++ {
		name := s.gen.Username()
		_, err := s.repo.Get(ctx, name)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return name, nil
		case err == nil, errors.Is(err, repository.ErrCorruptRecord):
		default:
			return "", err
		}
	}
	return "", nil
}

// RecordSnapshot stores the current overall ranking for later trend
// comparisons and deletes snapshots past retention.
func (s *Service) RecordSnapshot(ctx context.Context) (history.Snapshot, int, error) {
	_, c, err := s.population(ctx)
	if err != nil {
		return history.Snapshot{}, 0, err
	}
	nowMs := s.now().UnixMilli()
	snap := history.NewSnapshot(c.Overall, nowMs)
	if err := s.repo.SaveSnapshot(ctx, snap); err != nil {
		return history.Snapshot{}, 0, fmt.Errorf("save snapshot: %w", err)
	}

	snaps, err := s.repo.Snapshots(ctx)
	if err != nil {
		return snap, 0, fmt.Errorf("list snapshots: %w", err)
	}
	pruned := 0
	for _, old := range history.Expired(snaps, nowMs, s.historyRetention) {
		if err := s.repo.DeleteSnapshot(ctx, old.GeneratedAt); err != nil {
			s.logger.Warn(ctx, "failed to delete expired snapshot",
				logger.Int64("generatedAt", old.GeneratedAt), logger.Error(err))
			continue
		}
		pruned++
	}
	metrics.RecordSnapshot(pruned)
	s.logger.Info(ctx, "leaderboard snapshot recorded",
		logger.String("id", snap.ID),
		logger.Int("players", snap.TotalPlayers),
		logger.Int("pruned", pruned),
	)
	return snap, pruned, nil
}
