package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/okian/hiscores/internal/adapters/repository"
	"github.com/okian/hiscores/internal/domain/achievement"
	"github.com/okian/hiscores/internal/domain/history"
	"github.com/okian/hiscores/internal/domain/model"
	"github.com/okian/hiscores/internal/domain/ranking"
	"github.com/okian/hiscores/internal/domain/skills"
	"github.com/okian/hiscores/internal/domain/types"
	"github.com/okian/hiscores/pkg/logger"
	"go.opentelemetry.io/otel/attribute"
)

// Leaderboard returns the top limit players by overall rank with trends
// measured against the newest snapshot at least a day old.
func (s *Service) Leaderboard(ctx context.Context, limit int) (types.Leaderboard, error) {
	ctx, span := s.tracer.Start(ctx, "Leaderboard")
	defer span.End()
	limit = s.ClampLimit(limit)
	span.SetAttributes(attribute.Int("limit", limit))

	_, c, err := s.population(ctx)
	if err != nil {
		failSpan(span, err)
		return types.Leaderboard{}, err
	}

	rows := c.Overall
	if len(rows) > limit {
		rows = rows[:limit]
	}
	out := types.Leaderboard{
		Players:      make([]types.LeaderboardEntry, 0, len(rows)),
		TotalPlayers: c.TotalPlayers,
		GeneratedAt:  s.now().UnixMilli(),
		OnTheRise:    []history.Riser{},
	}
	for _, e := range rows {
		info := c.TierInfo(e.Player)
		out.Players = append(out.Players, types.LeaderboardEntry{
			Rank:       e.Rank,
			Username:   e.Username,
			TotalLevel: e.TotalLevel,
			TotalXP:    e.TotalXP,
			Tier:       info.Name,
			TierInfo:   info,
			Crowns:     c.Crowns(e.Key),
		})
	}

	baseline, ok := s.baseline(ctx)
	if ok {
		out.OnTheRise = history.OnTheRise(c.Overall, baseline, s.riseThreshold, s.riseLimit)
		out.TrendSummary = history.Summarize(c.Overall, &baseline)
	} else {
		out.TrendSummary = history.Summarize(c.Overall, nil)
	}
	return out, nil
}

// baseline finds the comparison snapshot. History problems never fail the
// leaderboard.
func (s *Service) baseline(ctx context.Context) (history.Snapshot, bool) {
	snaps, err := s.repo.Snapshots(ctx)
	if err != nil {
		s.logger.Warn(ctx, "history unavailable, serving leaderboard without trends", logger.Error(err))
		return history.Snapshot{}, false
	}
	return history.SelectBaseline(snaps, s.now().UnixMilli(), history.BaselineAge)
}

// SkillRankings lists the top limit players of every skill by level, then xp.
func (s *Service) SkillRankings(ctx context.Context, limit int) (types.SkillRankings, error) {
	ctx, span := s.tracer.Start(ctx, "SkillRankings")
	defer span.End()
	limit = s.ClampLimit(limit)

	players, err := s.repo.LoadPopulation(ctx)
	if err != nil {
		failSpan(span, err)
		return types.SkillRankings{}, err
	}
	out := types.SkillRankings{
		Skills:      make(map[skills.Skill][]ranking.SkillEntry, skills.Count),
		GeneratedAt: s.now().UnixMilli(),
	}
	for _, sk := range skills.All() {
		out.Skills[sk] = ranking.SkillListing(players, sk, limit)
	}
	return out, nil
}

// SkillRanking lists one skill. Unknown skill names return ErrUnknownSkill.
func (s *Service) SkillRanking(ctx context.Context, name string, limit int) (types.SkillRanking, error) {
	sk, ok := skills.Parse(name)
	if !ok {
		return types.SkillRanking{}, fmt.Errorf("%w: %q", ErrUnknownSkill, name)
	}
	limit = s.ClampLimit(limit)

	players, c, err := s.population(ctx)
	if err != nil {
		return types.SkillRanking{}, err
	}
	avg := float64(skills.MinLevel)
	if v, ok := c.SkillAvgLevel[sk]; ok {
		avg = v
	}
	return types.SkillRanking{
		Skill:       sk,
		Players:     ranking.SkillListing(players, sk, limit),
		AvgLevel:    avg,
		GeneratedAt: s.now().UnixMilli(),
	}, nil
}

// AchievementStats counts how many players ever unlocked each achievement.
func (s *Service) AchievementStats(ctx context.Context) (types.AchievementStats, error) {
	ctx, span := s.tracer.Start(ctx, "AchievementStats")
	defer span.End()

	players, c, err := s.population(ctx)
	if err != nil {
		failSpan(span, err)
		return types.AchievementStats{}, err
	}
	return types.AchievementStats{
		Counts:       achievement.Prevalence(players, c),
		TotalPlayers: len(players),
	}, nil
}

// User returns one profile with its live rank, tier and the family-projected
// achievements. Unknown users return ErrUserNotFound.
func (s *Service) User(ctx context.Context, username string) (types.UserProfile, error) {
	p, err := s.repo.Get(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) || errors.Is(err, repository.ErrInvalidKey) {
			return types.UserProfile{}, fmt.Errorf("%w: %s: %w", ErrUserNotFound, username, err)
		}
		return types.UserProfile{}, err
	}

	_, c, err := s.population(ctx)
	if err != nil {
		return types.UserProfile{}, err
	}
	info := c.TierInfo(p)
	p.Tier = info.Name
	p.TierInfo = &info

	return types.UserProfile{
		Player:       p,
		Rank:         c.Rank(p.Key()),
		TotalPlayers: c.TotalPlayers,
		CombatLevel:  combatLevel(p),
		Achievements: achievement.ProjectHighestAchievementFamilies(p.Achievements),
	}, nil
}

func combatLevel(p *model.Player) int {
	return skills.CombatLevel(
		p.Level(skills.Attack), p.Level(skills.Strength), p.Level(skills.Defence),
		p.Level(skills.Hitpoints), p.Level(skills.Ranged), p.Level(skills.Magic),
		p.Level(skills.Prayer),
	)
}
