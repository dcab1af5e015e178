// Package types contains the JSON response shapes shared by the service and
// the HTTP layer.
package types

import (
	"time"

	"github.com/okian/hiscores/internal/domain/achievement"
	"github.com/okian/hiscores/internal/domain/history"
	"github.com/okian/hiscores/internal/domain/model"
	"github.com/okian/hiscores/internal/domain/ranking"
	"github.com/okian/hiscores/internal/domain/skills"
)

// LeaderboardEntry is one row of the overall leaderboard.
type LeaderboardEntry struct {
	Rank       int            `json:"rank"`
	Username   string         `json:"username"`
	TotalLevel int            `json:"totalLevel"`
	TotalXP    int64          `json:"totalXP"`
	Tier       string         `json:"tier"`
	TierInfo   model.TierInfo `json:"tierInfo"`
	Crowns     int            `json:"crowns,omitempty"`
}

// Leaderboard is the overall leaderboard response.
type Leaderboard struct {
	Players      []LeaderboardEntry   `json:"players"`
	TotalPlayers int                  `json:"totalPlayers"`
	GeneratedAt  int64                `json:"generatedAt"`
	OnTheRise    []history.Riser      `json:"onTheRise"`
	TrendSummary history.TrendSummary `json:"trendSummary"`
}

// SkillRankings holds the listing of every skill.
type SkillRankings struct {
	Skills      map[skills.Skill][]ranking.SkillEntry `json:"skills"`
	GeneratedAt int64                                 `json:"generatedAt"`
}

// SkillRanking holds the listing of one skill.
type SkillRanking struct {
	Skill       skills.Skill         `json:"skill"`
	Players     []ranking.SkillEntry `json:"players"`
	AvgLevel    float64              `json:"avgLevel"`
	GeneratedAt int64                `json:"generatedAt"`
}

// AchievementStats holds prevalence counts.
type AchievementStats struct {
	Counts       map[achievement.Key]int `json:"counts"`
	TotalPlayers int                     `json:"totalPlayers"`
}

// UserProfile is a player with derived ranking data. Achievements are the
// family-projected view of the persisted unlocks.
type UserProfile struct {
	*model.Player
	Rank         int              `json:"rank"`
	TotalPlayers int              `json:"totalPlayers"`
	CombatLevel  int              `json:"combatLevel"`
	Achievements map[string]int64 `json:"achievements"`
}

// JobReport summarizes one run of the update job.
type JobReport struct {
	RunID     string        `json:"runId"`
	Processed int           `json:"processed"`
	Failed    int           `json:"failed"`
	Unlocked  int           `json:"unlocked"`
	Saved     int           `json:"saved"`
	Duration  time.Duration `json:"duration"`
}
