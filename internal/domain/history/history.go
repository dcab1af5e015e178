// Package history snapshots the overall leaderboard and derives rank deltas
// and population trends from older snapshots.
package history

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/okian/hiscores/internal/domain/ranking"
)

// KeyPrefix marks snapshot records in the player store. Usernames never
// start with "__".
const KeyPrefix = "__history:"

// BaselineAge is the minimum age of the snapshot deltas are measured against.
const BaselineAge = 24 * time.Hour

// Snapshot is the stored state of the overall leaderboard at one moment.
type Snapshot struct {
	ID            string         `json:"id"`
	GeneratedAt   int64          `json:"generatedAt"`
	TotalPlayers  int            `json:"totalPlayers"`
	AvgTotalLevel float64        `json:"avgTotalLevel"`
	AvgTotalXP    float64        `json:"avgTotalXP"`
	Ranks         map[string]int `json:"ranks"`
}

// Key returns the store key for a snapshot taken at generatedAt.
func Key(generatedAt int64) string {
	return KeyPrefix + strconv.FormatInt(generatedAt, 10)
}

// ParseKey extracts the timestamp from a snapshot key.
func ParseKey(key string) (int64, bool) {
	rest, ok := strings.CutPrefix(key, KeyPrefix)
	if !ok {
		return 0, false
	}
	ms, err := strconv.ParseInt(rest, 10, 64)
	if err != nil {
		return 0, false
	}
	return ms, true
}

// NewSnapshot captures entries at nowMs.
func NewSnapshot(entries []ranking.OverallEntry, nowMs int64) Snapshot {
	avgLevel, avgXP := averages(entries)
	s := Snapshot{
		ID:            uuid.NewString(),
		GeneratedAt:   nowMs,
		TotalPlayers:  len(entries),
		AvgTotalLevel: avgLevel,
		AvgTotalXP:    avgXP,
		Ranks:         make(map[string]int, len(entries)),
	}
	for _, e := range entries {
		s.Ranks[e.Key] = e.Rank
	}
	return s
}

func averages(entries []ranking.OverallEntry) (float64, float64) {
	if len(entries) == 0 {
		return 0, 0
	}
	var lvl, xp float64
	for _, e := range entries {
		lvl += float64(e.TotalLevel)
		xp += float64(e.TotalXP)
	}
	n := float64(len(entries))
	return lvl / n, xp / n
}

// SelectBaseline returns the newest snapshot at least minAge older than
// nowMs.
func SelectBaseline(snaps []Snapshot, nowMs int64, minAge time.Duration) (Snapshot, bool) {
	cutoff := nowMs - minAge.Milliseconds()
	var best Snapshot
	found := false
	for _, s := range snaps {
		if s.GeneratedAt > cutoff {
			continue
		}
		if !found || s.GeneratedAt > best.GeneratedAt {
			best = s
			found = true
		}
	}
	return best, found
}

// Expired returns the snapshots older than retention.
func Expired(snaps []Snapshot, nowMs int64, retention time.Duration) []Snapshot {
	cutoff := nowMs - retention.Milliseconds()
	var out []Snapshot
	for _, s := range snaps {
		if s.GeneratedAt < cutoff {
			out = append(out, s)
		}
	}
	return out
}

// Riser is a player whose overall rank improved against the baseline.
type Riser struct {
	Username     string `json:"username"`
	PreviousRank int    `json:"previousRank"`
	CurrentRank  int    `json:"currentRank"`
	Improvement  int    `json:"improvement"`
}

// OnTheRise lists players present in both the baseline and current ranking
// whose rank improved by at least threshold, largest improvement first.
func OnTheRise(current []ranking.OverallEntry, baseline Snapshot, threshold, limit int) []Riser {
	out := []Riser{}
	if limit <= 0 || len(baseline.Ranks) == 0 {
		return out
	}
	for _, e := range current {
		prev, ok := baseline.Ranks[e.Key]
		if !ok {
			continue
		}
		if d := prev - e.Rank; d >= threshold && d > 0 {
			out = append(out, Riser{Username: e.Username, PreviousRank: prev, CurrentRank: e.Rank, Improvement: d})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Improvement != out[j].Improvement {
			return out[i].Improvement > out[j].Improvement
		}
		return out[i].Username < out[j].Username
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// TrendSummary describes the current population and its change since the
// baseline. Deltas are zero without a baseline.
type TrendSummary struct {
	TotalPlayers       int     `json:"totalPlayers"`
	AvgTotalLevel      float64 `json:"avgTotalLevel"`
	AvgTotalXP         float64 `json:"avgTotalXP"`
	PlayersDelta       int     `json:"playersDelta"`
	AvgTotalLevelDelta float64 `json:"avgTotalLevelDelta"`
	AvgTotalXPDelta    float64 `json:"avgTotalXPDelta"`
	BaselineAt         int64   `json:"baselineAt,omitempty"`
}

// Summarize builds the trend summary. baseline may be nil.
func Summarize(current []ranking.OverallEntry, baseline *Snapshot) TrendSummary {
	avgLevel, avgXP := averages(current)
	t := TrendSummary{
		TotalPlayers:  len(current),
		AvgTotalLevel: avgLevel,
		AvgTotalXP:    avgXP,
	}
	if baseline == nil {
		return t
	}
	t.PlayersDelta = t.TotalPlayers - baseline.TotalPlayers
	t.AvgTotalLevelDelta = t.AvgTotalLevel - baseline.AvgTotalLevel
	t.AvgTotalXPDelta = t.AvgTotalXP - baseline.AvgTotalXP
	t.BaselineAt = baseline.GeneratedAt
	return t
}
