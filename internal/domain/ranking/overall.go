package ranking

import (
	"sort"

	"github.com/okian/hiscores/internal/domain/model"
)

// OverallEntry is one row of the overall leaderboard.
type OverallEntry struct {
	Rank       int
	Username   string
	Key        string
	TotalLevel int
	TotalXP    int64
	Player     *model.Player
}

// RankOverall orders the population by total level desc, total xp desc,
// username asc and assigns ranks 1..n. Totals are recomputed live so a stale
// cached total never affects ordering.
func RankOverall(players []*model.Player) []OverallEntry {
	out := make([]OverallEntry, 0, len(players))
	for _, p := range players {
		if p == nil {
			continue
		}
		out = append(out, OverallEntry{
			Username:   p.Username,
			Key:        p.Key(),
			TotalLevel: p.LiveTotalLevel(),
			TotalXP:    p.LiveTotalXP(),
			Player:     p,
		})
	}
	sort.Slice(out, func(i, j int) bool { return overallBefore(out[i], out[j]) })
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}

func overallBefore(a, b OverallEntry) bool {
	if a.TotalLevel != b.TotalLevel {
		return a.TotalLevel > b.TotalLevel
	}
	if a.TotalXP != b.TotalXP {
		return a.TotalXP > b.TotalXP
	}
	if a.Key != b.Key {
		return a.Key < b.Key
	}
	return a.Username < b.Username
}

// RankByKey maps lower-cased usernames to their overall rank.
func RankByKey(entries []OverallEntry) map[string]int {
	m := make(map[string]int, len(entries))
	for _, e := range entries {
		m[e.Key] = e.Rank
	}
	return m
}
