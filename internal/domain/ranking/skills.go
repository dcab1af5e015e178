// Package ranking computes per-skill and overall orderings of a player
// population and classifies players into prestige tiers.
package ranking

import (
	"sort"

	"github.com/okian/hiscores/internal/domain/model"
	"github.com/okian/hiscores/internal/domain/skills"
	"github.com/okian/hiscores/internal/domain/topk"
)

// Membership band sizes.
const (
	TopBand   = 100
	EliteBand = 10
)

// SkillEntry is one ranked row for a skill.
type SkillEntry struct {
	Rank     int    `json:"rank"`
	Username string `json:"username"`
	Level    int    `json:"level"`
	XP       int64  `json:"xp"`
}

// SkillAggregate summarizes one skill across a population.
type SkillAggregate struct {
	Skill skills.Skill
	// Top holds at most TopBand entries ranked 1..n by xp desc, key asc.
	Top []SkillEntry
	// Top10 and Top100 hold lower-cased usernames.
	Top10  map[string]struct{}
	Top100 map[string]struct{}
	// Leaders holds every lower-cased username tied at the highest xp, when
	// that xp is above zero.
	Leaders  []string
	AvgLevel float64
}

type candidate struct {
	key      string
	username string
	xp       int64
}

// worseCandidate ranks lower xp below higher xp and, on equal xp, the
// lexicographically greater key below the smaller one.
func worseCandidate(a, b candidate) bool {
	if a.xp != b.xp {
		return a.xp < b.xp
	}
	return a.key > b.key
}

// BuildSkillAggregate scans the population once for skill s. Memory beyond
// the output is bounded by TopBand regardless of population size.
func BuildSkillAggregate(players []*model.Player, s skills.Skill) SkillAggregate {
	agg := SkillAggregate{
		Skill:  s,
		Top10:  make(map[string]struct{}, EliteBand),
		Top100: make(map[string]struct{}, TopBand),
	}

	q := topk.New(TopBand, worseCandidate)
	var levelSum int64
	var leaderXP int64
	counted := 0

	for _, p := range players {
		if p == nil {
			continue
		}
		counted++
		xp := p.XP(s)
		key := p.Key()
		levelSum += int64(skills.LevelFromXP(xp))

		switch {
		case xp <= 0:
		case xp > leaderXP:
			leaderXP = xp
			agg.Leaders = append(agg.Leaders[:0], key)
		case xp == leaderXP:
			agg.Leaders = append(agg.Leaders, key)
		}

		q.Offer(candidate{key: key, username: p.Username, xp: xp})
	}

	if counted == 0 {
		agg.AvgLevel = skills.MinLevel
	} else {
		agg.AvgLevel = float64(levelSum) / float64(counted)
	}

	best := q.Drain()
	agg.Top = make([]SkillEntry, len(best))
	for i, c := range best {
		agg.Top[i] = SkillEntry{
			Rank:     i + 1,
			Username: c.username,
			Level:    skills.LevelFromXP(c.xp),
			XP:       c.xp,
		}
		agg.Top100[c.key] = struct{}{}
		if i < EliteBand {
			agg.Top10[c.key] = struct{}{}
		}
	}
	return agg
}

// BuildSkillAggregates runs BuildSkillAggregate for every skill.
func BuildSkillAggregates(players []*model.Player) map[skills.Skill]SkillAggregate {
	out := make(map[skills.Skill]SkillAggregate, skills.Count)
	for _, s := range skills.All() {
		out[s] = BuildSkillAggregate(players, s)
	}
	return out
}

// SkillListing fully sorts the population for s by level desc, xp desc,
// username asc and returns up to limit rows. limit <= 0 returns everyone.
func SkillListing(players []*model.Player, s skills.Skill, limit int) []SkillEntry {
	rows := make([]SkillEntry, 0, len(players))
	keys := make([]string, 0, len(players))
	for _, p := range players {
		if p == nil {
			continue
		}
		xp := p.XP(s)
		rows = append(rows, SkillEntry{Username: p.Username, Level: skills.LevelFromXP(xp), XP: xp})
		keys = append(keys, p.Key())
	}
	idx := make([]int, len(rows))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool {
		a, b := rows[idx[i]], rows[idx[j]]
		if a.Level != b.Level {
			return a.Level > b.Level
		}
		if a.XP != b.XP {
			return a.XP > b.XP
		}
		return keys[idx[i]] < keys[idx[j]]
	})

	if limit <= 0 || limit > len(idx) {
		limit = len(idx)
	}
	out := make([]SkillEntry, limit)
	for i := 0; i < limit; i++ {
		out[i] = rows[idx[i]]
		out[i].Rank = i + 1
	}
	return out
}
