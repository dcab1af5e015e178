package achievement

import (
	"strconv"

	"github.com/cespare/xxhash/v2"
	"github.com/okian/hiscores/internal/domain/model"
	"github.com/okian/hiscores/internal/domain/ranking"
	"github.com/okian/hiscores/internal/domain/skills"
)

// Signature cheaply identifies a population snapshot. Any added, removed or
// updated player changes at least one field.
type Signature struct {
	Count        int    `json:"count"`
	LatestUpdate int64  `json:"latestUpdate"`
	Checksum     uint64 `json:"checksum"`
}

// PopulationSignature computes the signature of players. The checksum is a
// sum of per-player hashes so it does not depend on iteration order.
func PopulationSignature(players []*model.Player) Signature {
	var sig Signature
	buf := make([]byte, 0, 64)
	for _, p := range players {
		if p == nil {
			continue
		}
		sig.Count++
		if p.UpdatedAt > sig.LatestUpdate {
			sig.LatestUpdate = p.UpdatedAt
		}
		buf = buf[:0]
		buf = append(buf, p.Key()...)
		buf = append(buf, '|')
		buf = strconv.AppendInt(buf, p.UpdatedAt, 10)
		buf = append(buf, '|')
		buf = strconv.AppendInt(buf, p.LiveTotalXP(), 10)
		sig.Checksum += xxhash.Sum64(buf)
	}
	return sig
}

// Context holds the aggregate statistics evaluation needs. It is built from
// one population snapshot and never mutated afterwards.
type Context struct {
	RankByUser            map[string]int
	Top1SkillsByUserCount map[string]int
	Top10BySkill          map[skills.Skill]map[string]struct{}
	Top100BySkill         map[skills.Skill]map[string]struct{}
	SkillAvgLevel         map[skills.Skill]float64
	TotalPlayers          int
	Signature             Signature

	// Overall and SkillTop are kept for read paths that render rankings
	// from the same snapshot.
	Overall  []ranking.OverallEntry
	SkillTop map[skills.Skill][]ranking.SkillEntry
}

// BuildContext aggregates players into a Context.
func BuildContext(players []*model.Player) *Context {
	overall := ranking.RankOverall(players)
	ctx := &Context{
		RankByUser:            ranking.RankByKey(overall),
		Top1SkillsByUserCount: make(map[string]int),
		Top10BySkill:          make(map[skills.Skill]map[string]struct{}, skills.Count),
		Top100BySkill:         make(map[skills.Skill]map[string]struct{}, skills.Count),
		SkillAvgLevel:         make(map[skills.Skill]float64, skills.Count),
		TotalPlayers:          len(overall),
		Signature:             PopulationSignature(players),
		Overall:               overall,
		SkillTop:              make(map[skills.Skill][]ranking.SkillEntry, skills.Count),
	}
	for s, agg := range ranking.BuildSkillAggregates(players) {
		ctx.Top10BySkill[s] = agg.Top10
		ctx.Top100BySkill[s] = agg.Top100
		ctx.SkillAvgLevel[s] = agg.AvgLevel
		ctx.SkillTop[s] = agg.Top
		for _, u := range agg.Leaders {
			ctx.Top1SkillsByUserCount[u]++
		}
	}
	return ctx
}

// Rank returns the overall rank of a lower-cased username, or 0.
func (c *Context) Rank(key string) int {
	if c == nil {
		return 0
	}
	return c.RankByUser[key]
}

// Crowns returns how many skills key leads.
func (c *Context) Crowns(key string) int {
	if c == nil {
		return 0
	}
	return c.Top1SkillsByUserCount[key]
}

// TierInfo classifies p within the context population.
func (c *Context) TierInfo(p *model.Player) model.TierInfo {
	key := p.Key()
	total := 0
	if c != nil {
		total = c.TotalPlayers
	}
	return ranking.Info(c.Rank(key), total, c.Crowns(key), p.LiveTotalLevel())
}

// Matches reports whether the context was built from players.
func (c *Context) Matches(players []*model.Player) bool {
	return c != nil && c.Signature == PopulationSignature(players)
}
