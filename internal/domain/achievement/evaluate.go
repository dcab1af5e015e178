package achievement

import (
	"github.com/okian/hiscores/internal/domain/model"
	"github.com/okian/hiscores/internal/domain/ranking"
	"github.com/okian/hiscores/internal/domain/skills"
)

var (
	gatheringSkills = []skills.Skill{skills.Woodcutting, skills.Fishing, skills.Mining}
	artisanSkills   = []skills.Skill{skills.Smithing, skills.Crafting, skills.Fletching}
	supportSkills   = []skills.Skill{skills.Agility, skills.Thieving, skills.Slayer}
)

type profile struct {
	levels      map[skills.Skill]int
	totalLevel  int
	totalXP     int64
	count99     int
	minLevel    int
	avgCombat   float64
	avgNonComb  float64
	combatLevel int
}

func profileOf(p *model.Player) profile {
	pr := profile{levels: make(map[skills.Skill]int, skills.Count), minLevel: skills.MaxLevel}
	var combatSum, otherSum, combatN, otherN int
	for _, s := range skills.All() {
		lvl := p.Level(s)
		pr.levels[s] = lvl
		pr.totalLevel += lvl
		pr.totalXP += p.XP(s)
		if lvl >= skills.MaxLevel {
			pr.count99++
		}
		if lvl < pr.minLevel {
			pr.minLevel = lvl
		}
		if skills.IsCombat(s) {
			combatSum += lvl
			combatN++
		} else {
			otherSum += lvl
			otherN++
		}
	}
	pr.avgCombat = float64(combatSum) / float64(combatN)
	pr.avgNonComb = float64(otherSum) / float64(otherN)
	pr.combatLevel = skills.CombatLevel(
		pr.levels[skills.Attack], pr.levels[skills.Strength], pr.levels[skills.Defence],
		pr.levels[skills.Hitpoints], pr.levels[skills.Ranged], pr.levels[skills.Magic],
		pr.levels[skills.Prayer],
	)
	return pr
}

func (pr profile) allAtLeast(list []skills.Skill, level int) bool {
	for _, s := range list {
		if pr.levels[s] < level {
			return false
		}
	}
	return true
}

// Evaluate returns every achievement currently true for p. Family chains
// yield at most their highest key; independent predicates are all checked.
// A nil context skips the population-derived predicates.
func Evaluate(p *model.Player, c *Context) Set {
	out := make(Set)
	if p == nil {
		return out
	}
	pr := profileOf(p)
	key := p.Key()

	if c != nil && c.TotalPlayers > 0 {
		rank := c.Rank(key)
		crowns := c.Crowns(key)

		if rank > 0 || crowns > 0 {
			if k, ok := TierKey(ranking.ClassifyTier(rank, c.TotalPlayers, crowns)); ok {
				out.Add(k)
			}
		}

		if crowns >= 3 {
			out.Add(TripleCrown)
		} else if crowns == 2 {
			out.Add(DoubleCrown)
		} else if crowns == 1 {
			out.Add(CrownedAny)
		}

		if inAnyBand(c.Top10BySkill, key) {
			out.Add(Top10Any)
		} else if inAnyBand(c.Top100BySkill, key) {
			out.Add(Top100Any)
		}

		if rank > 0 {
			if rank <= 10 {
				out.Add(RankTop10)
			} else if rank <= 100 {
				out.Add(RankTop100)
			} else if rank <= 1000 {
				out.Add(RankTop1000)
			}
		}

		if len(c.SkillAvgLevel) > 0 {
			above := 0
			for _, s := range skills.All() {
				avg, ok := c.SkillAvgLevel[s]
				if ok && float64(pr.levels[s]) > avg {
					above++
				}
			}
			ratio := float64(above) / float64(skills.Count)
			if ratio >= 0.90 {
				out.Add(ElitePerformer)
			} else if ratio >= 0.75 {
				out.Add(VersatilePerformer)
			} else if ratio >= 0.50 {
				out.Add(ConsistentPerformer)
			}
		}
	}

	if pr.totalLevel >= 2277 {
		out.Add(Total2277)
	} else if pr.totalLevel >= 2200 {
		out.Add(Total2200)
	} else if pr.totalLevel >= 2000 {
		out.Add(Total2000)
	} else if pr.totalLevel >= 1500 {
		out.Add(Total1500)
	}

	if pr.count99 == skills.Count {
		out.Add(MaxedAccount)
	} else if pr.count99 >= 7 {
		out.Add(Seven99s)
	} else if pr.count99 >= 5 {
		out.Add(Five99s)
	}

	if pr.minLevel >= 90 {
		out.Add(Base90)
	} else if pr.minLevel >= 70 {
		out.Add(Base70)
	} else if pr.minLevel >= 50 {
		out.Add(Base50)
	}

	switch {
	case pr.totalXP >= 1_000_000_000:
		out.Add(XP1B)
	case pr.totalXP >= 200_000_000:
		out.Add(XP200M)
	case pr.totalXP >= 100_000_000:
		out.Add(XP100M)
	case pr.totalXP >= 50_000_000:
		out.Add(XP50M)
	case pr.totalXP >= 10_000_000:
		out.Add(XP10M)
	case pr.totalXP >= 1_000_000:
		out.Add(XP1M)
	}

	if pr.allAtLeast(skills.Combat(), skills.MaxLevel) {
		out.Add(CombatMaxed)
	}
	if pr.count99 >= 1 {
		out.Add(First99)
	}
	if pr.count99 >= 1 && pr.totalLevel <= 1000 {
		out.Add(Specialist)
	}
	if pr.allAtLeast(gatheringSkills, 90) {
		out.Add(GatheringMaster)
	}
	if pr.allAtLeast(artisanSkills, 90) {
		out.Add(ArtisanMaster)
	}
	if pr.allAtLeast(supportSkills, 90) {
		out.Add(SupportMaster)
	}

	// Skiller and combat-pure thresholds do not overlap in practice but are
	// checked independently.
	if pr.avgNonComb >= 70 && pr.avgCombat <= 50 {
		out.Add(Skiller)
	}
	if pr.avgCombat >= 80 && pr.avgNonComb <= 30 {
		out.Add(CombatPure)
	}
	diff := pr.avgCombat - pr.avgNonComb
	if diff < 0 {
		diff = -diff
	}
	if diff <= 5 && pr.avgCombat >= 50 && pr.avgNonComb >= 50 {
		out.Add(Balanced)
	}

	// Combat milestones coexist; they are not a family.
	if pr.combatLevel >= 100 {
		out.Add(Combat100)
	}
	if pr.combatLevel >= 110 {
		out.Add(Combat110)
	}
	if pr.combatLevel >= 120 {
		out.Add(Combat120)
	}
	if pr.combatLevel >= 126 {
		out.Add(Combat126)
	}

	for _, s := range skills.All() {
		if p.XP(s) >= skills.MaxXP {
			out.Add(SkillMaxXP(s))
		}
	}
	return out
}

func inAnyBand(bands map[skills.Skill]map[string]struct{}, key string) bool {
	for _, members := range bands {
		if _, ok := members[key]; ok {
			return true
		}
	}
	return false
}

// EvaluatePopulation evaluates every player against c, keyed by lower-cased
// username. It refuses a context built from a different population.
func EvaluatePopulation(players []*model.Player, c *Context) (map[string]Set, error) {
	if !c.Matches(players) {
		return nil, ErrInconsistentContext
	}
	out := make(map[string]Set, len(players))
	for _, p := range players {
		if p == nil {
			continue
		}
		out[p.Key()] = Evaluate(p, c)
	}
	return out, nil
}
