package ranking

import "github.com/okian/hiscores/internal/domain/model"

// Tier is a prestige band. Lower values are more prestigious.
type Tier int

// Tiers in prestige order.
const (
	Grandmaster Tier = iota
	Master
	Diamond
	Platinum
	Gold
	Silver
	Bronze
	Untiered
)

// smallPopulation is the largest population classified by absolute rank.
const smallPopulation = 500

// dominanceCrowns is the number of skill crowns that forces Grandmaster.
const dominanceCrowns = 3

// Fallback labels for players without a population tier.
const (
	FallbackExpert = "Expert"
	FallbackAdept  = "Adept"
	FallbackNovice = "Novice"
)

// Tier info sources.
const (
	SourceRank     = "rank"
	SourceFallback = "fallback"
)

var tierNames = [...]string{"Grandmaster", "Master", "Diamond", "Platinum", "Gold", "Silver", "Bronze", "Untiered"}

func (t Tier) String() string {
	if t < Grandmaster || t > Untiered {
		return "Untiered"
	}
	return tierNames[t]
}

// ClassifyTier maps an overall rank to a tier. Rank 1 and players holding at
// least three skill crowns are Grandmaster regardless of population. Small
// populations use absolute rank cutoffs, gated by the top half of the
// population; larger ones use rank percentiles.
func ClassifyTier(rank, totalPlayers, top1SkillCount int) Tier {
	if rank == 1 || top1SkillCount >= dominanceCrowns {
		return Grandmaster
	}
	if rank <= 0 || totalPlayers <= 0 {
		return Untiered
	}

	if totalPlayers <= smallPopulation {
		if rank > ceilPercent(totalPlayers, 50) {
			return Untiered
		}
		switch {
		case rank <= 2:
			return Master
		case rank <= 5:
			return Diamond
		case rank <= 15:
			return Platinum
		case rank <= ceilPercent(totalPlayers, 5):
			return Gold
		case rank <= ceilPercent(totalPlayers, 20):
			return Silver
		default:
			return Bronze
		}
	}

	// rank/total <= p, kept in integers.
	switch {
	case rank*10_000 <= totalPlayers:
		return Master
	case rank*1_000 <= totalPlayers:
		return Diamond
	case rank*100 <= totalPlayers:
		return Platinum
	case rank*20 <= totalPlayers:
		return Gold
	case rank*5 <= totalPlayers:
		return Silver
	case rank*2 <= totalPlayers:
		return Bronze
	default:
		return Untiered
	}
}

// FallbackTier estimates a label from the sum of skill levels alone.
func FallbackTier(totalLevel int) string {
	switch {
	case totalLevel >= 1700:
		return FallbackExpert
	case totalLevel >= 900:
		return FallbackAdept
	default:
		return FallbackNovice
	}
}

// Info builds the cached tier info for a player. Untiered players fall back
// to the total-level estimate; fallback ordinals sort after Bronze.
func Info(rank, totalPlayers, top1SkillCount, totalLevel int) model.TierInfo {
	t := ClassifyTier(rank, totalPlayers, top1SkillCount)
	if t != Untiered {
		return model.TierInfo{Name: t.String(), Ordinal: int(t), Source: SourceRank}
	}
	name := FallbackTier(totalLevel)
	ord := int(Untiered)
	switch name {
	case FallbackAdept:
		ord++
	case FallbackNovice:
		ord += 2
	}
	return model.TierInfo{Name: name, Ordinal: ord, Source: SourceFallback}
}

func ceilPercent(total, pct int) int {
	return (total*pct + 99) / 100
}
