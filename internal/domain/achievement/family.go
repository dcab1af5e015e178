package achievement

import "github.com/okian/hiscores/internal/domain/ranking"

// Family is an ordered chain of keys from highest to lowest prestige.
type Family struct {
	Name  string
	Chain []Key
}

var families = []Family{
	{"tier", []Key{TierGrandmaster, TierMaster, TierDiamond, TierPlatinum, TierGold, TierSilver, TierBronze}},
	{"crown", []Key{TripleCrown, DoubleCrown, CrownedAny}},
	{"skill-band", []Key{Top10Any, Top100Any}},
	{"overall-rank", []Key{RankTop10, RankTop100, RankTop1000}},
	{"total-level", []Key{Total2277, Total2200, Total2000, Total1500}},
	{"nines", []Key{MaxedAccount, Seven99s, Five99s}},
	{"base-level", []Key{Base90, Base70, Base50}},
	{"performance", []Key{ElitePerformer, VersatilePerformer, ConsistentPerformer}},
	{"total-xp", []Key{XP1B, XP200M, XP100M, XP50M, XP10M, XP1M}},
}

// Families returns every family chain.
func Families() []Family {
	out := make([]Family, len(families))
	for i, f := range families {
		out[i] = Family{Name: f.Name, Chain: append([]Key(nil), f.Chain...)}
	}
	return out
}

// HighestInChain returns the first key of chain present in set.
func HighestInChain(chain []Key, set Set) (Key, bool) {
	for _, k := range chain {
		if set.Has(k) {
			return k, true
		}
	}
	return "", false
}

var tierKeys = map[ranking.Tier]Key{
	ranking.Grandmaster: TierGrandmaster,
	ranking.Master:      TierMaster,
	ranking.Diamond:     TierDiamond,
	ranking.Platinum:    TierPlatinum,
	ranking.Gold:        TierGold,
	ranking.Silver:      TierSilver,
	ranking.Bronze:      TierBronze,
}

// TierKey maps a tier to its achievement. Untiered has none.
func TierKey(t ranking.Tier) (Key, bool) {
	k, ok := tierKeys[t]
	return k, ok
}
