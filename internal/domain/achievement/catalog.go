// Package achievement evaluates named achievements for players against an
// aggregate population context and maintains their persisted unlock times.
package achievement

import (
	"sort"

	"github.com/okian/hiscores/internal/domain/skills"
)

// Key identifies one achievement.
type Key string

// Tier family.
const (
	TierGrandmaster Key = "tier-grandmaster"
	TierMaster      Key = "tier-master"
	TierDiamond     Key = "tier-diamond"
	TierPlatinum    Key = "tier-platinum"
	TierGold        Key = "tier-gold"
	TierSilver      Key = "tier-silver"
	TierBronze      Key = "tier-bronze"
)

// Crown family.
const (
	TripleCrown Key = "triple-crown"
	DoubleCrown Key = "double-crown"
	CrownedAny  Key = "crowned-any"
)

// Skill band family.
const (
	Top10Any  Key = "top-10-any"
	Top100Any Key = "top-100-any"
)

// Overall rank family.
const (
	RankTop10   Key = "rank-top-10"
	RankTop100  Key = "rank-top-100"
	RankTop1000 Key = "rank-top-1000"
)

// Total level family.
const (
	Total2277 Key = "total-2277"
	Total2200 Key = "total-2200"
	Total2000 Key = "total-2000"
	Total1500 Key = "total-1500"
)

// Nines family.
const (
	MaxedAccount Key = "maxed-account"
	Seven99s     Key = "seven-99s"
	Five99s      Key = "five-99s"
)

// Base level family.
const (
	Base90 Key = "base-90"
	Base70 Key = "base-70"
	Base50 Key = "base-50"
)

// Performance family.
const (
	ElitePerformer      Key = "elite-performer"
	VersatilePerformer  Key = "versatile-performer"
	ConsistentPerformer Key = "consistent-performer"
)

// Total xp family.
const (
	XP1B   Key = "xp-1b"
	XP200M Key = "xp-200m"
	XP100M Key = "xp-100m"
	XP50M  Key = "xp-50m"
	XP10M  Key = "xp-10m"
	XP1M   Key = "xp-1m"
)

// Standalone achievements.
const (
	CombatMaxed     Key = "combat-maxed"
	First99         Key = "first-99"
	Specialist      Key = "specialist"
	GatheringMaster Key = "gathering-master"
	ArtisanMaster   Key = "artisan-master"
	SupportMaster   Key = "support-master"
	Skiller         Key = "skiller"
	CombatPure      Key = "combat-pure"
	Balanced        Key = "balanced"
	Combat100       Key = "combat-100"
	Combat110       Key = "combat-110"
	Combat120       Key = "combat-120"
	Combat126       Key = "combat-126"
)

const skillMaxXPPrefix = "skill-200m-"

// SkillMaxXP returns the key awarded for reaching MaxXP in s.
func SkillMaxXP(s skills.Skill) Key {
	return Key(skillMaxXPPrefix + string(s))
}

// Category groups achievements for display.
type Category string

// Categories.
const (
	CategoryTier        Category = "tier"
	CategoryRank        Category = "rank"
	CategoryMastery     Category = "mastery"
	CategoryPlaystyle   Category = "playstyle"
	CategoryPerformance Category = "performance"
	CategoryMilestone   Category = "milestone"
	CategoryCombat      Category = "combat"
)

// Rarity is a display hint, independent of measured prevalence.
type Rarity string

// Rarities from most to least common.
const (
	RarityCommon    Rarity = "common"
	RarityUncommon  Rarity = "uncommon"
	RarityRare      Rarity = "rare"
	RarityEpic      Rarity = "epic"
	RarityLegendary Rarity = "legendary"
	RarityMythic    Rarity = "mythic"
)

// Entry describes one catalog achievement.
type Entry struct {
	Key         Key      `json:"key"`
	Label       string   `json:"label"`
	Description string   `json:"description"`
	Category    Category `json:"category"`
	Rarity      Rarity   `json:"rarity"`
}

var catalog = func() []Entry {
	entries := []Entry{
		{TierGrandmaster, "Grandmaster", "Rank 1 overall or crowned in three skills", CategoryTier, RarityMythic},
		{TierMaster, "Master", "Master tier on the overall leaderboard", CategoryTier, RarityLegendary},
		{TierDiamond, "Diamond", "Diamond tier on the overall leaderboard", CategoryTier, RarityEpic},
		{TierPlatinum, "Platinum", "Platinum tier on the overall leaderboard", CategoryTier, RarityRare},
		{TierGold, "Gold", "Gold tier on the overall leaderboard", CategoryTier, RarityUncommon},
		{TierSilver, "Silver", "Silver tier on the overall leaderboard", CategoryTier, RarityCommon},
		{TierBronze, "Bronze", "Bronze tier on the overall leaderboard", CategoryTier, RarityCommon},

		{TripleCrown, "Triple Crown", "Top xp in at least three skills", CategoryRank, RarityMythic},
		{DoubleCrown, "Double Crown", "Top xp in at least two skills", CategoryRank, RarityLegendary},
		{CrownedAny, "Crowned", "Top xp in at least one skill", CategoryRank, RarityEpic},
		{Top10Any, "Top 10", "Top 10 in at least one skill", CategoryRank, RarityRare},
		{Top100Any, "Top 100", "Top 100 in at least one skill", CategoryRank, RarityUncommon},
		{RankTop10, "Overall Top 10", "Top 10 on the overall leaderboard", CategoryRank, RarityLegendary},
		{RankTop100, "Overall Top 100", "Top 100 on the overall leaderboard", CategoryRank, RarityEpic},
		{RankTop1000, "Overall Top 1000", "Top 1000 on the overall leaderboard", CategoryRank, RarityRare},

		{Total2277, "Max Total", "Total level 2277", CategoryMilestone, RarityMythic},
		{Total2200, "Total 2200", "Total level 2200 or higher", CategoryMilestone, RarityLegendary},
		{Total2000, "Total 2000", "Total level 2000 or higher", CategoryMilestone, RarityEpic},
		{Total1500, "Total 1500", "Total level 1500 or higher", CategoryMilestone, RarityUncommon},

		{MaxedAccount, "Maxed", "Level 99 in every skill", CategoryMastery, RarityMythic},
		{Seven99s, "Seven 99s", "Level 99 in seven skills", CategoryMastery, RarityEpic},
		{Five99s, "Five 99s", "Level 99 in five skills", CategoryMastery, RarityRare},
		{Base90, "Base 90", "Every skill at level 90 or higher", CategoryMastery, RarityLegendary},
		{Base70, "Base 70", "Every skill at level 70 or higher", CategoryMastery, RarityRare},
		{Base50, "Base 50", "Every skill at level 50 or higher", CategoryMastery, RarityUncommon},
		{CombatMaxed, "Combat Maxed", "Level 99 in every combat skill", CategoryMastery, RarityEpic},
		{First99, "First 99", "Level 99 in any skill", CategoryMastery, RarityUncommon},
		{Specialist, "Specialist", "A 99 with total level 1000 or lower", CategoryPlaystyle, RarityRare},
		{GatheringMaster, "Gatherer", "Woodcutting, fishing and mining at 90", CategoryMastery, RarityRare},
		{ArtisanMaster, "Artisan", "Smithing, crafting and fletching at 90", CategoryMastery, RarityRare},
		{SupportMaster, "Support", "Agility, thieving and slayer at 90", CategoryMastery, RarityRare},

		{Skiller, "Skiller", "High non-combat levels with low combat", CategoryPlaystyle, RarityRare},
		{CombatPure, "Pure", "High combat levels with low non-combat", CategoryPlaystyle, RarityRare},
		{Balanced, "Balanced", "Combat and non-combat averages within five levels", CategoryPlaystyle, RarityUncommon},

		{ElitePerformer, "Elite Performer", "Above average in 90% of skills", CategoryPerformance, RarityEpic},
		{VersatilePerformer, "Versatile Performer", "Above average in 75% of skills", CategoryPerformance, RarityRare},
		{ConsistentPerformer, "Consistent Performer", "Above average in half of all skills", CategoryPerformance, RarityUncommon},

		{XP1B, "Billionaire", "One billion total xp", CategoryMilestone, RarityMythic},
		{XP200M, "200M Total", "200 million total xp", CategoryMilestone, RarityLegendary},
		{XP100M, "100M Total", "100 million total xp", CategoryMilestone, RarityEpic},
		{XP50M, "50M Total", "50 million total xp", CategoryMilestone, RarityRare},
		{XP10M, "10M Total", "10 million total xp", CategoryMilestone, RarityUncommon},
		{XP1M, "1M Total", "One million total xp", CategoryMilestone, RarityCommon},

		{Combat100, "Combat 100", "Combat level 100", CategoryCombat, RarityUncommon},
		{Combat110, "Combat 110", "Combat level 110", CategoryCombat, RarityRare},
		{Combat120, "Combat 120", "Combat level 120", CategoryCombat, RarityEpic},
		{Combat126, "Combat 126", "Maximum combat level", CategoryCombat, RarityLegendary},
	}
	for _, s := range skills.All() {
		entries = append(entries, Entry{
			Key:         SkillMaxXP(s),
			Label:       "200M " + skillLabel(s),
			Description: "200 million xp in " + skillLabel(s),
			Category:    CategoryMilestone,
			Rarity:      RarityMythic,
		})
	}
	return entries
}()

var catalogIndex = func() map[Key]int {
	m := make(map[Key]int, len(catalog))
	for i, e := range catalog {
		if _, dup := m[e.Key]; dup {
			panic("achievement: duplicate catalog key " + string(e.Key))
		}
		m[e.Key] = i
	}
	return m
}()

func skillLabel(s skills.Skill) string {
	name := string(s)
	if name == "" {
		return name
	}
	return string(name[0]-'a'+'A') + name[1:]
}

// Catalog returns every entry in declaration order.
func Catalog() []Entry {
	out := make([]Entry, len(catalog))
	copy(out, catalog)
	return out
}

// Keys returns every catalog key in declaration order.
func Keys() []Key {
	out := make([]Key, len(catalog))
	for i, e := range catalog {
		out[i] = e.Key
	}
	return out
}

// Lookup returns the entry for key. Unknown keys report ok=false.
func Lookup(key Key) (Entry, bool) {
	i, ok := catalogIndex[key]
	if !ok {
		return Entry{}, false
	}
	return catalog[i], true
}

// Known reports whether key is in the catalog.
func Known(key Key) bool {
	_, ok := catalogIndex[key]
	return ok
}

// Set is an unordered set of achievement keys.
type Set map[Key]struct{}

// NewSet returns a set holding keys.
func NewSet(keys ...Key) Set {
	s := make(Set, len(keys))
	for _, k := range keys {
		s[k] = struct{}{}
	}
	return s
}

// Has reports membership.
func (s Set) Has(k Key) bool {
	_, ok := s[k]
	return ok
}

// Add inserts k.
func (s Set) Add(k Key) { s[k] = struct{}{} }

// Sorted returns the keys in catalog order; unknown keys follow, sorted.
func (s Set) Sorted() []Key {
	out := make([]Key, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool {
		a, aok := catalogIndex[out[i]]
		b, bok := catalogIndex[out[j]]
		switch {
		case aok && bok:
			return a < b
		case aok != bok:
			return aok
		default:
			return out[i] < out[j]
		}
	})
	return out
}

// SetFromUnlocks returns the keys of a persisted unlock map.
func SetFromUnlocks(unlocks map[string]int64) Set {
	s := make(Set, len(unlocks))
	for k := range unlocks {
		s[Key(k)] = struct{}{}
	}
	return s
}
