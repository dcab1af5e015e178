// Package skills holds the static skill table and the XP curve.
package skills

import (
	"math"
	"strings"
)

// XP curve constants.
const (
	MinLevel      = 1
	MaxLevel      = 99
	MaxXP         = 200_000_000
	MaxTotalLevel = MaxLevel * Count
	Count         = 23
)

// Skill is a hiscores skill name in lower case.
type Skill string

// Skills in canonical hiscores order.
const (
	Attack       Skill = "attack"
	Defence      Skill = "defence"
	Strength     Skill = "strength"
	Hitpoints    Skill = "hitpoints"
	Ranged       Skill = "ranged"
	Prayer       Skill = "prayer"
	Magic        Skill = "magic"
	Cooking      Skill = "cooking"
	Woodcutting  Skill = "woodcutting"
	Fletching    Skill = "fletching"
	Fishing      Skill = "fishing"
	Firemaking   Skill = "firemaking"
	Crafting     Skill = "crafting"
	Smithing     Skill = "smithing"
	Mining       Skill = "mining"
	Herblore     Skill = "herblore"
	Agility      Skill = "agility"
	Thieving     Skill = "thieving"
	Slayer       Skill = "slayer"
	Farming      Skill = "farming"
	Runecraft    Skill = "runecraft"
	Hunter       Skill = "hunter"
	Construction Skill = "construction"
)

var all = [Count]Skill{
	Attack, Defence, Strength, Hitpoints, Ranged, Prayer, Magic,
	Cooking, Woodcutting, Fletching, Fishing, Firemaking, Crafting,
	Smithing, Mining, Herblore, Agility, Thieving, Slayer, Farming,
	Runecraft, Hunter, Construction,
}

var combat = [...]Skill{Attack, Strength, Defence, Hitpoints, Ranged, Magic, Prayer}

var index = func() map[Skill]int {
	m := make(map[Skill]int, Count)
	for i, s := range all {
		m[s] = i
	}
	return m
}()

// xpTable[l] is the minimum XP for level l (index 0 unused).
var xpTable = func() [MaxLevel + 1]int64 {
	var t [MaxLevel + 1]int64
	points := 0.0
	t[1] = 0
	for l := 1; l < MaxLevel; l++ {
		points += math.Floor(float64(l) + 300*math.Pow(2, float64(l)/7))
		t[l+1] = int64(math.Floor(points / 4))
	}
	return t
}()

// All returns every skill in canonical order. The slice is a fresh copy.
func All() []Skill {
	out := make([]Skill, Count)
	copy(out, all[:])
	return out
}

// Combat returns the seven combat skills.
func Combat() []Skill {
	out := make([]Skill, len(combat))
	copy(out, combat[:])
	return out
}

// IsCombat reports whether s counts towards combat level.
func IsCombat(s Skill) bool {
	for _, c := range combat {
		if c == s {
			return true
		}
	}
	return false
}

// Parse resolves a case-insensitive skill name.
func Parse(name string) (Skill, bool) {
	s := Skill(strings.ToLower(strings.TrimSpace(name)))
	_, ok := index[s]
	return s, ok
}

// Index returns the canonical position of s, or -1.
func Index(s Skill) int {
	if i, ok := index[s]; ok {
		return i
	}
	return -1
}

// XPForLevel returns the minimum XP needed for level. Levels outside 1..99 clamp.
func XPForLevel(level int) int64 {
	if level <= MinLevel {
		return 0
	}
	if level >= MaxLevel {
		return xpTable[MaxLevel]
	}
	return xpTable[level]
}

// LevelFromXP returns the highest level whose threshold is <= xp.
func LevelFromXP(xp int64) int {
	if xp <= 0 {
		return MinLevel
	}
	lo, hi := MinLevel, MaxLevel
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if xpTable[mid] <= xp {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo
}

// ClampXP bounds xp to [0, MaxXP].
func ClampXP(xp int64) int64 {
	if xp < 0 {
		return 0
	}
	if xp > MaxXP {
		return MaxXP
	}
	return xp
}

// CombatLevel approximates the in-game combat level:
// floor(0.25*(def+hp+floor(prayer/2)) + max(0.325*(att+str), 0.325*floor(1.5*ranged), 0.325*floor(1.5*magic))).
func CombatLevel(attack, strength, defence, hitpoints, ranged, magic, prayer int) int {
	base := 0.25 * float64(defence+hitpoints+prayer/2)
	melee := 0.325 * float64(attack+strength)
	rng := 0.325 * math.Floor(1.5*float64(ranged))
	mage := 0.325 * math.Floor(1.5*float64(magic))
	return int(math.Floor(base + max(melee, rng, mage)))
}
