// Package model contains domain models passed between layers.
package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/okian/hiscores/internal/domain/skills"
	"github.com/tidwall/gjson"
)

// ErrCorruptRecord marks a stored player that cannot be decoded.
var ErrCorruptRecord = errors.New("corrupt player record")

// SkillStat is the per-skill state. Level is always derived from XP.
type SkillStat struct {
	XP    int64 `json:"xp"`
	Level int   `json:"level"`
}

// TierInfo is the denormalized prestige classification cached on a profile.
type TierInfo struct {
	Name    string `json:"name"`
	Ordinal int    `json:"ordinal"`
	// Source is "rank" for population-derived tiers and "fallback" for the
	// total-level estimate.
	Source string `json:"source"`
}

// Player is one hiscores profile.
type Player struct {
	Username     string                     `json:"username"`
	Skills       map[skills.Skill]SkillStat `json:"skills"`
	TotalLevel   int                        `json:"totalLevel"`
	TotalXP      int64                      `json:"totalXP"`
	Achievements map[string]int64           `json:"achievements"`
	CreatedAt    int64                      `json:"createdAt"`
	UpdatedAt    int64                      `json:"updatedAt"`
	Tier         string                     `json:"tier,omitempty"`
	TierInfo     *TierInfo                  `json:"tierInfo,omitempty"`
}

// NewPlayer returns a player with every skill at level 1.
func NewPlayer(username string, nowMs int64) *Player {
	p := &Player{
		Username:     username,
		Skills:       make(map[skills.Skill]SkillStat, skills.Count),
		Achievements: make(map[string]int64),
		CreatedAt:    nowMs,
		UpdatedAt:    nowMs,
	}
	for _, s := range skills.All() {
		p.Skills[s] = SkillStat{XP: 0, Level: skills.MinLevel}
	}
	p.Recompute()
	return p
}

// NormalizeUsername returns the case-insensitive storage key for a username.
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// Key returns the lower-cased username.
func (p *Player) Key() string {
	return NormalizeUsername(p.Username)
}

// XP returns the xp for s; a missing skill counts as 0.
func (p *Player) XP(s skills.Skill) int64 {
	if p == nil || p.Skills == nil {
		return 0
	}
	return skills.ClampXP(p.Skills[s].XP)
}

// Level derives the level for s from its xp.
func (p *Player) Level(s skills.Skill) int {
	return skills.LevelFromXP(p.XP(s))
}

// LiveTotalLevel sums levels over all skills without touching the cache.
func (p *Player) LiveTotalLevel() int {
	total := 0
	for _, s := range skills.All() {
		total += p.Level(s)
	}
	return total
}

// LiveTotalXP sums xp over all skills without touching the cache.
func (p *Player) LiveTotalXP() int64 {
	var total int64
	for _, s := range skills.All() {
		total += p.XP(s)
	}
	return total
}

// SetXP sets xp for s and keeps the level and totals consistent.
func (p *Player) SetXP(s skills.Skill, xp int64) {
	if p.Skills == nil {
		p.Skills = make(map[skills.Skill]SkillStat, skills.Count)
	}
	xp = skills.ClampXP(xp)
	p.Skills[s] = SkillStat{XP: xp, Level: skills.LevelFromXP(xp)}
	p.TotalLevel = p.LiveTotalLevel()
	p.TotalXP = p.LiveTotalXP()
}

// Recompute re-derives every stored level and both totals from xp.
func (p *Player) Recompute() {
	for s, st := range p.Skills {
		xp := skills.ClampXP(st.XP)
		p.Skills[s] = SkillStat{XP: xp, Level: skills.LevelFromXP(xp)}
	}
	if p.Achievements == nil {
		p.Achievements = make(map[string]int64)
	}
	p.TotalLevel = p.LiveTotalLevel()
	p.TotalXP = p.LiveTotalXP()
}

// Clone returns a deep copy.
func (p *Player) Clone() *Player {
	c := *p
	c.Skills = make(map[skills.Skill]SkillStat, len(p.Skills))
	for s, st := range p.Skills {
		c.Skills[s] = st
	}
	c.Achievements = make(map[string]int64, len(p.Achievements))
	for k, ts := range p.Achievements {
		c.Achievements[k] = ts
	}
	if p.TierInfo != nil {
		ti := *p.TierInfo
		c.TierInfo = &ti
	}
	return &c
}

// Encode serializes the player after recomputing derived fields.
func Encode(p *Player) ([]byte, error) {
	p.Recompute()
	return json.Marshal(p)
}

// DecodePlayer parses a stored profile. It tolerates legacy shapes: skills
// stored as bare xp numbers, missing optional fields and unknown skills. Levels
// and totals are always recomputed from xp.
func DecodePlayer(data []byte) (*Player, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: invalid json", ErrCorruptRecord)
	}
	doc := gjson.ParseBytes(data)
	username := strings.TrimSpace(doc.Get("username").String())
	if username == "" {
		return nil, fmt.Errorf("%w: missing username", ErrCorruptRecord)
	}

	p := &Player{
		Username:     username,
		Skills:       make(map[skills.Skill]SkillStat, skills.Count),
		Achievements: make(map[string]int64),
		CreatedAt:    doc.Get("createdAt").Int(),
		UpdatedAt:    doc.Get("updatedAt").Int(),
		Tier:         doc.Get("tier").String(),
	}

	doc.Get("skills").ForEach(func(name, value gjson.Result) bool {
		s, ok := skills.Parse(name.String())
		if !ok {
			return true
		}
		var xp int64
		switch {
		case value.IsObject():
			xp = value.Get("xp").Int()
		case value.Type == gjson.Number:
			xp = value.Int()
		}
		p.Skills[s] = SkillStat{XP: xp}
		return true
	})

	doc.Get("achievements").ForEach(func(key, value gjson.Result) bool {
		if value.Type == gjson.Number {
			p.Achievements[key.String()] = value.Int()
		}
		return true
	})

	if ti := doc.Get("tierInfo"); ti.IsObject() {
		p.TierInfo = &TierInfo{
			Name:    ti.Get("name").String(),
			Ordinal: int(ti.Get("ordinal").Int()),
			Source:  ti.Get("source").String(),
		}
	}

	p.Recompute()
	return p, nil
}
