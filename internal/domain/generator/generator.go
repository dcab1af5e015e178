// Package generator produces synthetic player profiles and simulated XP gains.
package generator

import (
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/okian/hiscores/internal/domain/model"
	"github.com/okian/hiscores/internal/domain/skills"
)

// MaxUsernameLength is the longest generated username.
const MaxUsernameLength = 12

// Gain tuning.
const (
	defaultActiveChance = 0.35
	defaultMaxGain      = 40_000
)

// Option applies a configuration option to the Generator.
type Option func(*Generator)

// WithClock sets the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) {
		if now != nil {
			g.now = now
		}
	}
}

// WithActiveChance sets the probability that a skill is trained in one tick.
func WithActiveChance(p float64) Option {
	return func(g *Generator) {
		if p > 0 && p <= 1 {
			g.activeChance = p
		}
	}
}

// WithMaxGain sets the upper bound of a single skill's base gain per tick.
func WithMaxGain(xp int) Option {
	return func(g *Generator) {
		if xp > 0 {
			g.maxGain = xp
		}
	}
}

// Generator is safe for concurrent use.
type Generator struct {
	mu           sync.Mutex
	faker        *gofakeit.Faker
	now          func() time.Time
	activeChance float64
	maxGain      int
}

// New returns a generator. A zero seed is replaced by the current time.
func New(seed int64, opts ...Option) *Generator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	g := &Generator{
		faker:        gofakeit.New(uint64(seed)),
		now:          time.Now,
		activeChance: defaultActiveChance,
		maxGain:      defaultMaxGain,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Username returns a gamer tag of letters and digits, at most
// MaxUsernameLength characters.
func (g *Generator) Username() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	for {
		if name := sanitize(g.faker.Gamertag()); len(name) >= 3 {
			return name
		}
	}
}

func sanitize(tag string) string {
	var b strings.Builder
	for _, r := range tag {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
		}
		if b.Len() == MaxUsernameLength {
			break
		}
	}
	return b.String()
}

// Player builds a new profile for username. Each account gets a random
// progression level and its skills scatter around it.
func (g *Generator) Player(username string) *model.Player {
	nowMs := g.now().UnixMilli()
	p := model.NewPlayer(username, nowMs)

	g.mu.Lock()
	defer g.mu.Unlock()

	base := g.faker.Number(1, 90)
	spread := g.faker.Number(3, 25)
	for _, s := range skills.All() {
		lvl := min(max(base+g.faker.Number(-spread, spread), skills.MinLevel), skills.MaxLevel)
		floor := skills.XPForLevel(lvl)
		next := skills.XPForLevel(min(lvl+1, skills.MaxLevel))
		xp := floor
		if next > floor {
			xp += int64(g.faker.Float64Range(0, float64(next-floor)))
		}
		p.SetXP(s, xp)
	}
	if s := skills.Hitpoints; p.Level(s) < 10 {
		p.SetXP(s, skills.XPForLevel(10))
	}
	return p
}

// ApplyGains trains a random subset of skills and returns the xp added.
// Higher levels earn more per tick, capped at MaxXP per skill.
func (g *Generator) ApplyGains(p *model.Player) int64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	var gained int64
	for _, s := range skills.All() {
		if g.faker.Float64Range(0, 1) >= g.activeChance {
			continue
		}
		before := p.XP(s)
		scale := 1 + float64(p.Level(s))/20
		delta := int64(float64(g.faker.Number(0, g.maxGain)) * scale)
		p.SetXP(s, before+delta)
		gained += p.XP(s) - before
	}
	p.UpdatedAt = g.now().UnixMilli()
	return gained
}
