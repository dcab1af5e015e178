// Package contextcache holds a short-lived achievement context keyed by the
// signature of the population it was built from.
package contextcache

import (
	"sync"
	"time"

	"github.com/okian/hiscores/internal/domain/achievement"
	"github.com/okian/hiscores/internal/domain/model"
)

const defaultTTL = 60 * time.Second

// Clock returns the current time.
type Clock func() time.Time

// BuildFunc builds a context from a population snapshot.
type BuildFunc func(players []*model.Player) *achievement.Context

// Option applies a configuration option to the Cache.
type Option func(*Cache)

// WithTTL sets how long an entry stays valid. Non-positive values disable
// caching.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		c.ttl = ttl
	}
}

// WithClock injects the time source.
func WithClock(clock Clock) Option {
	return func(c *Cache) {
		if clock != nil {
			c.now = clock
		}
	}
}

// WithBuilder replaces the context builder.
func WithBuilder(build BuildFunc) Option {
	return func(c *Cache) {
		if build != nil {
			c.build = build
		}
	}
}

// Cache keeps at most one context. An entry is served only while it is
// younger than the TTL and its signature equals the signature of the
// population being asked about.
type Cache struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     Clock
	build   BuildFunc
	entry   *achievement.Context
	builtAt time.Time
}

// New returns an empty cache.
func New(opts ...Option) *Cache {
	c := &Cache{
		ttl:   defaultTTL,
		now:   time.Now,
		build: achievement.BuildContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetOrBuild returns the cached context for players or builds a fresh one.
// hit reports whether the cached entry was used.
func (c *Cache) GetOrBuild(players []*model.Player) (ctx *achievement.Context, hit bool) {
	sig := achievement.PopulationSignature(players)

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if c.entry != nil && c.ttl > 0 && now.Sub(c.builtAt) < c.ttl && c.entry.Signature == sig {
		return c.entry, true
	}

	built := c.build(players)
	if c.ttl > 0 {
		c.entry = built
		c.builtAt = now
	}
	return built, false
}

// Peek returns the cached context if it is still within its TTL, without
// checking the signature.
func (c *Cache) Peek() (*achievement.Context, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.entry == nil || c.ttl <= 0 || c.now().Sub(c.builtAt) >= c.ttl {
		return nil, false
	}
	return c.entry, true
}

// Invalidate drops the cached entry.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.entry = nil
	c.builtAt = time.Time{}
	c.mu.Unlock()
}
