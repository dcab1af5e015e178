// Package config defines service configuration and how it is loaded.
package config

import (
	"fmt"
	"slices"
	"time"
)

// Store backends.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// StoreBackend selects memory, redis or postgres.
	StoreBackend  string `koanf:"store_backend"`
	RedisAddr     string `koanf:"redis_addr"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db"`
	PostgresDSN   string `koanf:"postgres_dsn"`

	// MaxLeaderboardLimit caps the limit query parameter.
	MaxLeaderboardLimit     int `koanf:"max_leaderboard_limit"`
	DefaultLeaderboardLimit int `koanf:"default_leaderboard_limit"`

	// SeedPlayers are generated at startup when the store has no players.
	SeedPlayers int `koanf:"seed_players"`
	// GeneratorSeed of 0 seeds from the clock.
	GeneratorSeed int64 `koanf:"generator_seed"`

	// UpdateIntervalSeconds of 0 disables the scheduled XP job.
	UpdateIntervalSeconds int `koanf:"update_interval_seconds"`
	UpdateBatchSize       int `koanf:"update_batch_size"`
	UpdateBatchDelayMS    int `koanf:"update_batch_delay_ms"`
	UpdateWorkers         int `koanf:"update_workers"`

	ContextCacheTTLSeconds int `koanf:"context_cache_ttl_seconds"`

	HistoryIntervalSeconds int `koanf:"history_interval_seconds"`
	HistoryRetentionHours  int `koanf:"history_retention_hours"`
	OnTheRiseThreshold     int `koanf:"on_the_rise_threshold"`
	OnTheRiseLimit         int `koanf:"on_the_rise_limit"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:                "info",
		Addr:                    ":9080",
		StoreBackend:            BackendMemory,
		RedisAddr:               "localhost:6379",
		MaxLeaderboardLimit:     500,
		DefaultLeaderboardLimit: 50,
		UpdateIntervalSeconds:   900,
		UpdateBatchSize:         50,
		UpdateBatchDelayMS:      250,
		UpdateWorkers:           8,
		ContextCacheTTLSeconds:  60,
		HistoryIntervalSeconds:  3600,
		HistoryRetentionHours:   72,
		OnTheRiseThreshold:      100,
		OnTheRiseLimit:          10,
	}
}

// Validate reports the first invalid field.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case !slices.Contains([]string{BackendMemory, BackendRedis, BackendPostgres}, c.StoreBackend):
		return fmt.Errorf("%w: unknown store_backend %q", ErrInvalidConfig, c.StoreBackend)
	case c.StoreBackend == BackendPostgres && c.PostgresDSN == "":
		return fmt.Errorf("%w: postgres_dsn is required for the postgres backend", ErrInvalidConfig)
	case c.UpdateBatchSize < 1:
		return fmt.Errorf("%w: update_batch_size must be at least 1", ErrInvalidConfig)
	case c.MaxLeaderboardLimit < 1:
		return fmt.Errorf("%w: max_leaderboard_limit must be at least 1", ErrInvalidConfig)
	case c.DefaultLeaderboardLimit < 1 || c.DefaultLeaderboardLimit > c.MaxLeaderboardLimit:
		return fmt.Errorf("%w: default_leaderboard_limit must be within 1..max_leaderboard_limit", ErrInvalidConfig)
	case c.UpdateIntervalSeconds < 0 || c.HistoryIntervalSeconds < 0 || c.UpdateBatchDelayMS < 0:
		return fmt.Errorf("%w: intervals must not be negative", ErrInvalidConfig)
	}
	return nil
}

// UpdateInterval is the scheduled job period; zero means disabled.
func (c *Config) UpdateInterval() time.Duration {
	return time.Duration(c.UpdateIntervalSeconds) * time.Second
}

// UpdateBatchDelay is the pause between job batches.
func (c *Config) UpdateBatchDelay() time.Duration {
	return time.Duration(c.UpdateBatchDelayMS) * time.Millisecond
}

// ContextCacheTTL is the achievement context cache lifetime.
func (c *Config) ContextCacheTTL() time.Duration {
	return time.Duration(c.ContextCacheTTLSeconds) * time.Second
}

// HistoryInterval is the snapshot period; zero means disabled.
func (c *Config) HistoryInterval() time.Duration {
	return time.Duration(c.HistoryIntervalSeconds) * time.Second
}

// HistoryRetention is how long snapshots are kept.
func (c *Config) HistoryRetention() time.Duration {
	return time.Duration(c.HistoryRetentionHours) * time.Hour
}
