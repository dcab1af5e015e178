// Package repository stores players and leaderboard history in a key-value
// store with memory, Redis and Postgres backends.
package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/okian/hiscores/pkg/metrics"
)

// InternalPrefix marks keys that never hold a player.
const InternalPrefix = "__"

// Store is a flat key-value store. Reads of a single key are atomic; nothing
// is promised across keys.
type Store interface {
	// Get returns ErrNotFound for a missing key.
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	// Delete is a no-op for a missing key.
	Delete(ctx context.Context, key string) error
	// List returns every key starting with prefix in ascending order.
	List(ctx context.Context, prefix string) ([]string, error)
	Close() error
}

func validateKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return ErrInvalidKey
	}
	return nil
}

// observe records latency and outcome of one backend call. A missing key is
// not a failure.
func observe(backend, op string, start time.Time, err error) {
	failed := err != nil && !errors.Is(err, ErrNotFound)
	metrics.RecordStoreOperation(backend, op, float64(time.Since(start).Microseconds())/1000, failed)
	if failed {
		metrics.RecordErrorByComponent("repository", op)
	}
}
