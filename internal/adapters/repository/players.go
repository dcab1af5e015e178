package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/okian/hiscores/internal/domain/history"
	"github.com/okian/hiscores/internal/domain/model"
	"github.com/okian/hiscores/pkg/logger"
)

const (
	defaultRetryDelay = 50 * time.Millisecond
	maxReadRetries    = 1
)

// PlayerRepository stores typed players and history snapshots over a Store.
// Players live under their lower-cased username.
type PlayerRepository struct {
	store      Store
	backend    string
	retryDelay time.Duration
	logger     logger.Logger
}

// NewPlayerRepository wraps store.
func NewPlayerRepository(store Store, opts ...Option) *PlayerRepository {
	r := &PlayerRepository{
		store:      store,
		backend:    "store",
		retryDelay: defaultRetryDelay,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = logger.Get().Named("repository")
	}
	r.logger = r.logger.With(logger.String("backend", r.backend))
	return r
}

// Store returns the underlying key-value store.
func (r *PlayerRepository) Store() Store { return r.store }

// Close closes the underlying store.
func (r *PlayerRepository) Close() error { return r.store.Close() }

func playerKey(username string) (string, error) {
	key := model.NormalizeUsername(username)
	if key == "" || strings.HasPrefix(key, InternalPrefix) {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, username)
	}
	return key, nil
}

// read fetches key, retrying once on a transient failure. Missing keys and
// invalid keys are not retried.
func (r *PlayerRepository) read(ctx context.Context, key string) ([]byte, error) {
	var data []byte
	op := func() error {
		v, err := r.store.Get(ctx, key)
		if err != nil {
			if errors.Is(err, ErrNotFound) || errors.Is(err, ErrInvalidKey) {
				return backoff.Permanent(err)
			}
			return err
		}
		data = v
		return nil
	}
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(r.retryDelay), maxReadRetries), ctx)
	notify := func(err error, _ time.Duration) {
		r.logger.Debug(ctx, "retrying read", logger.String("key", key), logger.Error(err))
	}
	if err := backoff.RetryNotify(op, policy, notify); err != nil {
		return nil, err
	}
	return data, nil
}

// Get loads one player. Unknown users return ErrNotFound.
func (r *PlayerRepository) Get(ctx context.Context, username string) (*model.Player, error) {
	key, err := playerKey(username)
	if err != nil {
		return nil, err
	}
	data, err := r.read(ctx, key)
	if err != nil {
		return nil, err
	}
	p, err := model.DecodePlayer(data)
	if err != nil {
		return nil, fmt.Errorf("player %s: %w", key, err)
	}
	return p, nil
}

// Save writes p under its key.
func (r *PlayerRepository) Save(ctx context.Context, p *model.Player) error {
	key, err := playerKey(p.Username)
	if err != nil {
		return err
	}
	data, err := model.Encode(p)
	if err != nil {
		return fmt.Errorf("encode player %s: %w", key, err)
	}
	return r.store.Put(ctx, key, data)
}

// Delete removes a player.
func (r *PlayerRepository) Delete(ctx context.Context, username string) error {
	key, err := playerKey(username)
	if err != nil {
		return err
	}
	return r.store.Delete(ctx, key)
}

// Usernames lists every player key in ascending order.
func (r *PlayerRepository) Usernames(ctx context.Context) ([]string, error) {
	keys, err := r.store.List(ctx, "")
	if err != nil {
		return nil, err
	}
	out := keys[:0]
	for _, k := range keys {
		if !strings.HasPrefix(k, InternalPrefix) {
			out = append(out, k)
		}
	}
	return out, nil
}

// LoadPopulation reads every player. Corrupt records and players deleted
// mid-scan are skipped; any other read failure aborts the load.
func (r *PlayerRepository) LoadPopulation(ctx context.Context) ([]*model.Player, error) {
	players, _, err := r.load(ctx, false)
	return players, err
}

// LoadPopulationBestEffort reads every player it can. Users whose reads fail
// are skipped and returned; only a failed listing is an error.
func (r *PlayerRepository) LoadPopulationBestEffort(ctx context.Context) ([]*model.Player, []string, error) {
	return r.load(ctx, true)
}

func (r *PlayerRepository) load(ctx context.Context, tolerant bool) ([]*model.Player, []string, error) {
	names, err := r.Usernames(ctx)
	if err != nil {
		return nil, nil, err
	}
	players := make([]*model.Player, 0, len(names))
	var skipped []string
	for _, name := range names {
		p, err := r.Get(ctx, name)
		switch {
		case err == nil:
			players = append(players, p)
		case errors.Is(err, ErrCorruptRecord):
			r.logger.Warn(ctx, "skipping corrupt player record",
				logger.String("username", name), logger.Error(err))
		case errors.Is(err, ErrNotFound):
		case tolerant:
			r.logger.Warn(ctx, "skipping unreadable player",
				logger.String("username", name), logger.Error(err))
			skipped = append(skipped, name)
		default:
			return nil, nil, err
		}
	}
	return players, skipped, nil
}

// SaveSnapshot writes a leaderboard snapshot.
func (r *PlayerRepository) SaveSnapshot(ctx context.Context, s history.Snapshot) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return r.store.Put(ctx, history.Key(s.GeneratedAt), data)
}

// Snapshots returns every stored snapshot, oldest first. Undecodable
// snapshots are skipped.
func (r *PlayerRepository) Snapshots(ctx context.Context) ([]history.Snapshot, error) {
	keys, err := r.store.List(ctx, history.KeyPrefix)
	if err != nil {
		return nil, err
	}
	out := make([]history.Snapshot, 0, len(keys))
	for _, k := range keys {
		data, err := r.read(ctx, k)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		var s history.Snapshot
		if err := json.Unmarshal(data, &s); err != nil {
			r.logger.Warn(ctx, "skipping corrupt snapshot", logger.String("key", k), logger.Error(err))
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GeneratedAt < out[j].GeneratedAt })
	return out, nil
}

// DeleteSnapshot removes the snapshot taken at generatedAt.
func (r *PlayerRepository) DeleteSnapshot(ctx context.Context, generatedAt int64) error {
	return r.store.Delete(ctx, history.Key(generatedAt))
}
