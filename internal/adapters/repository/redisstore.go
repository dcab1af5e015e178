package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	redisBackend          = "redis"
	defaultRedisNamespace = "hiscores:"
	defaultScanCount      = 500
)

// RedisOption applies a configuration option to the RedisStore.
type RedisOption func(*RedisStore)

// WithNamespace prefixes every key written to Redis.
func WithNamespace(ns string) RedisOption {
	return func(s *RedisStore) {
		s.namespace = ns
	}
}

// WithScanCount sets the COUNT hint used while listing keys.
func WithScanCount(n int64) RedisOption {
	return func(s *RedisStore) {
		if n > 0 {
			s.scanCount = n
		}
	}
}

// RedisStore keeps each record as a plain string value.
type RedisStore struct {
	client    redis.UniversalClient
	namespace string
	scanCount int64
}

// NewRedisStore wraps an existing client.
func NewRedisStore(client redis.UniversalClient, opts ...RedisOption) *RedisStore {
	s := &RedisStore{
		client:    client,
		namespace: defaultRedisNamespace,
		scanCount: defaultScanCount,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DialRedis connects to addr and checks the connection.
func DialRedis(ctx context.Context, addr, password string, db int, opts ...RedisOption) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: redis ping %s: %v", ErrStoreUnavailable, addr, err)
	}
	return NewRedisStore(client, opts...), nil
}

// Get implements Store.
func (s *RedisStore) Get(ctx context.Context, key string) (_ []byte, err error) {
	defer func(start time.Time) { observe(redisBackend, "get", start, err) }(time.Now())

	if err := validateKey(key); err != nil {
		return nil, err
	}
	v, err := s.client.Get(ctx, s.namespace+key).Bytes()
	if err != nil {
		return nil, redisError(err)
	}
	return v, nil
}

// Put implements Store.
func (s *RedisStore) Put(ctx context.Context, key string, value []byte) (err error) {
	defer func(start time.Time) { observe(redisBackend, "put", start, err) }(time.Now())

	if err := validateKey(key); err != nil {
		return err
	}
	return redisError(s.client.Set(ctx, s.namespace+key, value, 0).Err())
}

// Delete implements Store.
func (s *RedisStore) Delete(ctx context.Context, key string) (err error) {
	defer func(start time.Time) { observe(redisBackend, "delete", start, err) }(time.Now())

	return redisError(s.client.Del(ctx, s.namespace+key).Err())
}

// List implements Store using SCAN, so large keyspaces never block the server.
func (s *RedisStore) List(ctx context.Context, prefix string) (_ []string, err error) {
	defer func(start time.Time) { observe(redisBackend, "list", start, err) }(time.Now())

	pattern := escapeGlob(s.namespace+prefix) + "*"
	seen := make(map[string]struct{})
	iter := s.client.Scan(ctx, 0, pattern, s.scanCount).Iterator()
	for iter.Next(ctx) {
		// SCAN may return a key more than once.
		seen[strings.TrimPrefix(iter.Val(), s.namespace)] = struct{}{}
	}
	if err := iter.Err(); err != nil {
		return nil, redisError(err)
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// Close implements Store.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func redisError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, redis.Nil):
		return ErrNotFound
	default:
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
}

// escapeGlob quotes the characters SCAN MATCH treats as pattern syntax.
func escapeGlob(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\', '^', '-':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
