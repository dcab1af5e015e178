package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresBackend = "postgres"

const schemaSQL = `CREATE TABLE IF NOT EXISTS hiscores_kv (
	key        text PRIMARY KEY,
	value      jsonb NOT NULL,
	updated_at timestamptz NOT NULL DEFAULT now()
)`

// PostgresStore keeps records in one jsonb table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// DialPostgres opens a pool for dsn and creates the table when missing.
func DialPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: postgres pool: %v", ErrStoreUnavailable, err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: postgres ping: %v", ErrStoreUnavailable, err)
	}
	s := NewPostgresStore(pool)
	if err := s.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// NewPostgresStore wraps an existing pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Migrate creates the backing table.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("%w: create table: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Get implements Store.
func (s *PostgresStore) Get(ctx context.Context, key string) (_ []byte, err error) {
	defer func(start time.Time) { observe(postgresBackend, "get", start, err) }(time.Now())

	if err := validateKey(key); err != nil {
		return nil, err
	}
	var value string
	err = s.pool.QueryRow(ctx, `SELECT value::text FROM hiscores_kv WHERE key = $1`, key).Scan(&value)
	if err != nil {
		return nil, postgresError(err)
	}
	return []byte(value), nil
}

// Put implements Store. The value must be valid JSON.
func (s *PostgresStore) Put(ctx context.Context, key string, value []byte) (err error) {
	defer func(start time.Time) { observe(postgresBackend, "put", start, err) }(time.Now())

	if err := validateKey(key); err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `INSERT INTO hiscores_kv (key, value) VALUES ($1, $2::jsonb)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`, key, string(value))
	return postgresError(err)
}

// Delete implements Store.
func (s *PostgresStore) Delete(ctx context.Context, key string) (err error) {
	defer func(start time.Time) { observe(postgresBackend, "delete", start, err) }(time.Now())

	_, err = s.pool.Exec(ctx, `DELETE FROM hiscores_kv WHERE key = $1`, key)
	return postgresError(err)
}

// List implements Store.
func (s *PostgresStore) List(ctx context.Context, prefix string) (_ []string, err error) {
	defer func(start time.Time) { observe(postgresBackend, "list", start, err) }(time.Now())

	rows, err := s.pool.Query(ctx,
		`SELECT key FROM hiscores_kv WHERE key LIKE $1 ESCAPE '\' ORDER BY key COLLATE "C"`,
		escapeLike(prefix)+"%")
	if err != nil {
		return nil, postgresError(err)
	}
	keys, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, postgresError(err)
	}
	return keys, nil
}

// Close implements Store.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func postgresError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, pgx.ErrNoRows):
		return ErrNotFound
	default:
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
}

// escapeLike quotes LIKE wildcards using a backslash escape.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
