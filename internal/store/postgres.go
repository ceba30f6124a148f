package store

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const createPGKVTable = `
CREATE TABLE IF NOT EXISTS kv_entries (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// Postgres is a Store backed by a Postgres table, for deployments where
// several service instances share cache and history.
type Postgres struct {
	pool   *pgxpool.Pool
	quota  int
	closed atomic.Bool
}

// OpenPostgres connects to dsn, verifies the connection and runs the migration.
// A quota of zero or less means unlimited.
func OpenPostgres(ctx context.Context, dsn string, quotaBytes int) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open kv pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping kv pool: %w", err)
	}
	if _, err := pool.Exec(ctx, createPGKVTable); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate kv table: %w", err)
	}
	return &Postgres{pool: pool, quota: quotaBytes}, nil
}

func (s *Postgres) Get(ctx context.Context, key string) (string, bool, error) {
	if s.closed.Load() {
		return "", false, ErrUnavailable
	}
	var value string
	err := s.pool.QueryRow(ctx, `SELECT value FROM kv_entries WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("kv get %q: %w", key, err)
	}
	return value, true, nil
}

func (s *Postgres) Set(ctx context.Context, key, value string) error {
	if s.closed.Load() {
		return ErrUnavailable
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("kv set %q: %w", key, err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	if s.quota > 0 {
		var used int64
		err := tx.QueryRow(ctx,
			`SELECT COALESCE(SUM(octet_length(key) + octet_length(value)), 0)
			 FROM kv_entries WHERE key <> $1`, key,
		).Scan(&used)
		if err != nil {
			return fmt.Errorf("kv usage: %w", err)
		}
		if total := int(used) + entrySize(key, value); total > s.quota {
			return fmt.Errorf("set %q: %w (%d > %d bytes)", key, ErrQuotaExceeded, total, s.quota)
		}
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO kv_entries (key, value, updated_at) VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`,
		key, value, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("kv set %q: %w", key, err)
	}
	return tx.Commit(ctx)
}

func (s *Postgres) Remove(ctx context.Context, key string) error {
	if s.closed.Load() {
		return ErrUnavailable
	}
	if _, err := s.pool.Exec(ctx, `DELETE FROM kv_entries WHERE key = $1`, key); err != nil {
		return fmt.Errorf("kv remove %q: %w", key, err)
	}
	return nil
}

func (s *Postgres) Ping(ctx context.Context) error {
	if s.closed.Load() {
		return ErrUnavailable
	}
	return s.pool.Ping(ctx)
}

// Close releases the connection pool.
func (s *Postgres) Close() error {
	if !s.closed.Swap(true) {
		s.pool.Close()
	}
	return nil
}
