// Package pgstore implements the query cache on the primary Postgres
// database. Unlike the Redis variant, failures here mean the primary store is
// unusable, so they propagate to the caller instead of degrading to a miss.
package pgstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chompapp/search-api/internal/core/observability"
)

const backend = "postgres"

type Store struct {
	pool *pgxpool.Pool
}

// New wraps an existing pool. The pool is shared with the place store and
// owned by the caller, so Close does not touch it.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) Get(ctx context.Context, key string) ([]string, bool, error) {
	start := time.Now()
	var ids []string
	err := s.pool.QueryRow(ctx,
		`SELECT place_ids FROM nearby_query_cache WHERE cache_key = $1 AND expires_at > now()`,
		key,
	).Scan(&ids)
	if errors.Is(err, pgx.ErrNoRows) {
		observability.ObserveCacheOp(backend, "get", nil, time.Since(start).Seconds())
		return nil, false, nil
	}
	observability.ObserveCacheOp(backend, "get", err, time.Since(start).Seconds())
	if err != nil {
		return nil, false, fmt.Errorf("cache get %q: %w", key, err)
	}
	return ids, true, nil
}

func (s *Store) Set(ctx context.Context, key string, ids []string, ttl time.Duration) error {
	start := time.Now()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO nearby_query_cache (cache_key, place_ids, expires_at)
		 VALUES ($1, $2, now() + $3)
		 ON CONFLICT (cache_key) DO UPDATE
		 SET place_ids = EXCLUDED.place_ids, expires_at = EXCLUDED.expires_at`,
		key, ids, ttl,
	)
	observability.ObserveCacheOp(backend, "set", err, time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("cache set %q: %w", key, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) (bool, error) {
	start := time.Now()
	tag, err := s.pool.Exec(ctx, `DELETE FROM nearby_query_cache WHERE cache_key = $1`, key)
	observability.ObserveCacheOp(backend, "del", err, time.Since(start).Seconds())
	if err != nil {
		return false, fmt.Errorf("cache delete %q: %w", key, err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *Store) CleanupExpired(ctx context.Context) (int, error) {
	start := time.Now()
	tag, err := s.pool.Exec(ctx, `DELETE FROM nearby_query_cache WHERE expires_at <= now()`)
	observability.ObserveCacheOp(backend, "cleanup", err, time.Since(start).Seconds())
	if err != nil {
		return 0, fmt.Errorf("cache cleanup: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (s *Store) Clear(ctx context.Context) (int, error) {
	start := time.Now()
	tag, err := s.pool.Exec(ctx, `DELETE FROM nearby_query_cache`)
	observability.ObserveCacheOp(backend, "clear", err, time.Since(start).Seconds())
	if err != nil {
		return 0, fmt.Errorf("cache clear: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// Close is a no-op; the underlying pool belongs to the caller.
func (s *Store) Close() error { return nil }
