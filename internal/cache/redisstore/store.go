// Package redisstore implements the query cache on Redis. Redis expires
// entries natively, and because this backend is an optional cost-control
// layer its transport failures degrade to cache misses instead of failing the
// request.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/chompapp/search-api/internal/core/observability"
)

const backend = "redis"

type Option func(*redis.Options)

func WithPoolSize(n int) Option {
	return func(o *redis.Options) { o.PoolSize = n }
}

func WithDialTimeout(d time.Duration) Option {
	return func(o *redis.Options) { o.DialTimeout = d }
}

func WithReadTimeout(d time.Duration) Option {
	return func(o *redis.Options) { o.ReadTimeout = d }
}

func WithWriteTimeout(d time.Duration) Option {
	return func(o *redis.Options) { o.WriteTimeout = d }
}

type Store struct {
	rdb       *redis.Client
	logger    *slog.Logger
	closeOnce sync.Once
}

func New(ctx context.Context, addr string, logger *slog.Logger, opts ...Option) (*Store, error) {
	if addr == "" {
		return nil, errors.New("redis address is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	ro := &redis.Options{
		Addr:         addr,
		PoolSize:     64,
		MinIdleConns: 4,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  1 * time.Second,
		WriteTimeout: 1 * time.Second,
	}
	for _, f := range opts {
		f(ro)
	}

	rdb := redis.NewClient(ro)

	start := time.Now()
	err := rdb.Ping(ctx).Err()
	observability.ObserveCacheOp(backend, "ping", err, time.Since(start).Seconds())
	if err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Store{rdb: rdb, logger: logger}, nil
}

func (s *Store) Get(ctx context.Context, key string) ([]string, bool, error) {
	start := time.Now()
	raw, err := s.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		observability.ObserveCacheOp(backend, "get", nil, time.Since(start).Seconds())
		return nil, false, nil
	}
	observability.ObserveCacheOp(backend, "get", err, time.Since(start).Seconds())
	if err != nil {
		s.logger.Warn("redis get failed, treating as miss", "key", key, "err", err)
		return nil, false, nil
	}

	var ids []string
	if err := json.Unmarshal(raw, &ids); err != nil {
		s.logger.Warn("redis entry undecodable, treating as miss", "key", key, "err", err)
		return nil, false, nil
	}
	return ids, true, nil
}

func (s *Store) Set(ctx context.Context, key string, ids []string, ttl time.Duration) error {
	raw, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}

	start := time.Now()
	err = s.rdb.Set(ctx, key, raw, ttl).Err()
	observability.ObserveCacheOp(backend, "set", err, time.Since(start).Seconds())
	if err != nil {
		s.logger.Warn("redis set failed, entry not cached", "key", key, "err", err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) (bool, error) {
	start := time.Now()
	n, err := s.rdb.Del(ctx, key).Result()
	observability.ObserveCacheOp(backend, "del", err, time.Since(start).Seconds())
	if err != nil {
		s.logger.Warn("redis del failed", "key", key, "err", err)
		return false, nil
	}
	return n > 0, nil
}

// Clear deletes every nearby entry via a prefix scan, leaving unrelated keys
// in the database alone. Unlike the request-path operations this is an
// explicit admin action, so failures surface instead of degrading.
func (s *Store) Clear(ctx context.Context) (int, error) {
	const batchSize = 512
	start := time.Now()
	deleted := 0

	var batch []string
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := s.rdb.Del(ctx, batch...).Result()
		if err != nil {
			return err
		}
		deleted += int(n)
		batch = batch[:0]
		return nil
	}

	iter := s.rdb.Scan(ctx, 0, "nearby:*", batchSize).Iterator()
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) >= batchSize {
			if err := flush(); err != nil {
				observability.ObserveCacheOp(backend, "clear", err, time.Since(start).Seconds())
				return deleted, fmt.Errorf("redis del: %w", err)
			}
		}
	}
	if err := iter.Err(); err != nil {
		observability.ObserveCacheOp(backend, "clear", err, time.Since(start).Seconds())
		return deleted, fmt.Errorf("redis scan: %w", err)
	}
	if err := flush(); err != nil {
		observability.ObserveCacheOp(backend, "clear", err, time.Since(start).Seconds())
		return deleted, fmt.Errorf("redis del: %w", err)
	}

	observability.ObserveCacheOp(backend, "clear", nil, time.Since(start).Seconds())
	return deleted, nil
}

// CleanupExpired is a no-op: Redis evicts expired keys itself.
func (s *Store) CleanupExpired(_ context.Context) (int, error) {
	return 0, nil
}

func (s *Store) Close() error {
	s.closeOnce.Do(func() {
		if err := s.rdb.Close(); err != nil {
			s.logger.Warn("redis close", "err", err)
		}
	})
	return nil
}
