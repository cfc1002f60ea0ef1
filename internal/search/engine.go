// Package search implements the cache-aside orchestration for nearby place
// queries: cache check, provider fan-out, normalization, canonical upsert and
// cache write.
package search

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/chompapp/search-api/internal/cache"
	"github.com/chompapp/search-api/internal/cache/keys"
	"github.com/chompapp/search-api/internal/core/model"
	"github.com/chompapp/search-api/internal/core/observability"
	"github.com/chompapp/search-api/internal/hotqueries"
)

// Provider issues one logical nearby search against the external provider.
type Provider interface {
	SearchNearby(ctx context.Context, q model.GeoQuery, maxResults int) ([]model.ProviderRecord, model.SearchMetadata, error)
}

// Normalizer turns one raw provider record into storable fields. It is
// injected next to the Provider so the engine stays provider-agnostic.
type Normalizer func(rec model.ProviderRecord, fetchedAt time.Time) (model.PlaceFields, error)

// PlaceStore is the canonical upsert store.
type PlaceStore interface {
	UpsertBatch(ctx context.Context, fields []model.PlaceFields) ([]model.Place, error)
	GetByProviderIDs(ctx context.Context, ids []string) ([]model.Place, error)
	HealthCheck(ctx context.Context) error
}

type Engine struct {
	cache     cache.Store
	places    PlaceStore
	provider  Provider
	normalize Normalizer
	hot       *hotqueries.Tracker
	ttl       time.Duration
	logger    *slog.Logger
	now       func() time.Time
}

func NewEngine(c cache.Store, places PlaceStore, provider Provider, normalize Normalizer, hot *hotqueries.Tracker, ttl time.Duration, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		cache:     c,
		places:    places,
		provider:  provider,
		normalize: normalize,
		hot:       hot,
		ttl:       ttl,
		logger:    logger,
		now:       time.Now,
	}
}

// Result is one answered nearby search.
type Result struct {
	Places   []model.Place
	Cached   bool
	CacheKey string
	Meta     *model.SearchMetadata
}

// SearchNearby runs the cache-aside flow. bypassCache skips the cache read
// but still refreshes the entry after a successful fetch. Two concurrent
// misses for the same key may both fetch and both write; last writer wins.
func (e *Engine) SearchNearby(ctx context.Context, q model.GeoQuery, maxResults int, bypassCache bool) (Result, error) {
	key := keys.Nearby(q)
	if e.hot != nil {
		e.hot.Record(key)
	}

	if bypassCache {
		observability.IncCacheBypass()
	} else {
		ids, found, err := e.cache.Get(ctx, key)
		if err != nil {
			return Result{}, fmt.Errorf("%w: cache read: %w", ErrStorage, err)
		}
		if found {
			observability.IncCacheHit()
			// Stale ids whose rows were physically deleted are silently
			// dropped; that is the trade-off of caching ids, not entities.
			places, err := e.places.GetByProviderIDs(ctx, ids)
			if err != nil {
				return Result{}, fmt.Errorf("%w: resolve cached ids: %w", ErrStorage, err)
			}
			e.logger.Info("cache hit", "key", key, "ids", len(ids), "resolved", len(places))
			return Result{Places: places, Cached: true, CacheKey: key}, nil
		}
		observability.IncCacheMiss()
	}

	e.logger.Info("cache miss, querying provider", "key", key, "bypass", bypassCache)

	records, meta, err := e.provider.SearchNearby(ctx, q, maxResults)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrProviderUnavailable, err)
	}

	if len(records) == 0 {
		// An empty result may be a transient blip; caching it would pin the
		// blip for a full TTL, so the next identical request re-queries.
		e.logger.Info("provider returned no places, not caching", "key", key)
		return Result{CacheKey: key, Meta: &meta}, nil
	}

	fetchedAt := e.now().UTC()
	fields := make([]model.PlaceFields, 0, len(records))
	for _, rec := range records {
		f, err := e.normalize(rec, fetchedAt)
		if err != nil {
			e.logger.Warn("skipping undecodable provider record",
				"provider_place_id", rec.ProviderPlaceID, "err", err)
			continue
		}
		fields = append(fields, f)
	}

	places, err := e.places.UpsertBatch(ctx, fields)
	if err != nil {
		return Result{}, fmt.Errorf("%w: upsert batch: %w", ErrStorage, err)
	}

	ids := make([]string, len(places))
	for i, p := range places {
		ids[i] = p.ProviderPlaceID
	}
	if err := e.cache.Set(ctx, key, ids, e.ttl); err != nil {
		return Result{}, fmt.Errorf("%w: cache write: %w", ErrStorage, err)
	}

	e.logger.Info("search stored",
		"key", key, "places", len(places),
		"raw", meta.RawPlaces, "failed_groups", meta.FailedGroups, "truncated", meta.Truncated)

	return Result{Places: places, CacheKey: key, Meta: &meta}, nil
}

// PlaceByProviderID looks a single place up in the canonical store.
func (e *Engine) PlaceByProviderID(ctx context.Context, providerID string) (model.Place, error) {
	places, err := e.places.GetByProviderIDs(ctx, []string{providerID})
	if err != nil {
		return model.Place{}, fmt.Errorf("%w: lookup %q: %w", ErrStorage, providerID, err)
	}
	if len(places) == 0 {
		return model.Place{}, fmt.Errorf("%w: %s", ErrNotFound, providerID)
	}
	return places[0], nil
}

// CleanupCache physically sweeps expired cache entries.
func (e *Engine) CleanupCache(ctx context.Context) (int, error) {
	n, err := e.cache.CleanupExpired(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: cache cleanup: %w", ErrStorage, err)
	}
	return n, nil
}

// ClearCache drops every cache entry regardless of expiry.
func (e *Engine) ClearCache(ctx context.Context) (int, error) {
	n, err := e.cache.Clear(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: cache clear: %w", ErrStorage, err)
	}
	return n, nil
}

// PurgeCacheKeys deletes explicit cache entries, returning how many existed.
func (e *Engine) PurgeCacheKeys(ctx context.Context, cacheKeys []string) (int, error) {
	deleted := 0
	for _, k := range cacheKeys {
		ok, err := e.cache.Delete(ctx, k)
		if err != nil {
			return deleted, fmt.Errorf("%w: purge %q: %w", ErrStorage, k, err)
		}
		if ok {
			deleted++
		}
	}
	return deleted, nil
}

// HotQueries exposes the recent-query tracker, if one is configured.
func (e *Engine) HotQueries() []hotqueries.Entry {
	if e.hot == nil {
		return nil
	}
	return e.hot.Snapshot()
}

// Ready reports whether the canonical store answers.
func (e *Engine) Ready(ctx context.Context) error {
	return e.places.HealthCheck(ctx)
}
