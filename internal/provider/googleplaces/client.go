// Package googleplaces calls the Places Nearby Search API. One logical search
// fans out into several concurrent grouped requests whose results are merged
// and deduplicated by provider place id.
package googleplaces

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/chompapp/search-api/internal/core/model"
	"github.com/chompapp/search-api/internal/core/observability"
)

type Config struct {
	BaseURL      string
	APIKey       string
	GroupTimeout time.Duration
	MaxGroups    int
}

type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

func New(cfg Config, httpClient *http.Client, logger *slog.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("provider base url is required")
	}
	if cfg.APIKey == "" {
		return nil, errors.New("provider api key is required")
	}
	if cfg.GroupTimeout <= 0 {
		cfg.GroupTimeout = 10 * time.Second
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{cfg: cfg, http: httpClient, logger: logger}, nil
}

// SearchNearby issues all group requests concurrently and waits for every one
// to settle. A failing or timed-out group contributes zero records; the whole
// search fails only when no group produced a response.
func (c *Client) SearchNearby(ctx context.Context, q model.GeoQuery, maxResults int) ([]model.ProviderRecord, model.SearchMetadata, error) {
	groups := typeGroups(q.Included, c.cfg.MaxGroups)

	c.logger.Debug("provider fan-out starting",
		"groups", len(groups), "lat", q.Lat, "lng", q.Lng, "radius_m", q.RadiusM)

	var (
		mu       sync.Mutex
		seen     = map[string]struct{}{}
		merged   []model.ProviderRecord
		rawCount int
		failed   int
	)

	g, gctx := errgroup.WithContext(ctx)
	for _, types := range groups {
		types := types
		g.Go(func() error {
			records, err := c.fetchGroup(gctx, q, types)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed++
				c.logger.Warn("provider group request failed",
					"types", strings.Join(types, ","), "err", err)
				return nil
			}
			rawCount += len(records)
			for _, rec := range records {
				if rec.ProviderPlaceID == "" {
					continue
				}
				if _, dup := seen[rec.ProviderPlaceID]; dup {
					continue
				}
				seen[rec.ProviderPlaceID] = struct{}{}
				merged = append(merged, rec)
			}
			return nil
		})
	}
	_ = g.Wait() // group errors are absorbed above

	meta := model.SearchMetadata{
		RequestsMade: len(groups),
		FailedGroups: failed,
		RawPlaces:    rawCount,
		UniquePlaces: len(merged),
	}

	if failed == len(groups) {
		return nil, meta, fmt.Errorf("all %d provider group requests failed", len(groups))
	}

	if maxResults > 0 && len(merged) > maxResults {
		merged = merged[:maxResults]
		meta.Truncated = true
	}

	c.logger.Info("provider fan-out finished",
		"groups", len(groups), "failed", failed,
		"raw", rawCount, "unique", meta.UniquePlaces, "truncated", meta.Truncated)

	return merged, meta, nil
}

type nearbyRequest struct {
	LocationRestriction locationRestriction `json:"locationRestriction"`
	IncludedTypes       []string            `json:"includedTypes"`
	MaxResultCount      int                 `json:"maxResultCount"`
	RankPreference      string              `json:"rankPreference"`
}

type locationRestriction struct {
	Circle circle `json:"circle"`
}

type circle struct {
	Center latLng  `json:"center"`
	Radius float64 `json:"radius"`
}

type latLng struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// fetchGroup issues one searchNearby request restricted to the given types,
// with its own timeout independent of sibling groups.
func (c *Client) fetchGroup(ctx context.Context, q model.GeoQuery, types []string) ([]model.ProviderRecord, error) {
	body, err := json.Marshal(nearbyRequest{
		LocationRestriction: locationRestriction{
			Circle: circle{
				Center: latLng{Latitude: q.Lat, Longitude: q.Lng},
				Radius: float64(q.RadiusM),
			},
		},
		IncludedTypes:  types,
		MaxResultCount: perRequestLimit,
		RankPreference: "DISTANCE",
	})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.cfg.GroupTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost,
		c.cfg.BaseURL+"/places:searchNearby", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Goog-Api-Key", c.cfg.APIKey)
	req.Header.Set("X-Goog-FieldMask", nearbyFieldMask)

	start := time.Now()
	resp, err := c.http.Do(req)
	observability.ObserveProviderRequest(err, time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return nil, fmt.Errorf("provider status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	var payload struct {
		Places []json.RawMessage `json:"places"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	records := make([]model.ProviderRecord, 0, len(payload.Places))
	for _, raw := range payload.Places {
		var hdr struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(raw, &hdr); err != nil || hdr.ID == "" {
			continue
		}
		records = append(records, model.ProviderRecord{ProviderPlaceID: hdr.ID, Payload: raw})
	}
	return records, nil
}
