// Package router validates incoming requests and maps engine results and
// errors onto the HTTP surface.
package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/chompapp/search-api/internal/core/config"
	"github.com/chompapp/search-api/internal/core/model"
	"github.com/chompapp/search-api/internal/core/observability"
	"github.com/chompapp/search-api/internal/hotqueries"
	"github.com/chompapp/search-api/internal/search"
)

// Searcher is the engine surface the HTTP layer consumes.
type Searcher interface {
	SearchNearby(ctx context.Context, q model.GeoQuery, maxResults int, bypassCache bool) (search.Result, error)
	PlaceByProviderID(ctx context.Context, providerID string) (model.Place, error)
	CleanupCache(ctx context.Context) (int, error)
	ClearCache(ctx context.Context) (int, error)
	PurgeCacheKeys(ctx context.Context, keys []string) (int, error)
	HotQueries() []hotqueries.Entry
	Ready(ctx context.Context) error
}

type Handler struct {
	engine Searcher
	cfg    config.Config
	logger *slog.Logger
}

func New(engine Searcher, cfg config.Config, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{engine: engine, cfg: cfg, logger: logger}
}

type locationInput struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type nearbyRequest struct {
	Location           locationInput `json:"location"`
	Radius             int           `json:"radius"`
	MaxResults         int           `json:"max_results"`
	IncludedCategories []string      `json:"included_categories"`
}

type nearbyResponse struct {
	Places   []model.Place         `json:"places"`
	Count    int                   `json:"count"`
	Cached   bool                  `json:"cached"`
	CacheKey string                `json:"cache_key"`
	Metadata *model.SearchMetadata `json:"metadata,omitempty"`
}

func (h *Handler) NearbyPost(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
	defer func() {
		observability.ObserveHTTP(r.Method, "/api/v1/nearby", sw.code, time.Since(start).Seconds())
	}()

	var req nearbyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(sw, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	q, maxResults, err := h.queryFromRequest(req)
	if err != nil {
		writeError(sw, http.StatusBadRequest, err.Error())
		return
	}

	h.serveNearby(sw, r, q, maxResults)
}

func (h *Handler) NearbyGet(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
	defer func() {
		observability.ObserveHTTP(r.Method, "/api/v1/nearby", sw.code, time.Since(start).Seconds())
	}()

	req, err := parseNearbyParams(r)
	if err != nil {
		writeError(sw, http.StatusBadRequest, err.Error())
		return
	}
	q, maxResults, err := h.queryFromRequest(req)
	if err != nil {
		writeError(sw, http.StatusBadRequest, err.Error())
		return
	}

	h.serveNearby(sw, r, q, maxResults)
}

func (h *Handler) serveNearby(w http.ResponseWriter, r *http.Request, q model.GeoQuery, maxResults int) {
	bypass := strings.EqualFold(r.Header.Get("X-Skip-Cache"), "true")

	res, err := h.engine.SearchNearby(r.Context(), q, maxResults, bypass)
	if err != nil {
		switch {
		case errors.Is(err, search.ErrProviderUnavailable):
			h.logger.Error("provider unavailable", "err", err)
			writeError(w, http.StatusServiceUnavailable, "place search temporarily unavailable")
		default:
			h.logger.Error("nearby search failed", "err", err)
			writeError(w, http.StatusInternalServerError, "failed to process search results")
		}
		return
	}

	places := res.Places
	if places == nil {
		places = []model.Place{}
	}
	writeJSON(w, http.StatusOK, nearbyResponse{
		Places:   places,
		Count:    len(places),
		Cached:   res.Cached,
		CacheKey: res.CacheKey,
		Metadata: res.Meta,
	})
}

func (h *Handler) PlaceGet(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
	defer func() {
		observability.ObserveHTTP(r.Method, "/api/v1/places/{providerID}", sw.code, time.Since(start).Seconds())
	}()

	providerID := chi.URLParam(r, "providerID")
	place, err := h.engine.PlaceByProviderID(r.Context(), providerID)
	if err != nil {
		switch {
		case errors.Is(err, search.ErrNotFound):
			writeError(sw, http.StatusNotFound, "place not found")
		default:
			h.logger.Error("place lookup failed", "provider_place_id", providerID, "err", err)
			writeError(sw, http.StatusInternalServerError, "place lookup failed")
		}
		return
	}
	writeJSON(sw, http.StatusOK, place)
}

func (h *Handler) AdminCleanupCache(w http.ResponseWriter, r *http.Request) {
	n, err := h.engine.CleanupCache(r.Context())
	if err != nil {
		h.logger.Error("cache cleanup failed", "err", err)
		writeError(w, http.StatusInternalServerError, "cache cleanup failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"deleted_entries": n})
}

func (h *Handler) AdminClearAllCache(w http.ResponseWriter, r *http.Request) {
	n, err := h.engine.ClearCache(r.Context())
	if err != nil {
		h.logger.Error("cache clear failed", "err", err)
		writeError(w, http.StatusInternalServerError, "cache clear failed")
		return
	}
	h.logger.Info("cleared all cache entries", "deleted_entries", n)
	writeJSON(w, http.StatusOK, map[string]int{"deleted_entries": n})
}

func (h *Handler) AdminPurgeCache(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Keys []string `json:"keys"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Keys) == 0 {
		writeError(w, http.StatusBadRequest, "body must contain a non-empty keys list")
		return
	}
	n, err := h.engine.PurgeCacheKeys(r.Context(), req.Keys)
	if err != nil {
		h.logger.Error("cache purge failed", "err", err)
		writeError(w, http.StatusInternalServerError, "cache purge failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"deleted_entries": n})
}

func (h *Handler) AdminHotQueries(w http.ResponseWriter, _ *http.Request) {
	entries := h.engine.HotQueries()
	if entries == nil {
		entries = []hotqueries.Entry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"queries": entries})
}

// queryFromRequest applies defaults and validates the final query.
func (h *Handler) queryFromRequest(req nearbyRequest) (model.GeoQuery, int, error) {
	radius := req.Radius
	if radius == 0 {
		radius = h.cfg.DefaultRadiusM
	}
	maxResults := req.MaxResults
	if maxResults == 0 {
		maxResults = h.cfg.DefaultMaxResults
	}
	if maxResults < 1 || maxResults > h.cfg.DefaultMaxResults {
		return model.GeoQuery{}, 0, fmt.Errorf("max_results must be in [1,%d]", h.cfg.DefaultMaxResults)
	}

	q := model.GeoQuery{
		Lat:      req.Location.Lat,
		Lng:      req.Location.Lng,
		RadiusM:  radius,
		Included: req.IncludedCategories,
	}
	if err := q.Validate(); err != nil {
		return model.GeoQuery{}, 0, err
	}
	return q, maxResults, nil
}

func parseNearbyParams(r *http.Request) (nearbyRequest, error) {
	var req nearbyRequest

	lat, err := requiredFloat(r, "lat")
	if err != nil {
		return req, err
	}
	lng, err := requiredFloat(r, "lng")
	if err != nil {
		return req, err
	}
	req.Location = locationInput{Lat: lat, Lng: lng}

	if v := r.URL.Query().Get("radius"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return req, fmt.Errorf("invalid radius: %q", v)
		}
		req.Radius = n
	}
	if v := r.URL.Query().Get("max_results"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return req, fmt.Errorf("invalid max_results: %q", v)
		}
		req.MaxResults = n
	}
	if v := strings.TrimSpace(r.URL.Query().Get("categories")); v != "" {
		for _, c := range strings.Split(v, ",") {
			if c = strings.TrimSpace(c); c != "" {
				req.IncludedCategories = append(req.IncludedCategories, c)
			}
		}
	}
	return req, nil
}

func requiredFloat(r *http.Request, name string) (float64, error) {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return 0, fmt.Errorf("missing required parameter: %s", name)
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", name, v)
	}
	return f, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}
