package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/chompapp/search-api/internal/core/config"
	"github.com/chompapp/search-api/internal/core/health"
	middleware "github.com/chompapp/search-api/internal/core/middleware"
	"github.com/chompapp/search-api/internal/core/router"
)

// sets up http and starts serving
func Run(ctx context.Context, cfg config.Config, logger *slog.Logger, engine router.Searcher) error {
	h := router.New(engine, cfg, logger)

	r := chi.NewRouter()
	r.Use(middleware.Recover())
	r.Use(middleware.Logging(logger))
	r.Use(middleware.CORS())

	r.Get("/healthz", health.Liveness())
	r.Get("/readyz", health.Readiness(engine))
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/nearby", h.NearbyPost)
		r.Get("/nearby", h.NearbyGet)
		r.Get("/places/{providerID}", h.PlaceGet)

		r.Route("/admin", func(r chi.Router) {
			r.Post("/cache/cleanup", h.AdminCleanupCache)
			r.Post("/cache/clear-all", h.AdminClearAllCache)
			r.Post("/cache/purge", h.AdminPurgeCache)
			r.Get("/hot-queries", h.AdminHotQueries)
		})
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http listen", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		return err
	}
}
