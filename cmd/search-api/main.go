package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/chompapp/search-api/internal/cache"
	"github.com/chompapp/search-api/internal/cache/pgstore"
	"github.com/chompapp/search-api/internal/cache/redisstore"
	"github.com/chompapp/search-api/internal/core/config"
	"github.com/chompapp/search-api/internal/core/httpclient"
	"github.com/chompapp/search-api/internal/core/observability"
	"github.com/chompapp/search-api/internal/core/server"
	"github.com/chompapp/search-api/internal/hotqueries"
	"github.com/chompapp/search-api/internal/invalidation/kafkaconsumer"
	"github.com/chompapp/search-api/internal/logger"
	"github.com/chompapp/search-api/internal/provider/googleplaces"
	"github.com/chompapp/search-api/internal/search"
	"github.com/chompapp/search-api/internal/storage/placestore"
)

var Version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	_ = godotenv.Load()

	cfg := config.FromEnv()

	zl := logger.Build(logger.Config{
		Level:     cfg.LogLevel,
		Console:   strings.ToLower(os.Getenv("LOG_CONSOLE")) == "true",
		Component: "search-api",
	}, os.Stdout)
	appLog := logger.NewSlog(&zl)

	if err := cfg.Validate(); err != nil {
		appLog.Error("invalid configuration", "err", err)
		return 1
	}

	observability.ExposeBuildInfo(Version)
	appLog.Info("starting search-api",
		"addr", cfg.Addr,
		"version", Version,
		"cache_backend", cfg.CacheBackend,
		"cache_ttl", cfg.CacheTTL)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		appLog.Error("failed to create postgres pool", "err", err)
		return 1
	}
	defer pool.Close()

	places := placestore.New(pool)

	var cacheStore cache.Store
	switch cfg.CacheBackend {
	case "redis":
		cacheStore, err = redisstore.New(ctx, cfg.RedisAddr, appLog)
		if err != nil {
			appLog.Error("failed to connect to redis", "err", err)
			return 1
		}
	default:
		cacheStore = pgstore.New(pool)
	}
	defer func() { _ = cacheStore.Close() }()

	provider, err := googleplaces.New(googleplaces.Config{
		BaseURL:      cfg.PlacesBaseURL,
		APIKey:       cfg.PlacesAPIKey,
		GroupTimeout: cfg.GroupTimeout,
		MaxGroups:    cfg.MaxGroups,
	}, httpclient.NewOutbound(), appLog)
	if err != nil {
		appLog.Error("failed to initialize places provider", "err", err)
		return 1
	}

	hot, err := hotqueries.New(cfg.HotQuerySize)
	if err != nil {
		appLog.Error("failed to initialize hot query tracker", "err", err)
		return 1
	}

	engine := search.NewEngine(cacheStore, places, provider, googleplaces.Normalize, hot, cfg.CacheTTL, appLog)

	// Expired pg-cache rows are only evicted logically at read time, so sweep
	// them once on boot before the admin endpoint takes over.
	if n, err := engine.CleanupCache(ctx); err != nil {
		appLog.Warn("startup cache sweep failed", "err", err)
	} else if n > 0 {
		appLog.Info("startup cache sweep", "deleted_entries", n)
	}

	if cfg.Invalidation.Enabled {
		consumer := kafkaconsumer.New(kafkaconsumer.FromAppConfig(cfg.Invalidation), appLog, cacheStore)
		go func() {
			if err := consumer.Start(ctx); err != nil {
				appLog.Error("cache purge consumer exited", "err", err)
			}
		}()
	}

	if err := server.Run(ctx, cfg, appLog, engine); err != nil {
		appLog.Error("server exited with error", "err", err)
		return 1
	}
	appLog.Info("server stopped")
	return 0
}
