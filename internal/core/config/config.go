// Package config loads service configuration from the environment.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

type InvalidationCfg struct {
	Enabled bool
	Brokers string
	Topic   string
	GroupID string
}

type Config struct {
	Addr     string
	LogLevel string

	DatabaseURL  string
	CacheBackend string // "postgres" or "redis"
	RedisAddr    string
	CacheTTL     time.Duration

	PlacesAPIKey  string
	PlacesBaseURL string
	GroupTimeout  time.Duration
	MaxGroups     int

	DefaultRadiusM    int
	DefaultMaxResults int

	HotQuerySize int

	Invalidation InvalidationCfg
}

func FromEnv() Config {
	return Config{
		Addr:     getenv("ADDR", ":8080"),
		LogLevel: getenv("LOG_LEVEL", "info"),

		DatabaseURL:  getenv("DATABASE_URL", ""),
		CacheBackend: strings.ToLower(getenv("CACHE_BACKEND", "postgres")),
		RedisAddr:    getenv("REDIS_ADDR", ""),
		CacheTTL:     getduration("CACHE_TTL", 15*time.Minute),

		PlacesAPIKey:  getenv("PLACES_API_KEY", ""),
		PlacesBaseURL: getenv("PLACES_BASE_URL", "https://places.googleapis.com/v1"),
		GroupTimeout:  getduration("GROUP_TIMEOUT", 10*time.Second),
		MaxGroups:     getint("MAX_GROUPS", 15),

		DefaultRadiusM:    getint("DEFAULT_RADIUS_M", 1500),
		DefaultMaxResults: getint("DEFAULT_MAX_RESULTS", 300),

		HotQuerySize: getint("HOT_QUERY_SIZE", 256),

		Invalidation: InvalidationCfg{
			Enabled: getbool("INVALIDATION_ENABLED", false),
			Brokers: getenv("KAFKA_BROKERS", "localhost:9092"),
			Topic:   getenv("KAFKA_TOPIC", "search-cache-purge"),
			GroupID: getenv("KAFKA_GROUP_ID", "search-api-cache-purge"),
		},
	}
}

// Validate rejects configurations the service cannot start with. A cache
// backend selected without its connection info is fatal here rather than on
// the first request.
func (c Config) Validate() error {
	if c.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}
	if c.PlacesAPIKey == "" {
		return errors.New("PLACES_API_KEY is required")
	}
	switch c.CacheBackend {
	case "postgres":
	case "redis":
		if c.RedisAddr == "" {
			return errors.New("REDIS_ADDR is required when CACHE_BACKEND=redis")
		}
	default:
		return errors.New("CACHE_BACKEND must be postgres or redis")
	}
	return nil
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "t", "true", "y", "yes":
			return true
		case "0", "f", "false", "n", "no":
			return false
		}
	}
	return def
}

func getduration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
