// Package observability exposes Prometheus metrics for the service.
package observability

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~20s
		},
		[]string{"method", "route", "status"},
	)

	providerRequestSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "provider_request_duration_seconds",
			Help:    "Latency of individual provider group requests in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		},
		[]string{"outcome"},
	)

	providerGroupFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "provider_group_failures_total",
			Help: "Provider group requests that failed or timed out.",
		},
	)

	cacheOpTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_op_total",
			Help: "Cache backend operations by outcome.",
		},
		[]string{"backend", "op", "outcome"},
	)

	cacheOpSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cache_op_duration_seconds",
			Help:    "Duration of cache backend operations in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
		},
		[]string{"backend", "op"},
	)

	cacheResultsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_results_total",
			Help: "Cache-aside lookups by result.",
		},
		[]string{"result"},
	)

	invalidationTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_invalidation_total",
			Help: "Kafka cache purge events by result.",
		},
		[]string{"result"},
	)

	buildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_build_info",
			Help: "Build information for the binary.",
		},
		[]string{"version"},
	)
)

func ObserveHTTP(method, route string, status int, durationSeconds float64) {
	st := strconv.Itoa(status)
	httpRequestsTotal.WithLabelValues(method, route, st).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route, st).Observe(durationSeconds)
}

func ObserveProviderRequest(err error, durationSeconds float64) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
		providerGroupFailuresTotal.Inc()
	}
	providerRequestSeconds.WithLabelValues(outcome).Observe(durationSeconds)
}

func ObserveCacheOp(backend, op string, err error, durationSeconds float64) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	cacheOpTotal.WithLabelValues(backend, op, outcome).Inc()
	cacheOpSeconds.WithLabelValues(backend, op).Observe(durationSeconds)
}

func IncCacheHit()    { cacheResultsTotal.WithLabelValues("hit").Inc() }
func IncCacheMiss()   { cacheResultsTotal.WithLabelValues("miss").Inc() }
func IncCacheBypass() { cacheResultsTotal.WithLabelValues("bypass").Inc() }

func IncInvalidation(result string) {
	invalidationTotal.WithLabelValues(result).Inc()
}

func ExposeBuildInfo(version string) {
	if version == "" {
		version = "dev"
	}
	buildInfo.WithLabelValues(version).Set(1)
}
