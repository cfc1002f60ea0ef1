// Package health exposes the liveness and readiness probes.
package health

import (
	"context"
	"encoding/json"
	"net/http"
)

// Checker reports whether the service's hard dependencies answer.
type Checker interface {
	Ready(ctx context.Context) error
}

func Liveness() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}
}

func Readiness(c Checker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := c.Ready(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]string{"status": "degraded", "database": "disconnected"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "healthy", "database": "connected"})
	}
}
