// Package invalidation defines the cache purge event carried on the
// invalidation topic. Producers know the exact cache keys they touched, so
// events name keys directly instead of describing regions.
package invalidation

import (
	"fmt"
	"strings"
	"time"
)

type Event struct {
	Version int       `json:"version"`
	Op      string    `json:"op"`
	Keys    []string  `json:"keys"`
	Source  string    `json:"source,omitempty"`
	TS      time.Time `json:"ts"`
}

func (e Event) Validate() error {
	if e.Version != 1 {
		return fmt.Errorf("version must be 1")
	}
	if e.Op != "purge" {
		return fmt.Errorf("op must be purge")
	}
	if e.TS.IsZero() {
		return fmt.Errorf("ts is required")
	}
	if len(e.Keys) == 0 {
		return fmt.Errorf("keys is required")
	}
	for _, k := range e.Keys {
		if strings.TrimSpace(k) == "" {
			return fmt.Errorf("keys must not contain blank entries")
		}
	}
	return nil
}
