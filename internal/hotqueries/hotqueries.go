// Package hotqueries keeps a small LRU of recently requested cache keys with
// hit counts, for the admin surface. Purely observational.
package hotqueries

import (
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
)

type Entry struct {
	Key  string `json:"key"`
	Hits int64  `json:"hits"`
}

type Tracker struct {
	cache *lru.Cache[string, *atomic.Int64]
}

func New(size int) (*Tracker, error) {
	if size <= 0 {
		size = 256
	}
	c, err := lru.New[string, *atomic.Int64](size)
	if err != nil {
		return nil, err
	}
	return &Tracker{cache: c}, nil
}

func (t *Tracker) Record(key string) {
	if n, ok := t.cache.Get(key); ok {
		n.Add(1)
		return
	}
	n := &atomic.Int64{}
	n.Add(1)
	t.cache.Add(key, n)
}

// Snapshot returns the tracked keys, most recently used last.
func (t *Tracker) Snapshot() []Entry {
	ks := t.cache.Keys()
	out := make([]Entry, 0, len(ks))
	for _, k := range ks {
		if n, ok := t.cache.Peek(k); ok {
			out = append(out, Entry{Key: k, Hits: n.Load()})
		}
	}
	return out
}
