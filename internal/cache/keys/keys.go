// Package keys builds cache keys for nearby-search queries. The format is a
// contract shared by every process talking to the same cache backend, so it
// must stay byte-for-byte stable.
package keys

import (
	"fmt"
	"sort"
	"strings"

	"github.com/chompapp/search-api/internal/core/model"
)

// Nearby derives the cache key for a query. Coordinates are rounded to three
// decimals (~100 m) so that nearby callers share entries, and categories are
// sorted so the caller's ordering never matters.
func Nearby(q model.GeoQuery) string {
	cats := make([]string, 0, len(q.Included))
	for _, c := range q.Included {
		c = strings.TrimSpace(c)
		if c != "" {
			cats = append(cats, c)
		}
	}
	sort.Strings(cats)

	return fmt.Sprintf("nearby:%.3f:%.3f:%d:%s", q.Lat, q.Lng, q.RadiusM, strings.Join(cats, ","))
}
