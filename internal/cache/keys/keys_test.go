package keys

import (
	"testing"

	"github.com/chompapp/search-api/internal/core/model"
)

func TestNearby_Format(t *testing.T) {
	q := model.GeoQuery{Lat: 40.7128, Lng: -74.0060, RadiusM: 1500, Included: []string{"cafe", "bar"}}
	got := Nearby(q)
	want := "nearby:40.713:-74.006:1500:bar,cafe"
	if got != want {
		t.Fatalf("key = %q, want %q", got, want)
	}
}

func TestNearby_SubPrecisionCoordinatesShareKey(t *testing.T) {
	q1 := model.GeoQuery{Lat: 40.71281, Lng: -74.00604, RadiusM: 1500}
	q2 := model.GeoQuery{Lat: 40.71279, Lng: -74.00596, RadiusM: 1500}
	if Nearby(q1) != Nearby(q2) {
		t.Fatalf("keys differ for sub-precision coordinates:\n %s\n %s", Nearby(q1), Nearby(q2))
	}
}

func TestNearby_CategoryOrderIndependent(t *testing.T) {
	q1 := model.GeoQuery{Lat: 59.329, Lng: 18.068, RadiusM: 2000, Included: []string{"restaurant", "cafe", "bar"}}
	q2 := model.GeoQuery{Lat: 59.329, Lng: 18.068, RadiusM: 2000, Included: []string{"bar", "restaurant", "cafe"}}
	if Nearby(q1) != Nearby(q2) {
		t.Fatalf("keys differ for reordered categories:\n %s\n %s", Nearby(q1), Nearby(q2))
	}
}

func TestNearby_NoCategories(t *testing.T) {
	q := model.GeoQuery{Lat: 0, Lng: 0, RadiusM: 100}
	got := Nearby(q)
	want := "nearby:0.000:0.000:100:"
	if got != want {
		t.Fatalf("key = %q, want %q", got, want)
	}
}

func TestNearby_DifferentRadiusDifferentKey(t *testing.T) {
	q1 := model.GeoQuery{Lat: 40.713, Lng: -74.006, RadiusM: 1500}
	q2 := model.GeoQuery{Lat: 40.713, Lng: -74.006, RadiusM: 3000}
	if Nearby(q1) == Nearby(q2) {
		t.Fatalf("different radii must produce different keys")
	}
}
