// Package model defines the domain types shared across the service.
package model

import (
	"encoding/json"
	"fmt"
	"time"
)

const (
	MinRadiusM = 100
	MaxRadiusM = 50000
)

// GeoQuery is a validated nearby-search query. Treated as immutable once
// constructed.
type GeoQuery struct {
	Lat      float64
	Lng      float64
	RadiusM  int
	Included []string
}

func (q GeoQuery) Validate() error {
	if q.Lat < -90 || q.Lat > 90 {
		return fmt.Errorf("latitude must be in [-90,90], got %v", q.Lat)
	}
	if q.Lng < -180 || q.Lng > 180 {
		return fmt.Errorf("longitude must be in [-180,180], got %v", q.Lng)
	}
	if q.RadiusM < MinRadiusM || q.RadiusM > MaxRadiusM {
		return fmt.Errorf("radius must be in [%d,%d] meters, got %d", MinRadiusM, MaxRadiusM, q.RadiusM)
	}
	return nil
}

// ProviderRecord is one raw place returned by the discovery provider. It only
// lives for the duration of a fan-out; the payload stays opaque.
type ProviderRecord struct {
	ProviderPlaceID string
	Payload         json.RawMessage
}

// SearchMetadata describes a single provider fan-out, for diagnostics only.
type SearchMetadata struct {
	RequestsMade int  `json:"requests_made"`
	FailedGroups int  `json:"failed_groups"`
	RawPlaces    int  `json:"raw_places"`
	UniquePlaces int  `json:"unique_places"`
	Truncated    bool `json:"truncated"`
}

// PlaceFields carries the normalized, provider-independent fields of one
// place, ready for upsert. Optional fields stay nil when the provider did not
// supply them.
type PlaceFields struct {
	ProviderPlaceID  string
	Name             *string
	FormattedAddress *string
	Lat              *float64
	Lng              *float64
	PrimaryCategory  *string
	Categories       []string
	Rating           *float64
	UserRatingCount  *int
	PriceLevel       *int
	Phone            *string
	Website          *string
	ProviderPayload  json.RawMessage
	LastFetchedAt    time.Time
}

// Place is the canonical stored entity. At most one row exists per
// ProviderPlaceID.
type Place struct {
	ID               string          `json:"id"`
	ProviderPlaceID  string          `json:"provider_place_id"`
	Name             *string         `json:"name,omitempty"`
	FormattedAddress *string         `json:"formatted_address,omitempty"`
	Lat              *float64        `json:"lat,omitempty"`
	Lng              *float64        `json:"lng,omitempty"`
	PrimaryCategory  *string         `json:"primary_category,omitempty"`
	Categories       []string        `json:"categories,omitempty"`
	Rating           *float64        `json:"rating,omitempty"`
	UserRatingCount  *int            `json:"user_rating_count,omitempty"`
	PriceLevel       *int            `json:"price_level,omitempty"`
	Phone            *string         `json:"phone,omitempty"`
	Website          *string         `json:"website,omitempty"`
	ProviderPayload  json.RawMessage `json:"-"`
	LastFetchedAt    time.Time       `json:"last_fetched_at"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}
