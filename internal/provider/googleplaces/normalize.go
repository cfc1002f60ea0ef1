package googleplaces

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/chompapp/search-api/internal/core/model"
)

// priceLevelScale maps the provider's enumerated price tier onto a small
// integer scale. Unrecognized tiers map to absent, never to zero.
var priceLevelScale = map[string]int{
	"PRICE_LEVEL_FREE":           0,
	"PRICE_LEVEL_INEXPENSIVE":    1,
	"PRICE_LEVEL_MODERATE":       2,
	"PRICE_LEVEL_EXPENSIVE":      3,
	"PRICE_LEVEL_VERY_EXPENSIVE": 4,
}

type providerPlace struct {
	ID          string `json:"id"`
	DisplayName *struct {
		Text string `json:"text"`
	} `json:"displayName"`
	FormattedAddress *string `json:"formattedAddress"`
	Location         *struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	} `json:"location"`
	Types               []string `json:"types"`
	PrimaryType         *string  `json:"primaryType"`
	Rating              *float64 `json:"rating"`
	UserRatingCount     *int     `json:"userRatingCount"`
	PriceLevel          string   `json:"priceLevel"`
	NationalPhoneNumber *string  `json:"nationalPhoneNumber"`
	WebsiteURI          *string  `json:"websiteUri"`
}

// Normalize maps one raw provider payload into canonical place fields. Fields
// the provider omitted stay nil; the raw payload rides along as an opaque
// blob.
func Normalize(rec model.ProviderRecord, fetchedAt time.Time) (model.PlaceFields, error) {
	var p providerPlace
	if err := json.Unmarshal(rec.Payload, &p); err != nil {
		return model.PlaceFields{}, fmt.Errorf("decode place %q: %w", rec.ProviderPlaceID, err)
	}

	f := model.PlaceFields{
		ProviderPlaceID:  rec.ProviderPlaceID,
		FormattedAddress: p.FormattedAddress,
		Categories:       p.Types,
		PrimaryCategory:  p.PrimaryType,
		Rating:           p.Rating,
		UserRatingCount:  p.UserRatingCount,
		Phone:            p.NationalPhoneNumber,
		Website:          p.WebsiteURI,
		ProviderPayload:  rec.Payload,
		LastFetchedAt:    fetchedAt,
	}
	if p.DisplayName != nil && p.DisplayName.Text != "" {
		name := p.DisplayName.Text
		f.Name = &name
	}
	if p.Location != nil {
		lat, lng := p.Location.Latitude, p.Location.Longitude
		f.Lat, f.Lng = &lat, &lng
	}
	if lvl, ok := priceLevelScale[p.PriceLevel]; ok {
		f.PriceLevel = &lvl
	}
	return f, nil
}
