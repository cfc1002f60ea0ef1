package googleplaces

import "strings"

// The provider bills per field category, so the mask requests only what the
// normalizer consumes.
var nearbyFieldMask = strings.Join([]string{
	"places.id",
	"places.displayName",
	"places.formattedAddress",
	"places.location",
	"places.types",
	"places.primaryType",
	"places.nationalPhoneNumber",
	"places.websiteUri",
	"places.rating",
	"places.userRatingCount",
	"places.priceLevel",
}, ",")

// Default food-related type groups, one provider request each. Each group
// targets a different slice of cuisines so the union covers the area well.
var defaultTypeGroups = [][]string{
	{"restaurant"},
	{"american_restaurant", "hamburger_restaurant", "steak_house"},
	{"italian_restaurant", "pizza_restaurant"},
	{"mexican_restaurant", "spanish_restaurant"},
	{"chinese_restaurant", "japanese_restaurant", "sushi_restaurant"},
	{"korean_restaurant", "thai_restaurant", "vietnamese_restaurant"},
	{"indian_restaurant", "mediterranean_restaurant", "greek_restaurant"},
	{"fast_food_restaurant", "sandwich_shop", "meal_takeaway"},
	{"cafe", "coffee_shop", "bakery"},
	{"ice_cream_shop", "bar", "juice_shop"},
	{"vegan_restaurant", "vegetarian_restaurant"},
	{"middle_eastern_restaurant", "french_restaurant"},
	{"seafood_restaurant"},
	{"barbecue_restaurant", "ramen_restaurant"},
	{"breakfast_restaurant", "brunch_restaurant"},
}

const (
	// provider-side cap per request
	perRequestLimit = 20
	// cap on explicit caller-supplied types in the single request
	maxTypesPerRequest = 10
)

// typeGroups picks the request plan: explicit categories go out as exactly
// one request, otherwise one request per default group capped at maxGroups.
func typeGroups(included []string, maxGroups int) [][]string {
	if len(included) > 0 {
		if len(included) > maxTypesPerRequest {
			included = included[:maxTypesPerRequest]
		}
		return [][]string{included}
	}
	groups := defaultTypeGroups
	if maxGroups > 0 && len(groups) > maxGroups {
		groups = groups[:maxGroups]
	}
	return groups
}
