// Package classifier infers a listing's property type from its free text
package classifier

import (
	"strings"

	"realestate/internal/models"
)

// Keywords per property type (lowercase). Types are checked in
// typeOrder, so the more specific ones win.
var Keywords = map[string][]string{
	models.TypeCommercial: {
		"commercial", "retail", "office space", "office building", "warehouse",
		"storefront", "restaurant", "mixed use", "mixed-use", "industrial",
	},
	models.TypeLand: {
		"vacant lot", "land", "acre", "acreage", "buildable lot", "parcel", "farmland",
	},
	models.TypeCondo: {
		"condo", "condominium", "penthouse", "loft",
	},
	models.TypeTownhouse: {
		"townhouse", "townhome", "town home", "row house", "rowhouse", "duplex",
	},
	models.TypeApartment: {
		"apartment", "flat", "studio", "unit in", "walk-up",
	},
	models.TypeHouse: {
		"house", "single family", "single-family", "detached", "bungalow",
		"cottage", "ranch", "colonial", "victorian", "cabin", "villa", "home",
	},
}

var typeOrder = []string{
	models.TypeCommercial,
	models.TypeLand,
	models.TypeCondo,
	models.TypeTownhouse,
	models.TypeApartment,
	models.TypeHouse,
}

// NeverLandKeywords rule out the land type even when "land" or "acre" appears,
// as in "landscaped" or "island kitchen".
var NeverLandKeywords = []string{
	"landscap", "island", "landing", "bedroom", "bathroom",
}

// ClassifyListings fills PropertyType on listings that have none
func ClassifyListings(listings []models.Listing) []models.Listing {
	for i := range listings {
		if strings.TrimSpace(listings[i].PropertyType) == "" {
			listings[i].PropertyType = Classify(listings[i].Title, listings[i].Description)
		}
	}
	return listings
}

// Classify returns the property type best matching title and description.
// The title is checked first; TypeOther is returned when nothing matches.
func Classify(title, description string) string {
	for _, text := range []string{title, description} {
		if t := classifyText(strings.ToLower(strings.TrimSpace(text))); t != "" {
			return t
		}
	}
	return models.TypeOther
}

// classifyText returns the first type with a matching keyword, or ""
func classifyText(text string) string {
	if text == "" {
		return ""
	}
	for _, t := range typeOrder {
		if t == models.TypeLand && containsAny(text, NeverLandKeywords) {
			continue
		}
		if containsAny(text, Keywords[t]) {
			return t
		}
	}
	return ""
}

// NormalizeType maps free-form type labels ("Single Family", "Condominium")
// onto the known property types
func NormalizeType(label string) string {
	label = strings.ToLower(strings.TrimSpace(label))
	if label == "" {
		return ""
	}
	for _, t := range typeOrder {
		if label == t {
			return t
		}
	}
	if t := classifyText(label); t != "" {
		return t
	}
	return models.TypeOther
}

// containsAny checks if text contains any of the keywords
func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
