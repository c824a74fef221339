package hashtags

import "strings"

// categoryKeywords maps a grouping category to the tag substrings that place
// a hashtag in it. Categories drive the diversity sampling step; an exact
// taxonomy matters less than a stable one.
var categoryKeywords = map[string][]string{
	"food":      {"coffee", "food", "recipe", "lunch", "dinner", "breakfast", "cafe", "dessert", "icecoffee", "hotchocolate"},
	"travel":    {"travel", "trip", "vacation", "beach", "daytrip", "picnic", "walk"},
	"lifestyle": {"routine", "cozy", "mood", "vibes", "life", "daily", "weekend", "home"},
	"nature":    {"blossom", "bloom", "snow", "sunset", "sunrise", "foliage", "stargazing", "moonlight", "garden"},
	"work":      {"work", "productivity", "goals", "motivation", "hustle", "study"},
	"seasonal":  {"spring", "summer", "autumn", "fall", "winter", "holiday", "pumpkin", "sweater"},
}

// declared iteration order for deterministic derivation
var categoryOrder = []string{"food", "travel", "lifestyle", "nature", "work", "seasonal"}

// DeriveCategory assigns a grouping category to a normalized tag. Tags that
// match nothing land in "general".
func DeriveCategory(tag string) string {
	for _, cat := range categoryOrder {
		for _, kw := range categoryKeywords[cat] {
			if strings.Contains(tag, kw) {
				return cat
			}
		}
	}
	return "general"
}
