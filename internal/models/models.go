package models

import "time"

// TrendSource identifies which kind of source produced a trend candidate.
type TrendSource string

const (
	SourceNews      TrendSource = "news"
	SourceSocial    TrendSource = "social"
	SourceSearch    TrendSource = "search"
	SourceSeasonal  TrendSource = "seasonal"
	SourceTimeOfDay TrendSource = "timeofday"
)

// TrendCandidate is a scored topic proposed by one or more sources within a
// single aggregation run. Candidates from different sources are merged by
// normalized title before an ID is assigned.
type TrendCandidate struct {
	ID        string      `json:"id"`
	Title     string      `json:"title"`
	Category  TrendSource `json:"category"`
	Score     float64     `json:"score"`
	GrowthPct int         `json:"growth_pct"`
	Hashtags  []string    `json:"hashtags"`
	LastSeen  time.Time   `json:"last_seen"`
}

// FeedItem is a raw entry returned by an external feed before scoring.
type FeedItem struct {
	Title     string `json:"title"`
	GrowthPct int    `json:"growth_pct"`
	URL       string `json:"url"`
}

// HashtagAffinity tracks how often and how recently a user has used a tag.
// Tags are stored normalized: lower-case, no leading '#'.
type HashtagAffinity struct {
	Tag        string    `json:"tag"`
	UsageCount int       `json:"usage_count"`
	LastUsedAt time.Time `json:"last_used_at"`
	Category   string    `json:"category"`
}

// Post is a read-only view of one entry in the user's post history.
type Post struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Hashtags  []string  `json:"hashtags"`
	Category  string    `json:"category"`
	Tone      string    `json:"tone"`
	CreatedAt time.Time `json:"created_at"`
}

// SearchQuery is one entry from the user's recent search history.
type SearchQuery struct {
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Locale carries the device language and region used to select presets.
type Locale struct {
	LanguageCode string `json:"language_code"`
	RegionCode   string `json:"region_code"`
}

// StyleReport is the result of analyzing a user's post corpus. It is a pure
// view over the current PostHistory snapshot and is always re-derivable.
type StyleReport struct {
	DominantArchetypeID string             `json:"dominant_archetype_id"`
	ArchetypeScores     map[string]float64 `json:"archetype_scores"`
	Consistency         int                `json:"consistency"`
	Diversity           int                `json:"diversity"`
	Recommendations     []string           `json:"recommendations"`
}
