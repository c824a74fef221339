package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the personalization engine.
type Config struct {
	// Server configuration (demo binary only)
	Port  string
	Debug bool

	// Locale defaults used when the caller does not supply one
	LanguageCode string
	RegionCode   string

	// External feed configuration
	NewsFeedURL      string
	SocialFeedURL    string
	SearchFeedURL    string
	EnableNewsFeed   bool
	EnableSocialFeed bool
	EnableSearchFeed bool
	LiveFeeds        bool
	SourceTimeout    time.Duration

	// Storage configuration
	DataDir string

	// Recommendation configuration
	DefaultRecommendCount int
	RecentQueryLimit      int
	FallbackHashtags      []string
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:  getEnv("PORT", "8080"),
		Debug: getBoolEnv("DEBUG", false),

		LanguageCode: getEnv("LANGUAGE_CODE", "en"),
		RegionCode:   getEnv("REGION_CODE", "US"),

		NewsFeedURL:      getEnv("NEWS_FEED_URL", ""),
		SocialFeedURL:    getEnv("SOCIAL_FEED_URL", ""),
		SearchFeedURL:    getEnv("SEARCH_FEED_URL", ""),
		EnableNewsFeed:   getBoolEnv("ENABLE_NEWS_FEED", true),
		EnableSocialFeed: getBoolEnv("ENABLE_SOCIAL_FEED", true),
		EnableSearchFeed: getBoolEnv("ENABLE_SEARCH_FEED", true),
		LiveFeeds:        getBoolEnv("LIVE_FEEDS", false),
		SourceTimeout:    time.Duration(getIntEnv("SOURCE_TIMEOUT_SECONDS", 6)) * time.Second,

		DataDir: getEnv("DATA_DIR", "./data"),

		DefaultRecommendCount: getIntEnv("DEFAULT_RECOMMEND_COUNT", 5),
		RecentQueryLimit:      getIntEnv("RECENT_QUERY_LIMIT", 10),
		FallbackHashtags: getSliceEnv("FALLBACK_HASHTAGS", []string{
			"daily", "mood", "inspiration", "writing", "today",
		}),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// TrendTTL returns the cache lifetime for aggregated trends. Live feeds churn
// faster, so cached results expire sooner.
func (c *Config) TrendTTL() time.Duration {
	if c.LiveFeeds {
		return 30 * time.Minute
	}
	return 4 * time.Hour
}

func (c *Config) validate() error {
	if c.SourceTimeout < time.Second || c.SourceTimeout > 30*time.Second {
		return fmt.Errorf("SOURCE_TIMEOUT_SECONDS must be between 1 and 30")
	}

	if c.EnableNewsFeed && c.NewsFeedURL == "" {
		return fmt.Errorf("NEWS_FEED_URL is required when ENABLE_NEWS_FEED is set")
	}

	if c.EnableSocialFeed && c.SocialFeedURL == "" {
		return fmt.Errorf("SOCIAL_FEED_URL is required when ENABLE_SOCIAL_FEED is set")
	}

	if c.EnableSearchFeed && c.SearchFeedURL == "" {
		return fmt.Errorf("SEARCH_FEED_URL is required when ENABLE_SEARCH_FEED is set")
	}

	if c.DefaultRecommendCount <= 0 {
		return fmt.Errorf("DEFAULT_RECOMMEND_COUNT must be positive")
	}

	return nil
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getSliceEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}
