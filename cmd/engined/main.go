package main

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/writeway/personalization/internal/cache"
	"github.com/writeway/personalization/internal/clock"
	"github.com/writeway/personalization/internal/config"
	"github.com/writeway/personalization/internal/feeds"
	"github.com/writeway/personalization/internal/hashtags"
	"github.com/writeway/personalization/internal/history"
	"github.com/writeway/personalization/internal/models"
	"github.com/writeway/personalization/internal/presets"
	"github.com/writeway/personalization/internal/storage"
	"github.com/writeway/personalization/internal/style"
	"github.com/writeway/personalization/internal/trends"
)

func main() {
	// Load environment variables from .env file if it exists
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	logrus.SetLevel(logrus.InfoLevel)
	if cfg.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}
	logrus.SetFormatter(&logrus.JSONFormatter{})

	logrus.Info("Starting personalization engine")

	db, err := storage.Open(cfg.DataDir)
	if err != nil {
		logrus.Fatalf("Failed to open local database: %v", err)
	}
	defer db.Close()

	locale := models.Locale{LanguageCode: cfg.LanguageCode, RegionCode: cfg.RegionCode}
	clk := clock.NewSystem(locale)
	catalog := presets.MustLoad()
	scoreCache := cache.New(cache.NewBadgerStore(db), cache.SchemaVersion)

	sources := []feeds.Source{}
	if cfg.EnableNewsFeed {
		sources = append(sources, feeds.NewNewsSource(cfg.NewsFeedURL, cfg.SourceTimeout))
	}
	if cfg.EnableSocialFeed {
		sources = append(sources, feeds.NewSocialSource(cfg.SocialFeedURL, cfg.SourceTimeout))
	}
	if cfg.EnableSearchFeed {
		sources = append(sources, feeds.NewSearchSource(cfg.SearchFeedURL, catalog, cfg.SourceTimeout, clk.Now))
	}

	aggregator := trends.New(catalog, sources, scoreCache, cfg.TrendTTL(), cfg.SourceTimeout)

	posts := history.NewMemoryPosts()
	searches := history.NewMemorySearches()
	affinityStore := storage.NewBadgerStore(db)

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	recommender := hashtags.New(aggregator, catalog, searches, affinityStore, clk, rng, cfg.FallbackHashtags, cfg.RecentQueryLimit)

	archetypes, err := style.LoadArchetypes()
	if err != nil {
		logrus.Fatalf("Failed to load archetype catalog: %v", err)
	}
	analyzer := style.NewAnalyzer(archetypes)

	// Cache warming runs outside the engine: the services themselves never
	// schedule background work.
	warmer := cron.New()
	if _, err := warmer.AddFunc("@every 4h", func() {
		logrus.Info("Warming trend cache")
		if _, err := aggregator.Refresh(context.Background(), locale, clk.Now()); err != nil {
			logrus.Errorf("Trend cache warm failed: %v", err)
		}
	}); err != nil {
		logrus.Fatalf("Failed to schedule cache warmer: %v", err)
	}
	warmer.Start()
	defer warmer.Stop()

	metrics := newEngineMetrics()

	router := mux.NewRouter()
	router.HandleFunc("/health", healthCheckHandler).Methods("GET")
	router.HandleFunc("/metrics", metricsHandler(metrics)).Methods("GET")
	router.HandleFunc("/trends", trendsHandler(aggregator, clk, metrics)).Methods("GET")
	router.HandleFunc("/hashtags", hashtagsHandler(recommender, cfg.DefaultRecommendCount, metrics)).Methods("GET")
	router.HandleFunc("/hashtags/usage", usageHandler(recommender, metrics)).Methods("POST")
	router.HandleFunc("/style", styleHandler(analyzer, posts, metrics)).Methods("GET")

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logrus.Infof("HTTP server starting on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("HTTP server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logrus.Errorf("Server forced to shutdown: %v", err)
	}

	logrus.Info("Server exited")
}

// engineMetrics tracks per-endpoint request counts for the /metrics endpoint.
type engineMetrics struct {
	mu              sync.Mutex
	StartedAt       time.Time `json:"started_at"`
	TrendRequests   int       `json:"trend_requests"`
	HashtagRequests int       `json:"hashtag_requests"`
	UsageUpdates    int       `json:"usage_updates"`
	StyleRequests   int       `json:"style_requests"`
}

func newEngineMetrics() *engineMetrics {
	return &engineMetrics{StartedAt: time.Now()}
}

func (m *engineMetrics) record(counter *int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	*counter++
}

func metricsHandler(m *engineMetrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m.mu.Lock()
		data, err := json.MarshalIndent(m, "", "  ")
		m.mu.Unlock()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write(data)
	}
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy","timestamp":"` + time.Now().Format(time.RFC3339) + `"}`))
}

func trendsHandler(aggregator *trends.Aggregator, clk clock.Provider, m *engineMetrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m.record(&m.TrendRequests)
		list, err := aggregator.GetTrends(r.Context(), clk.DeviceLocale(), clk.Now())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, list)
	}
}

func hashtagsHandler(recommender *hashtags.Recommender, defaultCount int, m *engineMetrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m.record(&m.HashtagRequests)
		userID := r.URL.Query().Get("user")
		if userID == "" {
			http.Error(w, "user query parameter is required", http.StatusBadRequest)
			return
		}

		count := defaultCount
		if raw := r.URL.Query().Get("count"); raw != "" {
			if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
				count = parsed
			}
		}

		tags, err := recommender.Recommend(r.Context(), userID, r.URL.Query().Get("prompt"), count)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, tags)
	}
}

func usageHandler(recommender *hashtags.Recommender, m *engineMetrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m.record(&m.UsageUpdates)
		var body struct {
			UserID   string   `json:"user_id"`
			Hashtags []string `json:"hashtags"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}

		if err := recommender.RecordUsage(r.Context(), body.UserID, body.Hashtags); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func styleHandler(analyzer *style.Analyzer, posts history.PostProvider, m *engineMetrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m.record(&m.StyleRequests)
		userID := r.URL.Query().Get("user")
		if userID == "" {
			http.Error(w, "user query parameter is required", http.StatusBadRequest)
			return
		}

		corpus, err := posts.ListPosts(r.Context(), userID)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, analyzer.Analyze(corpus))
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.Errorf("Failed to encode response: %v", err)
	}
}
