package trends

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/writeway/personalization/internal/cache"
	"github.com/writeway/personalization/internal/feeds"
	"github.com/writeway/personalization/internal/models"
	"github.com/writeway/personalization/internal/presets"
)

type stubSource struct {
	name    string
	kind    models.TrendSource
	items   []models.FeedItem
	err     error
	fetches int32
}

func (s *stubSource) Name() string             { return s.name }
func (s *stubSource) Kind() models.TrendSource { return s.kind }
func (s *stubSource) Enabled() bool            { return true }

func (s *stubSource) Fetch(ctx context.Context, locale models.Locale) ([]models.FeedItem, error) {
	atomic.AddInt32(&s.fetches, 1)
	if s.err != nil {
		return nil, s.err
	}
	return s.items, nil
}

var testLocale = models.Locale{LanguageCode: "en", RegionCode: "US"}

// 10:00 on a July morning: summer season, morning slot.
var testNow = time.Date(2025, time.July, 10, 10, 0, 0, 0, time.UTC)

func newTestAggregator(t *testing.T, sources ...feeds.Source) *Aggregator {
	t.Helper()
	catalog := presets.MustLoad()
	c := cache.New(cache.NewMemoryStore(), cache.SchemaVersion)
	return New(catalog, sources, c, 4*time.Hour, time.Second)
}

func TestGetTrends_MergesDuplicateTitlesAcrossSources(t *testing.T) {
	news := &stubSource{
		name: "news",
		kind: models.SourceNews,
		items: []models.FeedItem{
			{Title: "Summer Festival", GrowthPct: 40},
		},
	}
	social := &stubSource{
		name: "social",
		kind: models.SourceSocial,
		items: []models.FeedItem{
			{Title: "summer festival", GrowthPct: 120},
		},
	}

	trends, err := newTestAggregator(t, news, social).GetTrends(context.Background(), testLocale, testNow)
	require.NoError(t, err)

	var festival *models.TrendCandidate
	count := 0
	for i := range trends {
		if trends[i].Hashtags[0] == "summerfestival" {
			festival = &trends[i]
			count++
		}
	}

	require.NotNil(t, festival, "merged candidate missing")
	assert.Equal(t, 1, count, "duplicate titles must merge into one candidate")
	assert.Equal(t, 120, festival.GrowthPct, "merged growth must be the max of the contributions")
	// news weight 1.0 at rank 0 plus social weight 0.9 at rank 0
	assert.InDelta(t, 1.9, festival.Score, 0.001)
}

func TestGetTrends_NoDuplicateNormalizedTitles(t *testing.T) {
	news := &stubSource{
		name: "news",
		kind: models.SourceNews,
		items: []models.FeedItem{
			{Title: "Beach Day"},
			{Title: "beach day"},
			{Title: "BEACH DAY"},
		},
	}

	trends, err := newTestAggregator(t, news).GetTrends(context.Background(), testLocale, testNow)
	require.NoError(t, err)

	seen := make(map[string]bool)
	for _, tc := range trends {
		norm := tc.Title
		assert.False(t, seen[norm], "duplicate normalized title %q", norm)
		seen[norm] = true
	}
}

func TestGetTrends_CappedAtTen(t *testing.T) {
	items := make([]models.FeedItem, 30)
	for i := range items {
		items[i] = models.FeedItem{Title: fmt.Sprintf("topic %d", i)}
	}
	news := &stubSource{name: "news", kind: models.SourceNews, items: items}

	trends, err := newTestAggregator(t, news).GetTrends(context.Background(), testLocale, testNow)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(trends), MaxTrends)
}

func TestGetTrends_AllSourcesFailedFallsBackToPresets(t *testing.T) {
	broken := &stubSource{name: "news", kind: models.SourceNews, err: feeds.ErrSourceUnavailable}
	alsoBroken := &stubSource{name: "social", kind: models.SourceSocial, err: errors.New("timeout")}

	trends, err := newTestAggregator(t, broken, alsoBroken).GetTrends(context.Background(), testLocale, testNow)
	require.NoError(t, err, "source failures must not fail the aggregation")
	require.NotEmpty(t, trends, "preset candidates must survive total source failure")

	for _, tc := range trends {
		assert.Contains(t, []models.TrendSource{models.SourceSeasonal, models.SourceTimeOfDay}, tc.Category)
	}
}

func TestGetTrends_SecondCallServedFromCache(t *testing.T) {
	news := &stubSource{
		name:  "news",
		kind:  models.SourceNews,
		items: []models.FeedItem{{Title: "Cached Topic"}},
	}
	agg := newTestAggregator(t, news)

	first, err := agg.GetTrends(context.Background(), testLocale, testNow)
	require.NoError(t, err)

	second, err := agg.GetTrends(context.Background(), testLocale, testNow)
	require.NoError(t, err)

	assert.Equal(t, int32(1), atomic.LoadInt32(&news.fetches), "second call must hit the cache")
	assert.Equal(t, first, second)
}

func TestGetTrends_RefreshBypassesCache(t *testing.T) {
	news := &stubSource{
		name:  "news",
		kind:  models.SourceNews,
		items: []models.FeedItem{{Title: "Fresh Topic"}},
	}
	agg := newTestAggregator(t, news)

	_, err := agg.GetTrends(context.Background(), testLocale, testNow)
	require.NoError(t, err)

	_, err = agg.Refresh(context.Background(), testLocale, testNow)
	require.NoError(t, err)

	assert.Equal(t, int32(2), atomic.LoadInt32(&news.fetches))
}

func TestGetTrends_ScoresDecayByRank(t *testing.T) {
	news := &stubSource{
		name: "news",
		kind: models.SourceNews,
		items: []models.FeedItem{
			{Title: "first headline"},
			{Title: "second headline"},
			{Title: "third headline"},
		},
	}

	trends, err := newTestAggregator(t, news).GetTrends(context.Background(), testLocale, testNow)
	require.NoError(t, err)

	scores := make(map[string]float64)
	for _, tc := range trends {
		scores[tc.Title] = tc.Score
	}

	assert.InDelta(t, 1.0, scores["first headline"], 0.001)
	assert.InDelta(t, 0.95, scores["second headline"], 0.001)
	assert.InDelta(t, 0.90, scores["third headline"], 0.001)
}

func TestGetTrends_EveryCandidateHasUniqueID(t *testing.T) {
	trends, err := newTestAggregator(t).GetTrends(context.Background(), testLocale, testNow)
	require.NoError(t, err)

	ids := make(map[string]bool)
	for _, tc := range trends {
		require.NotEmpty(t, tc.ID)
		assert.False(t, ids[tc.ID], "duplicate id %s", tc.ID)
		ids[tc.ID] = true
	}
}

func TestMergeCandidates_PresetPriorityAnchorsTies(t *testing.T) {
	// The same title arriving from seasonal presets and news must be
	// categorized as seasonal: presets merge first.
	bySource := map[models.TrendSource][]models.FeedItem{
		models.SourceSeasonal: {{Title: "beach"}},
		models.SourceNews:     {{Title: "Beach"}},
	}

	merged := mergeCandidates(bySource, testNow)
	require.Len(t, merged, 1)
	assert.Equal(t, models.SourceSeasonal, merged[0].Category)
	assert.InDelta(t, 0.7+1.0, merged[0].Score, 0.001)
}
