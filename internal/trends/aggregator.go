// Package trends merges seasonal, time-of-day, news, social, and search
// candidates into a single ranked trend list, deduplicated by title and
// served through the shared TTL cache.
package trends

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/writeway/personalization/internal/cache"
	"github.com/writeway/personalization/internal/feeds"
	"github.com/writeway/personalization/internal/models"
	"github.com/writeway/personalization/internal/presets"
)

// MaxTrends caps the ranked list returned by GetTrends.
const MaxTrends = 10

// Per-source weights. Network sources outrank presets on raw weight, but on
// merged ties the presets' fixed-priority position wins (they are merged
// first, and the sort is stable).
var sourceWeights = map[models.TrendSource]float64{
	models.SourceNews:      1.0,
	models.SourceSocial:    0.9,
	models.SourceSearch:    0.85,
	models.SourceSeasonal:  0.7,
	models.SourceTimeOfDay: 0.6,
}

// mergeOrder is the fixed source-priority order for one aggregation cycle.
// Local presets come first so that when a remote source races to produce the
// same-titled candidate, the deterministic local one anchors the merge.
var mergeOrder = []models.TrendSource{
	models.SourceSeasonal,
	models.SourceTimeOfDay,
	models.SourceNews,
	models.SourceSocial,
	models.SourceSearch,
}

// Aggregator fetches and merges trend candidates from all configured sources.
type Aggregator struct {
	catalog       *presets.Catalog
	sources       []feeds.Source
	cache         *cache.Cache
	ttl           time.Duration
	sourceTimeout time.Duration
}

// New creates an aggregator. Sources may be empty; preset candidates never
// depend on them.
func New(catalog *presets.Catalog, sources []feeds.Source, c *cache.Cache, ttl, sourceTimeout time.Duration) *Aggregator {
	return &Aggregator{
		catalog:       catalog,
		sources:       sources,
		cache:         c,
		ttl:           ttl,
		sourceTimeout: sourceTimeout,
	}
}

// GetTrends returns the ranked trend list for the locale at the given
// instant, at most MaxTrends long. Results are cached per (locale, 4h hour
// bucket). Total source failure degrades to a preset-only list; GetTrends
// never returns an empty list and never fails on source errors.
func (a *Aggregator) GetTrends(ctx context.Context, locale models.Locale, now time.Time) ([]models.TrendCandidate, error) {
	key := cacheKey(locale, now)

	var trends []models.TrendCandidate
	err := a.cache.GetOrFill(key, a.ttl, &trends, func() (interface{}, error) {
		return a.aggregate(ctx, locale, now), nil
	})
	if err != nil {
		// Fill never errors; this is a codec failure. Recompute directly.
		logrus.Errorf("Trend cache fill failed for %s: %v", key, err)
		return a.aggregate(ctx, locale, now), nil
	}

	return trends, nil
}

// Refresh recomputes the trend list for the locale, bypassing any cached
// value. Used by caller-driven refresh (pull-to-refresh, cache warmers).
func (a *Aggregator) Refresh(ctx context.Context, locale models.Locale, now time.Time) ([]models.TrendCandidate, error) {
	a.cache.Invalidate(cacheKey(locale, now))
	return a.GetTrends(ctx, locale, now)
}

func cacheKey(locale models.Locale, now time.Time) string {
	// The hour bucket matches the 4h TTL so a cached list never outlives the
	// preset slot it was computed for.
	return fmt.Sprintf("trends:%s:%s:%d", locale.RegionCode, locale.LanguageCode, now.Hour()/4)
}

type sourceResult struct {
	kind  models.TrendSource
	items []models.FeedItem
}

func (a *Aggregator) aggregate(ctx context.Context, locale models.Locale, now time.Time) []models.TrendCandidate {
	start := time.Now()
	logrus.Infof("Aggregating trends for %s-%s from %d external sources", locale.LanguageCode, locale.RegionCode, len(a.sources))

	bySource := map[models.TrendSource][]models.FeedItem{
		models.SourceSeasonal:  a.presetItems(a.catalog.SeasonalSet(now)),
		models.SourceTimeOfDay: a.presetItems(a.catalog.SlotSet(now)),
	}

	var wg sync.WaitGroup
	results := make(chan sourceResult, len(a.sources))

	for _, source := range a.sources {
		if !source.Enabled() {
			continue
		}

		wg.Add(1)
		go func(src feeds.Source) {
			defer wg.Done()

			fetchCtx, cancel := context.WithTimeout(ctx, a.sourceTimeout)
			defer cancel()

			items, err := src.Fetch(fetchCtx, locale)
			if err != nil {
				// A failed source contributes zero candidates this cycle.
				// No synchronous retry; the next refresh tries again.
				logrus.Errorf("Source %s failed, dropping from this cycle: %v", src.Name(), err)
				return
			}

			logrus.Infof("Source %s returned %d items", src.Name(), len(items))
			results <- sourceResult{kind: src.Kind(), items: items}
		}(source)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	for res := range results {
		bySource[res.kind] = append(bySource[res.kind], res.items...)
	}

	merged := mergeCandidates(bySource, now)

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Score > merged[j].Score
	})
	if len(merged) > MaxTrends {
		merged = merged[:MaxTrends]
	}

	for i := range merged {
		merged[i].ID = uuid.NewString()
	}

	logrus.Infof("Aggregated %d trends in %v", len(merged), time.Since(start))
	return merged
}

// presetItems converts a preset table into feed-shaped items so presets and
// remote sources flow through the same scoring and merge path.
func (a *Aggregator) presetItems(p presets.Preset) []models.FeedItem {
	items := make([]models.FeedItem, 0, len(p.Keywords))
	for _, kw := range p.Keywords {
		items = append(items, models.FeedItem{Title: kw})
	}
	return items
}

// mergeCandidates scores each item by source weight and within-source rank,
// then merges duplicates across sources by normalized title: scores sum,
// growth takes the max, hashtags union. Sources are visited in mergeOrder so
// the merge result is deterministic regardless of fetch completion order.
func mergeCandidates(bySource map[models.TrendSource][]models.FeedItem, now time.Time) []models.TrendCandidate {
	var order []string
	byTitle := make(map[string]*models.TrendCandidate)

	for _, kind := range mergeOrder {
		weight := sourceWeights[kind]
		for rank, item := range bySource[kind] {
			title := strings.TrimSpace(item.Title)
			if title == "" {
				continue
			}

			score := weight * (1 - float64(rank)*0.05)
			norm := strings.ToLower(title)

			existing, ok := byTitle[norm]
			if !ok {
				byTitle[norm] = &models.TrendCandidate{
					Title:     title,
					Category:  kind,
					Score:     score,
					GrowthPct: item.GrowthPct,
					Hashtags:  []string{hashtagFor(norm)},
					LastSeen:  now,
				}
				order = append(order, norm)
				continue
			}

			existing.Score += score
			if item.GrowthPct > existing.GrowthPct {
				existing.GrowthPct = item.GrowthPct
			}
			existing.Hashtags = unionHashtags(existing.Hashtags, hashtagFor(norm))
		}
	}

	out := make([]models.TrendCandidate, 0, len(order))
	for _, norm := range order {
		out = append(out, *byTitle[norm])
	}
	return out
}

// hashtagFor derives a usable hashtag from a normalized title by collapsing
// it to its alphanumeric runes.
func hashtagFor(normTitle string) string {
	var b strings.Builder
	for _, r := range normTitle {
		if r == ' ' || r == '-' || r == '_' {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func unionHashtags(existing []string, tag string) []string {
	for _, t := range existing {
		if t == tag {
			return existing
		}
	}
	return append(existing, tag)
}
