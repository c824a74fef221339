// Package hashtags recommends hashtags by blending live trend rankings with
// the user's own usage history, the current preset tables, and recent
// searches. Ranking is deterministic; ordering among equally-ranked tags is
// intentionally randomized per call through an injected RNG.
package hashtags

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/writeway/personalization/internal/clock"
	"github.com/writeway/personalization/internal/history"
	"github.com/writeway/personalization/internal/models"
	"github.com/writeway/personalization/internal/presets"
	"github.com/writeway/personalization/internal/storage"
	"github.com/writeway/personalization/internal/trends"
)

// Composite score weights. The four contributions are independently
// normalized to [0,1] before weighting; the prompt bonus is additive on top
// and deliberately outside the weighted sum.
const (
	trendWeight    = 0.4
	affinityWeight = 0.3
	timeWeight     = 0.2
	searchWeight   = 0.1
	promptBonus    = 0.15
)

// TrendSource is the slice of the aggregator the recommender consumes.
type TrendSource interface {
	GetTrends(ctx context.Context, locale models.Locale, now time.Time) ([]models.TrendCandidate, error)
}

// Recommender computes personalized hashtag recommendations.
type Recommender struct {
	trends   TrendSource
	catalog  *presets.Catalog
	searches history.SearchProvider
	store    storage.Store
	clock    clock.Provider
	rng      *rand.Rand
	rngMu    sync.Mutex
	fallback []string
	queryLim int

	// per-user write serialization for the learning loop
	userMu sync.Mutex
	users  map[string]*sync.Mutex
}

// New creates a recommender. The RNG is injected so tests can pin the
// shuffle; production passes rand.New(rand.NewSource(time.Now().UnixNano())).
func New(ts TrendSource, catalog *presets.Catalog, searches history.SearchProvider, store storage.Store, clk clock.Provider, rng *rand.Rand, fallback []string, queryLimit int) *Recommender {
	return &Recommender{
		trends:   ts,
		catalog:  catalog,
		searches: searches,
		store:    store,
		clock:    clk,
		rng:      rng,
		fallback: fallback,
		queryLim: queryLimit,
		users:    make(map[string]*sync.Mutex),
	}
}

type candidate struct {
	tag      string
	category string
	score    float64
}

// Recommend returns up to count hashtags for the user, ranked by composite
// score and balanced across categories. Fewer than count distinct candidates
// returns all of them; a completely empty data set returns the fixed
// fallback list. An unreachable affinity store only costs personalization,
// never the whole result.
func (r *Recommender) Recommend(ctx context.Context, userID, promptText string, count int) ([]string, error) {
	if count <= 0 {
		return nil, nil
	}

	now := r.clock.Now()
	scores := make(map[string]float64)

	r.applyTrendScores(ctx, now, scores)
	r.applyAffinityScores(ctx, userID, now, scores)
	r.applyTimeScores(now, scores)
	r.applySearchScores(ctx, userID, scores)
	r.applyPromptBonus(promptText, scores)

	if len(scores) == 0 {
		logrus.Debugf("No hashtag candidates for user %s, using fallback set", userID)
		return r.fallbackSet(count), nil
	}

	candidates := make([]candidate, 0, len(scores))
	for tag, score := range scores {
		candidates = append(candidates, candidate{tag: tag, category: DeriveCategory(tag), score: score})
	}

	selected := r.selectDiverse(candidates, count)
	return selected, nil
}

func (r *Recommender) applyTrendScores(ctx context.Context, now time.Time, scores map[string]float64) {
	trendList, err := r.trends.GetTrends(ctx, r.clock.DeviceLocale(), now)
	if err != nil {
		logrus.Errorf("Trend lookup failed, recommending without trend signal: %v", err)
		return
	}

	for rank, tc := range trendList {
		contribution := 1 - float64(rank)*0.05
		if contribution < 0 {
			contribution = 0
		}
		for _, tag := range tc.Hashtags {
			scores[normalizeTag(tag)] += trendWeight * contribution
		}
	}
}

func (r *Recommender) applyAffinityScores(ctx context.Context, userID string, now time.Time, scores map[string]float64) {
	affinities, err := r.store.LoadAffinities(ctx, userID)
	if err != nil {
		// Degrade to unpersonalized output rather than failing the call.
		logrus.Errorf("Affinity load failed for %s, recommending without personal signal: %v", userID, err)
		return
	}

	for tag, aff := range affinities {
		usage := float64(aff.UsageCount) / 10
		if usage > 1 {
			usage = 1
		}
		scores[normalizeTag(tag)] += affinityWeight * usage * recencyBonus(now.Sub(aff.LastUsedAt))
	}
}

// recencyBonus steps down as the last use of a tag ages.
func recencyBonus(age time.Duration) float64 {
	switch {
	case age < 24*time.Hour:
		return 1.5
	case age < 7*24*time.Hour:
		return 1.2
	case age < 30*24*time.Hour:
		return 1.0
	default:
		return 0.8
	}
}

func (r *Recommender) applyTimeScores(now time.Time, scores map[string]float64) {
	var tags []string
	tags = append(tags, r.catalog.SlotSet(now).Hashtags...)
	tags = append(tags, r.catalog.SeasonalSet(now).Hashtags...)
	if ch, ok := r.catalog.WeekdayChallenge(now.Weekday()); ok {
		tags = append(tags, ch.Hashtags...)
	}

	for rank, tag := range tags {
		contribution := 1 - float64(rank)*0.05
		if contribution < 0 {
			contribution = 0
		}
		scores[normalizeTag(tag)] += timeWeight * contribution
	}
}

func (r *Recommender) applySearchScores(ctx context.Context, userID string, scores map[string]float64) {
	queries, err := r.searches.RecentQueries(ctx, userID, r.queryLim)
	if err != nil {
		logrus.Errorf("Search history lookup failed for %s: %v", userID, err)
		return
	}

	for tag := range scores {
		for _, q := range queries {
			text := strings.TrimSpace(strings.ToLower(q.Text))
			if text == "" {
				continue
			}
			if strings.Contains(text, tag) || strings.Contains(tag, text) {
				scores[tag] += searchWeight
				break
			}
		}
	}
}

func (r *Recommender) applyPromptBonus(promptText string, scores map[string]float64) {
	if promptText == "" {
		return
	}

	prompt := strings.ToLower(promptText)
	for tag := range scores {
		if strings.Contains(prompt, tag) {
			scores[tag] += promptBonus
		}
	}
}

// selectDiverse picks count tags from the top 2×count candidates while
// preventing one category from crowding out the rest: every non-empty
// category contributes at least one tag (its floor) before any category
// contributes a second, round-robin in randomized category order. The pool
// is filled to exactly count before the final shuffle so the floor survives
// into the returned slice.
func (r *Recommender) selectDiverse(candidates []candidate, count int) []string {
	// Candidates arrive in map order, so ties need a deterministic tiebreak:
	// without it the injected RNG cannot make the selection reproducible.
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].tag < candidates[j].tag
	})

	top := candidates
	if len(top) > 2*count {
		top = top[:2*count]
	}

	buckets := make(map[string][]candidate)
	var categories []string
	for _, c := range top {
		if _, ok := buckets[c.category]; !ok {
			categories = append(categories, c.category)
		}
		buckets[c.category] = append(buckets[c.category], c)
	}

	r.rngMu.Lock()
	defer r.rngMu.Unlock()

	r.rng.Shuffle(len(categories), func(i, j int) {
		categories[i], categories[j] = categories[j], categories[i]
	})

	poolTarget := count
	if poolTarget > len(top) {
		poolTarget = len(top)
	}

	var pool []string
	for len(pool) < poolTarget {
		progressed := false
		for _, cat := range categories {
			if len(buckets[cat]) == 0 {
				continue
			}
			pool = append(pool, buckets[cat][0].tag)
			buckets[cat] = buckets[cat][1:]
			progressed = true
			if len(pool) == poolTarget {
				break
			}
		}
		if !progressed {
			break
		}
	}

	r.rng.Shuffle(len(pool), func(i, j int) {
		pool[i], pool[j] = pool[j], pool[i]
	})

	return pool
}

func (r *Recommender) fallbackSet(count int) []string {
	out := make([]string, 0, count)
	for _, tag := range r.fallback {
		out = append(out, normalizeTag(tag))
		if len(out) == count {
			break
		}
	}
	return out
}

// RecordUsage increments the affinity for every tag of a just-saved post and
// refreshes its last-used timestamp. The write completes before returning so
// the very next Recommend sees it. Writes for the same user are serialized;
// different users proceed independently.
func (r *Recommender) RecordUsage(ctx context.Context, userID string, tags []string) error {
	if len(tags) == 0 {
		return nil
	}

	mu := r.userMutex(userID)
	mu.Lock()
	defer mu.Unlock()

	affinities, err := r.store.LoadAffinities(ctx, userID)
	if err != nil {
		return fmt.Errorf("recording hashtag usage: %w", err)
	}

	now := r.clock.Now()
	for _, tag := range tags {
		norm := normalizeTag(tag)
		if norm == "" {
			continue
		}

		aff, ok := affinities[norm]
		if !ok {
			aff = models.HashtagAffinity{Tag: norm, Category: DeriveCategory(norm)}
		}
		aff.UsageCount++
		aff.LastUsedAt = now
		affinities[norm] = aff
	}

	if err := r.store.SaveAffinities(ctx, userID, affinities); err != nil {
		return fmt.Errorf("recording hashtag usage: %w", err)
	}

	logrus.Debugf("Recorded %d hashtag usages for user %s", len(tags), userID)
	return nil
}

// ResetPersonalization wipes the user's affinity data entirely.
func (r *Recommender) ResetPersonalization(ctx context.Context, userID string) error {
	mu := r.userMutex(userID)
	mu.Lock()
	defer mu.Unlock()

	return r.store.Reset(ctx, userID)
}

func (r *Recommender) userMutex(userID string) *sync.Mutex {
	r.userMu.Lock()
	defer r.userMu.Unlock()

	mu, ok := r.users[userID]
	if !ok {
		mu = &sync.Mutex{}
		r.users[userID] = mu
	}
	return mu
}

// normalizeTag lower-cases a tag and strips any leading '#'.
func normalizeTag(tag string) string {
	return strings.TrimPrefix(strings.ToLower(strings.TrimSpace(tag)), "#")
}

var _ TrendSource = (*trends.Aggregator)(nil)
