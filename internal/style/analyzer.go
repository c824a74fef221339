// Package style scores a user's post corpus against a fixed catalog of
// writing-style archetypes and derives consistency and diversity metrics.
// Analysis is deterministic: the same post list always yields the same
// report, so the advice shown to a user is stable within a session.
package style

import (
	"math"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/writeway/personalization/internal/models"
)

// Per-post archetype score increments.
const (
	lengthPoints  = 10
	keywordPoints = 5
	emojiPoints   = 5
	hashtagPoints = 5
)

// consistencySampleSize is how many of the most recent posts feed the length
// consistency metric.
const consistencySampleSize = 10

// minSampleForConsistency is the corpus size below which consistency falls
// back to the underpowered-sample default of 50.
const minSampleForConsistency = 5

// Analyzer computes style reports from post corpora.
type Analyzer struct {
	archetypes []Archetype
}

// NewAnalyzer creates an analyzer over the given archetype catalog.
func NewAnalyzer(archetypes []Archetype) *Analyzer {
	return &Analyzer{archetypes: archetypes}
}

// Analyze scores each post against every archetype and aggregates the result.
// An empty corpus is the new-user cold-start path and returns the documented
// default report instead of an error.
func (a *Analyzer) Analyze(posts []models.Post) models.StyleReport {
	if len(posts) == 0 {
		return a.defaultReport()
	}

	logrus.Debugf("Analyzing style across %d posts", len(posts))

	scores := make(map[string]float64, len(a.archetypes))
	for _, arch := range a.archetypes {
		total := 0
		for _, post := range posts {
			total += scorePost(post, arch)
		}
		avg := float64(total) / float64(len(posts))
		if avg > 100 {
			avg = 100
		}
		scores[arch.ID] = avg
	}

	dominant := a.archetypes[0].ID
	best := scores[dominant]
	for _, arch := range a.archetypes[1:] {
		// Strict greater-than keeps declaration order as the tiebreak.
		if scores[arch.ID] > best {
			dominant = arch.ID
			best = scores[arch.ID]
		}
	}

	consistency := lengthConsistency(posts)
	diversity := corpusDiversity(posts)

	return models.StyleReport{
		DominantArchetypeID: dominant,
		ArchetypeScores:     scores,
		Consistency:         consistency,
		Diversity:           diversity,
		Recommendations:     a.recommendations(dominant, consistency, diversity),
	}
}

func (a *Analyzer) defaultReport() models.StyleReport {
	scores := make(map[string]float64, len(a.archetypes))
	for _, arch := range a.archetypes {
		scores[arch.ID] = 0
	}

	return models.StyleReport{
		DominantArchetypeID: a.archetypes[0].ID,
		ArchetypeScores:     scores,
		Consistency:         50,
		Diversity:           50,
		Recommendations: []string{
			"Write a few posts so your style profile can take shape.",
			"Try different lengths and topics to discover what fits you.",
		},
	}
}

func scorePost(post models.Post, arch Archetype) int {
	score := 0

	length := len([]rune(post.Content))
	if length >= arch.LengthMin && length <= arch.LengthMax {
		score += lengthPoints
	}

	content := strings.ToLower(post.Content)
	for _, kw := range arch.Keywords {
		if strings.Contains(content, kw) {
			score += keywordPoints
		}
	}

	emojis := countEmojis(post.Content)
	if emojis >= arch.EmojiMin && emojis <= arch.EmojiMax {
		score += emojiPoints
	}

	if len(post.Hashtags) >= arch.HashtagMin && len(post.Hashtags) <= arch.HashtagMax {
		score += hashtagPoints
	}

	return score
}

// countEmojis counts runes in the common emoji and pictograph blocks.
func countEmojis(s string) int {
	count := 0
	for _, r := range s {
		switch {
		case r >= 0x1F300 && r <= 0x1FAFF: // pictographs, emoticons, symbols
			count++
		case r >= 0x2600 && r <= 0x27BF: // misc symbols, dingbats
			count++
		case r == 0x2764: // heavy black heart
			count++
		}
	}
	return count
}

// lengthConsistency is the inverse coefficient of variation of post length
// over the most recent posts, scaled to 0-100.
func lengthConsistency(posts []models.Post) int {
	if len(posts) < minSampleForConsistency {
		return 50
	}

	sample := make([]models.Post, len(posts))
	copy(sample, posts)
	sort.SliceStable(sample, func(i, j int) bool {
		return sample[i].CreatedAt.After(sample[j].CreatedAt)
	})
	if len(sample) > consistencySampleSize {
		sample = sample[:consistencySampleSize]
	}

	lengths := make([]float64, len(sample))
	mean := 0.0
	for i, post := range sample {
		lengths[i] = float64(len([]rune(post.Content)))
		mean += lengths[i]
	}
	mean /= float64(len(lengths))
	if mean == 0 {
		return 50
	}

	variance := 0.0
	for _, l := range lengths {
		variance += (l - mean) * (l - mean)
	}
	variance /= float64(len(lengths))
	stdDev := math.Sqrt(variance)

	consistency := 100 - 100*stdDev/mean
	if consistency < 0 {
		consistency = 0
	}
	return int(math.Round(consistency))
}

// corpusDiversity averages three capped sub-ratios: unique hashtags per
// post, unique categories out of 5, unique tones out of 4.
func corpusDiversity(posts []models.Post) int {
	tags := make(map[string]struct{})
	categories := make(map[string]struct{})
	tones := make(map[string]struct{})

	for _, post := range posts {
		for _, tag := range post.Hashtags {
			tags[strings.ToLower(tag)] = struct{}{}
		}
		if post.Category != "" {
			categories[post.Category] = struct{}{}
		}
		if post.Tone != "" {
			tones[post.Tone] = struct{}{}
		}
	}

	ratios := []float64{
		capRatio(float64(len(tags)) / float64(len(posts)) * 100),
		capRatio(float64(len(categories)) / 5 * 100),
		capRatio(float64(len(tones)) / 4 * 100),
	}

	sum := 0.0
	for _, r := range ratios {
		sum += r
	}
	return int(math.Round(sum / float64(len(ratios))))
}

func capRatio(v float64) float64 {
	if v > 100 {
		return 100
	}
	return v
}

// recommendations derives advice from fixed thresholds. No randomness here:
// repeated calls within one session must give the same advice.
func (a *Analyzer) recommendations(dominantID string, consistency, diversity int) []string {
	var recs []string

	if consistency < 70 {
		recs = append(recs, "Your post lengths vary a lot. Keeping length and tone more consistent strengthens your voice.")
	}
	if diversity < 50 {
		recs = append(recs, "Try writing about more topics to broaden your reach.")
	} else if diversity > 80 {
		recs = append(recs, "You cover many topics. Focusing on fewer themes can sharpen your identity.")
	}

	for _, arch := range a.archetypes {
		if arch.ID == dominantID {
			recs = append(recs, "Your dominant style is "+arch.Name+". Leaning into it helps readers recognize you.")
			break
		}
	}

	return recs
}
