package style

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/writeway/personalization/internal/models"
)

func newTestAnalyzer(t *testing.T) *Analyzer {
	t.Helper()
	archetypes, err := LoadArchetypes()
	require.NoError(t, err)
	return NewAnalyzer(archetypes)
}

func TestLoadArchetypes(t *testing.T) {
	archetypes, err := LoadArchetypes()
	require.NoError(t, err)
	require.NotEmpty(t, archetypes)

	assert.Equal(t, "minimalist", archetypes[0].ID, "minimalist is the declared-first archetype")
	for _, arch := range archetypes {
		assert.NotEmpty(t, arch.Keywords, "archetype %s has no keywords", arch.ID)
		assert.Greater(t, arch.LengthMax, arch.LengthMin, "archetype %s has an empty length band", arch.ID)
	}
}

func TestAnalyze_EmptyCorpusReturnsDefaultReport(t *testing.T) {
	a := newTestAnalyzer(t)

	report := a.Analyze(nil)

	assert.Equal(t, "minimalist", report.DominantArchetypeID)
	assert.Equal(t, 50, report.Consistency)
	assert.Equal(t, 50, report.Diversity)
	assert.NotEmpty(t, report.Recommendations)

	// Idempotent and side-effect-free.
	assert.Equal(t, report, a.Analyze(nil))
	assert.Equal(t, report, a.Analyze([]models.Post{}))
}

func TestAnalyze_Deterministic(t *testing.T) {
	a := newTestAnalyzer(t)
	posts := []models.Post{
		{Content: "A quiet simple morning.", Hashtags: []string{"calm"}, Category: "lifestyle", Tone: "calm", CreatedAt: time.Now()},
		{Content: "Tip: how to brew better coffee at home, a short guide for beginners with facts.", Hashtags: []string{"coffee", "tips"}, Category: "food", Tone: "neutral", CreatedAt: time.Now()},
	}

	first := a.Analyze(posts)
	second := a.Analyze(posts)

	assert.Equal(t, first.ArchetypeScores, second.ArchetypeScores)
	assert.Equal(t, first, second)
}

func TestAnalyze_ShortTightCorpusIsMinimalistAndConsistent(t *testing.T) {
	a := newTestAnalyzer(t)

	base := time.Date(2025, time.July, 1, 12, 0, 0, 0, time.UTC)
	posts := make([]models.Post, 12)
	for i := range posts {
		// Lengths cluster between 20 and 45 characters, at most 2 emojis.
		content := fmt.Sprintf("quiet day number %02d, all is calm", i)
		if i%3 == 0 {
			content += " ☀️"
		}
		posts[i] = models.Post{
			ID:        fmt.Sprintf("p%d", i),
			Content:   content,
			Hashtags:  []string{"calm"},
			Category:  "lifestyle",
			Tone:      "calm",
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}
	}

	report := a.Analyze(posts)

	assert.Equal(t, "minimalist", report.DominantArchetypeID)
	assert.Greater(t, report.Consistency, 70, "tightly clustered lengths must score high consistency")
}

func TestAnalyze_DominantTieBrokenByDeclarationOrder(t *testing.T) {
	a := NewAnalyzer([]Archetype{
		{ID: "first", Name: "First", LengthMin: 0, LengthMax: 100},
		{ID: "second", Name: "Second", LengthMin: 0, LengthMax: 100},
	})

	report := a.Analyze([]models.Post{{Content: "hello world", CreatedAt: time.Now()}})

	assert.Equal(t, report.ArchetypeScores["first"], report.ArchetypeScores["second"])
	assert.Equal(t, "first", report.DominantArchetypeID)
}

func TestLengthConsistency_SmallSampleDefaultsTo50(t *testing.T) {
	posts := []models.Post{
		{Content: "one", CreatedAt: time.Now()},
		{Content: "a much longer second post entirely", CreatedAt: time.Now()},
	}
	assert.Equal(t, 50, lengthConsistency(posts))
}

func TestLengthConsistency_IdenticalLengthsScore100(t *testing.T) {
	posts := make([]models.Post, 6)
	for i := range posts {
		posts[i] = models.Post{Content: "same length text", CreatedAt: time.Now()}
	}
	assert.Equal(t, 100, lengthConsistency(posts))
}

func TestCorpusDiversity(t *testing.T) {
	posts := []models.Post{
		{Content: "a", Hashtags: []string{"one"}, Category: "food", Tone: "calm"},
		{Content: "b", Hashtags: []string{"two"}, Category: "travel", Tone: "warm"},
	}

	// uniqueHashtags/postCount = 2/2 -> 100, categories 2/5 -> 40,
	// tones 2/4 -> 50; mean = 63.33 -> 63
	assert.Equal(t, 63, corpusDiversity(posts))
}

func TestCountEmojis(t *testing.T) {
	tests := []struct {
		text     string
		expected int
	}{
		{"no emojis here", 0},
		{"sunny ☀️ day", 1},
		{"🌸🌷🌱", 3},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, countEmojis(tt.text), "text %q", tt.text)
	}
}

func TestRecommendations_Thresholds(t *testing.T) {
	a := newTestAnalyzer(t)

	lowConsistency := a.recommendations("minimalist", 40, 60)
	assert.Contains(t, lowConsistency[0], "consistent")

	lowDiversity := a.recommendations("minimalist", 90, 30)
	assert.Contains(t, lowDiversity[0], "more topics")

	highDiversity := a.recommendations("minimalist", 90, 90)
	assert.Contains(t, highDiversity[0], "Focusing")
}
