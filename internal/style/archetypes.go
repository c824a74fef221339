package style

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed archetypes.yaml
var archetypesYAML []byte

// Archetype is one writing-style profile posts are scored against. The
// catalog is loaded once at construction and never mutated; declaration
// order in the file breaks dominant-archetype ties.
type Archetype struct {
	ID         string   `yaml:"id"`
	Name       string   `yaml:"name"`
	LengthMin  int      `yaml:"length_min"`
	LengthMax  int      `yaml:"length_max"`
	Keywords   []string `yaml:"keywords"`
	EmojiMin   int      `yaml:"emoji_min"`
	EmojiMax   int      `yaml:"emoji_max"`
	HashtagMin int      `yaml:"hashtag_min"`
	HashtagMax int      `yaml:"hashtag_max"`
	Tone       string   `yaml:"tone"`
}

type archetypeFile struct {
	Archetypes []Archetype `yaml:"archetypes"`
}

// LoadArchetypes parses the embedded archetype catalog.
func LoadArchetypes() ([]Archetype, error) {
	var file archetypeFile
	if err := yaml.Unmarshal(archetypesYAML, &file); err != nil {
		return nil, fmt.Errorf("parsing embedded archetypes: %w", err)
	}
	if len(file.Archetypes) == 0 {
		return nil, fmt.Errorf("archetype catalog is empty")
	}
	return file.Archetypes, nil
}
