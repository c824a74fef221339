// Package presets holds the static seasonal, time-of-day, and weekday
// candidate tables. Lookups are pure functions of the given instant: the same
// time always yields the same preset, which the trend cache key scheme
// depends on.
package presets

import (
	_ "embed"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed presets.yaml
var presetsYAML []byte

// Season is one of the four seasonal buckets.
type Season string

const (
	Spring Season = "spring"
	Summer Season = "summer"
	Fall   Season = "fall"
	Winter Season = "winter"
)

// Slot is one of the four time-of-day buckets.
type Slot string

const (
	Morning   Slot = "morning"
	Afternoon Slot = "afternoon"
	Evening   Slot = "evening"
	Night     Slot = "night"
)

// Preset is one candidate table: hashtags for recommendation, keywords for
// trend titles and prompt matching, emojis for style hints.
type Preset struct {
	Hashtags []string `yaml:"hashtags"`
	Keywords []string `yaml:"keywords"`
	Emojis   []string `yaml:"emojis"`
}

// WeekdayChallenge is an optional themed preset for specific weekdays.
type WeekdayChallenge struct {
	Name     string   `yaml:"name"`
	Hashtags []string `yaml:"hashtags"`
}

type catalog struct {
	Seasons  map[Season]Preset           `yaml:"seasons"`
	Slots    map[Slot]Preset             `yaml:"slots"`
	Weekdays map[string]WeekdayChallenge `yaml:"weekdays"`
}

// Catalog is the loaded preset table set.
type Catalog struct {
	data catalog
}

// Load parses the embedded preset tables. It is called once at construction;
// the result is immutable afterwards.
func Load() (*Catalog, error) {
	var data catalog
	if err := yaml.Unmarshal(presetsYAML, &data); err != nil {
		return nil, fmt.Errorf("parsing embedded presets: %w", err)
	}

	for _, season := range []Season{Spring, Summer, Fall, Winter} {
		if _, ok := data.Seasons[season]; !ok {
			return nil, fmt.Errorf("preset table missing season %q", season)
		}
	}
	for _, slot := range []Slot{Morning, Afternoon, Evening, Night} {
		if _, ok := data.Slots[slot]; !ok {
			return nil, fmt.Errorf("preset table missing slot %q", slot)
		}
	}

	return &Catalog{data: data}, nil
}

// MustLoad is Load for program initialization paths where a broken embedded
// table is unrecoverable.
func MustLoad() *Catalog {
	c, err := Load()
	if err != nil {
		panic(err)
	}
	return c
}

// SeasonFor maps an instant to its season by month: Mar-May spring, Jun-Aug
// summer, Sep-Nov fall, Dec-Feb winter.
func SeasonFor(t time.Time) Season {
	switch t.Month() {
	case time.March, time.April, time.May:
		return Spring
	case time.June, time.July, time.August:
		return Summer
	case time.September, time.October, time.November:
		return Fall
	default:
		return Winter
	}
}

// SlotFor maps an hour (0-23) to its time-of-day slot. Bands are half-open:
// morning [5,12), afternoon [12,17), evening [17,21), night otherwise.
func SlotFor(hour int) Slot {
	switch {
	case hour >= 5 && hour < 12:
		return Morning
	case hour >= 12 && hour < 17:
		return Afternoon
	case hour >= 17 && hour < 21:
		return Evening
	default:
		return Night
	}
}

// SeasonalSet returns the preset for the season containing t.
func (c *Catalog) SeasonalSet(t time.Time) Preset {
	return c.data.Seasons[SeasonFor(t)]
}

// SlotSet returns the preset for the time-of-day slot containing t.
func (c *Catalog) SlotSet(t time.Time) Preset {
	return c.data.Slots[SlotFor(t.Hour())]
}

// WeekdayChallenge returns the themed preset for the given weekday, if one
// exists. Most weekdays have none.
func (c *Catalog) WeekdayChallenge(day time.Weekday) (WeekdayChallenge, bool) {
	ch, ok := c.data.Weekdays[weekdayKey(day)]
	return ch, ok
}

func weekdayKey(day time.Weekday) string {
	switch day {
	case time.Monday:
		return "monday"
	case time.Tuesday:
		return "tuesday"
	case time.Wednesday:
		return "wednesday"
	case time.Thursday:
		return "thursday"
	case time.Friday:
		return "friday"
	case time.Saturday:
		return "saturday"
	default:
		return "sunday"
	}
}
