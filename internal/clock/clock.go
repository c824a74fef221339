package clock

import (
	"time"

	"github.com/writeway/personalization/internal/models"
)

// Provider supplies the current time and the device locale. Preset selection
// and cache keys depend on it, so tests inject a fixed implementation.
type Provider interface {
	Now() time.Time
	DeviceLocale() models.Locale
}

// System is the production provider backed by the wall clock.
type System struct {
	Locale models.Locale
}

// NewSystem creates a system clock with the given device locale.
func NewSystem(locale models.Locale) *System {
	return &System{Locale: locale}
}

func (s *System) Now() time.Time {
	return time.Now()
}

func (s *System) DeviceLocale() models.Locale {
	return s.Locale
}

// Fixed is a provider pinned to a single instant, for tests.
type Fixed struct {
	Time   time.Time
	Locale models.Locale
}

func (f *Fixed) Now() time.Time {
	return f.Time
}

func (f *Fixed) DeviceLocale() models.Locale {
	return f.Locale
}
