package worktime

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidConfiguration marks a malformed workday window.
var ErrInvalidConfiguration = errors.New("invalid workday configuration")

// ConfigError describes why a workday window was rejected.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %s", ErrInvalidConfiguration, e.Reason)
}

func (e *ConfigError) Unwrap() error { return ErrInvalidConfiguration }

// TimeOfDay is a wall-clock time without a date, e.g. 09:30.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay parses "HH:MM" (24h clock).
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("invalid time of day %q: %w", s, err)
	}
	return TimeOfDay{Hour: t.Hour(), Minute: t.Minute()}, nil
}

// MustTimeOfDay is ParseTimeOfDay for constants; it panics on malformed input.
func MustTimeOfDay(s string) TimeOfDay {
	tod, err := ParseTimeOfDay(s)
	if err != nil {
		panic(err)
	}
	return tod
}

// UnmarshalText lets env and YAML decoders read "HH:MM" values.
func (t *TimeOfDay) UnmarshalText(text []byte) error {
	parsed, err := ParseTimeOfDay(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// Before reports whether t is strictly earlier in the day than other.
func (t TimeOfDay) Before(other TimeOfDay) bool {
	return t.minutes() < other.minutes()
}

// On returns the instant at time t on day's calendar date, in day's location.
func (t TimeOfDay) On(day time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour, t.Minute, 0, 0, day.Location())
}

func (t TimeOfDay) minutes() int { return t.Hour*60 + t.Minute }

// Window is the daily block of working hours used to clip partial days.
// Duration is the number of hours a full working day counts for.
type Window struct {
	StartsAt TimeOfDay
	EndsAt   TimeOfDay
	Duration time.Duration
}

// NewWindow validates and builds a workday window.
func NewWindow(startsAt, endsAt TimeOfDay, duration time.Duration) (Window, error) {
	if !startsAt.Before(endsAt) {
		return Window{}, &ConfigError{Reason: fmt.Sprintf("workday must start before it ends (%s >= %s)", startsAt, endsAt)}
	}
	if duration <= 0 {
		return Window{}, &ConfigError{Reason: fmt.Sprintf("workday duration must be positive, got %s", duration)}
	}
	return Window{StartsAt: startsAt, EndsAt: endsAt, Duration: duration}, nil
}

// Bounds returns the window's opening and closing instants on the date of day.
func (w Window) Bounds(day time.Time) (open, close time.Time) {
	return w.StartsAt.On(day), w.EndsAt.On(day)
}
