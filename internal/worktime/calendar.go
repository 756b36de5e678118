package worktime

import "time"

// WorkCalendar answers which dates are working days.
// Only the date part (year, month, day in the value's location) of the arguments is relevant.
type WorkCalendar interface {
	// IsWorkingDay reports whether work occurs on the given date (no weekend, no holiday).
	IsWorkingDay(day time.Time) bool
	// WorkingDaysDelta returns the number of working days in the closed interval [start, end].
	// An inverted interval (end before start) is empty and yields 0.
	WorkingDaysDelta(start, end time.Time) int
}

// DateOf truncates t to midnight of its calendar date in t's own location.
func DateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// SameDate reports whether a and b fall on the same calendar date in a's location.
func SameDate(a, b time.Time) bool {
	b = b.In(a.Location())
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}
