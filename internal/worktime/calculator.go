package worktime

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrInvalidRange is returned when a duration is requested for a start after its end.
var ErrInvalidRange = errors.New("start must not be after end")

// RangeError carries the offending instants of an inverted range.
type RangeError struct {
	Start time.Time
	End   time.Time
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("%s: %s > %s", ErrInvalidRange, e.Start.Format(time.RFC3339), e.End.Format(time.RFC3339))
}

func (e *RangeError) Unwrap() error { return ErrInvalidRange }

// Calculator converts pairs of instants into elapsed working time.
// It holds no mutable state and is safe for concurrent use.
type Calculator struct {
	calendar WorkCalendar
	window   Window
}

// NewCalculator creates a Calculator. The window is expected to come from NewWindow.
func NewCalculator(calendar WorkCalendar, window Window) *Calculator {
	return &Calculator{calendar: calendar, window: window}
}

// Window returns the workday window the calculator clips to.
func (c *Calculator) Window() Window { return c.window }

// WorkingDays returns the working time between start and end as a fraction of workdays,
// rounded to two decimals (half to even).
func (c *Calculator) WorkingDays(start, end time.Time) (float64, error) {
	hours, err := c.WorkingHours(start, end)
	if err != nil {
		return 0, err
	}
	return roundHalfEven(hours/c.window.Duration.Hours(), 2), nil
}

// WorkingHours returns the unrounded number of working hours between start and end.
// Both instants are read in start's location.
func (c *Calculator) WorkingHours(start, end time.Time) (float64, error) {
	if start.After(end) {
		return 0, &RangeError{Start: start, End: end}
	}
	end = end.In(start.Location())

	if SameDate(start, end) {
		if !c.calendar.IsWorkingDay(DateOf(start)) {
			return 0, nil
		}
		open, close := c.window.Bounds(start)
		return c.capped(overlap(start, end, open, close)), nil
	}

	startDate, endDate := DateOf(start), DateOf(end)

	var startPartial, endPartial float64
	if c.calendar.IsWorkingDay(startDate) {
		startPartial = c.startPartial(start)
	}
	if c.calendar.IsWorkingDay(endDate) {
		endPartial = c.endPartial(end)
	}

	fullDays := 0
	first, last := startDate.AddDate(0, 0, 1), endDate.AddDate(0, 0, -1)
	if !first.After(last) {
		fullDays = c.calendar.WorkingDaysDelta(first, last)
	}

	return float64(fullDays)*c.window.Duration.Hours() + startPartial + endPartial, nil
}

// startPartial counts from start to the window's end of day.
func (c *Calculator) startPartial(start time.Time) float64 {
	open, close := c.window.Bounds(start)
	if !start.Before(close) {
		return 0
	}
	return c.capped(overlap(start, close, open, close))
}

// endPartial counts from the window's start of day to end.
func (c *Calculator) endPartial(end time.Time) float64 {
	open, close := c.window.Bounds(end)
	if !end.After(open) {
		return 0
	}
	return c.capped(overlap(open, end, open, close))
}

func (c *Calculator) capped(hours float64) float64 {
	return math.Min(hours, c.window.Duration.Hours())
}

// overlap returns the hours shared by [from, to] and [open, close], or 0.
func overlap(from, to, open, close time.Time) float64 {
	if from.Before(open) {
		from = open
	}
	if to.After(close) {
		to = close
	}
	if !to.After(from) {
		return 0
	}
	return to.Sub(from).Hours()
}

func roundHalfEven(value float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.RoundToEven(value*scale) / scale
}
