// Package calendar provides region-aware working-day calendars.
package calendar

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"streamline/internal/worktime"

	"github.com/rickar/cal/v2"
)

const dateKey = "2006-01-02"

// Holiday is a single non-working date.
type Holiday struct {
	Date time.Time
	Name string
}

// Calendar treats weekends and the region's public holidays as non-working days.
// It implements worktime.WorkCalendar on top of a cal.BusinessCalendar.
type Calendar struct {
	region   string
	business *cal.BusinessCalendar
	holidays []*cal.Holiday
}

var _ worktime.WorkCalendar = (*Calendar)(nil)

// Regions lists the supported region codes.
func Regions() []string {
	codes := make([]string, 0, len(regions))
	for code := range regions {
		codes = append(codes, code)
	}
	slices.Sort(codes)
	return codes
}

// ForRegion returns the calendar of a region code such as "DE", "DE-BY" or "US".
// Extra holidays are added on top of the region's own.
func ForRegion(code string, extra ...Holiday) (*Calendar, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	holidays, ok := regions[code]
	if !ok {
		return nil, fmt.Errorf("%w: unknown calendar region %q (supported: %s)",
			worktime.ErrInvalidConfiguration, code, strings.Join(Regions(), ", "))
	}

	all := slices.Clone(holidays)
	for _, h := range extra {
		all = append(all, oneOff(h))
	}

	business := cal.NewBusinessCalendar()
	business.AddHoliday(all...)
	return &Calendar{region: code, business: business, holidays: all}, nil
}

// oneOff turns a dated company holiday into a holiday of its year only.
func oneOff(h Holiday) *cal.Holiday {
	return &cal.Holiday{
		Name:      h.Name,
		Type:      cal.ObservanceOther,
		Month:     h.Date.Month(),
		Day:       h.Date.Day(),
		StartYear: h.Date.Year(),
		EndYear:   h.Date.Year(),
		Func:      cal.CalcDayOfMonth,
	}
}

// Region returns the region code.
func (c *Calendar) Region() string {
	return c.region
}

// IsWorkingDay reports whether the date of day, in day's location, is a working day.
func (c *Calendar) IsWorkingDay(day time.Time) bool {
	y, m, d := day.Date()
	return c.business.IsWorkday(time.Date(y, m, d, 0, 0, 0, 0, time.UTC))
}

// WorkingDaysDelta counts the working days in [start, end] by date, both ends included.
func (c *Calendar) WorkingDaysDelta(start, end time.Time) int {
	from := worktime.DateOf(start)
	to := worktime.DateOf(end.In(start.Location()))

	count := 0
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		if c.IsWorkingDay(d) {
			count++
		}
	}
	return count
}

// Holidays returns the observed holidays of a year in date order.
func (c *Calendar) Holidays(year int) []Holiday {
	seen := make(map[string]bool)
	var out []Holiday
	// Observed dates may cross a year boundary.
	for _, y := range []int{year - 1, year, year + 1} {
		for _, h := range c.holidays {
			_, observed := h.Calc(y)
			if observed.IsZero() || observed.Year() != year {
				continue
			}
			key := observed.Format(dateKey)
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, Holiday{Date: observed, Name: h.Name})
		}
	}
	slices.SortFunc(out, func(a, b Holiday) int { return a.Date.Compare(b.Date) })
	return out
}
