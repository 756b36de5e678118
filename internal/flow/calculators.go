// Package flow computes the published flow metrics for tickets and sprints.
package flow

import (
	"time"

	"streamline/internal/worktime"

	"github.com/samber/lo"
)

// WorkingTime converts two instants into elapsed working days.
// *worktime.Calculator satisfies it.
type WorkingTime interface {
	WorkingDays(start, end time.Time) (float64, error)
}

// CycleTimeCalculator measures from a ticket's final start to its resolution.
type CycleTimeCalculator struct {
	calendar WorkingTime
}

func NewCycleTimeCalculator(calendar WorkingTime) *CycleTimeCalculator {
	return &CycleTimeCalculator{calendar: calendar}
}

// Calculate returns the cycle time in working days.
func (c *CycleTimeCalculator) Calculate(ticket Ticket) (float64, error) {
	return c.calendar.WorkingDays(ticket.StartedAt, ticket.ResolvedAt)
}

// LeadTimeCalculator measures from a ticket's creation to its resolution.
type LeadTimeCalculator struct {
	calendar WorkingTime
}

func NewLeadTimeCalculator(calendar WorkingTime) *LeadTimeCalculator {
	return &LeadTimeCalculator{calendar: calendar}
}

// Calculate returns the lead time in working days.
func (c *LeadTimeCalculator) Calculate(ticket Ticket) (float64, error) {
	return c.calendar.WorkingDays(ticket.CreatedAt, ticket.ResolvedAt)
}

// SprintClose resolves the instant a sprint is considered closed.
// With a configured time of day, the close moves to that hour on the sprint's closing date.
type SprintClose struct {
	at *worktime.TimeOfDay
}

// NewSprintClose returns a SprintClose; a nil closeAt keeps each sprint's own ClosedAt.
func NewSprintClose(closeAt *worktime.TimeOfDay) SprintClose {
	return SprintClose{at: closeAt}
}

// Effective returns the effective close instant of the sprint. A configured
// time of day replaces the hour and minute of the close only; seconds and
// below are kept.
func (c SprintClose) Effective(sprint Sprint) time.Time {
	closed := sprint.ClosedAt
	if c.at == nil {
		return closed
	}
	return time.Date(closed.Year(), closed.Month(), closed.Day(), c.at.Hour, c.at.Minute,
		closed.Second(), closed.Nanosecond(), closed.Location())
}

// Completed returns the tickets resolved by the sprint's effective close.
func (c SprintClose) Completed(sprint Sprint) []Ticket {
	return sprint.ResolvedBy(c.Effective(sprint))
}

// ThroughputCalculator counts the tickets completed within a sprint.
type ThroughputCalculator struct {
	sprintClose SprintClose
}

func NewThroughputCalculator(sprintClose SprintClose) *ThroughputCalculator {
	return &ThroughputCalculator{sprintClose: sprintClose}
}

// Calculate returns the number of tickets resolved at or before the effective close.
func (c *ThroughputCalculator) Calculate(sprint Sprint) int {
	return len(c.sprintClose.Completed(sprint))
}

// VelocityCalculator sums the story points completed within a sprint.
type VelocityCalculator struct {
	sprintClose SprintClose
}

func NewVelocityCalculator(sprintClose SprintClose) *VelocityCalculator {
	return &VelocityCalculator{sprintClose: sprintClose}
}

// Calculate returns the story points of tickets resolved at or before the effective close.
// Unestimated tickets contribute nothing.
func (c *VelocityCalculator) Calculate(sprint Sprint) int {
	return lo.SumBy(c.sprintClose.Completed(sprint), Ticket.Points)
}
