package flow

import (
	"fmt"
	"time"

	"github.com/samber/lo"
)

// SprintStartGrace is how long before a sprint officially opens work may begin
// and still count as started within the sprint.
const SprintStartGrace = 6 * time.Hour

// Ticket is a resolved unit of work.
type Ticket struct {
	ID        string `json:"key"`
	Team      string `json:"team"`
	IssueType string `json:"issue_type,omitempty"`
	Status    string `json:"status,omitempty"`
	Summary   string `json:"summary,omitempty"`

	CreatedAt  time.Time `json:"created_at"`
	StartedAt  time.Time `json:"started_at"`
	ResolvedAt time.Time `json:"resolved_at"`

	// StoryPoints is nil for unestimated tickets.
	StoryPoints *int `json:"story_points,omitempty"`
}

// Points returns the story points, counting unestimated tickets as 0.
func (t Ticket) Points() int {
	if t.StoryPoints == nil {
		return 0
	}
	return *t.StoryPoints
}

// Validate checks CreatedAt <= StartedAt <= ResolvedAt.
func (t Ticket) Validate() error {
	if t.StartedAt.Before(t.CreatedAt) {
		return fmt.Errorf("ticket %s: started at %s before it was created at %s", t.ID, t.StartedAt.Format(time.RFC3339), t.CreatedAt.Format(time.RFC3339))
	}
	if t.ResolvedAt.Before(t.StartedAt) {
		return fmt.Errorf("ticket %s: resolved at %s before it was started at %s", t.ID, t.ResolvedAt.Format(time.RFC3339), t.StartedAt.Format(time.RFC3339))
	}
	return nil
}

// Sprint is a closed iteration and the tickets associated with it.
type Sprint struct {
	ID       int       `json:"id"`
	Name     string    `json:"name"`
	Team     string    `json:"team"`
	Goal     string    `json:"goal,omitempty"`
	OpenedAt time.Time `json:"opened_at"`
	ClosedAt time.Time `json:"closed_at"`
	Tickets  []Ticket  `json:"tickets"`
}

// Validate checks OpenedAt < ClosedAt.
func (s Sprint) Validate() error {
	if !s.OpenedAt.Before(s.ClosedAt) {
		return fmt.Errorf("sprint %q: opened at %s is not before closed at %s", s.Name, s.OpenedAt.Format(time.RFC3339), s.ClosedAt.Format(time.RFC3339))
	}
	return nil
}

// StartedWithinSprint excludes spillover: tickets started before the sprint opened,
// allowing for SprintStartGrace.
func (s Sprint) StartedWithinSprint() []Ticket {
	threshold := s.OpenedAt.Add(-SprintStartGrace)
	return lo.Filter(s.Tickets, func(t Ticket, _ int) bool {
		return !t.StartedAt.Before(threshold)
	})
}

// ResolvedBy returns the tickets resolved at or before the given instant.
func (s Sprint) ResolvedBy(at time.Time) []Ticket {
	return lo.Filter(s.Tickets, func(t Ticket, _ int) bool {
		return !t.ResolvedAt.IsZero() && !t.ResolvedAt.After(at)
	})
}

// TotalPoints sums the story points of every ticket in the sprint.
func (s Sprint) TotalPoints() int {
	return lo.SumBy(s.Tickets, Ticket.Points)
}
