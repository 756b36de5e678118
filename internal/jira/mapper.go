package jira

import (
	"fmt"
	"slices"
	"time"

	"streamline/internal/flow"
	"streamline/internal/history"
)

// MapOptions controls how issues become tickets.
type MapOptions struct {
	Team             string
	Resolver         *history.Resolver
	Location         *time.Location
	StoryPointsField string
}

// StatusEvents flattens a changelog into status change events.
// Histories are ordered by creation time first; an event's Index is its history's position
// in that order, so transitions recorded in one history share an index.
func StatusEvents(changelog *ChangelogDTO) []history.StatusChangeEvent {
	if changelog == nil {
		return nil
	}

	type dated struct {
		at      time.Time
		history HistoryDTO
	}
	var histories []dated
	for _, h := range changelog.Histories {
		at, err := ParseTime(h.Created)
		if err != nil {
			continue
		}
		histories = append(histories, dated{at: at, history: h})
	}
	slices.SortStableFunc(histories, func(a, b dated) int { return a.at.Compare(b.at) })

	var events []history.StatusChangeEvent
	for i, h := range histories {
		for _, item := range h.history.Items {
			if item.Field != "status" {
				continue
			}
			events = append(events, history.StatusChangeEvent{
				Index:     i,
				Timestamp: h.at,
				ToStatus:  item.ToString,
			})
		}
	}
	return events
}

// MapTicket resolves an issue's start and finish and builds a ticket.
// Issues that never started or never finished return the resolver's error wrapped with the key.
func MapTicket(item IssueDTO, opts MapOptions) (flow.Ticket, error) {
	created, err := ParseTime(item.Fields.Created)
	if err != nil {
		return flow.Ticket{}, fmt.Errorf("ticket %s: created: %w", item.Key, err)
	}

	startedAt, resolvedAt, err := opts.Resolver.Resolve(StatusEvents(item.Changelog))
	if err != nil {
		return flow.Ticket{}, fmt.Errorf("ticket %s: %w", item.Key, err)
	}

	ticket := flow.Ticket{
		ID:          item.Key,
		Team:        opts.Team,
		IssueType:   item.Fields.IssueType.Name,
		Status:      item.Fields.Status.Name,
		Summary:     item.Fields.Summary,
		CreatedAt:   Normalize(created, opts.Location),
		StartedAt:   Normalize(startedAt, opts.Location),
		ResolvedAt:  Normalize(resolvedAt, opts.Location),
		StoryPoints: item.Fields.StoryPoints(opts.StoryPointsField),
	}

	// Issues moved to in progress right at creation can carry a status change a few
	// milliseconds ahead of the created stamp.
	if ticket.StartedAt.Before(ticket.CreatedAt) {
		ticket.CreatedAt = ticket.StartedAt
	}
	return ticket, nil
}

// MapSprint builds a closed sprint whose tickets carry only their keys.
func MapSprint(item SprintDTO, team string, keys []string, loc *time.Location) (flow.Sprint, error) {
	openedAt, err := ParseTime(item.StartDate)
	if err != nil {
		return flow.Sprint{}, fmt.Errorf("sprint %d: start date: %w", item.ID, err)
	}
	closedAt, err := ParseTime(item.CompleteDate)
	if err != nil {
		return flow.Sprint{}, fmt.Errorf("sprint %d: complete date: %w", item.ID, err)
	}

	tickets := make([]flow.Ticket, 0, len(keys))
	for _, key := range keys {
		tickets = append(tickets, flow.Ticket{ID: key, Team: team})
	}

	sprint := flow.Sprint{
		ID:       item.ID,
		Name:     item.Name,
		Team:     team,
		Goal:     item.Goal,
		OpenedAt: Normalize(openedAt, loc),
		ClosedAt: Normalize(closedAt, loc),
		Tickets:  tickets,
	}
	if err := sprint.Validate(); err != nil {
		return flow.Sprint{}, err
	}
	return sprint, nil
}

// Normalize converts t into loc; a nil loc leaves t untouched.
func Normalize(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		return t
	}
	return t.In(loc)
}
