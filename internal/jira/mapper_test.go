package jira

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"streamline/internal/history"
)

func status(created, to string) HistoryDTO {
	return HistoryDTO{Created: created, Items: []ItemDTO{{Field: "status", ToString: to}}}
}

func issue(t *testing.T, raw string) IssueDTO {
	t.Helper()
	var dto IssueDTO
	if err := json.Unmarshal([]byte(raw), &dto); err != nil {
		t.Fatal(err)
	}
	return dto
}

func TestStatusEvents_SortsHistoriesAndIgnoresOtherFields(t *testing.T) {
	changelog := &ChangelogDTO{Histories: []HistoryDTO{
		status("2025-06-04T10:00:00.000+0000", "Done"),
		{Created: "2025-06-02T12:00:00.000+0000", Items: []ItemDTO{{Field: "assignee", ToString: "alice"}}},
		status("2025-06-02T14:00:00.000+0000", "In Progress"),
		status("not a date", "Done"),
	}}

	events := StatusEvents(changelog)
	if len(events) != 2 {
		t.Fatalf("StatusEvents() returned %d events, want 2", len(events))
	}
	if events[0].ToStatus != "In Progress" || events[0].Index != 1 {
		t.Errorf("events[0] = %+v, want In Progress at index 1", events[0])
	}
	if events[1].ToStatus != "Done" || events[1].Index != 2 {
		t.Errorf("events[1] = %+v, want Done at index 2", events[1])
	}
}

func TestStatusEvents_NilChangelog(t *testing.T) {
	if events := StatusEvents(nil); events != nil {
		t.Errorf("StatusEvents(nil) = %v, want nil", events)
	}
}

func TestMapTicket(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Skip("tzdata not available")
	}

	dto := issue(t, `{
		"key": "PROJ-7",
		"fields": {
			"summary": "Ship it",
			"issuetype": {"name": "Story"},
			"status": {"name": "Done"},
			"created": "2025-06-02T07:00:00.000+0000",
			"customfield_10002": 3.0
		},
		"changelog": {"histories": [
			{"created": "2025-06-02T12:00:00.000+0000", "items": [{"field": "status", "toString": "In Progress"}]},
			{"created": "2025-06-03T08:00:00.000+0000", "items": [{"field": "status", "toString": "Done"}]},
			{"created": "2025-06-03T09:00:00.000+0000", "items": [{"field": "status", "toString": "In Progress"}]},
			{"created": "2025-06-04T15:30:00.000+0000", "items": [{"field": "status", "toString": "Done"}]}
		]}
	}`)

	ticket, err := MapTicket(dto, MapOptions{
		Team:             "Phoenix",
		Resolver:         history.NewResolver([]string{"In Progress"}, []string{"Done"}),
		Location:         berlin,
		StoryPointsField: "customfield_10002",
	})
	if err != nil {
		t.Fatalf("MapTicket() error = %v", err)
	}

	if ticket.ID != "PROJ-7" || ticket.Team != "Phoenix" || ticket.IssueType != "Story" || ticket.Summary != "Ship it" {
		t.Errorf("MapTicket() = %+v", ticket)
	}
	wantStart := time.Date(2025, 6, 3, 11, 0, 0, 0, berlin)
	if !ticket.StartedAt.Equal(wantStart) || ticket.StartedAt.Location() != berlin {
		t.Errorf("StartedAt = %v, want %v in Berlin", ticket.StartedAt, wantStart)
	}
	wantResolved := time.Date(2025, 6, 4, 17, 30, 0, 0, berlin)
	if !ticket.ResolvedAt.Equal(wantResolved) {
		t.Errorf("ResolvedAt = %v, want %v", ticket.ResolvedAt, wantResolved)
	}
	if ticket.StoryPoints == nil || *ticket.StoryPoints != 3 {
		t.Errorf("StoryPoints = %v, want 3", ticket.StoryPoints)
	}
	if err := ticket.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestMapTicket_ResolverErrors(t *testing.T) {
	resolver := history.NewResolver([]string{"In Progress"}, []string{"Done"})

	tests := []struct {
		name    string
		changes string
		want    error
	}{
		{"NeverStarted", `[{"created":"2025-06-03T08:00:00.000+0000","items":[{"field":"status","toString":"Done"}]}]`, history.ErrNotStarted},
		{"Reopened", `[
			{"created":"2025-06-02T08:00:00.000+0000","items":[{"field":"status","toString":"In Progress"}]},
			{"created":"2025-06-03T08:00:00.000+0000","items":[{"field":"status","toString":"Done"}]},
			{"created":"2025-06-04T08:00:00.000+0000","items":[{"field":"status","toString":"In Progress"}]}
		]`, history.ErrNotFinished},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dto := issue(t, `{"key":"PROJ-9","fields":{"created":"2025-06-01T08:00:00.000+0000"},"changelog":{"histories":`+tt.changes+`}}`)
			_, err := MapTicket(dto, MapOptions{Resolver: resolver})
			if !errors.Is(err, tt.want) {
				t.Errorf("MapTicket() error = %v, want %v", err, tt.want)
			}
			if err != nil && !strings.Contains(err.Error(), "PROJ-9") {
				t.Errorf("error %q does not name the ticket", err)
			}
		})
	}
}

func TestFieldsDTO_StoryPoints(t *testing.T) {
	tests := []struct {
		name   string
		fields string
		want   *int
	}{
		{"Float", `{"customfield_10002": 8.0}`, intPtr(8)},
		{"Fraction", `{"customfield_10002": 2.5}`, intPtr(2)},
		{"Null", `{"customfield_10002": null}`, nil},
		{"Absent", `{}`, nil},
		{"NonNumeric", `{"customfield_10002": "large"}`, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var f FieldsDTO
			if err := json.Unmarshal([]byte(tt.fields), &f); err != nil {
				t.Fatal(err)
			}
			got := f.StoryPoints("customfield_10002")
			if (got == nil) != (tt.want == nil) || (got != nil && *got != *tt.want) {
				t.Errorf("StoryPoints() = %v, want %v", got, tt.want)
			}
		})
	}
}

func intPtr(n int) *int { return &n }

func TestMapSprint(t *testing.T) {
	dto := SprintDTO{
		ID:           12,
		Name:         "Sprint 12",
		StartDate:    "2025-06-10T09:00:00.000Z",
		CompleteDate: "2025-06-24T17:00:00.000Z",
	}
	sprint, err := MapSprint(dto, "Phoenix", []string{"PROJ-1", "PROJ-2"}, time.UTC)
	if err != nil {
		t.Fatalf("MapSprint() error = %v", err)
	}
	if sprint.ID != 12 || sprint.Team != "Phoenix" || len(sprint.Tickets) != 2 || sprint.Tickets[1].ID != "PROJ-2" {
		t.Errorf("MapSprint() = %+v", sprint)
	}

	dto.CompleteDate = ""
	if _, err := MapSprint(dto, "Phoenix", nil, time.UTC); err == nil {
		t.Error("MapSprint() expected error for a sprint without a complete date")
	}
}

func TestParseTime(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2025-06-02T09:00:00.000+0200", time.Date(2025, 6, 2, 7, 0, 0, 0, time.UTC)},
		{"2025-06-02T09:00:00.000Z", time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)},
		{"2025-06-02T09:00:00+02:00", time.Date(2025, 6, 2, 7, 0, 0, 0, time.UTC)},
		{"2025-06-02T09:00:00", time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		got, err := ParseTime(tt.in)
		if err != nil {
			t.Errorf("ParseTime(%q) error = %v", tt.in, err)
			continue
		}
		if !got.Equal(tt.want) {
			t.Errorf("ParseTime(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
	if _, err := ParseTime("yesterday"); err == nil {
		t.Error("ParseTime(yesterday) expected error")
	}
}

func TestScopeJQL(t *testing.T) {
	scope := Scope{Project: "PROJ", Team: "Phoenix", IssueTypes: []string{"Story", "Bug"}}

	got := scope.SprintIssuesJQL(7)
	want := `Sprint = 7 AND project = "PROJ" AND Teams = "Phoenix" AND issuetype IN ("Story", "Bug")`
	if got != want {
		t.Errorf("SprintIssuesJQL() = %s, want %s", got, want)
	}

	got = scope.DoneIssuesJQL([]int{7, 8}, "Done", time.Date(2025, 6, 1, 15, 0, 0, 0, time.UTC))
	want = `project = "PROJ" AND Teams = "Phoenix" AND issuetype IN ("Story", "Bug") AND Sprint IN (7, 8) AND status CHANGED TO "Done" AFTER "2025-06-01" ORDER BY created ASC`
	if got != want {
		t.Errorf("DoneIssuesJQL() = %s, want %s", got, want)
	}

	got = Scope{Project: "PROJ"}.DoneIssuesJQL(nil, "Done", time.Time{})
	if got != `project = "PROJ" ORDER BY created ASC` {
		t.Errorf("DoneIssuesJQL() without filters = %s", got)
	}
}
