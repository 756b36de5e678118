package flow

import (
	"errors"
	"testing"
	"time"

	"streamline/internal/worktime"
)

type weekdays struct{}

func (weekdays) IsWorkingDay(day time.Time) bool {
	return day.Weekday() != time.Saturday && day.Weekday() != time.Sunday
}

func (w weekdays) WorkingDaysDelta(start, end time.Time) int {
	count := 0
	for d := worktime.DateOf(start); !d.After(end); d = d.AddDate(0, 0, 1) {
		if w.IsWorkingDay(d) {
			count++
		}
	}
	return count
}

func newCalculator(t *testing.T) *worktime.Calculator {
	t.Helper()
	window, err := worktime.NewWindow(worktime.MustTimeOfDay("09:00"), worktime.MustTimeOfDay("17:00"), 8*time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	return worktime.NewCalculator(weekdays{}, window)
}

func points(n int) *int { return &n }

func TestCycleTimeCalculator(t *testing.T) {
	ticket := Ticket{
		ID:         "FLOW-1",
		CreatedAt:  time.Date(2025, 5, 5, 9, 0, 0, 0, time.UTC),
		StartedAt:  time.Date(2025, 5, 12, 14, 0, 0, 0, time.UTC), // Monday
		ResolvedAt: time.Date(2025, 5, 14, 10, 0, 0, 0, time.UTC), // Wednesday
	}

	got, err := NewCycleTimeCalculator(newCalculator(t)).Calculate(ticket)
	if err != nil {
		t.Fatalf("Calculate() error = %v", err)
	}
	if got != 1.5 {
		t.Errorf("Calculate() = %v, want 1.5", got)
	}
}

func TestLeadTimeCalculator(t *testing.T) {
	ticket := Ticket{
		ID:         "FLOW-2",
		CreatedAt:  time.Date(2025, 5, 5, 9, 0, 0, 0, time.UTC),   // Monday
		StartedAt:  time.Date(2025, 5, 12, 14, 0, 0, 0, time.UTC), // Monday
		ResolvedAt: time.Date(2025, 5, 14, 10, 0, 0, 0, time.UTC), // Wednesday
	}

	got, err := NewLeadTimeCalculator(newCalculator(t)).Calculate(ticket)
	if err != nil {
		t.Fatalf("Calculate() error = %v", err)
	}
	// Mon 8h + Tue..Fri 32h + Mon 8h + Tue 8h + Wed 1h
	if got != 7.12 {
		t.Errorf("Calculate() = %v, want 7.12", got)
	}
}

func TestCycleTimeCalculator_PropagatesInvalidRange(t *testing.T) {
	ticket := Ticket{
		ID:         "FLOW-3",
		StartedAt:  time.Date(2025, 5, 14, 10, 0, 0, 0, time.UTC),
		ResolvedAt: time.Date(2025, 5, 12, 10, 0, 0, 0, time.UTC),
	}
	_, err := NewCycleTimeCalculator(newCalculator(t)).Calculate(ticket)
	if !errors.Is(err, worktime.ErrInvalidRange) {
		t.Errorf("Calculate() error = %v, want ErrInvalidRange", err)
	}
}

func TestThroughputAndVelocity_CloseBoundary(t *testing.T) {
	closedAt := time.Date(2025, 6, 24, 17, 0, 0, 0, time.UTC)
	sprint := Sprint{
		Name:     "Sprint 12",
		OpenedAt: closedAt.AddDate(0, 0, -14),
		ClosedAt: closedAt,
		Tickets: []Ticket{
			{ID: "T-1", ResolvedAt: closedAt.Add(-time.Second), StoryPoints: points(3)},
			{ID: "T-2", ResolvedAt: closedAt, StoryPoints: points(5)},
			{ID: "T-3", ResolvedAt: closedAt.Add(time.Second), StoryPoints: points(8)},
		},
	}

	sprintClose := NewSprintClose(nil)
	if got := NewThroughputCalculator(sprintClose).Calculate(sprint); got != 2 {
		t.Errorf("Throughput = %d, want 2", got)
	}
	if got := NewVelocityCalculator(sprintClose).Calculate(sprint); got != 8 {
		t.Errorf("Velocity = %d, want 8", got)
	}
}

func TestVelocity_UnestimatedCountsAsZero(t *testing.T) {
	closedAt := time.Date(2025, 6, 24, 17, 0, 0, 0, time.UTC)
	sprint := Sprint{
		OpenedAt: closedAt.AddDate(0, 0, -14),
		ClosedAt: closedAt,
		Tickets: []Ticket{
			{ID: "T-1", ResolvedAt: closedAt.Add(-time.Hour), StoryPoints: points(2)},
			{ID: "T-2", ResolvedAt: closedAt.Add(-time.Hour)},
		},
	}

	sprintClose := NewSprintClose(nil)
	if got := NewVelocityCalculator(sprintClose).Calculate(sprint); got != 2 {
		t.Errorf("Velocity = %d, want 2", got)
	}
	if got := NewThroughputCalculator(sprintClose).Calculate(sprint); got != 2 {
		t.Errorf("Throughput = %d, want 2", got)
	}
}

func TestSprintClose_ConfiguredTimeOfDay(t *testing.T) {
	// Sprint closed late in the evening; the team considers 12:00 the cut-off.
	closedAt := time.Date(2025, 6, 24, 22, 30, 0, 0, time.UTC)
	sprint := Sprint{
		OpenedAt: closedAt.AddDate(0, 0, -14),
		ClosedAt: closedAt,
		Tickets: []Ticket{
			{ID: "T-1", ResolvedAt: time.Date(2025, 6, 24, 11, 59, 0, 0, time.UTC), StoryPoints: points(1)},
			{ID: "T-2", ResolvedAt: time.Date(2025, 6, 24, 12, 0, 0, 0, time.UTC), StoryPoints: points(2)},
			{ID: "T-3", ResolvedAt: time.Date(2025, 6, 24, 15, 0, 0, 0, time.UTC), StoryPoints: points(4)},
		},
	}

	noon := worktime.MustTimeOfDay("12:00")
	sprintClose := NewSprintClose(&noon)

	want := time.Date(2025, 6, 24, 12, 0, 0, 0, time.UTC)
	if got := sprintClose.Effective(sprint); !got.Equal(want) {
		t.Errorf("Effective() = %v, want %v", got, want)
	}
	if got := NewThroughputCalculator(sprintClose).Calculate(sprint); got != 2 {
		t.Errorf("Throughput = %d, want 2", got)
	}
	if got := NewVelocityCalculator(sprintClose).Calculate(sprint); got != 3 {
		t.Errorf("Velocity = %d, want 3", got)
	}
}

func TestSprintClose_KeepsSecondsOfClose(t *testing.T) {
	closedAt := time.Date(2025, 6, 24, 18, 45, 59, 0, time.UTC)
	sprint := Sprint{
		OpenedAt: closedAt.AddDate(0, 0, -14),
		ClosedAt: closedAt,
		Tickets: []Ticket{
			{ID: "T-1", ResolvedAt: time.Date(2025, 6, 24, 17, 0, 30, 0, time.UTC), StoryPoints: points(3)},
			{ID: "T-2", ResolvedAt: time.Date(2025, 6, 24, 17, 1, 0, 0, time.UTC), StoryPoints: points(5)},
		},
	}

	five := worktime.MustTimeOfDay("17:00")
	sprintClose := NewSprintClose(&five)

	want := time.Date(2025, 6, 24, 17, 0, 59, 0, time.UTC)
	if got := sprintClose.Effective(sprint); !got.Equal(want) {
		t.Errorf("Effective() = %v, want %v", got, want)
	}
	if got := NewThroughputCalculator(sprintClose).Calculate(sprint); got != 1 {
		t.Errorf("Throughput = %d, want 1", got)
	}
	if got := NewVelocityCalculator(sprintClose).Calculate(sprint); got != 3 {
		t.Errorf("Velocity = %d, want 3", got)
	}
}

func TestSprint_StartedWithinSprint(t *testing.T) {
	openedAt := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)
	closedAt := time.Date(2025, 6, 24, 17, 0, 0, 0, time.UTC)
	threshold := openedAt.Add(-SprintStartGrace)

	tests := []struct {
		name    string
		started []time.Time
		want    []string
	}{
		{"AllWithin", []time.Time{threshold.Add(time.Minute), openedAt.AddDate(0, 0, 1)}, []string{"T-0", "T-1"}},
		{"SpilloverExcluded", []time.Time{threshold.Add(-time.Minute), threshold.Add(time.Minute)}, []string{"T-1"}},
		{"ExactlyAtGrace", []time.Time{threshold}, []string{"T-0"}},
		{"NoneWithin", []time.Time{threshold.AddDate(0, 0, -1)}, nil},
		{"Empty", nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var tickets []Ticket
			for i, s := range tt.started {
				tickets = append(tickets, Ticket{ID: "T-" + string(rune('0'+i)), CreatedAt: s, StartedAt: s, ResolvedAt: closedAt})
			}
			sprint := Sprint{Name: "Sprint", OpenedAt: openedAt, ClosedAt: closedAt, Tickets: tickets}

			got := sprint.StartedWithinSprint()
			if len(got) != len(tt.want) {
				t.Fatalf("StartedWithinSprint() returned %d tickets, want %d", len(got), len(tt.want))
			}
			for i, ticket := range got {
				if ticket.ID != tt.want[i] {
					t.Errorf("StartedWithinSprint()[%d] = %s, want %s", i, ticket.ID, tt.want[i])
				}
			}
		})
	}
}

func TestTicket_Validate(t *testing.T) {
	base := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	valid := Ticket{ID: "V-1", CreatedAt: base, StartedAt: base, ResolvedAt: base}
	if err := valid.Validate(); err != nil {
		t.Errorf("Validate() on equal instants = %v, want nil", err)
	}

	startedEarly := Ticket{ID: "V-2", CreatedAt: base, StartedAt: base.Add(-time.Hour), ResolvedAt: base}
	if err := startedEarly.Validate(); err == nil {
		t.Error("Validate() expected error for start before creation")
	}

	resolvedEarly := Ticket{ID: "V-3", CreatedAt: base, StartedAt: base.Add(time.Hour), ResolvedAt: base}
	if err := resolvedEarly.Validate(); err == nil {
		t.Error("Validate() expected error for resolution before start")
	}
}

func TestSprint_Validate(t *testing.T) {
	at := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	if err := (Sprint{Name: "S", OpenedAt: at, ClosedAt: at.Add(time.Hour)}).Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}
	if err := (Sprint{Name: "S", OpenedAt: at, ClosedAt: at}).Validate(); err == nil {
		t.Error("Validate() expected error for zero-length sprint")
	}
}

func TestMedianAndPercentile(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		median float64
		p85    float64
	}{
		{"Empty", nil, 0, 0},
		{"Single", []float64{2.5}, 2.5, 2.5},
		{"Odd", []float64{3, 1, 2}, 2, 3},
		{"Even", []float64{4, 1, 3, 2}, 2.5, 4},
		{"NearestRank", []float64{10, 9, 8, 7, 6, 5, 4, 3, 2, 1}, 5.5, 9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Median(tt.values); got != tt.median {
				t.Errorf("Median() = %v, want %v", got, tt.median)
			}
			if got := Percentile(tt.values, 0.85); got != tt.p85 {
				t.Errorf("Percentile(0.85) = %v, want %v", got, tt.p85)
			}
		})
	}
}
