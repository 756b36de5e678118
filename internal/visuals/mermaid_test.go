package visuals

import (
	"fmt"
	"strings"
	"testing"

	"streamline/internal/metrics"
)

func TestForReport_Throughput(t *testing.T) {
	report := metrics.Response[metrics.ThroughputDataPoint]{Datapoints: []metrics.ThroughputDataPoint{
		{Sprint: "Sprint 1", Completed: 4, Residuals: 1},
		{Sprint: "Sprint 2", Completed: 6, Residuals: 0},
	}}

	got := ForReport(report)
	for _, want := range []string{
		"xychart-beta",
		`title "Sprint Throughput"`,
		`x-axis ["Sprint 1", "Sprint 2"]`,
		`y-axis "Tickets" 0 --> 7`,
		"bar [4, 6]",
		"line [1, 0]",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("ForReport() missing %q in\n%s", want, got)
		}
	}
}

func TestForReport_CycleTimeWithSummary(t *testing.T) {
	report := metrics.Response[metrics.CycleTimeDataPoint]{
		Datapoints: []metrics.CycleTimeDataPoint{{Key: "ST-1", Duration: 1.5}, {Key: "ST-2", Duration: 4}},
		Meta:       metrics.Meta{Metric: "Cycle Time", Summary: &metrics.Summary{Count: 2, Median: 2.75, P85: 3.62}},
	}

	got := ForReport(report)
	if !strings.Contains(got, "bar [1.5, 4.0]") {
		t.Errorf("ForReport() = %s, want bar of durations", got)
	}
	if strings.Count(got, "line [") != 2 {
		t.Errorf("ForReport() = %s, want median and p85 lines", got)
	}
	if !strings.Contains(got, "0 --> 5") {
		t.Errorf("ForReport() = %s, want y-axis up to 5", got)
	}
}

func TestForReport_Empty(t *testing.T) {
	if got := ForReport(metrics.Response[metrics.VelocityDataPoint]{}); got != "" {
		t.Errorf("ForReport(empty) = %q, want empty", got)
	}
}

func TestSprintChart_KeepsMostRecent(t *testing.T) {
	var sprints []string
	var counts []int
	for i := 1; i <= maxPoints+5; i++ {
		sprints = append(sprints, fmt.Sprintf("S%d", i))
		counts = append(counts, i)
	}
	got := SprintChart("Sprint Throughput", "Tickets", sprints, counts, counts)
	if strings.Contains(got, `"S5"`) || !strings.Contains(got, `"S6"`) {
		t.Errorf("SprintChart() should keep the last %d sprints:\n%s", maxPoints, got)
	}
}
