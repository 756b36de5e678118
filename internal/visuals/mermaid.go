package visuals

import (
	"fmt"
	"math"
	"strings"

	"streamline/internal/metrics"
)

// maxPoints bounds the number of x-axis entries so charts stay readable in chat clients.
const maxPoints = 30

// ForReport renders the Mermaid chart that fits the report's metric, or "" if it has no data.
func ForReport(report metrics.Report) string {
	switch r := report.(type) {
	case metrics.Response[metrics.CycleTimeDataPoint]:
		keys, values := make([]string, 0, len(r.Datapoints)), make([]float64, 0, len(r.Datapoints))
		for _, dp := range r.Datapoints {
			keys, values = append(keys, dp.Key), append(values, dp.Duration)
		}
		return DurationChart(r.Meta, keys, values)
	case metrics.Response[metrics.SprintCycleTimeDataPoint]:
		keys, values := make([]string, 0, len(r.Datapoints)), make([]float64, 0, len(r.Datapoints))
		for _, dp := range r.Datapoints {
			keys, values = append(keys, dp.Key), append(values, dp.Duration)
		}
		return DurationChart(r.Meta, keys, values)
	case metrics.Response[metrics.LeadTimeDataPoint]:
		keys, values := make([]string, 0, len(r.Datapoints)), make([]float64, 0, len(r.Datapoints))
		for _, dp := range r.Datapoints {
			keys, values = append(keys, dp.Key), append(values, dp.Duration)
		}
		return DurationChart(r.Meta, keys, values)
	case metrics.Response[metrics.ThroughputDataPoint]:
		sprints, completed, residual := make([]string, 0, len(r.Datapoints)), make([]int, 0, len(r.Datapoints)), make([]int, 0, len(r.Datapoints))
		for _, dp := range r.Datapoints {
			sprints = append(sprints, dp.Sprint)
			completed = append(completed, dp.Completed)
			residual = append(residual, dp.Residuals)
		}
		return SprintChart("Sprint Throughput", "Tickets", sprints, completed, residual)
	case metrics.Response[metrics.VelocityDataPoint]:
		sprints, completed, residual := make([]string, 0, len(r.Datapoints)), make([]int, 0, len(r.Datapoints)), make([]int, 0, len(r.Datapoints))
		for _, dp := range r.Datapoints {
			sprints = append(sprints, dp.Sprint)
			completed = append(completed, dp.StoryPointsCompleted)
			residual = append(residual, dp.StoryPointsResidual)
		}
		return SprintChart("Sprint Velocity", "Story Points", sprints, completed, residual)
	}
	return ""
}

// DurationChart creates a Mermaid xychart-beta of per-ticket durations with the
// median and 85th percentile of the whole series as reference lines.
func DurationChart(meta metrics.Meta, keys []string, values []float64) string {
	if len(values) == 0 {
		return ""
	}
	keys, values = tail(keys, maxPoints), tail(values, maxPoints)

	var median, p85 float64
	if meta.Summary != nil {
		median, p85 = meta.Summary.Median, meta.Summary.P85
	}

	var labels, points, medians, p85s []string
	maxY := p85
	for i, v := range values {
		labels = append(labels, fmt.Sprintf("%q", keys[i]))
		points = append(points, fmt.Sprintf("%.1f", v))
		medians = append(medians, fmt.Sprintf("%.1f", median))
		p85s = append(p85s, fmt.Sprintf("%.1f", p85))
		maxY = math.Max(maxY, v)
	}

	var sb strings.Builder
	sb.WriteString("```mermaid\n")
	sb.WriteString("xychart-beta\n")
	sb.WriteString(fmt.Sprintf("    title %q\n", meta.Metric))
	sb.WriteString(fmt.Sprintf("    x-axis [%s]\n", strings.Join(labels, ", ")))
	sb.WriteString(fmt.Sprintf("    y-axis \"Working Days\" 0 --> %d\n", int(math.Ceil(maxY*1.1))))
	sb.WriteString(fmt.Sprintf("    bar [%s]\n", strings.Join(points, ", ")))
	if meta.Summary != nil {
		sb.WriteString(fmt.Sprintf("    line [%s]\n", strings.Join(medians, ", ")))
		sb.WriteString(fmt.Sprintf("    line [%s]\n", strings.Join(p85s, ", ")))
	}
	sb.WriteString("```")
	return sb.String()
}

// SprintChart creates a Mermaid bar chart of a per-sprint count with the residual as a line.
func SprintChart(title, axis string, sprints []string, completed, residual []int) string {
	if len(sprints) == 0 {
		return ""
	}
	sprints, completed, residual = tail(sprints, maxPoints), tail(completed, maxPoints), tail(residual, maxPoints)

	var labels, done, left []string
	maxVal := 0
	for i, name := range sprints {
		labels = append(labels, fmt.Sprintf("%q", name))
		done = append(done, fmt.Sprintf("%d", completed[i]))
		left = append(left, fmt.Sprintf("%d", residual[i]))
		maxVal = max(maxVal, completed[i], residual[i])
	}

	var sb strings.Builder
	sb.WriteString("```mermaid\n")
	sb.WriteString("xychart-beta\n")
	sb.WriteString(fmt.Sprintf("    title %q\n", title))
	sb.WriteString(fmt.Sprintf("    x-axis [%s]\n", strings.Join(labels, ", ")))
	sb.WriteString(fmt.Sprintf("    y-axis %q 0 --> %d\n", axis, maxVal+int(math.Max(1, float64(maxVal)*0.2))))
	sb.WriteString(fmt.Sprintf("    bar [%s]\n", strings.Join(done, ", ")))
	sb.WriteString(fmt.Sprintf("    line [%s]\n", strings.Join(left, ", ")))
	sb.WriteString("```")
	return sb.String()
}

// tail keeps the most recent n entries.
func tail[T any](s []T, n int) []T {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
