package metrics

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/samber/lo"
)

// Unit of a metric's datapoints.
type Unit string

const (
	UnitDays Unit = "days"
	UnitNone Unit = "none"
)

// Kind names a published metric.
type Kind string

const (
	CycleTime       Kind = "cycle-time"
	SprintCycleTime Kind = "sprint-cycle-time"
	LeadTime        Kind = "lead-time"
	Throughput      Kind = "throughput"
	Velocity        Kind = "velocity"
)

// Kinds lists every published metric.
func Kinds() []Kind {
	return []Kind{CycleTime, SprintCycleTime, LeadTime, Throughput, Velocity}
}

// ParseKind accepts a metric name in kebab or snake case.
func ParseKind(name string) (Kind, error) {
	k := Kind(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "_", "-"))
	if !lo.Contains(Kinds(), k) {
		names := lo.Map(Kinds(), func(k Kind, _ int) string { return string(k) })
		return "", fmt.Errorf("unknown metric %q (available: %s)", name, strings.Join(names, ", "))
	}
	return k, nil
}

// NormalizeTeam capitalizes a team name the way tickets and sprints are stored:
// first letter upper case, the rest lower case.
func NormalizeTeam(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	r := []rune(strings.ToLower(name))
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

// Meta describes a metric and the semantics of its datapoints.
type Meta struct {
	Metric      string   `json:"metric"`
	Description string   `json:"description"`
	Unit        Unit     `json:"unit"`
	Team        string   `json:"team"`
	Summary     *Summary `json:"summary,omitempty"`
}

// Summary condenses a duration series.
type Summary struct {
	Count  int     `json:"count"`
	Median float64 `json:"median"`
	P85    float64 `json:"p85"`
}

// Datapoint is a single row of a metric series.
type Datapoint interface {
	Columns() []string
	Row() []string
}

// Response wraps a metric series and its metadata.
type Response[T Datapoint] struct {
	Datapoints []T  `json:"datapoints"`
	Meta       Meta `json:"meta"`
}

// Table renders the series as a header and rows.
func (r Response[T]) Table() ([]string, [][]string) {
	var zero T
	rows := make([][]string, 0, len(r.Datapoints))
	for _, dp := range r.Datapoints {
		rows = append(rows, dp.Row())
	}
	return zero.Columns(), rows
}

// Report is any metric response that can be rendered as a table.
type Report interface {
	Table() ([]string, [][]string)
	Metadata() Meta
}

// Metadata returns the response's metadata.
func (r Response[T]) Metadata() Meta { return r.Meta }

type CycleTimeDataPoint struct {
	Key         string  `json:"key"`
	Duration    float64 `json:"duration"`
	ResolvedAt  int64   `json:"resolved_at"`
	StoryPoints *int    `json:"story_points"`
}

func (CycleTimeDataPoint) Columns() []string {
	return []string{"Key", "Duration", "Resolved At", "Story Points"}
}

func (d CycleTimeDataPoint) Row() []string {
	return []string{d.Key, formatDays(d.Duration), formatEpoch(d.ResolvedAt), formatPoints(d.StoryPoints)}
}

type SprintCycleTimeDataPoint struct {
	Key        string  `json:"key"`
	Duration   float64 `json:"duration"`
	ResolvedAt int64   `json:"resolved_at"`
	Sprint     string  `json:"sprint"`
}

func (SprintCycleTimeDataPoint) Columns() []string {
	return []string{"Sprint", "Key", "Duration", "Resolved At"}
}

func (d SprintCycleTimeDataPoint) Row() []string {
	return []string{d.Sprint, d.Key, formatDays(d.Duration), formatEpoch(d.ResolvedAt)}
}

type LeadTimeDataPoint struct {
	Key         string  `json:"key"`
	Duration    float64 `json:"duration"`
	ResolvedAt  int64   `json:"resolved_at"`
	StoryPoints *int    `json:"story_points"`
}

func (LeadTimeDataPoint) Columns() []string {
	return []string{"Key", "Duration", "Resolved At", "Story Points"}
}

func (d LeadTimeDataPoint) Row() []string {
	return []string{d.Key, formatDays(d.Duration), formatEpoch(d.ResolvedAt), formatPoints(d.StoryPoints)}
}

type ThroughputDataPoint struct {
	Sprint    string `json:"sprint"`
	Completed int    `json:"completed"`
	Residuals int    `json:"residuals"`
}

func (ThroughputDataPoint) Columns() []string {
	return []string{"Sprint", "Completed", "Residuals"}
}

func (d ThroughputDataPoint) Row() []string {
	return []string{d.Sprint, strconv.Itoa(d.Completed), strconv.Itoa(d.Residuals)}
}

type VelocityDataPoint struct {
	Sprint               string `json:"sprint"`
	StoryPointsCompleted int    `json:"story_points_completed"`
	StoryPointsResidual  int    `json:"story_points_residual"`
}

func (VelocityDataPoint) Columns() []string {
	return []string{"Sprint", "Completed", "Residual"}
}

func (d VelocityDataPoint) Row() []string {
	return []string{d.Sprint, strconv.Itoa(d.StoryPointsCompleted), strconv.Itoa(d.StoryPointsResidual)}
}

func formatDays(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func formatEpoch(sec int64) string {
	return time.Unix(sec, 0).UTC().Format("2006-01-02 15:04")
}

func formatPoints(p *int) string {
	if p == nil {
		return "-"
	}
	return strconv.Itoa(*p)
}
