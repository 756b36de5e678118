package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"streamline/internal/ingest"
	"streamline/internal/metrics"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"
)

type stubMetrics struct {
	teams []string
	err   error
}

func (s *stubMetrics) CycleTimes(_ context.Context, team string) (metrics.Response[metrics.CycleTimeDataPoint], error) {
	s.teams = append(s.teams, team)
	return metrics.Response[metrics.CycleTimeDataPoint]{
		Datapoints: []metrics.CycleTimeDataPoint{{Key: "ST-1", Duration: 1.5, ResolvedAt: 1749031200}},
		Meta:       metrics.Meta{Metric: "Cycle Time", Unit: metrics.UnitDays, Team: team},
	}, s.err
}

func (s *stubMetrics) SprintCycleTimes(_ context.Context, team string) (metrics.Response[metrics.SprintCycleTimeDataPoint], error) {
	s.teams = append(s.teams, team)
	return metrics.Response[metrics.SprintCycleTimeDataPoint]{}, s.err
}

func (s *stubMetrics) LeadTimes(_ context.Context, team string) (metrics.Response[metrics.LeadTimeDataPoint], error) {
	s.teams = append(s.teams, team)
	return metrics.Response[metrics.LeadTimeDataPoint]{}, s.err
}

func (s *stubMetrics) Throughput(_ context.Context, team string) (metrics.Response[metrics.ThroughputDataPoint], error) {
	s.teams = append(s.teams, team)
	return metrics.Response[metrics.ThroughputDataPoint]{
		Datapoints: []metrics.ThroughputDataPoint{{Sprint: "Sprint 1", Completed: 2, Residuals: 2}},
	}, s.err
}

func (s *stubMetrics) Velocity(_ context.Context, team string) (metrics.Response[metrics.VelocityDataPoint], error) {
	s.teams = append(s.teams, team)
	return metrics.Response[metrics.VelocityDataPoint]{}, s.err
}

func connect(t *testing.T, s *Server) *sdk.ClientSession {
	t.Helper()
	ctx := context.Background()
	serverTransport, clientTransport := sdk.NewInMemoryTransports()

	ss, err := s.Connect(ctx, serverTransport)
	require.NoError(t, err)
	t.Cleanup(func() { ss.Close() })

	client := sdk.NewClient(&sdk.Implementation{Name: "test-client", Version: "test"}, nil)
	cs, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { cs.Close() })
	return cs
}

func textOf(t *testing.T, res *sdk.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(*sdk.TextContent)
	require.True(t, ok, "unexpected content %T", res.Content[0])
	return text.Text
}

func TestListTools(t *testing.T) {
	cs := connect(t, NewServer(&stubMetrics{}, Options{DefaultTeam: "Phoenix", Version: "test"}))

	res, err := cs.ListTools(context.Background(), nil)
	require.NoError(t, err)

	var names []string
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
		if tool.Name == "flow_sprint_cycle_time" {
			require.Contains(t, tool.Description, "started within the sprint")
			require.NotContains(t, tool.Description, "resolved within")
		}
	}
	require.ElementsMatch(t, []string{
		"flow_cycle_time", "flow_sprint_cycle_time", "flow_lead_time", "flow_throughput", "flow_velocity",
	}, names)
}

func TestCallTool_CycleTime(t *testing.T) {
	m := &stubMetrics{}
	cs := connect(t, NewServer(m, Options{DefaultTeam: "Phoenix", Version: "test"}))

	res, err := cs.CallTool(context.Background(), &sdk.CallToolParams{
		Name:      "flow_cycle_time",
		Arguments: map[string]any{"team": "phoenix"},
	})
	require.NoError(t, err)
	require.False(t, res.IsError)
	require.Equal(t, []string{"Phoenix"}, m.teams)

	var got metrics.Response[metrics.CycleTimeDataPoint]
	require.NoError(t, json.Unmarshal([]byte(textOf(t, res)), &got))
	require.Len(t, got.Datapoints, 1)
	require.Equal(t, "ST-1", got.Datapoints[0].Key)
	require.Equal(t, 1.5, got.Datapoints[0].Duration)
	require.Equal(t, metrics.UnitDays, got.Meta.Unit)
}

func TestCallTool_DefaultTeamAndEmptySeries(t *testing.T) {
	m := &stubMetrics{}
	cs := connect(t, NewServer(m, Options{DefaultTeam: "PHOENIX", Version: "test"}))

	res, err := cs.CallTool(context.Background(), &sdk.CallToolParams{
		Name:      "flow_sprint_cycle_time",
		Arguments: map[string]any{},
	})
	require.NoError(t, err)
	require.False(t, res.IsError)
	require.Equal(t, []string{"Phoenix"}, m.teams)

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(textOf(t, res)), &got))
	require.Equal(t, []any{}, got["datapoints"])
}

func TestCallTool_ServiceErrorIsToolError(t *testing.T) {
	cs := connect(t, NewServer(&stubMetrics{err: metrics.ErrTeamRequired}, Options{Version: "test"}))

	res, err := cs.CallTool(context.Background(), &sdk.CallToolParams{
		Name:      "flow_velocity",
		Arguments: map[string]any{},
	})
	require.NoError(t, err)
	require.True(t, res.IsError)
	require.Contains(t, textOf(t, res), "team is required")
}

func TestCallTool_Sync(t *testing.T) {
	var targets []string
	sync := func(_ context.Context, target string) ([]ingest.Result, error) {
		targets = append(targets, target)
		if target == "boards" {
			return nil, errors.New("unknown sync target")
		}
		return []ingest.Result{{Job: ingest.SprintJobName, RunID: "run-1", Saved: 3}}, nil
	}
	cs := connect(t, NewServer(&stubMetrics{}, Options{Sync: sync, DefaultTeam: "Phoenix", Version: "test"}))

	res, err := cs.CallTool(context.Background(), &sdk.CallToolParams{
		Name:      "flow_sync",
		Arguments: map[string]any{"target": "sprints"},
	})
	require.NoError(t, err)
	require.False(t, res.IsError)

	var got syncOutput
	require.NoError(t, json.Unmarshal([]byte(textOf(t, res)), &got))
	require.Equal(t, 3, got.Results[0].Saved)

	res, err = cs.CallTool(context.Background(), &sdk.CallToolParams{
		Name:      "flow_sync",
		Arguments: map[string]any{"target": "boards"},
	})
	require.NoError(t, err)
	require.True(t, res.IsError)
	require.Equal(t, []string{"sprints", "boards"}, targets)
}

func TestCallTool_Charts(t *testing.T) {
	cs := connect(t, NewServer(&stubMetrics{}, Options{DefaultTeam: "Phoenix", Version: "test", Charts: true}))

	res, err := cs.CallTool(context.Background(), &sdk.CallToolParams{Name: "flow_throughput", Arguments: map[string]any{}})
	require.NoError(t, err)
	require.False(t, res.IsError)
	require.Len(t, res.Content, 2)

	var got metrics.Response[metrics.ThroughputDataPoint]
	require.NoError(t, json.Unmarshal([]byte(textOf(t, res)), &got))
	require.Equal(t, 2, got.Datapoints[0].Completed)

	chart, ok := res.Content[1].(*sdk.TextContent)
	require.True(t, ok)
	require.Contains(t, chart.Text, "xychart-beta")
}
