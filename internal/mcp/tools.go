package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"streamline/internal/ingest"
	"streamline/internal/metrics"
	"streamline/internal/visuals"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"
)

type teamInput struct {
	Team string `json:"team,omitempty" jsonschema:"Team name as stored in Jira. Defaults to the configured team."`
}

type syncInput struct {
	Target string `json:"target,omitempty" jsonschema:"Which job to run: sprints, tickets or all (default)."`
}

type syncOutput struct {
	Results []ingest.Result `json:"results"`
}

func (s *Server) registerTools() {
	addMetricTool(s, "flow_cycle_time",
		"Cycle time in working days of every resolved ticket, from the moment work started to the moment it was finished. "+
			"Guidance: compare the meta summary (median, p85) across periods rather than single tickets.",
		s.metrics.CycleTimes)
	addMetricTool(s, "flow_sprint_cycle_time",
		"Cycle time in working days of the tickets of each closed sprint that were started within the sprint "+
			"(work starting up to 6 hours before the sprint opened counts). Tickets carried over from a previous sprint are excluded.",
		s.metrics.SprintCycleTimes)
	addMetricTool(s, "flow_lead_time",
		"Lead time in working days of every resolved ticket, from creation to resolution.",
		s.metrics.LeadTimes)
	addMetricTool(s, "flow_throughput",
		"Number of tickets completed per closed sprint, plus the residual tickets the sprint did not finish.",
		s.metrics.Throughput)
	addMetricTool(s, "flow_velocity",
		"Story points completed per closed sprint, plus the residual story points the sprint did not finish.",
		s.metrics.Velocity)

	if s.sync != nil {
		sdk.AddTool(s.server, &sdk.Tool{
			Name: "flow_sync",
			Description: "Synchronize closed sprints and finished tickets from Jira into the local store. " +
				"Guidance: run this before the metric tools when the data may be stale.",
		}, s.handleSync)
	}
}

// addMetricTool registers a tool that resolves the team and returns one metric series.
func addMetricTool[T metrics.Datapoint](s *Server, name, description string, compute func(context.Context, string) (metrics.Response[T], error)) {
	sdk.AddTool(s.server, &sdk.Tool{Name: name, Description: description},
		func(ctx context.Context, _ *sdk.CallToolRequest, in teamInput) (*sdk.CallToolResult, metrics.Response[T], error) {
			team := s.team(in.Team)
			log.Info().Str("tool", name).Str("team", team).Msg("Tool called")

			resp, err := compute(ctx, team)
			if err != nil {
				log.Error().Err(err).Str("tool", name).Msg("Tool failed")
				return nil, resp, fmt.Errorf("%s: %w", name, err)
			}
			if resp.Datapoints == nil {
				resp.Datapoints = []T{}
			}
			if !s.charts {
				return nil, resp, nil
			}
			return chartResult(resp), resp, nil
		})
}

func (s *Server) handleSync(ctx context.Context, _ *sdk.CallToolRequest, in syncInput) (*sdk.CallToolResult, syncOutput, error) {
	results, err := s.sync(ctx, in.Target)
	if err != nil {
		return nil, syncOutput{}, fmt.Errorf("sync: %w", err)
	}
	return nil, syncOutput{Results: results}, nil
}

// chartResult carries the JSON series followed by its Mermaid chart.
func chartResult(report metrics.Report) *sdk.CallToolResult {
	data, err := json.Marshal(report)
	if err != nil {
		return nil
	}
	content := []sdk.Content{&sdk.TextContent{Text: string(data)}}
	if chart := visuals.ForReport(report); chart != "" {
		content = append(content, &sdk.TextContent{Text: chart})
	}
	return &sdk.CallToolResult{Content: content}
}

func (s *Server) team(requested string) string {
	if team := metrics.NormalizeTeam(requested); team != "" {
		return team
	}
	return s.defaultTeam
}
