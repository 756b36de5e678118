// Package mcp serves the flow metrics as Model Context Protocol tools.
package mcp

import (
	"context"

	"streamline/internal/ingest"
	"streamline/internal/metrics"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"
)

// Metrics computes the published metrics.
type Metrics interface {
	CycleTimes(ctx context.Context, team string) (metrics.Response[metrics.CycleTimeDataPoint], error)
	SprintCycleTimes(ctx context.Context, team string) (metrics.Response[metrics.SprintCycleTimeDataPoint], error)
	LeadTimes(ctx context.Context, team string) (metrics.Response[metrics.LeadTimeDataPoint], error)
	Throughput(ctx context.Context, team string) (metrics.Response[metrics.ThroughputDataPoint], error)
	Velocity(ctx context.Context, team string) (metrics.Response[metrics.VelocityDataPoint], error)
}

// Syncer runs the Jira synchronization jobs selected by target.
type Syncer func(ctx context.Context, target string) ([]ingest.Result, error)

// Options configure the MCP server.
type Options struct {
	// Sync enables the synchronization tool when set.
	Sync        Syncer
	DefaultTeam string
	Version     string
	// Charts appends a Mermaid chart to every metric result.
	Charts bool
}

// Server holds the state for the MCP server.
type Server struct {
	metrics     Metrics
	sync        Syncer
	defaultTeam string
	charts      bool
	server      *sdk.Server
}

// NewServer creates a new MCP server.
func NewServer(m Metrics, opts Options) *Server {
	s := &Server{
		metrics:     m,
		sync:        opts.Sync,
		defaultTeam: metrics.NormalizeTeam(opts.DefaultTeam),
		charts:      opts.Charts,
		server:      sdk.NewServer(&sdk.Implementation{Name: "streamline", Version: opts.Version}, nil),
	}
	s.registerTools()
	return s
}

// Serve runs the server over stdio until the client disconnects or ctx ends.
func (s *Server) Serve(ctx context.Context) error {
	log.Info().Str("team", s.defaultTeam).Msg("Starting MCP server on stdio")
	return s.server.Run(ctx, &sdk.StdioTransport{})
}

// Connect attaches the server to an arbitrary transport.
func (s *Server) Connect(ctx context.Context, t sdk.Transport) (*sdk.ServerSession, error) {
	return s.server.Connect(ctx, t, nil)
}
