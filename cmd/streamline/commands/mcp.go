package commands

import (
	"context"

	"streamline/internal/mcp"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the MCP server on stdio",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMCP(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(ctx context.Context) error {
	rt, err := openDeps()
	if err != nil {
		return err
	}
	defer rt.Close()

	var syncer mcp.Syncer
	if err := cfg.ValidateJira(); err != nil {
		log.Warn().Err(err).Msg("Jira not configured, synchronization tool disabled")
	} else {
		syncer = rt.sync
	}

	return mcp.NewServer(rt.metrics, mcp.Options{
		Sync:        syncer,
		DefaultTeam: cfg.Jira.Team,
		Version:     Version,
		Charts:      cfg.App.MermaidCharts,
	}).Serve(ctx)
}
