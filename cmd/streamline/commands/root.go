package commands

import (
	"context"
	"fmt"
	"time"

	"streamline/internal/config"
	"streamline/internal/ingest"
	"streamline/internal/jira"
	"streamline/internal/logging"
	"streamline/internal/metrics"
	"streamline/internal/store"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	// Version, Commit, and BuildDate are set at build time via ldflags.
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"

	verbose bool
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "streamline",
	Short: "Streamline measures a team's flow from Jira history",
	Long: `Streamline synchronizes closed sprints and finished tickets from Jira and reports
cycle time, lead time, throughput and velocity in working days of the team's calendar.

Without a subcommand it runs the MCP server on stdio.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("load configuration: %w", err)
		}
		if err := logging.Init(verbose, cfg.LogDir); err != nil {
			return err
		}

		log.Info().
			Str("version", Version).
			Str("commit", Commit).
			Str("buildDate", BuildDate).
			Str("command", cmd.Name()).
			Msg("Streamline starting")
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMCP(cmd.Context())
	},
}

// Execute runs the root command with ctx, cancelled on interrupt.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
}

// deps is what every data command needs: the store and the metric service on top of it.
type deps struct {
	store   *store.Store
	metrics *metrics.Service
}

func openDeps() (*deps, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	calc, err := cfg.Calculator()
	if err != nil {
		return nil, err
	}
	sprintClose, err := cfg.Workflow.SprintClose()
	if err != nil {
		return nil, err
	}

	st, err := store.Open(cfg.DatabasePath(), loc)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("path", cfg.DatabasePath()).Str("region", cfg.App.Region).Msg("Store opened")

	return &deps{
		store:   st,
		metrics: metrics.NewService(st, st, calc, sprintClose),
	}, nil
}

func (r *deps) Close() {
	if err := r.store.Close(); err != nil {
		log.Warn().Err(err).Msg("Failed to close store")
	}
}

// jobs builds the synchronization jobs for the configured team.
func (r *deps) jobs() ([]ingest.Job, error) {
	if err := cfg.ValidateJira(); err != nil {
		return nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	client := jira.NewClient(cfg.Jira.Client())
	opts := cfg.IngestOptions(loc)
	return []ingest.Job{
		ingest.NewSprintJob(client, r.store, opts),
		ingest.NewTicketJob(client, r.store, opts),
	}, nil
}

// sync runs the jobs selected by target.
func (r *deps) sync(ctx context.Context, target string) ([]ingest.Result, error) {
	all, err := r.jobs()
	if err != nil {
		return nil, err
	}
	selected, err := ingest.Select(target, all...)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	results, err := ingest.RunAll(ctx, selected...)
	log.Info().Int("jobs", len(results)).Dur("elapsed", time.Since(start)).Msg("Synchronization finished")
	return results, err
}

func teamOrDefault(team string) (string, error) {
	if t := metrics.NormalizeTeam(team); t != "" {
		return t, nil
	}
	if cfg.Jira.Team != "" {
		return cfg.Jira.Team, nil
	}
	return "", fmt.Errorf("no team given: pass --team or set JIRA_TEAM: %w", metrics.ErrTeamRequired)
}
