package commands

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var clearTeam string

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete the stored tickets, sprints and synchronization state of a team",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		team, err := teamOrDefault(clearTeam)
		if err != nil {
			return err
		}

		rt, err := openDeps()
		if err != nil {
			return err
		}
		defer rt.Close()

		stats, err := rt.store.ClearTeam(cmd.Context(), team)
		if err != nil {
			return err
		}
		log.Info().Str("team", team).Int64("tickets", stats.Tickets).Int64("sprints", stats.Sprints).Int64("jobs", stats.Jobs).Msg("Team data cleared")
		fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d tickets, %d sprints and %d jobs for %s\n", stats.Tickets, stats.Sprints, stats.Jobs, team)
		return nil
	},
}

func init() {
	clearCmd.Flags().StringVarP(&clearTeam, "team", "t", "", "team name (default: JIRA_TEAM)")
	rootCmd.AddCommand(clearCmd)
}
