package commands

import (
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:       "sync [sprints|tickets|all]",
	Short:     "Synchronize closed sprints and finished tickets from Jira",
	Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"sprints", "tickets", "all"},
	RunE: func(cmd *cobra.Command, args []string) error {
		target := ""
		if len(args) == 1 {
			target = args[0]
		}

		rt, err := openDeps()
		if err != nil {
			return err
		}
		defer rt.Close()

		results, err := rt.sync(cmd.Context(), target)

		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"Job", "Run", "Saved", "Skipped"})
		for _, r := range results {
			table.Append([]string{r.Job, r.RunID, strconv.Itoa(r.Saved), strconv.Itoa(r.Skipped)})
		}
		if len(results) > 0 {
			table.Render()
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)
}
