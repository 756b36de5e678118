package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"streamline/internal/metrics"
	"streamline/internal/visuals"

	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

var (
	reportTeam   string
	reportFormat string
)

var reportCmd = &cobra.Command{
	Use:   "report <metric>",
	Short: "Print a flow metric for a team",
	Long: "Print a flow metric for a team. Metrics: " +
		fmt.Sprint(lo.Map(metrics.Kinds(), func(k metrics.Kind, _ int) string { return string(k) })),
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := metrics.ParseKind(args[0])
		if err != nil {
			return err
		}
		team, err := teamOrDefault(reportTeam)
		if err != nil {
			return err
		}

		rt, err := openDeps()
		if err != nil {
			return err
		}
		defer rt.Close()

		report, err := rt.metrics.Report(cmd.Context(), kind, team)
		if err != nil {
			return err
		}

		switch reportFormat {
		case "json":
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		case "table":
			return renderReport(os.Stdout, report)
		case "mermaid":
			_, err := fmt.Fprintln(os.Stdout, visuals.ForReport(report))
			return err
		default:
			return fmt.Errorf("unknown format %q (available: table, json, mermaid)", reportFormat)
		}
	},
}

func init() {
	reportCmd.Flags().StringVarP(&reportTeam, "team", "t", "", "team name (default: JIRA_TEAM)")
	reportCmd.Flags().StringVarP(&reportFormat, "format", "f", "table", "output format: table, json or mermaid")
	rootCmd.AddCommand(reportCmd)
}

func renderReport(w io.Writer, report metrics.Report) error {
	meta := report.Metadata()
	fmt.Fprintf(w, "%s (%s) for %s\n%s\n\n", meta.Metric, meta.Unit, meta.Team, meta.Description)

	header, rows := report.Table()
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.AppendBulk(rows)
	table.Render()

	if s := meta.Summary; s != nil {
		fmt.Fprintf(w, "\n%d tickets, median %s, 85th percentile %s\n", s.Count,
			strconv.FormatFloat(s.Median, 'f', 2, 64), strconv.FormatFloat(s.P85, 'f', 2, 64))
	}
	return nil
}
