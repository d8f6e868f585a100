// Package report implements the report command.
package report

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentstation/mastermap"
	"github.com/agentstation/mastermap/cmd/application"
	"github.com/agentstation/mastermap/internal/cmd/output"
	"github.com/agentstation/mastermap/pkg/errors"
)

// NewCommand creates the report command.
func NewCommand(app application.Application) *cobra.Command {
	var summary bool
	cmd := &cobra.Command{
		Use:     "report",
		GroupID: "core",
		Short:   "Show the pending validation report",
		Example: `  mastermap report -n sourcedata/census/2023/
  mastermap report -n sourcedata/census/2023/ --summary
  mastermap report -n sourcedata/census/2023/ -o json > report.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := app.Mastermap()
			if err != nil {
				return err
			}
			report, err := m.PendingReport(cmd.Context())
			if errors.IsNotFound(err) {
				fmt.Fprintf(cmd.OutOrStdout(), "no pending report at %s\n", mastermap.ReportKey(app.Namespace()))
				return nil
			}
			if err != nil {
				return err
			}

			format := output.Format(app.OutputFormat())
			w := cmd.OutOrStdout()
			if summary {
				return output.Write(w, format, output.SummaryData(report.Summary), report.Summary)
			}
			if output.IsTable(format) {
				fmt.Fprintf(w, "run %s, iteration %d, %s (%s)\n",
					report.RunID, report.Iteration, report.Timestamp.Format("2006-01-02 15:04:05"), report.Status)
			}
			return output.Write(w, format, output.IssuesData(report.Issues, format == output.FormatWide), report)
		},
	}
	cmd.Flags().BoolVar(&summary, "summary", false, "show issue counts only")
	return cmd
}
