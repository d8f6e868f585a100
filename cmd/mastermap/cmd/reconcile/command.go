// Package reconcile implements the reconcile command.
package reconcile

import (
	"fmt"
	"maps"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/agentstation/mastermap"
	"github.com/agentstation/mastermap/cmd/application"
	"github.com/agentstation/mastermap/internal/cmd/alerts"
	"github.com/agentstation/mastermap/internal/cmd/output"
	"github.com/agentstation/mastermap/pkg/logging"
	"github.com/agentstation/mastermap/pkg/resolution"
)

// NewCommand creates the reconcile command.
func NewCommand(app application.Application) *cobra.Command {
	var (
		runID  string
		strict bool
	)
	cmd := &cobra.Command{
		Use:     "reconcile",
		GroupID: "core",
		Short:   "Reconcile every dataset of the namespace",
		Long: `Reconcile builds the authority table from the canonical tables, applies a
pending resolution document if one was uploaded, and propagates identifiers
and names into every other dataset.

The run ends converged, awaiting resolution (a report is written next to the
datasets) or at the iteration cap.`,
		Example: `  mastermap reconcile -n sourcedata/census/2023/
  mastermap reconcile -n sourcedata/census/2023/ --strict -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var opts []mastermap.Option
			if runID != "" {
				opts = append(opts, mastermap.WithRunID(runID))
			}
			m, err := app.Mastermap(opts...)
			if err != nil {
				return err
			}

			logger := logging.FromContext(cmd.Context())
			m.OnRowPatched(func(p resolution.Patch) {
				logger.Info().
					Str("dataset", p.Dataset).
					Int("row", p.Row).
					Str("column", p.Column).
					Str("old", p.Old).
					Str("new", p.New).
					Msg("resolution applied")
			})
			m.OnStateChange(func(from, to mastermap.State) {
				logger.Debug().Stringer("from", from).Stringer("to", to).Msg("state changed")
			})

			res, err := m.Run(cmd.Context())
			if err != nil {
				return err
			}
			if err := render(cmd, app, res); err != nil {
				return err
			}
			if strict && res.State != mastermap.Converged {
				return fmt.Errorf("reconciliation did not converge: %s", res)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&runID, "run-id", "", "run identifier recorded in the report (random when empty)")
	cmd.Flags().BoolVar(&strict, "strict", false, "exit with an error unless the run converged")
	return cmd
}

func render(cmd *cobra.Command, app application.Application, res *mastermap.Result) error {
	format := output.Format(app.OutputFormat())
	w := cmd.OutOrStdout()
	if !output.IsTable(format) {
		return output.NewFormatter(format).Format(w, res)
	}

	if res.Report != nil {
		if err := output.NewFormatter(format).Format(w, output.IssuesData(res.Report.Issues, format == output.FormatWide)); err != nil {
			return err
		}
	} else if res.Summary.Total > 0 {
		if err := output.NewFormatter(format).Format(w, output.SummaryData(res.Summary)); err != nil {
			return err
		}
	}
	if len(res.Rejected) > 0 {
		fmt.Fprintln(w, "Rejected resolutions:")
		if err := output.NewFormatter(format).Format(w, output.RejectionsData(res.Rejected)); err != nil {
			return err
		}
	}
	for _, id := range slices.Sorted(maps.Keys(res.Failed)) {
		fmt.Fprintf(w, "skipped %s: %s\n", id, res.Failed[id])
	}
	return alerts.NewWriter(cmd.ErrOrStderr(), os.Getenv("NO_COLOR") != "").Write(status(res, app.Namespace()))
}

// status summarizes the terminal state of a run.
func status(res *mastermap.Result, namespace string) *alerts.Alert {
	switch res.State {
	case mastermap.AwaitingResolution:
		return alerts.New(alerts.LevelWarning, "%s", res).WithDetails(
			"review the report:    mastermap report -n "+namespace,
			"upload fixes:         mastermap resolve -n "+namespace+" <file>",
			"then run again:       mastermap reconcile -n "+namespace,
		)
	case mastermap.MaxIterationsReached:
		a := alerts.New(alerts.LevelError, "%s", res)
		if res.ReportKey != "" {
			a = a.WithDetails("review the report:    mastermap report -n " + namespace)
		}
		return a
	default:
		return alerts.New(alerts.LevelSuccess, "%s", res).WithDetails(
			fmt.Sprintf("%d dataset(s) written", len(res.Written)),
		)
	}
}
