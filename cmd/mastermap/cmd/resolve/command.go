// Package resolve implements the resolve command.
package resolve

import (
	"fmt"
	"io"
	"os"

	"github.com/agentstation/utc"
	"github.com/spf13/cobra"

	"github.com/agentstation/mastermap/cmd/application"
	"github.com/agentstation/mastermap/pkg/errors"
	"github.com/agentstation/mastermap/pkg/logging"
	"github.com/agentstation/mastermap/pkg/resolution"
)

// NewCommand creates the resolve command.
func NewCommand(app application.Application) *cobra.Command {
	var (
		reviewer string
		check    bool
		replace  bool
	)
	cmd := &cobra.Command{
		Use:     "resolve <file|->",
		GroupID: "core",
		Short:   "Upload a resolution document for the pending report",
		Long: `Resolve uploads a resolution document (JSON or YAML) next to the pending
report. The next reconcile run claims it, applies it once and deletes it.
A document that no run has claimed yet is only overwritten with --replace.

Fixes are grouped by issue kind:

  resolutions:
    malformed_identifier: [{dataset, row_index, identifier, fixed_identifier}]
    one_to_many_code:     [{identifier, selected_name}]
    one_to_many_name:     [{name, selected_identifier}]
    missing_identifier:   [{dataset, row_index, name, identifier}]`,
		Example: `  mastermap resolve -n sourcedata/census/2023/ fixes.yaml
  cat fixes.json | mastermap resolve -n sourcedata/census/2023/ -
  mastermap resolve --check fixes.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			doc, err := resolution.Parse(data)
			if err != nil {
				return err
			}
			if doc.Resolutions.Len() == 0 {
				return errors.NewValidationError("resolutions", args[0], "document has no fixes")
			}
			if check {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %d fix(es), ok\n", args[0], doc.Resolutions.Len())
				return nil
			}

			if reviewer != "" {
				doc.Reviewer = reviewer
			}
			now := utc.Now()
			doc.SubmittedAt = &now

			m, err := app.Mastermap()
			if err != nil {
				return err
			}
			if doc.RunID == "" {
				if report, err := m.PendingReport(cmd.Context()); err == nil {
					doc.RunID = report.RunID
				}
			}
			if replace {
				withdrawn, err := m.WithdrawResolution(cmd.Context())
				if err != nil {
					return err
				}
				if withdrawn {
					logging.FromContext(cmd.Context()).Info().Msg("unclaimed resolutions replaced")
				}
			}
			key, err := m.SubmitResolution(cmd.Context(), doc)
			if errors.IsAlreadyExists(err) {
				return fmt.Errorf("%w; run reconcile to apply it or pass --replace", err)
			}
			if err != nil {
				return err
			}
			logging.FromContext(cmd.Context()).Info().Str("key", key).Int("fixes", doc.Resolutions.Len()).Msg("resolutions uploaded")
			fmt.Fprintf(cmd.OutOrStdout(), "uploaded %d fix(es) to %s\n", doc.Resolutions.Len(), key)
			return nil
		},
	}
	cmd.Flags().StringVar(&reviewer, "reviewer", os.Getenv("USER"), "reviewer recorded in the document")
	cmd.Flags().BoolVar(&check, "check", false, "parse and validate the document without uploading it")
	cmd.Flags().BoolVar(&replace, "replace", false, "overwrite a document no run has claimed yet")
	return cmd
}

func readInput(cmd *cobra.Command, name string) ([]byte, error) {
	if name == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, errors.WrapIO("read", name, err)
	}
	return data, nil
}
