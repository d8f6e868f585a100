// Package cleanup implements the cleanup command.
package cleanup

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentstation/mastermap"
	"github.com/agentstation/mastermap/cmd/application"
	"github.com/agentstation/mastermap/internal/cmd/output"
)

// NewCommand creates the cleanup command.
func NewCommand(app application.Application) *cobra.Command {
	return &cobra.Command{
		Use:     "cleanup",
		GroupID: "management",
		Short:   "Delete pending reports and resolution documents",
		Long: `Cleanup deletes validation reports and resolution documents left under the
namespace, its parent and the sourcedata/ root. Reconcile does this itself
once a run converges.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := app.Mastermap()
			if err != nil {
				return err
			}
			deleted, err := m.Cleanup(cmd.Context())
			if err != nil {
				return err
			}

			format := output.Format(app.OutputFormat())
			if output.IsTable(format) && len(deleted) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "nothing to clean under %v\n", mastermap.CandidatePrefixes(app.Namespace()))
				return nil
			}
			d := output.Data{Headers: []string{"Deleted"}}
			for _, k := range deleted {
				d.Rows = append(d.Rows, []string{k})
			}
			return output.Write(cmd.OutOrStdout(), format, d, deleted)
		},
	}
}
