// Package list implements the list command.
package list

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/mastermap"
	"github.com/agentstation/mastermap/cmd/application"
	"github.com/agentstation/mastermap/internal/cmd/output"
	"github.com/agentstation/mastermap/internal/matcher"
)

// NewCommand creates the list command.
func NewCommand(app application.Application) *cobra.Command {
	var (
		canonicalOnly bool
		patterns      []string
	)
	cmd := &cobra.Command{
		Use:     "list",
		GroupID: "management",
		Short:   "List the datasets of the namespace",
		Aliases: []string{"ls"},
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			set, err := matcher.NewSet(patterns...)
			if err != nil {
				return err
			}
			store, err := app.TableStore()
			if err != nil {
				return err
			}
			handles, err := store.List(cmd.Context())
			if err != nil {
				return err
			}
			handles = set.Handles(handles)
			if canonicalOnly {
				handles, _ = mastermap.Split(handles, app.CanonicalTables())
			}
			format := output.Format(app.OutputFormat())
			return output.Write(cmd.OutOrStdout(), format, output.HandlesData(handles, app.CanonicalTables()), handles)
		},
	}
	cmd.Flags().BoolVar(&canonicalOnly, "canonical", false, "only list canonical tables")
	cmd.Flags().StringSliceVarP(&patterns, "match", "m", nil, "only list datasets matching a glob or regex")
	return cmd
}
