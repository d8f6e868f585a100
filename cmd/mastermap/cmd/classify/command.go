// Package classify implements the classify command.
package classify

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/mastermap/cmd/application"
	"github.com/agentstation/mastermap/internal/cmd/output"
	"github.com/agentstation/mastermap/pkg/constants"
	"github.com/agentstation/mastermap/pkg/errors"
	"github.com/agentstation/mastermap/pkg/identifier"
	"github.com/agentstation/mastermap/pkg/tables"
)

// NewCommand creates the classify command.
func NewCommand(app application.Application) *cobra.Command {
	var (
		dataset string
		length  int
		invalid bool
	)
	cmd := &cobra.Command{
		Use:     "classify [identifier...]",
		GroupID: "management",
		Short:   "Check identifiers against the format rules",
		Long: `Classify reports whether identifiers are valid, malformed or missing.
Identifiers come from the arguments or, with --dataset, from the identifier
column of a stored dataset.`,
		Example: `  mastermap classify 91110000100000000X 9.35E+17
  mastermap classify -n sourcedata/census/2023/ --dataset 单位基本情况_611 --invalid`,
		RunE: func(cmd *cobra.Command, args []string) error {
			n := identifier.New(length)
			inputs := args
			if dataset != "" {
				values, err := column(cmd, app, dataset)
				if err != nil {
					return err
				}
				inputs = values
			}

			var out []output.Classification
			for _, in := range inputs {
				c := n.Classify(in)
				if invalid && c.IsValid() {
					continue
				}
				out = append(out, output.NewClassification(in, c))
			}
			format := output.Format(app.OutputFormat())
			return output.Write(cmd.OutOrStdout(), format, output.ClassificationsData(out), out)
		},
	}
	cmd.Flags().StringVar(&dataset, "dataset", "", "classify the identifier column of this dataset")
	cmd.Flags().IntVar(&length, "length", constants.IdentifierLength, "required identifier length")
	cmd.Flags().BoolVar(&invalid, "invalid", false, "only show identifiers that are not valid")
	return cmd
}

func column(cmd *cobra.Command, app application.Application, id string) ([]string, error) {
	store, err := app.TableStore()
	if err != nil {
		return nil, err
	}
	handles, err := store.List(cmd.Context())
	if err != nil {
		return nil, err
	}
	for _, h := range handles {
		if h.ID != id {
			continue
		}
		t, err := store.Read(cmd.Context(), h)
		if err != nil {
			return nil, err
		}
		cols, err := tables.DefaultRoles().Resolve(t.Columns)
		if err != nil {
			return nil, err
		}
		values := make([]string, t.Len())
		for i := range t.Rows {
			values[i] = t.Cell(i, cols.Identifier)
		}
		return values, nil
	}
	return nil, errors.NewNotFoundError("dataset", id)
}
