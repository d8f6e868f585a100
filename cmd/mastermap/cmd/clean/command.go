// Package clean implements the clean command.
package clean

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/agentstation/mastermap/cmd/application"
	"github.com/agentstation/mastermap/internal/cmd/output"
	"github.com/agentstation/mastermap/internal/matcher"
	"github.com/agentstation/mastermap/pkg/cleaner"
	"github.com/agentstation/mastermap/pkg/logging"
)

// DatasetStats is the clean outcome of one dataset.
type DatasetStats struct {
	Dataset string `json:"dataset" yaml:"dataset"`
	cleaner.Stats `yaml:",inline"`
	Written bool `json:"written" yaml:"written"`
}

// NewCommand creates the clean command.
func NewCommand(app application.Application) *cobra.Command {
	var (
		dryRun  bool
		amounts []string
	)
	cmd := &cobra.Command{
		Use:     "clean [dataset|pattern...]",
		GroupID: "core",
		Short:   "Normalize cells of the datasets before reconciliation",
		Long: `Clean trims cells, folds null markers (nan, none, null, n/a) to empty,
strips thousands separators from amount columns and drops empty rows. Only
datasets that changed are written back. Arguments select datasets by name,
glob or regex; without arguments every dataset of the namespace is cleaned.`,
		Example: `  mastermap clean -n sourcedata/census/2023/
  mastermap clean -n sourcedata/census/2023/ 单位基本情况_611 --dry-run
  mastermap clean -n sourcedata/census/2023/ '*_611'`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := logging.FromContext(ctx)
			set, err := matcher.NewSet(args...)
			if err != nil {
				return err
			}
			store, err := app.TableStore()
			if err != nil {
				return err
			}
			handles, err := store.List(ctx)
			if err != nil {
				return err
			}

			var opts []cleaner.Option
			if len(amounts) > 0 {
				opts = append(opts, cleaner.WithAmountKeywords(amounts...))
			}
			c := cleaner.New(opts...)

			var results []DatasetStats
			for _, h := range set.Handles(handles) {
				t, err := store.Read(ctx, h)
				if err != nil {
					logger.Warn().Err(err).Str("dataset", h.ID).Msg("failed to read dataset, skipping")
					continue
				}
				res := DatasetStats{Dataset: h.ID, Stats: c.Table(ctx, t)}
				if res.Changed() && !dryRun {
					if err := store.Write(ctx, t); err != nil {
						return err
					}
					res.Written = true
				}
				results = append(results, res)
			}

			d := output.Data{
				Headers:         []string{"Dataset", "Trimmed", "Nulls", "Separators", "Rows Dropped", "Written"},
				ColumnAlignment: []output.Align{output.AlignLeft, output.AlignRight, output.AlignRight, output.AlignRight, output.AlignRight, output.AlignCenter},
			}
			for _, r := range results {
				d.Rows = append(d.Rows, []string{
					r.Dataset,
					strconv.Itoa(r.CellsTrimmed),
					strconv.Itoa(r.NullsFolded),
					strconv.Itoa(r.SeparatorsStripped),
					strconv.Itoa(r.RowsDropped),
					strconv.FormatBool(r.Written),
				})
			}
			return output.Write(cmd.OutOrStdout(), output.Format(app.OutputFormat()), d, results)
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report changes without writing datasets")
	cmd.Flags().StringSliceVar(&amounts, "amount-keywords", nil, "column name keywords marking amount columns")
	return cmd
}
