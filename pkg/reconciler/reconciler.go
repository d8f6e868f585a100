// Package reconciler propagates the authority table into non-canonical
// datasets. It aligns names by identifier, fills identifiers by name and
// reports rows that still lack an identifier.
package reconciler

import (
	"context"
	"fmt"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/agentstation/mastermap/pkg/authority"
	"github.com/agentstation/mastermap/pkg/identifier"
	"github.com/agentstation/mastermap/pkg/issues"
	"github.com/agentstation/mastermap/pkg/logging"
	"github.com/agentstation/mastermap/pkg/tables"
)

// Reconciler aligns datasets with an authority table.
type Reconciler struct {
	roles      tables.Roles
	normalizer *identifier.Normalizer
	workers    int
	onIssue    func(issues.Issue)
}

// New creates a Reconciler with options.
func New(opts ...Option) (*Reconciler, error) {
	options, err := newOptions(opts...)
	if err != nil {
		return nil, err
	}
	return &Reconciler{
		roles:      options.roles,
		normalizer: options.normalizer,
		workers:    options.workers,
		onIssue:    options.onIssue,
	}, nil
}

// Dataset reconciles ds in place against table. Rows are never added or
// removed. Rows listed in fixed do not raise missing-identifier issues.
//
// For each row:
//  1. a valid identifier known to the authority gets the authority name;
//  2. otherwise a name known to the authority gets the authority identifier;
//  3. a row still without identifier but with a name is reported.
func (r *Reconciler) Dataset(ctx context.Context, table *authority.Table, ds *tables.Table, fixed tables.RowSet) (*DatasetResult, error) {
	if table == nil || ds == nil {
		return nil, fmt.Errorf("reconcile: authority table and dataset are required")
	}
	logger := logging.FromContext(ctx)

	cols, err := r.roles.Resolve(ds.Columns)
	if err != nil {
		return nil, err
	}

	res := &DatasetResult{Dataset: ds.ID, Issues: issues.NewSet()}
	for row := range ds.Rows {
		if row%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		rec := ds.Record(row, cols)
		c := r.normalizer.Classify(rec.Identifier)

		if c.IsValid() {
			if name, ok := table.Name(c.Value); ok {
				changed, err := ds.SetCell(row, cols.Name, name)
				if err != nil {
					return nil, err
				}
				if changed {
					res.NamesAligned++
					res.Mutated = true
				}
				continue
			}
		}

		if rec.Name != "" {
			if id, ok := table.ID(rec.Name); ok {
				changed, err := ds.SetCell(row, cols.Identifier, id)
				if err != nil {
					return nil, err
				}
				if changed {
					res.IdentifiersFilled++
					res.Mutated = true
				}
				continue
			}
		}

		if c.IsMissing() && rec.Name != "" {
			if fixed.Has(ds.ID, row) {
				res.Skipped++
				continue
			}
			issue := issues.MissingIdentifier{Dataset: ds.ID, Row: row, Name: rec.Name}
			res.Issues.Add(issue)
			if r.onIssue != nil {
				r.onIssue(issue)
			}
		}
	}

	logger.Debug().
		Str("dataset", ds.ID).
		Int("rows", ds.Len()).
		Int("names_aligned", res.NamesAligned).
		Int("identifiers_filled", res.IdentifiersFilled).
		Int("missing", len(res.Issues.MissingIdentifier)).
		Int("skipped_fixed", res.Skipped).
		Msg("dataset reconciled")
	return res, nil
}

// Pass reconciles every dataset concurrently on a bounded pool. A dataset that
// fails is recorded in the result and left unmodified.
func (r *Reconciler) Pass(ctx context.Context, table *authority.Table, datasets []*tables.Table, fixed tables.RowSet) *PassResult {
	logger := logging.FromContext(ctx)
	start := time.Now()
	c := newCollector()

	p := pool.New().WithMaxGoroutines(r.workers)
	for i, ds := range datasets {
		if ds == nil {
			continue
		}
		p.Go(func() {
			work := ds.Copy()
			dctx := logging.WithDataset(ctx, ds.ID)
			res, err := r.Dataset(dctx, table, work, fixed)
			if err != nil {
				logging.FromContext(dctx).Warn().Err(err).Msg("dataset passed through unmodified")
				c.fail(ds.ID, err)
				return
			}
			// Commit only after the whole dataset succeeded.
			ds.Rows = work.Rows
			res.Index = i
			c.add(res)
		})
	}
	p.Wait()

	results, failed, found := c.finish()
	out := &PassResult{
		Tables:    datasets,
		Datasets:  results,
		Failed:    failed,
		Issues:    found,
		StartTime: start,
		Duration:  time.Since(start),
	}
	logger.Info().
		Int("datasets", len(datasets)).
		Int("mutated", len(out.Mutated())).
		Int("failed", len(failed)).
		Int("missing", len(found.MissingIdentifier)).
		Dur("duration", out.Duration).
		Msg("reconciliation pass complete")
	return out
}
