package mastermap

import (
	"context"
	"slices"
	"time"

	"github.com/agentstation/mastermap/pkg/authority"
	"github.com/agentstation/mastermap/pkg/errors"
	"github.com/agentstation/mastermap/pkg/issues"
	"github.com/agentstation/mastermap/pkg/logging"
	"github.com/agentstation/mastermap/pkg/tables"
)

// run holds the state of one ReconcileAll invocation.
type run struct {
	*mastermap
	state     State
	result    *Result
	canonical []*tables.Table
	others    []*tables.Table
	fixed     tables.RowSet
}

func (r *run) transition(to State) {
	from := r.state
	r.state = to
	r.result.State = to
	r.hooks.triggerStateChange(from, to)
}

func (r *run) finish(start time.Time, to State) *Result {
	r.result.Tables = slices.Concat(r.canonical, r.others)
	r.result.Duration = time.Since(start)
	r.transition(to)
	return r.result
}

// ReconcileAll runs build/apply/reconcile/classify iterations until the
// datasets converge, a report is left for a reviewer, or the iteration cap
// is hit. Dataset read and write failures are logged and degrade to pass
// through; only context cancellation is returned as an error.
func (m *mastermap) ReconcileAll(ctx context.Context, canonicalRefs, datasetRefs []tables.Handle) (*Result, error) {
	start := time.Now()
	ctx = logging.WithRunID(logging.WithNamespace(ctx, m.config.namespace), m.config.runID)
	logger := logging.FromContext(ctx)

	r := &run{
		mastermap: m,
		result:    &Result{RunID: m.config.runID, Failed: make(map[string]string)},
		fixed:     tables.NewRowSet(),
	}
	r.canonical = r.load(ctx, canonicalRefs)
	r.others = r.load(ctx, datasetRefs)

	if len(r.canonical) == 0 {
		logger.Warn().Msg("no canonical tables available, skipping reconciliation")
		return r.finish(start, Converged), nil
	}

	var found *issues.Set
	for iteration := 1; iteration <= m.config.maxIterations; iteration++ {
		if err := ctx.Err(); err != nil {
			return nil, errors.WrapCanceled("reconcile", err)
		}
		ictx := logging.WithIteration(ctx, iteration)
		r.result.Iterations = iteration

		r.transition(Building)
		var table *authority.Table
		table, found = m.builder.Build(ictx, r.canonical)

		applied := false
		if doc := m.claimResolution(ictx); doc != nil {
			out := m.applier.Apply(ictx, doc, table, r.canonical, r.others)
			applied = true
			r.result.Applied += out.Accepted
			r.result.Rejected = append(r.result.Rejected, out.Rejected...)
			r.fixed.Union(out.Fixed)
			r.persist(ictx, out.Mutated())
			m.deleteReport(ictx)
		}

		r.transition(Validating)
		pass := m.reconciler.Pass(ictx, table, r.others, r.fixed)
		for id, err := range pass.Failed {
			r.result.Failed[id] = err.Error()
		}
		var mutated []*tables.Table
		for _, d := range pass.Datasets {
			if d.Mutated {
				mutated = append(mutated, r.others[d.Index])
			}
		}
		r.persist(ictx, mutated)

		found.Merge(pass.Issues)
		r.result.Summary = found.Summary()
		r.result.AuthoritySize = table.Len()
		m.hooks.triggerIssues(found)

		if !found.Critical() {
			if _, err := m.Cleanup(ictx); err != nil {
				logger.Warn().Err(err).Msg("artifact cleanup failed")
			}
			logger.Info().Int("iteration", iteration).Int("authority_size", table.Len()).Msg("reconciliation converged")
			return r.finish(start, Converged), nil
		}

		if applied {
			logger.Info().
				Str("issues", found.Summary().String()).
				Msg("resolutions applied, rechecking")
			continue
		}

		r.await(ictx, iteration, found, table.Len())
		return r.finish(start, AwaitingResolution), nil
	}

	logger.Warn().
		Int("max_iterations", m.config.maxIterations).
		Str("issues", r.result.Summary.String()).
		Msg("iteration cap reached, returning current datasets")
	// The last document was consumed; leave the remaining issues for review.
	r.report(ctx, m.config.maxIterations, found, r.result.AuthoritySize)
	return r.finish(start, MaxIterationsReached), nil
}

// report writes the pending report for found and records it in the result.
// A write failure is logged; the summary still reaches the caller.
func (r *run) report(ctx context.Context, iteration int, found *issues.Set, authoritySize int) string {
	report := issues.NewReport(found, authoritySize,
		issues.WithNamespace(r.config.namespace),
		issues.WithRunID(r.config.runID),
		issues.WithIteration(iteration),
	)
	r.result.Report = report

	key, err := r.writeReport(ctx, report)
	if err != nil {
		logging.FromContext(ctx).Error().Err(err).Msg("failed to persist pending report")
		return ""
	}
	r.result.ReportKey = key
	return key
}

// await writes the pending report and asks the pauser to pause the workflow.
func (r *run) await(ctx context.Context, iteration int, found *issues.Set, authoritySize int) {
	logger := logging.FromContext(ctx)
	key := r.report(ctx, iteration, found, authoritySize)
	logger.Warn().
		Str("report", key).
		Str("issues", found.Summary().String()).
		Msg("critical issues found, awaiting resolution")

	if r.config.pauser == nil {
		return
	}
	req := PauseRequest{
		RunID:     r.config.runID,
		Namespace: r.config.namespace,
		ReportKey: key,
		Summary:   found.Summary(),
	}
	if err := r.config.pauser.Pause(ctx, req); err != nil {
		logger.Warn().Err(err).Msg("failed to pause workflow")
	}
}

// load reads datasets, skipping the ones that fail.
func (r *run) load(ctx context.Context, refs []tables.Handle) []*tables.Table {
	out := make([]*tables.Table, 0, len(refs))
	for _, h := range refs {
		t, err := r.config.tables.Read(ctx, h)
		if err != nil {
			logging.FromContext(ctx).Warn().Err(err).Str("dataset", h.ID).Str("key", h.Key).Msg("failed to read dataset")
			r.result.Failed[h.ID] = err.Error()
			continue
		}
		out = append(out, t)
	}
	return out
}

// persist writes tables back to the table store.
func (r *run) persist(ctx context.Context, ts []*tables.Table) {
	for _, t := range ts {
		if err := r.config.tables.Write(ctx, t); err != nil {
			logging.FromContext(ctx).Error().Err(err).Str("dataset", t.ID).Msg("failed to persist dataset")
			continue
		}
		if !slices.Contains(r.result.Written, t.Key) {
			r.result.Written = append(r.result.Written, t.Key)
		}
	}
}
