// Package mastermap reconciles master data across the datasets of one census
// upload. It builds an authoritative identifier/name mapping from the
// canonical tables, propagates it into every other dataset and hands
// irreconcilable anomalies to a human reviewer through the blob store.
//
// A run ends in one of three states. Converged means no issue is left.
// AwaitingResolution means a report was written and the run must be invoked
// again once a resolution document is uploaded next to it.
// MaxIterationsReached means the iteration cap ran out first.
package mastermap

import (
	"context"
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/agentstation/mastermap/pkg/authority"
	"github.com/agentstation/mastermap/pkg/identifier"
	"github.com/agentstation/mastermap/pkg/issues"
	"github.com/agentstation/mastermap/pkg/logging"
	"github.com/agentstation/mastermap/pkg/reconciler"
	"github.com/agentstation/mastermap/pkg/resolution"
	"github.com/agentstation/mastermap/pkg/tables"
)

// Mastermap drives reconciliation runs over one namespace
type Mastermap interface {
	// ReconcileAll runs the iteration loop over the given canonical and
	// other datasets.
	ReconcileAll(ctx context.Context, canonical, datasets []tables.Handle) (*Result, error)

	// Run lists the namespace and reconciles everything in it.
	Run(ctx context.Context) (*Result, error)

	// PendingReport loads the report left by a run awaiting resolution.
	PendingReport(ctx context.Context) (*issues.Report, error)

	// SubmitResolution uploads a resolution document for the next run. It
	// fails with errors.ErrAlreadyExists while an unclaimed document is pending.
	SubmitResolution(ctx context.Context, doc *resolution.Document) (string, error)

	// WithdrawResolution deletes the unclaimed resolution document, if any.
	WithdrawResolution(ctx context.Context) (bool, error)

	// Cleanup deletes stale reports and resolution documents.
	Cleanup(ctx context.Context) ([]string, error)

	// RunID returns the identifier recorded in reports.
	RunID() string

	// OnIssue registers a callback for every issue found
	OnIssue(IssueHook)

	// OnRowPatched registers a callback for every cell a resolution rewrites
	OnRowPatched(RowPatchedHook)

	// OnStateChange registers a callback for controller state transitions
	OnStateChange(StateChangeHook)
}

// mastermap is the internal implementation of the Mastermap interface
type mastermap struct {
	config     *config
	hooks      *hooks
	normalizer *identifier.Normalizer
	builder    *authority.Builder
	reconciler *reconciler.Reconciler
	applier    *resolution.Applier
}

var _ Mastermap = (*mastermap)(nil)

// New creates a new Mastermap instance with the given options
func New(opts ...Option) (Mastermap, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, fmt.Errorf("applying options: %w", err)
		}
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.runID == "" {
		cfg.runID = uuid.NewString()
	}

	m := &mastermap{
		config:     cfg,
		hooks:      newHooks(),
		normalizer: identifier.New(cfg.identifierLength),
	}
	m.builder = authority.NewBuilder(
		authority.WithRoles(cfg.roles),
		authority.WithNormalizer(m.normalizer),
	)

	rec, err := reconciler.New(
		reconciler.WithRoles(cfg.roles),
		reconciler.WithNormalizer(m.normalizer),
		reconciler.WithWorkers(cfg.workers),
	)
	if err != nil {
		return nil, fmt.Errorf("creating reconciler: %w", err)
	}
	m.reconciler = rec

	m.applier = resolution.NewApplier(
		resolution.WithRoles(cfg.roles),
		resolution.WithNormalizer(m.normalizer),
		resolution.WithPatchHandler(m.hooks.triggerRowPatched),
	)
	return m, nil
}

// RunID returns the run identifier.
func (m *mastermap) RunID() string {
	return m.config.runID
}

// OnIssue registers a callback for issues
func (m *mastermap) OnIssue(fn IssueHook) {
	m.hooks.OnIssue(fn)
}

// OnRowPatched registers a callback for resolution patches
func (m *mastermap) OnRowPatched(fn RowPatchedHook) {
	m.hooks.OnRowPatched(fn)
}

// OnStateChange registers a callback for state transitions
func (m *mastermap) OnStateChange(fn StateChangeHook) {
	m.hooks.OnStateChange(fn)
}

// Run lists the namespace and splits its datasets into canonical tables,
// ordered as configured, and the rest.
func (m *mastermap) Run(ctx context.Context) (*Result, error) {
	handles, err := m.config.tables.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing datasets: %w", err)
	}
	canonical, others := Split(handles, m.config.canonical)
	logging.FromContext(ctx).Info().
		Int("canonical", len(canonical)).
		Int("datasets", len(others)).
		Msg("datasets listed")
	return m.ReconcileAll(ctx, canonical, others)
}

// Split separates the handles whose ID is one of names from the rest. The
// canonical handles come back in the order of names.
func Split(handles []tables.Handle, names []string) (canonical, others []tables.Handle) {
	for _, h := range handles {
		if slices.Contains(names, h.ID) {
			canonical = append(canonical, h)
		} else {
			others = append(others, h)
		}
	}
	slices.SortStableFunc(canonical, func(a, b tables.Handle) int {
		return slices.Index(names, a.ID) - slices.Index(names, b.ID)
	})
	return canonical, others
}
