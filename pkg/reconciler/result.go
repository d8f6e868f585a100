package reconciler

import (
	"fmt"
	"slices"
	"time"

	"github.com/agentstation/mastermap/pkg/issues"
	"github.com/agentstation/mastermap/pkg/tables"
)

// DatasetResult is the outcome of reconciling one dataset.
type DatasetResult struct {
	Dataset string

	// Mutated is true when at least one cell changed.
	Mutated bool

	// NamesAligned counts rows whose name was replaced by the authority name.
	NamesAligned int

	// IdentifiersFilled counts rows whose identifier was replaced by the
	// authority identifier.
	IdentifiersFilled int

	// Skipped counts missing-identifier rows suppressed because a resolution
	// already patched them.
	Skipped int

	Issues *issues.Set

	// Index is the position of the dataset in the Pass input.
	Index int `json:"-"`
}

// PassResult is the outcome of reconciling every non-canonical dataset once.
type PassResult struct {
	// Tables holds every input table in input order, reconciled in place.
	Tables []*tables.Table

	// Datasets holds one result per dataset that was reconciled.
	Datasets []*DatasetResult

	// Failed maps dataset ids to the error that made them pass through unmodified.
	Failed map[string]error

	Issues *issues.Set

	StartTime time.Time
	Duration  time.Duration
}

// Mutated returns the ids of datasets with at least one changed cell.
func (r *PassResult) Mutated() []string {
	var ids []string
	for _, d := range r.Datasets {
		if d.Mutated {
			ids = append(ids, d.Dataset)
		}
	}
	slices.Sort(ids)
	return ids
}

// IsSuccess reports whether every dataset was reconciled.
func (r *PassResult) IsSuccess() bool {
	return len(r.Failed) == 0
}

// Summary returns a human-readable summary of the pass.
func (r *PassResult) Summary() string {
	return fmt.Sprintf("reconciled %d datasets (%d mutated, %d failed) in %s; issues: %s",
		len(r.Datasets), len(r.Mutated()), len(r.Failed), r.Duration, r.Issues.Summary())
}
