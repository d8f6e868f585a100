package reconciler_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/mastermap/pkg/authority"
	"github.com/agentstation/mastermap/pkg/constants"
	"github.com/agentstation/mastermap/pkg/errors"
	"github.com/agentstation/mastermap/pkg/issues"
	"github.com/agentstation/mastermap/pkg/reconciler"
	"github.com/agentstation/mastermap/pkg/tables"
)

const (
	idA = "911100001000000001"
	idB = "911100001000000002"
)

func authorityTable() *authority.Table {
	t := authority.NewTable()
	t.Set(idA, "Acme")
	t.Set(idB, "Beta")
	return t
}

func dataset(id string, rows ...[3]string) *tables.Table {
	t := tables.New(tables.Handle{ID: id, Key: id + ".csv"},
		constants.IdentifierColumn, constants.NameColumn, "营业收入")
	for _, r := range rows {
		t.Append(r[0], r[1], r[2])
	}
	return t
}

func newReconciler(t *testing.T, opts ...reconciler.Option) *reconciler.Reconciler {
	t.Helper()
	r, err := reconciler.New(opts...)
	require.NoError(t, err)
	return r
}

func TestDatasetPropagation(t *testing.T) {
	ds := dataset("sales",
		[3]string{idA, "ACME typo", "100"},
		[3]string{"", "Beta", "200"},
		[3]string{"nan", "Gamma", "300"},
		[3]string{"", "", "400"},
		[3]string{"9111-0000-1000-0000-01", "Acme", "500"},
	)

	res, err := newReconciler(t).Dataset(context.Background(), authorityTable(), ds, nil)
	require.NoError(t, err)

	assert.True(t, res.Mutated)
	assert.Equal(t, 1, res.NamesAligned)
	assert.Equal(t, 1, res.IdentifiersFilled)

	assert.Equal(t, "Acme", ds.Rows[0][1])
	assert.Equal(t, idB, ds.Rows[1][0])
	assert.Equal(t, "9111-0000-1000-0000-01", ds.Rows[4][0], "known identifiers are left as written")
	assert.Equal(t, "400", ds.Rows[3][2], "other columns untouched")
	assert.Equal(t, 5, ds.Len(), "rows are never removed")

	require.Len(t, res.Issues.MissingIdentifier, 1)
	assert.Equal(t, issues.MissingIdentifier{Dataset: "sales", Row: 2, Name: "Gamma"}, res.Issues.MissingIdentifier[0])
}

func TestDatasetUnknownIdentifierFallsBackToName(t *testing.T) {
	ds := dataset("sales",
		[3]string{"911100001000000009", "Acme", ""},
		[3]string{"9.35E+17", "Beta", ""},
		[3]string{"9.35E+17", "Unknown", ""},
	)
	res, err := newReconciler(t).Dataset(context.Background(), authorityTable(), ds, nil)
	require.NoError(t, err)

	assert.Equal(t, idA, ds.Rows[0][0])
	assert.Equal(t, idB, ds.Rows[1][0])
	assert.Equal(t, "9.35E+17", ds.Rows[2][0])
	assert.Zero(t, res.Issues.Len(), "malformed identifiers outside canonical tables are not missing")
}

func TestDatasetSkipsFixedRows(t *testing.T) {
	ds := dataset("sales",
		[3]string{"", "Gamma", ""},
		[3]string{"", "Delta", ""},
	)
	fixed := tables.NewRowSet(tables.RowKey{Dataset: "sales", Row: 0})

	res, err := newReconciler(t).Dataset(context.Background(), authorityTable(), ds, fixed)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Skipped)
	require.Len(t, res.Issues.MissingIdentifier, 1)
	assert.Equal(t, 1, res.Issues.MissingIdentifier[0].Row)
	assert.False(t, res.Mutated)
}

func TestDatasetIsIdempotent(t *testing.T) {
	ds := dataset("sales",
		[3]string{idA, "old", ""},
		[3]string{"", "Beta", ""},
	)
	r := newReconciler(t)
	table := authorityTable()

	first, err := r.Dataset(context.Background(), table, ds, nil)
	require.NoError(t, err)
	assert.True(t, first.Mutated)

	snapshot := ds.Copy()
	second, err := r.Dataset(context.Background(), table, ds, nil)
	require.NoError(t, err)
	assert.False(t, second.Mutated)
	assert.Equal(t, snapshot.Rows, ds.Rows)
}

func TestDatasetMissingColumns(t *testing.T) {
	ds := tables.New(tables.Handle{ID: "misc"}, "a", "b")
	ds.Append("1", "2")
	_, err := newReconciler(t).Dataset(context.Background(), authorityTable(), ds, nil)
	assert.True(t, errors.IsNotFound(err))
}

func TestPassConcurrent(t *testing.T) {
	var mu sync.Mutex
	var seen []issues.Issue
	r := newReconciler(t,
		reconciler.WithWorkers(3),
		reconciler.WithIssueHandler(func(i issues.Issue) {
			mu.Lock()
			defer mu.Unlock()
			seen = append(seen, i)
		}),
	)

	var datasets []*tables.Table
	for i := range 10 {
		datasets = append(datasets, dataset(fmt.Sprintf("ds%02d", i),
			[3]string{idA, "stale", ""},
			[3]string{"", fmt.Sprintf("orphan-%d", i), ""},
		))
	}
	broken := tables.New(tables.Handle{ID: "broken"}, "x")
	broken.Append("y")
	datasets = append(datasets, broken)

	res := r.Pass(context.Background(), authorityTable(), datasets, nil)

	assert.Len(t, res.Datasets, 10)
	assert.Len(t, res.Mutated(), 10)
	require.Contains(t, res.Failed, "broken")
	assert.False(t, res.IsSuccess())
	assert.Equal(t, []string{"y"}, broken.Rows[0])

	require.Len(t, res.Issues.MissingIdentifier, 10)
	for i, mi := range res.Issues.MissingIdentifier {
		assert.Equal(t, fmt.Sprintf("ds%02d", i), mi.Dataset, "issues are ordered by input dataset")
	}
	assert.Len(t, seen, 10)

	for _, ds := range datasets[:10] {
		assert.Equal(t, "Acme", ds.Rows[0][1])
	}
	assert.Contains(t, res.Summary(), "1 failed")
}

func TestOptionsValidation(t *testing.T) {
	_, err := reconciler.New(reconciler.WithWorkers(0))
	assert.True(t, errors.IsValidationError(err))

	_, err = reconciler.New(reconciler.WithNormalizer(nil))
	assert.Error(t, err)

	_, err = reconciler.New(reconciler.WithRoles(tables.Roles{Identifier: []string{"id"}}))
	assert.Error(t, err)
}
