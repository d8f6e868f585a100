package mastermap_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/mastermap"
	"github.com/agentstation/mastermap/pkg/blob"
	"github.com/agentstation/mastermap/pkg/constants"
	pkgerrors "github.com/agentstation/mastermap/pkg/errors"
	"github.com/agentstation/mastermap/pkg/issues"
	"github.com/agentstation/mastermap/pkg/logging"
	"github.com/agentstation/mastermap/pkg/resolution"
	"github.com/agentstation/mastermap/pkg/tables"
)

const (
	namespace = "sourcedata/census/2023/"

	idA = "911100001000000001"
	idB = "911100001000000002"
	idC = "911100001000000003"
)

func dataset(id string, rows ...[2]string) *tables.Table {
	t := tables.New(tables.Handle{ID: id, Key: namespace + id + ".csv"},
		constants.IdentifierColumn, constants.NameColumn, "营业收入")
	for _, r := range rows {
		t.Append(r[0], r[1], "100")
	}
	return t
}

type fixture struct {
	blobs  *blob.Memory
	tables *tables.MemoryStore
}

func newFixture(ts ...*tables.Table) *fixture {
	return &fixture{blobs: blob.NewMemory(), tables: tables.NewMemoryStore(ts...)}
}

func (f *fixture) engine(t *testing.T, opts ...mastermap.Option) mastermap.Mastermap {
	t.Helper()
	base := []mastermap.Option{
		mastermap.WithBlobStore(f.blobs),
		mastermap.WithTableStore(f.tables),
		mastermap.WithNamespace(namespace),
		mastermap.WithRunID("run-1"),
	}
	m, err := mastermap.New(append(base, opts...)...)
	require.NoError(t, err)
	return m
}

func (f *fixture) run(t *testing.T, opts ...mastermap.Option) *mastermap.Result {
	t.Helper()
	res, err := f.engine(t, opts...).Run(context.Background())
	require.NoError(t, err)
	return res
}

func (f *fixture) exists(t *testing.T, key string) bool {
	t.Helper()
	ok, err := blob.Exists(context.Background(), f.blobs, key)
	require.NoError(t, err)
	return ok
}

func TestNewRequiresStores(t *testing.T) {
	_, err := mastermap.New()
	require.Error(t, err)

	_, err = mastermap.New(mastermap.WithBlobStore(blob.NewMemory()))
	require.Error(t, err)

	_, err = mastermap.New(
		mastermap.WithBlobStore(blob.NewMemory()),
		mastermap.WithTableStore(tables.NewMemoryStore()),
		mastermap.WithMaxIterations(0),
	)
	require.Error(t, err)

	m, err := mastermap.New(
		mastermap.WithBlobStore(blob.NewMemory()),
		mastermap.WithTableStore(tables.NewMemoryStore()),
	)
	require.NoError(t, err)
	assert.NotEmpty(t, m.RunID())
}

func TestRunPropagatesAuthority(t *testing.T) {
	f := newFixture(
		dataset(constants.UnitBasicsTable, [2]string{idA, "Acme"}, [2]string{idB, "Beta"}),
		dataset("sales", [2]string{"", "Acme"}, [2]string{idB, "Beta Trading"}, [2]string{idC, "Gamma"}),
	)

	res := f.run(t)
	assert.Equal(t, mastermap.Converged, res.State)
	assert.Equal(t, 1, res.Iterations)
	assert.Equal(t, 2, res.AuthoritySize)
	assert.Equal(t, []string{namespace + "sales.csv"}, res.Written)
	require.Len(t, res.Tables, 2)

	sales := f.tables.Snapshot(namespace + "sales.csv")
	require.NotNil(t, sales)
	assert.Equal(t, idA, sales.Rows[0][0])
	assert.Equal(t, "Beta", sales.Rows[1][1])
	// Unknown valid identifiers are left as they are.
	assert.Equal(t, []string{idC, "Gamma", "100"}, sales.Rows[2])
	assert.Equal(t, 0, f.tables.Writes(namespace+constants.UnitBasicsTable+".csv"))
}

func TestRunIsIdempotent(t *testing.T) {
	f := newFixture(
		dataset(constants.UnitBasicsTable, [2]string{idA, "Acme"}),
		dataset("sales", [2]string{"", "Acme"}),
	)

	first := f.run(t)
	require.Equal(t, mastermap.Converged, first.State)
	require.Equal(t, 1, f.tables.Writes(namespace+"sales.csv"))

	second := f.run(t)
	assert.Equal(t, mastermap.Converged, second.State)
	assert.Empty(t, second.Written)
	assert.Equal(t, 1, f.tables.Writes(namespace+"sales.csv"))
}

func TestRunFirstSeenAcrossCanonicalTables(t *testing.T) {
	f := newFixture(
		dataset(constants.UnitBasicsTable, [2]string{idA, "Acme"}),
		dataset(constants.SurveyUnitBasicsTable, [2]string{idA, "Acme Holdings"}),
	)

	res := f.run(t)
	require.Equal(t, mastermap.AwaitingResolution, res.State)
	require.NotNil(t, res.Report)
	require.Len(t, res.Report.Issues.OneCodeManyNames, 1)
	issue := res.Report.Issues.OneCodeManyNames[0]
	assert.Equal(t, constants.SurveyUnitBasicsTable, issue.Dataset)
	assert.Equal(t, "Acme", issue.ExistingName)
	assert.Equal(t, "Acme Holdings", issue.NewName)
}

func TestRunMissingIdentifierRoundTrip(t *testing.T) {
	const unknown = "123456789012345678"
	f := newFixture(
		dataset(constants.UnitBasicsTable, [2]string{idA, "Acme"}),
		dataset("sales", [2]string{"", "Acme"}, [2]string{"", "Widgets Co"}),
	)

	var paused []mastermap.PauseRequest
	pauser := mastermap.PauserFunc(func(_ context.Context, req mastermap.PauseRequest) error {
		paused = append(paused, req)
		return errors.New("workflow engine unavailable")
	})

	res := f.run(t, mastermap.WithPauser(pauser))
	require.Equal(t, mastermap.AwaitingResolution, res.State)
	assert.Equal(t, mastermap.ReportKey(namespace), res.ReportKey)
	assert.Equal(t, 1, res.Summary.MissingIdentifier)
	require.Len(t, paused, 1)
	assert.Equal(t, res.ReportKey, paused[0].ReportKey)
	assert.Equal(t, "run-1", paused[0].RunID)

	m := f.engine(t)
	report, err := m.PendingReport(context.Background())
	require.NoError(t, err)
	assert.Equal(t, constants.ReportStatusPending, report.Status)
	require.Len(t, report.Issues.MissingIdentifier, 1)
	assert.Equal(t, issues.MissingIdentifier{Dataset: "sales", Row: 1, Name: "Widgets Co"}, report.Issues.MissingIdentifier[0])

	key, err := m.SubmitResolution(context.Background(), &resolution.Document{
		Resolutions: resolution.Fixes{
			MissingIdentifier: []resolution.MissingFix{{Dataset: "sales", Row: 1, Name: "Widgets Co", Identifier: unknown}},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, mastermap.ResolutionsKey(namespace), key)

	res = f.run(t)
	require.Equal(t, mastermap.Converged, res.State)
	assert.Equal(t, 1, res.Applied)
	assert.Empty(t, res.Rejected)
	assert.False(t, f.exists(t, mastermap.ReportKey(namespace)))
	assert.False(t, f.exists(t, mastermap.ResolutionsKey(namespace)))

	sales := f.tables.Snapshot(namespace + "sales.csv")
	assert.Equal(t, idA, sales.Rows[0][0])
	assert.Equal(t, unknown, sales.Rows[1][0])
	writes := f.tables.Writes(namespace + "sales.csv")

	// The document was consumed: a further run applies nothing.
	res = f.run(t)
	assert.Equal(t, mastermap.Converged, res.State)
	assert.Zero(t, res.Applied)
	assert.Equal(t, writes, f.tables.Writes(namespace+"sales.csv"))
}

func TestRunCodeConflictResolution(t *testing.T) {
	conflicted := strings.Repeat("A", constants.IdentifierLength)
	f := newFixture(
		dataset(constants.UnitBasicsTable, [2]string{conflicted, "Alpha"}),
		dataset(constants.SurveyUnitBasicsTable, [2]string{conflicted, "Alpha Group"}),
		dataset("sales", [2]string{conflicted, "alpha"}),
	)

	res := f.run(t)
	require.Equal(t, mastermap.AwaitingResolution, res.State)
	assert.Equal(t, 1, res.Summary.OneCodeManyNames)

	_, err := f.engine(t).SubmitResolution(context.Background(), &resolution.Document{
		Resolutions: resolution.Fixes{
			OneCodeManyNames: []resolution.CodeFix{{Identifier: conflicted, SelectedName: "Alpha Group"}},
		},
	})
	require.NoError(t, err)

	m := f.engine(t)
	var patches []resolution.Patch
	m.OnRowPatched(func(p resolution.Patch) { patches = append(patches, p) })
	res, err = m.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, mastermap.Converged, res.State)
	require.Len(t, patches, 1)
	assert.Equal(t, constants.UnitBasicsTable, patches[0].Dataset)
	assert.Equal(t, "Alpha", patches[0].Old)

	assert.Equal(t, "Alpha Group", f.tables.Snapshot(namespace+constants.UnitBasicsTable+".csv").Rows[0][1])
	assert.Equal(t, "Alpha Group", f.tables.Snapshot(namespace+"sales.csv").Rows[0][1])
}

func TestRunRejectedMissingFixChangesNothing(t *testing.T) {
	// sales was re-ingested after the report: row 0 no longer holds the
	// name the fix was written for.
	f := newFixture(
		dataset(constants.UnitBasicsTable, [2]string{idA, "Acme"}),
		dataset("sales", [2]string{"", "Other Co"}, [2]string{"", "Widgets Co"}),
	)
	_, err := f.engine(t).SubmitResolution(context.Background(), &resolution.Document{
		Resolutions: resolution.Fixes{
			MissingIdentifier: []resolution.MissingFix{{Dataset: "sales", Row: 0, Name: "Widgets Co", Identifier: idB}},
		},
	})
	require.NoError(t, err)

	res := f.run(t)
	require.Equal(t, mastermap.AwaitingResolution, res.State)
	assert.Zero(t, res.Applied)
	require.Len(t, res.Rejected, 1)
	assert.True(t, pkgerrors.IsMismatch(res.Rejected[0].Err))

	assert.Equal(t, 1, res.AuthoritySize)
	assert.Equal(t, 2, res.Summary.MissingIdentifier)
	assert.Empty(t, res.Written)
	assert.Zero(t, f.tables.Writes(namespace+"sales.csv"))
	assert.Equal(t, [][]string{{"", "Other Co", "100"}, {"", "Widgets Co", "100"}},
		f.tables.Snapshot(namespace+"sales.csv").Rows)
	assert.False(t, f.exists(t, mastermap.ResolutionsKey(namespace)), "the document is consumed")
}

func TestRunWritesReportAtIterationCap(t *testing.T) {
	f := newFixture(
		dataset(constants.UnitBasicsTable, [2]string{idA, "Acme"}),
		dataset("sales", [2]string{"", "Acme"}, [2]string{"", "Widgets Co"}, [2]string{"", "Gadgets Ltd"}),
	)
	require.Equal(t, mastermap.AwaitingResolution, f.run(t).State)

	_, err := f.engine(t).SubmitResolution(context.Background(), &resolution.Document{
		Resolutions: resolution.Fixes{
			MissingIdentifier: []resolution.MissingFix{{Dataset: "sales", Row: 1, Name: "Widgets Co", Identifier: idB}},
		},
	})
	require.NoError(t, err)

	res := f.run(t, mastermap.WithMaxIterations(1))
	require.Equal(t, mastermap.MaxIterationsReached, res.State)
	assert.Equal(t, 1, res.Applied)
	assert.Equal(t, 1, res.Summary.MissingIdentifier)
	assert.Equal(t, mastermap.ReportKey(namespace), res.ReportKey)
	assert.False(t, f.exists(t, mastermap.ResolutionsKey(namespace)))

	report, err := f.engine(t).PendingReport(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Issues.MissingIdentifier, 1)
	assert.Equal(t, "Gadgets Ltd", report.Issues.MissingIdentifier[0].Name)
	assert.Equal(t, 1, report.Iteration)
}

func TestRunDiscardsUnreadableResolutions(t *testing.T) {
	f := newFixture(
		dataset(constants.UnitBasicsTable, [2]string{idA, "Acme"}),
		dataset("sales", [2]string{"", "Widgets Co"}),
	)
	require.NoError(t, f.blobs.Put(context.Background(), mastermap.ResolutionsKey(namespace), []byte("{not json")))

	logger := logging.NewTestLogger(t)
	ctx := logging.WithLogger(context.Background(), logger.Logger)
	res, err := f.engine(t).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, mastermap.AwaitingResolution, res.State)
	assert.False(t, f.exists(t, mastermap.ResolutionsKey(namespace)))
	logger.AssertContains(t, "discarding unreadable resolutions")
}

// sticky hands out the same resolution document on every read.
type sticky struct {
	*blob.Memory
	doc []byte
}

func (s *sticky) Get(ctx context.Context, key string) ([]byte, error) {
	if strings.HasSuffix(key, constants.ResolutionsName) {
		return s.doc, nil
	}
	return s.Memory.Get(ctx, key)
}

func (s *sticky) Delete(ctx context.Context, key string) error {
	if strings.HasSuffix(key, constants.ResolutionsName) {
		return nil
	}
	return s.Memory.Delete(ctx, key)
}

func TestRunStopsAtIterationCap(t *testing.T) {
	doc := &resolution.Document{Resolutions: resolution.Fixes{
		OneCodeManyNames: []resolution.CodeFix{{Identifier: idC, SelectedName: "Gamma"}},
	}}
	data, err := doc.Marshal()
	require.NoError(t, err)

	store := tables.NewMemoryStore(
		dataset(constants.UnitBasicsTable, [2]string{idA, "Acme"}),
		dataset("sales", [2]string{"", "Widgets Co"}),
	)
	m, err := mastermap.New(
		mastermap.WithBlobStore(&sticky{Memory: blob.NewMemory(), doc: data}),
		mastermap.WithTableStore(store),
		mastermap.WithNamespace(namespace),
		mastermap.WithMaxIterations(3),
	)
	require.NoError(t, err)

	res, err := m.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, mastermap.MaxIterationsReached, res.State)
	assert.Equal(t, 3, res.Iterations)
	assert.Equal(t, 3, res.Applied)
	assert.Equal(t, 1, res.Summary.MissingIdentifier)
	assert.Len(t, res.Tables, 2)
}

func TestRunStateChanges(t *testing.T) {
	f := newFixture(
		dataset(constants.UnitBasicsTable, [2]string{idA, "Acme"}),
		dataset("sales", [2]string{"", "Widgets Co"}),
	)
	m := f.engine(t)

	var mu sync.Mutex
	var states []mastermap.State
	var found []issues.Issue
	m.OnStateChange(func(_, to mastermap.State) {
		mu.Lock()
		defer mu.Unlock()
		states = append(states, to)
	})
	m.OnIssue(func(i issues.Issue) { found = append(found, i) })

	res, err := m.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []mastermap.State{mastermap.Building, mastermap.Validating, mastermap.AwaitingResolution}, states)
	assert.True(t, res.State.Terminal())
	require.Len(t, found, 1)
	assert.Equal(t, issues.KindMissingIdentifier, found[0].Kind())
}

func TestRunWithoutCanonicalTables(t *testing.T) {
	f := newFixture(dataset("sales", [2]string{"", "Acme"}))

	res := f.run(t)
	assert.Equal(t, mastermap.Converged, res.State)
	assert.Zero(t, res.Iterations)
	assert.Empty(t, res.Written)
}

func TestReconcileAllSkipsUnreadableDatasets(t *testing.T) {
	f := newFixture(
		dataset(constants.UnitBasicsTable, [2]string{idA, "Acme"}),
		dataset("sales", [2]string{"", "Acme"}),
	)
	m := f.engine(t)

	res, err := m.ReconcileAll(context.Background(),
		[]tables.Handle{{ID: constants.UnitBasicsTable, Key: namespace + constants.UnitBasicsTable + ".csv"}},
		[]tables.Handle{
			{ID: "sales", Key: namespace + "sales.csv"},
			{ID: "ghost", Key: namespace + "ghost.csv"},
		},
	)
	require.NoError(t, err)
	assert.Equal(t, mastermap.Converged, res.State)
	assert.Contains(t, res.Failed, "ghost")
	assert.Equal(t, []string{namespace + "sales.csv"}, res.Written)
}

func TestReconcileAllHonorsCancellation(t *testing.T) {
	f := newFixture(dataset(constants.UnitBasicsTable, [2]string{idA, "Acme"}))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.engine(t).ReconcileAll(ctx,
		[]tables.Handle{{ID: constants.UnitBasicsTable, Key: namespace + constants.UnitBasicsTable + ".csv"}}, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, pkgerrors.IsCanceled(err))
}

func TestCleanupCandidatePrefixes(t *testing.T) {
	assert.Equal(t,
		[]string{"sourcedata/", "sourcedata/census/", "sourcedata/census/2023/"},
		mastermap.CandidatePrefixes("/sourcedata/census/2023"))
	assert.Equal(t, []string{"uploads/"}, mastermap.CandidatePrefixes("uploads"))

	f := newFixture()
	ctx := context.Background()
	keys := []string{
		"sourcedata/" + constants.PendingReportName,
		"sourcedata/census/" + constants.ResolutionsName,
		namespace + constants.PendingReportName,
		namespace + "单位基本情况_611.csv",
		"other/" + constants.PendingReportName,
	}
	for _, k := range keys {
		require.NoError(t, f.blobs.Put(ctx, k, []byte("{}")))
	}

	deleted, err := f.engine(t).Cleanup(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, keys[:3], deleted)

	remaining, err := f.blobs.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"other/" + constants.PendingReportName, namespace + "单位基本情况_611.csv"}, remaining)
}

func TestSubmitResolutionKeepsUnclaimedDocument(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	m := f.engine(t)
	doc := func(id string) *resolution.Document {
		return &resolution.Document{Resolutions: resolution.Fixes{
			MissingIdentifier: []resolution.MissingFix{{Dataset: "sales", Row: 0, Name: "Widgets Co", Identifier: id}},
		}}
	}

	_, err := m.SubmitResolution(ctx, doc(idB))
	require.NoError(t, err)

	_, err = m.SubmitResolution(ctx, doc(idC))
	require.Error(t, err)
	assert.True(t, pkgerrors.IsAlreadyExists(err))

	data, err := f.blobs.Get(ctx, mastermap.ResolutionsKey(namespace))
	require.NoError(t, err)
	assert.Contains(t, string(data), idB)

	withdrawn, err := m.WithdrawResolution(ctx)
	require.NoError(t, err)
	assert.True(t, withdrawn)
	withdrawn, err = m.WithdrawResolution(ctx)
	require.NoError(t, err)
	assert.False(t, withdrawn)

	_, err = m.SubmitResolution(ctx, doc(idC))
	require.NoError(t, err)
}

func TestSubmitResolutionRejectsEmptyDocument(t *testing.T) {
	f := newFixture()
	_, err := f.engine(t).SubmitResolution(context.Background(), &resolution.Document{})
	require.Error(t, err)
	assert.False(t, f.exists(t, mastermap.ResolutionsKey(namespace)))
}

func TestSplit(t *testing.T) {
	handles := []tables.Handle{
		{ID: "sales", Key: "a/sales.csv"},
		{ID: constants.SurveyUnitBasicsTable, Key: "a/601.csv"},
		{ID: constants.UnitBasicsTable, Key: "a/611.csv"},
	}
	canonical, others := mastermap.Split(handles, []string{constants.UnitBasicsTable, constants.SurveyUnitBasicsTable})
	require.Len(t, canonical, 2)
	assert.Equal(t, constants.UnitBasicsTable, canonical[0].ID)
	assert.Equal(t, constants.SurveyUnitBasicsTable, canonical[1].ID)
	assert.Equal(t, []tables.Handle{{ID: "sales", Key: "a/sales.csv"}}, others)
}
