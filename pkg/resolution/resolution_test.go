package resolution_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/mastermap/pkg/authority"
	"github.com/agentstation/mastermap/pkg/constants"
	"github.com/agentstation/mastermap/pkg/errors"
	"github.com/agentstation/mastermap/pkg/issues"
	"github.com/agentstation/mastermap/pkg/logging"
	"github.com/agentstation/mastermap/pkg/resolution"
	"github.com/agentstation/mastermap/pkg/tables"
)

const (
	idA = "911100001000000001"
	idB = "911100001000000002"
	idC = "911100001000000003"
)

func table(id string, rows ...[2]string) *tables.Table {
	t := tables.New(tables.Handle{ID: id, Key: id + ".csv"},
		constants.IdentifierColumn, constants.NameColumn)
	for _, r := range rows {
		t.Append(r[0], r[1])
	}
	return t
}

func ptr(i int) *int { return &i }

func TestParseJSONAndYAML(t *testing.T) {
	jsonDoc := `{
	  "run_id": "r1",
	  "resolutions": {
	    "malformed_identifier": [{"dataset": "单位基本情况_611", "row_index": 2, "identifier": "9.35E+17", "fixed_identifier": "` + idA + `"}],
	    "one_to_many_code": [{"identifier": "` + idB + `", "selected_name": "Beta"}],
	    "missing_identifier": [{"dataset": "sales", "row_index": 0, "name": "Gamma", "identifier": "` + idC + `"}]
	  }
	}`
	doc, err := resolution.Parse([]byte(jsonDoc))
	require.NoError(t, err)
	assert.Equal(t, "r1", doc.RunID)
	assert.Equal(t, 3, doc.Resolutions.Len())
	require.NotNil(t, doc.Resolutions.MalformedIdentifier[0].Row)
	assert.Equal(t, 2, *doc.Resolutions.MalformedIdentifier[0].Row)

	yamlDoc := `
reviewer: ops
resolutions:
  one_to_many_name:
    - name: Acme
      selected_identifier: "` + idA + `"
  missing_identifier:
    - dataset: sales
      row_index: 4
      name: Gamma
      identifier: "` + idC + `"
`
	doc, err = resolution.Parse([]byte(yamlDoc))
	require.NoError(t, err)
	assert.Equal(t, "ops", doc.Reviewer)
	require.Len(t, doc.Resolutions.OneNameManyCodes, 1)
	assert.Equal(t, idA, doc.Resolutions.OneNameManyCodes[0].SelectedIdentifier)
	assert.Equal(t, 4, doc.Resolutions.MissingIdentifier[0].Row)

	_, err = resolution.Parse([]byte("  "))
	assert.Error(t, err)
	_, err = resolution.Parse([]byte("{not json"))
	assert.Error(t, err)
}

func TestDocumentMarshalRoundTrip(t *testing.T) {
	doc := &resolution.Document{Resolutions: resolution.Fixes{
		OneCodeManyNames: []resolution.CodeFix{{Identifier: idA, SelectedName: "Acme"}},
	}}
	data, err := doc.Marshal()
	require.NoError(t, err)
	back, err := resolution.Parse(data)
	require.NoError(t, err)
	assert.Equal(t, doc.Resolutions, back.Resolutions)
}

func TestApplyMalformedFix(t *testing.T) {
	t611 := table(constants.UnitBasicsTable,
		[2]string{idB, "Beta"},
		[2]string{"9.35E+17", "Acme"},
	)
	auth, found := authority.Build(context.Background(), []*tables.Table{t611})
	require.Len(t, found.MalformedIdentifier, 1)

	doc := &resolution.Document{Resolutions: resolution.Fixes{
		MalformedIdentifier: []resolution.MalformedFix{{
			Dataset: constants.UnitBasicsTable, Row: ptr(1), Identifier: "9.35E+17", Fixed: idA,
		}},
	}}
	var patches []resolution.Patch
	applier := resolution.NewApplier(resolution.WithPatchHandler(func(p resolution.Patch) {
		patches = append(patches, p)
	}))
	out := applier.Apply(context.Background(), doc, auth, []*tables.Table{t611}, nil)

	assert.Empty(t, out.Rejected)
	assert.Equal(t, 1, out.Accepted)
	name, ok := auth.Name(idA)
	require.True(t, ok)
	assert.Equal(t, "Acme", name)
	assert.Equal(t, idA, t611.Rows[1][0])
	require.Len(t, patches, 1)
	assert.Equal(t, "9.35E+17", patches[0].Old)
	assert.Equal(t, []*tables.Table{t611}, out.Mutated())

	// The canonical table now builds cleanly.
	_, found = authority.Build(context.Background(), []*tables.Table{t611})
	assert.Zero(t, found.Len())
}

func TestApplyMalformedFixByIdentifierOnly(t *testing.T) {
	t611 := table(constants.UnitBasicsTable, [2]string{"12345", "Acme"})
	t601 := table(constants.SurveyUnitBasicsTable, [2]string{"12345", "Acme"})
	auth := authority.NewTable()

	doc := &resolution.Document{Resolutions: resolution.Fixes{
		MalformedIdentifier: []resolution.MalformedFix{{Identifier: "12345", Fixed: idA}},
	}}
	out := resolution.Apply(context.Background(), doc, auth, []*tables.Table{t611, t601}, nil)
	assert.Empty(t, out.Rejected)
	assert.Equal(t, idA, t611.Rows[0][0])
	assert.Equal(t, idA, t601.Rows[0][0])
	assert.Len(t, out.Mutated(), 2)
}

func TestApplyRejectsInvalidFixedIdentifier(t *testing.T) {
	t611 := table(constants.UnitBasicsTable, [2]string{"9.35E+17", "Acme"})
	auth := authority.NewTable()
	doc := &resolution.Document{Resolutions: resolution.Fixes{
		MalformedIdentifier: []resolution.MalformedFix{
			{Dataset: constants.UnitBasicsTable, Row: ptr(0), Identifier: "9.35E+17", Fixed: "9.35E+17"},
			{Dataset: constants.UnitBasicsTable, Row: ptr(0), Identifier: "9.35E+17", Fixed: "123"},
		},
		OneNameManyCodes: []resolution.NameFix{{Name: "Acme", SelectedIdentifier: "bad"}},
	}}
	out := resolution.Apply(context.Background(), doc, auth, []*tables.Table{t611}, nil)
	require.Len(t, out.Rejected, 3)
	for _, rej := range out.Rejected {
		assert.True(t, errors.IsValidationError(rej.Err))
	}
	assert.Zero(t, auth.Len(), "authority keys stay valid")
	assert.Equal(t, "9.35E+17", t611.Rows[0][0])
	assert.Empty(t, out.Mutated())
}

func TestApplyOneToManyFixes(t *testing.T) {
	t611 := table(constants.UnitBasicsTable,
		[2]string{idA, "Acme"},
		[2]string{idB, "Beta"},
	)
	t601 := table(constants.SurveyUnitBasicsTable,
		[2]string{idA, "Acme Holdings"},
		[2]string{idC, "Beta"},
	)
	canonical := []*tables.Table{t611, t601}
	auth, found := authority.Build(context.Background(), canonical)
	require.Len(t, found.OneCodeManyNames, 1)
	require.Len(t, found.OneNameManyCodes, 1)

	doc := &resolution.Document{Resolutions: resolution.Fixes{
		OneCodeManyNames: []resolution.CodeFix{{Identifier: idA, SelectedName: "Acme Holdings"}},
		OneNameManyCodes: []resolution.NameFix{{Name: "Beta", SelectedIdentifier: idC}},
	}}
	out := resolution.Apply(context.Background(), doc, auth, canonical, nil)
	assert.Empty(t, out.Rejected)

	name, _ := auth.Name(idA)
	assert.Equal(t, "Acme Holdings", name)
	id, _ := auth.ID("Beta")
	assert.Equal(t, idC, id)

	assert.Equal(t, "Acme Holdings", t611.Rows[0][1])
	assert.Equal(t, idC, t611.Rows[1][0])

	_, found = authority.Build(context.Background(), canonical)
	assert.Zero(t, found.Len(), "rebuilt authority is conflict free")
}

func TestApplyMissingFixWithGuard(t *testing.T) {
	tl := logging.NewTestLogger(t)
	ctx := logging.WithLogger(context.Background(), tl.Logger)

	sales := table("sales",
		[2]string{"", "Gamma"},
		[2]string{"", "Delta"},
	)
	auth := authority.NewTable()
	doc := &resolution.Document{Resolutions: resolution.Fixes{
		MissingIdentifier: []resolution.MissingFix{
			{Dataset: "sales", Row: 0, Name: "Gamma", Identifier: idC},
			{Dataset: "sales", Row: 1, Name: "Epsilon", Identifier: idB},
			{Dataset: "nowhere", Row: 0, Name: "Zeta", Identifier: idA},
		},
	}}
	out := resolution.Apply(ctx, doc, auth, nil, []*tables.Table{sales})

	assert.Equal(t, idC, sales.Rows[0][0])
	assert.Equal(t, "", sales.Rows[1][0], "mismatched row is not patched")
	assert.True(t, out.Fixed.Has("sales", 0))
	assert.False(t, out.Fixed.Has("sales", 1))

	require.Len(t, out.Rejected, 2)
	assert.Equal(t, issues.KindMissingIdentifier, out.Rejected[0].Kind)
	assert.True(t, errors.IsMismatch(out.Rejected[0].Err))
	assert.True(t, errors.IsNotFound(out.Rejected[1].Err))
	tl.AssertContains(t, "resolution rejected")

	id, ok := auth.ID("Gamma")
	require.True(t, ok)
	assert.Equal(t, idC, id)

	assert.Equal(t, 1, out.Accepted)
	assert.Equal(t, 1, auth.Len(), "rejected fixes leave the authority table alone")
	_, ok = auth.ID("Epsilon")
	assert.False(t, ok)
	_, ok = auth.Name(idA)
	assert.False(t, ok)
}

func TestApplyMissingFixAfterReingest(t *testing.T) {
	// The dataset was re-ingested between passes: the reported row moved.
	sales := table("sales",
		[2]string{"", "Other Co"},
		[2]string{"", "Widgets Co"},
	)
	auth := authority.NewTable()
	auth.Set(idA, "Acme")
	doc := &resolution.Document{Resolutions: resolution.Fixes{
		MissingIdentifier: []resolution.MissingFix{
			{Dataset: "sales", Row: 0, Name: "Widgets Co", Identifier: idB},
		},
	}}

	out := resolution.Apply(context.Background(), doc, auth, nil, []*tables.Table{sales})

	assert.Zero(t, out.Accepted)
	require.Len(t, out.Rejected, 1)
	assert.True(t, errors.IsMismatch(out.Rejected[0].Err))
	assert.Empty(t, out.Patches)
	assert.Empty(t, out.Mutated())
	assert.Empty(t, out.Fixed)

	assert.Equal(t, []authority.Entry{{Identifier: idA, Name: "Acme"}}, auth.Entries())
	assert.Equal(t, [][]string{{"", "Other Co"}, {"", "Widgets Co"}}, sales.Rows)
}

func TestApplyNilDocument(t *testing.T) {
	out := resolution.Apply(context.Background(), nil, authority.NewTable(), nil, nil)
	assert.Zero(t, out.Accepted)
	assert.Empty(t, out.Fixed)
	assert.Empty(t, out.Mutated())
}
