package issues_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/mastermap/pkg/identifier"
	"github.com/agentstation/mastermap/pkg/issues"
)

func sampleSet() *issues.Set {
	s := issues.NewSet()
	s.Add(issues.MalformedIdentifier{Dataset: "611", Row: 4, Identifier: "9.35E+17", Name: "Acme", Reason: identifier.ReasonScientificNotation})
	s.Add(issues.OneCodeManyNames{Dataset: "601", Row: 1, Identifier: "AAAAAAAAAAAAAAAAAA", ExistingName: "Acme", NewName: "Other"})
	s.Add(issues.MissingIdentifier{Dataset: "sales", Row: 7, Name: "Beta"})
	s.Add(issues.MissingIdentifier{Dataset: "sales", Row: 9, Name: "Gamma"})
	return s
}

func TestSetSummaryAndCritical(t *testing.T) {
	empty := issues.NewSet()
	assert.False(t, empty.Critical())
	assert.Equal(t, issues.Summary{}, empty.Summary())

	var nilSet *issues.Set
	assert.False(t, nilSet.Critical())
	assert.Empty(t, nilSet.All())

	s := sampleSet()
	assert.True(t, s.Critical())
	sum := s.Summary()
	assert.Equal(t, 1, sum.MalformedIdentifier)
	assert.Equal(t, 1, sum.OneCodeManyNames)
	assert.Equal(t, 0, sum.OneNameManyCodes)
	assert.Equal(t, 2, sum.MissingIdentifier)
	assert.Equal(t, 4, sum.Total)
	assert.Equal(t, 2, sum.Count(issues.KindMissingIdentifier))
	assert.Equal(t, "malformed=1 one_to_many_code=1 one_to_many_name=0 missing=2", sum.String())
}

func TestSetMergeAndAll(t *testing.T) {
	a := issues.NewSet()
	a.Add(issues.OneNameManyCodes{Dataset: "611", Row: 2, Name: "Acme", ExistingIdentifier: "X", NewIdentifier: "Y"})
	a.Merge(sampleSet())
	a.Merge(nil)

	all := a.All()
	require.Len(t, all, 5)
	assert.Equal(t, issues.KindMalformedIdentifier, all[0].Kind())
	assert.Equal(t, issues.KindOneNameManyCodes, all[2].Kind())

	ds, row := all[4].Location()
	assert.Equal(t, "sales", ds)
	assert.Equal(t, 9, row)
}

func TestReportJSONShape(t *testing.T) {
	r := issues.NewReport(sampleSet(), 42,
		issues.WithNamespace("census/2023/"),
		issues.WithRunID("run-1"),
		issues.WithIteration(2),
	)
	data, err := r.Marshal()
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "pending_user_action", raw["status"])
	assert.Equal(t, "census/2023/", raw["prefix"])
	assert.EqualValues(t, 42, raw["authority_size"])
	assert.Equal(t, true, raw["critical"])
	assert.Contains(t, raw, "timestamp")

	iss := raw["issues"].(map[string]any)
	for _, k := range issues.Kinds() {
		assert.Contains(t, iss, string(k))
	}
	assert.Len(t, iss["one_to_many_name"], 0)

	summary := raw["summary"].(map[string]any)
	assert.EqualValues(t, 2, summary["missing_identifier_count"])

	instructions := raw["instructions"].(map[string]any)
	assert.Contains(t, instructions, "missing_identifier")
	assert.NotContains(t, instructions, "one_to_many_name")

	parsed, err := issues.ParseReport(data)
	require.NoError(t, err)
	assert.Equal(t, r.Summary, parsed.Summary)
	assert.Equal(t, "Beta", parsed.Issues.MissingIdentifier[0].Name)
}

func TestParseReportRejectsGarbage(t *testing.T) {
	_, err := issues.ParseReport([]byte("{"))
	assert.Error(t, err)
}
