package output

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/agentstation/mastermap/pkg/identifier"
	"github.com/agentstation/mastermap/pkg/issues"
	"github.com/agentstation/mastermap/pkg/resolution"
	"github.com/agentstation/mastermap/pkg/tables"
)

// HandlesData lists datasets, marking the canonical ones.
func HandlesData(handles []tables.Handle, canonical []string) Data {
	d := Data{
		Headers:         []string{"Dataset", "Canonical", "Key"},
		ColumnAlignment: []Align{AlignLeft, AlignCenter, AlignLeft},
	}
	for _, h := range handles {
		mark := ""
		if slices.Contains(canonical, h.ID) {
			mark = "yes"
		}
		d.Rows = append(d.Rows, []string{h.ID, mark, h.Key})
	}
	return d
}

// IssuesData lists issues one per row. Wide output adds the raw values.
func IssuesData(set *issues.Set, wide bool) Data {
	d := Data{
		Headers:         []string{"Kind", "Dataset", "Row", "Detail"},
		ColumnAlignment: []Align{AlignLeft, AlignLeft, AlignRight, AlignLeft},
	}
	for _, issue := range set.All() {
		dataset, row := issue.Location()
		d.Rows = append(d.Rows, []string{string(issue.Kind()), dataset, strconv.Itoa(row), detail(issue, wide)})
	}
	return d
}

func detail(issue issues.Issue, wide bool) string {
	switch i := issue.(type) {
	case issues.MalformedIdentifier:
		if wide {
			return fmt.Sprintf("%q (%s, length %d) for %q", i.Identifier, i.Reason, i.Length, i.Name)
		}
		return fmt.Sprintf("%q (%s)", i.Identifier, i.Reason)
	case issues.OneCodeManyNames:
		return fmt.Sprintf("%s: %q kept, %q seen", i.Identifier, i.ExistingName, i.NewName)
	case issues.OneNameManyCodes:
		return fmt.Sprintf("%q: %s kept, %s seen", i.Name, i.ExistingIdentifier, i.NewIdentifier)
	case issues.MissingIdentifier:
		return fmt.Sprintf("no identifier for %q", i.Name)
	default:
		return issue.String()
	}
}

// SummaryData renders issue counts per kind.
func SummaryData(s issues.Summary) Data {
	d := Data{
		Headers:         []string{"Kind", "Count"},
		ColumnAlignment: []Align{AlignLeft, AlignRight},
	}
	for _, kind := range issues.Kinds() {
		d.Rows = append(d.Rows, []string{string(kind), strconv.Itoa(s.Count(kind))})
	}
	d.Rows = append(d.Rows, []string{"total", strconv.Itoa(s.Total)})
	return d
}

// RejectionsData lists resolution fixes that were not applied.
func RejectionsData(rejected []resolution.Rejection) Data {
	d := Data{Headers: []string{"Kind", "Dataset", "Row", "Reason"}}
	for _, r := range rejected {
		row := ""
		if r.Row >= 0 {
			row = strconv.Itoa(r.Row)
		}
		d.Rows = append(d.Rows, []string{string(r.Kind), r.Dataset, row, r.Reason})
	}
	return d
}

// Classification is one classified identifier.
type Classification struct {
	Input  string `json:"input" yaml:"input"`
	Status string `json:"status" yaml:"status"`
	Value  string `json:"value,omitempty" yaml:"value,omitempty"`
	Reason string `json:"reason,omitempty" yaml:"reason,omitempty"`
	Length int    `json:"length" yaml:"length"`
}

// NewClassification pairs an input with its classification.
func NewClassification(input string, c identifier.Classification) Classification {
	return Classification{
		Input:  input,
		Status: c.Status.String(),
		Value:  c.Value,
		Reason: string(c.Reason),
		Length: c.Length,
	}
}

// ClassificationsData renders classified identifiers.
func ClassificationsData(cs []Classification) Data {
	d := Data{
		Headers:         []string{"Input", "Status", "Normalized", "Reason", "Length"},
		ColumnAlignment: []Align{AlignLeft, AlignLeft, AlignLeft, AlignLeft, AlignRight},
	}
	for _, c := range cs {
		d.Rows = append(d.Rows, []string{c.Input, c.Status, c.Value, c.Reason, strconv.Itoa(c.Length)})
	}
	return d
}
