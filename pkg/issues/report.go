package issues

import (
	"encoding/json"

	"github.com/agentstation/utc"

	"github.com/agentstation/mastermap/pkg/constants"
	"github.com/agentstation/mastermap/pkg/errors"
)

// Report is the pending-review document written to the blob store when a
// run cannot converge without human input.
type Report struct {
	Timestamp     utc.Time          `json:"timestamp" yaml:"timestamp"`
	Namespace     string            `json:"prefix" yaml:"prefix"`
	RunID         string            `json:"run_id" yaml:"run_id"`
	Status        string            `json:"status" yaml:"status"`
	Iteration     int               `json:"iteration" yaml:"iteration"`
	Critical      bool              `json:"critical" yaml:"critical"`
	Issues        *Set              `json:"issues" yaml:"issues"`
	AuthoritySize int               `json:"authority_size" yaml:"authority_size"`
	Summary       Summary           `json:"summary" yaml:"summary"`
	Instructions  map[string]string `json:"instructions,omitempty" yaml:"instructions,omitempty"`
}

// ReportOption configures a Report.
type ReportOption func(*Report)

// WithNamespace records the run namespace (blob prefix).
func WithNamespace(ns string) ReportOption {
	return func(r *Report) { r.Namespace = ns }
}

// WithRunID records the run identifier.
func WithRunID(id string) ReportOption {
	return func(r *Report) { r.RunID = id }
}

// WithIteration records the iteration that produced the report.
func WithIteration(n int) ReportOption {
	return func(r *Report) { r.Iteration = n }
}

// WithTimestamp overrides the report time.
func WithTimestamp(ts utc.Time) ReportOption {
	return func(r *Report) { r.Timestamp = ts }
}

// NewReport builds a report over set for an authority table of the given size.
func NewReport(set *Set, authoritySize int, opts ...ReportOption) *Report {
	if set == nil {
		set = NewSet()
	}
	r := &Report{
		Timestamp:     utc.Now(),
		Status:        constants.ReportStatusPending,
		Critical:      set.Critical(),
		Issues:        set,
		AuthoritySize: authoritySize,
		Summary:       set.Summary(),
		Instructions:  instructions(set.Summary()),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// instructions explains, per kind present, what the reviewer has to supply.
func instructions(s Summary) map[string]string {
	out := map[string]string{}
	if s.Total == 0 {
		return out
	}
	out["action_required"] = "fix the issues below, upload " + constants.ResolutionsName + ", then run again"
	if s.MalformedIdentifier > 0 {
		out[string(KindMalformedIdentifier)] = "supply the original 18-character identifier; values mangled into scientific notation cannot be recovered automatically"
	}
	if s.OneCodeManyNames > 0 {
		out[string(KindOneCodeManyNames)] = "select the single canonical name for each identifier"
	}
	if s.OneNameManyCodes > 0 {
		out[string(KindOneNameManyCodes)] = "select the single canonical identifier for each name"
	}
	if s.MissingIdentifier > 0 {
		out[string(KindMissingIdentifier)] = "supply the identifier for each named row"
	}
	return out
}

// Marshal encodes the report as indented JSON. Non-ASCII names are kept verbatim.
func (r *Report) Marshal() ([]byte, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, errors.WrapParse("json", constants.PendingReportName, err)
	}
	return data, nil
}

// ParseReport decodes a report produced by Marshal.
func ParseReport(data []byte) (*Report, error) {
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, errors.WrapParse("json", constants.PendingReportName, err)
	}
	if r.Issues == nil {
		r.Issues = NewSet()
	}
	return &r, nil
}
