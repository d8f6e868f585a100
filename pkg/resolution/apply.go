package resolution

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/agentstation/mastermap/pkg/authority"
	"github.com/agentstation/mastermap/pkg/errors"
	"github.com/agentstation/mastermap/pkg/identifier"
	"github.com/agentstation/mastermap/pkg/issues"
	"github.com/agentstation/mastermap/pkg/logging"
	"github.com/agentstation/mastermap/pkg/tables"
)

// Patch is one cell rewritten by a fix.
type Patch struct {
	Dataset string `json:"dataset" yaml:"dataset"`
	Row     int    `json:"row_index" yaml:"row_index"`
	Column  string `json:"column" yaml:"column"`
	Old     string `json:"old" yaml:"old"`
	New     string `json:"new" yaml:"new"`
}

// Rejection is a fix that was not applied.
type Rejection struct {
	Kind    issues.Kind `json:"kind" yaml:"kind"`
	Dataset string      `json:"dataset,omitempty" yaml:"dataset,omitempty"`
	Row     int         `json:"row_index" yaml:"row_index"`
	Err     error       `json:"-" yaml:"-"`
	Reason  string      `json:"reason" yaml:"reason"`
}

// Applied is the outcome of applying a document.
type Applied struct {
	// Fixed holds rows patched by missing-identifier fixes. They are not
	// reported as missing again in the same iteration.
	Fixed tables.RowSet

	// Patches lists every rewritten cell in application order.
	Patches []Patch

	// Rejected lists fixes that violated an invariant or a row guard.
	Rejected []Rejection

	// Accepted counts fixes applied to the authority table.
	Accepted int

	mutated map[string]*tables.Table
}

// Mutated returns the tables with at least one patched cell, sorted by id.
func (a *Applied) Mutated() []*tables.Table {
	ids := slices.Sorted(maps.Keys(a.mutated))
	out := make([]*tables.Table, 0, len(ids))
	for _, id := range ids {
		out = append(out, a.mutated[id])
	}
	return out
}

// Applier applies resolution documents.
type Applier struct {
	roles      tables.Roles
	normalizer *identifier.Normalizer
	onPatch    func(Patch)
}

// Option configures an Applier.
type Option func(*Applier)

// WithRoles sets how identifier and name columns are located.
func WithRoles(r tables.Roles) Option {
	return func(a *Applier) { a.roles = r }
}

// WithNormalizer sets the identifier normalizer.
func WithNormalizer(n *identifier.Normalizer) Option {
	return func(a *Applier) {
		if n != nil {
			a.normalizer = n
		}
	}
}

// WithPatchHandler registers a callback invoked for every rewritten cell.
func WithPatchHandler(fn func(Patch)) Option {
	return func(a *Applier) { a.onPatch = fn }
}

// NewApplier creates an Applier with default roles and the 18-character rule.
func NewApplier(opts ...Option) *Applier {
	a := &Applier{
		roles:      tables.DefaultRoles(),
		normalizer: identifier.New(0),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// target is a table with its resolved columns.
type target struct {
	t    *tables.Table
	cols tables.Columns
}

// run holds the state of one Apply call.
type run struct {
	*Applier
	ctx       context.Context
	table     *authority.Table
	canonical []target
	others    []target
	out       *Applied
}

// Apply applies doc to the authority table, the canonical tables and the
// other datasets. Fixes run grouped by kind (malformed, one-to-many code,
// one-to-many name, then missing). A fix that fails validation is rejected
// and logged without aborting the others.
func (a *Applier) Apply(ctx context.Context, doc *Document, table *authority.Table, canonical, others []*tables.Table) *Applied {
	r := &run{
		Applier: a,
		ctx:     ctx,
		table:   table,
		out: &Applied{
			Fixed:   tables.NewRowSet(),
			mutated: make(map[string]*tables.Table),
		},
	}
	if doc == nil || table == nil {
		return r.out
	}
	r.canonical = r.targets(canonical)
	r.others = r.targets(others)

	fixes := doc.Resolutions
	for _, f := range fixes.MalformedIdentifier {
		r.malformed(f)
	}
	for _, f := range fixes.OneCodeManyNames {
		r.codeNames(f)
	}
	for _, f := range fixes.OneNameManyCodes {
		r.nameCodes(f)
	}
	for _, f := range fixes.MissingIdentifier {
		r.missing(f)
	}

	logging.FromContext(ctx).Info().
		Int("fixes", fixes.Len()).
		Int("accepted", r.out.Accepted).
		Int("rejected", len(r.out.Rejected)).
		Int("patches", len(r.out.Patches)).
		Int("fixed_rows", len(r.out.Fixed)).
		Msg("resolutions applied")
	return r.out
}

// Apply applies doc with default settings.
func Apply(ctx context.Context, doc *Document, table *authority.Table, canonical, others []*tables.Table) *Applied {
	return NewApplier().Apply(ctx, doc, table, canonical, others)
}

func (r *run) targets(ts []*tables.Table) []target {
	out := make([]target, 0, len(ts))
	for _, t := range ts {
		if t == nil {
			continue
		}
		cols, err := r.roles.Resolve(t.Columns)
		if err != nil {
			continue
		}
		out = append(out, target{t: t, cols: cols})
	}
	return out
}

// lookup finds a dataset by id. Other datasets are searched first unless
// preferCanonical is set.
func (r *run) lookup(dataset string, preferCanonical bool) (target, bool) {
	first, second := r.others, r.canonical
	if preferCanonical {
		first, second = second, first
	}
	for _, group := range [][]target{first, second} {
		for _, tg := range group {
			if tg.t.ID == dataset {
				return tg, true
			}
		}
	}
	return target{}, false
}

func (r *run) reject(kind issues.Kind, dataset string, row int, err error) {
	r.out.Rejected = append(r.out.Rejected, Rejection{
		Kind:    kind,
		Dataset: dataset,
		Row:     row,
		Err:     err,
		Reason:  err.Error(),
	})
	logging.FromContext(r.ctx).Warn().
		Err(err).
		Str("kind", string(kind)).
		Str("dataset", dataset).
		Int("row", row).
		Msg("resolution rejected")
}

// valid normalizes an identifier or returns a validation error.
func (r *run) valid(field, raw string) (string, error) {
	c := r.normalizer.Classify(raw)
	if !c.IsValid() {
		return "", errors.NewValidationError(field, raw, "identifier is "+c.String())
	}
	return c.Value, nil
}

func (r *run) set(tg target, row, col int, value string) {
	old := tg.t.Cell(row, col)
	changed, err := tg.t.SetCell(row, col, value)
	if err != nil || !changed {
		return
	}
	p := Patch{Dataset: tg.t.ID, Row: row, Column: tg.t.Columns[col], Old: old, New: value}
	r.out.Patches = append(r.out.Patches, p)
	r.out.mutated[tg.t.ID] = tg.t
	if r.onPatch != nil {
		r.onPatch(p)
	}
}

func (r *run) malformed(f MalformedFix) {
	kind := issues.KindMalformedIdentifier
	row := -1
	if f.Row != nil {
		row = *f.Row
	}
	fixed, err := r.valid("fixed_identifier", f.Fixed)
	if err != nil {
		r.reject(kind, f.Dataset, row, err)
		return
	}
	recorded := identifier.Clean(f.Identifier)

	type hit struct {
		tg  target
		row int
	}
	var hits []hit
	if f.Dataset != "" && f.Row != nil {
		tg, ok := r.lookup(f.Dataset, true)
		if !ok {
			r.reject(kind, f.Dataset, row, errors.NewNotFoundError("dataset", f.Dataset))
			return
		}
		if row < 0 || row >= tg.t.Len() {
			r.reject(kind, f.Dataset, row, errors.NewValidationError("row_index", row, fmt.Sprintf("out of range (%d rows)", tg.t.Len())))
			return
		}
		if actual := identifier.Clean(tg.t.Cell(row, tg.cols.Identifier)); actual != recorded {
			r.reject(kind, f.Dataset, row, errors.NewMismatchError(f.Dataset, row, "identifier", recorded, actual))
			return
		}
		hits = append(hits, hit{tg, row})
	} else {
		for _, tg := range r.canonical {
			for i := range tg.t.Rows {
				if identifier.Clean(tg.t.Cell(i, tg.cols.Identifier)) == recorded {
					hits = append(hits, hit{tg, i})
				}
			}
		}
	}

	var name string
	for _, h := range hits {
		if n := identifier.Clean(h.tg.t.Cell(h.row, h.tg.cols.Name)); n != "" {
			name = n
			break
		}
	}
	if name == "" {
		r.reject(kind, f.Dataset, row, errors.NewNotFoundError("named row with identifier", recorded))
		return
	}

	if old, ok := r.normalizer.Normalize(recorded); !ok || !r.table.Rekey(old, fixed) {
		r.table.Set(fixed, name)
	}
	for _, h := range hits {
		r.set(h.tg, h.row, h.tg.cols.Identifier, fixed)
	}
	r.out.Accepted++
}

func (r *run) codeNames(f CodeFix) {
	kind := issues.KindOneCodeManyNames
	id, err := r.valid("identifier", f.Identifier)
	if err != nil {
		r.reject(kind, "", -1, err)
		return
	}
	name := identifier.Clean(f.SelectedName)
	if name == "" {
		r.reject(kind, "", -1, errors.NewValidationError("selected_name", f.SelectedName, "cannot be empty"))
		return
	}

	r.table.Set(id, name)
	for _, tg := range r.canonical {
		for i := range tg.t.Rows {
			if got, ok := r.normalizer.Normalize(tg.t.Cell(i, tg.cols.Identifier)); ok && got == id {
				r.set(tg, i, tg.cols.Name, name)
			}
		}
	}
	r.out.Accepted++
}

func (r *run) nameCodes(f NameFix) {
	kind := issues.KindOneNameManyCodes
	name := identifier.Clean(f.Name)
	if name == "" {
		r.reject(kind, "", -1, errors.NewValidationError("name", f.Name, "cannot be empty"))
		return
	}
	id, err := r.valid("selected_identifier", f.SelectedIdentifier)
	if err != nil {
		r.reject(kind, "", -1, err)
		return
	}

	r.table.Set(id, name)
	for _, tg := range r.canonical {
		for i := range tg.t.Rows {
			if identifier.Clean(tg.t.Cell(i, tg.cols.Name)) == name {
				r.set(tg, i, tg.cols.Identifier, id)
			}
		}
	}
	r.out.Accepted++
}

func (r *run) missing(f MissingFix) {
	kind := issues.KindMissingIdentifier
	name := identifier.Clean(f.Name)
	id, err := r.valid("identifier", f.Identifier)
	if err != nil {
		r.reject(kind, f.Dataset, f.Row, err)
		return
	}
	if name == "" {
		r.reject(kind, f.Dataset, f.Row, errors.NewValidationError("name", f.Name, "cannot be empty"))
		return
	}

	tg, ok := r.lookup(f.Dataset, false)
	if !ok {
		r.reject(kind, f.Dataset, f.Row, errors.NewNotFoundError("dataset", f.Dataset))
		return
	}
	if f.Row < 0 || f.Row >= tg.t.Len() {
		r.reject(kind, f.Dataset, f.Row, errors.NewValidationError("row_index", f.Row, fmt.Sprintf("out of range (%d rows)", tg.t.Len())))
		return
	}
	if actual := identifier.Clean(tg.t.Cell(f.Row, tg.cols.Name)); actual != name {
		r.reject(kind, f.Dataset, f.Row, errors.NewMismatchError(f.Dataset, f.Row, "name", name, actual))
		return
	}

	r.table.Set(id, name)
	r.out.Accepted++
	r.set(tg, f.Row, tg.cols.Identifier, id)
	r.out.Fixed.Add(tables.RowKey{Dataset: f.Dataset, Row: f.Row})
}
