// Package authority builds the authoritative identifier/name mapping from the
// canonical source tables.
//
// The first identifier/name pair seen wins. Later rows that disagree with it
// are reported as issues and never overwrite the mapping.
package authority

import (
	"context"
	"maps"
	"slices"

	"github.com/agentstation/mastermap/pkg/identifier"
	"github.com/agentstation/mastermap/pkg/issues"
	"github.com/agentstation/mastermap/pkg/logging"
	"github.com/agentstation/mastermap/pkg/tables"
)

// Table is the bidirectional identifier/name mapping. Every identifier key is
// a normalized Valid identifier. A Table is not safe for concurrent mutation;
// concurrent reads are fine once it is built.
type Table struct {
	byID   map[string]string
	byName map[string]string
}

// Entry is one identifier/name pair.
type Entry struct {
	Identifier string `json:"identifier" yaml:"identifier"`
	Name       string `json:"name" yaml:"name"`
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{
		byID:   make(map[string]string),
		byName: make(map[string]string),
	}
}

// Name returns the authoritative name for a normalized identifier.
func (t *Table) Name(id string) (string, bool) {
	name, ok := t.byID[id]
	return name, ok
}

// ID returns the authoritative identifier for a name.
func (t *Table) ID(name string) (string, bool) {
	id, ok := t.byName[name]
	return id, ok
}

// Len returns the number of identifiers in the table.
func (t *Table) Len() int {
	return len(t.byID)
}

// Set maps id to name in both directions, replacing whatever either side was
// mapped to before. Stale reverse entries are removed so the two maps stay
// consistent.
func (t *Table) Set(id, name string) {
	if old, ok := t.byID[id]; ok && old != name && t.byName[old] == id {
		delete(t.byName, old)
	}
	if old, ok := t.byName[name]; ok && old != id && t.byID[old] == name {
		delete(t.byID, old)
	}
	t.byID[id] = name
	t.byName[name] = id
}

// Rekey moves the name held by oldID to newID. It returns false when oldID is
// not in the table.
func (t *Table) Rekey(oldID, newID string) bool {
	name, ok := t.byID[oldID]
	if !ok {
		return false
	}
	delete(t.byID, oldID)
	t.Set(newID, name)
	return true
}

// Entries returns every pair sorted by identifier.
func (t *Table) Entries() []Entry {
	ids := slices.Sorted(maps.Keys(t.byID))
	out := make([]Entry, 0, len(ids))
	for _, id := range ids {
		out = append(out, Entry{Identifier: id, Name: t.byID[id]})
	}
	return out
}

// insert applies the first-seen rule and reports the conflicts it hit.
func (t *Table) insert(ds string, row int, id, name string, found *issues.Set) {
	existingName, idKnown := t.byID[id]
	existingID, nameKnown := t.byName[name]

	if idKnown && existingName != name {
		found.Add(issues.OneCodeManyNames{
			Dataset:      ds,
			Row:          row,
			Identifier:   id,
			ExistingName: existingName,
			NewName:      name,
		})
	}
	if nameKnown && existingID != id {
		found.Add(issues.OneNameManyCodes{
			Dataset:            ds,
			Row:                row,
			Name:               name,
			ExistingIdentifier: existingID,
			NewIdentifier:      id,
		})
	}
	if !idKnown {
		t.byID[id] = name
	}
	if !nameKnown {
		t.byName[name] = id
	}
}

// Builder builds authority tables.
type Builder struct {
	roles      tables.Roles
	normalizer *identifier.Normalizer
}

// Option configures a Builder.
type Option func(*Builder)

// WithRoles sets how identifier and name columns are located.
func WithRoles(r tables.Roles) Option {
	return func(b *Builder) { b.roles = r }
}

// WithNormalizer sets the identifier normalizer.
func WithNormalizer(n *identifier.Normalizer) Option {
	return func(b *Builder) {
		if n != nil {
			b.normalizer = n
		}
	}
}

// NewBuilder creates a Builder with default roles and the 18-character rule.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{
		roles:      tables.DefaultRoles(),
		normalizer: identifier.New(0),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build scans the canonical tables in order and returns the authority table
// with the issues found. A canonical table without both columns is skipped.
func (b *Builder) Build(ctx context.Context, canonical []*tables.Table) (*Table, *issues.Set) {
	logger := logging.FromContext(ctx)
	table := NewTable()
	found := issues.NewSet()

	for _, src := range canonical {
		if src == nil {
			continue
		}
		cols, err := b.roles.Resolve(src.Columns)
		if err != nil {
			logger.Warn().Err(err).Str("dataset", src.ID).Msg("skipping canonical table")
			continue
		}

		for row := range src.Rows {
			rec := src.Record(row, cols)
			c := b.normalizer.Classify(rec.Identifier)
			switch {
			case c.IsMalformed():
				mi := issues.MalformedIdentifier{
					Dataset:    src.ID,
					Row:        row,
					Identifier: rec.Identifier,
					Name:       rec.Name,
					Reason:     c.Reason,
				}
				if c.Reason == identifier.ReasonWrongLength {
					mi.Length = c.Length
				}
				found.Add(mi)
			case c.IsMissing() || rec.Name == "":
				continue
			default:
				table.insert(src.ID, row, c.Value, rec.Name, found)
			}
		}
		logger.Debug().
			Str("dataset", src.ID).
			Int("rows", src.Len()).
			Int("authority_size", table.Len()).
			Msg("canonical table scanned")
	}

	logger.Info().
		Int("authority_size", table.Len()).
		Str("issues", found.Summary().String()).
		Msg("authority table built")
	return table, found
}

// Build builds an authority table with default settings.
func Build(ctx context.Context, canonical []*tables.Table, opts ...Option) (*Table, *issues.Set) {
	return NewBuilder(opts...).Build(ctx, canonical)
}
