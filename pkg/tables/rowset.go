package tables

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// RowKey addresses one row of one dataset.
type RowKey struct {
	Dataset string
	Row     int
}

// String renders the key as dataset#row.
func (k RowKey) String() string {
	return fmt.Sprintf("%s#%d", k.Dataset, k.Row)
}

// RowSet is a set of row keys, used to remember rows fixed by a resolution.
type RowSet map[RowKey]struct{}

// NewRowSet creates a set holding keys.
func NewRowSet(keys ...RowKey) RowSet {
	s := make(RowSet, len(keys))
	for _, k := range keys {
		s.Add(k)
	}
	return s
}

// Add inserts a key.
func (s RowSet) Add(k RowKey) {
	s[k] = struct{}{}
}

// Has reports whether the key is present. A nil set holds nothing.
func (s RowSet) Has(dataset string, row int) bool {
	_, ok := s[RowKey{Dataset: dataset, Row: row}]
	return ok
}

// Union adds every key of other.
func (s RowSet) Union(other RowSet) {
	maps.Copy(s, other)
}

// Keys returns the keys sorted by dataset then row.
func (s RowSet) Keys() []RowKey {
	keys := slices.Collect(maps.Keys(s))
	slices.SortFunc(keys, func(a, b RowKey) int {
		if c := strings.Compare(a.Dataset, b.Dataset); c != 0 {
			return c
		}
		return a.Row - b.Row
	})
	return keys
}
