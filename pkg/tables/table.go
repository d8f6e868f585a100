// Package tables defines the in-memory tabular model the reconciliation
// engine works on: dataset handles, string-celled tables, column role
// resolution and the storage interface implemented by the I/O collaborators.
package tables

import (
	"fmt"
	"slices"

	"github.com/agentstation/mastermap/pkg/identifier"
)

// Handle is an opaque reference to one stored dataset.
type Handle struct {
	// ID is the normalized short name, e.g. "单位基本情况_611".
	ID string `json:"id" yaml:"id"`
	// Key is the storage location of the dataset (object key or path).
	Key string `json:"key" yaml:"key"`
}

// String returns the handle ID.
func (h Handle) String() string {
	return h.ID
}

// Record is the identifier/name pair extracted from one row.
type Record struct {
	Identifier string `json:"identifier" yaml:"identifier"`
	Name       string `json:"name" yaml:"name"`
}

// Table is a dataset materialized in memory. All cells are strings so that
// identifier columns never go through numeric conversion.
type Table struct {
	Handle
	Columns []string
	Rows    [][]string
}

// New creates an empty table with the given columns.
func New(h Handle, columns ...string) *Table {
	return &Table{
		Handle:  h,
		Columns: slices.Clone(columns),
	}
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// Append adds a row, padding or truncating it to the column count. Callers
// that must not lose cells check the record length first.
func (t *Table) Append(cells ...string) {
	row := make([]string, len(t.Columns))
	copy(row, cells)
	t.Rows = append(t.Rows, row)
}

// ColumnIndex returns the index of the named column or -1.
func (t *Table) ColumnIndex(name string) int {
	return slices.Index(t.Columns, name)
}

// Cell returns the raw cell at row/col, or "" when out of range.
func (t *Table) Cell(row, col int) string {
	if row < 0 || row >= len(t.Rows) || col < 0 || col >= len(t.Rows[row]) {
		return ""
	}
	return t.Rows[row][col]
}

// SetCell writes value at row/col and reports whether the cell changed.
func (t *Table) SetCell(row, col int, value string) (bool, error) {
	if row < 0 || row >= len(t.Rows) {
		return false, fmt.Errorf("row %d out of range for %s (%d rows)", row, t.ID, len(t.Rows))
	}
	if col < 0 || col >= len(t.Columns) {
		return false, fmt.Errorf("column %d out of range for %s", col, t.ID)
	}
	for len(t.Rows[row]) < len(t.Columns) {
		t.Rows[row] = append(t.Rows[row], "")
	}
	if t.Rows[row][col] == value {
		return false, nil
	}
	t.Rows[row][col] = value
	return true, nil
}

// Record extracts the cleaned identifier/name pair of a row.
func (t *Table) Record(row int, cols Columns) Record {
	return Record{
		Identifier: identifier.Clean(t.Cell(row, cols.Identifier)),
		Name:       identifier.Clean(t.Cell(row, cols.Name)),
	}
}

// Copy returns a deep copy of the table.
func (t *Table) Copy() *Table {
	rows := make([][]string, len(t.Rows))
	for i, r := range t.Rows {
		rows[i] = slices.Clone(r)
	}
	return &Table{
		Handle:  t.Handle,
		Columns: slices.Clone(t.Columns),
		Rows:    rows,
	}
}
