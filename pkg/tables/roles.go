package tables

import (
	"strings"

	"github.com/agentstation/mastermap/pkg/constants"
	"github.com/agentstation/mastermap/pkg/errors"
)

// Roles describes how to find the identifier and name columns of a table.
// Exact names are tried first, in order; substring hints are the fallback.
type Roles struct {
	Identifier      []string `json:"identifier" yaml:"identifier" mapstructure:"identifier"`
	IdentifierHints []string `json:"identifier_hints" yaml:"identifier_hints" mapstructure:"identifier_hints"`
	Name            []string `json:"name" yaml:"name" mapstructure:"name"`
	NameHints       []string `json:"name_hints" yaml:"name_hints" mapstructure:"name_hints"`
}

// DefaultRoles returns the column roles used by the census datasets.
func DefaultRoles() Roles {
	return Roles{
		Identifier:      []string{constants.IdentifierColumn},
		IdentifierHints: []string{constants.IdentifierColumn, "社会信用代码"},
		Name:            []string{constants.NameColumn},
		NameHints:       []string{constants.NameColumn, "详细名称"},
	}
}

// Columns holds resolved column indexes.
type Columns struct {
	Identifier int
	Name       int
}

// Resolve finds the identifier and name columns among columns.
func (r Roles) Resolve(columns []string) (Columns, error) {
	cols := Columns{
		Identifier: find(columns, r.Identifier, r.IdentifierHints),
		Name:       find(columns, r.Name, r.NameHints),
	}
	if cols.Identifier < 0 {
		return cols, errors.NewNotFoundError("identifier column", strings.Join(r.Identifier, "|"))
	}
	if cols.Name < 0 {
		return cols, errors.NewNotFoundError("name column", strings.Join(r.Name, "|"))
	}
	return cols, nil
}

// find returns the first exact match, then the first column containing a hint.
func find(columns, exact, hints []string) int {
	for _, want := range exact {
		for i, c := range columns {
			if strings.TrimSpace(c) == want {
				return i
			}
		}
	}
	for _, hint := range hints {
		if hint == "" {
			continue
		}
		for i, c := range columns {
			if strings.Contains(c, hint) {
				return i
			}
		}
	}
	return -1
}
