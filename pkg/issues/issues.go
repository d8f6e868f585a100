// Package issues defines the data-quality findings raised while building the
// authority table and reconciling datasets, and the report handed to a human
// reviewer when they cannot be resolved automatically.
//
// Issues are values, never errors: every kind is critical because each one
// means the identifier/name mapping is not 1:1 for at least one key.
package issues

import (
	"fmt"

	"github.com/agentstation/mastermap/pkg/identifier"
)

// Kind names an issue category. The values double as report JSON keys.
type Kind string

// Issue kinds.
const (
	KindMalformedIdentifier Kind = "malformed_identifier"
	KindOneCodeManyNames    Kind = "one_to_many_code"
	KindOneNameManyCodes    Kind = "one_to_many_name"
	KindMissingIdentifier   Kind = "missing_identifier"
)

// Kinds lists every kind in report order.
func Kinds() []Kind {
	return []Kind{
		KindMalformedIdentifier,
		KindOneCodeManyNames,
		KindOneNameManyCodes,
		KindMissingIdentifier,
	}
}

// Issue is implemented by the four concrete issue types.
type Issue interface {
	Kind() Kind
	// Location returns the dataset and row the issue was raised on.
	Location() (dataset string, row int)
	String() string
}

// MalformedIdentifier is a canonical row whose identifier cannot be used.
type MalformedIdentifier struct {
	Dataset    string            `json:"dataset" yaml:"dataset"`
	Row        int               `json:"row_index" yaml:"row_index"`
	Identifier string            `json:"identifier" yaml:"identifier"`
	Name       string            `json:"name" yaml:"name"`
	Reason     identifier.Reason `json:"reason" yaml:"reason"`
	Length     int               `json:"length,omitempty" yaml:"length,omitempty"`
}

// Kind implements Issue.
func (i MalformedIdentifier) Kind() Kind { return KindMalformedIdentifier }

// Location implements Issue.
func (i MalformedIdentifier) Location() (string, int) { return i.Dataset, i.Row }

func (i MalformedIdentifier) String() string {
	return fmt.Sprintf("%s#%d: malformed identifier %q (%s) for %q", i.Dataset, i.Row, i.Identifier, i.Reason, i.Name)
}

// OneCodeManyNames is an identifier seen with a second, different name.
// ExistingName stays authoritative.
type OneCodeManyNames struct {
	Dataset      string `json:"dataset" yaml:"dataset"`
	Row          int    `json:"row_index" yaml:"row_index"`
	Identifier   string `json:"identifier" yaml:"identifier"`
	ExistingName string `json:"existing_name" yaml:"existing_name"`
	NewName      string `json:"new_name" yaml:"new_name"`
}

// Kind implements Issue.
func (i OneCodeManyNames) Kind() Kind { return KindOneCodeManyNames }

// Location implements Issue.
func (i OneCodeManyNames) Location() (string, int) { return i.Dataset, i.Row }

func (i OneCodeManyNames) String() string {
	return fmt.Sprintf("%s#%d: identifier %s maps to %q and %q", i.Dataset, i.Row, i.Identifier, i.ExistingName, i.NewName)
}

// OneNameManyCodes is a name seen with a second, different identifier.
// ExistingIdentifier stays authoritative.
type OneNameManyCodes struct {
	Dataset            string `json:"dataset" yaml:"dataset"`
	Row                int    `json:"row_index" yaml:"row_index"`
	Name               string `json:"name" yaml:"name"`
	ExistingIdentifier string `json:"existing_identifier" yaml:"existing_identifier"`
	NewIdentifier      string `json:"new_identifier" yaml:"new_identifier"`
}

// Kind implements Issue.
func (i OneNameManyCodes) Kind() Kind { return KindOneNameManyCodes }

// Location implements Issue.
func (i OneNameManyCodes) Location() (string, int) { return i.Dataset, i.Row }

func (i OneNameManyCodes) String() string {
	return fmt.Sprintf("%s#%d: name %q maps to %s and %s", i.Dataset, i.Row, i.Name, i.ExistingIdentifier, i.NewIdentifier)
}

// MissingIdentifier is a named row that could not be matched to any identifier.
type MissingIdentifier struct {
	Dataset string `json:"dataset" yaml:"dataset"`
	Row     int    `json:"row_index" yaml:"row_index"`
	Name    string `json:"name" yaml:"name"`
}

// Kind implements Issue.
func (i MissingIdentifier) Kind() Kind { return KindMissingIdentifier }

// Location implements Issue.
func (i MissingIdentifier) Location() (string, int) { return i.Dataset, i.Row }

func (i MissingIdentifier) String() string {
	return fmt.Sprintf("%s#%d: no identifier for %q", i.Dataset, i.Row, i.Name)
}
