// Package resolution parses reviewer-supplied fixes for reported issues and
// applies them to the authority table and the datasets they name.
package resolution

import (
	"bytes"
	"encoding/json"

	"github.com/agentstation/utc"
	"github.com/goccy/go-yaml"

	"github.com/agentstation/mastermap/pkg/constants"
	"github.com/agentstation/mastermap/pkg/errors"
)

// Document is the resolution file a reviewer uploads next to the pending report.
type Document struct {
	RunID       string    `json:"run_id,omitempty" yaml:"run_id,omitempty"`
	Reviewer    string    `json:"reviewer,omitempty" yaml:"reviewer,omitempty"`
	SubmittedAt *utc.Time `json:"submitted_at,omitempty" yaml:"submitted_at,omitempty"`
	Resolutions Fixes     `json:"resolutions" yaml:"resolutions"`
}

// Fixes holds one list per issue kind.
type Fixes struct {
	MalformedIdentifier []MalformedFix `json:"malformed_identifier,omitempty" yaml:"malformed_identifier,omitempty"`
	OneCodeManyNames    []CodeFix      `json:"one_to_many_code,omitempty" yaml:"one_to_many_code,omitempty"`
	OneNameManyCodes    []NameFix      `json:"one_to_many_name,omitempty" yaml:"one_to_many_name,omitempty"`
	MissingIdentifier   []MissingFix   `json:"missing_identifier,omitempty" yaml:"missing_identifier,omitempty"`
}

// MalformedFix replaces a malformed identifier with the corrected one.
// Without Dataset and Row every canonical row holding Identifier is patched.
type MalformedFix struct {
	Dataset    string `json:"dataset,omitempty" yaml:"dataset,omitempty"`
	Row        *int   `json:"row_index,omitempty" yaml:"row_index,omitempty"`
	Identifier string `json:"identifier" yaml:"identifier"`
	Fixed      string `json:"fixed_identifier" yaml:"fixed_identifier"`
}

// CodeFix selects the canonical name of an identifier reported with several names.
type CodeFix struct {
	Identifier   string `json:"identifier" yaml:"identifier"`
	SelectedName string `json:"selected_name" yaml:"selected_name"`
}

// NameFix selects the canonical identifier of a name reported with several identifiers.
type NameFix struct {
	Name               string `json:"name" yaml:"name"`
	SelectedIdentifier string `json:"selected_identifier" yaml:"selected_identifier"`
}

// MissingFix supplies the identifier of one reported row.
type MissingFix struct {
	Dataset    string `json:"dataset" yaml:"dataset"`
	Row        int    `json:"row_index" yaml:"row_index"`
	Name       string `json:"name" yaml:"name"`
	Identifier string `json:"identifier" yaml:"identifier"`
}

// Len returns the total number of fixes.
func (f Fixes) Len() int {
	return len(f.MalformedIdentifier) + len(f.OneCodeManyNames) +
		len(f.OneNameManyCodes) + len(f.MissingIdentifier)
}

// Parse decodes a resolution document. JSON objects are decoded as JSON,
// anything else as YAML.
func Parse(data []byte) (*Document, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, errors.NewParseError("json", constants.ResolutionsName, "empty document", nil)
	}

	var doc Document
	if trimmed[0] == '{' {
		if err := json.Unmarshal(trimmed, &doc); err != nil {
			return nil, errors.WrapParse("json", constants.ResolutionsName, err)
		}
	} else {
		if err := yaml.Unmarshal(trimmed, &doc); err != nil {
			return nil, errors.WrapParse("yaml", constants.ResolutionsName, err)
		}
	}
	return &doc, nil
}

// Marshal encodes the document as indented JSON.
func (d *Document) Marshal() ([]byte, error) {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return nil, errors.WrapParse("json", constants.ResolutionsName, err)
	}
	return data, nil
}
