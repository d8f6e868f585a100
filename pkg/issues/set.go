package issues

import "fmt"

// Set groups issues by kind. The zero value is ready to use; it is not safe
// for concurrent mutation.
type Set struct {
	MalformedIdentifier []MalformedIdentifier `json:"malformed_identifier" yaml:"malformed_identifier"`
	OneCodeManyNames    []OneCodeManyNames    `json:"one_to_many_code" yaml:"one_to_many_code"`
	OneNameManyCodes    []OneNameManyCodes    `json:"one_to_many_name" yaml:"one_to_many_name"`
	MissingIdentifier   []MissingIdentifier   `json:"missing_identifier" yaml:"missing_identifier"`
}

// NewSet returns a set with every list non-nil, so reports encode [] rather than null.
func NewSet() *Set {
	return &Set{
		MalformedIdentifier: []MalformedIdentifier{},
		OneCodeManyNames:    []OneCodeManyNames{},
		OneNameManyCodes:    []OneNameManyCodes{},
		MissingIdentifier:   []MissingIdentifier{},
	}
}

// Add appends an issue to the list for its kind.
func (s *Set) Add(issue Issue) {
	switch v := issue.(type) {
	case MalformedIdentifier:
		s.MalformedIdentifier = append(s.MalformedIdentifier, v)
	case OneCodeManyNames:
		s.OneCodeManyNames = append(s.OneCodeManyNames, v)
	case OneNameManyCodes:
		s.OneNameManyCodes = append(s.OneNameManyCodes, v)
	case MissingIdentifier:
		s.MissingIdentifier = append(s.MissingIdentifier, v)
	default:
		panic(fmt.Sprintf("issues: unknown issue type %T", issue))
	}
}

// Merge appends every issue of other. A nil other is ignored.
func (s *Set) Merge(other *Set) {
	if other == nil {
		return
	}
	s.MalformedIdentifier = append(s.MalformedIdentifier, other.MalformedIdentifier...)
	s.OneCodeManyNames = append(s.OneCodeManyNames, other.OneCodeManyNames...)
	s.OneNameManyCodes = append(s.OneNameManyCodes, other.OneNameManyCodes...)
	s.MissingIdentifier = append(s.MissingIdentifier, other.MissingIdentifier...)
}

// Len returns the total number of issues.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.MalformedIdentifier) + len(s.OneCodeManyNames) +
		len(s.OneNameManyCodes) + len(s.MissingIdentifier)
}

// Critical reports whether any issue exists. Every kind is critical.
func (s *Set) Critical() bool {
	return s.Len() > 0
}

// All returns every issue in report order.
func (s *Set) All() []Issue {
	if s == nil {
		return nil
	}
	all := make([]Issue, 0, s.Len())
	for _, i := range s.MalformedIdentifier {
		all = append(all, i)
	}
	for _, i := range s.OneCodeManyNames {
		all = append(all, i)
	}
	for _, i := range s.OneNameManyCodes {
		all = append(all, i)
	}
	for _, i := range s.MissingIdentifier {
		all = append(all, i)
	}
	return all
}

// Summary counts the issues per kind.
func (s *Set) Summary() Summary {
	if s == nil {
		return Summary{}
	}
	return Summary{
		MalformedIdentifier: len(s.MalformedIdentifier),
		OneCodeManyNames:    len(s.OneCodeManyNames),
		OneNameManyCodes:    len(s.OneNameManyCodes),
		MissingIdentifier:   len(s.MissingIdentifier),
		Total:               s.Len(),
	}
}

// Summary holds per-kind issue counts.
type Summary struct {
	MalformedIdentifier int `json:"malformed_identifier_count" yaml:"malformed_identifier_count"`
	OneCodeManyNames    int `json:"one_to_many_code_count" yaml:"one_to_many_code_count"`
	OneNameManyCodes    int `json:"one_to_many_name_count" yaml:"one_to_many_name_count"`
	MissingIdentifier   int `json:"missing_identifier_count" yaml:"missing_identifier_count"`
	Total               int `json:"total" yaml:"total"`
}

// Count returns the count for one kind.
func (s Summary) Count(kind Kind) int {
	switch kind {
	case KindMalformedIdentifier:
		return s.MalformedIdentifier
	case KindOneCodeManyNames:
		return s.OneCodeManyNames
	case KindOneNameManyCodes:
		return s.OneNameManyCodes
	case KindMissingIdentifier:
		return s.MissingIdentifier
	default:
		return 0
	}
}

// String renders the counts on one line.
func (s Summary) String() string {
	return fmt.Sprintf("malformed=%d one_to_many_code=%d one_to_many_name=%d missing=%d",
		s.MalformedIdentifier, s.OneCodeManyNames, s.OneNameManyCodes, s.MissingIdentifier)
}
