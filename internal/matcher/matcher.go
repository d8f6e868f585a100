// Package matcher selects datasets by name using glob or regex patterns.
package matcher

import (
	"path"
	"regexp"
	"strings"

	"github.com/agentstation/mastermap/pkg/errors"
	"github.com/agentstation/mastermap/pkg/tables"
)

// PatternType represents the type of pattern matching to use.
type PatternType int

const (
	// Glob uses shell-style glob patterns (*, ?, []).
	Glob PatternType = iota
	// Regex uses regular expressions.
	Regex
	// Auto detects the pattern type.
	Auto
	// Exact compares names literally.
	Exact
)

func (pt PatternType) String() string {
	switch pt {
	case Glob:
		return "glob"
	case Regex:
		return "regex"
	case Auto:
		return "auto"
	case Exact:
		return "exact"
	default:
		return "unknown"
	}
}

// Matcher matches one pattern against dataset names.
type Matcher struct {
	pattern     string
	patternType PatternType
	compiled    *regexp.Regexp
}

// New compiles pattern. Auto picks Regex for patterns with regex-only
// syntax, Glob for patterns with wildcards and Exact otherwise.
func New(patternType PatternType, pattern string) (*Matcher, error) {
	if patternType == Auto {
		patternType = detectPatternType(pattern)
	}
	m := &Matcher{pattern: pattern, patternType: patternType}
	switch patternType {
	case Regex:
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, errors.NewValidationError("pattern", pattern, err.Error())
		}
		m.compiled = re
	case Glob:
		if _, err := path.Match(pattern, ""); err != nil {
			return nil, errors.NewValidationError("pattern", pattern, err.Error())
		}
	}
	return m, nil
}

// MustNew is like New but panics on an invalid pattern.
func MustNew(patternType PatternType, pattern string) *Matcher {
	m, err := New(patternType, pattern)
	if err != nil {
		panic(err)
	}
	return m
}

// Match reports whether name matches.
func (m *Matcher) Match(name string) bool {
	switch m.patternType {
	case Regex:
		return m.compiled.MatchString(name)
	case Glob:
		ok, _ := path.Match(m.pattern, name)
		return ok
	default:
		return name == m.pattern
	}
}

// Pattern returns the original pattern string.
func (m *Matcher) Pattern() string { return m.pattern }

// Type returns the resolved pattern type.
func (m *Matcher) Type() PatternType { return m.patternType }

func detectPatternType(pattern string) PatternType {
	if strings.ContainsAny(pattern, "^$+(){}|\\") || strings.Contains(pattern, ".*") {
		return Regex
	}
	if strings.ContainsAny(pattern, "*?[") {
		return Glob
	}
	return Exact
}

// Set matches a name when any of its patterns does. An empty Set matches
// everything.
type Set []*Matcher

// NewSet compiles each pattern with Auto detection.
func NewSet(patterns ...string) (Set, error) {
	set := make(Set, 0, len(patterns))
	for _, p := range patterns {
		m, err := New(Auto, p)
		if err != nil {
			return nil, err
		}
		set = append(set, m)
	}
	return set, nil
}

// Match reports whether any pattern matches name.
func (s Set) Match(name string) bool {
	if len(s) == 0 {
		return true
	}
	for _, m := range s {
		if m.Match(name) {
			return true
		}
	}
	return false
}

// Handles keeps the handles whose dataset id matches.
func (s Set) Handles(handles []tables.Handle) []tables.Handle {
	if len(s) == 0 {
		return handles
	}
	out := make([]tables.Handle, 0, len(handles))
	for _, h := range handles {
		if s.Match(h.ID) {
			out = append(out, h)
		}
	}
	return out
}
