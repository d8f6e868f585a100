// Package identifier classifies raw identifier strings (unified social credit
// codes) as valid, malformed or missing. It is the only place where identifier
// format rules live; every other package calls Classify instead of pattern
// matching on its own.
package identifier

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/width"

	"github.com/agentstation/mastermap/pkg/constants"
)

// Status is the outcome of classifying a raw identifier.
type Status int

const (
	// Missing means the value is empty or a null sentinel.
	Missing Status = iota
	// Valid means the value normalizes to a well-formed identifier.
	Valid
	// Malformed means the value is present but unusable.
	Malformed
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case Valid:
		return "valid"
	case Malformed:
		return "malformed"
	default:
		return "missing"
	}
}

// Reason explains why an identifier is malformed.
type Reason string

// Malformed reasons.
const (
	ReasonNone               Reason = ""
	ReasonScientificNotation Reason = constants.ScientificNotationReason
	ReasonInvalidFormat      Reason = constants.InvalidFormatReason
	ReasonWrongLength        Reason = constants.WrongLengthReason
)

// Classification is the result of Classify.
type Classification struct {
	Status Status
	// Value is the normalized identifier; set only when Status is Valid.
	Value string
	// Reason is set only when Status is Malformed.
	Reason Reason
	// Length is the alphanumeric length for ReasonWrongLength, else the cleaned length.
	Length int
}

// IsValid reports whether the classification is Valid.
func (c Classification) IsValid() bool { return c.Status == Valid }

// IsMissing reports whether the classification is Missing.
func (c Classification) IsMissing() bool { return c.Status == Missing }

// IsMalformed reports whether the classification is Malformed.
func (c Classification) IsMalformed() bool { return c.Status == Malformed }

// String renders the classification for logs and the CLI.
func (c Classification) String() string {
	switch c.Status {
	case Valid:
		return "valid(" + c.Value + ")"
	case Malformed:
		if c.Reason == ReasonWrongLength {
			return fmt.Sprintf("malformed(%s, %d)", c.Reason, c.Length)
		}
		return "malformed(" + string(c.Reason) + ")"
	default:
		return "missing"
	}
}

var (
	// digits "." digits "E" ["+"] digits, e.g. 9.35134E+17
	scientificPattern = regexp.MustCompile(`^\d+\.\d+E\+?\d+$`)
	// an exponent-like token in a value that also carries a decimal point, e.g. 9.5M9234245
	exponentToken = regexp.MustCompile(`[EM]\+?`)
	nonAlnum      = regexp.MustCompile(`[^0-9A-Z]`)

	upper = cases.Upper(language.Und)

	nullSentinels = map[string]struct{}{
		"":     {},
		"nan":  {},
		"none": {},
		"null": {},
		"n/a":  {},
	}
)

// IsNull reports whether s is empty, whitespace-only or a null sentinel
// such as "nan", "None", "NULL" or "N/A".
func IsNull(s string) bool {
	_, ok := nullSentinels[strings.ToLower(strings.TrimSpace(s))]
	return ok
}

// Clean trims s and folds null sentinels to the empty string.
func Clean(s string) string {
	if IsNull(s) {
		return ""
	}
	return strings.TrimSpace(s)
}

// Normalizer classifies identifiers against a fixed length.
type Normalizer struct {
	length int
}

// New returns a Normalizer for identifiers of the given length.
// A non-positive length selects constants.IdentifierLength.
func New(length int) *Normalizer {
	if length <= 0 {
		length = constants.IdentifierLength
	}
	return &Normalizer{length: length}
}

// Length returns the identifier length enforced by the normalizer.
func (n *Normalizer) Length() int {
	return n.length
}

var defaultNormalizer = New(constants.IdentifierLength)

// Classify classifies raw with the default 18-character rule.
func Classify(raw string) Classification {
	return defaultNormalizer.Classify(raw)
}

// Classify classifies raw as Valid, Malformed or Missing.
func (n *Normalizer) Classify(raw string) Classification {
	if IsNull(raw) {
		return Classification{Status: Missing}
	}

	cleaned := fold(strings.TrimSpace(raw))

	// Numeric reformatting corruption is unrecoverable and must never be auto-fixed.
	if scientificPattern.MatchString(cleaned) ||
		(strings.Contains(cleaned, ".") && exponentToken.MatchString(cleaned)) {
		return Classification{
			Status: Malformed,
			Reason: ReasonScientificNotation,
			Length: len(cleaned),
		}
	}

	body := nonAlnum.ReplaceAllString(cleaned, "")
	if body == "" {
		return Classification{
			Status: Malformed,
			Reason: ReasonInvalidFormat,
			Length: len(cleaned),
		}
	}
	if len(body) != n.length {
		return Classification{
			Status: Malformed,
			Reason: ReasonWrongLength,
			Length: len(body),
		}
	}

	return Classification{Status: Valid, Value: body, Length: len(body)}
}

// Normalize returns the normalized identifier and true when raw is valid.
func (n *Normalizer) Normalize(raw string) (string, bool) {
	c := n.Classify(raw)
	return c.Value, c.IsValid()
}

// fold narrows full-width characters, drops separators and upper-cases.
func fold(s string) string {
	s = width.Narrow.String(s)
	s = strings.NewReplacer("-", "", " ", "", "　", "").Replace(s)
	return upper.String(s)
}
