// Package validate rejects malformed or unsafe query payloads before they
// reach the external processor.
package validate

import (
	"strings"
	"unicode/utf8"

	dErrors "analytics-gateway/pkg/domain-errors"
)

// MaxQueryLength is the maximum accepted query length in characters, not
// bytes.
const MaxQueryLength = 1000

// Reason identifies why a query was rejected. All reasons map to the same
// HTTP status; they exist for diagnostics and metrics.
type Reason string

const (
	ReasonEmpty   Reason = "empty"
	ReasonTooLong Reason = "too_long"
	ReasonPattern Reason = "pattern"
)

// denylist holds lowercase substrings denoting code-injection or
// shell-execution intent. This is a fixed compatibility set, not a security
// boundary: it blocks known bad substrings and nothing more, so downstream
// processing must not treat validated text as safe.
var denylist = []string{
	"javascript:",
	"<script",
	"eval(",
	"exec(",
	"import(",
	"__import__",
	"subprocess",
	"os.system",
	"shell=true",
}

// Outcome is the result of validating a query.
type Outcome struct {
	// Query is the trimmed canonical text, set only when valid.
	Query  string
	Reason Reason
	valid  bool
}

// Valid reports whether the query passed.
func (o Outcome) Valid() bool {
	return o.valid
}

// Err converts a failed outcome into a domain error. Valid outcomes return
// nil.
func (o Outcome) Err() error {
	if o.valid {
		return nil
	}
	switch o.Reason {
	case ReasonEmpty:
		return dErrors.New(dErrors.CodeValidation, "query must not be empty")
	case ReasonTooLong:
		return dErrors.New(dErrors.CodeValidation, "query exceeds maximum length of 1000 characters")
	default:
		return dErrors.New(dErrors.CodeValidation, "query contains a disallowed pattern")
	}
}

// Validator checks query text. It is an interface so a stricter
// implementation (allowlist, structured parser) can replace the denylist
// without touching the pipeline contract.
type Validator interface {
	Validate(text string) Outcome
}

// Denylist is the substring-scanning Validator. Stateless and safe for
// concurrent use.
type Denylist struct{}

// NewDenylist creates the default query validator.
func NewDenylist() *Denylist {
	return &Denylist{}
}

// Validate applies the rules in order, short-circuiting on the first
// failure: trimmed-empty, over-length (character count), then a
// lowercase-normalized denylist scan. Passing queries return the trimmed
// text as the canonical value.
func (d *Denylist) Validate(text string) Outcome {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Outcome{Reason: ReasonEmpty}
	}

	if utf8.RuneCountInString(trimmed) > MaxQueryLength {
		return Outcome{Reason: ReasonTooLong}
	}

	lowered := strings.ToLower(trimmed)
	for _, pattern := range denylist {
		if strings.Contains(lowered, pattern) {
			return Outcome{Reason: ReasonPattern}
		}
	}

	return Outcome{Query: trimmed, valid: true}
}
