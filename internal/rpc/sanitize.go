package rpc

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/text/unicode/norm"
)

var blockedSchemes = []string{"javascript:", "vbscript:", "data:"}

// Sanitizer cleans parameter values before they reach business objects.
// Strings have markup stripped and escaped; a leading script capable URL
// scheme is removed.
type Sanitizer struct {
	policy *bluemonday.Policy
}

// NewSanitizer returns a Sanitizer using a strict (text only) policy.
func NewSanitizer() *Sanitizer {
	return &Sanitizer{policy: bluemonday.StrictPolicy()}
}

// Value sanitizes v recursively. Maps and slices are rebuilt, other scalars
// are returned unchanged.
func (s *Sanitizer) Value(v any) any {
	switch t := v.(type) {
	case string:
		return s.String(t)
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = s.Value(item)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = s.Value(item)
		}
		return out
	default:
		return v
	}
}

// String sanitizes a single string.
func (s *Sanitizer) String(v string) string {
	if v == "" {
		return v
	}
	v = stripSchemes(v)
	if !strings.ContainsAny(v, "<>&\"'") {
		return v
	}
	return s.policy.Sanitize(v)
}

// stripSchemes removes leading script capable schemes, repeatedly, so the
// value can no longer be followed as a link. Text after the scheme is kept.
func stripSchemes(v string) string {
	for {
		end := schemeEnd(v)
		if end < 0 {
			return v
		}
		v = strings.TrimLeftFunc(v[end:], unicode.IsSpace)
	}
}

// schemeEnd returns the byte offset just past a blocked scheme at the start
// of v, or -1. Matching folds compatibility forms and skips whitespace and
// control characters so "java\tscript:" and full-width variants are caught.
func schemeEnd(v string) int {
	var folded strings.Builder
	for i := 0; i < len(v); {
		r, size := utf8.DecodeRuneInString(v[i:])
		i += size
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			continue
		}
		folded.WriteString(strings.ToLower(norm.NFKC.String(string(r))))
		prefix := folded.String()
		candidate := false
		for _, scheme := range blockedSchemes {
			if prefix == scheme {
				return i
			}
			if strings.HasPrefix(scheme, prefix) {
				candidate = true
			}
		}
		if !candidate {
			return -1
		}
	}
	return -1
}
