// Package labels turns free-form text into Code 11 label tokens.
package labels

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// dashes lists hyphen look-alikes that NFKC leaves untouched.
var dashes = strings.NewReplacer(
	"‐", "-", // hyphen
	"‑", "-", // non-breaking hyphen
	"‒", "-", // figure dash
	"–", "-", // en dash
	"−", "-", // minus sign
)

// Normalize canonicalizes a single token. Full-width digits and the
// full-width solidus fold to ASCII through NFKC, dash variants become "-",
// and the sentinel is matched case-insensitively.
func Normalize(token string) string {
	t := norm.NFKC.String(token)
	t = dashes.Replace(t)
	t = strings.TrimSpace(t)
	if strings.EqualFold(t, "s/s") {
		return "S/S"
	}
	return t
}

// Split tokenizes s on commas and whitespace and normalizes each token.
// Empty tokens are dropped. "S/S, 1, 2" and "S/S 1 2" give the same result.
func Split(s string) []string {
	s = norm.NFKC.String(s)
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ';' || unicode.IsSpace(r)
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if t := Normalize(f); t != "" {
			out = append(out, t)
		}
	}
	return out
}
