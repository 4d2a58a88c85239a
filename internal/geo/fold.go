package geo

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fold normalizes a place label for comparison: trims surrounding
// whitespace, strips diacritics, and lowercases. "São Paulo", "sao paulo"
// and " SAO PAULO " all fold to "sao paulo".
//
// Folding is limited to case and diacritics. Abbreviation variants
// ("Vila Nova" vs "V. Nova") are deliberately treated as different labels.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, s)
	if err != nil {
		// Fall back to the raw string; case folding still applies.
		stripped = s
	}
	return strings.ToLower(strings.TrimSpace(stripped))
}

// SameLabel reports whether two place labels denote the same place under
// folding. Empty labels never match anything, including each other.
func SameLabel(a, b string) bool {
	fa, fb := Fold(a), Fold(b)
	if fa == "" || fb == "" {
		return false
	}
	return fa == fb
}
