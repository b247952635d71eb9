// Package textnorm provides case- and accent-insensitive text
// canonicalization for keyword matching. Normalized text is only ever
// compared, never displayed.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize returns s lower-cased with all combining diacritical marks
// removed ("Água" -> "agua"). It is total: any input that fails to
// transform is lower-cased as-is.
func Normalize(s string) string {
	// The chained transformer carries internal buffers, so build one per
	// call rather than sharing it across goroutines.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(out)
}

// Contains reports whether the normalized form of s contains the
// normalized form of substr.
func Contains(s, substr string) bool {
	return strings.Contains(Normalize(s), Normalize(substr))
}

// HasPrefix reports whether the normalized form of s starts with the
// normalized form of prefix.
func HasPrefix(s, prefix string) bool {
	return strings.HasPrefix(Normalize(s), Normalize(prefix))
}
