// Package textfilter softens narration text for young audiences.
// The game is played by children, so anything the narrator says goes
// through a replacement pass before reaching the table.
package textfilter

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// replacements maps words we never want in narration to family-safe
// substitutes. Keys are lowercase; FilterText preserves the original
// casing of the matched word.
var replacements = map[string]string{
	"merda":    "droga",
	"porra":    "poxa",
	"caralho":  "caramba",
	"bosta":    "droga",
	"cacete":   "caramba",
	"inferno":  "abismo",
	"maldito":  "terrível",
	"maldita":  "terrível",
	"desgraça": "azar",
	"burro":    "bobo",
	"burra":    "boba",
	"idiota":   "bobo",
	"estúpido": "tolo",
	"estúpida": "tola",
	"matar":    "derrotar",
	"morrer":   "cair",
	"sangue":   "suor",
}

// NarrationFilter rewrites unsafe words in narrator output.
type NarrationFilter struct {
	patterns map[string]*regexp.Regexp
}

// NewNarrationFilter compiles the replacement patterns once.
func NewNarrationFilter() *NarrationFilter {
	f := &NarrationFilter{
		patterns: make(map[string]*regexp.Regexp, len(replacements)),
	}
	for word := range replacements {
		// \b does not understand accented letters, so anchor on
		// non-letter boundaries explicitly.
		f.patterns[word] = regexp.MustCompile(`(?i)(^|[^\p{L}])(` + regexp.QuoteMeta(word) + `)($|[^\p{L}])`)
	}
	return f
}

// FilterText replaces every unsafe word in text, keeping the casing of
// the original word (lowercase, Title, or UPPER).
func (f *NarrationFilter) FilterText(text string) string {
	for word, pattern := range f.patterns {
		replacement := replacements[word]
		text = pattern.ReplaceAllStringFunc(text, func(match string) string {
			sub := pattern.FindStringSubmatch(match)
			return sub[1] + f.preserveCase(sub[2], replacement) + sub[3]
		})
	}
	return text
}

// ContainsUnsafe reports whether text has at least one word the filter
// would rewrite.
func (f *NarrationFilter) ContainsUnsafe(text string) bool {
	for _, pattern := range f.patterns {
		if pattern.MatchString(text) {
			return true
		}
	}
	return false
}

// ShouldFilter reports whether narration for a table with the given
// youngest player age needs filtering. Unknown ages (zero) are treated
// as young players.
func ShouldFilter(youngestAge int) bool {
	return youngestAge < 13
}

func (f *NarrationFilter) preserveCase(original, replacement string) string {
	if original == strings.ToUpper(original) && len(original) > 1 {
		return strings.ToUpper(replacement)
	}
	titleCaser := cases.Title(language.BrazilianPortuguese)
	if titleCaser.String(strings.ToLower(original)) == original {
		return titleCaser.String(replacement)
	}
	return replacement
}
