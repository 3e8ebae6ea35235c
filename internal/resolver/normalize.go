package resolver

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// normalize folds case, strips diacritics and collapses whitespace so that
// "Café  Central" and "cafe central" compare equal.
func normalize(s string) []rune {
	// Transformers and Casers carry state and are built per call.
	stripMarks := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(stripMarks, s)
	if err != nil {
		stripped = s
	}
	folded := cases.Fold().String(stripped)
	return []rune(strings.Join(strings.Fields(folded), " "))
}
