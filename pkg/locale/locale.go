// Package locale implements the case- and diacritic-insensitive string
// comparison used for character and item matching, so "Élixir" and
// "elixir" resolve to the same entry.
package locale

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Fold returns a canonical lowercase, mark-free form of s.
func Fold(s string) string {
	folded, _, err := transform.String(stripMarks, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(folded)
}

// Equals reports whether a and b are equal ignoring case and diacritics.
func Equals(a, b string) bool {
	return Fold(a) == Fold(b)
}
