// Package names provides diacritic-insensitive matching of subject names
// for roster search.
package names

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// RemoveDiacritics removes diacritical marks from a string (e.g., "Jiří" -> "Jiri").
func RemoveDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, s)
	return result
}

// Normalize prepares a name for comparison (lowercase, no diacritics,
// spaces for dashes).
func Normalize(name string) string {
	name = RemoveDiacritics(name)
	name = strings.ToLower(name)
	name = strings.ReplaceAll(name, "-", " ")
	return name
}

// Match reports whether the query matches the name, ignoring case and
// diacritics. An empty query matches everything.
func Match(name, query string) bool {
	if query == "" {
		return true
	}
	return strings.Contains(Normalize(name), Normalize(query))
}
