package asr

import (
	"strings"
	"unicode"
)

// invocationPrefixes are the recognized wake phrases and common recognizer
// mishears for "Edna", longest-match-first isn't required in this list's
// order since Strip always scans for the single longest match itself.
var invocationPrefixes = []string{
	"hey edna",
	"okay edna",
	"ok edna",
	"edna",
	"etna",
	"ewa",
	"ed",
	"ed nah",
	"ed na",
}

// Normalize lowercases text, replaces non-alphanumeric/non-whitespace
// characters with a space, collapses whitespace runs, and trims.
func Normalize(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		r = unicode.ToLower(r)
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// Strip normalizes text and removes the longest matching invocation
// prefix. Returns the remainder (possibly empty) and true if a prefix
// matched; returns false if no invocation prefix was found at all
// (spec.md §4.4).
func Strip(text string) (string, bool) {
	normalized := Normalize(text)

	best := -1
	for _, p := range invocationPrefixes {
		if !strings.HasPrefix(normalized, p) {
			continue
		}
		// Require a word boundary: either the prefix consumes the whole
		// string, or the next rune is a space.
		if len(normalized) > len(p) && normalized[len(p)] != ' ' {
			continue
		}
		if len(p) > best {
			best = len(p)
		}
	}
	if best < 0 {
		return "", false
	}
	return strings.TrimSpace(normalized[best:]), true
}
