// Package sanitize provides helpers for making user supplied strings safe to use as filenames.
package sanitize

import (
	"strings"
	"unicode"
)

// Filename drops every rune that is not a letter, number, space, hyphen or underscore.
// The order of the remaining runes is preserved.
func Filename(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	for _, r := range s {
		if isAllowed(r) {
			b.WriteRune(r)
		}
	}

	return b.String()
}

func isAllowed(r rune) bool {
	switch r {
	case ' ', '-', '_':
		return true
	}

	return unicode.IsLetter(r) || unicode.IsNumber(r)
}
