// Package quality maps the simplified quality tokens users type to yt-dlp format selectors.
package quality

import (
	"fmt"
	"strings"
)

// see: https://github.com/yt-dlp/yt-dlp#format-selection
const heightSelector = "bestvideo[height<=%s]+bestaudio/best"

// Translate converts a quality token to a format selector.
//
// A token made of decimal digits only is a maximum height in pixels, e.g. "720" becomes
// "bestvideo[height<=720]+bestaudio/best". Any other token is lowercased and passed through
// unchanged ("Best" becomes "best"); yt-dlp decides whether it is valid.
func Translate(token string) string {
	if isDigits(token) {
		return fmt.Sprintf(heightSelector, token)
	}

	return strings.ToLower(token)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}

	for i := range len(s) {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}

	return true
}
