// Package sanitize normalizes free-text form input.
//
// Values are stored trimmed and escaped once, at render time, by html/template.
// Input is for the few places that build HTML by hand (mail bodies).
package sanitize

import (
	"html"
	"strings"
)

// Trim removes leading and trailing whitespace.
func Trim(raw string) string {
	return strings.TrimSpace(raw)
}

// Input trims raw and escapes the characters meaningful to HTML
// (<, >, &, ' and ") so the result can be interpolated into markup.
// Applying it twice escapes twice.
func Input(raw string) string {
	return html.EscapeString(Trim(raw))
}
