package services

import (
	"html"
	"strings"
)

// Normalize prepares a raw form value for validation and for the outgoing email.
// Entities are decoded first and backslash escapes dropped, then the value is
// trimmed and HTML-escaped, which makes Normalize idempotent.
func Normalize(raw string) string {
	s := html.UnescapeString(raw)
	s = strings.ReplaceAll(s, `\`, "")
	s = strings.TrimSpace(s)
	return html.EscapeString(s)
}

// plainText reverses the HTML escaping applied by Normalize
func plainText(normalized string) string {
	return html.UnescapeString(normalized)
}
