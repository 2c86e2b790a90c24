// Package caption implements C7's caption rendering: a single fixed-shape
// line, which is why this stays plain strings.Builder/fmt.Sprintf glue
// rather than reaching for a template engine.
package caption

import "strings"

// mdSpecialChars is the MarkdownV2 special-character set that must be
// backslash-escaped outside of entity syntax.
const mdSpecialChars = "_*[]()~`>#+-=|{}.!"

// Escape backslash-escapes every MarkdownV2 special character in s.
func Escape(s string) string {
	var b strings.Builder
	for _, r := range s {
		if strings.ContainsRune(mdSpecialChars, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// escapeLinkURL escapes the two characters MarkdownV2 requires inside a
// link's (url) part: backslash and closing parenthesis.
func escapeLinkURL(url string) string {
	var b strings.Builder
	for _, r := range url {
		if r == '\\' || r == ')' {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Link renders a MarkdownV2 inline link. text is assumed already escaped by
// the caller, since callers usually need to escape it jointly with
// surrounding text (e.g. "Original (HostName)").
func Link(url, text string) string {
	return "[" + text + "](" + escapeLinkURL(url) + ")"
}
