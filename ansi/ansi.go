// Package ansi makes text from the chat service safe to draw in a terminal.
// Replies and titles are untrusted: an embedded escape sequence could move
// the cursor, retitle the window or corrupt the TUI layout.
package ansi

import (
	"strings"

	xansi "github.com/charmbracelet/x/ansi"
)

// Clean strips escape sequences and control characters from s. Tabs and
// newlines survive, CRLF becomes LF and a lone CR is dropped.
func Clean(s string) string {
	if !needsCleaning(s) {
		return s
	}
	s = xansi.Strip(s)
	s = strings.ReplaceAll(s, "\r\n", "\n")

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r == '\t' || r == '\n' || (r > 0x1F && r != 0x7F && (r < 0x80 || r > 0x9F)) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Line cleans s and folds it onto one line, for titles and list cells.
func Line(s string) string {
	return strings.Join(strings.Fields(Clean(s)), " ")
}

func needsCleaning(s string) bool {
	for _, r := range s {
		if r < 0x20 && r != '\t' && r != '\n' || r == 0x7F || r >= 0x80 && r <= 0x9F {
			return true
		}
	}
	return false
}
