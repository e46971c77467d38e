// Package goldmark renders assistant replies, which arrive as markdown, to
// ANSI-styled terminal text. Parsing is done by goldmark with the GFM
// strikethrough and linkify extensions; styling by lipgloss.
package goldmark

import (
	"strings"

	"github.com/fwojciec/converse"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

// DefaultWidth is used when the caller has no width yet.
const DefaultWidth = 80

// Render parses source and returns styled text wrapped to width. Blocks are
// separated by one blank line. Code blocks are not reflowed.
func Render(source string, width int, theme converse.Theme) string {
	if strings.TrimSpace(source) == "" {
		return ""
	}
	if width <= 0 {
		width = DefaultWidth
	}
	md := goldmark.New(goldmark.WithExtensions(extension.Strikethrough, extension.Linkify))
	src := []byte(source)
	doc := md.Parser().Parse(text.NewReader(src))
	r := newRenderer(theme, src)
	return strings.Join(r.blocks(doc, width), "\n\n")
}

// CloseFences appends a closing fence when s ends inside a fenced code
// block, so a reply that is still streaming renders its code as code.
func CloseFences(s string) string {
	if strings.Count(s, "```")%2 == 1 {
		return s + "\n```"
	}
	return s
}
