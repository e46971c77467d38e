package bubbletea

import (
	"strings"

	"github.com/fwojciec/converse"
	"github.com/fwojciec/converse/goldmark"
)

var _ MessageBlock = (*AssistantBlock)(nil)

// AssistantBlock renders a reply with markdown formatting. The reply grows
// as paced deltas are flushed into it. Paragraphs before the last blank
// line outside a code fence are rendered once per width and cached; only
// the trailing paragraph is re-rendered as it grows.
type AssistantBlock struct {
	content string
	theme   converse.Theme
	styles  Styles

	finalized        string
	finalizedByWidth map[int]string
}

// NewAssistantBlock creates an empty AssistantBlock.
func NewAssistantBlock(theme converse.Theme, styles Styles) *AssistantBlock {
	return &AssistantBlock{
		theme:            theme,
		styles:           styles,
		finalizedByWidth: make(map[int]string),
	}
}

// SetContent replaces the reply text. Growth keeps the cache; any other
// change drops it.
func (b *AssistantBlock) SetContent(s string) {
	if s == b.content {
		return
	}
	if !strings.HasPrefix(s, b.content) {
		b.finalized = ""
		clear(b.finalizedByWidth)
	}
	b.content = s
	b.promote()
}

// Content returns the reply text.
func (b *AssistantBlock) Content() string { return b.content }

func (b *AssistantBlock) View(width int) string {
	if strings.TrimSpace(b.content) == "" {
		return b.styles.Muted.Render("…")
	}
	head := b.renderFinalized(width)
	tail := goldmark.Render(goldmark.CloseFences(b.trailing()), width, b.theme)
	switch {
	case strings.TrimSpace(tail) == "":
		return head
	case head == "":
		return tail
	default:
		return head + "\n\n" + tail
	}
}

// promote moves the finalized boundary to the last "\n\n" whose prefix has
// no open code fence.
func (b *AssistantBlock) promote() {
	for end := len(b.content); ; {
		i := strings.LastIndex(b.content[:end], "\n\n")
		if i <= len(b.finalized) {
			return
		}
		candidate := b.content[:i]
		if goldmark.CloseFences(candidate) == candidate {
			b.finalized = candidate
			clear(b.finalizedByWidth)
			return
		}
		end = i
	}
}

func (b *AssistantBlock) renderFinalized(width int) string {
	if b.finalized == "" {
		return ""
	}
	if cached, ok := b.finalizedByWidth[width]; ok {
		return cached
	}
	r := goldmark.Render(b.finalized, width, b.theme)
	b.finalizedByWidth[width] = r
	return r
}

func (b *AssistantBlock) trailing() string {
	if b.finalized == "" {
		return b.content
	}
	return strings.TrimLeft(b.content[len(b.finalized):], "\n")
}
