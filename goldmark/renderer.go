package goldmark

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/fwojciec/converse"
	"github.com/yuin/goldmark/ast"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

// minWidth keeps deeply nested content readable on narrow terminals.
const minWidth = 10

type renderer struct {
	src []byte

	heading lipgloss.Style
	bold    lipgloss.Style
	italic  lipgloss.Style
	strike  lipgloss.Style
	code    lipgloss.Style
	link    lipgloss.Style
	muted   lipgloss.Style
}

func newRenderer(theme converse.Theme, src []byte) *renderer {
	return &renderer{
		src:     src,
		heading: lipgloss.NewStyle().Foreground(color(theme.Accent)).Bold(true),
		bold:    lipgloss.NewStyle().Bold(true),
		italic:  lipgloss.NewStyle().Italic(true),
		strike:  lipgloss.NewStyle().Strikethrough(true),
		code:    lipgloss.NewStyle().Foreground(color(theme.Accent)),
		link:    lipgloss.NewStyle().Underline(true),
		muted:   lipgloss.NewStyle().Foreground(color(theme.Muted)).Faint(true),
	}
}

func color(index int) lipgloss.TerminalColor {
	if index < 0 {
		return lipgloss.NoColor{}
	}
	return lipgloss.Color(strconv.Itoa(index))
}

// blocks renders the block children of n, one string per block.
func (r *renderer) blocks(n ast.Node, width int) []string {
	var out []string
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if s := r.block(c, width); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func (r *renderer) block(n ast.Node, width int) string {
	switch n := n.(type) {
	case *ast.Paragraph, *ast.TextBlock:
		return r.wrap(r.inline(n), width)
	case *ast.Heading:
		return r.wrap(r.heading.Render(r.inline(n)), width)
	case *ast.FencedCodeBlock:
		return r.codeBlock(string(n.Language(r.src)), n.Lines())
	case *ast.CodeBlock:
		return r.codeBlock("", n.Lines())
	case *ast.Blockquote:
		return r.prefixed(strings.Join(r.blocks(n, max(width-2, minWidth)), "\n\n"), r.muted.Render("┃")+" ")
	case *ast.List:
		return r.list(n, width)
	case *ast.ThematicBreak:
		return r.muted.Render(strings.Repeat("─", min(width, 40)))
	case *ast.HTMLBlock:
		return strings.TrimRight(r.lines(n.Lines()), "\n")
	default:
		return strings.Join(r.blocks(n, width), "\n\n")
	}
}

func (r *renderer) wrap(s string, width int) string {
	return lipgloss.NewStyle().Width(width).Render(s)
}

func (r *renderer) lines(segs *text.Segments) string {
	var sb strings.Builder
	for i := 0; i < segs.Len(); i++ {
		seg := segs.At(i)
		sb.Write(seg.Value(r.src))
	}
	return sb.String()
}

func (r *renderer) codeBlock(lang string, segs *text.Segments) string {
	var sb strings.Builder
	if lang != "" {
		sb.WriteString(r.muted.Render(lang))
		sb.WriteByte('\n')
	}
	body := strings.TrimRight(r.lines(segs), "\n")
	sb.WriteString(r.prefixed(body, r.muted.Render("│")+" "))
	return sb.String()
}

// prefixed puts prefix in front of every line of s.
func (r *renderer) prefixed(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n")
}

func (r *renderer) list(n *ast.List, width int) string {
	var items []string
	num := n.Start
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		marker := "• "
		if n.IsOrdered() {
			marker = fmt.Sprintf("%d. ", num)
			num++
		}
		pad := strings.Repeat(" ", lipgloss.Width(marker))
		body := strings.Join(r.blocks(c, max(width-len(pad), minWidth)), r.itemGap(n))
		lines := strings.Split(body, "\n")
		for i := range lines {
			if i == 0 {
				lines[i] = marker + lines[i]
			} else if lines[i] != "" {
				lines[i] = pad + lines[i]
			}
		}
		items = append(items, strings.Join(lines, "\n"))
	}
	return strings.Join(items, r.itemGap(n))
}

// itemGap separates items and the blocks inside an item: nothing extra in a
// tight list, a blank line in a loose one.
func (r *renderer) itemGap(n *ast.List) string {
	if n.IsTight {
		return "\n"
	}
	return "\n\n"
}

func (r *renderer) inline(n ast.Node) string {
	var sb strings.Builder
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		r.writeInline(&sb, c)
	}
	return sb.String()
}

func (r *renderer) writeInline(sb *strings.Builder, n ast.Node) {
	switch n := n.(type) {
	case *ast.Text:
		sb.Write(n.Segment.Value(r.src))
		switch {
		case n.HardLineBreak():
			sb.WriteByte('\n')
		case n.SoftLineBreak():
			sb.WriteByte(' ')
		}
	case *ast.String:
		sb.Write(n.Value)
	case *ast.Emphasis:
		if n.Level == 1 {
			sb.WriteString(r.italic.Render(r.inline(n)))
		} else {
			sb.WriteString(r.bold.Render(r.inline(n)))
		}
	case *east.Strikethrough:
		sb.WriteString(r.strike.Render(r.inline(n)))
	case *ast.CodeSpan:
		sb.WriteString(r.code.Render(r.inline(n)))
	case *ast.Link:
		label := r.inline(n)
		dest := string(n.Destination)
		sb.WriteString(r.link.Render(label))
		if label != dest {
			sb.WriteString(" " + r.muted.Render("("+dest+")"))
		}
	case *ast.AutoLink:
		sb.WriteString(r.link.Render(string(n.URL(r.src))))
	case *ast.Image:
		sb.WriteString(r.muted.Render("[image: " + r.inline(n) + "]"))
	case *ast.RawHTML:
		for i := 0; i < n.Segments.Len(); i++ {
			seg := n.Segments.At(i)
			sb.Write(seg.Value(r.src))
		}
	default:
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			r.writeInline(sb, c)
		}
	}
}
