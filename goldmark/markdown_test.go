package goldmark_test

import (
	"os"
	"regexp"
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/fwojciec/converse"
	"github.com/fwojciec/converse/goldmark"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ansi = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

func plain(s string) string {
	return ansi.ReplaceAllString(s, "")
}

// trimmed strips styling and the padding lipgloss adds to wrapped lines.
func trimmed(s string) []string {
	lines := strings.Split(plain(s), "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " ")
	}
	return lines
}

func TestMain(m *testing.M) {
	lipgloss.SetColorProfile(termenv.ANSI)
	os.Exit(m.Run())
}

func TestRender_Contains(t *testing.T) {
	t.Parallel()

	theme := converse.DefaultTheme()
	for _, tc := range []struct {
		name string
		src  string
		want []string
	}{
		{"paragraph", "hello world", []string{"hello world"}},
		{"emphasis", "*soft* and **loud** and ***both***", []string{"soft", "loud", "both"}},
		{"strikethrough", "~~old~~ new", []string{"old", "new"}},
		{"inline code", "run `go test`", []string{"go test"}},
		{"link", "[docs](https://example.com/docs)", []string{"docs", "(https://example.com/docs)"}},
		{"autolink", "see https://example.com", []string{"https://example.com"}},
		{"image", "![diagram](https://example.com/d.png)", []string{"[image: diagram]"}},
		{"fenced code keeps language", "```python\nprint('hi')\n```", []string{"python", "│ print('hi')"}},
		{"indented code", "text\n\n    code line", []string{"│ code line"}},
		{"quote", "> cited passage", []string{"┃ cited passage"}},
		{"ordered list starts where told", "3. third\n4. fourth", []string{"3. third", "4. fourth"}},
		{"thematic break", "a\n\n---\n\nb", []string{"─"}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			out := plain(goldmark.Render(tc.src, 80, theme))
			for _, w := range tc.want {
				assert.Contains(t, out, w)
			}
		})
	}
}

func TestRender_Empty(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "", goldmark.Render("", 80, converse.DefaultTheme()))
	assert.Equal(t, "", goldmark.Render(" \n\n", 80, converse.DefaultTheme()))
}

func TestRender_HeadingIsStyled(t *testing.T) {
	t.Parallel()

	theme := converse.DefaultTheme()
	heading := goldmark.Render("# Summary", 80, theme)
	para := goldmark.Render("Summary", 80, theme)
	assert.Equal(t, plain(heading), plain(para))
	assert.NotEqual(t, heading, para)
}

func TestRender_BlocksSeparatedByBlankLine(t *testing.T) {
	t.Parallel()

	lines := trimmed(goldmark.Render("first\n\nsecond", 80, converse.DefaultTheme()))
	assert.Equal(t, []string{"first", "", "second"}, lines)
}

func TestRender_WrapsParagraphs(t *testing.T) {
	t.Parallel()

	src := strings.Repeat("word ", 20)
	lines := trimmed(goldmark.Render(src, 30, converse.DefaultTheme()))
	require.Greater(t, len(lines), 1)
	for _, l := range lines {
		assert.LessOrEqual(t, len(l), 30)
	}
}

func TestRender_CodeIsNotReflowed(t *testing.T) {
	t.Parallel()

	src := "```\n" + strings.Repeat("x", 50) + "\n```"
	out := plain(goldmark.Render(src, 20, converse.DefaultTheme()))
	assert.Contains(t, out, strings.Repeat("x", 50))
}

func TestRender_Lists(t *testing.T) {
	t.Parallel()

	theme := converse.DefaultTheme()

	t.Run("tight", func(t *testing.T) {
		t.Parallel()
		lines := trimmed(goldmark.Render("- one\n- two", 80, theme))
		assert.Equal(t, []string{"• one", "• two"}, lines)
	})

	t.Run("nested", func(t *testing.T) {
		t.Parallel()
		lines := trimmed(goldmark.Render("- outer\n  - inner", 80, theme))
		assert.Equal(t, []string{"• outer", "  • inner"}, lines)
	})

	t.Run("continuation lines are indented", func(t *testing.T) {
		t.Parallel()
		src := "- " + strings.Repeat("long ", 15)
		lines := trimmed(goldmark.Render(src, 30, theme))
		require.Greater(t, len(lines), 1)
		assert.True(t, strings.HasPrefix(lines[0], "• "))
		for _, l := range lines[1:] {
			if l != "" {
				assert.True(t, strings.HasPrefix(l, "  "), "line %q", l)
			}
		}
	})
}

func TestRender_ZeroWidthUsesDefault(t *testing.T) {
	t.Parallel()

	src := strings.Repeat("a ", 30)
	assert.Equal(t,
		goldmark.Render(src, goldmark.DefaultWidth, converse.DefaultTheme()),
		goldmark.Render(src, 0, converse.DefaultTheme()))
}

func TestCloseFences(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "text", goldmark.CloseFences("text"))
	assert.Equal(t, "```go\nx\n```", goldmark.CloseFences("```go\nx"))
	assert.Equal(t, "```\nx\n```", goldmark.CloseFences("```\nx\n```"))
}
