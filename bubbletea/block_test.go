package bubbletea_test

import (
	"strings"
	"testing"

	"github.com/fwojciec/converse"
	bt "github.com/fwojciec/converse/bubbletea"
	"github.com/stretchr/testify/assert"
)

func TestUserBlock(t *testing.T) {
	t.Parallel()

	b := bt.NewUserBlock("hello there", bt.NewStyles(converse.DefaultTheme()))
	view := b.View(40)
	assert.Contains(t, view, "> ")
	assert.Contains(t, view, "hello there")
}

func TestErrorBlock(t *testing.T) {
	t.Parallel()

	b := bt.NewErrorBlock("failed to load messages", bt.NewStyles(converse.DefaultTheme()))
	assert.Contains(t, b.View(40), "! failed to load messages")
}

func TestAssistantBlock(t *testing.T) {
	t.Parallel()

	theme := converse.DefaultTheme()
	styles := bt.NewStyles(theme)

	t.Run("empty reply shows a placeholder", func(t *testing.T) {
		t.Parallel()
		b := bt.NewAssistantBlock(theme, styles)
		assert.Contains(t, b.View(40), "…")
	})

	t.Run("growing reply renders like the whole text", func(t *testing.T) {
		t.Parallel()
		b := bt.NewAssistantBlock(theme, styles)
		full := "First paragraph.\n\nSecond **bold** one.\n\n- a\n- b"
		for i := 1; i <= len(full); i++ {
			b.SetContent(full[:i])
			_ = b.View(60)
		}

		fresh := bt.NewAssistantBlock(theme, styles)
		fresh.SetContent(full)
		assert.Equal(t, fresh.View(60), b.View(60))
		assert.Equal(t, full, b.Content())
	})

	t.Run("replaced reply drops the cache", func(t *testing.T) {
		t.Parallel()
		b := bt.NewAssistantBlock(theme, styles)
		b.SetContent("Old paragraph.\n\nmore")
		_ = b.View(60)
		b.SetContent("New text")
		view := b.View(60)
		assert.Contains(t, view, "New text")
		assert.NotContains(t, view, "Old paragraph")
	})

	t.Run("open fence renders as code while streaming", func(t *testing.T) {
		t.Parallel()
		b := bt.NewAssistantBlock(theme, styles)
		b.SetContent("Here:\n\n```go\nfmt.Println(1)\n\nfmt.Println(2)")
		view := b.View(60)
		assert.Contains(t, view, "│ fmt.Println(1)")
		assert.Contains(t, view, "│ fmt.Println(2)")
		assert.False(t, strings.Contains(view, "```"))
	})
}

func TestSidebarWidth(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0, bt.SidebarWidth(59))
	assert.Equal(t, 16, bt.SidebarWidth(60))
	assert.Equal(t, 25, bt.SidebarWidth(100))
	assert.Equal(t, 32, bt.SidebarWidth(200))
}
