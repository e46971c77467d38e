package bubbletea

import (
	"strings"

	"github.com/fwojciec/converse"
	"github.com/fwojciec/converse/ansi"
	"github.com/mattn/go-runewidth"
)

// Sidebar bounds, in cells. Terminals narrower than minTotalWidth get no
// sidebar.
const (
	minSidebarWidth = 16
	maxSidebarWidth = 32
	minTotalWidth   = 60
)

func sidebarWidth(total int) int {
	if total < minTotalWidth {
		return 0
	}
	return min(max(total/4, minSidebarWidth), maxSidebarWidth)
}

// renderSidebar lists the conversations, marking the selected one. Titles
// are truncated by display width so wide characters never overflow.
func renderSidebar(v converse.View, width, height int, s Styles) string {
	lines := []string{s.Accent.Render("Conversations"), ""}
	switch {
	case v.Err != "":
		lines = append(lines, s.Error.Render(runewidth.Truncate(ansi.Line(v.Err), width, "…")))
	case v.LoadingConversations && len(v.Conversations) == 0:
		lines = append(lines, s.Muted.Render("Loading…"))
	case len(v.Conversations) == 0:
		lines = append(lines, s.Muted.Render("None yet"))
	}
	for _, c := range v.Conversations {
		title := runewidth.Truncate(ansi.Line(c.Title), width-2, "…")
		if c.ID == v.ConversationID {
			lines = append(lines, s.Selected.Render("▸ "+title))
		} else {
			lines = append(lines, "  "+title)
		}
	}
	if len(lines) > height {
		lines = lines[:height]
	}
	return s.Sidebar.Width(width).Height(height).Render(strings.Join(lines, "\n"))
}
