package bubbletea

// RenderContent exports renderContent for testing.
func RenderContent(m Model) string {
	return m.renderContent()
}

// SidebarWidth exports sidebarWidth for testing.
func SidebarWidth(total int) int {
	return sidebarWidth(total)
}
