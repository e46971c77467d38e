package converse

// Theme defines semantic color mappings using ANSI color indices (0-15).
// The user's terminal theme determines the actual RGB values, so the app
// automatically matches any color scheme.
type Theme struct {
	UserMsg   int // User message accent
	Assistant int // Assistant message accent
	Error     int // Inline errors
	Muted     int // Status bar, timestamps, placeholders
	Accent    int // Headings, links, active mode
	Selected  int // Selected conversation
}

// DefaultTheme returns the default ANSI color mapping.
func DefaultTheme() Theme {
	return Theme{
		UserMsg:   4,
		Assistant: 2,
		Error:     1,
		Muted:     8,
		Accent:    5,
		Selected:  6,
	}
}
