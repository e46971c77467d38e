package converse

import "fmt"

// Mode selects the backend pipeline that answers a message.
type Mode string

const (
	ModePlain Mode = "normal"
	ModeRAG   Mode = "rag"
	ModeAgent Mode = "agent"
)

var modes = []Mode{ModePlain, ModeRAG, ModeAgent}

// Modes returns all modes in selector order.
func Modes() []Mode {
	return append([]Mode(nil), modes...)
}

// ParseMode converts a string to a Mode. The empty string yields ModePlain.
func ParseMode(s string) (Mode, error) {
	if s == "" || s == "plain" {
		return ModePlain, nil
	}
	m := Mode(s)
	if !m.Valid() {
		return "", fmt.Errorf("unknown mode %q: %w", s, ErrValidation)
	}
	return m, nil
}

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	for _, v := range modes {
		if m == v {
			return true
		}
	}
	return false
}

// Next returns the mode after m, wrapping around.
func (m Mode) Next() Mode {
	for i, v := range modes {
		if m == v {
			return modes[(i+1)%len(modes)]
		}
	}
	return ModePlain
}

// Label returns a short human-readable name.
func (m Mode) Label() string {
	switch m {
	case ModeRAG:
		return "RAG"
	case ModeAgent:
		return "Agent"
	default:
		return "Chat"
	}
}
