package bubbletea

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/fwojciec/converse"
	"github.com/fwojciec/converse/ansi"
)

var _ tea.Model = Model{}

// newCommand is the input prefix that creates a conversation.
const newCommand = "/new"

// Model is the Bubble Tea model of the chat screen.
type Model struct {
	// Input is the text input component. Exported for test access.
	Input textinput.Model
	// Viewport is the scrollable message pane. Exported for test access.
	Viewport viewport.Model

	spinner spinner.Model
	chat    *converse.Chat
	queue   *converse.Queue
	theme   converse.Theme
	styles  Styles

	state      converse.View
	blocks     []MessageBlock
	assistants map[converse.MessageID]*AssistantBlock

	err    error
	width  int
	height int
	ready  bool
}

// New creates a Model for chat. queue must be the chat's Dispatcher.
func New(chat *converse.Chat, queue *converse.Queue, theme converse.Theme) Model {
	ti := textinput.New()
	ti.Placeholder = "Type a message, or /new TITLE..."
	ti.Prompt = "> "
	ti.Focus()
	ti.CharLimit = 0

	styles := NewStyles(theme)
	return Model{
		Input:      ti,
		spinner:    spinner.New(spinner.WithSpinner(spinner.MiniDot), spinner.WithStyle(styles.Accent)),
		chat:       chat,
		queue:      queue,
		theme:      theme,
		styles:     styles,
		state:      chat.View(),
		assistants: make(map[converse.MessageID]*AssistantBlock),
	}
}

// State returns the chat state the model last rendered.
func (m Model) State() converse.View { return m.state }

// Err returns the last rejected action, if any.
func (m Model) Err() error { return m.err }

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		m.spinner.Tick,
		Listen(m.queue),
		func() tea.Msg { return ReloadMsg{} },
	)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.resize(msg), nil

	case WorkMsg:
		if msg.Fn != nil {
			msg.Fn()
		}
		return m.sync(), Listen(m.queue)

	case ReloadMsg:
		m.chat.LoadConversations()
		return m.sync(), nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.Viewport, cmd = m.Viewport.Update(msg)
	cmds = append(cmds, cmd)
	m.Input, cmd = m.Input.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}
	main := strings.Join([]string{
		m.modeLine(),
		m.Viewport.View(),
		m.statusLine(),
		m.Input.View(),
	}, "\n")
	if w := sidebarWidth(m.width); w > 0 {
		return lipgloss.JoinHorizontal(lipgloss.Top, renderSidebar(m.state, w, m.height, m.styles), main)
	}
	return main
}

func (m Model) resize(msg tea.WindowSizeMsg) Model {
	m.width, m.height = msg.Width, msg.Height
	mainWidth := msg.Width
	if w := sidebarWidth(msg.Width); w > 0 {
		mainWidth -= w + 1 // border
	}
	// Mode line, status line and input line.
	vpHeight := max(msg.Height-3, 1)

	if !m.ready {
		m.Viewport = viewport.New(mainWidth, vpHeight)
		m.ready = true
	} else {
		m.Viewport.Width = mainWidth
		m.Viewport.Height = vpHeight
	}
	m.Input.Width = max(mainWidth-lipgloss.Width(m.Input.Prompt)-1, 1)
	m.Viewport.SetContent(m.renderContent())
	m.Viewport.GotoBottom()
	return m
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		if m.state.Loading {
			m.chat.Stop()
			return m.sync(), nil
		}
		m.chat.Close()
		m.queue.Close()
		return m, tea.Quit

	case tea.KeyEsc:
		if m.state.Loading {
			m.chat.Stop()
		}
		m.err = nil
		return m.sync(), nil

	case tea.KeyEnter:
		return m.submit(), nil

	case tea.KeyTab:
		m.err = m.chat.SetMode(m.state.Mode.Next())
		return m.sync(), nil

	case tea.KeyCtrlP:
		return m.step(-1), nil

	case tea.KeyCtrlN:
		return m.step(1), nil

	case tea.KeyCtrlR:
		m.chat.LoadConversations()
		return m.sync(), nil

	case tea.KeyPgUp, tea.KeyPgDown, tea.KeyUp, tea.KeyDown:
		var cmd tea.Cmd
		m.Viewport, cmd = m.Viewport.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.Input, cmd = m.Input.Update(msg)
	return m, cmd
}

// submit sends the input, or creates a conversation for /new. Rejected
// input stays in the field.
func (m Model) submit() Model {
	text := strings.TrimSpace(m.Input.Value())
	if text == "" {
		return m
	}
	var err error
	if title, ok := strings.CutPrefix(text, newCommand); ok && (title == "" || title[0] == ' ') {
		err = m.chat.CreateConversation(title)
	} else {
		err = m.chat.Send(text)
	}
	m.err = err
	if err == nil {
		m.Input.SetValue("")
	}
	return m.sync()
}

// step selects the conversation delta places away from the current one.
func (m Model) step(delta int) Model {
	convs := m.state.Conversations
	if len(convs) == 0 {
		return m
	}
	i := converse.FindConversation(convs, m.state.ConversationID)
	switch {
	case i < 0 && delta < 0:
		i = len(convs) - 1
	case i < 0:
		i = 0
	default:
		i = (i + delta + len(convs)) % len(convs)
	}
	if convs[i].ID != m.state.ConversationID {
		m.err = nil
		m.chat.Select(convs[i].ID)
	}
	return m.sync()
}

// sync pulls the chat state and re-renders the message pane, following the
// bottom unless the user has scrolled up.
func (m Model) sync() Model {
	m.state = m.chat.View()
	m.rebuild()
	if !m.ready {
		return m
	}
	follow := m.Viewport.AtBottom()
	m.Viewport.SetContent(m.renderContent())
	if follow {
		m.Viewport.GotoBottom()
	}
	return m
}

// rebuild maps messages to blocks. Assistant blocks are kept per message id
// so their render cache survives while the reply streams.
func (m *Model) rebuild() {
	m.blocks = make([]MessageBlock, 0, len(m.state.Messages)+2)
	seen := make(map[converse.MessageID]bool, len(m.state.Messages))
	for _, msg := range m.state.Messages {
		if msg.Role == converse.RoleUser {
			m.blocks = append(m.blocks, NewUserBlock(ansi.Clean(msg.Content), m.styles))
			continue
		}
		b, ok := m.assistants[msg.ID]
		if !ok {
			b = NewAssistantBlock(m.theme, m.styles)
			m.assistants[msg.ID] = b
		}
		b.SetContent(ansi.Clean(msg.Content))
		seen[msg.ID] = true
		m.blocks = append(m.blocks, b)
	}
	for id := range m.assistants {
		if !seen[id] {
			delete(m.assistants, id)
		}
	}
	if m.state.MessagesErr != "" {
		m.blocks = append(m.blocks, NewErrorBlock(ansi.Line(m.state.MessagesErr), m.styles))
	}
	if m.state.StreamErr != "" {
		m.blocks = append(m.blocks, NewErrorBlock("stream: "+ansi.Line(m.state.StreamErr), m.styles))
	}
}

func (m Model) renderContent() string {
	width := m.Viewport.Width
	if m.state.ConversationID == 0 {
		return m.styles.Muted.Render("No conversation selected. Type /new TITLE to start one.")
	}
	if len(m.blocks) == 0 {
		if m.state.LoadingMessages {
			return ""
		}
		return m.styles.Muted.Render("No messages yet.")
	}
	parts := make([]string, len(m.blocks))
	for i, b := range m.blocks {
		parts[i] = b.View(width)
	}
	return strings.Join(parts, "\n\n")
}

func (m Model) modeLine() string {
	labels := make([]string, 0, len(converse.Modes()))
	for _, mode := range converse.Modes() {
		if mode == m.state.Mode {
			labels = append(labels, m.styles.Accent.Render("["+mode.Label()+"]"))
		} else {
			labels = append(labels, m.styles.Muted.Render(" "+mode.Label()+" "))
		}
	}
	return m.styles.Muted.Render("Mode ") + strings.Join(labels, " ")
}

func (m Model) statusLine() string {
	switch {
	case m.err != nil:
		return m.styles.Error.Render(describeErr(m.err))
	case m.state.Loading:
		return m.spinner.View() + m.styles.Muted.Render(" Streaming reply, Esc to stop")
	case m.state.LoadingMessages:
		return m.spinner.View() + m.styles.Muted.Render(" Loading messages")
	}
	return m.styles.Muted.Render("Enter send · Tab mode · Ctrl+P/N switch · Ctrl+C quit")
}

func describeErr(err error) string {
	switch {
	case errors.Is(err, converse.ErrBusy):
		return "Still busy, wait for the reply or press Esc"
	case errors.Is(err, converse.ErrNoConversation):
		return "No conversation selected, create one with /new TITLE"
	}
	return fmt.Sprintf("Error: %v", err)
}
