// Package bubbletea provides the terminal UI: a conversation sidebar, the
// message pane with a mode selector, and an input line. It drives a
// converse.Chat whose Dispatcher is a converse.Queue; queued work runs
// inside Update, so the chat is only touched on the Bubble Tea goroutine.
package bubbletea

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fwojciec/converse"
)

// Run creates and runs the Bubble Tea program. It blocks until the program
// exits. Cancelling ctx quits the program.
func Run(ctx context.Context, m Model, opts ...tea.ProgramOption) error {
	p := tea.NewProgram(m, append([]tea.ProgramOption{tea.WithAltScreen()}, opts...)...)
	go func() {
		<-ctx.Done()
		p.Quit()
	}()
	_, err := p.Run()
	return err
}

// WorkMsg carries one work item posted to the chat's queue.
type WorkMsg struct {
	Fn func()
}

// ReloadMsg asks the model to reload the conversation list.
type ReloadMsg struct{}

// Listen waits for the next work item on q. It yields no message once the
// queue is closed.
func Listen(q *converse.Queue) tea.Cmd {
	return func() tea.Msg {
		fn, err := q.Next(context.Background())
		if err != nil {
			return nil
		}
		return WorkMsg{Fn: fn}
	}
}
