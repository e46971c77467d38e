package bubbletea_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fwojciec/converse"
	bt "github.com/fwojciec/converse/bubbletea"
	"github.com/fwojciec/converse/mock"
	"github.com/stretchr/testify/require"
)

// store is an in-memory backend. Streams persist the user message at start
// and the reply when they complete.
type store struct {
	mu     sync.Mutex
	convs  []converse.Conversation
	msgs   map[converse.ConversationID][]converse.Message
	lastID converse.MessageID
	failed map[converse.ConversationID]bool
}

func newStore(convs ...converse.Conversation) *store {
	return &store{convs: convs, msgs: make(map[converse.ConversationID][]converse.Message), failed: make(map[converse.ConversationID]bool)}
}

func (s *store) add(id converse.ConversationID, role converse.Role, content string) converse.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastID++
	m := converse.Message{ID: s.lastID, Role: role, Content: content, CreatedAt: time.Now()}
	s.msgs[id] = append(s.msgs[id], m)
	return m
}

func (s *store) backend() *mock.Backend {
	return &mock.Backend{
		ListConversationsFn: func(context.Context) ([]converse.Conversation, error) {
			s.mu.Lock()
			defer s.mu.Unlock()
			return append([]converse.Conversation(nil), s.convs...), nil
		},
		CreateConversationFn: func(_ context.Context, title string) (converse.Conversation, error) {
			s.mu.Lock()
			defer s.mu.Unlock()
			c := converse.Conversation{ID: converse.ConversationID(len(s.convs) + 1), Title: title}
			s.convs = append(s.convs, c)
			return c, nil
		},
		ListMessagesFn: func(_ context.Context, id converse.ConversationID) ([]converse.Message, error) {
			s.mu.Lock()
			defer s.mu.Unlock()
			if s.failed[id] {
				return nil, &converse.APIError{Code: 500, Message: "database unavailable"}
			}
			return append([]converse.Message(nil), s.msgs[id]...), nil
		},
	}
}

// transports streams chunks for every mode. A nil gate streams at once;
// otherwise the reply waits for the gate or cancellation.
func (s *store) transports(gate <-chan struct{}, chunks ...string) converse.Transports {
	tr := converse.TransportFunc(func(ctx context.Context, req converse.StreamRequest, onDelta func(string)) error {
		s.add(req.ConversationID, converse.RoleUser, req.Message)
		for _, c := range chunks {
			onDelta(c)
		}
		if gate != nil {
			select {
			case <-gate:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		s.add(req.ConversationID, converse.RoleAssistant, strings.Join(chunks, ""))
		return nil
	})
	return converse.Transports{converse.ModePlain: tr, converse.ModeRAG: tr, converse.ModeAgent: tr}
}

type harness struct {
	queue *converse.Queue
	chat  *converse.Chat
}

func newModel(t *testing.T, s *store, tr converse.TransportSelector, width, height int) (bt.Model, *harness) {
	t.Helper()
	h := &harness{queue: converse.NewQueue()}
	h.chat = converse.NewChat(s.backend(), tr, h.queue, converse.WithGraceDelay(time.Millisecond))
	t.Cleanup(func() {
		h.chat.Close()
		h.queue.Close()
	})
	m := bt.New(h.chat, h.queue, converse.DefaultTheme())
	m = updateModel(t, m, tea.WindowSizeMsg{Width: width, Height: height})
	return m, h
}

// updateModel sends a message and returns the updated Model.
func updateModel(t *testing.T, m bt.Model, msg tea.Msg) bt.Model {
	t.Helper()
	updated, _ := m.Update(msg)
	model, ok := updated.(bt.Model)
	require.True(t, ok)
	return model
}

// pump feeds queued work into the model until done holds.
func (h *harness) pump(t *testing.T, m bt.Model, done func(bt.Model) bool) bt.Model {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for !done(m) {
		fn, err := h.queue.Next(ctx)
		require.NoError(t, err, "condition not reached")
		m = updateModel(t, m, bt.WorkMsg{Fn: fn})
	}
	return m
}

// loaded reloads conversations and waits for the selected one's messages.
func (h *harness) loaded(t *testing.T, m bt.Model) bt.Model {
	t.Helper()
	m = updateModel(t, m, bt.ReloadMsg{})
	return h.pump(t, m, settled)
}

func settled(m bt.Model) bool {
	v := m.State()
	return !v.LoadingConversations && !v.LoadingMessages && !v.Loading
}

func typeText(t *testing.T, m bt.Model, text string) bt.Model {
	t.Helper()
	m.Input.SetValue(text)
	return updateModel(t, m, tea.KeyMsg{Type: tea.KeyEnter})
}
