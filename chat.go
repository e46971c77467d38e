package converse

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"
)

// DefaultGraceDelay is how long Chat waits after a stream completes before
// reloading messages, giving the backend time to persist the reply.
const DefaultGraceDelay = 300 * time.Millisecond

// View is a snapshot of chat state for rendering.
type View struct {
	Conversations  []Conversation
	ConversationID ConversationID
	Messages       []Message
	Mode           Mode

	Loading              bool // a send is in flight
	LoadingConversations bool
	LoadingMessages      bool

	Err         string // conversation list failures
	MessagesErr string // message load and send failures
	StreamErr   string // last transport failure
}

// Chat is the view model of the chat screen. It composes the Guard, the
// StreamSession and the Scheduler: user actions mint epochs, streams feed
// paced deltas into a provisional assistant message, and completion
// reconciles provisional messages with the backend.
//
// Chat is not safe for concurrent use. Its methods must be called on the
// Dispatcher goroutine; background work posts its results back through the
// Dispatcher and re-validates its epoch before touching state.
type Chat struct {
	backend    Backend
	transports TransportSelector
	dispatch   Dispatcher
	clock      Clock
	frames     FrameClock
	logger     *slog.Logger
	grace      time.Duration
	threshold  int
	observer   func(View)

	ctx  context.Context
	stop context.CancelFunc

	guard     Guard
	scheduler *Scheduler

	// listGen numbers conversation list loads; only the newest may apply.
	listGen    uint64
	cancelList context.CancelFunc
	view      View
	lastTemp  MessageID
	closed    bool
}

// ChatOption configures a Chat.
type ChatOption func(*Chat)

// WithLogger sets the logger. The default discards.
func WithLogger(l *slog.Logger) ChatOption {
	return func(c *Chat) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithClock sets the clock used for the reconciliation grace delay.
func WithClock(clk Clock) ChatOption {
	return func(c *Chat) { c.clock = clk }
}

// WithFrameClock sets the clock that paces scheduled flushes.
func WithFrameClock(fc FrameClock) ChatOption {
	return func(c *Chat) { c.frames = fc }
}

// WithGraceDelay sets the pause between stream completion and reload.
func WithGraceDelay(d time.Duration) ChatOption {
	return func(c *Chat) { c.grace = d }
}

// WithThreshold sets the immediate-flush threshold of each send's Scheduler.
func WithThreshold(n int) ChatOption {
	return func(c *Chat) { c.threshold = n }
}

// WithMode sets the initial mode.
func WithMode(m Mode) ChatOption {
	return func(c *Chat) {
		if m.Valid() {
			c.view.Mode = m
		}
	}
}

// WithObserver registers fn to receive a snapshot after every state change.
// fn runs on the Dispatcher goroutine.
func WithObserver(fn func(View)) ChatOption {
	return func(c *Chat) { c.observer = fn }
}

// NewChat creates a Chat. Nothing is loaded until LoadConversations or
// Select is called.
func NewChat(b Backend, t TransportSelector, d Dispatcher, opts ...ChatOption) *Chat {
	c := &Chat{
		backend:    b,
		transports: t,
		dispatch:   d,
		clock:      SystemClock{},
		logger:     slog.New(slog.DiscardHandler),
		grace:      DefaultGraceDelay,
		threshold:  DefaultFlushThreshold,
		view:       View{Mode: ModePlain},
	}
	for _, o := range opts {
		o(c)
	}
	if c.frames == nil {
		c.frames = NewFrameClock(DefaultFrameRate)
	}
	c.ctx, c.stop = context.WithCancel(context.Background())
	return c
}

// View returns a copy of the current state.
func (c *Chat) View() View {
	v := c.view
	v.Conversations = slices.Clone(c.view.Conversations)
	v.Messages = slices.Clone(c.view.Messages)
	return v
}

// Epoch returns the live epoch.
func (c *Chat) Epoch() Epoch { return c.guard.Epoch() }

// LoadConversations fetches the conversation list. The current selection is
// kept if it is still listed; otherwise the first conversation is selected,
// or none when the list is empty or cannot be loaded. A newer load
// supersedes an older one still in flight.
func (c *Chat) LoadConversations() {
	if c.closed {
		return
	}
	if c.cancelList != nil {
		c.cancelList()
	}
	c.listGen++
	gen := c.listGen
	ctx, cancel := context.WithCancel(c.ctx)
	c.cancelList = cancel

	c.view.LoadingConversations = true
	c.view.Err = ""
	c.changed()

	go func() {
		convs, err := c.backend.ListConversations(ctx)
		c.dispatch.Dispatch(func() {
			if c.closed || gen != c.listGen {
				return
			}
			cancel()
			c.cancelList = nil
			c.view.LoadingConversations = false
			if err != nil {
				c.logger.Warn("load conversations failed", "error", err)
				c.view.Err = describe(err, "failed to load conversations")
				c.view.Conversations = nil
				c.Select(0)
				return
			}
			c.view.Conversations = convs
			current := c.guard.Conversation()
			switch {
			case len(convs) == 0:
				c.Select(0)
			case current == 0 || FindConversation(convs, current) < 0:
				c.Select(convs[0].ID)
			default:
				c.changed()
			}
		})
	}()
}

// CreateConversation creates a conversation and selects it once the backend
// confirms it.
func (c *Chat) CreateConversation(title string) error {
	if err := ValidateTitle(title); err != nil {
		return err
	}
	if c.closed {
		return nil
	}
	ctx := c.ctx
	title = strings.TrimSpace(title)
	go func() {
		conv, err := c.backend.CreateConversation(ctx, title)
		c.dispatch.Dispatch(func() {
			if c.closed {
				return
			}
			if err != nil {
				c.logger.Warn("create conversation failed", "error", err)
				c.view.Err = describe(err, "failed to create conversation")
				c.changed()
				return
			}
			c.view.Conversations = append(c.view.Conversations, conv)
			c.Select(conv.ID)
		})
	}()
	return nil
}

// Select makes id the current conversation. Messages and errors of the
// previous conversation are cleared at once, its stream is cancelled and its
// message fetch aborted. An id of zero selects nothing and loads nothing.
func (c *Chat) Select(id ConversationID) {
	if c.closed {
		return
	}
	c.resetStream()
	epoch := c.guard.Switch(id)

	c.view.ConversationID = id
	c.view.Messages = nil
	c.view.MessagesErr = ""
	c.view.StreamErr = ""
	c.view.Loading = false

	if id == 0 {
		c.view.LoadingMessages = false
		c.changed()
		return
	}

	ctx, cancel := context.WithCancel(c.ctx)
	c.guard.TrackFetch(cancel)
	c.view.LoadingMessages = true
	c.changed()

	go func() {
		msgs, err := c.backend.ListMessages(ctx, id)
		c.dispatch.Dispatch(func() {
			if ctx.Err() != nil || !c.guard.Current(epoch) {
				return
			}
			c.view.LoadingMessages = false
			if err != nil {
				c.logger.Warn("load messages failed", "conversation", int64(id), "error", err)
				c.view.MessagesErr = describe(err, "failed to load messages")
				c.view.Messages = nil
			} else {
				c.view.Messages = msgs
			}
			c.changed()
		})
	}()
}

// SetMode switches the mode used by the next Send.
func (c *Chat) SetMode(m Mode) error {
	if !m.Valid() {
		return fmt.Errorf("unknown mode %q: %w", m, ErrValidation)
	}
	if c.view.Loading || c.view.LoadingMessages {
		return ErrBusy
	}
	c.view.Mode = m
	c.changed()
	return nil
}

// pendingSend tracks the provisional pair created by one Send.
type pendingSend struct {
	epoch       Epoch
	text        string
	userID      MessageID
	assistantID MessageID
}

// Send posts text to the current conversation and streams the reply into a
// provisional assistant message. Validation and busy errors are returned
// without touching state. A hard failure to open the stream rolls back the
// provisional messages, records an inline error and returns it.
func (c *Chat) Send(text string) error {
	text = strings.TrimSpace(text)
	switch {
	case text == "":
		return fmt.Errorf("message must not be blank: %w", ErrValidation)
	case c.closed || c.guard.Conversation() == 0:
		return ErrNoConversation
	case c.view.Loading || c.view.LoadingMessages:
		return ErrBusy
	}

	now := time.Now()
	p := pendingSend{text: text, userID: c.tempID(), assistantID: c.tempID()}
	c.view.Messages = append(c.view.Messages,
		Message{ID: p.userID, Role: RoleUser, Content: text, CreatedAt: now},
		Message{ID: p.assistantID, Role: RoleAssistant, CreatedAt: now},
	)
	c.view.Loading = true
	c.view.MessagesErr = ""
	c.view.StreamErr = ""

	req := StreamRequest{ConversationID: c.guard.Conversation(), Message: text, Mode: c.view.Mode}
	t, err := c.transport(req)
	if err != nil {
		c.rollback(p, err)
		return err
	}

	c.resetStream()
	p.epoch = c.guard.Mint()

	var sched *Scheduler
	sched = NewScheduler(c.frames, c.dispatch, func(string) {
		if !c.guard.Current(p.epoch) {
			return
		}
		c.setContent(p.assistantID, sched.Text())
		c.changed()
	}, WithFlushThreshold(c.threshold))
	c.scheduler = sched

	var session *StreamSession
	session = StartSession(c.ctx, t, req, SessionHandler{
		OnDelta: func(delta string) {
			c.dispatch.Dispatch(func() {
				if !c.guard.Current(p.epoch) {
					return
				}
				sched.Push(delta)
			})
		},
		OnComplete: func(err error) {
			c.dispatch.Dispatch(func() {
				if !c.guard.Current(p.epoch) {
					return
				}
				sched.Complete()
				c.guard.Detach(session)
				if err != nil {
					c.view.StreamErr = describe(err, "stream failed")
					c.changed()
				}
				c.reconcile(p, sched.Text())
			})
		},
	}, WithSessionLogger(c.logger))
	c.guard.Attach(p.epoch, session)
	c.changed()
	return nil
}

// Stop cancels the in-flight send. Text already received stays visible.
func (c *Chat) Stop() {
	if !c.view.Loading {
		return
	}
	if c.scheduler != nil {
		c.scheduler.Complete()
		c.scheduler = nil
	}
	c.guard.Mint()
	c.view.Loading = false
	c.logger.Debug("send stopped by user", "conversation", int64(c.guard.Conversation()))
	c.changed()
}

// Close releases the stream, any fetch, and background work. Results that
// arrive afterwards are dropped.
func (c *Chat) Close() {
	if c.closed {
		return
	}
	c.closed = true
	c.resetStream()
	c.guard.Release()
	c.stop()
}

// reconcile replaces the provisional pair with persisted messages. After the
// grace delay it reloads the whole list; if that fails it resolves each
// provisional message by content. Every step rechecks the epoch, and a stale
// epoch ends the chain silently.
func (c *Chat) reconcile(p pendingSend, reply string) {
	c.clock.AfterFunc(c.grace, func() {
		c.dispatch.Dispatch(func() {
			if !c.guard.Current(p.epoch) {
				return
			}
			ctx, id := c.ctx, p.epoch.Conversation
			go func() {
				msgs, err := c.backend.ListMessages(ctx, id)
				c.dispatch.Dispatch(func() {
					if !c.guard.Current(p.epoch) {
						return
					}
					if err != nil {
						c.logger.Warn("reload after stream failed, resolving provisional messages", "conversation", int64(id), "error", err)
						c.resolveProvisional(p, reply)
						return
					}
					c.view.Messages = msgs
					c.finishSend()
				})
			}()
		})
	})
}

func (c *Chat) resolveProvisional(p pendingSend, reply string) {
	ctx, id := c.ctx, p.epoch.Conversation
	go func() {
		user, err := c.backend.LatestUserMessage(ctx, id, p.text)
		c.dispatch.Dispatch(func() {
			if !c.guard.Current(p.epoch) {
				return
			}
			if err != nil {
				c.logger.Warn("resolve user message failed", "conversation", int64(id), "error", err)
			} else {
				c.replace(p.userID, user)
			}
			go func() {
				assistant, err := c.backend.LatestAssistantMessage(ctx, id, reply)
				c.dispatch.Dispatch(func() {
					if !c.guard.Current(p.epoch) {
						return
					}
					if err != nil {
						c.logger.Warn("resolve assistant message failed", "conversation", int64(id), "error", err)
					} else {
						c.replace(p.assistantID, assistant)
					}
					c.finishSend()
				})
			}()
		})
	}()
}

func (c *Chat) finishSend() {
	c.scheduler = nil
	c.view.Loading = false
	c.changed()
}

func (c *Chat) rollback(p pendingSend, err error) {
	c.logger.Warn("send failed", "conversation", int64(c.guard.Conversation()), "error", err)
	c.view.Messages = slices.DeleteFunc(c.view.Messages, func(m Message) bool {
		return m.ID == p.userID || m.ID == p.assistantID
	})
	c.view.Loading = false
	c.view.MessagesErr = describe(err, "failed to send message")
	c.changed()
}

func (c *Chat) transport(req StreamRequest) (Transport, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	t, err := c.transports.Transport(req.Mode)
	if err != nil {
		return nil, fmt.Errorf("mode %s: %w", req.Mode, err)
	}
	return t, nil
}

func (c *Chat) resetStream() {
	if c.scheduler != nil {
		c.scheduler.Reset()
		c.scheduler = nil
	}
}

func (c *Chat) setContent(id MessageID, content string) {
	for i := range c.view.Messages {
		if c.view.Messages[i].ID == id {
			c.view.Messages[i].Content = content
			return
		}
	}
}

// replace swaps a provisional message for its persisted counterpart.
func (c *Chat) replace(id MessageID, m Message) {
	for i := range c.view.Messages {
		if c.view.Messages[i].ID == id {
			c.view.Messages[i] = m
			return
		}
	}
}

func (c *Chat) tempID() MessageID {
	c.lastTemp--
	return c.lastTemp
}

func (c *Chat) changed() {
	if c.observer != nil {
		c.observer(c.View())
	}
}

// describe renders err for inline display. Application errors carry their
// own human-readable message.
func describe(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fmt.Sprintf("%s: %v", fallback, err)
}
