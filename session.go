package converse

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// SessionHandler receives the output of a StreamSession. Both callbacks run
// on the session's goroutine; callers that own state elsewhere re-post them.
type SessionHandler struct {
	OnDelta    func(delta string)
	OnComplete func(err error)
}

// StreamSession owns one streaming request.
//
// OnComplete fires exactly once when the stream ends on its own: on the
// completion sentinel, on natural end of the transport, or on transport
// failure (err non-nil). It fires even when no delta arrived. It never fires
// after Cancel, which is the caller's own decision to stop listening.
type StreamSession struct {
	id     string
	owner  ConversationID
	logger *slog.Logger
	cancel context.CancelFunc
	done   chan struct{}

	canceled  atomic.Bool
	completed atomic.Bool

	mu   sync.Mutex
	text strings.Builder
}

// SessionOption configures a StreamSession.
type SessionOption func(*StreamSession)

// WithSessionLogger sets the logger. The default discards.
func WithSessionLogger(l *slog.Logger) SessionOption {
	return func(s *StreamSession) {
		if l != nil {
			s.logger = l
		}
	}
}

// StartSession opens the transport on a new goroutine and returns
// immediately.
func StartSession(ctx context.Context, t Transport, req StreamRequest, h SessionHandler, opts ...SessionOption) *StreamSession {
	s := &StreamSession{
		id:     uuid.NewString(),
		owner:  req.ConversationID,
		logger: slog.New(slog.DiscardHandler),
		done:   make(chan struct{}),
	}
	for _, o := range opts {
		o(s)
	}
	ctx, s.cancel = context.WithCancel(ContextWithRequestID(ctx, s.id))
	go s.run(ctx, t, req, h)
	return s
}

func (s *StreamSession) run(ctx context.Context, t Transport, req StreamRequest, h SessionHandler) {
	defer close(s.done)
	defer s.cancel()

	log := s.logger.With("session", s.id, "conversation", int64(req.ConversationID), "mode", string(req.Mode))
	log.Debug("stream started")

	err := t.Stream(ctx, req, func(delta string) {
		if s.canceled.Load() {
			return
		}
		s.mu.Lock()
		s.text.WriteString(delta)
		s.mu.Unlock()
		if h.OnDelta != nil {
			h.OnDelta(delta)
		}
	})

	if s.canceled.Load() || ctx.Err() != nil {
		log.Debug("stream cancelled")
		return
	}
	if err != nil {
		log.Warn("stream failed", "error", err)
	} else {
		log.Debug("stream completed", "chars", len(s.Text()))
	}
	if s.completed.CompareAndSwap(false, true) && h.OnComplete != nil {
		h.OnComplete(err)
	}
}

// Cancel closes the transport and suppresses further callbacks. It is
// idempotent and safe to call after completion. A callback that is already
// running cannot be recalled.
func (s *StreamSession) Cancel() {
	if s.canceled.CompareAndSwap(false, true) {
		s.cancel()
	}
}

// ID returns the session's unique id, also sent as the request id.
func (s *StreamSession) ID() string { return s.id }

// Owner returns the conversation the session streams into.
func (s *StreamSession) Owner() ConversationID { return s.owner }

// Text returns all deltas received so far, concatenated.
func (s *StreamSession) Text() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.text.String()
}

// Canceled reports whether Cancel was called.
func (s *StreamSession) Canceled() bool { return s.canceled.Load() }

// Done is closed when the transport goroutine has exited.
func (s *StreamSession) Done() <-chan struct{} { return s.done }

type requestIDKey struct{}

// ContextWithRequestID attaches a request id that transports forward to the
// backend.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext returns the request id attached to ctx, if any.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
