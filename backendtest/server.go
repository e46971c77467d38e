// Package backendtest provides an in-memory fake of the chat service for
// tests and local development. It serves the same routes, envelopes and
// event streams as the real service, with scripted replies instead of a
// language model.
package backendtest

import (
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fwojciec/converse"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// ReplyFunc scripts the chunks streamed back for a message.
type ReplyFunc func(mode converse.Mode, message string) []string

// DefaultReply answers with a canned sentence split after each space.
func DefaultReply(mode converse.Mode, message string) []string {
	return strings.SplitAfter(fmt.Sprintf("%s reply to: %s", mode.Label(), message), " ")
}

// Server is the fake service. It is safe for concurrent use.
type Server struct {
	reply      ReplyFunc
	chunkDelay time.Duration
	hold       <-chan struct{}
	logger     *slog.Logger
	now        func() time.Time

	mu            sync.Mutex
	conversations []converse.Conversation
	messages      map[converse.ConversationID][]converse.Message
	documents     []converse.Document
	lastConv      int64
	lastMsg       int64
	lastDoc       int64
	listFailures  int
	requestIDs    []string
}

// Option configures a [Server].
type Option func(*Server)

// WithReply sets the reply script.
func WithReply(fn ReplyFunc) Option {
	return func(s *Server) { s.reply = fn }
}

// WithChunkDelay pauses between streamed chunks.
func WithChunkDelay(d time.Duration) Option {
	return func(s *Server) { s.chunkDelay = d }
}

// WithHold makes every stream wait for ch to close before persisting the
// reply and sending the completion sentinel.
func WithHold(ch <-chan struct{}) Option {
	return func(s *Server) { s.hold = ch }
}

// WithLogger logs requests. The default discards.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates an empty [Server].
func New(opts ...Option) *Server {
	s := &Server{
		reply:    DefaultReply,
		logger:   slog.New(slog.DiscardHandler),
		now:      time.Now,
		messages: make(map[converse.ConversationID][]converse.Message),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Handler returns the service's routes, mounted under /api.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/chat/conversations", func(r chi.Router) {
			r.Get("/", s.handleListConversations)
			r.Post("/", s.handleCreateConversation)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetConversation)
				r.Get("/messages", s.handleListMessages)
				r.Post("/messages", s.handleAddMessage)
				r.Get("/latestUserMessage", s.handleLatest(converse.RoleUser, "message"))
				r.Get("/latestAssistantMessage", s.handleLatest(converse.RoleAssistant, "content"))
				r.Post("/rag", s.handleRAG)
				r.Get("/stream", s.handleStream(converse.ModePlain))
				r.Get("/agent-stream", s.handleStream(converse.ModeAgent))
				r.Get("/rag-stream", s.handleStream(converse.ModeRAG))
				r.Post("/rag-stream", s.handleStream(converse.ModeRAG))
			})
		})
		r.Route("/document", func(r chi.Router) {
			r.Post("/upload", s.handleUpload)
			r.Get("/list", s.handleListDocuments)
			r.Get("/{id}", s.handleGetDocument)
			r.Delete("/{id}", s.handleDeleteDocument)
		})
	})
	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		if id := r.Header.Get(middleware.RequestIDHeader); id != "" {
			s.mu.Lock()
			s.requestIDs = append(s.requestIDs, id)
			s.mu.Unlock()
		}
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}

// CreateConversation adds a conversation directly.
func (s *Server) CreateConversation(title string) converse.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createConversation(title)
}

// AddMessage stores a message directly.
func (s *Server) AddMessage(id converse.ConversationID, role converse.Role, content string) converse.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addMessage(id, role, content)
}

// Messages returns the stored messages of a conversation.
func (s *Server) Messages(id converse.ConversationID) []converse.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.messages[id])
}

// Documents returns the stored documents.
func (s *Server) Documents() []converse.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.documents)
}

// FailListMessages makes the next n message list requests answer with an
// application error.
func (s *Server) FailListMessages(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listFailures = n
}

// RequestIDs returns the X-Request-Id headers received so far.
func (s *Server) RequestIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.requestIDs)
}

func (s *Server) createConversation(title string) converse.Conversation {
	if strings.TrimSpace(title) == "" {
		title = "New conversation"
	}
	s.lastConv++
	c := converse.Conversation{ID: converse.ConversationID(s.lastConv), Title: title, CreatedAt: s.timestamp()}
	s.conversations = append(s.conversations, c)
	return c
}

func (s *Server) addMessage(id converse.ConversationID, role converse.Role, content string) converse.Message {
	s.lastMsg++
	m := converse.Message{ID: converse.MessageID(s.lastMsg), Role: role, Content: content, CreatedAt: s.timestamp()}
	s.messages[id] = append(s.messages[id], m)
	return m
}

func (s *Server) hasConversation(id converse.ConversationID) bool {
	return converse.FindConversation(s.conversations, id) >= 0
}

// timestamp drops sub-microsecond precision, as the service's database does.
func (s *Server) timestamp() time.Time {
	return s.now().Truncate(time.Microsecond)
}
