// Package mock provides test doubles for converse interfaces using function fields.
package mock

import (
	"context"
	"io"

	"github.com/fwojciec/converse"
)

// Interface compliance checks.
var (
	_ converse.Backend         = (*Backend)(nil)
	_ converse.DocumentService = (*DocumentService)(nil)
)

// Backend is a test double for converse.Backend.
// Set the function fields for the methods you need; unset ones panic.
type Backend struct {
	ListConversationsFn      func(ctx context.Context) ([]converse.Conversation, error)
	CreateConversationFn     func(ctx context.Context, title string) (converse.Conversation, error)
	ListMessagesFn           func(ctx context.Context, id converse.ConversationID) ([]converse.Message, error)
	AddMessageFn             func(ctx context.Context, id converse.ConversationID, role converse.Role, content string) (converse.Message, error)
	LatestUserMessageFn      func(ctx context.Context, id converse.ConversationID, content string) (converse.Message, error)
	LatestAssistantMessageFn func(ctx context.Context, id converse.ConversationID, content string) (converse.Message, error)
	RAGChatFn                func(ctx context.Context, id converse.ConversationID, content string) (converse.Message, error)
}

// ListConversations delegates to ListConversationsFn.
func (b *Backend) ListConversations(ctx context.Context) ([]converse.Conversation, error) {
	return b.ListConversationsFn(ctx)
}

// CreateConversation delegates to CreateConversationFn.
func (b *Backend) CreateConversation(ctx context.Context, title string) (converse.Conversation, error) {
	return b.CreateConversationFn(ctx, title)
}

// ListMessages delegates to ListMessagesFn.
func (b *Backend) ListMessages(ctx context.Context, id converse.ConversationID) ([]converse.Message, error) {
	return b.ListMessagesFn(ctx, id)
}

// AddMessage delegates to AddMessageFn.
func (b *Backend) AddMessage(ctx context.Context, id converse.ConversationID, role converse.Role, content string) (converse.Message, error) {
	return b.AddMessageFn(ctx, id, role, content)
}

// LatestUserMessage delegates to LatestUserMessageFn.
func (b *Backend) LatestUserMessage(ctx context.Context, id converse.ConversationID, content string) (converse.Message, error) {
	return b.LatestUserMessageFn(ctx, id, content)
}

// LatestAssistantMessage delegates to LatestAssistantMessageFn.
func (b *Backend) LatestAssistantMessage(ctx context.Context, id converse.ConversationID, content string) (converse.Message, error) {
	return b.LatestAssistantMessageFn(ctx, id, content)
}

// RAGChat delegates to RAGChatFn.
func (b *Backend) RAGChat(ctx context.Context, id converse.ConversationID, content string) (converse.Message, error) {
	return b.RAGChatFn(ctx, id, content)
}

// DocumentService is a test double for converse.DocumentService.
type DocumentService struct {
	UploadFn func(ctx context.Context, filename string, r io.Reader, description string) (converse.Document, error)
	ListFn   func(ctx context.Context) ([]converse.Document, error)
	GetFn    func(ctx context.Context, id int64) (converse.Document, error)
	DeleteFn func(ctx context.Context, id int64) error
}

// Upload delegates to UploadFn.
func (s *DocumentService) Upload(ctx context.Context, filename string, r io.Reader, description string) (converse.Document, error) {
	return s.UploadFn(ctx, filename, r, description)
}

// List delegates to ListFn.
func (s *DocumentService) List(ctx context.Context) ([]converse.Document, error) {
	return s.ListFn(ctx)
}

// Get delegates to GetFn.
func (s *DocumentService) Get(ctx context.Context, id int64) (converse.Document, error) {
	return s.GetFn(ctx, id)
}

// Delete delegates to DeleteFn.
func (s *DocumentService) Delete(ctx context.Context, id int64) error {
	return s.DeleteFn(ctx, id)
}
