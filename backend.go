package converse

import (
	"context"
	"io"
)

// Backend is the request/response API of the conversational service.
type Backend interface {
	ListConversations(ctx context.Context) ([]Conversation, error)
	CreateConversation(ctx context.Context, title string) (Conversation, error)
	ListMessages(ctx context.Context, id ConversationID) ([]Message, error)
	AddMessage(ctx context.Context, id ConversationID, role Role, content string) (Message, error)

	// LatestUserMessage and LatestAssistantMessage look up the most recent
	// persisted message of that role whose content matches.
	LatestUserMessage(ctx context.Context, id ConversationID, content string) (Message, error)
	LatestAssistantMessage(ctx context.Context, id ConversationID, content string) (Message, error)

	// RAGChat answers content with knowledge-base retrieval, without streaming.
	RAGChat(ctx context.Context, id ConversationID, content string) (Message, error)
}

// DocumentService manages knowledge-base documents.
type DocumentService interface {
	Upload(ctx context.Context, filename string, r io.Reader, description string) (Document, error)
	List(ctx context.Context) ([]Document, error)
	Get(ctx context.Context, id int64) (Document, error)
	Delete(ctx context.Context, id int64) error
}
