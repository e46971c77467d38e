package json

import (
	"github.com/fwojciec/converse"
)

// Conversation is the wire form of converse.Conversation.
type Conversation struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	CreatedAt Time   `json:"createdAt"`
}

// Message is the wire form of converse.Message.
type Message struct {
	ID        int64  `json:"id"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	CreatedAt Time   `json:"createdAt"`
}

// Document is the wire form of converse.Document.
type Document struct {
	ID          int64  `json:"id"`
	Filename    string `json:"filename"`
	FileType    string `json:"fileType"`
	FileSize    int64  `json:"fileSize"`
	Description string `json:"description,omitempty"`
	CreatedAt   Time   `json:"createdAt"`
	CreatedBy   string `json:"createdBy,omitempty"`
}

// Request bodies.
type (
	CreateConversationRequest struct {
		Title string `json:"title"`
	}
	AddMessageRequest struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}
	RAGRequest struct {
		Content string `json:"content"`
	}
	StreamRequest struct {
		Message string `json:"message"`
	}
)

// FromConversation converts a domain conversation.
func FromConversation(c converse.Conversation) Conversation {
	return Conversation{ID: int64(c.ID), Title: c.Title, CreatedAt: Time{c.CreatedAt}}
}

// Domain converts to the domain type.
func (c Conversation) Domain() converse.Conversation {
	return converse.Conversation{ID: converse.ConversationID(c.ID), Title: c.Title, CreatedAt: c.CreatedAt.Time}
}

// FromMessage converts a domain message.
func FromMessage(m converse.Message) Message {
	return Message{ID: int64(m.ID), Role: string(m.Role), Content: m.Content, CreatedAt: Time{m.CreatedAt}}
}

// Domain converts to the domain type.
func (m Message) Domain() converse.Message {
	return converse.Message{
		ID:        converse.MessageID(m.ID),
		Role:      converse.Role(m.Role),
		Content:   m.Content,
		CreatedAt: m.CreatedAt.Time,
	}
}

// FromDocument converts a domain document.
func FromDocument(d converse.Document) Document {
	return Document{
		ID:          d.ID,
		Filename:    d.Filename,
		FileType:    d.FileType,
		FileSize:    d.FileSize,
		Description: d.Description,
		CreatedAt:   Time{d.CreatedAt},
		CreatedBy:   d.CreatedBy,
	}
}

// Domain converts to the domain type.
func (d Document) Domain() converse.Document {
	return converse.Document{
		ID:          d.ID,
		Filename:    d.Filename,
		FileType:    d.FileType,
		FileSize:    d.FileSize,
		Description: d.Description,
		CreatedAt:   d.CreatedAt.Time,
		CreatedBy:   d.CreatedBy,
	}
}

// Conversations converts a slice of wire conversations.
func Conversations(dtos []Conversation) []converse.Conversation {
	out := make([]converse.Conversation, len(dtos))
	for i, d := range dtos {
		out[i] = d.Domain()
	}
	return out
}

// Messages converts a slice of wire messages.
func Messages(dtos []Message) []converse.Message {
	out := make([]converse.Message, len(dtos))
	for i, d := range dtos {
		out[i] = d.Domain()
	}
	return out
}

// Documents converts a slice of wire documents.
func Documents(dtos []Document) []converse.Document {
	out := make([]converse.Document, len(dtos))
	for i, d := range dtos {
		out[i] = d.Domain()
	}
	return out
}
