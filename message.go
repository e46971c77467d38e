package converse

import (
	"path/filepath"
	"slices"
	"strings"
	"time"
)

// ConversationID identifies a conversation. The zero value means no
// conversation is selected.
type ConversationID int64

// Conversation is a titled thread of messages owned by the backend.
type Conversation struct {
	ID        ConversationID
	Title     string
	CreatedAt time.Time
}

// MessageID identifies a message. Server-issued IDs are positive; IDs minted
// by the client for provisional messages are negative.
type MessageID int64

// Message is one turn in a conversation.
type Message struct {
	ID        MessageID
	Role      Role
	Content   string
	CreatedAt time.Time
}

// Provisional reports whether the message is a client-side placeholder that
// has not been matched with its persisted counterpart yet.
func (m Message) Provisional() bool { return m.ID < 0 }

// Document is an uploaded knowledge-base document used by RAG mode.
type Document struct {
	ID          int64
	Filename    string
	FileType    string
	FileSize    int64
	Description string
	CreatedAt   time.Time
	CreatedBy   string
}

// DocumentTypes are the file extensions the document store accepts:
// PDF, Word, Excel, PowerPoint, plain text and Markdown.
var DocumentTypes = []string{"pdf", "doc", "docx", "xls", "xlsx", "ppt", "pptx", "txt", "md"}

// DocumentType returns the lower-cased extension of filename without the dot.
func DocumentType(filename string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
}

// SupportedDocument reports whether filename has one of DocumentTypes.
func SupportedDocument(filename string) bool {
	return slices.Contains(DocumentTypes, DocumentType(filename))
}

// FindConversation returns the index of the conversation with the given id,
// or -1.
func FindConversation(convs []Conversation, id ConversationID) int {
	for i, c := range convs {
		if c.ID == id {
			return i
		}
	}
	return -1
}

// BlankText reports whether s has no visible content.
func BlankText(s string) bool {
	return strings.TrimSpace(s) == ""
}
