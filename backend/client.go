package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/fwojciec/converse"
	conversejson "github.com/fwojciec/converse/json"
)

// ListConversations implements converse.Backend.
func (c *Client) ListConversations(ctx context.Context) ([]converse.Conversation, error) {
	dtos, err := call[[]conversejson.Conversation](ctx, c, request{
		method: http.MethodGet,
		path:   "/chat/conversations",
	})
	if err != nil {
		return nil, err
	}
	return conversejson.Conversations(dtos), nil
}

// CreateConversation implements converse.Backend.
func (c *Client) CreateConversation(ctx context.Context, title string) (converse.Conversation, error) {
	if err := converse.ValidateTitle(title); err != nil {
		return converse.Conversation{}, fmt.Errorf("backend: %w", err)
	}
	body, err := jsonBody(conversejson.CreateConversationRequest{Title: title})
	if err != nil {
		return converse.Conversation{}, err
	}
	dto, err := call[conversejson.Conversation](ctx, c, request{
		method:      http.MethodPost,
		path:        "/chat/conversations",
		body:        body,
		contentType: "application/json",
	})
	if err != nil {
		return converse.Conversation{}, err
	}
	return dto.Domain(), nil
}

// ListMessages implements converse.Backend.
func (c *Client) ListMessages(ctx context.Context, id converse.ConversationID) ([]converse.Message, error) {
	dtos, err := call[[]conversejson.Message](ctx, c, request{
		method: http.MethodGet,
		path:   conversationPath(id, "/messages"),
	})
	if err != nil {
		return nil, err
	}
	return conversejson.Messages(dtos), nil
}

// AddMessage implements converse.Backend.
func (c *Client) AddMessage(ctx context.Context, id converse.ConversationID, role converse.Role, content string) (converse.Message, error) {
	if !role.Valid() {
		return converse.Message{}, fmt.Errorf("backend: role %q: %w", role, converse.ErrValidation)
	}
	if converse.BlankText(content) {
		return converse.Message{}, fmt.Errorf("backend: message must not be blank: %w", converse.ErrValidation)
	}
	body, err := jsonBody(conversejson.AddMessageRequest{Role: string(role), Content: content})
	if err != nil {
		return converse.Message{}, err
	}
	return c.message(ctx, request{
		method:      http.MethodPost,
		path:        conversationPath(id, "/messages"),
		body:        body,
		contentType: "application/json",
	})
}

// LatestUserMessage implements converse.Backend.
func (c *Client) LatestUserMessage(ctx context.Context, id converse.ConversationID, content string) (converse.Message, error) {
	return c.message(ctx, request{
		method: http.MethodGet,
		path:   conversationPath(id, "/latestUserMessage"),
		query:  url.Values{"message": {content}},
	})
}

// LatestAssistantMessage implements converse.Backend.
func (c *Client) LatestAssistantMessage(ctx context.Context, id converse.ConversationID, content string) (converse.Message, error) {
	return c.message(ctx, request{
		method: http.MethodGet,
		path:   conversationPath(id, "/latestAssistantMessage"),
		query:  url.Values{"content": {content}},
	})
}

// RAGChat implements converse.Backend.
func (c *Client) RAGChat(ctx context.Context, id converse.ConversationID, content string) (converse.Message, error) {
	body, err := jsonBody(conversejson.RAGRequest{Content: content})
	if err != nil {
		return converse.Message{}, err
	}
	return c.message(ctx, request{
		method:      http.MethodPost,
		path:        conversationPath(id, "/rag"),
		body:        body,
		contentType: "application/json",
	})
}

// message performs r and expects a message. A null message is
// converse.ErrNotFound.
func (c *Client) message(ctx context.Context, r request) (converse.Message, error) {
	dto, err := call[*conversejson.Message](ctx, c, r)
	if err != nil {
		return converse.Message{}, err
	}
	if dto == nil {
		return converse.Message{}, fmt.Errorf("backend: %s: %w", r.path, converse.ErrNotFound)
	}
	return dto.Domain(), nil
}
