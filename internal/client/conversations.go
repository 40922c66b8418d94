// ABOUTME: Saved-conversation calls: save, list, detail, delete, clear all
// ABOUTME: Listing never fails; the other calls return backend errors unchanged

package client

import (
	"context"

	"github.com/2389/mail-assistant/internal/store"
)

// SaveRequest is the body of POST /ai/conversations/save
type SaveRequest struct {
	ConversationID string          `json:"conversationId"`
	Messages       []store.Message `json:"messages"`
	Title          string          `json:"title,omitempty"`
}

// ListResponse is the reply to GET /ai/conversations
type ListResponse struct {
	Conversations []store.ConversationSummary `json:"conversations"`
}

// DetailResponse is the reply to GET /ai/conversations/{id}
type DetailResponse struct {
	Conversation *store.Conversation `json:"conversation"`
}

// SaveConversation stores a conversation in the server-side history.
func (c *Client) SaveConversation(ctx context.Context, req SaveRequest) error {
	return c.do(ctx, "POST", "/ai/conversations/save", req, nil)
}

// ListConversations returns the saved conversations. Any failure yields an
// empty list so a read-only listing never blocks the caller.
func (c *Client) ListConversations(ctx context.Context) *ListResponse {
	var resp ListResponse
	if err := c.do(ctx, "GET", "/ai/conversations", nil, &resp); err != nil {
		c.logger.Warn("listing conversations failed, returning empty list", "error", err)
		return &ListResponse{Conversations: []store.ConversationSummary{}}
	}
	if resp.Conversations == nil {
		resp.Conversations = []store.ConversationSummary{}
	}
	return &resp
}

// GetConversationDetail fetches one saved conversation.
func (c *Client) GetConversationDetail(ctx context.Context, conversationID string) (*DetailResponse, error) {
	var resp DetailResponse
	if err := c.do(ctx, "GET", "/ai/conversations/"+pathID(conversationID), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DeleteConversation removes one saved conversation.
func (c *Client) DeleteConversation(ctx context.Context, conversationID string) error {
	return c.do(ctx, "DELETE", "/ai/conversations/"+pathID(conversationID), nil, nil)
}

// ClearAllConversations removes every saved conversation.
func (c *Client) ClearAllConversations(ctx context.Context) error {
	return c.do(ctx, "DELETE", "/ai/conversations", nil, nil)
}
