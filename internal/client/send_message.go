// ABOUTME: Chat call for the assistant, with local fallback when the route is absent
// ABOUTME: A 404 from POST /ai/chat is answered by the resolver instead of failing

package client

import (
	"context"
	"errors"
	"fmt"

	"github.com/2389/mail-assistant/internal/store"
)

// PageContext describes where in the console the question was asked
type PageContext map[string]any

// ChatRequest is the body of POST /ai/chat
type ChatRequest struct {
	ConversationID *string     `json:"conversationId"`
	Message        string      `json:"message"`
	PageContext    PageContext `json:"pageContext"`
}

// ChatResponse is the reply to a chat turn
type ChatResponse struct {
	ConversationID string         `json:"conversationId"`
	Answer         string         `json:"answer"`
	Sources        []store.Source `json:"sources"`

	// Fallback is true when the answer was produced locally
	Fallback bool `json:"-"`
}

// Chat sends one user message. When the chat route is not deployed the
// reply comes from the local Fallback, keeping the given conversation id
// or synthesizing one. All other failures are returned.
func (c *Client) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if req.PageContext == nil {
		req.PageContext = PageContext{}
	}

	if err := c.checkToken(routeChat); err != nil {
		return nil, err
	}
	if c.routeAbsent(routeChat) {
		c.logger.Debug("chat route known absent, answering locally")
		return c.fallbackChat(req), nil
	}

	var resp ChatResponse
	err := c.do(ctx, "POST", "/ai/chat", req, &resp)
	if errors.Is(err, ErrNotFound) {
		c.logger.Warn("chat endpoint not deployed, answering locally", "error", err)
		c.markAbsent(routeChat)
		return c.fallbackChat(req), nil
	}
	if err != nil {
		return nil, err
	}

	c.markPresent(routeChat)
	return &resp, nil
}

// fallbackChat builds a locally synthesized chat reply.
func (c *Client) fallbackChat(req ChatRequest) *ChatResponse {
	convID := fmt.Sprintf("conv_%d", c.now().UnixMilli())
	if req.ConversationID != nil && *req.ConversationID != "" {
		convID = *req.ConversationID
	}

	return &ChatResponse{
		ConversationID: convID,
		Answer:         c.fallback.Resolve(req.Message),
		Sources:        []store.Source{},
		Fallback:       true,
	}
}
