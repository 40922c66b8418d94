// ABOUTME: Server-side history calls for the active conversation
// ABOUTME: Both calls degrade to a synthesized success when the route is absent

package client

import (
	"context"
	"errors"

	"github.com/2389/mail-assistant/internal/store"
)

// HistoryResponse is the reply to GET /ai/history/{id}
type HistoryResponse struct {
	Messages []store.Message `json:"messages"`
}

// ClearResponse is the reply to DELETE /ai/history/{id}
type ClearResponse struct {
	Success bool `json:"success"`
}

// GetHistory fetches the server-side message history of a conversation.
// An absent route yields an empty history.
func (c *Client) GetHistory(ctx context.Context, conversationID string) (*HistoryResponse, error) {
	if err := c.checkToken(routeGetHistory); err != nil {
		return nil, err
	}
	if c.routeAbsent(routeGetHistory) {
		return &HistoryResponse{Messages: []store.Message{}}, nil
	}

	var resp HistoryResponse
	err := c.do(ctx, "GET", "/ai/history/"+pathID(conversationID), nil, &resp)
	if errors.Is(err, ErrNotFound) {
		c.logger.Debug("history endpoint not deployed", "conversation_id", conversationID)
		c.markAbsent(routeGetHistory)
		return &HistoryResponse{Messages: []store.Message{}}, nil
	}
	if err != nil {
		return nil, err
	}

	c.markPresent(routeGetHistory)
	if resp.Messages == nil {
		resp.Messages = []store.Message{}
	}
	return &resp, nil
}

// ClearHistory deletes the server-side history of a conversation.
// An absent route is reported as success.
func (c *Client) ClearHistory(ctx context.Context, conversationID string) (*ClearResponse, error) {
	if err := c.checkToken(routeClearHistory); err != nil {
		return nil, err
	}
	if c.routeAbsent(routeClearHistory) {
		return &ClearResponse{Success: true}, nil
	}

	var resp ClearResponse
	err := c.do(ctx, "DELETE", "/ai/history/"+pathID(conversationID), nil, &resp)
	if errors.Is(err, ErrNotFound) {
		c.logger.Debug("history endpoint not deployed", "conversation_id", conversationID)
		c.markAbsent(routeClearHistory)
		return &ClearResponse{Success: true}, nil
	}
	if err != nil {
		return nil, err
	}

	c.markPresent(routeClearHistory)
	return &resp, nil
}
