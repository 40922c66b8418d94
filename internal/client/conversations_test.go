// ABOUTME: Tests for the saved-conversation calls
// ABOUTME: Covers request bodies, list degradation, and error propagation

package client

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/mail-assistant/internal/store"
)

func TestSaveConversation_Body(t *testing.T) {
	fb := newFakeBackend(t)
	fb.handleJSON("POST /api/ai/conversations/save", http.StatusOK, map[string]any{"success": true})

	err := newTestClient(t, fb, Options{}).SaveConversation(context.Background(), SaveRequest{
		ConversationID: "conv-1",
		Title:          "邮箱接入",
		Messages: []store.Message{
			{ID: "m1", Role: store.RoleUser, Content: "如何接入邮箱账号", Timestamp: "2026-01-01T00:00:00.000Z"},
		},
	})
	require.NoError(t, err)

	reqs := fb.recorded()
	require.Len(t, reqs, 1)
	assert.Equal(t, "conv-1", reqs[0].Body["conversationId"])
	assert.Equal(t, "邮箱接入", reqs[0].Body["title"])
	msgs, ok := reqs[0].Body["messages"].([]any)
	require.True(t, ok)
	assert.Len(t, msgs, 1)
}

func TestSaveConversation_ErrorPropagates(t *testing.T) {
	fb := newFakeBackend(t)

	err := newTestClient(t, fb, Options{}).SaveConversation(context.Background(), SaveRequest{ConversationID: "c"})
	assert.ErrorIs(t, err, ErrNotFound, "save has no fallback")
}

func TestListConversations(t *testing.T) {
	fb := newFakeBackend(t)
	fb.handleJSON("GET /api/ai/conversations", http.StatusOK, map[string]any{
		"success": true,
		"conversations": []any{
			map[string]any{"conversationId": "c1", "title": "first", "messageCount": 4, "updatedAt": "2026-01-01T00:00:00Z"},
			map[string]any{"conversationId": "c2", "title": "second", "messageCount": 2},
		},
	})

	resp := newTestClient(t, fb, Options{}).ListConversations(context.Background())
	require.Len(t, resp.Conversations, 2)
	assert.Equal(t, "c1", resp.Conversations[0].ConversationID)
	assert.Equal(t, 4, resp.Conversations[0].MessageCount)
}

func TestListConversations_AnyFailureIsEmpty(t *testing.T) {
	tests := []struct {
		name   string
		status int
	}{
		{"not found", http.StatusNotFound},
		{"server error", http.StatusInternalServerError},
		{"unauthorized", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fb := newFakeBackend(t)
			fb.handleJSON("GET /api/ai/conversations", tt.status, map[string]any{})

			resp := newTestClient(t, fb, Options{}).ListConversations(context.Background())
			assert.NotNil(t, resp.Conversations)
			assert.Empty(t, resp.Conversations)
		})
	}
}

func TestListConversations_UnauthorizedStillHooks(t *testing.T) {
	fb := newFakeBackend(t)
	fb.handleJSON("GET /api/ai/conversations", http.StatusUnauthorized, map[string]any{})

	var hooked error
	c := newTestClient(t, fb, Options{OnUnauthorized: func(err error) { hooked = err }})
	c.ListConversations(context.Background())

	assert.ErrorIs(t, hooked, ErrUnauthorized)
}

func TestGetConversationDetail(t *testing.T) {
	fb := newFakeBackend(t)
	fb.handleJSON("GET /api/ai/conversations/c1", http.StatusOK, map[string]any{
		"conversation": map[string]any{
			"conversationId": "c1",
			"title":          "first",
			"messages": []any{
				map[string]any{"id": "m1", "role": "user", "content": "hi", "timestamp": "t"},
			},
		},
	})

	resp, err := newTestClient(t, fb, Options{}).GetConversationDetail(context.Background(), "c1")
	require.NoError(t, err)
	require.NotNil(t, resp.Conversation)
	assert.Equal(t, "first", resp.Conversation.Title)
	assert.Len(t, resp.Conversation.Messages, 1)
}

func TestGetConversationDetail_NotFoundPropagates(t *testing.T) {
	fb := newFakeBackend(t)

	_, err := newTestClient(t, fb, Options{}).GetConversationDetail(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteConversation(t *testing.T) {
	fb := newFakeBackend(t)
	fb.handleJSON("DELETE /api/ai/conversations/c1", http.StatusOK, map[string]any{"success": true})

	require.NoError(t, newTestClient(t, fb, Options{}).DeleteConversation(context.Background(), "c1"))
	reqs := fb.recorded()
	require.Len(t, reqs, 1)
	assert.Equal(t, http.MethodDelete, reqs[0].Method)
}

func TestClearAllConversations(t *testing.T) {
	fb := newFakeBackend(t)
	fb.handle("DELETE /api/ai/conversations", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	assert.NoError(t, newTestClient(t, fb, Options{}).ClearAllConversations(context.Background()))
}
