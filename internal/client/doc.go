// Package client implements the HTTP transport for the assistant backend.
//
// # Overview
//
// The Client wraps the /ai/* endpoints of the console API. It is a thin,
// fails-closed layer: responses are decoded as-is and every failure is
// returned as a *Error carrying a Kind from a closed set.
//
// # Endpoints
//
//   - Chat:                  POST   /ai/chat
//   - GetHistory:            GET    /ai/history/{conversationId}
//   - ClearHistory:          DELETE /ai/history/{conversationId}
//   - SaveConversation:      POST   /ai/conversations/save
//   - ListConversations:     GET    /ai/conversations
//   - GetConversationDetail: GET    /ai/conversations/{id}
//   - DeleteConversation:    DELETE /ai/conversations/{id}
//   - ClearAllConversations: DELETE /ai/conversations
//
// # Fallback
//
// A backend may not have deployed every capability yet. A 404 from the
// chat or history routes is therefore not an error:
//
//   - Chat answers from the local Fallback (the resolver corpus)
//   - GetHistory returns an empty history
//   - ClearHistory reports success
//
// ListConversations never fails; any error yields an empty list. The
// remaining calls return errors unchanged. When an absence.Cache is
// attached, routes that answered 404 are not requested again until the
// cache entry expires.
//
// # Errors
//
// Match kinds with errors.Is:
//
//	resp, err := c.Chat(ctx, req)
//	if errors.Is(err, client.ErrUnauthorized) {
//	    // operator session is over
//	}
//
// An expired JWT bearer token fails with KindUnauthorized before any
// request is sent. OnUnauthorized, when set, observes every such failure.
package client
