// Package conversation holds the assistant's conversation state machine.
//
// # Overview
//
// A Session sits between a user interface and the backend client. It owns
// the ordered message log, the active conversation id, the loading and
// error flags, and the floating widget's settings, and mirrors them into a
// store.Storage so a restarted process resumes where it left off.
//
//	s, err := conversation.NewSession(ctx, conversation.Options{
//	    Transport: apiClient,
//	    Storage:   storage,
//	    OpenDelay: conversation.DefaultOpenDelay,
//	})
//
// # Turns
//
// SendMessage appends the user message immediately, calls the transport,
// then appends exactly one assistant message: the answer, or an error
// message flagged IsError. Only successful turns are written to storage,
// so the stored snapshot always matches some completed turn.
//
// States are idle and sending. A SendMessage while another is in flight
// is dropped, not queued. The loading flag is cleared on every exit path.
//
// The first conversation id returned by the backend is adopted and sent
// with every later turn until ClearConversation.
//
// # Saved Conversations
//
// SaveCurrentConversation, GetConversationsList, GetConversationDetail,
// DeleteConversation and ClearAllConversations pass through to the
// backend. Failures are logged and reported as false, nil or empty.
//
// # Events
//
// Subscribe returns a channel of Events (message added, loading changed,
// conversation id adopted, cleared, reloaded, modal and widget changes).
// Slow subscribers miss events rather than blocking the session.
package conversation
