// Package store holds the assistant's data model and its local persistence.
//
// # Data Models
//
//   - Message: one entry of a conversation log (user or assistant)
//   - Source: a citation attached to an assistant answer, kept as raw JSON
//   - Conversation: an identified, titled message sequence
//   - ConversationSummary: one row of the saved-conversation list
//   - Position: where the floating assistant widget sits on screen
//
// # Storage
//
// Storage is a string-keyed port with browser local-storage semantics:
// Get, Set and Remove on opaque string values. Two implementations exist:
//
//   - MemoryStorage: process-lifetime map, used by tests
//   - SQLiteStorage: a single local_storage table in a SQLite file
//
// Session state uses four keys (KeyBotHidden, KeyBotPosition,
// KeyConversationID, KeyMessages). Values are written by the conversation
// package; this package never interprets them.
//
// # Usage
//
//	s, err := store.NewSQLiteStorage("/home/me/.local/share/mail-assistant/state.db")
//	if err != nil {
//	    return err
//	}
//	defer s.Close()
package store
