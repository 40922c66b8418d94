// ABOUTME: Data model and local storage port for the assistant client
// ABOUTME: Defines Message, Conversation and the Storage key-value interface

package store

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
)

// ErrNotFound is returned when a requested key does not exist
var ErrNotFound = errors.New("not found")

// Role identifies the author of a message
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single entry in a conversation log. Messages are never
// modified after they are appended.
type Message struct {
	ID        string   `json:"id"`
	Role      Role     `json:"role"`
	Content   string   `json:"content"`
	Sources   []Source `json:"sources"`
	Timestamp string   `json:"timestamp"` // RFC 3339, millisecond precision, UTC
	IsError   bool     `json:"isError,omitempty"`
}

// Source is a citation reference attached to an assistant answer. The
// backend decides its shape, so the raw JSON is kept as-is.
type Source json.RawMessage

// MarshalJSON returns the raw citation, or null when empty.
func (s Source) MarshalJSON() ([]byte, error) {
	if len(s) == 0 {
		return []byte("null"), nil
	}
	return s, nil
}

// UnmarshalJSON stores a copy of the raw citation.
func (s *Source) UnmarshalJSON(data []byte) error {
	*s = append((*s)[:0], data...)
	return nil
}

// Label returns a human readable name for the citation: the string
// itself, or the first of title/name/source/url found on an object.
func (s Source) Label() string {
	var text string
	if err := json.Unmarshal(s, &text); err == nil {
		return text
	}

	var obj map[string]any
	if err := json.Unmarshal(s, &obj); err != nil {
		return strings.TrimSpace(string(s))
	}
	for _, key := range []string{"title", "name", "source", "url"} {
		if v, ok := obj[key].(string); ok && v != "" {
			return v
		}
	}
	return strings.TrimSpace(string(s))
}

// Conversation is an identified, optionally titled sequence of messages
type Conversation struct {
	ConversationID string    `json:"conversationId"`
	Title          string    `json:"title,omitempty"`
	Messages       []Message `json:"messages"`
	CreatedAt      string    `json:"createdAt,omitempty"`
	UpdatedAt      string    `json:"updatedAt,omitempty"`
}

// ConversationSummary is one entry of the saved conversation list
type ConversationSummary struct {
	ConversationID string `json:"conversationId"`
	Title          string `json:"title"`
	MessageCount   int    `json:"messageCount"`
	CreatedAt      string `json:"createdAt,omitempty"`
	UpdatedAt      string `json:"updatedAt,omitempty"`
}

// Position is the on-screen location of the floating assistant widget
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Keys under which session state is persisted
const (
	KeyBotHidden      = "ai_bot_hidden_v1"
	KeyBotPosition    = "ai_bot_pos_v1"
	KeyConversationID = "ai_conversation_id_v1"
	KeyMessages       = "ai_messages_v1"
)

// Storage is a string-keyed persistence port with local-storage semantics.
// Get returns ErrNotFound for keys that were never set or were removed.
type Storage interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error

	// Close releases any resources held by the storage
	Close() error
}

// Change is one write in a batch: a Set of Value, or a Remove of Key.
type Change struct {
	Key    string
	Value  string
	Remove bool
}

// SetChange stores value under key.
func SetChange(key, value string) Change {
	return Change{Key: key, Value: value}
}

// RemoveChange deletes key.
func RemoveChange(key string) Change {
	return Change{Key: key, Remove: true}
}

// Batcher is implemented by storages that can apply several changes
// atomically: either every change is visible afterwards or none is.
type Batcher interface {
	Apply(ctx context.Context, changes []Change) error
}
