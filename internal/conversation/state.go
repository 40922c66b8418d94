// ABOUTME: Local storage mirror of the session: load, persist and widget settings
// ABOUTME: Corrupt or missing entries are treated as absent, never as errors

package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/2389/mail-assistant/internal/store"
)

// timestampLayout is ISO-8601 with millisecond precision in UTC
const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Reload replaces the in-memory state with what local storage holds.
// A send in flight keeps running but its reply is discarded.
func (s *Session) Reload(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages = nil
	s.convID = ""
	s.errText = ""
	s.gen++
	s.loadLocked(ctx)

	s.events.Publish(Event{Type: EventReloaded, ConversationID: s.convID})
}

// loadLocked reads all four keys. Callers hold s.mu.
func (s *Session) loadLocked(ctx context.Context) {
	if v, ok := s.read(ctx, store.KeyBotHidden); ok {
		s.botHidden = v == "1"
	} else {
		s.botHidden = false
	}

	s.botPosition = nil
	if v, ok := s.read(ctx, store.KeyBotPosition); ok {
		if pos, ok := parsePosition(v); ok {
			s.botPosition = &pos
		} else {
			s.logger.Warn("ignoring malformed stored position", "value", v)
		}
	}

	if v, ok := s.read(ctx, store.KeyConversationID); ok && v != "" {
		s.convID = v
	}

	if v, ok := s.read(ctx, store.KeyMessages); ok {
		var msgs []store.Message
		if err := json.Unmarshal([]byte(v), &msgs); err != nil {
			s.logger.Warn("ignoring malformed stored messages", "error", err)
		} else {
			s.messages = msgs
		}
	}

	s.logger.Debug("state loaded",
		"conversation_id", s.convID,
		"messages", len(s.messages),
		"bot_hidden", s.botHidden)
}

// read returns a stored value, treating any failure as absent.
func (s *Session) read(ctx context.Context, key string) (string, bool) {
	v, err := s.storage.Get(ctx, key)
	if errors.Is(err, store.ErrNotFound) {
		return "", false
	}
	if err != nil {
		s.logger.Warn("failed to read stored state", "error", err, "key", key)
		return "", false
	}
	return v, true
}

// parsePosition accepts {"x":<number>,"y":<number>} only.
func parsePosition(v string) (store.Position, bool) {
	var raw map[string]any
	if err := json.Unmarshal([]byte(v), &raw); err != nil {
		return store.Position{}, false
	}
	x, okX := raw["x"].(float64)
	y, okY := raw["y"].(float64)
	if !okX || !okY {
		return store.Position{}, false
	}
	return store.Position{X: x, Y: y}, true
}

// persistLocked writes the message log and conversation id as one
// snapshot. Writes outlive a canceled caller context. Callers hold s.mu.
func (s *Session) persistLocked(ctx context.Context) {
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()

	data, err := json.Marshal(s.messages)
	if err != nil {
		s.logger.Error("failed to encode messages", "error", err)
		return
	}
	idChange := store.RemoveChange(store.KeyConversationID)
	if s.convID != "" {
		idChange = store.SetChange(store.KeyConversationID, s.convID)
	}
	changes := []store.Change{store.SetChange(store.KeyMessages, string(data)), idChange}
	if err := s.writeSnapshot(saveCtx, changes); err != nil {
		s.logger.Error("failed to persist conversation", "error", err, "conversation_id", s.convID)
	}
}

// writeSnapshot applies changes so that storage ends up with all of them
// or none. Storages that are not a store.Batcher get the changes one at a
// time, and the keys already written are restored when a later one fails.
func (s *Session) writeSnapshot(ctx context.Context, changes []store.Change) error {
	if b, ok := s.storage.(store.Batcher); ok {
		return b.Apply(ctx, changes)
	}

	prev := make([]store.Change, 0, len(changes))
	for _, c := range changes {
		v, err := s.storage.Get(ctx, c.Key)
		switch {
		case errors.Is(err, store.ErrNotFound):
			prev = append(prev, store.RemoveChange(c.Key))
		case err != nil:
			return fmt.Errorf("reading %s: %w", c.Key, err)
		default:
			prev = append(prev, store.SetChange(c.Key, v))
		}
	}

	for i, c := range changes {
		if err := s.applyChange(ctx, c); err != nil {
			for j := i - 1; j >= 0; j-- {
				if rerr := s.applyChange(ctx, prev[j]); rerr != nil {
					s.logger.Error("failed to restore stored state", "error", rerr, "key", prev[j].Key)
				}
			}
			return err
		}
	}
	return nil
}

func (s *Session) applyChange(ctx context.Context, c store.Change) error {
	if c.Remove {
		return s.storage.Remove(ctx, c.Key)
	}
	return s.storage.Set(ctx, c.Key, c.Value)
}

// SetBotHidden shows or hides the floating assistant and remembers the choice.
func (s *Session) SetBotHidden(ctx context.Context, hidden bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.botHidden = hidden
	var err error
	if hidden {
		err = s.storage.Set(ctx, store.KeyBotHidden, "1")
	} else {
		err = s.storage.Remove(ctx, store.KeyBotHidden)
	}
	if err != nil {
		s.logger.Error("failed to persist bot visibility", "error", err)
	}

	s.events.Publish(Event{Type: EventBotChanged, BotHidden: hidden, BotPosition: s.botPosition})
}

// ShowBot un-hides the floating assistant.
func (s *Session) ShowBot(ctx context.Context) {
	s.SetBotHidden(ctx, false)
}

// HideBot hides the floating assistant.
func (s *Session) HideBot(ctx context.Context) {
	s.SetBotHidden(ctx, true)
}

// SetBotPosition moves the floating assistant and remembers where.
func (s *Session) SetBotPosition(ctx context.Context, pos store.Position) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.botPosition = &pos
	data, err := json.Marshal(pos)
	if err == nil {
		err = s.storage.Set(ctx, store.KeyBotPosition, string(data))
	}
	if err != nil {
		s.logger.Error("failed to persist bot position", "error", err)
	}

	p := pos
	s.events.Publish(Event{Type: EventBotChanged, BotHidden: s.botHidden, BotPosition: &p})
}
