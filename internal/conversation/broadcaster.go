// ABOUTME: In-memory fan-out of session state changes to subscribers
// ABOUTME: Lets a UI follow messages, loading and widget state without polling

package conversation

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/2389/mail-assistant/internal/store"
)

const (
	// subscriberBufferSize is the channel buffer for each subscriber.
	subscriberBufferSize = 64
)

// EventType names a kind of session change
type EventType string

const (
	EventMessageAdded        EventType = "message_added"
	EventLoadingChanged      EventType = "loading_changed"
	EventConversationChanged EventType = "conversation_changed"
	EventCleared             EventType = "cleared"
	EventReloaded            EventType = "reloaded"
	EventModalChanged        EventType = "modal_changed"
	EventBotChanged          EventType = "bot_changed"
)

// Event is one session state change. Only the fields relevant to Type are set.
type Event struct {
	Type           EventType
	Message        *store.Message
	ConversationID string
	Loading        bool
	ModalVisible   bool
	BotHidden      bool
	BotPosition    *store.Position
}

// broadcaster provides in-memory pub/sub for session events.
// Publish never blocks: events are dropped for subscribers whose buffers are full.
type broadcaster struct {
	mu          sync.RWMutex
	subscribers map[string]chan Event
	closed      bool
	logger      *slog.Logger
}

func newBroadcaster(logger *slog.Logger) *broadcaster {
	if logger == nil {
		logger = slog.Default()
	}
	return &broadcaster{
		subscribers: make(map[string]chan Event),
		logger:      logger.With("component", "broadcaster"),
	}
}

// Subscribe registers a subscriber and returns its channel and id.
// The subscription is removed and its channel closed when ctx is done.
func (b *broadcaster) Subscribe(ctx context.Context) (<-chan Event, string) {
	subID := uuid.New().String()
	ch := make(chan Event, subscriberBufferSize)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(ch)
		return ch, subID
	}
	b.subscribers[subID] = ch
	b.mu.Unlock()

	b.logger.Debug("subscriber added", "sub_id", subID)

	go func() {
		<-ctx.Done()
		b.Unsubscribe(subID)
	}()

	return ch, subID
}

// Publish sends event to every subscriber.
func (b *broadcaster) Publish(event Event) {
	// Sends happen under the read lock so Unsubscribe cannot close a
	// channel mid-send; every send is non-blocking.
	b.mu.RLock()
	defer b.mu.RUnlock()

	for id, ch := range b.subscribers {
		select {
		case ch <- event:
		default:
			b.logger.Debug("dropped event for slow subscriber",
				"sub_id", id,
				"event_type", event.Type)
		}
	}
}

// Unsubscribe removes a subscription and closes its channel.
func (b *broadcaster) Unsubscribe(subID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch, ok := b.subscribers[subID]
	if !ok {
		return
	}
	delete(b.subscribers, subID)
	close(ch)

	b.logger.Debug("subscriber removed", "sub_id", subID)
}

// Close closes all subscriber channels. Later subscriptions get a closed channel.
func (b *broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for subID, ch := range b.subscribers {
		close(ch)
		delete(b.subscribers, subID)
	}

	b.logger.Debug("broadcaster closed")
}

// count returns the number of live subscribers.
func (b *broadcaster) count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
