// ABOUTME: Session is the assistant's conversation state machine
// ABOUTME: Owns the message log, conversation id, loading/error flags and widget state

package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/2389/mail-assistant/internal/client"
	"github.com/2389/mail-assistant/internal/store"
)

// DefaultOpenDelay is how long OpenModalWithMessage waits for the
// window to open before sending.
const DefaultOpenDelay = 100 * time.Millisecond

// Text appended and recorded when a turn fails
const (
	errorReply       = "抱歉，处理您的问题时遇到了错误。请稍后重试。"
	defaultErrorText = "发送失败，请稍后重试"
)

// titleMaxRunes bounds the title derived for a saved conversation
const titleMaxRunes = 30

// persistTimeout bounds local storage writes detached from the caller's context
const persistTimeout = 5 * time.Second

// Transport is what the session needs from the backend client
type Transport interface {
	Chat(ctx context.Context, req client.ChatRequest) (*client.ChatResponse, error)
	GetHistory(ctx context.Context, conversationID string) (*client.HistoryResponse, error)
	ClearHistory(ctx context.Context, conversationID string) (*client.ClearResponse, error)
	SaveConversation(ctx context.Context, req client.SaveRequest) error
	ListConversations(ctx context.Context) *client.ListResponse
	GetConversationDetail(ctx context.Context, conversationID string) (*client.DetailResponse, error)
	DeleteConversation(ctx context.Context, conversationID string) error
	ClearAllConversations(ctx context.Context) error
}

// Options configures a Session
type Options struct {
	Transport Transport
	Storage   store.Storage

	// OpenDelay is the pause in OpenModalWithMessage. Zero sends immediately.
	OpenDelay time.Duration

	Logger *slog.Logger
}

// Session holds the active conversation and mirrors it into Storage.
// It is safe for concurrent use; at most one send is in flight at a time.
type Session struct {
	mu           sync.Mutex
	messages     []store.Message
	convID       string
	loading      bool
	errText      string
	modalVisible bool
	botHidden    bool
	botPosition  *store.Position

	// gen changes whenever the log is replaced, so a reply to a turn
	// from a cleared or reloaded conversation is discarded.
	gen uint64

	transport Transport
	storage   store.Storage
	openDelay time.Duration
	events    *broadcaster
	logger    *slog.Logger
	now       func() time.Time
}

// NewSession creates a Session and restores any state found in storage.
func NewSession(ctx context.Context, opts Options) (*Session, error) {
	if opts.Transport == nil {
		return nil, errors.New("transport is required")
	}
	if opts.Storage == nil {
		return nil, errors.New("storage is required")
	}
	if opts.OpenDelay < 0 {
		return nil, fmt.Errorf("open delay must not be negative: %s", opts.OpenDelay)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "session")

	s := &Session{
		transport: opts.Transport,
		storage:   opts.Storage,
		openDelay: opts.OpenDelay,
		events:    newBroadcaster(logger),
		logger:    logger,
		now:       time.Now,
	}
	s.mu.Lock()
	s.loadLocked(ctx)
	s.mu.Unlock()
	return s, nil
}

// Close ends all event subscriptions. Storage and transport are owned by the caller.
func (s *Session) Close() {
	s.events.Close()
}

// Subscribe returns a channel of state changes, closed when ctx is done.
func (s *Session) Subscribe(ctx context.Context) <-chan Event {
	ch, _ := s.events.Subscribe(ctx)
	return ch
}

// SendMessage runs one turn. Blank text, or a call while another send is
// in flight, is a no-op. The user message is appended before the backend
// call; exactly one assistant message (answer or error) follows it.
//
// Turn failures are recorded in the log and in Error(). Only an
// unauthorized failure is returned, since it ends the operator's session.
func (s *Session) SendMessage(ctx context.Context, text string, pageContext client.PageContext) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	s.mu.Lock()
	if s.loading {
		s.mu.Unlock()
		s.logger.Debug("send dropped, another send is in flight")
		return nil
	}
	userMsg := s.newMessage(store.RoleUser, "user", text)
	s.messages = append(s.messages, userMsg)
	s.loading = true
	s.errText = ""
	gen := s.gen
	req := client.ChatRequest{Message: text, PageContext: pageContext}
	if s.convID != "" {
		id := s.convID
		req.ConversationID = &id
	}
	s.events.Publish(Event{Type: EventMessageAdded, Message: &userMsg})
	s.events.Publish(Event{Type: EventLoadingChanged, Loading: true})
	s.mu.Unlock()

	defer s.finishSend()

	resp, err := s.transport.Chat(ctx, req)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.gen != gen {
		s.logger.Debug("conversation replaced during send, dropping reply")
		if errors.Is(err, client.ErrUnauthorized) {
			return fmt.Errorf("sending message: %w", err)
		}
		return nil
	}

	if err != nil {
		s.logger.Error("failed to send message", "error", err, "conversation_id", s.convID)
		s.errText = err.Error()
		if s.errText == "" {
			s.errText = defaultErrorText
		}
		errMsg := s.newMessage(store.RoleAssistant, "error", errorReply)
		errMsg.IsError = true
		s.messages = append(s.messages, errMsg)
		s.events.Publish(Event{Type: EventMessageAdded, Message: &errMsg})

		if errors.Is(err, client.ErrUnauthorized) {
			return fmt.Errorf("sending message: %w", err)
		}
		return nil
	}

	if resp.ConversationID != "" {
		switch {
		case s.convID == "":
			s.convID = resp.ConversationID
			s.events.Publish(Event{Type: EventConversationChanged, ConversationID: s.convID})
		case s.convID != resp.ConversationID:
			s.logger.Warn("backend returned a different conversation id, keeping current",
				"conversation_id", s.convID,
				"returned_id", resp.ConversationID)
		}
	}

	sources := resp.Sources
	if sources == nil {
		sources = []store.Source{}
	}
	reply := s.newMessage(store.RoleAssistant, "assistant", resp.Answer)
	reply.Sources = sources
	s.messages = append(s.messages, reply)
	s.events.Publish(Event{Type: EventMessageAdded, Message: &reply})

	s.logger.Debug("turn completed",
		"conversation_id", s.convID,
		"fallback", resp.Fallback,
		"messages", len(s.messages))

	s.persistLocked(ctx)
	return nil
}

// finishSend clears the loading flag.
func (s *Session) finishSend() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	s.events.Publish(Event{Type: EventLoadingChanged, Loading: false})
}

// newMessage builds a message stamped with the session clock.
// Callers hold s.mu.
func (s *Session) newMessage(role store.Role, suffix, content string) store.Message {
	now := s.now().UTC()
	return store.Message{
		ID:        fmt.Sprintf("msg_%d_%s_%s", now.UnixMilli(), suffix, uuid.New().String()),
		Role:      role,
		Content:   content,
		Timestamp: now.Format(timestampLayout),
	}
}

// SaveCurrentConversation sends the active log to the backend's saved
// conversations. It reports false without any request when there are no
// messages or no conversation id yet.
func (s *Session) SaveCurrentConversation(ctx context.Context) bool {
	s.mu.Lock()
	msgs := cloneMessages(s.messages)
	convID := s.convID
	s.mu.Unlock()

	if len(msgs) == 0 || convID == "" {
		return false
	}

	err := s.transport.SaveConversation(ctx, client.SaveRequest{
		ConversationID: convID,
		Messages:       msgs,
		Title:          deriveTitle(msgs),
	})
	if err != nil {
		s.logger.Error("failed to save conversation", "error", err, "conversation_id", convID)
		return false
	}

	s.logger.Info("conversation saved", "conversation_id", convID, "messages", len(msgs))
	return true
}

// ClearConversation starts a new conversation. A non-empty log is saved
// first on a best-effort basis; clearing happens whether or not that works.
func (s *Session) ClearConversation(ctx context.Context) {
	if s.HasMessages() {
		s.SaveCurrentConversation(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages = nil
	s.convID = ""
	s.errText = ""
	s.gen++

	removeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()
	changes := []store.Change{store.RemoveChange(store.KeyMessages), store.RemoveChange(store.KeyConversationID)}
	if err := s.writeSnapshot(removeCtx, changes); err != nil {
		s.logger.Error("failed to remove stored conversation", "error", err)
	}

	s.events.Publish(Event{Type: EventCleared})
}

// GetConversationsList returns the saved conversations, empty on failure.
func (s *Session) GetConversationsList(ctx context.Context) []store.ConversationSummary {
	resp := s.transport.ListConversations(ctx)
	if resp == nil || resp.Conversations == nil {
		return []store.ConversationSummary{}
	}
	return resp.Conversations
}

// GetConversationDetail returns one saved conversation, or nil on failure.
func (s *Session) GetConversationDetail(ctx context.Context, conversationID string) *store.Conversation {
	resp, err := s.transport.GetConversationDetail(ctx, conversationID)
	if err != nil {
		s.logger.Error("failed to get conversation detail", "error", err, "conversation_id", conversationID)
		return nil
	}
	return resp.Conversation
}

// DeleteConversation removes one saved conversation.
func (s *Session) DeleteConversation(ctx context.Context, conversationID string) bool {
	if err := s.transport.DeleteConversation(ctx, conversationID); err != nil {
		s.logger.Error("failed to delete conversation", "error", err, "conversation_id", conversationID)
		return false
	}
	return true
}

// ClearAllConversations removes every saved conversation.
func (s *Session) ClearAllConversations(ctx context.Context) bool {
	if err := s.transport.ClearAllConversations(ctx); err != nil {
		s.logger.Error("failed to clear conversations", "error", err)
		return false
	}
	return true
}

// History returns the backend's history for the active conversation.
// With no active conversation the result is empty and no request is made.
func (s *Session) History(ctx context.Context) ([]store.Message, error) {
	convID := s.ConversationID()
	if convID == "" {
		return []store.Message{}, nil
	}

	resp, err := s.transport.GetHistory(ctx, convID)
	if err != nil {
		return nil, fmt.Errorf("getting history: %w", err)
	}
	return resp.Messages, nil
}

// ClearRemoteHistory clears the backend's history for the active
// conversation. The local log is left untouched.
func (s *Session) ClearRemoteHistory(ctx context.Context) (bool, error) {
	convID := s.ConversationID()
	if convID == "" {
		return false, nil
	}

	resp, err := s.transport.ClearHistory(ctx, convID)
	if err != nil {
		return false, fmt.Errorf("clearing history: %w", err)
	}
	return resp.Success, nil
}

// OpenModal shows the assistant window.
func (s *Session) OpenModal() {
	s.setModal(true)
}

// CloseModal hides the assistant window.
func (s *Session) CloseModal() {
	s.setModal(false)
}

func (s *Session) setModal(visible bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.modalVisible = visible
	s.events.Publish(Event{Type: EventModalChanged, ModalVisible: visible})
}

// OpenModalWithMessage opens the window, waits the open delay, then sends text.
func (s *Session) OpenModalWithMessage(ctx context.Context, text string, pageContext client.PageContext) error {
	s.OpenModal()

	if s.openDelay > 0 {
		timer := time.NewTimer(s.openDelay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}

	return s.SendMessage(ctx, text, pageContext)
}

// Messages returns a copy of the message log.
func (s *Session) Messages() []store.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneMessages(s.messages)
}

// HasMessages reports whether the log is non-empty.
func (s *Session) HasMessages() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages) > 0
}

// LastMessage returns the newest message, if any.
func (s *Session) LastMessage() (store.Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.messages) == 0 {
		return store.Message{}, false
	}
	return s.messages[len(s.messages)-1], true
}

// ConversationID returns the active conversation id, empty when none.
func (s *Session) ConversationID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.convID
}

// Loading reports whether a send is in flight.
func (s *Session) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Error returns the last turn failure, empty when the last turn succeeded.
func (s *Session) Error() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errText
}

// ModalVisible reports whether the assistant window is open.
func (s *Session) ModalVisible() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.modalVisible
}

// BotHidden reports whether the floating assistant is hidden.
func (s *Session) BotHidden() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.botHidden
}

// BotPosition returns the floating assistant's position, if one was set.
func (s *Session) BotPosition() (store.Position, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.botPosition == nil {
		return store.Position{}, false
	}
	return *s.botPosition, true
}

// deriveTitle names a saved conversation after its first user message.
func deriveTitle(msgs []store.Message) string {
	for _, m := range msgs {
		if m.Role != store.RoleUser {
			continue
		}
		title := strings.Join(strings.Fields(m.Content), " ")
		runes := []rune(title)
		if len(runes) > titleMaxRunes {
			return string(runes[:titleMaxRunes]) + "…"
		}
		return title
	}
	return ""
}

func cloneMessages(msgs []store.Message) []store.Message {
	out := make([]store.Message, len(msgs))
	copy(out, msgs)
	return out
}
