// ABOUTME: Shared helpers and tests for the HTTP client core
// ABOUTME: Covers construction, auth headers, error classification, and the unauthorized hook

package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/mail-assistant/internal/absence"
	"github.com/2389/mail-assistant/internal/auth"
)

// recordedRequest is what the fake backend saw
type recordedRequest struct {
	Method string
	Path   string
	Header http.Header
	Body   map[string]any
}

// fakeBackend is an httptest server with per-route handlers
type fakeBackend struct {
	*httptest.Server
	mu       sync.Mutex
	requests []recordedRequest
	routes   map[string]http.HandlerFunc
}

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()

	fb := &fakeBackend{routes: make(map[string]http.HandlerFunc)}
	fb.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recordedRequest{Method: r.Method, Path: r.URL.EscapedPath(), Header: r.Header.Clone()}
		if r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(&rec.Body)
		}
		fb.mu.Lock()
		fb.requests = append(fb.requests, rec)
		h, ok := fb.routes[r.Method+" "+r.URL.EscapedPath()]
		fb.mu.Unlock()

		if !ok {
			http.NotFound(w, r)
			return
		}
		h(w, r)
	}))
	t.Cleanup(fb.Close)
	return fb
}

func (fb *fakeBackend) handle(route string, h http.HandlerFunc) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.routes[route] = h
}

func (fb *fakeBackend) handleJSON(route string, status int, body any) {
	fb.handle(route, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	})
}

func (fb *fakeBackend) recorded() []recordedRequest {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	out := make([]recordedRequest, len(fb.requests))
	copy(out, fb.requests)
	return out
}

func newTestClient(t *testing.T, fb *fakeBackend, opts Options) *Client {
	t.Helper()
	opts.BaseURL = fb.URL + "/api"
	c, err := New(opts)
	require.NoError(t, err)
	return c
}

func TestNew_RejectsNonHTTPBaseURL(t *testing.T) {
	_, err := New(Options{BaseURL: "ftp://example.com/api"})
	assert.Error(t, err)

	c, err := New(Options{})
	require.NoError(t, err)
	assert.Equal(t, DefaultBaseURL, c.baseURL)
}

func TestNew_TrimsTrailingSlash(t *testing.T) {
	c, err := New(Options{BaseURL: "http://example.com/api/"})
	require.NoError(t, err)
	assert.Equal(t, "http://example.com/api", c.baseURL)
}

func TestDo_SendsBearerToken(t *testing.T) {
	fb := newFakeBackend(t)
	fb.handleJSON("GET /api/ai/conversations", http.StatusOK, map[string]any{"conversations": []any{}})

	c := newTestClient(t, fb, Options{Token: auth.ParseToken("opaque-token")})
	c.ListConversations(context.Background())

	reqs := fb.recorded()
	require.Len(t, reqs, 1)
	assert.Equal(t, "Bearer opaque-token", reqs[0].Header.Get("Authorization"))
}

func TestDo_NoTokenNoHeader(t *testing.T) {
	fb := newFakeBackend(t)
	fb.handleJSON("GET /api/ai/conversations", http.StatusOK, map[string]any{"conversations": []any{}})

	c := newTestClient(t, fb, Options{})
	c.ListConversations(context.Background())

	reqs := fb.recorded()
	require.Len(t, reqs, 1)
	assert.Empty(t, reqs[0].Header.Get("Authorization"))
}

func TestDo_StatusClassification(t *testing.T) {
	tests := []struct {
		status   int
		kind     Kind
		sentinel error
	}{
		{http.StatusBadRequest, KindBadRequest, ErrBadRequest},
		{http.StatusUnauthorized, KindUnauthorized, ErrUnauthorized},
		{http.StatusForbidden, KindForbidden, ErrForbidden},
		{http.StatusNotFound, KindNotFound, ErrNotFound},
		{http.StatusUnprocessableEntity, KindBadRequest, ErrBadRequest},
		{http.StatusInternalServerError, KindServer, ErrServer},
		{http.StatusBadGateway, KindServer, ErrServer},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			fb := newFakeBackend(t)
			fb.handleJSON("DELETE /api/ai/conversations", tt.status, map[string]any{"detail": "boom"})

			err := newTestClient(t, fb, Options{}).ClearAllConversations(context.Background())
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.sentinel)

			kind, ok := KindOf(err)
			require.True(t, ok)
			assert.Equal(t, tt.kind, kind)

			var te *Error
			require.True(t, errors.As(err, &te))
			assert.Equal(t, tt.status, te.Status)
			assert.Equal(t, "boom", te.Detail)
		})
	}
}

func TestDo_NetworkError(t *testing.T) {
	fb := newFakeBackend(t)
	c := newTestClient(t, fb, Options{})
	fb.Close()

	err := c.DeleteConversation(context.Background(), "conv-1")
	assert.ErrorIs(t, err, ErrNetwork)
}

func TestDo_CanceledContext(t *testing.T) {
	fb := newFakeBackend(t)
	c := newTestClient(t, fb, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := c.DeleteConversation(ctx, "conv-1")
	assert.ErrorIs(t, err, ErrCanceled)
}

func TestDo_MalformedResponse(t *testing.T) {
	fb := newFakeBackend(t)
	fb.handle("GET /api/ai/conversations/conv-1", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("{not json"))
	})

	_, err := newTestClient(t, fb, Options{}).GetConversationDetail(context.Background(), "conv-1")
	assert.ErrorIs(t, err, ErrServer)
}

func TestDo_UnauthorizedHook(t *testing.T) {
	fb := newFakeBackend(t)
	fb.handleJSON("DELETE /api/ai/conversations", http.StatusUnauthorized, map[string]any{"detail": "登录已过期"})

	var hooked []error
	c := newTestClient(t, fb, Options{OnUnauthorized: func(err error) { hooked = append(hooked, err) }})

	err := c.ClearAllConversations(context.Background())
	assert.ErrorIs(t, err, ErrUnauthorized)
	require.Len(t, hooked, 1)
	assert.ErrorIs(t, hooked[0], ErrUnauthorized)
}

func TestDo_ExpiredTokenShortCircuits(t *testing.T) {
	fb := newFakeBackend(t)
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "operator",
		"exp": time.Now().Add(-time.Hour).Unix(),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	hookCalls := 0
	c := newTestClient(t, fb, Options{
		Token:          auth.ParseToken(raw),
		OnUnauthorized: func(error) { hookCalls++ },
	})

	err = c.DeleteConversation(context.Background(), "conv-1")
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.ErrorIs(t, err, auth.ErrExpiredToken)
	assert.Equal(t, 1, hookCalls)
	assert.Empty(t, fb.recorded(), "no request should reach the backend")
}

func TestExpiredTokenBeatsAbsentRoute(t *testing.T) {
	fb := newFakeBackend(t)
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "operator",
		"exp": time.Now().Add(-time.Hour).Unix(),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	cache := absence.New(time.Minute, 16)
	defer cache.Close()
	for _, route := range []string{routeChat, routeGetHistory, routeClearHistory} {
		cache.MarkAbsent(route)
	}

	hookCalls := 0
	c := newTestClient(t, fb, Options{
		Token:          auth.ParseToken(raw),
		Absence:        cache,
		OnUnauthorized: func(error) { hookCalls++ },
	})
	ctx := context.Background()

	chat, err := c.Chat(ctx, ChatRequest{Message: "知识库如何使用"})
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Nil(t, chat, "no local answer for an expired session")

	hist, err := c.GetHistory(ctx, "conv-1")
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Nil(t, hist)

	cleared, err := c.ClearHistory(ctx, "conv-1")
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Nil(t, cleared)

	assert.Equal(t, 3, hookCalls)
	assert.Empty(t, fb.recorded())
}

func TestError_Message(t *testing.T) {
	err := &Error{Kind: KindServer, Op: "POST /ai/chat", Status: 500, Detail: "db down"}
	assert.Equal(t, "POST /ai/chat: server error (status 500): db down", err.Error())

	err = &Error{Kind: KindNetwork, Op: "GET /ai/conversations", Err: errors.New("connection refused")}
	assert.Equal(t, "GET /ai/conversations: network error: connection refused", err.Error())
}

func TestErrorDetail(t *testing.T) {
	assert.Equal(t, "bad", errorDetail([]byte(`{"detail":"bad"}`)))
	assert.Equal(t, "msg", errorDetail([]byte(`{"message":"msg"}`)))
	assert.Equal(t, `[{"loc":["body"]}]`, errorDetail([]byte(`{"detail":[{"loc":["body"]}]}`)))
	assert.Equal(t, "", errorDetail([]byte(`<html>`)))
}

func TestKindOf_NonTransportError(t *testing.T) {
	_, ok := KindOf(errors.New("other"))
	assert.False(t, ok)
}
