// ABOUTME: HTTP client for the assistant's /ai/* backend endpoints
// ABOUTME: Handles auth headers, JSON bodies, error classification and the unauthorized hook

package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/2389/mail-assistant/internal/absence"
	"github.com/2389/mail-assistant/internal/auth"
	"github.com/2389/mail-assistant/internal/resolver"
)

// DefaultBaseURL is the console's API root
const DefaultBaseURL = "http://localhost:8000/api"

// DefaultTimeout matches the console's request deadline
const DefaultTimeout = 5 * time.Minute

// maxErrorBody bounds how much of an error response is read for its detail
const maxErrorBody = 64 << 10

// Route keys for capabilities that fall back when not deployed
const (
	routeChat         = "POST /ai/chat"
	routeGetHistory   = "GET /ai/history"
	routeClearHistory = "DELETE /ai/history"
)

// Fallback produces a local answer when the chat endpoint is absent
type Fallback interface {
	Resolve(message string) string
}

// Options configures a Client
type Options struct {
	// BaseURL is the versioned API root. Defaults to DefaultBaseURL.
	BaseURL string

	// HTTPClient is used for all requests. Defaults to a client with Timeout.
	HTTPClient *http.Client

	// Timeout applies when HTTPClient is nil. Defaults to DefaultTimeout.
	Timeout time.Duration

	// Token is sent as a bearer token when non-empty.
	Token auth.Token

	// Fallback answers chat turns when the chat route is absent.
	// Defaults to the built-in resolver corpus.
	Fallback Fallback

	// Absence, when set, remembers absent routes so they are not re-probed.
	Absence *absence.Cache

	// OnUnauthorized is called with the error whenever a call fails
	// with KindUnauthorized.
	OnUnauthorized func(error)

	Logger *slog.Logger
}

// Client talks to the assistant backend
type Client struct {
	baseURL        string
	http           *http.Client
	token          auth.Token
	fallback       Fallback
	absence        *absence.Cache
	onUnauthorized func(error)
	logger         *slog.Logger
	now            func() time.Time
}

// New creates a Client. It fails only when BaseURL is not an http(s) URL.
func New(opts Options) (*Client, error) {
	base := opts.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base URL must use http or https scheme: %q", base)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	fallback := opts.Fallback
	if fallback == nil {
		fallback = resolver.New()
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL:        strings.TrimRight(base, "/"),
		http:           httpClient,
		token:          opts.Token,
		fallback:       fallback,
		absence:        opts.Absence,
		onUnauthorized: opts.OnUnauthorized,
		logger:         logger.With("component", "client"),
		now:            time.Now,
	}, nil
}

// do sends a JSON request and decodes a JSON response into out (if non-nil).
// Every failure is returned as *Error.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	op := method + " " + path

	if err := c.checkToken(op); err != nil {
		return err
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return &Error{Kind: KindBadRequest, Op: op, Err: fmt.Errorf("encoding request: %w", err)}
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return &Error{Kind: KindBadRequest, Op: op, Err: fmt.Errorf("creating request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if !c.token.Empty() {
		req.Header.Set("Authorization", "Bearer "+c.token.String())
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return c.fail(&Error{Kind: requestErrorKind(ctx, err), Op: op, Err: err})
	}
	defer resp.Body.Close()

	c.logger.Debug("backend call",
		"op", op,
		"status", resp.StatusCode,
		"duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return c.fail(&Error{
			Kind:   statusKind(resp.StatusCode),
			Op:     op,
			Status: resp.StatusCode,
			Detail: errorDetail(data),
		})
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return &Error{Kind: KindServer, Op: op, Status: resp.StatusCode, Err: fmt.Errorf("parsing response: %w", err)}
	}
	return nil
}

// checkToken fails with KindUnauthorized when the bearer token has expired.
func (c *Client) checkToken(op string) error {
	if err := c.token.Check(c.now()); err != nil {
		return c.fail(&Error{Kind: KindUnauthorized, Op: op, Err: err})
	}
	return nil
}

// fail runs the unauthorized hook when applicable and returns err.
func (c *Client) fail(err *Error) error {
	if err.Kind == KindUnauthorized && c.onUnauthorized != nil {
		c.onUnauthorized(err)
	}
	return err
}

// routeAbsent reports whether route is remembered as not deployed.
func (c *Client) routeAbsent(route string) bool {
	return c.absence != nil && c.absence.IsAbsent(route)
}

// markAbsent remembers route as not deployed.
func (c *Client) markAbsent(route string) {
	if c.absence != nil {
		reprobe := c.absence.MarkAbsent(route)
		c.logger.Debug("route marked absent", "route", route, "reprobe_at", reprobe)
	}
}

// markPresent forgets any absence recorded for route.
func (c *Client) markPresent(route string) {
	if c.absence != nil && c.absence.Forget(route) {
		c.logger.Info("route available again", "route", route)
	}
}

// pathID escapes an identifier for use as a single path segment.
func pathID(id string) string {
	return url.PathEscape(id)
}
