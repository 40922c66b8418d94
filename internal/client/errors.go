// ABOUTME: Transport error taxonomy for backend calls
// ABOUTME: Classifies HTTP statuses and network failures into a closed set of kinds

package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind is the class of a transport failure
type Kind int

const (
	KindNetwork      Kind = iota // no response: DNS, connection, timeout
	KindCanceled                 // caller canceled the context
	KindNotFound                 // 404: capability not deployed
	KindUnauthorized             // 401: operator session is over
	KindForbidden                // 403
	KindBadRequest               // other 4xx
	KindServer                   // 5xx or an unreadable response
)

// Sentinel errors matched with errors.Is against any *Error of that kind
var (
	ErrNetwork      = errors.New("network error")
	ErrCanceled     = errors.New("request canceled")
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrBadRequest   = errors.New("bad request")
	ErrServer       = errors.New("server error")
)

func (k Kind) sentinel() error {
	switch k {
	case KindCanceled:
		return ErrCanceled
	case KindNotFound:
		return ErrNotFound
	case KindUnauthorized:
		return ErrUnauthorized
	case KindForbidden:
		return ErrForbidden
	case KindBadRequest:
		return ErrBadRequest
	case KindServer:
		return ErrServer
	default:
		return ErrNetwork
	}
}

// String returns the kind's name.
func (k Kind) String() string {
	return k.sentinel().Error()
}

// Error describes a failed backend call.
type Error struct {
	Kind   Kind
	Op     string // e.g. "POST /ai/chat"
	Status int    // HTTP status, 0 when no response was received
	Detail string // backend-provided detail or message, if any
	Err    error  // underlying cause, if any
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	b.WriteString(": ")
	b.WriteString(e.Kind.String())
	if e.Status != 0 {
		fmt.Fprintf(&b, " (status %d)", e.Status)
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	} else if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Is matches the sentinel for e.Kind.
func (e *Error) Is(target error) bool {
	return target == e.Kind.sentinel()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of err, and false when err is not a transport error.
func KindOf(err error) (Kind, bool) {
	var te *Error
	if errors.As(err, &te) {
		return te.Kind, true
	}
	return 0, false
}

// statusKind maps a non-2xx HTTP status to a Kind.
func statusKind(status int) Kind {
	switch {
	case status == http.StatusUnauthorized:
		return KindUnauthorized
	case status == http.StatusForbidden:
		return KindForbidden
	case status == http.StatusNotFound:
		return KindNotFound
	case status >= 400 && status < 500:
		return KindBadRequest
	default:
		return KindServer
	}
}

// requestErrorKind classifies an error returned by http.Client.Do.
func requestErrorKind(ctx context.Context, err error) Kind {
	if errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled) {
		return KindCanceled
	}
	return KindNetwork
}

// errorDetail extracts the "detail" (FastAPI) or "message" field of an
// error body. Non-string details are returned as raw JSON.
func errorDetail(body []byte) string {
	var payload struct {
		Detail  json.RawMessage `json:"detail"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}

	if len(payload.Detail) > 0 && string(payload.Detail) != "null" {
		var s string
		if err := json.Unmarshal(payload.Detail, &s); err == nil {
			return s
		}
		return string(payload.Detail)
	}
	return payload.Message
}
