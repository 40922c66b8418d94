// ABOUTME: Operator bearer token handling for the assistant client
// ABOUTME: Reads the token from env or file and detects expired JWTs without the signing key

package auth

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrExpiredToken is returned when the configured token is a JWT past its exp claim
var ErrExpiredToken = errors.New("token expired")

// Token is the operator's bearer token. The client cannot verify the
// signature (the backend holds the key); it only reads the claims so an
// expired session can be reported before any request is made.
type Token struct {
	raw       string
	subject   string
	expiresAt time.Time
}

// ParseToken wraps raw. Tokens that are not JWTs are accepted as opaque
// bearer strings with no known expiry.
func ParseToken(raw string) Token {
	t := Token{raw: strings.TrimSpace(raw)}
	if t.raw == "" {
		return t
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(t.raw, claims); err != nil {
		return t
	}

	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		t.expiresAt = exp.Time
	}
	if sub, err := claims.GetSubject(); err == nil {
		t.subject = sub
	}
	return t
}

// String returns the raw bearer value.
func (t Token) String() string {
	return t.raw
}

// Empty reports whether no token is configured.
func (t Token) Empty() bool {
	return t.raw == ""
}

// Subject returns the JWT "sub" claim, if any.
func (t Token) Subject() string {
	return t.subject
}

// ExpiresAt returns the JWT "exp" claim, or the zero time when unknown.
func (t Token) ExpiresAt() time.Time {
	return t.expiresAt
}

// Check returns ErrExpiredToken when the token's exp is at or before now.
func (t Token) Check(now time.Time) error {
	if !t.expiresAt.IsZero() && !now.Before(t.expiresAt) {
		return ErrExpiredToken
	}
	return nil
}

// LoadToken returns the token from the envVar environment variable, or
// from the file at path when the variable is unset.
func LoadToken(envVar, path string) Token {
	if v := os.Getenv(envVar); v != "" {
		return ParseToken(v)
	}
	if path == "" {
		return Token{}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Token{}
	}
	return ParseToken(string(data))
}

// DefaultTokenPath returns $XDG_CONFIG_HOME/<app>/token, falling back to
// ~/.config/<app>/token.
func DefaultTokenPath(app string) string {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configDir = filepath.Join(homeDir, ".config")
	}
	return filepath.Join(configDir, app, "token")
}
