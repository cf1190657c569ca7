// Package auth holds the portal's session with the external auth provider.
// A single Session is built at startup and handed to every backend client.
package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// refreshSkew renews tokens this long before they expire.
const refreshSkew = 30 * time.Second

var ErrNoToken = errors.New("auth provider returned no token")

// Token is a bearer token with its expiry. A zero Expiry never expires.
type Token struct {
	AccessToken  string
	RefreshToken string
	Expiry       time.Time
}

func (t Token) validAt(now time.Time) bool {
	if t.AccessToken == "" {
		return false
	}
	return t.Expiry.IsZero() || now.Add(refreshSkew).Before(t.Expiry)
}

// TokenSource obtains tokens from the auth provider. prev is the last token the
// session held (zero on first use) and may be used to refresh.
type TokenSource interface {
	Token(ctx context.Context, prev Token) (Token, error)
}

// Session caches the current token and renews it through its source.
// Safe for concurrent use.
type Session struct {
	source TokenSource
	now    func() time.Time

	mu    sync.Mutex
	token Token
}

// NewSession creates a Session backed by source.
func NewSession(source TokenSource) *Session {
	return &Session{source: source, now: time.Now}
}

// Token returns a valid bearer token, fetching a new one when needed.
func (s *Session) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token.validAt(s.now()) {
		return s.token.AccessToken, nil
	}

	tok, err := s.source.Token(ctx, s.token)
	if err != nil {
		return "", fmt.Errorf("obtaining token: %w", err)
	}
	if tok.AccessToken == "" {
		return "", ErrNoToken
	}
	s.token = tok
	return tok.AccessToken, nil
}

// Invalidate drops the cached token so the next call fetches a fresh one.
func (s *Session) Invalidate() {
	s.mu.Lock()
	s.token.AccessToken = ""
	s.mu.Unlock()
}

// StaticTokenSource always returns the same non-expiring token.
type StaticTokenSource string

func (s StaticTokenSource) Token(_ context.Context, _ Token) (Token, error) {
	return Token{AccessToken: string(s)}, nil
}
