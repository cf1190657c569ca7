package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

var ErrAuthRejected = errors.New("auth provider rejected credentials")

// PasswordTokenSource signs in to the auth provider with email and password and
// renews with the refresh token when one is available.
type PasswordTokenSource struct {
	projectURL string
	anonKey    string
	email      string
	password   string
	client     *http.Client
	now        func() time.Time
}

// NewPasswordTokenSource creates a PasswordTokenSource for the given project.
func NewPasswordTokenSource(projectURL, anonKey, email, password string, timeout time.Duration) *PasswordTokenSource {
	return &PasswordTokenSource{
		projectURL: projectURL,
		anonKey:    anonKey,
		email:      email,
		password:   password,
		client:     &http.Client{Timeout: timeout},
		now:        time.Now,
	}
}

func (p *PasswordTokenSource) Token(ctx context.Context, prev Token) (Token, error) {
	if prev.RefreshToken != "" {
		tok, err := p.grant(ctx, "refresh_token", map[string]string{"refresh_token": prev.RefreshToken})
		if err == nil {
			return tok, nil
		}
		slog.Warn("token refresh failed, signing in again", "error", err)
	}
	return p.grant(ctx, "password", map[string]string{"email": p.email, "password": p.password})
}

func (p *PasswordTokenSource) grant(ctx context.Context, grantType string, body map[string]string) (Token, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return Token{}, fmt.Errorf("encoding grant: %w", err)
	}

	u := fmt.Sprintf("%s/auth/v1/token?grant_type=%s", p.projectURL, grantType)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(payload))
	if err != nil {
		return Token{}, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", p.anonKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return Token{}, fmt.Errorf("auth provider unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Token{}, fmt.Errorf("%w: %s grant status %d", ErrAuthRejected, grantType, resp.StatusCode)
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return Token{}, fmt.Errorf("decoding token response: %w", err)
	}

	tok := Token{AccessToken: tr.AccessToken, RefreshToken: tr.RefreshToken}
	if tr.ExpiresIn > 0 {
		tok.Expiry = p.now().Add(time.Duration(tr.ExpiresIn) * time.Second)
	}
	return tok, nil
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
}

var _ TokenSource = (*PasswordTokenSource)(nil)
var _ TokenSource = StaticTokenSource("")
