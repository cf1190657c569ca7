package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

type contextKey int

const (
	partnerIDKey contextKey = iota
	keyPrefixKey
	scopesKey
)

// SetPartnerID scopes the request to the partner that owns the API key.
func SetPartnerID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, partnerIDKey, id)
}

// GetPartnerID returns the partner set by Authenticate.
func GetPartnerID(r *http.Request) (uuid.UUID, bool) {
	id, ok := r.Context().Value(partnerIDKey).(uuid.UUID)
	return id, ok
}

// SetKeyPrefix records the lookup prefix of the calling key. RateLimit counts
// requests per prefix.
func SetKeyPrefix(ctx context.Context, prefix string) context.Context {
	return context.WithValue(ctx, keyPrefixKey, prefix)
}

func getKeyPrefix(r *http.Request) (string, bool) {
	prefix, ok := r.Context().Value(keyPrefixKey).(string)
	return prefix, ok
}

func setScopes(ctx context.Context, scopes []string) context.Context {
	return context.WithValue(ctx, scopesKey, scopes)
}

func getScopes(r *http.Request) []string {
	scopes, _ := r.Context().Value(scopesKey).([]string)
	return scopes
}
