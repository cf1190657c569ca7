package manifest

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/surveyportal/internal/cache"
)

// confirmClaimTTL bounds how long a crashed import can block its review.
const confirmClaimTTL = 2 * time.Minute

// SessionStore holds open reviews. Load returns ErrReviewNotFound for unknown
// or expired reviews. Claim marks a review as being imported and reports false
// when another import already holds it.
type SessionStore interface {
	Save(ctx context.Context, r *Review) error
	Load(ctx context.Context, id uuid.UUID) (*Review, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Claim(ctx context.Context, id uuid.UUID) (bool, error)
	Release(ctx context.Context, id uuid.UUID) error
}

// CacheSessionStore keeps reviews in the cache with a sliding TTL.
type CacheSessionStore struct {
	cache cache.Cache
	ttl   time.Duration
}

func NewCacheSessionStore(c cache.Cache, ttl time.Duration) *CacheSessionStore {
	return &CacheSessionStore{cache: c, ttl: ttl}
}

func (s *CacheSessionStore) Save(ctx context.Context, r *Review) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encoding review: %w", err)
	}
	if err := s.cache.Set(ctx, cache.ReviewKey(r.ID), data, s.ttl); err != nil {
		return fmt.Errorf("saving review: %w", err)
	}
	return nil
}

func (s *CacheSessionStore) Load(ctx context.Context, id uuid.UUID) (*Review, error) {
	data, found, err := s.cache.Get(ctx, cache.ReviewKey(id))
	if err != nil {
		return nil, fmt.Errorf("loading review: %w", err)
	}
	if !found {
		return nil, ErrReviewNotFound
	}
	var r Review
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decoding review: %w", err)
	}
	if r.Selected == nil {
		r.Selected = map[string]bool{}
	}
	return &r, nil
}

func (s *CacheSessionStore) Delete(ctx context.Context, id uuid.UUID) error {
	return s.cache.Delete(ctx, cache.ReviewKey(id))
}

func (s *CacheSessionStore) Claim(ctx context.Context, id uuid.UUID) (bool, error) {
	ok, err := s.cache.SetNX(ctx, cache.ReviewConfirmKey(id), []byte("1"), confirmClaimTTL)
	if err != nil {
		return false, fmt.Errorf("claiming review: %w", err)
	}
	return ok, nil
}

func (s *CacheSessionStore) Release(ctx context.Context, id uuid.UUID) error {
	return s.cache.Delete(ctx, cache.ReviewConfirmKey(id))
}
