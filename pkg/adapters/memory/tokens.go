package memory

import (
	"context"
	"sync"
	"time"

	"github.com/aretw0/carepath/pkg/domain"
)

type token struct {
	payload   []byte
	expiresAt time.Time
}

// TokenStore implements ports.TokenStore in memory.
// It only works for single-instance deployments; use the redis adapter otherwise.
// Tokens that expire unredeemed are swept on Put.
type TokenStore struct {
	mu        sync.Mutex
	tokens    map[string]token
	now       func() time.Time
	lastSweep time.Time
}

// TokenOption configures the TokenStore.
type TokenOption func(*TokenStore)

// WithTokenClock overrides the time source (tests).
func WithTokenClock(now func() time.Time) TokenOption {
	return func(s *TokenStore) {
		s.now = now
	}
}

// NewTokenStore creates an empty token store.
func NewTokenStore(opts ...TokenOption) *TokenStore {
	s := &TokenStore{
		tokens: make(map[string]token),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Put stores a payload.
func (s *TokenStore) Put(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if now.Sub(s.lastSweep) >= sweepInterval {
		for k, t := range s.tokens {
			if !now.Before(t.expiresAt) {
				delete(s.tokens, k)
			}
		}
		s.lastSweep = now
	}

	s.tokens[key] = token{
		payload:   append([]byte(nil), payload...),
		expiresAt: now.Add(ttl),
	}
	return nil
}

// TakeOnce returns and removes a payload.
func (s *TokenStore) TakeOnce(ctx context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tokens[key]
	if !ok {
		return nil, domain.ErrTokenNotFound
	}
	delete(s.tokens, key)
	if !s.now().Before(t.expiresAt) {
		return nil, domain.ErrTokenNotFound
	}
	return t.payload, nil
}

// Len returns the number of held tokens, expired ones included until the next sweep.
func (s *TokenStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tokens)
}
