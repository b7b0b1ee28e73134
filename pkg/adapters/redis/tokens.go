package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/carepath/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// TokenStore implements ports.TokenStore using Redis.
// GETDEL makes TakeOnce atomic across instances.
type TokenStore struct {
	client *backend.Client
	prefix string
}

// NewTokenStore creates a token store on an existing client.
func NewTokenStore(client *backend.Client, prefix string) *TokenStore {
	return &TokenStore{
		client: client,
		prefix: prefix,
	}
}

func (s *TokenStore) key(token string) string {
	return s.prefix + "token:" + token
}

// Put stores a payload with expiry.
func (s *TokenStore) Put(ctx context.Context, token string, payload []byte, ttl time.Duration) error {
	if err := s.client.Set(ctx, s.key(token), payload, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store token: %w", err)
	}
	return nil
}

// TakeOnce returns and deletes a payload in one round trip.
func (s *TokenStore) TakeOnce(ctx context.Context, token string) ([]byte, error) {
	val, err := s.client.GetDel(ctx, s.key(token)).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, domain.ErrTokenNotFound
		}
		return nil, fmt.Errorf("failed to take token: %w", err)
	}
	return val, nil
}
