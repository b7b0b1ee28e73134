package ports

import (
	"context"
	"time"
)

// Storage is a flat string key/value store with per-key expiry.
// It mirrors browser local storage, which is where the wizard originally kept its state,
// and lets the server share that state across instances.
type Storage interface {
	// Get returns the value stored under key.
	// Returns domain.ErrKeyNotFound if the key does not exist or has expired.
	Get(ctx context.Context, key string) (string, error)

	// Set stores value under key. A zero ttl means no expiry.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// Delete removes the keys. Missing keys are not an error.
	Delete(ctx context.Context, keys ...string) error
}

// TokenStore keeps single-use tokens with an expiry.
type TokenStore interface {
	// Put stores payload under token for ttl.
	Put(ctx context.Context, token string, payload []byte, ttl time.Duration) error

	// TakeOnce atomically returns and removes the payload of token.
	// Returns domain.ErrTokenNotFound if the token is unknown, expired or already taken.
	TakeOnce(ctx context.Context, token string) ([]byte, error)
}
