// Package autologin issues single-use login tokens.
//
// Tokens live in a ports.TokenStore so that every instance of the portal sees them;
// a token issued by one instance can be redeemed on another, exactly once.
package autologin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/carepath/internal/logging"
	"github.com/aretw0/carepath/pkg/domain"
	"github.com/aretw0/carepath/pkg/ports"
	"github.com/google/uuid"
)

// DefaultTTL is how long an unredeemed token stays valid.
const DefaultTTL = 5 * time.Minute

// ErrEmptyPayload is returned when issuing a token for nothing.
var ErrEmptyPayload = errors.New("autologin payload is empty")

// Service issues and redeems tokens.
type Service struct {
	store  ports.TokenStore
	ttl    time.Duration
	newID  func() string
	logger *slog.Logger
}

// Option configures the Service.
type Option func(*Service)

// WithTTL sets the token lifetime.
func WithTTL(ttl time.Duration) Option {
	return func(s *Service) {
		s.ttl = ttl
	}
}

// WithLogger configures the service logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithTokenGenerator overrides token generation.
func WithTokenGenerator(fn func() string) Option {
	return func(s *Service) {
		s.newID = fn
	}
}

// NewService creates a service over a token store.
func NewService(store ports.TokenStore, opts ...Option) *Service {
	s := &Service{
		store:  store,
		ttl:    DefaultTTL,
		newID:  uuid.NewString,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Issue stores payload under a new token.
func (s *Service) Issue(ctx context.Context, payload json.RawMessage) (string, error) {
	if len(payload) == 0 || string(payload) == "null" {
		return "", ErrEmptyPayload
	}
	if !json.Valid(payload) {
		return "", fmt.Errorf("autologin payload is not valid JSON")
	}

	token := s.newID()
	if err := s.store.Put(ctx, token, payload, s.ttl); err != nil {
		return "", fmt.Errorf("failed to issue token: %w", err)
	}
	s.logger.Debug("autologin token issued", "ttl", s.ttl)
	return token, nil
}

// Redeem returns the payload of a token and invalidates it.
// Unknown, expired and already redeemed tokens all yield domain.ErrTokenNotFound.
func (s *Service) Redeem(ctx context.Context, token string) (json.RawMessage, error) {
	if token == "" {
		return nil, domain.ErrTokenNotFound
	}
	payload, err := s.store.TakeOnce(ctx, token)
	if err != nil {
		if !errors.Is(err, domain.ErrTokenNotFound) {
			s.logger.Warn("autologin store failed", "err", err)
		}
		return nil, err
	}
	return json.RawMessage(payload), nil
}
