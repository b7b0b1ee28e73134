package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/aretw0/carepath/internal/logging"
	"github.com/aretw0/carepath/pkg/domain"
	"github.com/aretw0/carepath/pkg/ports"
)

// Storage keys of the flow record. The expiry key holds epoch milliseconds.
const (
	DataKey   = "subscription-flow-data"
	ExpiryKey = "subscription-flow-data-expiry"
)

// DefaultTTL is how long an untouched flow survives.
const DefaultTTL = 24 * time.Hour

// ScopeFunc maps a subscription id to the storage slot suffix.
type ScopeFunc func(subscriptionID string) string

// PerSubscription gives every subscription its own slot.
func PerSubscription(subscriptionID string) string {
	return subscriptionID
}

// SharedSlot keeps a single record for everything, like browser storage did.
// The subscription check on load is what keeps one subscription's answers away from another.
func SharedSlot(string) string {
	return ""
}

// Repository persists FlowStates on a ports.Storage.
// Unusable records (expired, corrupt, other subscription) are reported as domain.ErrFlowNotFound.
type Repository struct {
	storage ports.Storage
	ttl     time.Duration
	scope   ScopeFunc
	now     func() time.Time
	logger  *slog.Logger
}

// Option configures the Repository.
type Option func(*Repository)

// WithTTL sets the record lifetime.
func WithTTL(ttl time.Duration) Option {
	return func(r *Repository) {
		r.ttl = ttl
	}
}

// WithScope sets how subscriptions map to storage slots.
func WithScope(scope ScopeFunc) Option {
	return func(r *Repository) {
		r.scope = scope
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(r *Repository) {
		r.now = now
	}
}

// WithLogger configures a logger for discarded records.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Repository) {
		r.logger = logger
	}
}

// NewRepository creates a repository on storage.
func NewRepository(storage ports.Storage, opts ...Option) *Repository {
	r := &Repository{
		storage: storage,
		ttl:     DefaultTTL,
		scope:   PerSubscription,
		now:     time.Now,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Keys returns the data and expiry keys for a subscription.
func (r *Repository) Keys(subscriptionID string) (data, expiry string) {
	scope := r.scope(subscriptionID)
	if scope == "" {
		return DataKey, ExpiryKey
	}
	return DataKey + ":" + scope, ExpiryKey + ":" + scope
}

// Load returns the persisted flow of a subscription.
// Any record that cannot be used is deleted and reported as domain.ErrFlowNotFound.
func (r *Repository) Load(ctx context.Context, subscriptionID string) (*domain.FlowState, error) {
	dataKey, expiryKey := r.Keys(subscriptionID)

	rawExpiry, err := r.storage.Get(ctx, expiryKey)
	if err != nil {
		if !errors.Is(err, domain.ErrKeyNotFound) {
			r.logger.Warn("flow storage unavailable, starting fresh", "subscription_id", subscriptionID, "err", err)
			return nil, domain.ErrFlowNotFound
		}
		r.discard(ctx, subscriptionID, "missing expiry")
		return nil, domain.ErrFlowNotFound
	}

	expiresAt, err := strconv.ParseInt(rawExpiry, 10, 64)
	if err != nil || r.now().UnixMilli() >= expiresAt {
		r.discard(ctx, subscriptionID, "expired")
		return nil, domain.ErrFlowNotFound
	}

	raw, err := r.storage.Get(ctx, dataKey)
	if err != nil {
		if !errors.Is(err, domain.ErrKeyNotFound) {
			r.logger.Warn("flow storage unavailable, starting fresh", "subscription_id", subscriptionID, "err", err)
		}
		return nil, domain.ErrFlowNotFound
	}

	var state domain.FlowState
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		r.logger.Warn("corrupt flow record", "subscription_id", subscriptionID, "err", err)
		r.discard(ctx, subscriptionID, "corrupt")
		return nil, domain.ErrFlowNotFound
	}

	if state.SubscriptionID != subscriptionID {
		r.discard(ctx, subscriptionID, "subscription mismatch")
		return nil, domain.ErrFlowNotFound
	}

	if state.Answers == nil {
		state.Answers = make(domain.Answers)
	}
	return &state, nil
}

// Save writes the record and refreshes its expiry.
func (r *Repository) Save(ctx context.Context, state *domain.FlowState) error {
	data, err := Marshal(state)
	if err != nil {
		return err
	}

	dataKey, expiryKey := r.Keys(state.SubscriptionID)
	expiresAt := r.now().Add(r.ttl).UnixMilli()

	// The storage TTL is a backstop; the expiry key is authoritative.
	if err := r.storage.Set(ctx, dataKey, string(data), r.ttl); err != nil {
		return fmt.Errorf("failed to save flow: %w", err)
	}
	if err := r.storage.Set(ctx, expiryKey, strconv.FormatInt(expiresAt, 10), r.ttl); err != nil {
		return fmt.Errorf("failed to save flow expiry: %w", err)
	}
	return nil
}

// Clear removes the record of a subscription.
func (r *Repository) Clear(ctx context.Context, subscriptionID string) error {
	dataKey, expiryKey := r.Keys(subscriptionID)
	if err := r.storage.Delete(ctx, dataKey, expiryKey); err != nil {
		return fmt.Errorf("failed to clear flow: %w", err)
	}
	return nil
}

// Raw returns the stored JSON of a subscription's record, for introspection and tests.
func (r *Repository) Raw(ctx context.Context, subscriptionID string) (string, error) {
	dataKey, _ := r.Keys(subscriptionID)
	return r.storage.Get(ctx, dataKey)
}

func (r *Repository) discard(ctx context.Context, subscriptionID, reason string) {
	r.logger.Debug("discarding stored flow", "subscription_id", subscriptionID, "reason", reason)
	// In a shared slot the record may belong to another subscription; it is stale for us either way.
	if err := r.Clear(ctx, subscriptionID); err != nil {
		r.logger.Warn("failed to discard stored flow", "subscription_id", subscriptionID, "err", err)
	}
}

// Marshal encodes a flow record. Map keys are sorted, so equal states encode identically.
func Marshal(state *domain.FlowState) ([]byte, error) {
	answers := state.Answers
	if answers == nil {
		answers = domain.Answers{}
	}
	record := *state
	record.Answers = answers

	data, err := json.Marshal(&record)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal flow: %w", err)
	}
	return data, nil
}
