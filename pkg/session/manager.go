package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/carepath/internal/logging"
	"github.com/aretw0/carepath/pkg/domain"
	"github.com/aretw0/carepath/pkg/persistence"
	"github.com/aretw0/carepath/pkg/ports"
)

// DefaultLockTTL bounds how long a crashed holder can block a subscription.
const DefaultLockTTL = 30 * time.Second

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager serialises access to the flow of each subscription.
// It uses Reference Counting to garbage collect unused locks.
type Manager struct {
	repo *persistence.Repository

	mu    sync.Mutex            // Global lock for the map
	locks map[string]*lockEntry // Map of active locks

	locker  ports.DistributedLocker // Optional distributed locker
	lockTTL time.Duration
	logger  *slog.Logger // Logger for internal events (like deferred errors)
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking, for deployments where two instances (or two browser
// tabs hitting different instances) may operate on the same subscription.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL sets the expiry of distributed locks.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		m.lockTTL = ttl
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a new Session Manager over a flow repository.
func NewManager(repo *persistence.Repository, opts ...Option) *Manager {
	m := &Manager{
		repo:    repo,
		locks:   make(map[string]*lockEntry),
		lockTTL: DefaultLockTTL,
		logger:  logging.NewNop(), // Default to no-op
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(id) after unlocking.
func (m *Manager) acquire(id string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[id]
	if !exists {
		entry = &lockEntry{}
		m.locks[id] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[id]
	if !exists {
		return
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, id)
	}
}

// Load returns the persisted flow of a subscription, or domain.ErrFlowNotFound.
func (m *Manager) Load(ctx context.Context, subscriptionID string) (*domain.FlowState, error) {
	var state *domain.FlowState
	err := m.WithLock(ctx, subscriptionID, func(ctx context.Context) error {
		var err error
		state, err = m.repo.Load(ctx, subscriptionID)
		return err
	})
	return state, err
}

// LoadOrStart restores a subscription's flow or creates one with start.
// The result is saved either way, which refreshes the expiry of a restored flow.
func (m *Manager) LoadOrStart(ctx context.Context, subscriptionID string, start func() *domain.FlowState) (*domain.FlowState, bool, error) {
	var (
		state    *domain.FlowState
		restored bool
	)
	err := m.WithLock(ctx, subscriptionID, func(ctx context.Context) error {
		var err error
		state, err = m.repo.Load(ctx, subscriptionID)
		switch {
		case err == nil:
			restored = true
		case errors.Is(err, domain.ErrFlowNotFound):
			state = start()
		default:
			return fmt.Errorf("failed to check flow existence: %w", err)
		}

		if err := m.repo.Save(ctx, state); err != nil {
			return fmt.Errorf("failed to initialize flow: %w", err)
		}
		return nil
	})
	return state, restored, err
}

// Save persists the flow state.
func (m *Manager) Save(ctx context.Context, state *domain.FlowState) error {
	return m.WithLock(ctx, state.SubscriptionID, func(ctx context.Context) error {
		return m.repo.Save(ctx, state)
	})
}

// Delete removes the persisted flow of a subscription.
func (m *Manager) Delete(ctx context.Context, subscriptionID string) error {
	return m.WithLock(ctx, subscriptionID, func(ctx context.Context) error {
		return m.repo.Clear(ctx, subscriptionID)
	})
}

// Repository returns the underlying flow repository.
// Calls made through it inside WithLock are serialised; outside of it they are not.
func (m *Manager) Repository() *persistence.Repository {
	return m.repo
}

// WithLock executes a function while holding the lock for the subscription.
// The lock is not reentrant: fn must use the Repository, not the Manager.
func (m *Manager) WithLock(ctx context.Context, subscriptionID string, fn func(context.Context) error) error {
	entry := m.acquire(subscriptionID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(subscriptionID)
	}()

	// Distributed Locking
	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, subscriptionID, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			// The caller's ctx may already be cancelled; release regardless.
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"subscription_id", subscriptionID,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}
