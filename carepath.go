package carepath

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/carepath/internal/logging"
	"github.com/aretw0/carepath/internal/runtime"
	"github.com/aretw0/carepath/internal/validator"
	"github.com/aretw0/carepath/pkg/adapters/memory"
	"github.com/aretw0/carepath/pkg/domain"
	"github.com/aretw0/carepath/pkg/flows"
	"github.com/aretw0/carepath/pkg/persistence"
	"github.com/aretw0/carepath/pkg/ports"
	"github.com/aretw0/carepath/pkg/session"
)

// Engine is the high-level entry point of the subscription flow.
// It wraps the runtime state machine with persistence and per-subscription locking.
type Engine struct {
	runtime  *runtime.Engine
	sessions *session.Manager
	graph    *domain.Graph
	logger   *slog.Logger

	loader    ports.GraphLoader
	storage   ports.Storage
	submitter ports.Submitter
	locker    ports.DistributedLocker
	hooks     domain.LifecycleHooks
	entryStep string
	repoOpts  []persistence.Option
	now       func() time.Time
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithGraph sets the wizard graph. Default is the built-in cancel flow.
func WithGraph(g *domain.Graph) Option {
	return func(e *Engine) {
		e.graph = g
	}
}

// WithLoader loads the graph from a ports.GraphLoader (e.g. a YAML file).
func WithLoader(l ports.GraphLoader) Option {
	return func(e *Engine) {
		e.loader = l
	}
}

// WithStorage sets the key/value storage of flow records. Default is in-memory.
func WithStorage(s ports.Storage) Option {
	return func(e *Engine) {
		e.storage = s
	}
}

// WithTTL sets how long an untouched flow is kept.
func WithTTL(ttl time.Duration) Option {
	return func(e *Engine) {
		e.repoOpts = append(e.repoOpts, persistence.WithTTL(ttl))
	}
}

// WithScope sets how subscriptions map to storage slots.
func WithScope(scope persistence.ScopeFunc) Option {
	return func(e *Engine) {
		e.repoOpts = append(e.repoOpts, persistence.WithScope(scope))
	}
}

// WithSubmitter sets the receiver of the step and form submission hooks.
func WithSubmitter(s ports.Submitter) Option {
	return func(e *Engine) {
		e.submitter = s
	}
}

// WithLocker shares the per-subscription lock across instances.
func WithLocker(l ports.DistributedLocker) Option {
	return func(e *Engine) {
		e.locker = l
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithEntryStep configures the step fresh flows start at (default: the main view).
func WithEntryStep(stepID string) Option {
	return func(e *Engine) {
		e.entryStep = stepID
	}
}

// WithClock overrides the time source of expiry and events.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// New initializes an Engine. The graph is validated; configuration errors are returned together.
func New(opts ...Option) (*Engine, error) {
	eng := &Engine{now: time.Now}
	for _, opt := range opts {
		opt(eng)
	}

	if eng.logger == nil {
		eng.logger = logging.NewNop()
	}

	if eng.graph == nil && eng.loader != nil {
		g, err := eng.loader.LoadGraph()
		if err != nil {
			return nil, fmt.Errorf("failed to load graph: %w", err)
		}
		eng.graph = g
	}
	if eng.graph == nil {
		eng.graph = flows.CancelFlow()
	}
	if err := validator.ValidateGraph(eng.graph); err != nil {
		return nil, fmt.Errorf("invalid graph: %w", err)
	}
	if eng.graph.Name != "" {
		eng.logger = eng.logger.With("graph", eng.graph.Name)
	}

	entry, ok := eng.graph.Position(eng.entryStep)
	if !ok {
		return nil, fmt.Errorf("entry step %q: %w", eng.entryStep, domain.ErrStepNotFound)
	}

	if eng.storage == nil {
		eng.storage = memory.NewStore()
	}
	repoOpts := append([]persistence.Option{
		persistence.WithClock(eng.now),
		persistence.WithLogger(eng.logger),
	}, eng.repoOpts...)
	repo := persistence.NewRepository(eng.storage, repoOpts...)

	sessionOpts := []session.Option{session.WithLogger(eng.logger)}
	if eng.locker != nil {
		sessionOpts = append(sessionOpts, session.WithLocker(eng.locker))
	}
	eng.sessions = session.NewManager(repo, sessionOpts...)

	eng.runtime = runtime.NewEngine(eng.graph,
		runtime.WithSubmitter(eng.submitter),
		runtime.WithLifecycleHooks(eng.hooks),
		runtime.WithLogger(eng.logger),
		runtime.WithEntry(entry),
		runtime.WithClock(eng.now),
	)

	return eng, nil
}

// Graph returns the wizard graph for introspection.
func (e *Engine) Graph() *domain.Graph {
	return e.graph
}

// Initialize restores the flow of a subscription, or starts a fresh one.
// A restored flow is saved back unchanged, refreshing its expiry.
func (e *Engine) Initialize(ctx context.Context, subscriptionID string) (*domain.FlowState, error) {
	state, restored, err := e.sessions.LoadOrStart(ctx, subscriptionID, func() *domain.FlowState {
		return e.runtime.Start(subscriptionID)
	})
	if err != nil {
		return nil, err
	}
	e.logger.Debug("flow initialized", "subscription_id", subscriptionID, "restored", restored, "step_index", state.StepIndex)
	return state, nil
}

// Advance records answer for the current step and follows transition ("" means "next").
//
// When no destination exists the answer is still saved and the returned error wraps
// domain.ErrTransitionNotFound or domain.ErrStepNotFound, together with the unchanged position.
// Reaching the main view ends the flow and clears its storage.
func (e *Engine) Advance(ctx context.Context, subscriptionID, transition string, answer any) (*domain.FlowState, error) {
	var next *domain.FlowState
	err := e.sessions.WithLock(ctx, subscriptionID, func(ctx context.Context) error {
		current := e.load(ctx, subscriptionID)

		var navErr error
		next, navErr = e.runtime.Advance(ctx, current, transition, answer)
		if navErr != nil {
			if err := e.repo().Save(ctx, next); err != nil {
				return err
			}
			return navErr
		}

		if next.InMainView() {
			return e.repo().Clear(ctx, subscriptionID)
		}
		return e.repo().Save(ctx, next)
	})
	return next, err
}

// Retreat moves one step back along the default path.
func (e *Engine) Retreat(ctx context.Context, subscriptionID string) (*domain.FlowState, error) {
	var next *domain.FlowState
	err := e.sessions.WithLock(ctx, subscriptionID, func(ctx context.Context) error {
		next = e.runtime.Retreat(ctx, e.load(ctx, subscriptionID))
		return e.repo().Save(ctx, next)
	})
	return next, err
}

// JumpTo moves to an already reached or earlier step. An empty id targets the main view.
// Rejected jumps return domain.ErrJumpRejected and leave the flow untouched.
func (e *Engine) JumpTo(ctx context.Context, subscriptionID, stepID string) (*domain.FlowState, error) {
	var next *domain.FlowState
	err := e.sessions.WithLock(ctx, subscriptionID, func(ctx context.Context) error {
		var err error
		next, err = e.runtime.JumpTo(ctx, e.load(ctx, subscriptionID), stepID)
		if err != nil {
			return err
		}
		return e.repo().Save(ctx, next)
	})
	return next, err
}

// Complete submits the final answer and the whole form, then clears the flow.
// If the form submission fails the flow is kept, with the final answer recorded, so it can be retried.
// A flow showing the main view cannot be completed (domain.ErrNoActiveStep); storage is left alone.
func (e *Engine) Complete(ctx context.Context, subscriptionID string, answer any) (*domain.FlowState, error) {
	var next *domain.FlowState
	err := e.sessions.WithLock(ctx, subscriptionID, func(ctx context.Context) error {
		var submitErr error
		next, submitErr = e.runtime.Complete(ctx, e.load(ctx, subscriptionID), answer)
		if errors.Is(submitErr, domain.ErrNoActiveStep) {
			return submitErr
		}
		if submitErr != nil {
			if err := e.repo().Save(ctx, next); err != nil {
				return errors.Join(submitErr, err)
			}
			return submitErr
		}
		return e.repo().Clear(ctx, subscriptionID)
	})
	return next, err
}

// Exit returns to the main view and discards the flow.
func (e *Engine) Exit(ctx context.Context, subscriptionID string) (*domain.FlowState, error) {
	if err := e.sessions.Delete(ctx, subscriptionID); err != nil {
		return nil, err
	}
	return domain.NewFlowState(subscriptionID, domain.MainView), nil
}

// Export returns the current answers of a subscription in submission shape.
func (e *Engine) Export(ctx context.Context, subscriptionID string) (map[string]any, error) {
	var out map[string]any
	err := e.sessions.WithLock(ctx, subscriptionID, func(ctx context.Context) error {
		out = e.runtime.Export(e.load(ctx, subscriptionID))
		return nil
	})
	return out, err
}

// ExportForAPI transforms answers of g into the flat submission object.
func ExportForAPI(g *domain.Graph, answers domain.Answers) map[string]any {
	return runtime.Export(g, answers)
}

func (e *Engine) repo() *persistence.Repository {
	return e.sessions.Repository()
}

// load returns the stored flow or a fresh one. Must be called under the subscription lock.
func (e *Engine) load(ctx context.Context, subscriptionID string) *domain.FlowState {
	state, err := e.repo().Load(ctx, subscriptionID)
	if err != nil {
		return e.runtime.Start(subscriptionID)
	}
	return state
}
