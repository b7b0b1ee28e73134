package runtime

import (
	"log/slog"
	"time"

	"github.com/aretw0/carepath/internal/logging"
	"github.com/aretw0/carepath/pkg/domain"
	"github.com/aretw0/carepath/pkg/ports"
)

// Engine is the wizard state machine.
// It is stateless with respect to sessions: every operation takes a FlowState and returns the next one.
// Callers own persistence and serialisation.
type Engine struct {
	graph     *domain.Graph
	submitter ports.Submitter
	hooks     domain.LifecycleHooks
	logger    *slog.Logger
	now       func() time.Time
	entry     int
}

// EngineOption configures the Engine.
type EngineOption func(*Engine)

// WithLogger configures the engine logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithLifecycleHooks registers observability callbacks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) EngineOption {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithSubmitter sets the receiver of step and form submissions.
func WithSubmitter(s ports.Submitter) EngineOption {
	return func(e *Engine) {
		e.submitter = s
	}
}

// WithEntry sets the position fresh sessions start at. Default is the main view.
func WithEntry(pos int) EngineOption {
	return func(e *Engine) {
		e.entry = pos
	}
}

// WithClock overrides the time source used for event timestamps.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		e.now = now
	}
}

// NewEngine creates an engine for a validated graph.
func NewEngine(graph *domain.Graph, opts ...EngineOption) *Engine {
	e := &Engine{
		graph:  graph,
		logger: logging.NewNop(),
		now:    time.Now,
		entry:  domain.MainView,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Graph returns the graph the engine interprets.
func (e *Engine) Graph() *domain.Graph {
	return e.graph
}

// Entry returns the position fresh sessions start at.
func (e *Engine) Entry() int {
	return e.entry
}

// Start returns a fresh session for a subscription at the entry position.
func (e *Engine) Start(subscriptionID string) *domain.FlowState {
	state := domain.NewFlowState(subscriptionID, e.entry)
	state.Progress = e.graph.ProgressAt(e.entry)
	return state
}

// Export renders the answers of a state in submission shape.
func (e *Engine) Export(state *domain.FlowState) map[string]any {
	return Export(e.graph, state.Answers)
}
