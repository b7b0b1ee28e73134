package runtime

import (
	"context"
	"fmt"

	"github.com/aretw0/carepath/pkg/domain"
)

// Advance records an answer for the current step and moves along the resolved transition.
//
// Reaching the main view ends the session: a fresh main-view state is returned.
// The returned state is never nil. When no destination can be resolved the answer is still
// recorded, the position is unchanged, and the error wraps domain.ErrTransitionNotFound or
// domain.ErrStepNotFound.
func (e *Engine) Advance(ctx context.Context, current *domain.FlowState, transition string, answer any) (*domain.FlowState, error) {
	next := current.Clone()
	e.record(next, answer)

	dest, err := e.resolve(next, transition, answer)
	if err != nil {
		e.logger.Error("navigation failed",
			"subscription_id", next.SubscriptionID,
			"step", e.graph.StepID(next.StepIndex),
			"transition", transition,
			"err", err)
		return next, err
	}

	e.purge(next, dest)

	percentage := e.graph.ProgressAt(dest)
	if dest == domain.MainView {
		// Leaving early keeps the progress of the answered step.
		percentage = max(percentage, e.graph.ProgressAt(next.StepIndex))
	}
	e.submitStep(ctx, next, percentage)
	e.move(ctx, next, dest, transitionName(transition))

	// Reaching the main view ends the session.
	if dest == domain.MainView {
		return domain.NewFlowState(next.SubscriptionID, domain.MainView), nil
	}
	return next, nil
}

// Retreat moves to the predecessor on the default sequential path. Step 1 goes back to the main view.
// The high-water mark is kept and no submission is made.
func (e *Engine) Retreat(ctx context.Context, current *domain.FlowState) *domain.FlowState {
	next := current.Clone()
	if next.InMainView() {
		return next
	}
	e.move(ctx, next, next.StepIndex-1, "back")
	return next
}

// JumpTo moves to a step by id. An empty id or domain.MainViewID targets the main view.
// Forward jumps into positions never reached are rejected with domain.ErrJumpRejected
// and the state is returned unchanged.
//
// Backward jumps are allowed even past steps a conditional branch skipped.
func (e *Engine) JumpTo(ctx context.Context, current *domain.FlowState, stepID string) (*domain.FlowState, error) {
	target, ok := e.graph.Position(stepID)
	if !ok {
		return current, fmt.Errorf("jump to %q: %w", stepID, domain.ErrStepNotFound)
	}
	if !CanJump(current, target) {
		return current, fmt.Errorf("jump to %q (max reached %d): %w", stepID, current.MaxReachedStep, domain.ErrJumpRejected)
	}

	next := current.Clone()
	e.move(ctx, next, target, "jump")
	return next, nil
}

// CanJump reports whether a jump to target is allowed from state.
func CanJump(state *domain.FlowState, target int) bool {
	return target == domain.MainView || target <= state.MaxReachedStep || target < state.StepIndex
}

// Complete records the final answer, submits the current step and then the whole form.
// On success the returned state is back in the main view; callers clear persisted storage.
// If the form submission fails the error is returned with the pre-completion state,
// so the caller can keep it and retry.
// Completing from the main view is rejected with domain.ErrNoActiveStep and nothing is submitted.
func (e *Engine) Complete(ctx context.Context, current *domain.FlowState, answer any) (*domain.FlowState, error) {
	if current.InMainView() {
		return current, fmt.Errorf("complete %q: %w", current.SubscriptionID, domain.ErrNoActiveStep)
	}
	next := current.Clone()
	e.record(next, answer)

	// A missing destination does not block completion; it only disables the purge.
	if dest, err := e.resolve(next, "", answer); err == nil {
		e.purge(next, dest)
	} else {
		e.logger.Debug("no destination on completion", "subscription_id", next.SubscriptionID, "err", err)
	}

	e.submitStep(ctx, next, 100)
	if err := e.submitForm(ctx, next); err != nil {
		return next, err
	}

	e.move(ctx, next, domain.MainView, "complete")
	e.emitFlowComplete(ctx, next)
	return domain.NewFlowState(next.SubscriptionID, domain.MainView), nil
}

// record stores the answer under the current step's field. The main view has no field.
func (e *Engine) record(state *domain.FlowState, answer any) {
	if answer == nil {
		return
	}
	step, ok := e.graph.StepAt(state.StepIndex)
	if !ok || step.Field == "" {
		e.logger.Debug("answer ignored, step has no field",
			"subscription_id", state.SubscriptionID,
			"step", e.graph.StepID(state.StepIndex))
		return
	}
	state.Answers[step.Field] = answer
}

// resolve finds the destination position: conditional routes first, then the navigation table.
func (e *Engine) resolve(state *domain.FlowState, transition string, answer any) (int, error) {
	if step, ok := e.graph.StepAt(state.StepIndex); ok {
		if target, ok := step.Route(answer); ok {
			return e.position(target)
		}
	}

	source := e.graph.NavigationSource(state.StepIndex)
	name := transitionName(transition)
	target, ok := e.graph.Navigation.Lookup(source, name)
	if !ok {
		return 0, fmt.Errorf("%q from %q: %w", name, source, domain.ErrTransitionNotFound)
	}
	return e.position(target)
}

func (e *Engine) position(target string) (int, error) {
	pos, ok := e.graph.Position(target)
	if !ok {
		return 0, fmt.Errorf("target %q: %w", target, domain.ErrStepNotFound)
	}
	return pos, nil
}

// purge deletes the answers of every step skipped by a jump from the current position to dest.
func (e *Engine) purge(state *domain.FlowState, dest int) {
	for pos := state.StepIndex + 1; pos < dest; pos++ {
		step, ok := e.graph.StepAt(pos)
		if !ok || step.Field == "" {
			continue
		}
		if _, had := state.Answers[step.Field]; had {
			e.logger.Debug("purging skipped answer",
				"subscription_id", state.SubscriptionID,
				"step", step.ID,
				"field", step.Field)
			delete(state.Answers, step.Field)
		}
	}
}

// move updates the position, progress and high-water mark, emitting leave/enter events.
func (e *Engine) move(ctx context.Context, state *domain.FlowState, dest int, transition string) {
	from := state.StepIndex
	e.emitStep(ctx, e.hooks.OnStepLeave, domain.EventStepLeave, state, from, transition)

	state.StepIndex = dest
	state.Progress = e.graph.ProgressAt(dest)
	if dest > state.MaxReachedStep {
		state.MaxReachedStep = dest
	}

	e.emitStep(ctx, e.hooks.OnStepEnter, domain.EventStepEnter, state, dest, transition)
}

func transitionName(transition string) string {
	if transition == "" {
		return domain.DefaultTransition
	}
	return transition
}
