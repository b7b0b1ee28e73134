package runtime

import (
	"context"
	"fmt"

	"github.com/aretw0/carepath/pkg/domain"
)

func (e *Engine) base(t domain.EventType, state *domain.FlowState) domain.EventBase {
	return domain.EventBase{
		Timestamp:      e.now(),
		Type:           t,
		SubscriptionID: state.SubscriptionID,
	}
}

func (e *Engine) emitStep(ctx context.Context, hook func(context.Context, *domain.StepEvent), t domain.EventType, state *domain.FlowState, pos int, transition string) {
	if hook == nil {
		return
	}
	hook(ctx, &domain.StepEvent{
		EventBase:  e.base(t, state),
		StepID:     e.graph.StepID(pos),
		StepIndex:  pos,
		Transition: transition,
	})
}

func (e *Engine) emitFlowComplete(ctx context.Context, state *domain.FlowState) {
	if e.hooks.OnFlowComplete == nil {
		return
	}
	e.hooks.OnFlowComplete(ctx, &domain.StepEvent{
		EventBase:  e.base(domain.EventFlowComplete, state),
		StepID:     domain.MainViewID,
		StepIndex:  domain.MainView,
		Transition: "complete",
	})
}

func (e *Engine) emitSubmit(ctx context.Context, sub *domain.Submission, err error) {
	if e.hooks.OnSubmit == nil {
		return
	}
	e.hooks.OnSubmit(ctx, &domain.SubmitEvent{
		EventBase: domain.EventBase{
			Timestamp:      e.now(),
			Type:           domain.EventSubmit,
			SubscriptionID: sub.SubscriptionID,
		},
		State:    sub.CompletionState,
		PageStep: sub.PageStep,
		Err:      err,
	})
}

// submission builds the hook payload for the step just answered.
func (e *Engine) submission(state *domain.FlowState, completion domain.CompletionState, percentage int) *domain.Submission {
	sub := &domain.Submission{
		SubscriptionID:       state.SubscriptionID,
		Action:               domain.SubmissionAction,
		Stage:                domain.SubmissionStage,
		CompletionState:      completion,
		CompletionPercentage: percentage,
		Answers:              Export(e.graph, state.Answers),
	}
	if !state.InMainView() {
		page := state.StepIndex
		sub.PageStep = &page
	}
	return sub
}

// submitStep sends partial progress. Failures never block navigation.
func (e *Engine) submitStep(ctx context.Context, state *domain.FlowState, percentage int) {
	if e.submitter == nil {
		return
	}
	sub := e.submission(state, domain.CompletionPartial, percentage)
	err := e.submitter.SubmitStep(ctx, sub)
	if err != nil {
		e.logger.Warn("step submission failed",
			"subscription_id", state.SubscriptionID,
			"page_step", state.StepIndex,
			"err", err)
	}
	e.emitSubmit(ctx, sub, err)
}

// submitForm sends the completed form.
func (e *Engine) submitForm(ctx context.Context, state *domain.FlowState) error {
	if e.submitter == nil {
		return nil
	}
	sub := e.submission(state, domain.CompletionComplete, 100)
	err := e.submitter.SubmitForm(ctx, sub)
	e.emitSubmit(ctx, sub, err)
	if err != nil {
		e.logger.Error("form submission failed", "subscription_id", state.SubscriptionID, "err", err)
		return fmt.Errorf("%w: %w", domain.ErrSubmissionFailed, err)
	}
	return nil
}
