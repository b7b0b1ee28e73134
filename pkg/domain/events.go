package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventStepEnter    EventType = "step_enter"
	EventStepLeave    EventType = "step_leave"
	EventSubmit       EventType = "submit"
	EventFlowComplete EventType = "flow_complete"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp      time.Time `json:"timestamp"`
	Type           EventType `json:"type"`
	SubscriptionID string    `json:"subscription_id"`
}

// StepEvent represents entry into or exit from a step.
type StepEvent struct {
	EventBase
	StepID     string `json:"step_id"`
	StepIndex  int    `json:"step_index"`
	Transition string `json:"transition,omitempty"`
}

// SubmitEvent represents a call to a submission hook.
type SubmitEvent struct {
	EventBase
	State    CompletionState `json:"completion_state"`
	PageStep *int            `json:"page_step,omitempty"`
	Err      error           `json:"-"`
}

// LifecycleHooks defines callbacks for engine observability.
type LifecycleHooks struct {
	OnStepEnter    func(context.Context, *StepEvent)
	OnStepLeave    func(context.Context, *StepEvent)
	OnSubmit       func(context.Context, *SubmitEvent)
	OnFlowComplete func(context.Context, *StepEvent)
}
