package domain

import "errors"

// ErrStepNotFound is returned when navigation targets a step that is not part of the graph.
var ErrStepNotFound = errors.New("step not found")

// ErrTransitionNotFound is returned when neither the conditional routes nor the navigation
// table define where to go next.
var ErrTransitionNotFound = errors.New("transition not found")

// ErrJumpRejected is returned when a jump targets a step beyond the progress already made.
var ErrJumpRejected = errors.New("jump beyond reached step rejected")

// ErrUnknownField is returned when an answer is recorded for a field no step declares.
var ErrUnknownField = errors.New("unknown answer field")

// ErrFlowNotFound is returned when no usable persisted flow exists for a subscription.
var ErrFlowNotFound = errors.New("flow not found")

// ErrKeyNotFound is returned by storage adapters for missing keys.
var ErrKeyNotFound = errors.New("key not found")

// ErrTokenNotFound is returned when a one-time token is unknown, expired or already used.
var ErrTokenNotFound = errors.New("token not found")

// ErrSubmissionFailed is returned when the completed form could not be delivered.
var ErrSubmissionFailed = errors.New("form submission failed")

// ErrNoActiveStep is returned when completing a flow that is showing the main view.
var ErrNoActiveStep = errors.New("no active wizard step")
