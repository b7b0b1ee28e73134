package domain

import (
	"reflect"
)

// FlowDiff represents the changes between two flow states.
// It is designed to be serialized to JSON for partial updates on the client.
type FlowDiff struct {
	// SubscriptionID is always present to identify the target.
	SubscriptionID string `json:"subscription_id"`

	StepIndex      *int `json:"step_index,omitempty"`
	Progress       *int `json:"progress,omitempty"`
	MaxReachedStep *int `json:"max_reached_step,omitempty"`

	// Answers contains only changed, added or deleted fields.
	// For deletions (including purged branch answers), the field is present with a nil value.
	Answers map[Field]any `json:"answers,omitempty"`
}

// Diff calculates the difference between oldState and newState.
// If oldState is nil, it returns a diff representing the entire newState (initial load).
func Diff(oldState, newState *FlowState) *FlowDiff {
	if newState == nil {
		return nil
	}

	diff := &FlowDiff{
		SubscriptionID: newState.SubscriptionID,
	}

	if oldState == nil || oldState.StepIndex != newState.StepIndex {
		diff.StepIndex = &newState.StepIndex
	}
	if oldState == nil || oldState.Progress != newState.Progress {
		diff.Progress = &newState.Progress
	}
	if oldState == nil || oldState.MaxReachedStep != newState.MaxReachedStep {
		diff.MaxReachedStep = &newState.MaxReachedStep
	}

	diff.Answers = diffAnswers(oldState, newState)

	if diff.IsEmpty() {
		return nil
	}
	return diff
}

func diffAnswers(old *FlowState, new *FlowState) map[Field]any {
	delta := make(map[Field]any)

	if old == nil {
		for k, v := range new.Answers {
			delta[k] = v
		}
		if len(delta) == 0 {
			return nil
		}
		return delta
	}

	for k, newVal := range new.Answers {
		oldVal, exists := old.Answers[k]
		if !exists || !reflect.DeepEqual(oldVal, newVal) {
			delta[k] = newVal
		}
	}

	for k := range old.Answers {
		if _, exists := new.Answers[k]; !exists {
			delta[k] = nil
		}
	}

	if len(delta) == 0 {
		return nil
	}
	return delta
}

// Removed lists the fields deleted between the two states of the diff.
func (d *FlowDiff) Removed() []Field {
	if d == nil {
		return nil
	}
	var out []Field
	for k, v := range d.Answers {
		if v == nil {
			out = append(out, k)
		}
	}
	return out
}

// IsEmpty checks if the diff contains any actionable changes.
func (d *FlowDiff) IsEmpty() bool {
	return d.StepIndex == nil &&
		d.Progress == nil &&
		d.MaxReachedStep == nil &&
		len(d.Answers) == 0
}
