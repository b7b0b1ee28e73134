package domain

import "encoding/json"

// CompletionState tells the submission endpoint whether the form is finished.
type CompletionState string

const (
	CompletionPartial  CompletionState = "Partial"
	CompletionComplete CompletionState = "Complete"
)

// Fixed values identifying the wizard to the submission endpoint.
const (
	SubmissionAction = "subscription_cancel_flow"
	SubmissionStage  = "subscription-management"
)

// Submission is the payload sent to the form-submission hooks.
// Answers holds the answers already exported to API shape; they are flattened into the
// top-level object when marshalled.
type Submission struct {
	SubscriptionID       string
	Action               string
	Stage                string
	PageStep             *int
	CompletionState      CompletionState
	CompletionPercentage int
	Answers              map[string]any
}

// Fields returns the flat object sent over the wire.
// Exported answers are merged last, so they win on key collisions.
func (s *Submission) Fields() map[string]any {
	out := map[string]any{
		"subscription_id":       s.SubscriptionID,
		"action":                s.Action,
		"stage":                 s.Stage,
		"completion_state":      s.CompletionState,
		"completion_percentage": s.CompletionPercentage,
	}
	if s.PageStep != nil {
		out["page_step"] = *s.PageStep
	} else {
		out["page_step"] = nil
	}
	for k, v := range s.Answers {
		out[k] = v
	}
	return out
}

// MarshalJSON implements json.Marshaler.
func (s Submission) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Fields())
}
