package domain

// Field is the key under which a step stores its answer.
// The valid fields of a session are exactly those declared by its graph's steps.
type Field string

// Answers holds the accumulated field -> value state of a wizard session.
// Values are scalars, or lists for checkbox steps.
type Answers map[Field]any

// Clone returns a copy of the map. List values are copied as well.
func (a Answers) Clone() Answers {
	out := make(Answers, len(a))
	for k, v := range a {
		switch list := v.(type) {
		case []any:
			out[k] = append([]any(nil), list...)
		case []string:
			out[k] = append([]string(nil), list...)
		default:
			out[k] = v
		}
	}
	return out
}

// FlowState is the snapshot of one wizard session, scoped to a single subscription.
// It is also the persisted record.
type FlowState struct {
	SubscriptionID string  `json:"subscriptionId"`
	Answers        Answers `json:"answers"`

	// StepIndex is the 1-based position of the current step; MainView (0) means no step is active.
	StepIndex int `json:"stepIndex"`

	// Progress is the static percentage of the current step (0-100).
	Progress int `json:"progress"`

	// MaxReachedStep is the high-water mark of forward progress. It never decreases within a session.
	MaxReachedStep int `json:"maxReachedStep"`
}

// NewFlowState creates a clean state for a subscription positioned at entry.
func NewFlowState(subscriptionID string, entry int) *FlowState {
	return &FlowState{
		SubscriptionID: subscriptionID,
		Answers:        make(Answers),
		StepIndex:      entry,
		MaxReachedStep: entry,
	}
}

// InMainView reports whether no wizard step is active.
func (s *FlowState) InMainView() bool {
	return s.StepIndex == MainView
}

// Clone returns a deep copy safe for mutation.
func (s *FlowState) Clone() *FlowState {
	if s == nil {
		return nil
	}
	next := *s
	next.Answers = s.Answers.Clone()
	return &next
}
