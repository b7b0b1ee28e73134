package validator

import (
	"errors"
	"fmt"
	"strings"
)

// ValidationError represents a single graph configuration problem.
type ValidationError struct {
	StepID string // Offending step, or navigation source
	Reason string // Human-readable reason for failure
	Err    error  // Optional domain sentinel
}

func (e *ValidationError) Error() string {
	if e.StepID == "" {
		return e.Reason
	}
	return fmt.Sprintf("step %q: %s", e.StepID, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// AggregateError represents multiple validation failures.
type AggregateError struct {
	Errors []error
}

func (e *AggregateError) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d validation errors:\n", len(e.Errors))
	for i, err := range e.Errors {
		fmt.Fprintf(&b, "  %d. %s\n", i+1, err.Error())
	}
	return b.String()
}

// Unwrap lets errors.Is match any of the aggregated sentinels.
func (e *AggregateError) Unwrap() []error {
	return e.Errors
}

// ValidationErrors returns all validation errors if err is an AggregateError.
// Otherwise returns nil.
func ValidationErrors(err error) []error {
	var aggr *AggregateError
	if errors.As(err, &aggr) {
		return aggr.Errors
	}
	return nil
}
