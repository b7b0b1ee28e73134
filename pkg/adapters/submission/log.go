package submission

import (
	"context"
	"log/slog"

	"github.com/aretw0/carepath/pkg/domain"
)

// LogSubmitter records submissions in the log instead of sending them.
// It is the default when no submission endpoint is configured.
type LogSubmitter struct {
	logger *slog.Logger
}

// NewLogSubmitter creates a submitter writing to logger.
func NewLogSubmitter(logger *slog.Logger) *LogSubmitter {
	return &LogSubmitter{logger: logger}
}

// SubmitStep logs partial progress.
func (s *LogSubmitter) SubmitStep(ctx context.Context, sub *domain.Submission) error {
	s.log(ctx, "step submission", sub)
	return nil
}

// SubmitForm logs the completed form.
func (s *LogSubmitter) SubmitForm(ctx context.Context, sub *domain.Submission) error {
	s.log(ctx, "form submission", sub)
	return nil
}

func (s *LogSubmitter) log(ctx context.Context, msg string, sub *domain.Submission) {
	// Answer values are medical data; only their keys are logged.
	keys := make([]string, 0, len(sub.Answers))
	for k := range sub.Answers {
		keys = append(keys, k)
	}
	var page any
	if sub.PageStep != nil {
		page = *sub.PageStep
	}
	s.logger.InfoContext(ctx, msg,
		"subscription_id", sub.SubscriptionID,
		"page_step", page,
		"completion_state", sub.CompletionState,
		"completion_percentage", sub.CompletionPercentage,
		"answer_keys", keys)
}
