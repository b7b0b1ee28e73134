package ports

import (
	"context"

	"github.com/aretw0/carepath/pkg/domain"
)

// Submitter receives the flow's side-effects.
// The engine calls SubmitStep on every forward transition and SubmitForm once on completion.
type Submitter interface {
	SubmitStep(ctx context.Context, sub *domain.Submission) error
	SubmitForm(ctx context.Context, sub *domain.Submission) error
}
