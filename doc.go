/*
Package carepath is the server-side core of a patient portal's subscription management.

It drives guided wizards (cancel, pause, adjust quantity, feedback) described as a declarative
step graph: ordered steps of type radio, checkbox, text or component, a navigation table of
named transitions, optional answer-driven routes, and a static progress table.

# Concept

Each subscription owns one FlowState: the current step position, the accumulated answers,
the progress percentage and the furthest step reached. Every forward transition records the
answer of the current step, purges answers of steps a branch skipped, notifies the submission
endpoint with the answers in API shape, and persists the state with a 24 hour expiry.
Completing or exiting the wizard clears the persisted state.

Operations on one subscription are serialised, locally and (with a DistributedLocker) across
instances.

# Usage

	eng, err := carepath.New(
		carepath.WithStorage(redis.New("localhost:6379", "", 0)),
		carepath.WithSubmitter(submission.NewHTTPSubmitter(url)),
	)
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	state, _ := eng.Initialize(ctx, "sub_123")
	state, _ = eng.Advance(ctx, "sub_123", flows.TransitionPauseCancel, nil)
	state, _ = eng.Advance(ctx, "sub_123", "", []string{"reason1", "reason4"})

The CRM authentication gateway lives in package crm; one-time login tokens in package autologin.
*/
package carepath
