package carepath_test

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/carepath"
	"github.com/aretw0/carepath/pkg/adapters/memory"
	"github.com/aretw0/carepath/pkg/domain"
	"github.com/aretw0/carepath/pkg/flows"
	"github.com/aretw0/carepath/pkg/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSubmitter struct {
	mu      sync.Mutex
	steps   []*domain.Submission
	forms   []*domain.Submission
	formErr error
}

func (f *fakeSubmitter) SubmitStep(_ context.Context, sub *domain.Submission) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.steps = append(f.steps, sub)
	return nil
}

func (f *fakeSubmitter) SubmitForm(_ context.Context, sub *domain.Submission) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.forms = append(f.forms, sub)
	return f.formErr
}

type fixture struct {
	engine    *carepath.Engine
	store     *memory.Store
	submitter *fakeSubmitter
	now       *time.Time
}

func newFixture(t *testing.T, opts ...carepath.Option) *fixture {
	t.Helper()
	now := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	f := &fixture{
		store:     memory.NewStore(memory.WithClock(clock)),
		submitter: &fakeSubmitter{},
		now:       &now,
	}
	base := []carepath.Option{
		carepath.WithStorage(f.store),
		carepath.WithSubmitter(f.submitter),
		carepath.WithClock(clock),
	}
	eng, err := carepath.New(append(base, opts...)...)
	require.NoError(t, err)
	f.engine = eng
	return f
}

func (f *fixture) walkToTreatmentWorked(t *testing.T, id string) *domain.FlowState {
	t.Helper()
	ctx := context.Background()
	_, err := f.engine.Initialize(ctx, id)
	require.NoError(t, err)

	var s *domain.FlowState
	steps := []struct {
		transition string
		answer     any
	}{
		{flows.TransitionPauseCancel, nil},
		{"", []any{"reason1", "reason4"}},
		{"", "cancel"},
		{"", "12"},
	}
	for _, step := range steps {
		s, err = f.engine.Advance(ctx, id, step.transition, step.answer)
		require.NoError(t, err)
	}
	require.Equal(t, 4, s.StepIndex)
	return s
}

func TestNew_InvalidGraph(t *testing.T) {
	g := flows.CancelFlow()
	g.Navigation[flows.StepPauseInstead]["next"] = "ghost"

	_, err := carepath.New(carepath.WithGraph(g))
	assert.ErrorIs(t, err, domain.ErrStepNotFound)
}

func TestNew_UnknownEntryStep(t *testing.T) {
	_, err := carepath.New(carepath.WithEntryStep("ghost"))
	assert.ErrorIs(t, err, domain.ErrStepNotFound)
}

func TestEngine_InitializeFresh(t *testing.T) {
	f := newFixture(t)

	s, err := f.engine.Initialize(context.Background(), "sub_1")
	require.NoError(t, err)
	assert.True(t, s.InMainView())
	assert.Empty(t, s.Answers)

	f2 := newFixture(t, carepath.WithEntryStep(flows.StepPauseInstead))
	s2, err := f2.engine.Initialize(context.Background(), "sub_1")
	require.NoError(t, err)
	assert.Equal(t, 2, s2.StepIndex)
	assert.Equal(t, 30, s2.Progress)
}

func TestEngine_IdempotentReentry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.walkToTreatmentWorked(t, "sub_1")

	repo := persistence.NewRepository(f.store)
	before, err := repo.Raw(ctx, "sub_1")
	require.NoError(t, err)

	*f.now = f.now.Add(time.Hour)
	restored, err := f.engine.Initialize(ctx, "sub_1")
	require.NoError(t, err)
	assert.Equal(t, 4, restored.StepIndex)

	after, err := repo.Raw(ctx, "sub_1")
	require.NoError(t, err)
	assert.Equal(t, before, after)

	_, expiryKey := repo.Keys("sub_1")
	expiry, err := f.store.Get(ctx, expiryKey)
	require.NoError(t, err)
	assert.Equal(t, strconv.FormatInt(f.now.Add(persistence.DefaultTTL).UnixMilli(), 10), expiry, "expiry is refreshed")
}

func TestEngine_Isolation(t *testing.T) {
	f := newFixture(t)
	f.walkToTreatmentWorked(t, "sub_1")

	other, err := f.engine.Initialize(context.Background(), "sub_2")
	require.NoError(t, err)
	assert.True(t, other.InMainView())
	assert.Empty(t, other.Answers)
}

func TestEngine_SharedSlotIsolation(t *testing.T) {
	f := newFixture(t, carepath.WithScope(persistence.SharedSlot))
	f.walkToTreatmentWorked(t, "sub_1")

	other, err := f.engine.Initialize(context.Background(), "sub_2")
	require.NoError(t, err)
	assert.Empty(t, other.Answers, "answers of another subscription are never reused")
}

func TestEngine_TTLExpiry(t *testing.T) {
	f := newFixture(t)
	f.walkToTreatmentWorked(t, "sub_1")

	*f.now = f.now.Add(25 * time.Hour)
	s, err := f.engine.Initialize(context.Background(), "sub_1")
	require.NoError(t, err)
	assert.True(t, s.InMainView())
	assert.Empty(t, s.Answers)
}

func TestEngine_BranchPurgeIsPersisted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.walkToTreatmentWorked(t, "sub_1")

	_, err := f.engine.Advance(ctx, "sub_1", "", "yes")
	require.NoError(t, err)
	_, err = f.engine.Advance(ctx, "sub_1", "", "it helped")
	require.NoError(t, err)

	s, err := f.engine.JumpTo(ctx, "sub_1", flows.StepTreatmentWorked)
	require.NoError(t, err)
	require.Equal(t, 4, s.StepIndex)

	_, err = f.engine.Advance(ctx, "sub_1", "", "no")
	require.NoError(t, err)

	restored, err := f.engine.Initialize(ctx, "sub_1")
	require.NoError(t, err)
	assert.Equal(t, 6, restored.StepIndex)
	assert.Equal(t, 7, restored.MaxReachedStep)
	assert.NotContains(t, restored.Answers, flows.FieldTreatmentFeedback)
}

func TestEngine_MissingTransitionKeepsAnswer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.walkToTreatmentWorked(t, "sub_1")

	s, err := f.engine.Advance(ctx, "sub_1", "teleport", "yes")
	require.NoError(t, err, "a matching conditional route wins over the transition name")
	require.Equal(t, 5, s.StepIndex)

	s, err = f.engine.Advance(ctx, "sub_1", "teleport", "great")
	require.ErrorIs(t, err, domain.ErrTransitionNotFound)
	assert.Equal(t, 5, s.StepIndex)

	restored, err := f.engine.Initialize(ctx, "sub_1")
	require.NoError(t, err)
	assert.Equal(t, "great", restored.Answers[flows.FieldTreatmentFeedback])
}

func TestEngine_JumpRejectedLeavesStorage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.walkToTreatmentWorked(t, "sub_1")

	_, err := f.engine.JumpTo(ctx, "sub_1", flows.StepConfirmCancel)
	require.ErrorIs(t, err, domain.ErrJumpRejected)

	restored, err := f.engine.Initialize(ctx, "sub_1")
	require.NoError(t, err)
	assert.Equal(t, 4, restored.StepIndex)
}

func TestEngine_RetreatPersists(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.walkToTreatmentWorked(t, "sub_1")

	s, err := f.engine.Retreat(ctx, "sub_1")
	require.NoError(t, err)
	assert.Equal(t, 3, s.StepIndex)

	restored, err := f.engine.Initialize(ctx, "sub_1")
	require.NoError(t, err)
	assert.Equal(t, 3, restored.StepIndex)
	assert.Equal(t, 4, restored.MaxReachedStep)
}

func TestEngine_PauseExitsFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.engine.Initialize(ctx, "sub_1")
	require.NoError(t, err)
	_, err = f.engine.Advance(ctx, "sub_1", flows.TransitionPauseCancel, nil)
	require.NoError(t, err)
	_, err = f.engine.Advance(ctx, "sub_1", "", []any{"reason2"})
	require.NoError(t, err)

	s, err := f.engine.Advance(ctx, "sub_1", flows.TransitionPause, "pause")
	require.NoError(t, err)
	assert.True(t, s.InMainView())
	assert.Empty(t, f.store.Keys())

	last := f.submitter.steps[len(f.submitter.steps)-1].Fields()
	assert.Equal(t, 2, last["page_step"])
	assert.Equal(t, 30, last["completion_percentage"], "leaving early keeps the answered step's progress")
}

func TestEngine_Complete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.walkToTreatmentWorked(t, "sub_1")
	_, err := f.engine.Advance(ctx, "sub_1", "", "no")
	require.NoError(t, err)
	_, err = f.engine.Advance(ctx, "sub_1", "", "too expensive")
	require.NoError(t, err)

	s, err := f.engine.Complete(ctx, "sub_1", nil)
	require.NoError(t, err)
	assert.True(t, s.InMainView())
	assert.Empty(t, f.store.Keys())

	require.Len(t, f.submitter.forms, 1)
	fields := f.submitter.forms[0].Fields()
	assert.Equal(t, "sub_1", fields["subscription_id"])
	assert.Equal(t, domain.SubmissionAction, fields["action"])
	assert.Equal(t, domain.SubmissionStage, fields["stage"])
	assert.Equal(t, domain.CompletionComplete, fields["completion_state"])
	assert.Equal(t, 100, fields["completion_percentage"])
	assert.Equal(t, "12 pills", fields["quantity"])
	assert.Equal(t, "too expensive", fields["additionalFeedback"])
}

func TestEngine_CompleteFailureIsRetryable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.walkToTreatmentWorked(t, "sub_1")
	f.submitter.formErr = errors.New("submission endpoint unavailable")

	_, err := f.engine.Complete(ctx, "sub_1", "yes")
	require.Error(t, err)

	restored, err := f.engine.Initialize(ctx, "sub_1")
	require.NoError(t, err)
	assert.Equal(t, 4, restored.StepIndex)
	assert.Equal(t, "yes", restored.Answers[flows.FieldTreatmentWorked])

	f.submitter.formErr = nil
	_, err = f.engine.Complete(ctx, "sub_1", "yes")
	require.NoError(t, err)
	assert.Len(t, f.submitter.forms, 2)
}

func TestEngine_CompleteWithoutActiveStep(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.engine.Initialize(ctx, "sub_x")
	require.NoError(t, err)
	keys := f.store.Keys()

	s, err := f.engine.Complete(ctx, "sub_x", nil)
	require.ErrorIs(t, err, domain.ErrNoActiveStep)
	assert.True(t, s.InMainView())
	assert.Empty(t, f.submitter.forms)
	assert.Empty(t, f.submitter.steps)
	assert.Equal(t, keys, f.store.Keys())

	f.walkToTreatmentWorked(t, "sub_y")
	_, err = f.engine.Exit(ctx, "sub_y")
	require.NoError(t, err)
	_, err = f.engine.Complete(ctx, "sub_y", "yes")
	require.ErrorIs(t, err, domain.ErrNoActiveStep)
	assert.Empty(t, f.submitter.forms)
}

func TestEngine_Exit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.walkToTreatmentWorked(t, "sub_1")

	s, err := f.engine.Exit(ctx, "sub_1")
	require.NoError(t, err)
	assert.True(t, s.InMainView())
	assert.Empty(t, f.store.Keys())
}

func TestEngine_Export(t *testing.T) {
	f := newFixture(t)
	f.walkToTreatmentWorked(t, "sub_1")

	out, err := f.engine.Export(context.Background(), "sub_1")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"reason1":      "Too slow",
		"reason4":      "Cost",
		"pauseInstead": "Continue to cancel",
		"quantity":     "12 pills",
	}, out)
}

func TestEngine_ConcurrentAdvances(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.engine.Initialize(ctx, "sub_1")
	require.NoError(t, err)
	_, err = f.engine.Advance(ctx, "sub_1", flows.TransitionPauseCancel, nil)
	require.NoError(t, err)

	// Retreat/advance pairs from many goroutines must never lose the high-water mark.
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = f.engine.Advance(ctx, "sub_1", "", []any{"reason1"})
			_, _ = f.engine.Retreat(ctx, "sub_1")
		}()
	}
	wg.Wait()

	s, err := f.engine.Initialize(ctx, "sub_1")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, s.MaxReachedStep, 2)
}
