package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestOptionID_Unmarshal(t *testing.T) {
	var opts []Option
	require.NoError(t, json.Unmarshal([]byte(`[{"id":12,"label":"12 pills"},{"id":"no_thanks","label":"No thanks"}]`), &opts))
	assert.Equal(t, OptionID("12"), opts[0].ID)
	assert.Equal(t, OptionID("no_thanks"), opts[1].ID)

	var fromYAML []Option
	require.NoError(t, yaml.Unmarshal([]byte("- id: 24\n  label: 24 pills\n"), &fromYAML))
	assert.Equal(t, OptionID("24"), fromYAML[0].ID)
}

func TestStepConfig_Option(t *testing.T) {
	step := StepConfig{
		Type:  StepRadio,
		Field: "quantity",
		Options: []Option{
			{ID: "12", Label: "12 pills"},
			{ID: "no_thanks", Label: "No thanks"},
		},
	}

	opt, ok := step.Option(12)
	require.True(t, ok, "numeric answers match by string form")
	assert.Equal(t, "12 pills", opt.Label)

	opt, ok = step.Option(float64(12))
	require.True(t, ok, "JSON numbers match as well")
	assert.Equal(t, "12 pills", opt.Label)

	opt, ok = step.Option("No thanks")
	require.True(t, ok, "labels match too")
	assert.Equal(t, OptionID("no_thanks"), opt.ID)

	_, ok = step.Option("unknown")
	assert.False(t, ok)

	_, ok = step.Option([]any{"12"})
	assert.False(t, ok, "lists are not scalars")
}

func TestStepConfig_Route(t *testing.T) {
	step := StepConfig{
		Field: "treatmentWorked",
		ConditionalNavigation: &ConditionalNavigation{
			Routes: map[string]string{"yes": "a", "no": "b"},
		},
	}

	target, ok := step.Route("no")
	assert.True(t, ok)
	assert.Equal(t, "b", target)

	_, ok = step.Route("maybe")
	assert.False(t, ok)

	_, ok = (&StepConfig{}).Route("yes")
	assert.False(t, ok, "steps without conditional navigation never route")
}

type reason string

func TestScalarString(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
		ok   bool
	}{
		{"string", "yes", "yes", true},
		{"int", 12, "12", true},
		{"int32", int32(12), "12", true},
		{"int8", int8(-3), "-3", true},
		{"uint", uint(12), "12", true},
		{"uint64", uint64(24), "24", true},
		{"float32", float32(0.5), "0.5", true},
		{"float32 decimal", float32(0.1), "0.1", true},
		{"float64", 12.0, "12", true},
		{"named string", reason("cost"), "cost", true},
		{"bool", true, "true", true},
		{"nil", nil, "", false},
		{"list", []any{"a"}, "", false},
		{"map", map[string]any{"a": 1}, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ScalarString(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStepConfig_NumericWidths(t *testing.T) {
	step := StepConfig{
		Type:    StepRadio,
		Field:   "quantity",
		Options: []Option{{ID: "12", Label: "12 pills"}},
		ConditionalNavigation: &ConditionalNavigation{
			Routes: map[string]string{"12": "next"},
		},
	}

	for _, answer := range []any{int32(12), uint(12), float32(12)} {
		opt, ok := step.Option(answer)
		require.True(t, ok, "%T", answer)
		assert.Equal(t, "12 pills", opt.Label)

		target, ok := step.Route(answer)
		require.True(t, ok, "%T", answer)
		assert.Equal(t, "next", target)
	}
}

func TestGraph_Positions(t *testing.T) {
	g := Graph{
		Steps:    []StepConfig{{ID: "a"}, {ID: "b"}},
		Progress: map[string]int{"a": 40, "b": 80},
	}

	pos, ok := g.Position("b")
	assert.True(t, ok)
	assert.Equal(t, 2, pos)

	pos, ok = g.Position(MainViewID)
	assert.True(t, ok)
	assert.Equal(t, MainView, pos)

	_, ok = g.Position("missing")
	assert.False(t, ok)

	assert.Equal(t, EntryStepID, g.NavigationSource(MainView))
	assert.Equal(t, "a", g.NavigationSource(1))
	assert.Equal(t, MainViewID, g.StepID(0))
	assert.Equal(t, 80, g.ProgressAt(2))
	assert.Equal(t, 0, g.ProgressAt(MainView))
}

func TestSubmission_Fields(t *testing.T) {
	page := 3
	sub := Submission{
		SubscriptionID:       "sub-1",
		Action:               SubmissionAction,
		Stage:                SubmissionStage,
		PageStep:             &page,
		CompletionState:      CompletionPartial,
		CompletionPercentage: 45,
		Answers:              map[string]any{"quantity": "12 pills"},
	}

	raw, err := json.Marshal(sub)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, "sub-1", got["subscription_id"])
	assert.Equal(t, "subscription_cancel_flow", got["action"])
	assert.Equal(t, "subscription-management", got["stage"])
	assert.Equal(t, float64(3), got["page_step"])
	assert.Equal(t, "Partial", got["completion_state"])
	assert.Equal(t, float64(45), got["completion_percentage"])
	assert.Equal(t, "12 pills", got["quantity"])

	sub.PageStep = nil
	raw, err = json.Marshal(sub)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"page_step":null`)
}
