package runtime_test

import (
	"encoding/json"
	"testing"

	"github.com/aretw0/carepath/internal/runtime"
	"github.com/aretw0/carepath/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exportGraph() *domain.Graph {
	return &domain.Graph{
		Steps: []domain.StepConfig{
			{
				ID: "cancelReasons", Type: domain.StepCheckbox, Field: "cancelReasons",
				Options: []domain.Option{{ID: "reason1", Label: "Too slow"}, {ID: "reason4", Label: "Cost"}},
			},
			{
				ID: "adjustQuantity", Type: domain.StepRadio, Field: "quantity",
				Options: []domain.Option{{ID: "12", Label: "12 pills"}, {ID: "no_thanks", Label: "No thanks"}},
			},
			{ID: "feedback", Type: domain.StepText, Field: "feedback"},
			{ID: "offer", Type: domain.StepComponent, Field: "offer"},
			{ID: "confirm", Type: domain.StepComponent},
		},
	}
}

func TestExport_RadioLabel(t *testing.T) {
	g := exportGraph()

	assert.Equal(t, map[string]any{"quantity": "12 pills"}, runtime.Export(g, domain.Answers{"quantity": 12}))
	assert.Equal(t, map[string]any{"quantity": "12 pills"}, runtime.Export(g, domain.Answers{"quantity": "12"}))
	assert.Equal(t, map[string]any{"quantity": "12 pills"}, runtime.Export(g, domain.Answers{"quantity": float64(12)}))
	assert.Equal(t, map[string]any{"quantity": "12 pills"}, runtime.Export(g, domain.Answers{"quantity": int32(12)}))
	assert.Equal(t, map[string]any{"quantity": "12 pills"}, runtime.Export(g, domain.Answers{"quantity": uint(12)}))
	assert.Equal(t, map[string]any{"quantity": "12 pills"}, runtime.Export(g, domain.Answers{"quantity": float32(12)}))
	assert.Equal(t, map[string]any{"quantity": "No thanks"}, runtime.Export(g, domain.Answers{"quantity": "No thanks"}))
}

func TestExport_RadioFallsBackToRawValue(t *testing.T) {
	assert.Equal(t, map[string]any{"quantity": 30}, runtime.Export(exportGraph(), domain.Answers{"quantity": 30}))
}

func TestExport_CheckboxFanOut(t *testing.T) {
	got := runtime.Export(exportGraph(), domain.Answers{"cancelReasons": []any{"reason1", "reason4"}})

	assert.Equal(t, map[string]any{"reason1": "Too slow", "reason4": "Cost"}, got)
	assert.NotContains(t, got, "cancelReasons")
}

func TestExport_CheckboxShapes(t *testing.T) {
	g := exportGraph()

	assert.Equal(t, map[string]any{"reason4": "Cost"}, runtime.Export(g, domain.Answers{"cancelReasons": []string{"reason4"}}))
	assert.Equal(t, map[string]any{"reason1": "Too slow"}, runtime.Export(g, domain.Answers{"cancelReasons": "reason1"}))
	assert.Equal(t, map[string]any{"reason9": "reason9"}, runtime.Export(g, domain.Answers{"cancelReasons": []any{"reason9"}}))
	assert.Empty(t, runtime.Export(g, domain.Answers{"cancelReasons": []any{}}))
}

func TestExport_VerbatimAndOmitted(t *testing.T) {
	got := runtime.Export(exportGraph(), domain.Answers{
		"feedback": "  keep the original spacing ",
		"offer":    map[string]any{"accepted": true},
		"unknown":  "ignored",
	})

	assert.Equal(t, map[string]any{
		"feedback": "  keep the original spacing ",
		"offer":    map[string]any{"accepted": true},
	}, got)
}

func TestExport_Empty(t *testing.T) {
	assert.Empty(t, runtime.Export(exportGraph(), nil))
}

func TestExport_AnswersFromJSON(t *testing.T) {
	var answers domain.Answers
	require.NoError(t, json.Unmarshal([]byte(`{"cancelReasons":["reason1"],"quantity":12}`), &answers))

	assert.Equal(t, map[string]any{"reason1": "Too slow", "quantity": "12 pills"}, runtime.Export(exportGraph(), answers))
}
