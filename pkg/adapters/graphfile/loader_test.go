package graphfile_test

import (
	"path/filepath"
	"testing"

	"github.com/aretw0/carepath/internal/validator"
	"github.com/aretw0/carepath/pkg/adapters/graphfile"
	"github.com/aretw0/carepath/pkg/domain"
	"github.com/aretw0/carepath/pkg/flows"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoader_YAMLMatchesBuiltInFlow(t *testing.T) {
	g, err := graphfile.New(filepath.Join("testdata", "cancel.yaml")).LoadGraph()
	require.NoError(t, err)
	require.NoError(t, validator.ValidateGraph(g))

	assert.Equal(t, flows.CancelFlow(), g)
}

func TestLoader_JSON(t *testing.T) {
	g, err := graphfile.New(filepath.Join("testdata", "quantity.json")).LoadGraph()
	require.NoError(t, err)
	require.NoError(t, validator.ValidateGraph(g))

	step, ok := g.Step("adjustQuantity")
	require.True(t, ok)
	assert.Equal(t, domain.OptionID("12"), step.Options[0].ID)

	target, ok := step.Route(12)
	require.True(t, ok)
	assert.Equal(t, domain.MainViewID, target)
}

func TestLoader_MissingFile(t *testing.T) {
	_, err := graphfile.New(filepath.Join("testdata", "nope.yaml")).LoadGraph()
	assert.Error(t, err)
}

func TestParse_RejectsUnknownKeys(t *testing.T) {
	_, err := graphfile.Parse([]byte("name: x\nstepz: []\n"), graphfile.FormatYAML)
	assert.ErrorContains(t, err, "stepz")
}

func TestParse_Empty(t *testing.T) {
	_, err := graphfile.Parse([]byte(""), graphfile.FormatYAML)
	assert.Error(t, err)
}

func TestParse_Malformed(t *testing.T) {
	_, err := graphfile.Parse([]byte("{"), graphfile.FormatJSON)
	assert.Error(t, err)
}
