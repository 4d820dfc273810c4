package assistant

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perbu/dockhand/pkg/dockhand"
)

func TestStepContext(t *testing.T) {
	ret := &fakeRetriever{chunks: []dockhand.ScoredChunk{passage("c1", 0.7)}}
	a := newTestAssistant(newMemStore(), &scriptedGenerator{}, ret)

	mat, err := a.StepContext(context.Background(), Step{
		Title:      "Forklift pre-shift check",
		Objectives: []string{"Inspect forks and chains", "forklift pre-shift check", "Test the horn"},
		Module:     "Equipment",
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"Forklift pre-shift check", "Inspect forks and chains", "Test the horn"}, mat.Queries)
	assert.Equal(t, []string{"Equipment"}, ret.modules)
	assert.Len(t, mat.Sources, 1)

	_, err = a.StepContext(context.Background(), Step{})
	require.Error(t, err)
}
