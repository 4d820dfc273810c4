package gaps

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perbu/dockhand/pkg/dockhand"
)

func TestDraftStoresGeneratedSOP(t *testing.T) {
	store := newFakeStore()
	store.Gaps = []*dockhand.KnowledgeGap{{
		ID:              "g1",
		Title:           "Damaged pallets",
		Description:     "No procedure for damaged inbound pallets.",
		SuggestedModule: "Receiving",
		SampleSignals:   dockhand.SampleSignals{Questions: []string{"where do damaged pallets go"}},
		Status:          dockhand.GapOpen,
	}}
	gen := &fakeGenerator{GenerateFn: func(string) (string, error) {
		return "```markdown\n# Purpose\nHandle damaged pallets.\n```", nil
	}}

	gap, err := NewDrafter(store, gen, nil).Draft(context.Background(), "g1")
	require.NoError(t, err)
	require.NotNil(t, gap.SOPDraft)
	assert.Equal(t, "# Purpose\nHandle damaged pallets.", *gap.SOPDraft)
	assert.NotNil(t, gap.SOPDraftGeneratedAt)
	assert.Equal(t, *gap.SOPDraft, store.SOPDrafts["g1"])

	prompt := gen.Prompts[0]
	assert.True(t, strings.Contains(prompt, "Damaged pallets"))
	assert.Contains(t, prompt, "where do damaged pallets go")
	assert.Contains(t, prompt, "Receiving")
}

func TestDraftPropagatesGeneratorError(t *testing.T) {
	store := newFakeStore()
	store.Gaps = []*dockhand.KnowledgeGap{{ID: "g1", Title: "t"}}
	gen := &fakeGenerator{GenerateFn: func(string) (string, error) { return "", errors.New("timeout") }}

	_, err := NewDrafter(store, gen, nil).Draft(context.Background(), "g1")
	require.Error(t, err)
	assert.Empty(t, store.SOPDrafts)
}

func TestDraftRejectsEmptyOutput(t *testing.T) {
	store := newFakeStore()
	store.Gaps = []*dockhand.KnowledgeGap{{ID: "g1", Title: "t"}}
	gen := &fakeGenerator{GenerateFn: func(string) (string, error) { return "```\n```", nil }}

	_, err := NewDrafter(store, gen, nil).Draft(context.Background(), "g1")
	require.Error(t, err)
	assert.Empty(t, store.SOPDrafts)
}

func TestDraftUnknownGap(t *testing.T) {
	_, err := NewDrafter(newFakeStore(), &fakeGenerator{}, nil).Draft(context.Background(), "missing")
	require.Error(t, err)
}
