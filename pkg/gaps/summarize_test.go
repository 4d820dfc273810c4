package gaps

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSummarizeParsesGeneratorJSON(t *testing.T) {
	gen := &fakeGenerator{GenerateFn: func(string) (string, error) {
		return "```json\n{\"title\":\"Damaged pallet handling\",\"description\":\"Staff do not know where damaged pallets go.\"}\n```", nil
	}}
	c := clusterOf(
		Signal{Kind: KindQuestion, Text: "where do damaged pallets go"},
		Signal{Kind: KindFeedback, Text: "nobody told me about the damage bay"},
	)

	summary := NewSummarizer(gen, nil).Summarize(context.Background(), c)
	assert.Equal(t, "Damaged pallet handling", summary.Title)
	assert.Equal(t, "Staff do not know where damaged pallets go.", summary.Description)

	prompt := gen.Prompts[0]
	assert.Contains(t, prompt, "where do damaged pallets go")
	assert.Contains(t, prompt, "nobody told me about the damage bay")
}

func TestSummarizeFallsBackOnMalformedOutput(t *testing.T) {
	long := strings.Repeat("x", 120)
	gen := &fakeGenerator{GenerateFn: func(string) (string, error) {
		return "Here is a summary: the staff are confused", nil
	}}
	c := clusterOf(
		Signal{Kind: KindFeedback, Text: "feedback first in member order"},
		Signal{Kind: KindQuestion, Text: long},
	)

	summary := NewSummarizer(gen, nil).Summarize(context.Background(), c)
	assert.Equal(t, strings.Repeat("x", 80), summary.Title, "first question sample, cut to 80")
	assert.Equal(t, "Cluster of related questions and feedback.", summary.Description)
}

func TestSummarizeFallsBackOnGeneratorError(t *testing.T) {
	gen := &fakeGenerator{GenerateFn: func(string) (string, error) {
		return "", errors.New("upstream timeout")
	}}
	c := clusterOf(
		Signal{Kind: KindFeedback, Text: "label printer jams"},
		Signal{Kind: KindFeedback, Text: "printer keeps jamming"},
	)

	summary := NewSummarizer(gen, nil).Summarize(context.Background(), c)
	assert.Equal(t, "label printer jams", summary.Title)
	assert.Equal(t, "Cluster of related questions and feedback.", summary.Description)
}

func TestSummarizeFillsMissingFields(t *testing.T) {
	gen := &fakeGenerator{GenerateFn: func(string) (string, error) {
		return `{"title":"","description":"Only a description"}`, nil
	}}
	c := clusterOf(Signal{Kind: KindQuestion, Text: "how do I cycle count"}, Signal{Kind: KindQuestion, Text: "cycle count steps"})

	summary := NewSummarizer(gen, nil).Summarize(context.Background(), c)
	assert.Equal(t, "how do I cycle count", summary.Title)
	assert.Equal(t, "Only a description", summary.Description)
}

func TestTruncateRunesKeepsMultibyteIntact(t *testing.T) {
	s := strings.Repeat("é", 100)
	got := truncateRunes(s, 80)
	assert.Equal(t, 80, len([]rune(got)))
	assert.Equal(t, "short", truncateRunes("short", 80))
}
