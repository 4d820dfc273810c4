package gaps

import (
	"context"

	"go.uber.org/zap"

	"github.com/perbu/dockhand/pkg/dockhand"
	"github.com/perbu/dockhand/pkg/generator"
)

const (
	maxTitleRunes       = 80
	fallbackDescription = "Cluster of related questions and feedback."
)

// Summary is the generated title and description of a cluster
type Summary struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Summarizer titles clusters through the generator
type Summarizer struct {
	gen    generator.Generator
	logger *zap.Logger
}

// NewSummarizer creates a summarizer
func NewSummarizer(gen generator.Generator, logger *zap.Logger) *Summarizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Summarizer{gen: gen, logger: logger}
}

// Summarize asks the generator for a title and description. It never fails:
// unusable or missing output yields a summary built from the first sample.
func (s *Summarizer) Summarize(ctx context.Context, c *Cluster) Summary {
	samples := Samples(c)
	fallback := fallbackSummary(samples)

	raw, err := s.gen.Generate(ctx, buildSummaryPrompt(samples))
	if err != nil {
		s.logger.Warn("gap summary generation failed, using fallback", zap.Error(err))
		return fallback
	}

	res := generator.ParseJSON(raw, fallback)
	if res.Fallback {
		s.logger.Warn("malformed gap summary, using fallback", zap.Error(res.Err))
		return fallback
	}

	summary := res.Value
	if summary.Title == "" {
		summary.Title = fallback.Title
	}
	if summary.Description == "" {
		summary.Description = fallback.Description
	}
	summary.Title = truncateRunes(summary.Title, maxTitleRunes)
	return summary
}

func fallbackSummary(samples dockhand.SampleSignals) Summary {
	first := ""
	switch {
	case len(samples.Questions) > 0:
		first = samples.Questions[0]
	case len(samples.Feedback) > 0:
		first = samples.Feedback[0]
	}
	return Summary{
		Title:       truncateRunes(first, maxTitleRunes),
		Description: fallbackDescription,
	}
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
