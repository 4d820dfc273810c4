package assistant

import (
	"context"
	"errors"

	"github.com/perbu/dockhand/pkg/dockhand"
)

// Step is one curriculum step of a training module
type Step struct {
	Title      string   `json:"title"`
	Objectives []string `json:"objectives"`
	Module     string   `json:"module"`
}

// StepMaterial is the retrieved grounding for a training step
type StepMaterial struct {
	Step    Step                   `json:"step"`
	Queries []string               `json:"queries"`
	Sources []dockhand.ScoredChunk `json:"sources"`
}

// StepContext retrieves the passages that ground one training step, using
// the step title and its objectives as search queries
func (a *Assistant) StepContext(ctx context.Context, step Step) (*StepMaterial, error) {
	queries := dedupeQueries(append([]string{step.Title}, step.Objectives...), a.maxQueries)
	if len(queries) == 0 {
		return nil, errors.New("training step has no title or objectives")
	}

	chunks, err := a.retriever.Retrieve(ctx, queries, step.Module)
	if err != nil {
		return nil, err
	}
	return &StepMaterial{Step: step, Queries: queries, Sources: chunks}, nil
}
