package gaps

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/perbu/dockhand/pkg/dockhand"
)

// vec returns the 2-d unit vector at angle theta (radians)
func vec(theta float64) []float32 {
	return []float32{float32(math.Cos(theta)), float32(math.Sin(theta))}
}

type fakeStore struct {
	mu sync.Mutex

	Interactions []dockhand.Interaction
	Feedback     []dockhand.Feedback
	Runs         map[string]*dockhand.AnalysisRun
	Gaps         []*dockhand.KnowledgeGap

	InteractionEmbeddings map[string][]float32
	FeedbackEmbeddings    map[string][]float32
	SOPDrafts             map[string]string

	InsertGapFn func(gap *dockhand.KnowledgeGap) error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		Runs:                  make(map[string]*dockhand.AnalysisRun),
		InteractionEmbeddings: make(map[string][]float32),
		FeedbackEmbeddings:    make(map[string][]float32),
		SOPDrafts:             make(map[string]string),
	}
}

func (f *fakeStore) QuestionSignals(_ context.Context, _, _ time.Time, _ float64) ([]dockhand.Interaction, error) {
	out := make([]dockhand.Interaction, len(f.Interactions))
	copy(out, f.Interactions)
	return out, nil
}

func (f *fakeStore) FeedbackSignals(_ context.Context, _, _ time.Time) ([]dockhand.Feedback, error) {
	out := make([]dockhand.Feedback, len(f.Feedback))
	copy(out, f.Feedback)
	return out, nil
}

func (f *fakeStore) SetInteractionEmbedding(_ context.Context, id string, v []float32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.InteractionEmbeddings[id] = v
	return nil
}

func (f *fakeStore) SetFeedbackEmbedding(_ context.Context, id string, v []float32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.FeedbackEmbeddings[id] = v
	return nil
}

func (f *fakeStore) CreateRun(_ context.Context, run *dockhand.AnalysisRun) error {
	cp := *run
	f.Runs[run.ID] = &cp
	return nil
}

func (f *fakeStore) FinishRun(_ context.Context, run *dockhand.AnalysisRun) error {
	stored, ok := f.Runs[run.ID]
	if !ok || stored.Status != dockhand.RunRunning {
		return errors.New("run not running")
	}
	cp := *run
	f.Runs[run.ID] = &cp
	return nil
}

func (f *fakeStore) InsertGap(_ context.Context, gap *dockhand.KnowledgeGap) error {
	if f.InsertGapFn != nil {
		if err := f.InsertGapFn(gap); err != nil {
			return err
		}
	}
	f.Gaps = append(f.Gaps, gap)
	return nil
}

func (f *fakeStore) GetGap(_ context.Context, id string) (*dockhand.KnowledgeGap, error) {
	for _, g := range f.Gaps {
		if g.ID == id {
			cp := *g
			return &cp, nil
		}
	}
	return nil, errors.New("not found")
}

func (f *fakeStore) SetGapSOPDraft(_ context.Context, id, draft string, _ time.Time) error {
	f.SOPDrafts[id] = draft
	return nil
}

// fakeEmbedder maps texts to fixed vectors and fails for selected texts
type fakeEmbedder struct {
	mu      sync.Mutex
	Vectors map[string][]float32
	Fail    map[string]error
	Calls   []string
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, text)
	if err, ok := f.Fail[text]; ok {
		return nil, err
	}
	if v, ok := f.Vectors[text]; ok {
		return v, nil
	}
	return []float32{1, 0}, nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := f.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (f *fakeEmbedder) Dimension() int    { return 2 }
func (f *fakeEmbedder) ModelInfo() string { return "fake" }

type fakeGenerator struct {
	GenerateFn func(prompt string) (string, error)
	Prompts    []string
}

func (f *fakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	f.Prompts = append(f.Prompts, prompt)
	if f.GenerateFn != nil {
		return f.GenerateFn(prompt)
	}
	return `{"title":"Generated title","description":"Generated description."}`, nil
}
