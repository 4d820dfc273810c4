package api

import (
	"context"
	"time"

	"github.com/perbu/dockhand/pkg/assistant"
	"github.com/perbu/dockhand/pkg/dockhand"
)

type mockAssistant struct {
	askFn      func(ctx context.Context, question, module string) (*assistant.Answer, error)
	rateFn     func(ctx context.Context, id string, positive bool) error
	feedbackFn func(ctx context.Context, in assistant.FeedbackInput) (*dockhand.Feedback, error)
	stepFn     func(ctx context.Context, step assistant.Step) (*assistant.StepMaterial, error)
}

func (m *mockAssistant) Ask(ctx context.Context, question, module string) (*assistant.Answer, error) {
	return m.askFn(ctx, question, module)
}

func (m *mockAssistant) Rate(ctx context.Context, id string, positive bool) error {
	return m.rateFn(ctx, id, positive)
}

func (m *mockAssistant) SubmitFeedback(ctx context.Context, in assistant.FeedbackInput) (*dockhand.Feedback, error) {
	return m.feedbackFn(ctx, in)
}

func (m *mockAssistant) StepContext(ctx context.Context, step assistant.Step) (*assistant.StepMaterial, error) {
	return m.stepFn(ctx, step)
}

type mockAnalyzer struct {
	runFn func(ctx context.Context, start, end time.Time) (*dockhand.AnalysisRun, error)
}

func (m *mockAnalyzer) Run(ctx context.Context, start, end time.Time) (*dockhand.AnalysisRun, error) {
	return m.runFn(ctx, start, end)
}

type mockDrafter struct {
	draftFn func(ctx context.Context, id string) (*dockhand.KnowledgeGap, error)
}

func (m *mockDrafter) Draft(ctx context.Context, id string) (*dockhand.KnowledgeGap, error) {
	return m.draftFn(ctx, id)
}

type mockGapStore struct {
	getRunFn       func(ctx context.Context, id string) (*dockhand.AnalysisRun, error)
	listRunsFn     func(ctx context.Context, limit int) ([]*dockhand.AnalysisRun, error)
	getGapFn       func(ctx context.Context, id string) (*dockhand.KnowledgeGap, error)
	listGapsFn     func(ctx context.Context, status dockhand.GapStatus) ([]*dockhand.KnowledgeGap, error)
	updateStatusFn func(ctx context.Context, id string, next dockhand.GapStatus, now time.Time) (*dockhand.KnowledgeGap, error)
	dismissFn      func(ctx context.Context, id string) error
}

func (m *mockGapStore) GetRun(ctx context.Context, id string) (*dockhand.AnalysisRun, error) {
	return m.getRunFn(ctx, id)
}

func (m *mockGapStore) ListRuns(ctx context.Context, limit int) ([]*dockhand.AnalysisRun, error) {
	return m.listRunsFn(ctx, limit)
}

func (m *mockGapStore) GetGap(ctx context.Context, id string) (*dockhand.KnowledgeGap, error) {
	return m.getGapFn(ctx, id)
}

func (m *mockGapStore) ListGaps(ctx context.Context, status dockhand.GapStatus) ([]*dockhand.KnowledgeGap, error) {
	return m.listGapsFn(ctx, status)
}

func (m *mockGapStore) UpdateGapStatus(ctx context.Context, id string, next dockhand.GapStatus, now time.Time) (*dockhand.KnowledgeGap, error) {
	return m.updateStatusFn(ctx, id, next, now)
}

func (m *mockGapStore) DismissFeedback(ctx context.Context, id string) error {
	return m.dismissFn(ctx, id)
}
