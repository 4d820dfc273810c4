package gaps

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/perbu/dockhand/pkg/dockhand"
	"github.com/perbu/dockhand/pkg/embedder"
	"github.com/perbu/dockhand/pkg/generator"
	"github.com/perbu/dockhand/pkg/metrics"
)

// Store is everything an analysis run reads and writes
type Store interface {
	CollectorStore
	CreateRun(ctx context.Context, run *dockhand.AnalysisRun) error
	FinishRun(ctx context.Context, run *dockhand.AnalysisRun) error
	InsertGap(ctx context.Context, gap *dockhand.KnowledgeGap) error
}

// Options tunes an Analyzer
type Options struct {
	LowSimilarity float64      // see DefaultLowSimilarity
	Policy        SignalPolicy // nil selects DefaultPolicy
}

// Analyzer runs gap analysis: collect, cluster, score, summarize, persist.
// Runs are not serialized; callers that need exactly-once runs per period
// must serialize triggers themselves.
type Analyzer struct {
	store      Store
	collector  *Collector
	clusterer  *Clusterer
	summarizer *Summarizer
	policy     SignalPolicy
	logger     *zap.Logger

	now   func() time.Time
	newID func() string
}

// NewAnalyzer wires an analyzer from its collaborators
func NewAnalyzer(store Store, emb embedder.Embedder, gen generator.Generator, opts Options, logger *zap.Logger) *Analyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	policy := opts.Policy
	if policy == nil {
		policy = DefaultPolicy
	}
	return &Analyzer{
		store:      store,
		collector:  NewCollector(store, emb, opts.LowSimilarity, logger),
		clusterer:  NewClusterer(policy),
		summarizer: NewSummarizer(gen, logger),
		policy:     policy,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
		newID:      uuid.NewString,
	}
}

// Run analyzes signals in [start, end] and returns the finished run record.
// Gaps are persisted one at a time as clusters are summarized. If a later
// step fails the run is marked failed and gaps already inserted stay.
func (a *Analyzer) Run(ctx context.Context, start, end time.Time) (*dockhand.AnalysisRun, error) {
	began := time.Now()
	run := &dockhand.AnalysisRun{
		ID:          a.newID(),
		PeriodStart: start,
		PeriodEnd:   end,
		Status:      dockhand.RunRunning,
		StartedAt:   a.now(),
	}
	if err := a.store.CreateRun(ctx, run); err != nil {
		return nil, fmt.Errorf("creating analysis run: %w", err)
	}

	log := a.logger.With(zap.String("run_id", run.ID))
	log.Info("gap analysis started", zap.Time("period_start", start), zap.Time("period_end", end))

	signals, err := a.collector.Collect(ctx, start, end)
	if err != nil {
		return a.fail(ctx, run, fmt.Errorf("collecting signals: %w", err))
	}
	run.TotalSignals = signals.Total()

	clusters := a.clusterer.Cluster(signals.Questions, signals.Feedback)
	log.Debug("signals clustered",
		zap.Int("questions", len(signals.Questions)),
		zap.Int("feedback", len(signals.Feedback)),
		zap.Int("clusters", len(clusters)))

	for _, c := range clusters {
		gap := a.buildGap(ctx, run.ID, c)
		if err := a.store.InsertGap(ctx, gap); err != nil {
			return a.fail(ctx, run, fmt.Errorf("persisting gap %q: %w", gap.Title, err))
		}
		run.GapsFound++
		metrics.GapsFoundTotal.Inc()
	}

	finished := a.now()
	run.Status = dockhand.RunCompleted
	run.FinishedAt = &finished
	if err := a.store.FinishRun(ctx, run); err != nil {
		return run, fmt.Errorf("finishing analysis run: %w", err)
	}

	metrics.AnalysisRunsTotal.WithLabelValues(string(dockhand.RunCompleted)).Inc()
	metrics.AnalysisDuration.Observe(time.Since(began).Seconds())
	log.Info("gap analysis completed",
		zap.Int("total_signals", run.TotalSignals),
		zap.Int("gaps_found", run.GapsFound),
		zap.Duration("duration", time.Since(began)))
	return run, nil
}

func (a *Analyzer) buildGap(ctx context.Context, runID string, c *Cluster) *dockhand.KnowledgeGap {
	summary := a.summarizer.Summarize(ctx, c)
	return &dockhand.KnowledgeGap{
		ID:              a.newID(),
		RunID:           runID,
		Title:           summary.Title,
		Description:     summary.Description,
		SampleSignals:   Samples(c),
		SignalCount:     c.QuestionCount() + c.FeedbackCount(),
		SuggestedModule: SuggestModule(c, a.policy),
		Severity:        Severity(c),
		Status:          dockhand.GapOpen,
		CreatedAt:       a.now(),
	}
}

func (a *Analyzer) fail(ctx context.Context, run *dockhand.AnalysisRun, cause error) (*dockhand.AnalysisRun, error) {
	finished := a.now()
	run.Status = dockhand.RunFailed
	run.Error = cause.Error()
	run.FinishedAt = &finished

	if err := a.store.FinishRun(ctx, run); err != nil {
		a.logger.Error("recording failed analysis run", zap.String("run_id", run.ID), zap.Error(err))
	}

	metrics.AnalysisRunsTotal.WithLabelValues(string(dockhand.RunFailed)).Inc()
	a.logger.Error("gap analysis failed",
		zap.String("run_id", run.ID),
		zap.Int("gaps_persisted", run.GapsFound),
		zap.Error(cause))
	return run, cause
}
