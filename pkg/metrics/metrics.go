package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Gap analysis and retrieval metrics
var (
	// Analysis metrics
	AnalysisRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dockhand_analysis_runs_total",
			Help: "Total number of gap analysis runs by final status",
		},
		[]string{"status"},
	)

	AnalysisDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dockhand_analysis_duration_seconds",
			Help:    "Gap analysis run duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10), // 0.5s to ~4min
		},
	)

	GapsFoundTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dockhand_gaps_found_total",
			Help: "Total number of knowledge gaps persisted",
		},
	)

	SignalsCollectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dockhand_signals_collected_total",
			Help: "Total number of gap signals collected",
		},
		[]string{"kind"}, // question/feedback
	)

	SignalsDroppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dockhand_signals_dropped_total",
			Help: "Signals dropped from a run because they could not be embedded",
		},
		[]string{"kind"},
	)

	// Embedding provider metrics
	EmbeddingRetriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dockhand_embedding_retries_total",
			Help: "Total number of rate-limited embedding calls that were retried",
		},
	)

	EmbeddingFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dockhand_embedding_failures_total",
			Help: "Embedding calls that failed after retries",
		},
		[]string{"class"}, // quota_exhausted/rate_limited/other
	)

	// Retrieval metrics
	RetrievalDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dockhand_retrieval_duration_seconds",
			Help:    "Merged multi-query retrieval duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 10), // 10ms to ~5s
		},
		[]string{"status"},
	)

	GoldenLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dockhand_golden_lookups_total",
			Help: "Golden answer cache lookups by result",
		},
		[]string{"result"}, // hit/miss/error
	)

	QuestionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dockhand_questions_total",
			Help: "Questions answered by outcome",
		},
		[]string{"outcome"}, // cached/answered/not_found/error
	)
)
