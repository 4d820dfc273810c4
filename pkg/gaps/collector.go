package gaps

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/perbu/dockhand/pkg/dockhand"
	"github.com/perbu/dockhand/pkg/embedder"
	"github.com/perbu/dockhand/pkg/metrics"
)

// DefaultLowSimilarity marks a question as unanswered when its best
// retrieval match scored below it
const DefaultLowSimilarity = 0.35

// CollectorStore is the read/write contract the collector needs
type CollectorStore interface {
	QuestionSignals(ctx context.Context, start, end time.Time, lowSimilarity float64) ([]dockhand.Interaction, error)
	FeedbackSignals(ctx context.Context, start, end time.Time) ([]dockhand.Feedback, error)
	SetInteractionEmbedding(ctx context.Context, id string, vec []float32) error
	SetFeedbackEmbedding(ctx context.Context, id string, vec []float32) error
}

// Signals holds the output of one collection, in collector order
type Signals struct {
	Questions []Signal
	Feedback  []Signal
}

// Total returns the number of collected signals
func (s Signals) Total() int {
	return len(s.Questions) + len(s.Feedback)
}

// Collector pulls gap signals for a period and fills in missing embeddings
type Collector struct {
	store         CollectorStore
	emb           embedder.Embedder
	lowSimilarity float64
	logger        *zap.Logger
}

// NewCollector creates a collector. A non-positive lowSimilarity selects
// DefaultLowSimilarity.
func NewCollector(store CollectorStore, emb embedder.Embedder, lowSimilarity float64, logger *zap.Logger) *Collector {
	if lowSimilarity <= 0 {
		lowSimilarity = DefaultLowSimilarity
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Collector{store: store, emb: emb, lowSimilarity: lowSimilarity, logger: logger}
}

// Collect returns the question and feedback signals in [start, end].
// An item whose embedding cannot be computed is dropped and logged; the
// rest of the collection continues. Computed embeddings are written back so
// later runs reuse them. Only an exhausted embedding quota aborts the
// collection.
func (c *Collector) Collect(ctx context.Context, start, end time.Time) (Signals, error) {
	var out Signals

	interactions, err := c.store.QuestionSignals(ctx, start, end, c.lowSimilarity)
	if err != nil {
		return out, fmt.Errorf("loading question signals: %w", err)
	}
	for _, in := range interactions {
		if len(in.Embedding) == 0 {
			vec, err := c.embed(ctx, KindQuestion, in.ID, in.Question)
			if err != nil {
				if errors.Is(err, embedder.ErrQuotaExhausted) {
					return Signals{}, err
				}
				continue
			}
			in.Embedding = vec
			if err := c.store.SetInteractionEmbedding(ctx, in.ID, vec); err != nil {
				c.logger.Warn("storing question embedding failed", zap.String("source_id", in.ID), zap.Error(err))
			}
		}
		out.Questions = append(out.Questions, QuestionSignal(in))
	}

	feedback, err := c.store.FeedbackSignals(ctx, start, end)
	if err != nil {
		return out, fmt.Errorf("loading feedback signals: %w", err)
	}
	for _, fb := range feedback {
		if len(fb.Embedding) == 0 {
			vec, err := c.embed(ctx, KindFeedback, fb.ID, fb.Message)
			if err != nil {
				if errors.Is(err, embedder.ErrQuotaExhausted) {
					return Signals{}, err
				}
				continue
			}
			fb.Embedding = vec
			if err := c.store.SetFeedbackEmbedding(ctx, fb.ID, vec); err != nil {
				c.logger.Warn("storing feedback embedding failed", zap.String("source_id", fb.ID), zap.Error(err))
			}
		}
		out.Feedback = append(out.Feedback, FeedbackSignal(fb))
	}

	metrics.SignalsCollectedTotal.WithLabelValues(string(KindQuestion)).Add(float64(len(out.Questions)))
	metrics.SignalsCollectedTotal.WithLabelValues(string(KindFeedback)).Add(float64(len(out.Feedback)))
	return out, nil
}

func (c *Collector) embed(ctx context.Context, kind SignalKind, id, text string) ([]float32, error) {
	vec, err := c.emb.Embed(ctx, text)
	if err == nil && len(vec) == 0 {
		err = errors.New("empty embedding")
	}
	if err != nil {
		if errors.Is(err, embedder.ErrQuotaExhausted) {
			return nil, fmt.Errorf("embedding %s %s: %w", kind, id, err)
		}
		metrics.SignalsDroppedTotal.WithLabelValues(string(kind)).Inc()
		c.logger.Warn("dropping signal that could not be embedded",
			zap.String("kind", string(kind)),
			zap.String("source_id", id),
			zap.String("error_class", embedder.Class(err)),
			zap.Error(err))
		return nil, err
	}
	return vec, nil
}
