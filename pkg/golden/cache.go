// Package golden implements the approximate-match answer cache. Answers
// that users rated positively are promoted here and served again for
// questions whose embedding is close enough.
package golden

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/perbu/dockhand/pkg/dockhand"
	"github.com/perbu/dockhand/pkg/metrics"
)

// DefaultThreshold is the similarity a candidate must strictly exceed
const DefaultThreshold = 0.92

// Store is the persistence contract of the cache
type Store interface {
	GoldenCandidates(ctx context.Context, module string) ([]dockhand.GoldenAnswer, error)
	InsertGolden(ctx context.Context, g *dockhand.GoldenAnswer) error
	DeleteGoldenByInteraction(ctx context.Context, interactionID string) (int, error)
}

// Match is a cache hit
type Match struct {
	Answer     dockhand.GoldenAnswer
	Similarity float64
}

// Cache looks up promoted answers by embedding similarity
type Cache struct {
	store     Store
	threshold float64
	logger    *zap.Logger
	now       func() time.Time
}

// New creates a cache. A non-positive threshold selects DefaultThreshold.
func New(store Store, threshold float64, logger *zap.Logger) *Cache {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{store: store, threshold: threshold, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// Lookup returns the stored answer most similar to embedding, restricted to
// module when given. It returns nil when the best candidate does not score
// strictly above the threshold. Ties keep the earliest promoted answer.
func (c *Cache) Lookup(ctx context.Context, embedding []float32, module string) (*Match, error) {
	candidates, err := c.store.GoldenCandidates(ctx, module)
	if err != nil {
		metrics.GoldenLookupsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("loading golden answers: %w", err)
	}

	var best *Match
	for i := range candidates {
		sim := dockhand.CosineSimilarity(embedding, candidates[i].Embedding)
		if best == nil || sim > best.Similarity {
			best = &Match{Answer: candidates[i], Similarity: sim}
		}
	}

	if best == nil || best.Similarity <= c.threshold {
		metrics.GoldenLookupsTotal.WithLabelValues("miss").Inc()
		return nil, nil
	}

	metrics.GoldenLookupsTotal.WithLabelValues("hit").Inc()
	c.logger.Debug("golden answer hit",
		zap.String("golden_id", best.Answer.ID),
		zap.Float64("similarity", best.Similarity))
	return best, nil
}

// Promote stores an answered interaction as a golden answer
func (c *Cache) Promote(ctx context.Context, in *dockhand.Interaction) (*dockhand.GoldenAnswer, error) {
	if in.NotFound {
		return nil, errors.New("cannot promote a not-found answer")
	}
	if len(in.Embedding) == 0 {
		return nil, fmt.Errorf("interaction %s has no question embedding", in.ID)
	}

	g := &dockhand.GoldenAnswer{
		ID:            uuid.NewString(),
		Question:      in.Question,
		Answer:        in.Answer,
		Module:        in.Module,
		Embedding:     in.Embedding,
		InteractionID: in.ID,
		CreatedAt:     c.now(),
	}
	if err := c.store.InsertGolden(ctx, g); err != nil {
		return nil, err
	}

	c.logger.Info("answer promoted to golden cache",
		zap.String("golden_id", g.ID),
		zap.String("interaction_id", in.ID))
	return g, nil
}

// Withdraw removes the answers promoted from an interaction, so an answer
// that was later rated down is no longer served
func (c *Cache) Withdraw(ctx context.Context, interactionID string) error {
	n, err := c.store.DeleteGoldenByInteraction(ctx, interactionID)
	if err != nil {
		return err
	}
	if n > 0 {
		c.logger.Info("golden answer withdrawn",
			zap.String("interaction_id", interactionID),
			zap.Int("removed", n))
	}
	return nil
}
