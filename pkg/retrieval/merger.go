// Package retrieval runs several paraphrased search queries against the
// chunk store and merges their hits into one ranked result.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/perbu/dockhand/pkg/dockhand"
	"github.com/perbu/dockhand/pkg/embedder"
	"github.com/perbu/dockhand/pkg/metrics"
)

// Defaults for a merged retrieval
const (
	DefaultPerQueryK = 8
	DefaultTopK      = 10
)

// Searcher finds the chunks nearest to a vector, best first
type Searcher interface {
	NearestChunks(ctx context.Context, vec []float32, k int, module string) ([]dockhand.ScoredChunk, error)
}

// Merger embeds query variants, searches them concurrently and keeps the
// best similarity seen for each chunk
type Merger struct {
	emb       embedder.Embedder
	searcher  Searcher
	perQueryK int
	topK      int
	logger    *zap.Logger
}

// NewMerger creates a merger. Non-positive k values select the defaults.
func NewMerger(emb embedder.Embedder, searcher Searcher, perQueryK, topK int, logger *zap.Logger) *Merger {
	if perQueryK <= 0 {
		perQueryK = DefaultPerQueryK
	}
	if topK <= 0 {
		topK = DefaultTopK
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Merger{emb: emb, searcher: searcher, perQueryK: perQueryK, topK: topK, logger: logger}
}

// Retrieve returns the merged top chunks for queries, optionally restricted
// to module. Each chunk appears once, scored with the maximum similarity any
// query gave it.
func (m *Merger) Retrieve(ctx context.Context, queries []string, module string) ([]dockhand.ScoredChunk, error) {
	start := time.Now()
	results, err := m.retrieve(ctx, queries, module)
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.RetrievalDuration.WithLabelValues(status).Observe(time.Since(start).Seconds())
	return results, err
}

func (m *Merger) retrieve(ctx context.Context, queries []string, module string) ([]dockhand.ScoredChunk, error) {
	if len(queries) == 0 {
		return nil, errors.New("no queries to retrieve")
	}

	vectors, err := m.emb.EmbedBatch(ctx, queries)
	if err != nil {
		return nil, fmt.Errorf("embedding queries: %w", err)
	}
	if len(vectors) != len(queries) {
		return nil, fmt.Errorf("expected %d query embeddings, got %d", len(queries), len(vectors))
	}

	// Each goroutine writes only its own slot
	perQuery := make([][]dockhand.ScoredChunk, len(vectors))
	g, gctx := errgroup.WithContext(ctx)
	for i, vec := range vectors {
		g.Go(func() error {
			hits, err := m.searcher.NearestChunks(gctx, vec, m.perQueryK, module)
			if err != nil {
				return fmt.Errorf("searching query %d: %w", i, err)
			}
			perQuery[i] = hits
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := Merge(perQuery, m.topK)
	m.logger.Debug("merged retrieval",
		zap.Int("queries", len(queries)),
		zap.String("module", module),
		zap.Int("results", len(merged)))
	return merged, nil
}

// Merge folds per-query hit lists into one list keyed by chunk id, keeping
// the maximum similarity per chunk, sorted best first and cut to topK.
// The result does not depend on the order of the input lists.
func Merge(perQuery [][]dockhand.ScoredChunk, topK int) []dockhand.ScoredChunk {
	best := make(map[string]dockhand.ScoredChunk)
	for _, hits := range perQuery {
		for _, h := range hits {
			if cur, ok := best[h.Chunk.ID]; !ok || h.Similarity > cur.Similarity {
				best[h.Chunk.ID] = h
			}
		}
	}

	out := make([]dockhand.ScoredChunk, 0, len(best))
	for _, h := range best {
		out = append(out, h)
	}
	dockhand.SortScored(out)

	if topK > 0 && len(out) > topK {
		out = out[:topK]
	}
	return out
}
