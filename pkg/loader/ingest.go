package loader

import (
	"context"
	"fmt"
	"io/fs"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/perbu/dockhand/pkg/dockhand"
	"github.com/perbu/dockhand/pkg/embedder"
)

// Ingest defaults
const (
	DefaultBatchSize   = 64
	DefaultConcurrency = 4
)

// ChunkWriter persists embedded chunks
type ChunkWriter interface {
	ReplaceChunks(ctx context.Context, chunks []dockhand.Chunk) error
}

// Ingester loads documents, embeds their chunks in batches and stores them
type Ingester struct {
	emb         embedder.Embedder
	store       ChunkWriter
	batchSize   int
	concurrency int
	logger      *zap.Logger
}

// NewIngester creates an ingester. Non-positive sizes select the defaults.
func NewIngester(emb embedder.Embedder, store ChunkWriter, batchSize, concurrency int, logger *zap.Logger) *Ingester {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ingester{emb: emb, store: store, batchSize: batchSize, concurrency: concurrency, logger: logger}
}

// Ingest chunks every markdown file below root, embeds the chunks and
// replaces the stored chunks of each document. Nothing is stored unless
// every batch embeds.
func (in *Ingester) Ingest(ctx context.Context, fsys fs.FS, root string) (int, error) {
	chunks, err := LoadAndChunkAll(fsys, root)
	if err != nil {
		return 0, fmt.Errorf("loading documents: %w", err)
	}
	if len(chunks) == 0 {
		return 0, nil
	}
	in.logger.Info("documents chunked", zap.Int("chunks", len(chunks)), zap.String("model", in.emb.ModelInfo()))

	var done atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(in.concurrency)

	for start := 0; start < len(chunks); start += in.batchSize {
		end := min(start+in.batchSize, len(chunks))
		batch := chunks[start:end]

		g.Go(func() error {
			texts := make([]string, len(batch))
			for i, c := range batch {
				texts[i] = c.Text
			}
			vecs, err := in.emb.EmbedBatch(gctx, texts)
			if err != nil {
				return fmt.Errorf("embedding chunks %d-%d: %w", start, end-1, err)
			}
			if len(vecs) != len(batch) {
				return fmt.Errorf("embedding chunks %d-%d: got %d vectors", start, end-1, len(vecs))
			}
			// Batches are disjoint subslices of chunks
			for i := range batch {
				batch[i].Embedding = vecs[i]
			}

			n := done.Add(int64(len(batch)))
			in.logger.Debug("embedding progress", zap.Int64("done", n), zap.Int("total", len(chunks)))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	if err := in.store.ReplaceChunks(ctx, chunks); err != nil {
		return 0, fmt.Errorf("storing chunks: %w", err)
	}
	in.logger.Info("documents ingested", zap.Int("chunks", len(chunks)))
	return len(chunks), nil
}
