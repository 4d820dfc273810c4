package loader

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perbu/dockhand/pkg/dockhand"
	"github.com/perbu/dockhand/pkg/embedder"
	"github.com/perbu/dockhand/pkg/store"
)

type recordingWriter struct {
	chunks []dockhand.Chunk
}

func (w *recordingWriter) ReplaceChunks(_ context.Context, chunks []dockhand.Chunk) error {
	w.chunks = append(w.chunks, chunks...)
	return nil
}

type failingEmbedder struct {
	embedder.Embedder
	mu      sync.Mutex
	batches int
}

func (f *failingEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches++
	return nil, fmt.Errorf("quota")
}

func (f *failingEmbedder) ModelInfo() string { return "failing" }

func docsFS(n int) fstest.MapFS {
	fsys := fstest.MapFS{}
	for i := 0; i < n; i++ {
		fsys[fmt.Sprintf("Packing/doc%02d.md", i)] = &fstest.MapFile{
			Data: []byte(fmt.Sprintf("# Step %d\nfold box number %d\n", i, i)),
		}
	}
	return fsys
}

func TestIngestEmbedsAndStoresAllChunks(t *testing.T) {
	writer := &recordingWriter{}
	ing := NewIngester(embedder.NewHashEmbedder(32), writer, 3, 2, nil)

	n, err := ing.Ingest(context.Background(), docsFS(10), ".")
	require.NoError(t, err)
	assert.Equal(t, 10, n)
	require.Len(t, writer.chunks, 10)

	for _, c := range writer.chunks {
		assert.Len(t, c.Embedding, 32)
		assert.True(t, strings.HasPrefix(c.SourceLocator, "Packing/"))
	}
}

func TestIngestStoresNothingOnEmbeddingError(t *testing.T) {
	writer := &recordingWriter{}
	ing := NewIngester(&failingEmbedder{}, writer, 4, 1, nil)

	_, err := ing.Ingest(context.Background(), docsFS(5), ".")
	require.Error(t, err)
	assert.Empty(t, writer.chunks)
}

func TestIngestEmptyTree(t *testing.T) {
	writer := &recordingWriter{}
	n, err := NewIngester(embedder.NewHashEmbedder(8), writer, 0, 0, nil).Ingest(context.Background(), fstest.MapFS{}, ".")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestReingestReplacesEditedDocument(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "dockhand.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	ctx := context.Background()
	ing := NewIngester(embedder.NewHashEmbedder(32), st, 0, 0, nil)

	v1 := fstest.MapFS{
		"Safety/ppe.md": {Data: []byte("# Vests\nWear a vest on the floor\n# Gloves\nWear cut gloves when opening cartons\n")},
	}
	n, err := ing.Ingest(ctx, v1, ".")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	v2 := fstest.MapFS{
		"Safety/ppe.md": {Data: []byte("# Vests\nWear a vest on the floor\n")},
	}
	n, err = ing.Ingest(ctx, v2, ".")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	stored, err := st.CountChunks(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stored)
}
