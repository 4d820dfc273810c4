package embedder

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
)

// Embedder turns text into fixed-length vectors
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
	ModelInfo() string
}

// HashEmbedder is an offline embedder based on hashed word features.
// Texts that share words end up close to each other, which is enough for
// local development and for running the pipeline without an API key.
type HashEmbedder struct {
	dim int
}

// NewHashEmbedder creates an offline embedder with the given dimension
func NewHashEmbedder(dimension int) *HashEmbedder {
	if dimension <= 0 {
		dimension = 256
	}
	return &HashEmbedder{dim: dimension}
}

// Embed generates a normalized bag-of-words vector from text
func (e *HashEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	words := strings.Fields(strings.ToLower(text))
	if len(words) == 0 {
		return nil, errors.New("cannot embed empty text")
	}

	vec := make([]float32, e.dim)
	for _, w := range words {
		w = strings.Trim(w, ".,;:!?\"'()")
		if w == "" {
			continue
		}
		h := fnv.New32a()
		h.Write([]byte(w))
		vec[h.Sum32()%uint32(e.dim)] += 1
	}

	l2normalize(vec)
	return vec, nil
}

// EmbedBatch generates embeddings for multiple texts
func (e *HashEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		emb, err := e.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embedding text %d: %w", i, err)
		}
		embeddings[i] = emb
	}
	return embeddings, nil
}

// Dimension returns the embedding dimension
func (e *HashEmbedder) Dimension() int {
	return e.dim
}

// ModelInfo returns model information
func (e *HashEmbedder) ModelInfo() string {
	return fmt.Sprintf("hash-embedder-%d", e.dim)
}

// l2normalize normalizes a vector to unit length
func l2normalize(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	inv := 1.0 / math.Sqrt(sum)
	for i := range v {
		v[i] = float32(float64(v[i]) * inv)
	}
}
