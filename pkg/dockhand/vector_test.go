package dockhand

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, CosineSimilarity([]float32{1, 2, 3}, []float32{2, 4, 6}), 1e-9)
	assert.InDelta(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, CosineSimilarity([]float32{1, 0}, []float32{-1, 0}), 1e-9)

	// Mismatched or degenerate inputs
	assert.Equal(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{1, 0, 0}))
	assert.Equal(t, 0.0, CosineSimilarity([]float32{0, 0}, []float32{1, 0}))
	assert.Equal(t, 0.0, CosineSimilarity(nil, nil))
}

func TestCentroid(t *testing.T) {
	c := Centroid([][]float32{{1, 0, 2}, {3, 4, 0}})
	assert.Equal(t, []float32{2, 2, 1}, c)

	assert.Nil(t, Centroid(nil))
	assert.Equal(t, []float32{5, 6}, Centroid([][]float32{{5, 6}}))
}

func TestSearch(t *testing.T) {
	chunks := []Chunk{
		{ID: "b", Embedding: []float32{1, 0}},
		{ID: "a", Embedding: []float32{1, 0}},
		{ID: "c", Embedding: []float32{0, 1}},
		{ID: "d", Embedding: []float32{1, 1, 1}}, // wrong dimension
		{ID: "e"},
	}

	results := Search(chunks, []float32{1, 0}, 2)
	assert.Len(t, results, 2)
	// Equal similarity falls back to id order
	assert.Equal(t, "a", results[0].Chunk.ID)
	assert.Equal(t, "b", results[1].Chunk.ID)

	all := Search(chunks, []float32{1, 0}, 0)
	assert.Len(t, all, 3)
	assert.Equal(t, "c", all[2].Chunk.ID)
}
