package dockhand

import (
	"math"
	"sort"
)

// CosineSimilarity computes the cosine similarity between two vectors
// Returns a value between -1 and 1, where 1 means identical direction.
// Vectors of different length, or with zero norm, have similarity 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dotProduct += x * y
		normA += x * x
		normB += y * y
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Centroid returns the arithmetic mean of the given vectors.
// Returns nil for an empty set.
func Centroid(vectors [][]float32) []float32 {
	if len(vectors) == 0 {
		return nil
	}

	sum := make([]float64, len(vectors[0]))
	for _, v := range vectors {
		for i := range sum {
			if i < len(v) {
				sum[i] += float64(v[i])
			}
		}
	}

	mean := make([]float32, len(sum))
	n := float64(len(vectors))
	for i, s := range sum {
		mean[i] = float32(s / n)
	}
	return mean
}

// Search performs brute-force similarity search over chunks.
// Chunks without an embedding or with a different dimension are skipped.
// Returns top-k results sorted by similarity (highest first, ties by chunk id).
func Search(chunks []Chunk, query []float32, topK int) []ScoredChunk {
	results := make([]ScoredChunk, 0, len(chunks))

	for _, c := range chunks {
		if len(c.Embedding) != len(query) {
			continue
		}
		results = append(results, ScoredChunk{
			Chunk:      c,
			Similarity: CosineSimilarity(query, c.Embedding),
		})
	}

	SortScored(results)

	if topK > 0 && topK < len(results) {
		results = results[:topK]
	}

	return results
}

// SortScored sorts by similarity descending, falling back to chunk id
func SortScored(results []ScoredChunk) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Similarity != results[j].Similarity {
			return results[i].Similarity > results[j].Similarity
		}
		return results[i].Chunk.ID < results[j].Chunk.ID
	})
}
