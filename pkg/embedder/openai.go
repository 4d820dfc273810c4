package embedder

import (
	"context"
	"errors"
	"fmt"
	"sort"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIEmbedder uses OpenAI API for embeddings
type OpenAIEmbedder struct {
	client *openai.Client
	model  string
	dim    int
}

// NewOpenAIEmbedder creates an OpenAI embedder. baseURL may be empty.
func NewOpenAIEmbedder(apiKey, baseURL, model string) (*OpenAIEmbedder, error) {
	if apiKey == "" {
		return nil, errors.New("OpenAI API key not set")
	}

	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}

	if model == "" {
		model = string(openai.SmallEmbedding3)
	}

	// Set dimension based on model
	dim := 1536 // default for text-embedding-3-small
	if model == string(openai.LargeEmbedding3) {
		dim = 3072
	}

	return &OpenAIEmbedder{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
		dim:    dim,
	}, nil
}

// Embed generates an embedding for a single text
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch generates embeddings for multiple texts in a single request
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	for i, t := range texts {
		if len(t) == 0 {
			return nil, fmt.Errorf("cannot embed empty text at index %d", i)
		}
	}

	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(e.model),
		Input: texts,
	})
	if err != nil {
		return nil, fmt.Errorf("OpenAI API error: %w", classify(err))
	}

	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, API returned %d", len(texts), len(resp.Data))
	}

	// The API reports an index per item; do not rely on response order
	data := resp.Data
	sort.Slice(data, func(i, j int) bool { return data[i].Index < data[j].Index })

	out := make([][]float32, len(data))
	for i, d := range data {
		v := make([]float32, len(d.Embedding))
		copy(v, d.Embedding)
		// L2 normalize (important for cosine similarity)
		l2normalize(v)
		out[i] = v
	}

	return out, nil
}

// Dimension returns the embedding dimension
func (e *OpenAIEmbedder) Dimension() int {
	return e.dim
}

// ModelInfo returns model information
func (e *OpenAIEmbedder) ModelInfo() string {
	return "openai-" + e.model
}
