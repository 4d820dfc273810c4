package embedder

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *OpenAIEmbedder {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	emb, err := NewOpenAIEmbedder("test-key", server.URL+"/v1", "text-embedding-3-small")
	require.NoError(t, err)
	return emb
}

func TestOpenAIEmbedderBatch(t *testing.T) {
	emb := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/embeddings", r.URL.Path)

		var req struct {
			Input []string `json:"input"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, []string{"first", "second"}, req.Input)

		// Deliberately out of order
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"object":"list","data":[
			{"object":"embedding","index":1,"embedding":[0,2]},
			{"object":"embedding","index":0,"embedding":[3,0]}
		]}`))
	})

	vecs, err := emb.EmbedBatch(context.Background(), []string{"first", "second"})
	require.NoError(t, err)
	require.Len(t, vecs, 2)
	assert.Equal(t, []float32{1, 0}, vecs[0])
	assert.Equal(t, []float32{0, 1}, vecs[1])
}

func TestOpenAIEmbedderClassifiesQuota(t *testing.T) {
	emb := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"You exceeded your current quota","type":"insufficient_quota","code":"insufficient_quota"}}`))
	})

	_, err := emb.Embed(context.Background(), "pick ticket")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrQuotaExhausted))
	assert.False(t, errors.Is(err, ErrRateLimited))
}

func TestOpenAIEmbedderClassifiesRateLimit(t *testing.T) {
	emb := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"Rate limit reached","type":"requests","code":"rate_limit_exceeded"}}`))
	})

	_, err := emb.Embed(context.Background(), "pick ticket")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRateLimited))
	assert.Equal(t, "rate_limited", Class(err))
}

func TestOpenAIEmbedderRejectsEmptyText(t *testing.T) {
	emb, err := NewOpenAIEmbedder("test-key", "", "")
	require.NoError(t, err)

	_, err = emb.EmbedBatch(context.Background(), []string{"ok", ""})
	assert.Error(t, err)
}

func TestNewOpenAIEmbedderRequiresKey(t *testing.T) {
	_, err := NewOpenAIEmbedder("", "", "")
	assert.Error(t, err)
}

func TestHashEmbedderSharedWordsAreClose(t *testing.T) {
	emb := NewHashEmbedder(128)
	ctx := context.Background()

	a, err := emb.Embed(ctx, "how do I charge the forklift battery")
	require.NoError(t, err)
	b, err := emb.Embed(ctx, "How do I charge the forklift battery?")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Len(t, a, 128)

	_, err = emb.Embed(ctx, "   ")
	assert.Error(t, err)
}
