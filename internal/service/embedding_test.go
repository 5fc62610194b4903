package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syllabuzz/syllabuzz/internal/domain"
)

func newEmbeddingBackend(t *testing.T, calls *atomic.Int64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)

		var req embedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		var resp embedResponse
		for i, text := range req.Input {
			// Deterministic fake vector derived from the text length.
			vec := []float32{float32(len(text)), 1, 0.5}
			resp.Data = append(resp.Data, struct {
				Embedding []float32 `json:"embedding"`
				Index     int       `json:"index"`
			}{Embedding: vec, Index: i})
		}

		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
}

func newTestEmbedding(baseURL string) *EmbeddingService {
	return NewEmbeddingService(&EmbeddingServiceConfig{
		BaseURL:    baseURL,
		Model:      "test-minilm",
		Dimensions: 3,
	})
}

func TestEmbedBatchCachesByContent(t *testing.T) {
	var calls atomic.Int64
	backend := newEmbeddingBackend(t, &calls)
	defer backend.Close()

	svc := newTestEmbedding(backend.URL)
	ctx := context.Background()

	first, err := svc.EmbedBatch(ctx, []string{"binary trees", "hash tables"})
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, int64(1), calls.Load())

	// Same texts again: served entirely from cache, no second call.
	second, err := svc.EmbedBatch(ctx, []string{"binary trees", "hash tables"})
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, int64(1), calls.Load())
}

func TestEmbedBatchOnlyFetchesMisses(t *testing.T) {
	var calls atomic.Int64
	backend := newEmbeddingBackend(t, &calls)
	defer backend.Close()

	svc := newTestEmbedding(backend.URL)
	ctx := context.Background()

	_, err := svc.EmbedBatch(ctx, []string{"binary trees"})
	require.NoError(t, err)

	// One cached text, one new: exactly one more backend call.
	out, err := svc.EmbedBatch(ctx, []string{"binary trees", "graphs"})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, int64(2), calls.Load())
}

func TestClearCacheForcesRefetch(t *testing.T) {
	var calls atomic.Int64
	backend := newEmbeddingBackend(t, &calls)
	defer backend.Close()

	svc := newTestEmbedding(backend.URL)
	ctx := context.Background()

	_, err := svc.Embed(ctx, "binary trees")
	require.NoError(t, err)
	svc.ClearCache()

	_, err = svc.Embed(ctx, "binary trees")
	require.NoError(t, err)
	assert.Equal(t, int64(2), calls.Load())
}

func TestEmbedBackendErrorIsModelUnavailable(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"model is loading"}`, http.StatusServiceUnavailable)
	}))
	defer backend.Close()

	svc := newTestEmbedding(backend.URL)

	_, err := svc.Embed(context.Background(), "binary trees")
	require.Error(t, err)

	var modelErr *domain.ModelUnavailableError
	assert.ErrorAs(t, err, &modelErr)
}

func TestEmbedUnreachableBackendIsModelUnavailable(t *testing.T) {
	svc := newTestEmbedding("http://127.0.0.1:1")

	_, err := svc.Embed(context.Background(), "binary trees")
	require.Error(t, err)

	var modelErr *domain.ModelUnavailableError
	assert.ErrorAs(t, err, &modelErr)
}

func TestCosineSimilarity(t *testing.T) {
	a := []float32{1, 2, 3}

	assert.InDelta(t, 1.0, CosineSimilarity(a, a), 1e-9)
	assert.InDelta(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, CosineSimilarity([]float32{1, 0}, []float32{-1, 0}), 1e-9)

	// Degenerate inputs.
	assert.Zero(t, CosineSimilarity(a, []float32{1, 2}))
	assert.Zero(t, CosineSimilarity([]float32{0, 0}, []float32{0, 0}))
	assert.Zero(t, CosineSimilarity(nil, nil))
}
