package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/syllabuzz/syllabuzz/internal/domain"
)

// EmbeddingService generates text embeddings through an HTTP embedding
// backend. Results are cached by content hash so re-ingesting an unchanged
// document does not re-embed identical chunks.
type EmbeddingService struct {
	client     *resty.Client
	baseURL    string
	model      string
	dimensions int

	mu    sync.RWMutex
	cache map[string][]float32
}

// EmbeddingServiceConfig holds configuration for the embedding service.
type EmbeddingServiceConfig struct {
	BaseURL    string
	Model      string
	APIKey     string
	Dimensions int
	Timeout    time.Duration
}

// NewEmbeddingService creates a new embedding service.
func NewEmbeddingService(cfg *EmbeddingServiceConfig) *EmbeddingService {
	client := resty.New()
	client.SetHeader("Content-Type", "application/json")
	if cfg.APIKey != "" {
		client.SetHeader("Authorization", "Bearer "+cfg.APIKey)
	}
	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	}

	return &EmbeddingService{
		client:     client,
		baseURL:    cfg.BaseURL,
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
		cache:      make(map[string][]float32),
	}
}

// Model returns the model name being used.
func (s *EmbeddingService) Model() string {
	return s.model
}

// Dimensions returns the embedding dimension.
func (s *EmbeddingService) Dimensions() int {
	return s.dimensions
}

// ClearCache drops all cached embeddings.
func (s *EmbeddingService) ClearCache() {
	s.mu.Lock()
	s.cache = make(map[string][]float32)
	s.mu.Unlock()
}

// Embedding API request/response structures
type embedRequest struct {
	Model      string   `json:"model"`
	Input      []string `json:"input"`
	Dimensions int      `json:"dimensions,omitempty"`
}

type embedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Detail string `json:"detail,omitempty"`
}

// Embed generates an embedding for a single text.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(embeddings) == 0 {
		return nil, &domain.ModelUnavailableError{Model: s.model, Err: fmt.Errorf("no embedding returned")}
	}
	return embeddings[0], nil
}

// EmbedBatch generates embeddings for multiple texts. Cached texts are
// served from memory; only the misses go to the backend, in one request.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	embeddings := make([][]float32, len(texts))
	keys := make([]string, len(texts))

	var missing []string
	var missingIdx []int

	s.mu.RLock()
	for i, text := range texts {
		keys[i] = cacheKey(text)
		if cached, ok := s.cache[keys[i]]; ok {
			embeddings[i] = cached
		} else {
			missing = append(missing, text)
			missingIdx = append(missingIdx, i)
		}
	}
	s.mu.RUnlock()

	if len(missing) == 0 {
		return embeddings, nil
	}

	fetched, err := s.request(ctx, missing)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	for i, vec := range fetched {
		idx := missingIdx[i]
		embeddings[idx] = vec
		s.cache[keys[idx]] = vec
	}
	s.mu.Unlock()

	return embeddings, nil
}

// EmbedQuery generates an embedding for a search query. Queries bypass the
// cache since they rarely repeat exactly.
func (s *EmbeddingService) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	fetched, err := s.request(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	if len(fetched) == 0 {
		return nil, &domain.ModelUnavailableError{Model: s.model, Err: fmt.Errorf("no embedding returned")}
	}
	return fetched[0], nil
}

func (s *EmbeddingService) request(ctx context.Context, texts []string) ([][]float32, error) {
	req := embedRequest{
		Model:      s.model,
		Input:      texts,
		Dimensions: s.dimensions,
	}

	var resp embedResponse
	httpResp, err := s.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&resp).
		Post(s.baseURL + "/v1/embeddings")

	if err != nil {
		return nil, &domain.ModelUnavailableError{Model: s.model, Err: err}
	}

	if httpResp.StatusCode() != 200 {
		detail := resp.Detail
		if detail == "" {
			detail = fmt.Sprintf("status %d", httpResp.StatusCode())
		}
		return nil, &domain.ModelUnavailableError{Model: s.model, Err: fmt.Errorf("embedding API error: %s", detail)}
	}

	if len(resp.Data) != len(texts) {
		return nil, &domain.ModelUnavailableError{
			Model: s.model,
			Err:   fmt.Errorf("unexpected number of embeddings: got %d, expected %d", len(resp.Data), len(texts)),
		}
	}

	// Sort by index to ensure correct order
	embeddings := make([][]float32, len(texts))
	for _, item := range resp.Data {
		if item.Index < len(embeddings) {
			embeddings[item.Index] = item.Embedding
		}
	}

	return embeddings, nil
}

func cacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// CosineSimilarity computes the cosine similarity between two vectors.
// Returns 0 for mismatched lengths or zero vectors.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
