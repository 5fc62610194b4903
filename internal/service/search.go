package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/syllabuzz/syllabuzz/internal/domain"
	"github.com/syllabuzz/syllabuzz/internal/logger"
	"github.com/syllabuzz/syllabuzz/internal/repository"
)

// SearchService answers semantic queries over indexed chunks.
type SearchService struct {
	documents DocumentStore
	index     VectorIndex
	embedding Embedder
	logger    *logger.Logger

	defaultLimit   int
	maxLimit       int
	scoreThreshold float32
}

// SearchServiceConfig holds search tuning parameters.
type SearchServiceConfig struct {
	DefaultLimit   int
	MaxLimit       int
	ScoreThreshold float32
}

// NewSearchService creates a new search service.
func NewSearchService(
	documents DocumentStore,
	index VectorIndex,
	embedding Embedder,
	log *logger.Logger,
	cfg *SearchServiceConfig,
) *SearchService {
	defaultLimit := 20
	maxLimit := 100
	var threshold float32
	if cfg != nil {
		if cfg.DefaultLimit > 0 {
			defaultLimit = cfg.DefaultLimit
		}
		if cfg.MaxLimit > 0 {
			maxLimit = cfg.MaxLimit
		}
		threshold = cfg.ScoreThreshold
	}

	return &SearchService{
		documents:      documents,
		index:          index,
		embedding:      embedding,
		logger:         log,
		defaultLimit:   defaultLimit,
		maxLimit:       maxLimit,
		scoreThreshold: threshold,
	}
}

// log returns a logger from context if available, otherwise the service logger.
func (s *SearchService) log(ctx context.Context) *logger.Logger {
	if l := logger.FromContext(ctx); l != nil {
		return l
	}
	return s.logger
}

// SearchRequest represents a semantic search request.
type SearchRequest struct {
	Query       string   `json:"query" binding:"required"`
	Limit       int      `json:"limit"`
	UnitID      string   `json:"unit_id,omitempty"`
	DocumentIDs []string `json:"document_ids,omitempty"`
	FacultyCode string   `json:"faculty_code,omitempty"`
	Type        string   `json:"type,omitempty"`
}

// ChunkHit is one matching chunk within a document.
type ChunkHit struct {
	Page       int     `json:"page"`
	ChunkIndex int     `json:"chunk_index"`
	Text       string  `json:"text"`
	Context    string  `json:"context,omitempty"`
	Score      float32 `json:"score"`
}

// DocumentHit groups the matching chunks of one document.
type DocumentHit struct {
	DocumentID  string     `json:"document_id"`
	Title       string     `json:"title"`
	UnitID      string     `json:"unit_id,omitempty"`
	FacultyCode string     `json:"faculty_code,omitempty"`
	Type        string     `json:"type"`
	Score       float32    `json:"score"`
	Chunks      []ChunkHit `json:"chunks"`
}

// SearchResponse represents the search response.
type SearchResponse struct {
	Results []DocumentHit `json:"results"`
	Total   int           `json:"total"`
	Query   string        `json:"query"`
}

// Search embeds the query and returns matching documents, best first. Hits
// are grouped per document; a document's score is its best chunk score.
func (s *SearchService) Search(ctx context.Context, req *SearchRequest) (*SearchResponse, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, fmt.Errorf("%w: query must not be empty", domain.ErrValidation)
	}

	limit := req.Limit
	if limit <= 0 {
		limit = s.defaultLimit
	}
	if limit > s.maxLimit {
		limit = s.maxLimit
	}

	ctx = logger.SetComponent(ctx, "search")
	logger.CtxInfo(ctx, "Performing search: query=%q, limit=%d, unit=%s", query, limit, req.UnitID)

	queryEmbedding, err := s.embedding.EmbedQuery(ctx, query)
	if err != nil {
		return nil, err
	}

	filters := &repository.SearchFilters{
		UnitID:      req.UnitID,
		DocumentIDs: req.DocumentIDs,
		FacultyCode: req.FacultyCode,
		Type:        req.Type,
	}

	// Over-fetch chunk hits so grouping by document still fills the page.
	hits, err := s.index.Search(ctx, queryEmbedding, limit*4, filters)
	if err != nil {
		return nil, err
	}

	results := s.groupByDocument(hits, limit)

	return &SearchResponse{
		Results: results,
		Total:   len(results),
		Query:   query,
	}, nil
}

// groupByDocument folds chunk hits into per-document results ordered by
// their best chunk score, truncated at the document level.
func (s *SearchService) groupByDocument(hits []repository.SearchResult, limit int) []DocumentHit {
	byDoc := make(map[string]*DocumentHit)
	var order []string

	for _, hit := range hits {
		if hit.Payload == nil {
			continue
		}
		if s.scoreThreshold > 0 && hit.Score < s.scoreThreshold {
			continue
		}

		docID := hit.Payload.DocumentID
		doc, ok := byDoc[docID]
		if !ok {
			doc = &DocumentHit{
				DocumentID:  docID,
				Title:       hit.Payload.Title,
				UnitID:      hit.Payload.UnitID,
				FacultyCode: hit.Payload.FacultyCode,
				Type:        hit.Payload.Type,
			}
			byDoc[docID] = doc
			order = append(order, docID)
		}

		doc.Chunks = append(doc.Chunks, ChunkHit{
			Page:       hit.Payload.Page,
			ChunkIndex: hit.Payload.ChunkIndex,
			Text:       hit.Payload.Text,
			Context:    hit.Payload.Context,
			Score:      hit.Score,
		})
		if hit.Score > doc.Score {
			doc.Score = hit.Score
		}
	}

	results := make([]DocumentHit, 0, len(byDoc))
	for _, docID := range order {
		results = append(results, *byDoc[docID])
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if len(results) > limit {
		results = results[:limit]
	}
	return results
}

// GetDocument retrieves a registered document by ID.
func (s *SearchService) GetDocument(ctx context.Context, id string) (*domain.Document, error) {
	return s.documents.GetByID(ctx, id)
}

// IndexedChunkCount reports how many chunks of a document the vector index
// actually holds. Useful for documents registered as indexing_incomplete.
func (s *SearchService) IndexedChunkCount(ctx context.Context, documentID string) (int, error) {
	return s.index.CountByDocument(ctx, documentID)
}

// GetStats aggregates registry counters for the stats endpoint.
func (s *SearchService) GetStats(ctx context.Context) (map[string]int64, error) {
	return s.documents.Stats(ctx)
}

// DocumentListResponse represents the response for listing documents.
type DocumentListResponse struct {
	Results []domain.Document `json:"results"`
	Total   int64             `json:"total"`
	Limit   int               `json:"limit"`
	Offset  int               `json:"offset"`
}

// ListDocuments retrieves registered documents with optional filters.
func (s *SearchService) ListDocuments(ctx context.Context, unitID, docType string, limit, offset int) (*DocumentListResponse, error) {
	if limit <= 0 {
		limit = s.defaultLimit
	}
	if limit > s.maxLimit {
		limit = s.maxLimit
	}
	if offset < 0 {
		offset = 0
	}

	docs, total, err := s.documents.List(ctx, unitID, docType, limit, offset)
	if err != nil {
		return nil, err
	}

	return &DocumentListResponse{
		Results: docs,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
	}, nil
}
