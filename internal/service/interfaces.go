package service

import (
	"context"

	"github.com/syllabuzz/syllabuzz/internal/domain"
	"github.com/syllabuzz/syllabuzz/internal/repository"
)

// VectorIndex is the chunk vector store used by ingestion and search.
// Implemented by repository.QdrantRepository.
type VectorIndex interface {
	UpsertPoints(ctx context.Context, points []repository.ChunkPoint) error
	Search(ctx context.Context, vector []float32, topK int, filters *repository.SearchFilters) ([]repository.SearchResult, error)
	DeleteByDocument(ctx context.Context, documentID string) (int, error)
	CountByDocument(ctx context.Context, documentID string) (int, error)
}

// Embedder generates embeddings for passages and queries.
// Implemented by EmbeddingService.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, query string) ([]float32, error)
}

// DocumentStore is the registry of ingested documents.
// Implemented by repository.DocumentRepository.
type DocumentStore interface {
	Create(ctx context.Context, doc *domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	GetBySHA256(ctx context.Context, unitID, sha string) (*domain.Document, error)
	List(ctx context.Context, unitID, docType string, limit, offset int) ([]domain.Document, int64, error)
	UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus) error
	Delete(ctx context.Context, id string) error
	CountByUnit(ctx context.Context, unitID string) (int64, error)
	CountBySHA256(ctx context.Context, sha string) (int64, error)
	Stats(ctx context.Context) (map[string]int64, error)
}

// QuestionStore persists exam questions and their dedup bookkeeping.
// Implemented by repository.QuestionRepository.
type QuestionStore interface {
	Create(ctx context.Context, q *domain.Question) error
	GetByID(ctx context.Context, id string) (*domain.Question, error)
	ListByUnit(ctx context.Context, unitID string) ([]domain.Question, error)
	ListByGroup(ctx context.Context, groupID string) ([]domain.Question, error)
	ListFrequent(ctx context.Context, unitID string, minFrequency, limit int) ([]domain.Question, error)
	IncrementFrequency(ctx context.Context, id string) error
	UpdateGroupID(ctx context.Context, id, groupID string) error
	CountByUnit(ctx context.Context, unitID string) (int64, error)
	Count(ctx context.Context) (int64, error)
}

// UnitStore reads course units registered by the platform.
// Implemented by repository.UnitRepository.
type UnitStore interface {
	GetByID(ctx context.Context, id string) (*domain.Unit, error)
	Exists(ctx context.Context, id string) (bool, error)
}
