package service

import (
	"bytes"
	"context"
	"io"
	"sync"

	"github.com/syllabuzz/syllabuzz/internal/domain"
	"github.com/syllabuzz/syllabuzz/internal/repository"
)

// In-memory fakes for the stores the services depend on.

type fakeDocumentStore struct {
	mu   sync.Mutex
	docs map[string]*domain.Document
}

func newFakeDocumentStore() *fakeDocumentStore {
	return &fakeDocumentStore{docs: make(map[string]*domain.Document)}
}

func (f *fakeDocumentStore) Create(ctx context.Context, doc *domain.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *doc
	f.docs[doc.ID] = &copied
	return nil
}

func (f *fakeDocumentStore) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *doc
	return &copied, nil
}

func (f *fakeDocumentStore) GetBySHA256(ctx context.Context, unitID, sha string) (*domain.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, doc := range f.docs {
		if doc.UnitID == unitID && doc.SHA256 == sha {
			copied := *doc
			return &copied, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeDocumentStore) List(ctx context.Context, unitID, docType string, limit, offset int) ([]domain.Document, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Document
	for _, doc := range f.docs {
		if unitID != "" && doc.UnitID != unitID {
			continue
		}
		if docType != "" && doc.Type != docType {
			continue
		}
		out = append(out, *doc)
	}
	return out, int64(len(out)), nil
}

func (f *fakeDocumentStore) UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[id]
	if !ok {
		return domain.ErrNotFound
	}
	doc.Status = status
	return nil
}

func (f *fakeDocumentStore) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.docs, id)
	return nil
}

func (f *fakeDocumentStore) CountByUnit(ctx context.Context, unitID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var count int64
	for _, doc := range f.docs {
		if doc.UnitID == unitID {
			count++
		}
	}
	return count, nil
}

func (f *fakeDocumentStore) CountBySHA256(ctx context.Context, sha string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var count int64
	for _, doc := range f.docs {
		if doc.SHA256 == sha {
			count++
		}
	}
	return count, nil
}

func (f *fakeDocumentStore) Stats(ctx context.Context) (map[string]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return map[string]int64{"documents": int64(len(f.docs))}, nil
}

type fakeQuestionStore struct {
	mu        sync.Mutex
	questions []*domain.Question
}

func (f *fakeQuestionStore) Create(ctx context.Context, q *domain.Question) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *q
	f.questions = append(f.questions, &copied)
	return nil
}

func (f *fakeQuestionStore) GetByID(ctx context.Context, id string) (*domain.Question, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, q := range f.questions {
		if q.ID == id {
			copied := *q
			return &copied, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeQuestionStore) ListByUnit(ctx context.Context, unitID string) ([]domain.Question, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Question
	for _, q := range f.questions {
		if q.UnitID == unitID {
			out = append(out, *q)
		}
	}
	return out, nil
}

func (f *fakeQuestionStore) ListByGroup(ctx context.Context, groupID string) ([]domain.Question, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Question
	for _, q := range f.questions {
		if q.GroupID == groupID {
			out = append(out, *q)
		}
	}
	return out, nil
}

func (f *fakeQuestionStore) ListFrequent(ctx context.Context, unitID string, minFrequency, limit int) ([]domain.Question, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Question
	for _, q := range f.questions {
		if q.UnitID == unitID && q.Frequency >= minFrequency && len(out) < limit {
			out = append(out, *q)
		}
	}
	return out, nil
}

func (f *fakeQuestionStore) IncrementFrequency(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, q := range f.questions {
		if q.ID == id {
			q.Frequency++
			return nil
		}
	}
	return domain.ErrNotFound
}

func (f *fakeQuestionStore) UpdateGroupID(ctx context.Context, id, groupID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, q := range f.questions {
		if q.ID == id {
			q.GroupID = groupID
			return nil
		}
	}
	return domain.ErrNotFound
}

func (f *fakeQuestionStore) CountByUnit(ctx context.Context, unitID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var count int64
	for _, q := range f.questions {
		if q.UnitID == unitID {
			count++
		}
	}
	return count, nil
}

func (f *fakeQuestionStore) Count(ctx context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.questions)), nil
}

func (f *fakeQuestionStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.questions)
}

type fakeUnitStore struct {
	mu    sync.Mutex
	units map[string]*domain.Unit
}

func newFakeUnitStore() *fakeUnitStore {
	return &fakeUnitStore{units: make(map[string]*domain.Unit)}
}

func (f *fakeUnitStore) GetByID(ctx context.Context, id string) (*domain.Unit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	unit, ok := f.units[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *unit
	return &copied, nil
}

func (f *fakeUnitStore) Exists(ctx context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.units[id]
	return ok, nil
}

type fakeVectorIndex struct {
	mu         sync.Mutex
	points     map[string]repository.ChunkPoint
	hits       []repository.SearchResult
	upsertErr  error
	searchErr  error
	lastTopK   int
	lastFilter *repository.SearchFilters
}

func newFakeVectorIndex() *fakeVectorIndex {
	return &fakeVectorIndex{points: make(map[string]repository.ChunkPoint)}
}

func (f *fakeVectorIndex) UpsertPoints(ctx context.Context, points []repository.ChunkPoint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.upsertErr != nil {
		return f.upsertErr
	}
	for _, p := range points {
		f.points[p.ID] = p
	}
	return nil
}

func (f *fakeVectorIndex) Search(ctx context.Context, vector []float32, topK int, filters *repository.SearchFilters) ([]repository.SearchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastTopK = topK
	f.lastFilter = filters
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	hits := f.hits
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

func (f *fakeVectorIndex) DeleteByDocument(ctx context.Context, documentID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	deleted := 0
	for id, p := range f.points {
		if p.Payload.DocumentID == documentID {
			delete(f.points, id)
			deleted++
		}
	}
	return deleted, nil
}

func (f *fakeVectorIndex) CountByDocument(ctx context.Context, documentID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, p := range f.points {
		if p.Payload.DocumentID == documentID {
			count++
		}
	}
	return count, nil
}

type fakeEmbedder struct {
	mu      sync.Mutex
	vectors map[string][]float32
	fallbck []float32
	err     error
}

func newFakeEmbedder() *fakeEmbedder {
	return &fakeEmbedder{
		vectors: make(map[string][]float32),
		fallbck: []float32{1, 0, 0},
	}
}

func (f *fakeEmbedder) vectorFor(text string) []float32 {
	if v, ok := f.vectors[text]; ok {
		return v
	}
	return f.fallbck
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.vectorFor(text), nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = f.vectorFor(t)
	}
	return out, nil
}

func (f *fakeEmbedder) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	return f.Embed(ctx, query)
}

type fakeStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{objects: make(map[string][]byte)}
}

func (f *fakeStorage) Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = data
	return nil
}

func (f *fakeStorage) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (f *fakeStorage) GetURL(key string) string {
	return "fake://" + key
}

func (f *fakeStorage) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	return nil
}

func (f *fakeStorage) Exists(ctx context.Context, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.objects[key]
	return ok, nil
}
