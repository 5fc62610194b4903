package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syllabuzz/syllabuzz/internal/domain"
	"github.com/syllabuzz/syllabuzz/internal/extractor"
	"github.com/syllabuzz/syllabuzz/internal/logger"
	"github.com/syllabuzz/syllabuzz/internal/repository"
)

func newTestIngest(t *testing.T, docs *fakeDocumentStore, index *fakeVectorIndex, store *fakeStorage) *IngestService {
	t.Helper()
	svc, err := NewIngestService(docs, index, store, newFakeEmbedder(), logger.New(nil), &IngestServiceConfig{
		ChunkSize:       512,
		OverlapFraction: 0.2,
		ContextWindow:   50,
		MaxFileSizeMB:   1,
	})
	require.NoError(t, err)
	return svc
}

// stubExtraction bypasses PDF parsing so pipeline tests can feed page text
// directly.
func stubExtraction(svc *IngestService, pages map[int]string) {
	svc.extract = func(string, io.ReaderAt, int64) (*extractor.Extraction, error) {
		return &extractor.Extraction{
			Pages:     pages,
			PageCount: len(pages),
			Title:     "Stubbed Lecture Notes",
		}, nil
	}
}

func TestChunkPointIDDeterminism(t *testing.T) {
	docID := uuid.New().String()

	first := chunkPointID(docID, 3, 7)
	second := chunkPointID(docID, 3, 7)
	assert.Equal(t, first, second)

	parsed, err := uuid.Parse(first)
	require.NoError(t, err)
	assert.Equal(t, first, parsed.String())
}

func TestChunkPointIDUniqueness(t *testing.T) {
	docID := uuid.New().String()

	ids := map[string]struct{}{
		chunkPointID(docID, 1, 0):               {},
		chunkPointID(docID, 1, 1):               {},
		chunkPointID(docID, 2, 0):               {},
		chunkPointID(uuid.New().String(), 1, 0): {},
		chunkPointID(docID, 11, 0):              {},
		chunkPointID(docID, 1, 10):              {},
	}
	assert.Len(t, ids, 6)
}

func TestIngestRejectsMissingUnit(t *testing.T) {
	svc := newTestIngest(t, newFakeDocumentStore(), newFakeVectorIndex(), newFakeStorage())

	_, err := svc.Ingest(context.Background(), []byte("%PDF-"), &Metadata{Title: "notes"}, nil)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestIngestRejectsUnknownType(t *testing.T) {
	svc := newTestIngest(t, newFakeDocumentStore(), newFakeVectorIndex(), newFakeStorage())

	_, err := svc.Ingest(context.Background(), []byte("%PDF-"), &Metadata{
		UnitID: "unit-1",
		Type:   "slides",
	}, nil)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestIngestRejectsEmptyFile(t *testing.T) {
	svc := newTestIngest(t, newFakeDocumentStore(), newFakeVectorIndex(), newFakeStorage())

	_, err := svc.Ingest(context.Background(), nil, &Metadata{UnitID: "unit-1"}, nil)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestIngestRejectsOversizedFile(t *testing.T) {
	svc := newTestIngest(t, newFakeDocumentStore(), newFakeVectorIndex(), newFakeStorage())

	big := make([]byte, 2*1024*1024)
	_, err := svc.Ingest(context.Background(), big, &Metadata{UnitID: "unit-1"}, nil)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestIngestSkipsKnownContentHash(t *testing.T) {
	docs := newFakeDocumentStore()
	svc := newTestIngest(t, docs, newFakeVectorIndex(), newFakeStorage())

	data := []byte("not really a pdf, but hashing happens before parsing")
	existing := &domain.Document{
		ID:     uuid.New().String(),
		Title:  "already there",
		UnitID: "unit-1",
		SHA256: hashContent(data),
		Status: domain.DocumentStatusIndexed,
	}
	require.NoError(t, docs.Create(context.Background(), existing))

	doc, err := svc.Ingest(context.Background(), data, &Metadata{UnitID: "unit-1"}, nil)
	require.NoError(t, err)
	assert.Equal(t, existing.ID, doc.ID)
}

func TestIngestRejectsGarbagePDF(t *testing.T) {
	svc := newTestIngest(t, newFakeDocumentStore(), newFakeVectorIndex(), newFakeStorage())

	_, err := svc.Ingest(context.Background(), []byte("definitely not a pdf"), &Metadata{
		UnitID:   "unit-1",
		FileName: "garbage.pdf",
	}, nil)
	require.Error(t, err)

	var extErr *domain.ExtractionError
	assert.ErrorAs(t, err, &extErr)
}

func TestIngestRegistersDocument(t *testing.T) {
	docs := newFakeDocumentStore()
	index := newFakeVectorIndex()
	store := newFakeStorage()
	svc := newTestIngest(t, docs, index, store)
	stubExtraction(svc, map[int]string{
		1: "Binary search trees keep keys in sorted order.",
		2: "Balanced variants bound the height logarithmically.",
	})
	ctx := context.Background()

	data := []byte("pdf bytes for the pipeline")
	doc, err := svc.Ingest(ctx, data, &Metadata{UnitID: "unit-1"}, nil)
	require.NoError(t, err)

	assert.Equal(t, domain.DocumentStatusIndexed, doc.Status)
	assert.Equal(t, "Stubbed Lecture Notes", doc.Title)
	assert.Equal(t, 2, doc.PageCount)
	assert.Equal(t, 2, doc.ChunkCount)

	indexed, err := index.CountByDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, indexed)

	exists, err := store.Exists(ctx, doc.StorageKey)
	require.NoError(t, err)
	assert.True(t, exists)

	stored, err := docs.GetByID(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, doc.SHA256, stored.SHA256)
}

func TestIngestPartialUpsertRegistersIncomplete(t *testing.T) {
	docs := newFakeDocumentStore()
	index := newFakeVectorIndex()
	store := newFakeStorage()
	svc := newTestIngest(t, docs, index, store)
	stubExtraction(svc, map[int]string{1: "Graph traversal orders: BFS and DFS."})
	index.upsertErr = &domain.PartialUpsertError{
		Collection:    "notes_content",
		FailedBatches: []int{0},
		Err:           assert.AnError,
	}
	ctx := context.Background()

	_, err := svc.Ingest(ctx, []byte("pdf bytes"), &Metadata{UnitID: "unit-1"}, nil)
	require.Error(t, err)

	var partial *domain.PartialUpsertError
	require.ErrorAs(t, err, &partial)

	// The document is registered for repair instead of silently dropped,
	// and the stored file is kept so reingest can pick it up.
	stored, total, err := docs.List(ctx, "unit-1", "", 10, 0)
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	assert.Equal(t, domain.DocumentStatusIncomplete, stored[0].Status)

	exists, err := store.Exists(ctx, stored[0].StorageKey)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestIngestUpsertFailureRollsBack(t *testing.T) {
	docs := newFakeDocumentStore()
	index := newFakeVectorIndex()
	store := newFakeStorage()
	svc := newTestIngest(t, docs, index, store)
	stubExtraction(svc, map[int]string{1: "Hash tables resolve collisions by chaining."})
	index.upsertErr = assert.AnError
	ctx := context.Background()

	_, err := svc.Ingest(ctx, []byte("pdf bytes"), &Metadata{UnitID: "unit-1"}, nil)
	require.Error(t, err)

	var partial *domain.PartialUpsertError
	assert.False(t, errors.As(err, &partial))

	// Nothing registered, upload rolled back.
	_, total, err := docs.List(ctx, "unit-1", "", 10, 0)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, store.objects)
}

func TestDeleteRemovesEverything(t *testing.T) {
	docs := newFakeDocumentStore()
	index := newFakeVectorIndex()
	store := newFakeStorage()
	svc := newTestIngest(t, docs, index, store)
	ctx := context.Background()

	docID := uuid.New().String()
	require.NoError(t, docs.Create(ctx, &domain.Document{
		ID:         docID,
		UnitID:     "unit-1",
		StorageKey: "ab/abc123.pdf",
	}))
	require.NoError(t, store.Upload(ctx, "ab/abc123.pdf", strings.NewReader("pdf bytes"), 9, "application/pdf"))
	require.NoError(t, index.UpsertPoints(ctx, []repository.ChunkPoint{
		{ID: chunkPointID(docID, 1, 0), Payload: repository.ChunkPayload{DocumentID: docID}},
		{ID: chunkPointID(docID, 1, 1), Payload: repository.ChunkPayload{DocumentID: docID}},
	}))

	deleted, err := svc.Delete(ctx, docID)
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)

	_, err = docs.GetByID(ctx, docID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	remaining, err := index.CountByDocument(ctx, docID)
	require.NoError(t, err)
	assert.Zero(t, remaining)

	exists, err := store.Exists(ctx, "ab/abc123.pdf")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestDeleteKeepsStorageObjectSharedAcrossUnits(t *testing.T) {
	docs := newFakeDocumentStore()
	store := newFakeStorage()
	svc := newTestIngest(t, docs, newFakeVectorIndex(), store)
	ctx := context.Background()

	// Same PDF ingested into two units: two registry rows, one stored object.
	sha := hashContent([]byte("shared pdf bytes"))
	key := sha[:2] + "/" + sha + ".pdf"
	first := uuid.New().String()
	second := uuid.New().String()
	require.NoError(t, docs.Create(ctx, &domain.Document{ID: first, UnitID: "unit-1", SHA256: sha, StorageKey: key}))
	require.NoError(t, docs.Create(ctx, &domain.Document{ID: second, UnitID: "unit-2", SHA256: sha, StorageKey: key}))
	require.NoError(t, store.Upload(ctx, key, strings.NewReader("shared pdf bytes"), 16, "application/pdf"))

	_, err := svc.Delete(ctx, first)
	require.NoError(t, err)

	exists, err := store.Exists(ctx, key)
	require.NoError(t, err)
	assert.True(t, exists)

	// The last reference removes the object.
	_, err = svc.Delete(ctx, second)
	require.NoError(t, err)

	exists, err = store.Exists(ctx, key)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestDeleteUnknownDocument(t *testing.T) {
	svc := newTestIngest(t, newFakeDocumentStore(), newFakeVectorIndex(), newFakeStorage())

	_, err := svc.Delete(context.Background(), uuid.New().String())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestReingestUnknownDocument(t *testing.T) {
	svc := newTestIngest(t, newFakeDocumentStore(), newFakeVectorIndex(), newFakeStorage())

	_, err := svc.Reingest(context.Background(), uuid.New().String())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestReingestWithoutStoredFile(t *testing.T) {
	docs := newFakeDocumentStore()
	svc := newTestIngest(t, docs, newFakeVectorIndex(), newFakeStorage())
	ctx := context.Background()

	docID := uuid.New().String()
	require.NoError(t, docs.Create(ctx, &domain.Document{ID: docID, UnitID: "unit-1"}))

	_, err := svc.Reingest(ctx, docID)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestHeadingTopicsDeduplicates(t *testing.T) {
	topics := headingTopics([]extractor.Hint{
		{Line: "INTRODUCTION"},
		{Line: "SORTING"},
		{Line: "INTRODUCTION"},
	})

	assert.Equal(t, domain.StringArray{"INTRODUCTION", "SORTING"}, topics)
}
