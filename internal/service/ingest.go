package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/syllabuzz/syllabuzz/internal/chunker"
	"github.com/syllabuzz/syllabuzz/internal/domain"
	"github.com/syllabuzz/syllabuzz/internal/extractor"
	"github.com/syllabuzz/syllabuzz/internal/logger"
	"github.com/syllabuzz/syllabuzz/internal/repository"
	"github.com/syllabuzz/syllabuzz/internal/storage"
)

// Pipeline stages, logged as each one completes. A failure is attributed
// to the stage it happened in.
const (
	StageReceived   = "received"
	StageExtracted  = "extracted"
	StageChunked    = "chunked"
	StageEmbedded   = "embedded"
	StageIndexed    = "indexed"
	StageRegistered = "registered"
)

const maxTopics = 20

// IngestService runs the document ingestion pipeline: extract, chunk,
// embed, index, register.
type IngestService struct {
	documents DocumentStore
	index     VectorIndex
	storage   storage.ObjectStorage
	embedding Embedder
	chunker   *chunker.Chunker
	logger    *logger.Logger
	extract   func(name string, r io.ReaderAt, size int64) (*extractor.Extraction, error)

	contextWindow int
	maxFileSize   int64
}

// IngestServiceConfig holds pipeline parameters.
type IngestServiceConfig struct {
	ChunkSize       int
	OverlapFraction float64
	ContextWindow   int
	MaxFileSizeMB   int
}

// NewIngestService creates a new ingest service.
func NewIngestService(
	documents DocumentStore,
	index VectorIndex,
	objectStorage storage.ObjectStorage,
	embedding Embedder,
	log *logger.Logger,
	cfg *IngestServiceConfig,
) (*IngestService, error) {
	ck, err := chunker.New(cfg.ChunkSize, cfg.OverlapFraction)
	if err != nil {
		return nil, err
	}

	contextWindow := cfg.ContextWindow
	if contextWindow <= 0 {
		contextWindow = 50
	}

	return &IngestService{
		documents:     documents,
		index:         index,
		storage:       objectStorage,
		embedding:     embedding,
		chunker:       ck,
		logger:        log,
		extract:       extractor.Extract,
		contextWindow: contextWindow,
		maxFileSize:   int64(cfg.MaxFileSizeMB) * 1024 * 1024,
	}, nil
}

// log returns a logger from context if available, otherwise the service logger.
func (s *IngestService) log(ctx context.Context) *logger.Logger {
	if l := logger.FromContext(ctx); l != nil {
		return l
	}
	return s.logger
}

// Metadata describes an uploaded document.
type Metadata struct {
	Title       string
	UnitID      string
	FacultyCode string
	Type        string
	CreatedBy   string
	FileName    string
}

// IngestOptions controls duplicate handling.
type IngestOptions struct {
	Force bool // re-ingest even if the same content hash is already registered
}

// Ingest runs the full pipeline on one PDF and returns the registered
// document. If the same content was already ingested for the unit the
// existing document is returned unchanged unless opts.Force is set.
func (s *IngestService) Ingest(ctx context.Context, data []byte, meta *Metadata, opts *IngestOptions) (*domain.Document, error) {
	if opts == nil {
		opts = &IngestOptions{}
	}
	start := time.Now()

	if meta.UnitID == "" {
		return nil, fmt.Errorf("%w: unit_id is required", domain.ErrValidation)
	}
	docType := meta.Type
	if docType == "" {
		docType = domain.DocTypeNotes
	}
	if docType != domain.DocTypeNotes && docType != domain.DocTypePastPaper {
		return nil, fmt.Errorf("%w: unknown document type %q", domain.ErrValidation, docType)
	}
	if s.maxFileSize > 0 && int64(len(data)) > s.maxFileSize {
		return nil, fmt.Errorf("%w: file exceeds %d bytes", domain.ErrValidation, s.maxFileSize)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty file", domain.ErrValidation)
	}

	shaHash := hashContent(data)

	existing, err := s.documents.GetBySHA256(ctx, meta.UnitID, shaHash)
	if err == nil {
		if !opts.Force {
			s.log(ctx).WithFields(logger.Fields{
				logger.FieldDocumentID: existing.ID,
				"sha256":               shaHash,
			}).Info("Document already ingested, skipping")
			return existing, nil
		}
		// Force: tear down the previous copy before re-running the pipeline.
		if _, err := s.Delete(ctx, existing.ID); err != nil {
			return nil, fmt.Errorf("failed to remove previous copy: %w", err)
		}
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("failed to check content hash: %w", err)
	}

	documentID := uuid.New().String()
	ctx = logger.SetDocumentID(ctx, documentID)

	// Extract
	ext, err := s.extract(meta.FileName, bytes.NewReader(data), int64(len(data)))
	if err != nil {
		s.logStageFailure(ctx, StageExtracted, err)
		return nil, err
	}
	s.logStage(ctx, StageExtracted, logger.Fields{"pages": ext.PageCount})

	title := meta.Title
	if title == "" {
		title = ext.Title
	}
	if title == "" {
		title = meta.FileName
	}

	// Chunk each page, keeping page numbers with every chunk.
	type pageChunk struct {
		page  int
		chunk chunker.Chunk
		text  string
	}
	var chunks []pageChunk
	for page := 1; page <= ext.PageCount; page++ {
		pageText := ext.Pages[page]
		for _, ch := range s.chunker.Chunk(pageText) {
			chunks = append(chunks, pageChunk{page: page, chunk: ch, text: pageText})
		}
	}
	if len(chunks) == 0 {
		return nil, &domain.ExtractionError{
			Name: meta.FileName,
			Err:  fmt.Errorf("document contains no extractable text"),
		}
	}
	s.logStage(ctx, StageChunked, logger.Fields{logger.FieldCount: len(chunks)})

	// Embed
	texts := make([]string, len(chunks))
	for i, pc := range chunks {
		texts[i] = pc.chunk.Text
	}
	vectors, err := s.embedding.EmbedBatch(ctx, texts)
	if err != nil {
		s.logStageFailure(ctx, StageEmbedded, err)
		return nil, err
	}
	s.logStage(ctx, StageEmbedded, logger.Fields{logger.FieldCount: len(vectors)})

	points := make([]repository.ChunkPoint, len(chunks))
	for i, pc := range chunks {
		points[i] = repository.ChunkPoint{
			ID:     chunkPointID(documentID, pc.page, pc.chunk.Index),
			Vector: vectors[i],
			Payload: repository.ChunkPayload{
				DocumentID:  documentID,
				Page:        pc.page,
				ChunkIndex:  pc.chunk.Index,
				Text:        pc.chunk.Text,
				Context:     chunker.Context(pc.text, pc.chunk.Start, s.contextWindow),
				Title:       title,
				UnitID:      meta.UnitID,
				FacultyCode: meta.FacultyCode,
				Type:        docType,
			},
		}
	}

	// Upload the original file before touching the index so a crash leaves
	// the raw material recoverable.
	storageKey := fmt.Sprintf("%s/%s.pdf", shaHash[:2], shaHash)
	uploaded := false
	existsInStorage, err := s.storage.Exists(ctx, storageKey)
	if err != nil {
		return nil, fmt.Errorf("failed to check storage existence: %w", err)
	}
	if !existsInStorage {
		if err := s.storage.Upload(ctx, storageKey, bytes.NewReader(data), int64(len(data)), "application/pdf"); err != nil {
			return nil, fmt.Errorf("failed to upload to storage: %w", err)
		}
		uploaded = true
	}

	doc := &domain.Document{
		ID:          documentID,
		Title:       title,
		UnitID:      meta.UnitID,
		FacultyCode: meta.FacultyCode,
		Type:        docType,
		PageCount:   ext.PageCount,
		ChunkCount:  len(chunks),
		StorageKey:  storageKey,
		FileSize:    int64(len(data)),
		SHA256:      shaHash,
		Topics:      headingTopics(ext.Headings),
		Status:      domain.DocumentStatusIndexed,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	if meta.CreatedBy != "" {
		doc.CreatedBy = meta.CreatedBy
	}

	// Index. On partial failure the document is registered as incomplete so
	// it shows up for repair instead of silently missing chunks.
	if err := s.index.UpsertPoints(ctx, points); err != nil {
		var partial *domain.PartialUpsertError
		if errors.As(err, &partial) {
			doc.Status = domain.DocumentStatusIncomplete
			if createErr := s.documents.Create(ctx, doc); createErr != nil {
				s.log(ctx).WithError(createErr).Error("Failed to register incomplete document")
			}
			s.logStageFailure(ctx, StageIndexed, err)
			return nil, err
		}
		if uploaded {
			s.rollbackStorage(ctx, storageKey)
		}
		s.logStageFailure(ctx, StageIndexed, err)
		return nil, err
	}
	s.logStage(ctx, StageIndexed, logger.Fields{logger.FieldCount: len(points)})

	// Register
	if err := s.documents.Create(ctx, doc); err != nil {
		if _, delErr := s.index.DeleteByDocument(ctx, documentID); delErr != nil {
			s.log(ctx).WithError(delErr).Error("Failed to rollback index upsert")
		}
		if uploaded {
			s.rollbackStorage(ctx, storageKey)
		}
		return nil, fmt.Errorf("failed to register document: %w", err)
	}
	s.logStage(ctx, StageRegistered, logger.Fields{
		logger.FieldDurationMs: time.Since(start).Milliseconds(),
		"pages":                ext.PageCount,
		"chunks":               len(chunks),
	})

	return doc, nil
}

// Delete removes a document from the index, storage, and registry and
// returns how many indexed chunks were removed. Unknown IDs return
// ErrNotFound; the index and storage cleanup stay idempotent.
func (s *IngestService) Delete(ctx context.Context, documentID string) (int, error) {
	doc, err := s.documents.GetByID(ctx, documentID)
	if err != nil {
		return 0, err
	}

	deleted, err := s.index.DeleteByDocument(ctx, documentID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete indexed chunks: %w", err)
	}

	// The stored file is content-addressed, so another document (for
	// example the same PDF ingested into a second unit) may still point at
	// the same object. Only remove it when this is the last reference.
	if doc.StorageKey != "" {
		refs, err := s.documents.CountBySHA256(ctx, doc.SHA256)
		if err != nil {
			s.log(ctx).WithError(err).Warn("Failed to count content references, keeping stored file")
		} else if refs <= 1 {
			if err := s.storage.Delete(ctx, doc.StorageKey); err != nil {
				s.log(ctx).WithError(err).Warn("Failed to delete stored file")
			}
		}
	}

	if err := s.documents.Delete(ctx, documentID); err != nil {
		return deleted, err
	}

	s.log(ctx).WithFields(logger.Fields{
		logger.FieldDocumentID: documentID,
		"chunks_deleted":       deleted,
	}).Info("Document deleted")

	return deleted, nil
}

// Reingest re-runs the pipeline on a document's stored original. Used to
// repair documents left indexing_incomplete by a partial upsert.
func (s *IngestService) Reingest(ctx context.Context, documentID string) (*domain.Document, error) {
	doc, err := s.documents.GetByID(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if doc.StorageKey == "" {
		return nil, fmt.Errorf("%w: document has no stored file", domain.ErrValidation)
	}

	rc, err := s.storage.Download(ctx, doc.StorageKey)
	if err != nil {
		return nil, fmt.Errorf("failed to open stored file: %w", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read stored file: %w", err)
	}

	return s.Ingest(ctx, data, &Metadata{
		Title:       doc.Title,
		UnitID:      doc.UnitID,
		FacultyCode: doc.FacultyCode,
		Type:        doc.Type,
		CreatedBy:   doc.CreatedBy,
		FileName:    doc.Title + ".pdf",
	}, &IngestOptions{Force: true})
}

// FileURL returns the storage URL of a document's original file, or an
// empty string if none was kept.
func (s *IngestService) FileURL(doc *domain.Document) string {
	if doc.StorageKey == "" {
		return ""
	}
	return s.storage.GetURL(doc.StorageKey)
}

func (s *IngestService) rollbackStorage(ctx context.Context, key string) {
	if err := s.storage.Delete(ctx, key); err != nil {
		s.log(ctx).WithField("storage_key", key).WithError(err).Error("Failed to rollback storage upload")
	}
}

func (s *IngestService) logStage(ctx context.Context, stage string, fields logger.Fields) {
	s.log(ctx).WithField(logger.FieldStage, stage).WithFields(fields).Info("Pipeline stage completed")
}

func (s *IngestService) logStageFailure(ctx context.Context, stage string, err error) {
	s.log(ctx).WithField(logger.FieldStage, stage).WithError(err).Error("Pipeline failed")
}

func hashContent(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// headingTopics turns detected heading lines into a deduplicated topic list.
func headingTopics(hints []extractor.Hint) domain.StringArray {
	seen := make(map[string]struct{})
	topics := domain.StringArray{}
	for _, h := range hints {
		if _, ok := seen[h.Line]; ok {
			continue
		}
		seen[h.Line] = struct{}{}
		topics = append(topics, h.Line)
		if len(topics) >= maxTopics {
			break
		}
	}
	return topics
}
