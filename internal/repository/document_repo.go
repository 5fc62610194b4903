package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/syllabuzz/syllabuzz/internal/domain"
)

// DocumentRepository handles database operations for document registry rows.
type DocumentRepository struct {
	db *gorm.DB
}

// NewDocumentRepository creates a new document repository.
func NewDocumentRepository(db *gorm.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// Create inserts a new document record.
func (r *DocumentRepository) Create(ctx context.Context, doc *domain.Document) error {
	if err := r.db.WithContext(ctx).Create(doc).Error; err != nil {
		return fmt.Errorf("failed to create document: %w", err)
	}
	return nil
}

// GetByID retrieves a document by its ID.
func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	var doc domain.Document
	err := r.db.WithContext(ctx).First(&doc, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return &doc, nil
}

// GetBySHA256 retrieves a document whose content hash matches, scoped to a
// unit. Used to detect re-uploads of the same file.
func (r *DocumentRepository) GetBySHA256(ctx context.Context, unitID, sha string) (*domain.Document, error) {
	var doc domain.Document
	err := r.db.WithContext(ctx).
		Where("unit_id = ? AND sha256 = ?", unitID, sha).
		First(&doc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get document by hash: %w", err)
	}
	return &doc, nil
}

// List returns documents ordered by newest first, optionally filtered by
// unit and type, with offset pagination.
func (r *DocumentRepository) List(ctx context.Context, unitID, docType string, limit, offset int) ([]domain.Document, int64, error) {
	query := r.db.WithContext(ctx).Model(&domain.Document{})
	if unitID != "" {
		query = query.Where("unit_id = ?", unitID)
	}
	if docType != "" {
		query = query.Where("type = ?", docType)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count documents: %w", err)
	}

	var docs []domain.Document
	err := query.
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&docs).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list documents: %w", err)
	}
	return docs, total, nil
}

// UpdateStatus sets the indexing status of a document.
func (r *DocumentRepository) UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus) error {
	result := r.db.WithContext(ctx).
		Model(&domain.Document{}).
		Where("id = ?", id).
		Update("status", status)
	if result.Error != nil {
		return fmt.Errorf("failed to update document status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete removes a document record. Deleting a missing document is not an
// error so removal stays idempotent.
func (r *DocumentRepository) Delete(ctx context.Context, id string) error {
	if err := r.db.WithContext(ctx).Delete(&domain.Document{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return nil
}

// CountByUnit returns the number of registered documents for a unit.
func (r *DocumentRepository) CountByUnit(ctx context.Context, unitID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.Document{}).
		Where("unit_id = ?", unitID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}
	return count, nil
}

// CountBySHA256 returns how many registered documents share a content hash.
// The stored file is content-addressed, so the object may only be removed
// once this drops to zero.
func (r *DocumentRepository) CountBySHA256(ctx context.Context, sha string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.Document{}).
		Where("sha256 = ?", sha).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}
	return count, nil
}

// Stats aggregates registry counters for the stats endpoint.
func (r *DocumentRepository) Stats(ctx context.Context) (map[string]int64, error) {
	stats := make(map[string]int64)

	var total int64
	if err := r.db.WithContext(ctx).Model(&domain.Document{}).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count documents: %w", err)
	}
	stats["documents"] = total

	type typeCount struct {
		Type  string
		Count int64
	}
	var byType []typeCount
	err := r.db.WithContext(ctx).
		Model(&domain.Document{}).
		Select("type, count(*) as count").
		Group("type").
		Scan(&byType).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count documents by type: %w", err)
	}
	for _, tc := range byType {
		stats["documents_"+tc.Type] = tc.Count
	}

	var chunks int64
	err = r.db.WithContext(ctx).
		Model(&domain.Document{}).
		Select("coalesce(sum(chunk_count), 0)").
		Scan(&chunks).Error
	if err != nil {
		return nil, fmt.Errorf("failed to sum chunk counts: %w", err)
	}
	stats["chunks"] = chunks

	return stats, nil
}
