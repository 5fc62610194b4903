package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/syllabuzz/syllabuzz/internal/domain"
)

// UnitRepository handles database operations for course units. Units are
// managed elsewhere; this repository only reads them to validate references.
type UnitRepository struct {
	db *gorm.DB
}

// NewUnitRepository creates a new unit repository.
func NewUnitRepository(db *gorm.DB) *UnitRepository {
	return &UnitRepository{db: db}
}

// GetByID retrieves a unit by its ID.
func (r *UnitRepository) GetByID(ctx context.Context, id string) (*domain.Unit, error) {
	var unit domain.Unit
	err := r.db.WithContext(ctx).First(&unit, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get unit: %w", err)
	}
	return &unit, nil
}

// Exists reports whether a unit with the given ID is registered.
func (r *UnitRepository) Exists(ctx context.Context, id string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.Unit{}).
		Where("id = ?", id).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check unit: %w", err)
	}
	return count > 0, nil
}
