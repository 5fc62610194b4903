package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/syllabuzz/syllabuzz/internal/domain"
)

// QuestionRepository handles database operations for exam questions.
type QuestionRepository struct {
	db *gorm.DB
}

// NewQuestionRepository creates a new question repository.
func NewQuestionRepository(db *gorm.DB) *QuestionRepository {
	return &QuestionRepository{db: db}
}

// Create inserts a new question record.
func (r *QuestionRepository) Create(ctx context.Context, q *domain.Question) error {
	if err := r.db.WithContext(ctx).Create(q).Error; err != nil {
		return fmt.Errorf("failed to create question: %w", err)
	}
	return nil
}

// GetByID retrieves a question by its ID.
func (r *QuestionRepository) GetByID(ctx context.Context, id string) (*domain.Question, error) {
	var q domain.Question
	err := r.db.WithContext(ctx).First(&q, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get question: %w", err)
	}
	return &q, nil
}

// ListByUnit returns every question in a unit. Ordered by insertion so the
// duplicate scan visits candidates in a stable order.
func (r *QuestionRepository) ListByUnit(ctx context.Context, unitID string) ([]domain.Question, error) {
	var questions []domain.Question
	err := r.db.WithContext(ctx).
		Where("unit_id = ?", unitID).
		Order("created_at ASC, id ASC").
		Find(&questions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list questions: %w", err)
	}
	return questions, nil
}

// ListByGroup returns every question sharing a duplicate group.
func (r *QuestionRepository) ListByGroup(ctx context.Context, groupID string) ([]domain.Question, error) {
	var questions []domain.Question
	err := r.db.WithContext(ctx).
		Where("group_id = ?", groupID).
		Order("created_at ASC, id ASC").
		Find(&questions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list question group: %w", err)
	}
	return questions, nil
}

// ListFrequent returns questions in a unit that have appeared at least
// minFrequency times, most frequent first.
func (r *QuestionRepository) ListFrequent(ctx context.Context, unitID string, minFrequency, limit int) ([]domain.Question, error) {
	var questions []domain.Question
	err := r.db.WithContext(ctx).
		Where("unit_id = ? AND frequency >= ?", unitID, minFrequency).
		Order("frequency DESC, created_at ASC, id ASC").
		Limit(limit).
		Find(&questions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list frequent questions: %w", err)
	}
	return questions, nil
}

// IncrementFrequency bumps the appearance count on an existing question.
func (r *QuestionRepository) IncrementFrequency(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).
		Model(&domain.Question{}).
		Where("id = ?", id).
		Update("frequency", gorm.Expr("frequency + 1"))
	if result.Error != nil {
		return fmt.Errorf("failed to increment question frequency: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// UpdateGroupID assigns a duplicate group to an existing question. Used
// when a match is found against a question that predates grouping.
func (r *QuestionRepository) UpdateGroupID(ctx context.Context, id, groupID string) error {
	result := r.db.WithContext(ctx).
		Model(&domain.Question{}).
		Where("id = ?", id).
		Update("group_id", groupID)
	if result.Error != nil {
		return fmt.Errorf("failed to update question group: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// CountByUnit returns the number of stored questions for a unit.
func (r *QuestionRepository) CountByUnit(ctx context.Context, unitID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.Question{}).
		Where("unit_id = ?", unitID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count questions: %w", err)
	}
	return count, nil
}

// Count returns the total number of stored questions.
func (r *QuestionRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.Question{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count questions: %w", err)
	}
	return count, nil
}
