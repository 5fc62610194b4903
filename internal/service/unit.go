package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/syllabuzz/syllabuzz/internal/domain"
	"github.com/syllabuzz/syllabuzz/internal/logger"
)

// UnitService reads unit records and aggregates per-unit counters.
type UnitService struct {
	units     UnitStore
	documents DocumentStore
	questions QuestionStore
	logger    *logger.Logger
}

// NewUnitService creates a new unit service.
func NewUnitService(
	units UnitStore,
	documents DocumentStore,
	questions QuestionStore,
	log *logger.Logger,
) *UnitService {
	return &UnitService{
		units:     units,
		documents: documents,
		questions: questions,
		logger:    log,
	}
}

// UnitOverview is a unit record with its ingestion counters.
type UnitOverview struct {
	Unit      *domain.Unit `json:"unit"`
	Documents int64        `json:"documents"`
	Questions int64        `json:"questions"`
}

// GetOverview returns a unit along with how many documents and questions
// are registered against it.
func (s *UnitService) GetOverview(ctx context.Context, id string) (*UnitOverview, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: unit id must not be empty", domain.ErrValidation)
	}

	unit, err := s.units.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	docs, err := s.documents.CountByUnit(ctx, id)
	if err != nil {
		return nil, err
	}
	questions, err := s.questions.CountByUnit(ctx, id)
	if err != nil {
		return nil, err
	}

	return &UnitOverview{
		Unit:      unit,
		Documents: docs,
		Questions: questions,
	}, nil
}

// Exists reports whether a unit is registered.
func (s *UnitService) Exists(ctx context.Context, id string) (bool, error) {
	return s.units.Exists(ctx, id)
}
