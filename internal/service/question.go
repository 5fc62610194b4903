package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/syllabuzz/syllabuzz/internal/domain"
	"github.com/syllabuzz/syllabuzz/internal/logger"
	"github.com/syllabuzz/syllabuzz/internal/repository"
)

// QuestionService stores exam questions, deduplicates them against the
// questions already recorded for the unit, and links them to related notes.
type QuestionService struct {
	questions QuestionStore
	index     VectorIndex
	embedding Embedder
	logger    *logger.Logger

	duplicateThreshold float32
	relatedThreshold   float32
	relatedTopK        int
}

// QuestionServiceConfig holds dedup tuning parameters.
type QuestionServiceConfig struct {
	DuplicateThreshold float32
	RelatedThreshold   float32
	RelatedTopK        int
}

// NewQuestionService creates a new question service.
func NewQuestionService(
	questions QuestionStore,
	index VectorIndex,
	embedding Embedder,
	log *logger.Logger,
	cfg *QuestionServiceConfig,
) *QuestionService {
	duplicateThreshold := float32(0.85)
	relatedThreshold := float32(0.6)
	relatedTopK := 3
	if cfg != nil {
		if cfg.DuplicateThreshold > 0 {
			duplicateThreshold = cfg.DuplicateThreshold
		}
		if cfg.RelatedThreshold > 0 {
			relatedThreshold = cfg.RelatedThreshold
		}
		if cfg.RelatedTopK > 0 {
			relatedTopK = cfg.RelatedTopK
		}
	}

	return &QuestionService{
		questions:          questions,
		index:              index,
		embedding:          embedding,
		logger:             log,
		duplicateThreshold: duplicateThreshold,
		relatedThreshold:   relatedThreshold,
		relatedTopK:        relatedTopK,
	}
}

// log returns a logger from context if available, otherwise the service logger.
func (s *QuestionService) log(ctx context.Context) *logger.Logger {
	if l := logger.FromContext(ctx); l != nil {
		return l
	}
	return s.logger
}

// AddQuestionRequest represents a new question submission.
type AddQuestionRequest struct {
	Text       string `json:"text" binding:"required"`
	UnitID     string `json:"unit_id" binding:"required"`
	SourceType string `json:"source_type,omitempty"`
	SourceID   string `json:"source_id,omitempty"`
	Year       int    `json:"year,omitempty"`
}

// AddQuestionResult reports whether the submission matched an existing
// question or created a new one.
type AddQuestionResult struct {
	Question   *domain.Question `json:"question"`
	Duplicate  bool             `json:"duplicate"`
	Similarity float32          `json:"similarity,omitempty"`
}

// AddQuestion embeds the question and scans the unit's existing questions
// for a semantic duplicate. The submitted variant is always persisted as its
// own record; a match only decides its group id and bumps the matched
// question's frequency, never touching the matched question's text.
func (s *QuestionService) AddQuestion(ctx context.Context, req *AddQuestionRequest) (*AddQuestionResult, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, fmt.Errorf("%w: question text must not be empty", domain.ErrValidation)
	}
	if req.UnitID == "" {
		return nil, fmt.Errorf("%w: unit_id is required", domain.ErrValidation)
	}

	ctx = logger.SetUnitID(ctx, req.UnitID)

	embedding, err := s.embedding.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	existing, err := s.questions.ListByUnit(ctx, req.UnitID)
	if err != nil {
		return nil, err
	}

	groupID := uuid.New().String()
	duplicate := false
	var similarity float32

	best, bestSim := bestMatch(embedding, existing)
	if best != nil && bestSim >= s.duplicateThreshold {
		duplicate = true
		similarity = bestSim

		// Reuse the matched question's group, backfilling one if it has
		// never collided before, so every variant lands in the same group.
		if best.GroupID != "" {
			groupID = best.GroupID
		} else if err := s.questions.UpdateGroupID(ctx, best.ID, groupID); err != nil {
			return nil, err
		}

		if err := s.questions.IncrementFrequency(ctx, best.ID); err != nil {
			return nil, err
		}

		s.log(ctx).WithFields(logger.Fields{
			"question_id": best.ID,
			"similarity":  bestSim,
		}).Info("Duplicate question detected")
	}

	related, err := s.relatedSections(ctx, embedding, req.UnitID)
	if err != nil {
		// Related notes are an enrichment; the question is still worth
		// storing when the index is unreachable.
		s.log(ctx).WithError(err).Warn("Failed to find related sections")
		related = domain.SectionRefs{}
	}

	q := &domain.Question{
		ID:              uuid.New().String(),
		Text:            text,
		UnitID:          req.UnitID,
		SourceType:      req.SourceType,
		SourceID:        req.SourceID,
		Year:            req.Year,
		Embedding:       domain.Vector(embedding),
		GroupID:         groupID,
		Frequency:       1,
		RelatedSections: related,
		Difficulty:      EstimateDifficulty(text),
		CreatedAt:       time.Now(),
		UpdatedAt:       time.Now(),
	}

	if err := s.questions.Create(ctx, q); err != nil {
		return nil, err
	}

	return &AddQuestionResult{
		Question:   q,
		Duplicate:  duplicate,
		Similarity: similarity,
	}, nil
}

// bestMatch returns the stored question most similar to the embedding.
// Candidates arrive in insertion order, so equal scores resolve to the
// oldest question and repeated runs give the same answer.
func bestMatch(embedding []float32, candidates []domain.Question) (*domain.Question, float32) {
	var best *domain.Question
	var bestSim float32

	for i := range candidates {
		if len(candidates[i].Embedding) == 0 {
			continue
		}
		sim := float32(CosineSimilarity(embedding, candidates[i].Embedding))
		if best == nil || sim > bestSim {
			best = &candidates[i]
			bestSim = sim
		}
	}
	return best, bestSim
}

// relatedSections searches the unit's indexed notes for passages the
// question is likely drawn from and returns them as chunk references.
func (s *QuestionService) relatedSections(ctx context.Context, embedding []float32, unitID string) (domain.SectionRefs, error) {
	hits, err := s.index.Search(ctx, embedding, s.relatedTopK, &repository.SearchFilters{
		UnitID: unitID,
		Type:   domain.DocTypeNotes,
	})
	if err != nil {
		return nil, err
	}

	sections := domain.SectionRefs{}
	for _, hit := range hits {
		if hit.Payload == nil || hit.Score < s.relatedThreshold {
			continue
		}
		sections = append(sections, domain.SectionRef{
			DocumentID: hit.Payload.DocumentID,
			Page:       hit.Payload.Page,
			ChunkIndex: hit.Payload.ChunkIndex,
		})
	}
	return sections, nil
}

// GetQuestion retrieves a question by ID.
func (s *QuestionService) GetQuestion(ctx context.Context, id string) (*domain.Question, error) {
	return s.questions.GetByID(ctx, id)
}

// ListByUnit returns all questions recorded for a unit.
func (s *QuestionService) ListByUnit(ctx context.Context, unitID string) ([]domain.Question, error) {
	if unitID == "" {
		return nil, fmt.Errorf("%w: unit_id is required", domain.ErrValidation)
	}
	return s.questions.ListByUnit(ctx, unitID)
}

// ListGroup returns all recorded variants of a duplicate group.
func (s *QuestionService) ListGroup(ctx context.Context, groupID string) ([]domain.Question, error) {
	if groupID == "" {
		return nil, fmt.Errorf("%w: group_id is required", domain.ErrValidation)
	}
	return s.questions.ListByGroup(ctx, groupID)
}

// Count returns the total number of stored questions.
func (s *QuestionService) Count(ctx context.Context) (int64, error) {
	return s.questions.Count(ctx)
}

// ListFrequent returns the questions that keep reappearing in a unit's exams.
func (s *QuestionService) ListFrequent(ctx context.Context, unitID string, minFrequency, limit int) ([]domain.Question, error) {
	if unitID == "" {
		return nil, fmt.Errorf("%w: unit_id is required", domain.ErrValidation)
	}
	if minFrequency <= 0 {
		minFrequency = 2
	}
	if limit <= 0 {
		limit = 20
	}
	return s.questions.ListFrequent(ctx, unitID, minFrequency, limit)
}
