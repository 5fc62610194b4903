package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/syllabuzz/syllabuzz/internal/domain"
	"github.com/syllabuzz/syllabuzz/internal/service"
)

// QuestionHandler handles exam question endpoints.
type QuestionHandler struct {
	questionService *service.QuestionService
	searchService   *service.SearchService
}

// NewQuestionHandler creates a new question handler.
func NewQuestionHandler(questionService *service.QuestionService, searchService *service.SearchService) *QuestionHandler {
	return &QuestionHandler{
		questionService: questionService,
		searchService:   searchService,
	}
}

// AddQuestion handles POST /api/v1/questions.
func (h *QuestionHandler) AddQuestion(c *gin.Context) {
	var req service.AddQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	result, err := h.questionService.AddQuestion(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	status := http.StatusCreated
	if result.Duplicate {
		status = http.StatusOK
	}
	c.JSON(status, result)
}

// GetQuestion handles GET /api/v1/questions/:id.
func (h *QuestionHandler) GetQuestion(c *gin.Context) {
	q, err := h.questionService.GetQuestion(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"question":         q,
		"related_sections": h.renderSections(c.Request.Context(), q.RelatedSections),
	})
}

// renderSections resolves stored chunk references to display entries
// carrying the owning document's title. References to since-deleted
// documents keep an empty title rather than failing the request.
func (h *QuestionHandler) renderSections(ctx context.Context, refs domain.SectionRefs) []gin.H {
	titles := make(map[string]string)
	views := make([]gin.H, 0, len(refs))
	for _, ref := range refs {
		title, ok := titles[ref.DocumentID]
		if !ok {
			if doc, err := h.searchService.GetDocument(ctx, ref.DocumentID); err == nil {
				title = doc.Title
			}
			titles[ref.DocumentID] = title
		}
		views = append(views, gin.H{
			"document_id": ref.DocumentID,
			"page":        ref.Page,
			"chunk_index": ref.ChunkIndex,
			"title":       title,
		})
	}
	return views
}

// ListUnitQuestions handles GET /api/v1/units/:id/questions. With
// ?frequent=true it returns only recurring questions.
func (h *QuestionHandler) ListUnitQuestions(c *gin.Context) {
	unitID := c.Param("id")
	ctx := c.Request.Context()

	if c.Query("frequent") == "true" {
		minFrequency, _ := strconv.Atoi(c.DefaultQuery("min_frequency", "2"))
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

		questions, err := h.questionService.ListFrequent(ctx, unitID, minFrequency, limit)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"results": questions, "total": len(questions)})
		return
	}

	questions, err := h.questionService.ListByUnit(ctx, unitID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": questions, "total": len(questions)})
}

// ListGroup handles GET /api/v1/question-groups/:id.
func (h *QuestionHandler) ListGroup(c *gin.Context) {
	questions, err := h.questionService.ListGroup(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"results": questions, "total": len(questions)})
}
