package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/syllabuzz/syllabuzz/internal/service"
)

// SearchHandler handles semantic search and stats endpoints.
type SearchHandler struct {
	searchService   *service.SearchService
	questionService *service.QuestionService
}

// NewSearchHandler creates a new search handler.
func NewSearchHandler(searchService *service.SearchService, questionService *service.QuestionService) *SearchHandler {
	return &SearchHandler{
		searchService:   searchService,
		questionService: questionService,
	}
}

// Search handles POST /api/v1/search.
func (h *SearchHandler) Search(c *gin.Context) {
	var req service.SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	resp, err := h.searchService.Search(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetStats handles GET /api/v1/stats.
func (h *SearchHandler) GetStats(c *gin.Context) {
	stats, err := h.searchService.GetStats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	questionCount, err := h.questionService.Count(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	out := gin.H{"questions": questionCount}
	for k, v := range stats {
		out[k] = v
	}
	c.JSON(http.StatusOK, out)
}
