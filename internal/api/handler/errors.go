package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/syllabuzz/syllabuzz/internal/domain"
)

// respondError maps domain errors to HTTP status codes. Bad input and
// unreadable uploads are the caller's fault; unreachable backends are
// reported as bad gateway so clients can tell them from server bugs.
func respondError(c *gin.Context, err error) {
	var (
		extractionErr *domain.ExtractionError
		configErr     *domain.ConfigurationError
		modelErr      *domain.ModelUnavailableError
		searchErr     *domain.SearchUnavailableError
	)

	switch {
	case errors.Is(err, domain.ErrValidation),
		errors.As(err, &extractionErr),
		errors.As(err, &configErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.As(err, &modelErr), errors.As(err, &searchErr):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
