package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/syllabuzz/syllabuzz/internal/service"
)

// UnitHandler handles unit lookup endpoints.
type UnitHandler struct {
	unitService *service.UnitService
}

// NewUnitHandler creates a new unit handler.
func NewUnitHandler(unitService *service.UnitService) *UnitHandler {
	return &UnitHandler{unitService: unitService}
}

// GetUnit handles GET /api/v1/units/:id.
func (h *UnitHandler) GetUnit(c *gin.Context) {
	overview, err := h.unitService.GetOverview(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, overview)
}
