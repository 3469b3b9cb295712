package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/siga-ar/siga-api/internal/models"
	"github.com/siga-ar/siga-api/internal/service"
	appErrors "github.com/siga-ar/siga-api/pkg/errors"
	"github.com/siga-ar/siga-api/pkg/response"
)

// LegajoHandler exposes the document-checklist endpoints of career
// enrollments. All routes are staff-only; the guard lives in the router.
type LegajoHandler struct {
	legajos *service.LegajoService
}

// NewLegajoHandler constructs LegajoHandler.
func NewLegajoHandler(legajos *service.LegajoService) *LegajoHandler {
	return &LegajoHandler{legajos: legajos}
}

type checklistUpdatePayload struct {
	Updates []models.ChecklistUpdate `json:"updates"`
}

// Detail godoc
// @Summary Get a career enrollment's legajo
// @Tags Legajo
// @Produce json
// @Param id path int true "Career enrollment ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /career-enrollments/{id}/legajo [get]
func (h *LegajoHandler) Detail(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid career enrollment id"))
		return
	}
	detail, err := h.legajos.GetDetail(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// UpdateItems godoc
// @Summary Apply checklist updates and recompute legajo state
// @Tags Legajo
// @Accept json
// @Produce json
// @Param id path int true "Career enrollment ID"
// @Param payload body checklistUpdatePayload true "Checklist updates"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /career-enrollments/{id}/legajo/items [put]
func (h *LegajoHandler) UpdateItems(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid career enrollment id"))
		return
	}
	var payload checklistUpdatePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.legajos.ApplyChecklistUpdates(c.Request.Context(), id, payload.Updates)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Recompute godoc
// @Summary Re-derive legajo state from stored items
// @Tags Legajo
// @Produce json
// @Param id path int true "Career enrollment ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /career-enrollments/{id}/legajo/recompute [post]
func (h *LegajoHandler) Recompute(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid career enrollment id"))
		return
	}
	result, err := h.legajos.Recompute(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
