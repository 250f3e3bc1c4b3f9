package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/academy-manager/academy-api/internal/service"
	"github.com/academy-manager/academy-api/pkg/response"
)

// SubsidyHandler exposes subsidy entity endpoints.
type SubsidyHandler struct {
	subsidies *service.SubsidyService
}

// NewSubsidyHandler constructs SubsidyHandler.
func NewSubsidyHandler(subsidies *service.SubsidyService) *SubsidyHandler {
	return &SubsidyHandler{subsidies: subsidies}
}

// List godoc
// @Summary List subsidy entities
// @Tags Subsidies
// @Success 200 {object} response.Envelope
// @Router /subsidy-entities [get]
func (h *SubsidyHandler) List(c *gin.Context) {
	items, pagination, err := h.subsidies.List(c.Request.Context(), catalogFilter(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

func (h *SubsidyHandler) Get(c *gin.Context) {
	item, err := h.subsidies.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Create godoc
// @Summary Create subsidy entity
// @Tags Subsidies
// @Accept json
// @Param payload body service.SubsidyEntityRequest true "Subsidy entity"
// @Success 201 {object} response.Envelope
// @Router /subsidy-entities [post]
func (h *SubsidyHandler) Create(c *gin.Context) {
	var req service.SubsidyEntityRequest
	if !bindJSON(c, &req, "subsidy entity") {
		return
	}
	item, err := h.subsidies.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, item)
}

func (h *SubsidyHandler) Update(c *gin.Context) {
	var req service.SubsidyEntityRequest
	if !bindJSON(c, &req, "subsidy entity") {
		return
	}
	item, err := h.subsidies.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

func (h *SubsidyHandler) Delete(c *gin.Context) {
	if err := h.subsidies.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
