package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/academy-manager/academy-api/internal/models"
	"github.com/academy-manager/academy-api/internal/service"
	"github.com/academy-manager/academy-api/pkg/response"
)

type offeringService interface {
	Get(ctx context.Context, id string) (*models.OfferingDetail, error)
	List(ctx context.Context, filter models.OfferingFilter) ([]models.OfferingDetail, *models.Pagination, error)
	ListActive(ctx context.Context) ([]models.OfferingDetail, error)
	Create(ctx context.Context, req service.CreateOfferingRequest) (*models.OfferingDetail, error)
	Update(ctx context.Context, id string, req service.UpdateOfferingRequest) (*models.OfferingDetail, error)
	Delete(ctx context.Context, id string) error
}

// OfferingHandler exposes course offering endpoints.
type OfferingHandler struct {
	offerings offeringService
}

// NewOfferingHandler constructs OfferingHandler.
func NewOfferingHandler(offerings offeringService) *OfferingHandler {
	return &OfferingHandler{offerings: offerings}
}

// List godoc
// @Summary List offerings
// @Tags Offerings
// @Produce json
// @Param course_id query string false "Course filter"
// @Param teacher_id query string false "Teacher filter"
// @Param center_id query string false "Center filter"
// @Param active query bool false "Active filter"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /offerings [get]
func (h *OfferingHandler) List(c *gin.Context) {
	filter := models.OfferingFilter{
		CourseID:  c.Query("course_id"),
		TeacherID: c.Query("teacher_id"),
		CenterID:  c.Query("center_id"),
		Active:    boolQuery(c, "active"),
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
	}
	filter.Page, filter.PageSize = pageParams(c)

	items, pagination, err := h.offerings.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// ListActive godoc
// @Summary List active offerings
// @Tags Offerings
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /offerings/active [get]
func (h *OfferingHandler) ListActive(c *gin.Context) {
	items, err := h.offerings.ListActive(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Get godoc
// @Summary Get offering
// @Tags Offerings
// @Param id path string true "Offering ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /offerings/{id} [get]
func (h *OfferingHandler) Get(c *gin.Context) {
	item, err := h.offerings.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Create godoc
// @Summary Create offering
// @Description teacher_id must reference a TEACHER; end_date must be after start_date
// @Tags Offerings
// @Accept json
// @Produce json
// @Param payload body service.CreateOfferingRequest true "Offering"
// @Success 201 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /offerings [post]
func (h *OfferingHandler) Create(c *gin.Context) {
	var req service.CreateOfferingRequest
	if !bindJSON(c, &req, "offering") {
		return
	}
	item, err := h.offerings.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, item)
}

// Update godoc
// @Summary Update offering
// @Tags Offerings
// @Accept json
// @Produce json
// @Param id path string true "Offering ID"
// @Param payload body service.UpdateOfferingRequest true "Offering"
// @Success 200 {object} response.Envelope
// @Router /offerings/{id} [put]
func (h *OfferingHandler) Update(c *gin.Context) {
	var req service.UpdateOfferingRequest
	if !bindJSON(c, &req, "offering") {
		return
	}
	item, err := h.offerings.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Delete godoc
// @Summary Delete offering
// @Description Removes the offering and every enrollment in it
// @Tags Offerings
// @Param id path string true "Offering ID"
// @Success 204
// @Router /offerings/{id} [delete]
func (h *OfferingHandler) Delete(c *gin.Context) {
	if err := h.offerings.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
