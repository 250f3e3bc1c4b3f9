package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/academy-manager/academy-api/internal/service"
	"github.com/academy-manager/academy-api/pkg/response"
)

// CatalogHandler exposes companies, centers, subjects, formats and courses.
type CatalogHandler struct {
	catalog *service.CatalogService
}

// NewCatalogHandler constructs CatalogHandler.
func NewCatalogHandler(catalog *service.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

// ListCompanies godoc
// @Summary List companies
// @Tags Catalog
// @Produce json
// @Param search query string false "Legal name or tax id"
// @Param active query bool false "Active filter"
// @Success 200 {object} response.Envelope
// @Router /companies [get]
func (h *CatalogHandler) ListCompanies(c *gin.Context) {
	items, pagination, err := h.catalog.ListCompanies(c.Request.Context(), catalogFilter(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// GetCompany godoc
// @Summary Get company
// @Tags Catalog
// @Param id path string true "Company ID"
// @Success 200 {object} response.Envelope
// @Router /companies/{id} [get]
func (h *CatalogHandler) GetCompany(c *gin.Context) {
	item, err := h.catalog.GetCompany(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// CreateCompany godoc
// @Summary Create company
// @Tags Catalog
// @Accept json
// @Param payload body service.CompanyRequest true "Company"
// @Success 201 {object} response.Envelope
// @Router /companies [post]
func (h *CatalogHandler) CreateCompany(c *gin.Context) {
	var req service.CompanyRequest
	if !bindJSON(c, &req, "company") {
		return
	}
	item, err := h.catalog.CreateCompany(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, item)
}

// UpdateCompany godoc
// @Summary Update company
// @Tags Catalog
// @Accept json
// @Param id path string true "Company ID"
// @Param payload body service.CompanyRequest true "Company"
// @Success 200 {object} response.Envelope
// @Router /companies/{id} [put]
func (h *CatalogHandler) UpdateCompany(c *gin.Context) {
	var req service.CompanyRequest
	if !bindJSON(c, &req, "company") {
		return
	}
	item, err := h.catalog.UpdateCompany(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// DeleteCompany godoc
// @Summary Delete company
// @Tags Catalog
// @Param id path string true "Company ID"
// @Success 204
// @Failure 409 {object} response.Envelope
// @Router /companies/{id} [delete]
func (h *CatalogHandler) DeleteCompany(c *gin.Context) {
	if err := h.catalog.DeleteCompany(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListCommunities godoc
// @Summary List communities
// @Tags Catalog
// @Success 200 {object} response.Envelope
// @Router /communities [get]
func (h *CatalogHandler) ListCommunities(c *gin.Context) {
	items, pagination, err := h.catalog.ListCommunities(c.Request.Context(), catalogFilter(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

func (h *CatalogHandler) GetCommunity(c *gin.Context) {
	item, err := h.catalog.GetCommunity(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

func (h *CatalogHandler) CreateCommunity(c *gin.Context) {
	var req service.CommunityRequest
	if !bindJSON(c, &req, "community") {
		return
	}
	item, err := h.catalog.CreateCommunity(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, item)
}

func (h *CatalogHandler) UpdateCommunity(c *gin.Context) {
	var req service.CommunityRequest
	if !bindJSON(c, &req, "community") {
		return
	}
	item, err := h.catalog.UpdateCommunity(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// DeleteCommunity answers 409 while centers still belong to the community.
func (h *CatalogHandler) DeleteCommunity(c *gin.Context) {
	if err := h.catalog.DeleteCommunity(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListCenters godoc
// @Summary List centers
// @Tags Catalog
// @Param company_id query string false "Owning company"
// @Param community_id query string false "Community the center belongs to"
// @Success 200 {object} response.Envelope
// @Router /centers [get]
func (h *CatalogHandler) ListCenters(c *gin.Context) {
	items, pagination, err := h.catalog.ListCenters(c.Request.Context(), catalogFilter(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

func (h *CatalogHandler) GetCenter(c *gin.Context) {
	item, err := h.catalog.GetCenter(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

func (h *CatalogHandler) CreateCenter(c *gin.Context) {
	var req service.CenterRequest
	if !bindJSON(c, &req, "center") {
		return
	}
	item, err := h.catalog.CreateCenter(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, item)
}

func (h *CatalogHandler) UpdateCenter(c *gin.Context) {
	var req service.CenterRequest
	if !bindJSON(c, &req, "center") {
		return
	}
	item, err := h.catalog.UpdateCenter(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

func (h *CatalogHandler) DeleteCenter(c *gin.Context) {
	if err := h.catalog.DeleteCenter(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListSubjects godoc
// @Summary List subjects
// @Tags Catalog
// @Success 200 {object} response.Envelope
// @Router /subjects [get]
func (h *CatalogHandler) ListSubjects(c *gin.Context) {
	items, pagination, err := h.catalog.ListSubjects(c.Request.Context(), catalogFilter(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

func (h *CatalogHandler) GetSubject(c *gin.Context) {
	item, err := h.catalog.GetSubject(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

func (h *CatalogHandler) CreateSubject(c *gin.Context) {
	var req service.SubjectRequest
	if !bindJSON(c, &req, "subject") {
		return
	}
	item, err := h.catalog.CreateSubject(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, item)
}

func (h *CatalogHandler) DeleteSubject(c *gin.Context) {
	if err := h.catalog.DeleteSubject(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListFormats godoc
// @Summary List course formats
// @Tags Catalog
// @Success 200 {object} response.Envelope
// @Router /formats [get]
func (h *CatalogHandler) ListFormats(c *gin.Context) {
	items, err := h.catalog.ListFormats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

func (h *CatalogHandler) GetFormat(c *gin.Context) {
	item, err := h.catalog.GetFormat(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

func (h *CatalogHandler) CreateFormat(c *gin.Context) {
	var req service.FormatRequest
	if !bindJSON(c, &req, "format") {
		return
	}
	item, err := h.catalog.CreateFormat(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, item)
}

func (h *CatalogHandler) DeleteFormat(c *gin.Context) {
	if err := h.catalog.DeleteFormat(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListCourses godoc
// @Summary List courses
// @Tags Courses
// @Produce json
// @Param subject_id query string false "Subject filter"
// @Param format_id query string false "Format filter"
// @Param active query bool false "Active filter"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /courses [get]
func (h *CatalogHandler) ListCourses(c *gin.Context) {
	items, pagination, err := h.catalog.ListCourses(c.Request.Context(), catalogFilter(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// ListActiveCourses godoc
// @Summary List active courses
// @Tags Courses
// @Success 200 {object} response.Envelope
// @Router /courses/active [get]
func (h *CatalogHandler) ListActiveCourses(c *gin.Context) {
	items, pagination, err := h.catalog.ListActiveCourses(c.Request.Context(), catalogFilter(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// GetCourse godoc
// @Summary Get course
// @Tags Courses
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /courses/{id} [get]
func (h *CatalogHandler) GetCourse(c *gin.Context) {
	item, err := h.catalog.GetCourse(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// CreateCourse godoc
// @Summary Create course
// @Description base_price must be greater than zero
// @Tags Courses
// @Accept json
// @Param payload body service.CourseRequest true "Course"
// @Success 201 {object} response.Envelope
// @Router /courses [post]
func (h *CatalogHandler) CreateCourse(c *gin.Context) {
	var req service.CourseRequest
	if !bindJSON(c, &req, "course") {
		return
	}
	item, err := h.catalog.CreateCourse(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, item)
}

// UpdateCourse godoc
// @Summary Update course
// @Description Price changes do not reprice existing enrollments
// @Tags Courses
// @Accept json
// @Param id path string true "Course ID"
// @Param payload body service.CourseRequest true "Course"
// @Success 200 {object} response.Envelope
// @Router /courses/{id} [put]
func (h *CatalogHandler) UpdateCourse(c *gin.Context) {
	var req service.CourseRequest
	if !bindJSON(c, &req, "course") {
		return
	}
	item, err := h.catalog.UpdateCourse(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// DeleteCourse godoc
// @Summary Delete course
// @Tags Courses
// @Param id path string true "Course ID"
// @Success 204
// @Failure 409 {object} response.Envelope
// @Router /courses/{id} [delete]
func (h *CatalogHandler) DeleteCourse(c *gin.Context) {
	if err := h.catalog.DeleteCourse(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
