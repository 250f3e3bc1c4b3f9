package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/academy-manager/academy-api/internal/service"
	"github.com/academy-manager/academy-api/pkg/response"
)

// GradeHandler exposes grade endpoints nested under enrollments.
type GradeHandler struct {
	grades *service.GradeService
}

// NewGradeHandler constructs GradeHandler.
func NewGradeHandler(grades *service.GradeService) *GradeHandler {
	return &GradeHandler{grades: grades}
}

// List godoc
// @Summary List grades of an enrollment
// @Tags Grades
// @Param id path string true "Enrollment ID"
// @Success 200 {object} response.Envelope
// @Router /enrollments/{id}/grades [get]
func (h *GradeHandler) List(c *gin.Context) {
	grades, err := h.grades.ListByEnrollment(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, grades, nil)
}

// Create godoc
// @Summary Grade an enrollment
// @Description score must lie within 0 and 10
// @Tags Grades
// @Accept json
// @Param id path string true "Enrollment ID"
// @Param payload body service.GradeRequest true "Grade"
// @Success 201 {object} response.Envelope
// @Router /enrollments/{id}/grades [post]
func (h *GradeHandler) Create(c *gin.Context) {
	var req service.GradeRequest
	if !bindJSON(c, &req, "grade") {
		return
	}
	grade, err := h.grades.Create(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, grade)
}

func (h *GradeHandler) Update(c *gin.Context) {
	var req service.GradeRequest
	if !bindJSON(c, &req, "grade") {
		return
	}
	grade, err := h.grades.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, grade, nil)
}

func (h *GradeHandler) Delete(c *gin.Context) {
	if err := h.grades.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
