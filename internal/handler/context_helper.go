package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/academy-manager/academy-api/internal/middleware"
	"github.com/academy-manager/academy-api/internal/models"
	appErrors "github.com/academy-manager/academy-api/pkg/errors"
	"github.com/academy-manager/academy-api/pkg/response"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	claims, ok := middleware.CurrentUser(c)
	if !ok {
		return nil
	}
	return claims
}

// bindJSON decodes the body into dest and writes a validation error on failure.
func bindJSON(c *gin.Context, dest interface{}, what string) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid "+what+" payload"))
		return false
	}
	return true
}

func pageParams(c *gin.Context) (page, size int) {
	if v, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		page = v
	}
	if v, err := strconv.Atoi(c.DefaultQuery("page_size", "20")); err == nil {
		size = v
	}
	return page, size
}

func boolQuery(c *gin.Context, key string) *bool {
	raw := c.Query(key)
	if raw == "" {
		return nil
	}
	val, err := strconv.ParseBool(raw)
	if err != nil {
		return nil
	}
	return &val
}

func catalogFilter(c *gin.Context) models.CatalogFilter {
	filter := models.CatalogFilter{
		Search:      strings.TrimSpace(c.Query("search")),
		Active:      boolQuery(c, "active"),
		CompanyID:   c.Query("company_id"),
		CommunityID: c.Query("community_id"),
		SubjectID:   c.Query("subject_id"),
		FormatID:    c.Query("format_id"),
		SortBy:      c.Query("sort_by"),
		SortOrder:   c.Query("sort_order"),
	}
	filter.Page, filter.PageSize = pageParams(c)
	return filter
}
