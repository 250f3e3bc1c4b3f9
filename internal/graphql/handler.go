package graphql

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	gql "github.com/graphql-go/graphql"
	"go.uber.org/zap"

	"github.com/academy-manager/academy-api/internal/middleware"
	appErrors "github.com/academy-manager/academy-api/pkg/errors"
)

type request struct {
	Query         string                 `json:"query"`
	Variables     map[string]interface{} `json:"variables"`
	OperationName string                 `json:"operationName"`
}

// Handler executes GraphQL requests against the schema.
type Handler struct {
	schema gql.Schema
	logger *zap.Logger
}

// NewHandler constructs Handler.
func NewHandler(schema gql.Schema, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{schema: schema, logger: logger.Named("graphql")}
}

// Serve godoc
// @Summary GraphQL endpoint
// @Description Enrollment and offering queries plus enrollment mutations
// @Tags GraphQL
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /graphql [post]
func (h *Handler) Serve(c *gin.Context) {
	var req request
	if c.Request.Method == http.MethodGet {
		req.Query = c.Query("query")
		req.OperationName = c.Query("operationName")
		if raw := c.Query("variables"); raw != "" {
			if err := json.Unmarshal([]byte(raw), &req.Variables); err != nil {
				badRequest(c, "variables must be a JSON object")
				return
			}
		}
	} else if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid GraphQL request body")
		return
	}
	if req.Query == "" {
		badRequest(c, "query is required")
		return
	}

	ctx := c.Request.Context()
	if claims, ok := middleware.CurrentUser(c); ok {
		ctx = WithClaims(ctx, claims)
	}

	result := gql.Do(gql.Params{
		Schema:         h.schema,
		RequestString:  req.Query,
		VariableValues: req.Variables,
		OperationName:  req.OperationName,
		Context:        ctx,
	})
	if result.HasErrors() {
		h.logger.Debug("graphql errors", zap.Int("count", len(result.Errors)), zap.String("operation", req.OperationName))
	}
	c.JSON(http.StatusOK, result)
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"errors": []gin.H{{
		"message":    message,
		"extensions": gin.H{"code": appErrors.ErrValidation.Code, "status": http.StatusBadRequest},
	}}})
}
