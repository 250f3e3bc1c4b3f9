package handler

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/academy-manager/academy-api/internal/middleware"
	"github.com/academy-manager/academy-api/internal/models"
	"github.com/academy-manager/academy-api/pkg/config"
	"github.com/academy-manager/academy-api/pkg/logger"
	corsmiddleware "github.com/academy-manager/academy-api/pkg/middleware/cors"
	reqidmiddleware "github.com/academy-manager/academy-api/pkg/middleware/requestid"
)

// Handlers groups every REST handler the router mounts. GraphQL is optional.
type Handlers struct {
	Auth        *AuthHandler
	Users       *UserHandler
	Catalog     *CatalogHandler
	Offerings   *OfferingHandler
	Enrollments *EnrollmentHandler
	Subsidies   *SubsidyHandler
	Grades      *GradeHandler
	Invoices    *InvoiceHandler
	Metrics     *MetricsHandler
	GraphQL     gin.HandlerFunc
}

// NewRouter builds the gin engine with global middleware and all routes.
func NewRouter(cfg *config.Config, h Handlers, tokens middleware.TokenValidator, observer middleware.RequestObserver, logr *zap.Logger) *gin.Engine {
	if logr == nil {
		logr = zap.NewNop()
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS))
	r.Use(middleware.Metrics(observer))

	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Ready)
	if cfg.Metrics.Enabled {
		r.GET("/metrics", h.Metrics.Prometheus)
	}
	if cfg.Docs.Enabled && cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}
	if cfg.GraphQL.Enabled && h.GraphQL != nil {
		path := cfg.GraphQL.Path
		if path == "" {
			path = "/graphql"
		}
		// resolvers enforce roles themselves; anonymous callers get no claims
		r.POST(path, middleware.OptionalJWT(tokens), h.GraphQL)
		r.GET(path, middleware.OptionalJWT(tokens), h.GraphQL)
	}

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/register", h.Auth.Register)
	api.POST("/auth/login", h.Auth.Login)

	secured := api.Group("")
	secured.Use(middleware.JWT(tokens), middleware.Audit(logr))

	staff := middleware.RequireRoles(models.RoleAdmin, models.RoleAdministrativeStaff)
	staffOrTeacher := middleware.RequireRoles(models.RoleAdmin, models.RoleAdministrativeStaff, models.RoleTeacher)
	graders := middleware.RequireRoles(models.RoleAdmin, models.RoleTeacher)

	secured.GET("/auth/me", h.Auth.Me)

	users := secured.Group("/users")
	users.GET("", staff, h.Users.List)
	users.POST("", staff, h.Users.Create)
	users.GET("/:id", middleware.RBAC(string(models.RoleAdmin), string(models.RoleAdministrativeStaff), middleware.Self), h.Users.Get)
	users.PUT("/:id", staff, h.Users.Update)
	users.DELETE("/:id", staff, h.Users.Delete)
	users.GET("/:id/personal-data", middleware.RBAC(string(models.RoleAdmin), string(models.RoleAdministrativeStaff), middleware.Self), h.Users.GetPersonalData)
	users.PUT("/:id/personal-data", staff, h.Users.UpsertPersonalData)

	companies := secured.Group("/companies")
	companies.GET("", h.Catalog.ListCompanies)
	companies.GET("/:id", h.Catalog.GetCompany)
	companies.POST("", staff, h.Catalog.CreateCompany)
	companies.PUT("/:id", staff, h.Catalog.UpdateCompany)
	companies.DELETE("/:id", staff, h.Catalog.DeleteCompany)

	communities := secured.Group("/communities")
	communities.GET("", h.Catalog.ListCommunities)
	communities.GET("/:id", h.Catalog.GetCommunity)
	communities.POST("", staff, h.Catalog.CreateCommunity)
	communities.PUT("/:id", staff, h.Catalog.UpdateCommunity)
	communities.DELETE("/:id", staff, h.Catalog.DeleteCommunity)

	centers := secured.Group("/centers")
	centers.GET("", h.Catalog.ListCenters)
	centers.GET("/:id", h.Catalog.GetCenter)
	centers.POST("", staff, h.Catalog.CreateCenter)
	centers.PUT("/:id", staff, h.Catalog.UpdateCenter)
	centers.DELETE("/:id", staff, h.Catalog.DeleteCenter)

	subjects := secured.Group("/subjects")
	subjects.GET("", h.Catalog.ListSubjects)
	subjects.GET("/:id", h.Catalog.GetSubject)
	subjects.POST("", staff, h.Catalog.CreateSubject)
	subjects.DELETE("/:id", staff, h.Catalog.DeleteSubject)

	formats := secured.Group("/formats")
	formats.GET("", h.Catalog.ListFormats)
	formats.GET("/:id", h.Catalog.GetFormat)
	formats.POST("", staff, h.Catalog.CreateFormat)
	formats.DELETE("/:id", staff, h.Catalog.DeleteFormat)

	courses := secured.Group("/courses")
	courses.GET("", h.Catalog.ListCourses)
	courses.GET("/active", h.Catalog.ListActiveCourses)
	courses.GET("/:id", h.Catalog.GetCourse)
	courses.POST("", staff, h.Catalog.CreateCourse)
	courses.PUT("/:id", staff, h.Catalog.UpdateCourse)
	courses.DELETE("/:id", staff, h.Catalog.DeleteCourse)

	offerings := secured.Group("/offerings")
	offerings.GET("", h.Offerings.List)
	offerings.GET("/active", h.Offerings.ListActive)
	offerings.GET("/:id", h.Offerings.Get)
	offerings.POST("", staff, h.Offerings.Create)
	offerings.PUT("/:id", staff, h.Offerings.Update)
	offerings.DELETE("/:id", staff, h.Offerings.Delete)

	subsidies := secured.Group("/subsidy-entities")
	subsidies.GET("", h.Subsidies.List)
	subsidies.GET("/:id", h.Subsidies.Get)
	subsidies.POST("", staff, h.Subsidies.Create)
	subsidies.PUT("/:id", staff, h.Subsidies.Update)
	subsidies.DELETE("/:id", staff, h.Subsidies.Delete)

	enrollments := secured.Group("/enrollments")
	enrollments.GET("", staffOrTeacher, h.Enrollments.List)
	enrollments.GET("/:id", staffOrTeacher, h.Enrollments.Get)
	enrollments.POST("", staff, h.Enrollments.Create)
	enrollments.PUT("/:id", staff, h.Enrollments.Update)
	enrollments.DELETE("/:id", staff, h.Enrollments.Delete)
	enrollments.GET("/:id/grades", staffOrTeacher, h.Grades.List)
	enrollments.POST("/:id/grades", graders, h.Grades.Create)
	enrollments.GET("/:id/invoices", staff, h.Invoices.List)
	enrollments.POST("/:id/invoices", staff, h.Invoices.Create)

	secured.GET("/students/:id/enrollments",
		middleware.RBAC(string(models.RoleAdmin), string(models.RoleAdministrativeStaff), string(models.RoleTeacher), middleware.Self),
		h.Enrollments.ListByStudent)

	secured.PUT("/grades/:id", graders, h.Grades.Update)
	secured.DELETE("/grades/:id", graders, h.Grades.Delete)
	secured.GET("/invoices/:id", staff, h.Invoices.Get)

	return r
}
