package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	_ "github.com/academy-manager/academy-api/api/swagger"
	"github.com/academy-manager/academy-api/internal/graphql"
	"github.com/academy-manager/academy-api/internal/handler"
	"github.com/academy-manager/academy-api/internal/repository"
	"github.com/academy-manager/academy-api/internal/service"
	"github.com/academy-manager/academy-api/pkg/cache"
	"github.com/academy-manager/academy-api/pkg/config"
	"github.com/academy-manager/academy-api/pkg/database"
	"github.com/academy-manager/academy-api/pkg/logger"
)

// @title Academy API
// @version 1.0.0
// @description Enrollment pricing and eligibility for a training academy
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()
	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("database unavailable", zap.Error(err))
	}
	defer db.Close()

	var redisClient *redis.Client
	if cfg.Cache.Enabled {
		redisClient, err = cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, catalog cache disabled", zap.Error(err))
			redisClient = nil
		}
	}

	users := repository.NewUserRepository(db)
	personalData := repository.NewPersonalDataRepository(db)
	companies := repository.NewCompanyRepository(db)
	communities := repository.NewCommunityRepository(db)
	centers := repository.NewCenterRepository(db)
	subjects := repository.NewSubjectRepository(db)
	formats := repository.NewFormatRepository(db)
	courses := repository.NewCourseRepository(db)
	offerings := repository.NewOfferingRepository(db)
	enrollments := repository.NewEnrollmentRepository(db)
	subsidies := repository.NewSubsidyRepository(db)
	grades := repository.NewGradeRepository(db)
	invoices := repository.NewInvoiceRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	validate := validator.New()
	metrics := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Cache.CatalogTTL, logr, cfg.Cache.Enabled && redisClient != nil)
	pricing := service.NewPricingEngine(personalData, logr)

	authSvc := service.NewAuthService(users, personalData, db, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})
	userSvc := service.NewUserService(users, personalData, validate, logr)
	catalogSvc := service.NewCatalogService(service.CatalogRepositories{
		Companies:   companies,
		Communities: communities,
		Centers:     centers,
		Subjects:    subjects,
		Formats:     formats,
		Courses:     courses,
	}, cacheSvc, validate, logr)
	offeringSvc := service.NewOfferingService(offerings, courses, users, centers, enrollments, db, cacheSvc, metrics, validate, logr)
	enrollmentSvc := service.NewEnrollmentService(enrollments, offerings, courses, users, subsidies, pricing, db, metrics, validate, logr)
	subsidySvc := service.NewSubsidyService(subsidies, validate, logr)
	gradeSvc := service.NewGradeService(grades, enrollments, validate, logr)
	invoiceSvc := service.NewInvoiceService(invoices, enrollments, validate, logr)

	readiness := map[string]handler.ReadinessCheck{
		"database": db.PingContext,
		"cache":    cacheRepo.Ping,
	}
	handlers := handler.Handlers{
		Auth:        handler.NewAuthHandler(authSvc),
		Users:       handler.NewUserHandler(userSvc),
		Catalog:     handler.NewCatalogHandler(catalogSvc),
		Offerings:   handler.NewOfferingHandler(offeringSvc),
		Enrollments: handler.NewEnrollmentHandler(enrollmentSvc),
		Subsidies:   handler.NewSubsidyHandler(subsidySvc),
		Grades:      handler.NewGradeHandler(gradeSvc),
		Invoices:    handler.NewInvoiceHandler(invoiceSvc),
		Metrics:     handler.NewMetricsHandler(metrics, readiness),
	}
	if cfg.GraphQL.Enabled {
		schema, err := graphql.NewSchema(enrollmentSvc, offeringSvc)
		if err != nil {
			logr.Fatal("graphql schema invalid", zap.Error(err))
		}
		handlers.GraphQL = graphql.NewHandler(schema, logr).Serve
	}

	router := handler.NewRouter(cfg, handlers, authSvc, metrics, logr)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	logr.Info("shutting down HTTP server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
	if redisClient != nil {
		_ = cacheRepo.Close()
	}
}
