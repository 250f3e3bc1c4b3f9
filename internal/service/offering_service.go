package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/academy-manager/academy-api/internal/models"
	"github.com/academy-manager/academy-api/pkg/database"
	appErrors "github.com/academy-manager/academy-api/pkg/errors"
	applog "github.com/academy-manager/academy-api/pkg/logger"
)

type offeringRepository interface {
	FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.CourseOffering, error)
	FindDetailByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.OfferingDetail, error)
	List(ctx context.Context, filter models.OfferingFilter) ([]models.OfferingDetail, int, error)
	ListActive(ctx context.Context) ([]models.OfferingDetail, error)
	Create(ctx context.Context, exec sqlx.ExtContext, offering *models.CourseOffering) error
	Update(ctx context.Context, exec sqlx.ExtContext, offering *models.CourseOffering) error
	Delete(ctx context.Context, exec sqlx.ExtContext, id string) error
}

type centerReader interface {
	FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Center, error)
}

type offeringEnrollmentCleaner interface {
	DeleteByOffering(ctx context.Context, exec sqlx.ExtContext, offeringID string) (int64, error)
}

// CreateOfferingRequest schedules a course edition. Code is generated when empty.
type CreateOfferingRequest struct {
	Code      string     `json:"code" validate:"omitempty,max=50"`
	CourseID  string     `json:"course_id" validate:"required"`
	TeacherID string     `json:"teacher_id" validate:"required"`
	CenterID  string     `json:"center_id" validate:"required"`
	StartDate *time.Time `json:"start_date"`
	EndDate   *time.Time `json:"end_date"`
	Active    *bool      `json:"active"`
}

// UpdateOfferingRequest changes an offering. Nil fields keep their value.
type UpdateOfferingRequest struct {
	Code      *string    `json:"code" validate:"omitempty,min=1,max=50"`
	CourseID  *string    `json:"course_id" validate:"omitempty,min=1"`
	TeacherID *string    `json:"teacher_id" validate:"omitempty,min=1"`
	CenterID  *string    `json:"center_id" validate:"omitempty,min=1"`
	StartDate *time.Time `json:"start_date"`
	EndDate   *time.Time `json:"end_date"`
	Active    *bool      `json:"active"`
}

// OfferingService manages course offerings.
type OfferingService struct {
	repo        offeringRepository
	courses     courseReader
	users       userReader
	centers     centerReader
	enrollments offeringEnrollmentCleaner
	tx          txProvider
	cache       *CacheService
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewOfferingService constructs OfferingService.
func NewOfferingService(
	repo offeringRepository,
	courses courseReader,
	users userReader,
	centers centerReader,
	enrollments offeringEnrollmentCleaner,
	tx txProvider,
	cache *CacheService,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
) *OfferingService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OfferingService{
		repo:        repo,
		courses:     courses,
		users:       users,
		centers:     centers,
		enrollments: enrollments,
		tx:          tx,
		cache:       cache,
		metrics:     metrics,
		validator:   validate,
		logger:      logger,
	}
}

// Get returns an offering with course, teacher and center names.
func (s *OfferingService) Get(ctx context.Context, id string) (*models.OfferingDetail, error) {
	detail, err := s.repo.FindDetailByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, offeringNotFound(id)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course offering")
	}
	return detail, nil
}

// List returns offerings with pagination metadata.
func (s *OfferingService) List(ctx context.Context, filter models.OfferingFilter) ([]models.OfferingDetail, *models.Pagination, error) {
	offerings, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list course offerings")
	}
	return offerings, paginationFor(filter.Page, filter.PageSize, total), nil
}

// ListActive returns active offerings, served from cache when possible.
func (s *OfferingService) ListActive(ctx context.Context) ([]models.OfferingDetail, error) {
	var cached []models.OfferingDetail
	if s.cache.Get(ctx, cacheKeyActiveOfferings, &cached) {
		return cached, nil
	}
	offerings, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list active offerings")
	}
	s.cache.Set(ctx, cacheKeyActiveOfferings, offerings, 0)
	return offerings, nil
}

// Create validates and stores a new offering.
func (s *OfferingService) Create(ctx context.Context, req CreateOfferingRequest) (*models.OfferingDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid offering payload")
	}
	if err := ValidateOfferingDates(req.StartDate, req.EndDate); err != nil {
		return nil, err
	}

	generated := req.Code == ""
	var (
		detail *models.OfferingDetail
		err    error
	)
	for attempt := 0; attempt < 2; attempt++ {
		code := req.Code
		if generated {
			code = GenerateOfferingCode()
		}
		detail, err = s.create(ctx, req, code)
		if !generated || !appErrors.HasCode(err, appErrors.ErrDuplicateKey.Code) {
			break
		}
		s.metrics.CodeCollision("offering")
		applog.FromContext(ctx, s.logger).Warn("generated offering code collided", zap.String("code", code), zap.Int("attempt", attempt+1))
	}
	if err != nil {
		return nil, err
	}

	s.cache.InvalidateActiveOfferings(ctx)
	applog.FromContext(ctx, s.logger).Info("course offering created", zap.String("offering_id", detail.ID), zap.String("code", detail.Code))
	return detail, nil
}

func (s *OfferingService) create(ctx context.Context, req CreateOfferingRequest, code string) (*models.OfferingDetail, error) {
	var detail *models.OfferingDetail
	start := time.Now()
	err := database.RunInTx(ctx, s.tx, func(tx *sqlx.Tx) error {
		offering := &models.CourseOffering{
			Code:      code,
			CourseID:  req.CourseID,
			TeacherID: req.TeacherID,
			CenterID:  req.CenterID,
			StartDate: *req.StartDate,
			EndDate:   *req.EndDate,
			Active:    true,
		}
		if req.Active != nil {
			offering.Active = *req.Active
		}
		if err := s.checkReferences(ctx, tx, offering, true); err != nil {
			return err
		}
		if err := s.repo.Create(ctx, tx, offering); err != nil {
			return persistError(err, "offering", code)
		}
		var err error
		detail, err = s.repo.FindDetailByID(ctx, tx, offering.ID)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course offering")
		}
		return nil
	})
	s.metrics.ObserveTransaction("offering.create", err, time.Since(start))
	if err != nil {
		return nil, err
	}
	return detail, nil
}

// Update merges the request into the stored offering. Dates are validated on
// the merged values; the teacher role is checked only when it changes.
func (s *OfferingService) Update(ctx context.Context, id string, req UpdateOfferingRequest) (*models.OfferingDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid offering payload")
	}

	var detail *models.OfferingDetail
	start := time.Now()
	err := database.RunInTx(ctx, s.tx, func(tx *sqlx.Tx) error {
		offering, err := s.repo.FindByID(ctx, tx, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return offeringNotFound(id)
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course offering")
		}

		teacherChanged := req.TeacherID != nil && *req.TeacherID != offering.TeacherID
		if req.Code != nil {
			offering.Code = *req.Code
		}
		if req.CourseID != nil {
			offering.CourseID = *req.CourseID
		}
		if req.TeacherID != nil {
			offering.TeacherID = *req.TeacherID
		}
		if req.CenterID != nil {
			offering.CenterID = *req.CenterID
		}
		if req.StartDate != nil {
			offering.StartDate = *req.StartDate
		}
		if req.EndDate != nil {
			offering.EndDate = *req.EndDate
		}
		if req.Active != nil {
			offering.Active = *req.Active
		}

		if err := ValidateOfferingDates(&offering.StartDate, &offering.EndDate); err != nil {
			return err
		}
		if err := s.checkReferences(ctx, tx, offering, teacherChanged); err != nil {
			return err
		}
		if err := s.repo.Update(ctx, tx, offering); err != nil {
			return persistError(err, "offering", offering.Code)
		}
		detail, err = s.repo.FindDetailByID(ctx, tx, id)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course offering")
		}
		return nil
	})
	s.metrics.ObserveTransaction("offering.update", err, time.Since(start))
	if err != nil {
		return nil, err
	}

	s.cache.InvalidateActiveOfferings(ctx)
	applog.FromContext(ctx, s.logger).Info("course offering updated", zap.String("offering_id", id))
	return detail, nil
}

// Delete removes an offering together with its enrollments.
func (s *OfferingService) Delete(ctx context.Context, id string) error {
	var removed int64
	start := time.Now()
	err := database.RunInTx(ctx, s.tx, func(tx *sqlx.Tx) error {
		if _, err := s.repo.FindByID(ctx, tx, id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return offeringNotFound(id)
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course offering")
		}
		var err error
		removed, err = s.enrollments.DeleteByOffering(ctx, tx, id)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete offering enrollments")
		}
		if err := s.repo.Delete(ctx, tx, id); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete course offering")
		}
		return nil
	})
	s.metrics.ObserveTransaction("offering.delete", err, time.Since(start))
	if err != nil {
		return err
	}

	s.cache.InvalidateActiveOfferings(ctx)
	applog.FromContext(ctx, s.logger).Info("course offering deleted", zap.String("offering_id", id), zap.Int64("enrollments_removed", removed))
	return nil
}

func (s *OfferingService) checkReferences(ctx context.Context, tx sqlx.ExtContext, offering *models.CourseOffering, checkTeacher bool) error {
	if _, err := s.courses.FindByID(ctx, tx, offering.CourseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("course not found: %s", offering.CourseID))
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	if checkTeacher {
		teacher, err := loadUser(ctx, s.users, tx, offering.TeacherID)
		if err != nil {
			return err
		}
		if err := ValidateTeacherAssignment(teacher); err != nil {
			return err
		}
	}
	if _, err := s.centers.FindByID(ctx, tx, offering.CenterID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("center not found: %s", offering.CenterID))
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load center")
	}
	return nil
}

func offeringNotFound(id string) error {
	return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("course offering not found: %s", id))
}
