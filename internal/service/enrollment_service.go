package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/academy-manager/academy-api/internal/models"
	"github.com/academy-manager/academy-api/internal/repository"
	"github.com/academy-manager/academy-api/pkg/database"
	appErrors "github.com/academy-manager/academy-api/pkg/errors"
	applog "github.com/academy-manager/academy-api/pkg/logger"
)

type enrollmentRepository interface {
	FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Enrollment, error)
	FindDetailByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.EnrollmentDetail, error)
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error)
	Create(ctx context.Context, exec sqlx.ExtContext, enrollment *models.Enrollment) error
	Update(ctx context.Context, exec sqlx.ExtContext, enrollment *models.Enrollment) error
	Delete(ctx context.Context, exec sqlx.ExtContext, id string) error
}

type offeringReader interface {
	FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.CourseOffering, error)
}

type courseReader interface {
	FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Course, error)
}

type userReader interface {
	FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.User, error)
}

type subsidyReader interface {
	FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.SubsidyEntity, error)
}

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

// CreateEnrollmentRequest registers a student into an offering. Code is
// generated when empty.
type CreateEnrollmentRequest struct {
	Code             string           `json:"code" validate:"omitempty,max=50"`
	OfferingID       string           `json:"offering_id" validate:"required"`
	StudentID        string           `json:"student_id" validate:"required"`
	SubsidyEntityID  *string          `json:"subsidy_entity_id"`
	SubsidizedAmount *decimal.Decimal `json:"subsidized_amount"`
}

// UpdateEnrollmentRequest changes an enrollment. Nil fields keep their value;
// an empty SubsidyEntityID detaches the subsidy entity.
type UpdateEnrollmentRequest struct {
	Code             *string               `json:"code" validate:"omitempty,min=1,max=50"`
	OfferingID       *string               `json:"offering_id" validate:"omitempty,min=1"`
	SubsidyEntityID  *string               `json:"subsidy_entity_id"`
	SubsidizedAmount *decimal.Decimal      `json:"subsidized_amount"`
	PaymentStatus    *models.PaymentStatus `json:"payment_status"`
}

// EnrollmentService runs the enrollment lifecycle. Each mutation is a single
// transaction covering lookups, eligibility, pricing and the write.
type EnrollmentService struct {
	repo      enrollmentRepository
	offerings offeringReader
	courses   courseReader
	users     userReader
	subsidies subsidyReader
	pricing   *PricingEngine
	tx        txProvider
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewEnrollmentService constructs EnrollmentService.
func NewEnrollmentService(
	repo enrollmentRepository,
	offerings offeringReader,
	courses courseReader,
	users userReader,
	subsidies subsidyReader,
	pricing *PricingEngine,
	tx txProvider,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{
		repo:      repo,
		offerings: offerings,
		courses:   courses,
		users:     users,
		subsidies: subsidies,
		pricing:   pricing,
		tx:        tx,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
	}
}

// Get returns an enrollment view.
func (s *EnrollmentService) Get(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	detail, err := s.repo.FindDetailByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, enrollmentNotFound(id)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	return detail, nil
}

// List returns enrollments with pagination metadata.
func (s *EnrollmentService) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, *models.Pagination, error) {
	if filter.PaymentStatus != "" && !filter.PaymentStatus.Valid() {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown payment status: %s", filter.PaymentStatus))
	}
	enrollments, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	return enrollments, paginationFor(filter.Page, filter.PageSize, total), nil
}

// ListByStudent returns every enrollment of a student.
func (s *EnrollmentService) ListByStudent(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error) {
	enrollments, err := s.repo.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list student enrollments")
	}
	return enrollments, nil
}

// Create enrolls a student into an offering. When the server generated the
// code and it collides, a fresh code is tried once more in a new transaction.
func (s *EnrollmentService) Create(ctx context.Context, req CreateEnrollmentRequest) (*models.EnrollmentDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}
	if err := validateAmount("subsidized_amount", req.SubsidizedAmount); err != nil {
		return nil, err
	}

	generated := req.Code == ""
	var (
		detail *models.EnrollmentDetail
		err    error
	)
	for attempt := 0; attempt < 2; attempt++ {
		code := req.Code
		if generated {
			code = GenerateEnrollmentCode()
		}
		detail, err = s.create(ctx, req, code)
		if !generated || !appErrors.HasCode(err, appErrors.ErrDuplicateKey.Code) {
			break
		}
		s.metrics.CodeCollision("enrollment")
		applog.FromContext(ctx, s.logger).Warn("generated enrollment code collided", zap.String("code", code), zap.Int("attempt", attempt+1))
	}
	if err != nil {
		return nil, err
	}

	s.metrics.EnrollmentCreated(detail.DiscountReason)
	applog.FromContext(ctx, s.logger).Info("enrollment created",
		zap.String("enrollment_id", detail.ID),
		zap.String("code", detail.Code),
		zap.String("student_id", detail.StudentID),
		zap.String("offering_id", detail.OfferingID),
		zap.String("discount_reason", detail.DiscountReason),
	)
	return detail, nil
}

func (s *EnrollmentService) create(ctx context.Context, req CreateEnrollmentRequest, code string) (*models.EnrollmentDetail, error) {
	var detail *models.EnrollmentDetail
	start := time.Now()
	err := database.RunInTx(ctx, s.tx, func(tx *sqlx.Tx) error {
		offering, err := s.loadOffering(ctx, tx, req.OfferingID)
		if err != nil {
			return err
		}
		student, err := loadUser(ctx, s.users, tx, req.StudentID)
		if err != nil {
			return err
		}
		if err := ValidateStudentAssignment(student); err != nil {
			return err
		}

		enrollment := &models.Enrollment{
			Code:          code,
			OfferingID:    offering.ID,
			StudentID:     student.ID,
			PaymentStatus: models.PaymentStatusPending,
		}
		if req.SubsidyEntityID != nil && *req.SubsidyEntityID != "" {
			if err := s.ensureSubsidy(ctx, tx, *req.SubsidyEntityID); err != nil {
				return err
			}
			enrollment.SubsidyEntityID = req.SubsidyEntityID
		}
		if req.SubsidizedAmount != nil {
			enrollment.SubsidizedAmount = *req.SubsidizedAmount
		}

		if err := s.price(ctx, tx, enrollment, offering); err != nil {
			return err
		}
		if err := s.repo.Create(ctx, tx, enrollment); err != nil {
			return persistError(err, "enrollment", code)
		}
		detail, err = s.repo.FindDetailByID(ctx, tx, enrollment.ID)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment detail")
		}
		return nil
	})
	s.metrics.ObserveTransaction("enrollment.create", err, time.Since(start))
	if err != nil {
		return nil, err
	}
	return detail, nil
}

// Update applies the request and prices the enrollment again, since the
// offering's course price or the student's personal data may have changed.
func (s *EnrollmentService) Update(ctx context.Context, id string, req UpdateEnrollmentRequest) (*models.EnrollmentDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}
	if err := validateAmount("subsidized_amount", req.SubsidizedAmount); err != nil {
		return nil, err
	}
	if req.PaymentStatus != nil && !req.PaymentStatus.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown payment status: %s", *req.PaymentStatus))
	}

	var detail *models.EnrollmentDetail
	start := time.Now()
	err := database.RunInTx(ctx, s.tx, func(tx *sqlx.Tx) error {
		enrollment, err := s.repo.FindByID(ctx, tx, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return enrollmentNotFound(id)
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
		}

		offeringID := enrollment.OfferingID
		if req.OfferingID != nil {
			offeringID = *req.OfferingID
		}
		offering, err := s.loadOffering(ctx, tx, offeringID)
		if err != nil {
			return err
		}
		enrollment.OfferingID = offering.ID

		if req.SubsidyEntityID != nil {
			if *req.SubsidyEntityID == "" {
				enrollment.SubsidyEntityID = nil
			} else {
				if err := s.ensureSubsidy(ctx, tx, *req.SubsidyEntityID); err != nil {
					return err
				}
				subsidyID := *req.SubsidyEntityID
				enrollment.SubsidyEntityID = &subsidyID
			}
		}
		if req.SubsidizedAmount != nil {
			enrollment.SubsidizedAmount = *req.SubsidizedAmount
		}
		if req.Code != nil {
			enrollment.Code = *req.Code
		}
		if req.PaymentStatus != nil {
			enrollment.PaymentStatus = *req.PaymentStatus
		}

		if err := s.price(ctx, tx, enrollment, offering); err != nil {
			return err
		}
		if err := s.repo.Update(ctx, tx, enrollment); err != nil {
			return persistError(err, "enrollment", enrollment.Code)
		}
		detail, err = s.repo.FindDetailByID(ctx, tx, enrollment.ID)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment detail")
		}
		return nil
	})
	s.metrics.ObserveTransaction("enrollment.update", err, time.Since(start))
	if err != nil {
		return nil, err
	}

	s.metrics.EnrollmentRepriced(detail.DiscountReason)
	applog.FromContext(ctx, s.logger).Info("enrollment updated", zap.String("enrollment_id", id), zap.String("payment_status", string(detail.PaymentStatus)))
	return detail, nil
}

// Delete removes an enrollment. Its grades and invoices go with it.
func (s *EnrollmentService) Delete(ctx context.Context, id string) error {
	start := time.Now()
	err := database.RunInTx(ctx, s.tx, func(tx *sqlx.Tx) error {
		if _, err := s.repo.FindByID(ctx, tx, id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return enrollmentNotFound(id)
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
		}
		if err := s.repo.Delete(ctx, tx, id); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete enrollment")
		}
		return nil
	})
	s.metrics.ObserveTransaction("enrollment.delete", err, time.Since(start))
	if err != nil {
		return err
	}
	applog.FromContext(ctx, s.logger).Info("enrollment deleted", zap.String("enrollment_id", id))
	return nil
}

func (s *EnrollmentService) price(ctx context.Context, tx sqlx.ExtContext, enrollment *models.Enrollment, offering *models.CourseOffering) error {
	course, err := s.courses.FindByID(ctx, tx, offering.CourseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("course not found: %s", offering.CourseID))
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	result, err := s.pricing.Compute(ctx, tx, enrollment, course)
	if err != nil {
		return err
	}
	result.Apply(enrollment)
	return nil
}

func (s *EnrollmentService) loadOffering(ctx context.Context, tx sqlx.ExtContext, id string) (*models.CourseOffering, error) {
	offering, err := s.offerings.FindByID(ctx, tx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("course offering not found: %s", id))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course offering")
	}
	return offering, nil
}

func (s *EnrollmentService) ensureSubsidy(ctx context.Context, tx sqlx.ExtContext, id string) error {
	if _, err := s.subsidies.FindByID(ctx, tx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("subsidy entity not found: %s", id))
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subsidy entity")
	}
	return nil
}

func loadUser(ctx context.Context, users userReader, tx sqlx.ExtContext, id string) (*models.User, error) {
	user, err := users.FindByID(ctx, tx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("user not found: %s", id))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	return user, nil
}

func enrollmentNotFound(id string) error {
	return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("enrollment not found: %s", id))
}

// persistError turns a unique violation into DUPLICATE_KEY naming the code.
func persistError(err error, entity, code string) error {
	if errors.Is(err, repository.ErrDuplicateKey) {
		return appErrors.Wrap(err, appErrors.ErrDuplicateKey.Code, appErrors.ErrDuplicateKey.Status,
			fmt.Sprintf("%s code already exists: %s", entity, code))
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, fmt.Sprintf("failed to save %s", entity))
}

func validateAmount(field string, amount *decimal.Decimal) error {
	if amount != nil && amount.IsNegative() {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s must not be negative", field))
	}
	return nil
}

func paginationFor(page, size, total int) *models.Pagination {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	return &models.Pagination{Page: page, PageSize: size, TotalCount: total}
}
