package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/academy-manager/academy-api/internal/models"
	appErrors "github.com/academy-manager/academy-api/pkg/errors"
)

type gradeRepository interface {
	FindByID(ctx context.Context, id string) (*models.Grade, error)
	ListByEnrollment(ctx context.Context, enrollmentID string) ([]models.Grade, error)
	Create(ctx context.Context, grade *models.Grade) error
	Update(ctx context.Context, grade *models.Grade) error
	Delete(ctx context.Context, id string) error
}

type enrollmentLookup interface {
	FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Enrollment, error)
}

var maxScore = decimal.NewFromInt(10)

// GradeRequest carries a score between 0 and 10.
type GradeRequest struct {
	Score    decimal.Decimal `json:"score"`
	Comments *string         `json:"comments" validate:"omitempty,max=1000"`
}

// GradeService records scores against enrollments.
type GradeService struct {
	repo        gradeRepository
	enrollments enrollmentLookup
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewGradeService constructs GradeService.
func NewGradeService(repo gradeRepository, enrollments enrollmentLookup, validate *validator.Validate, logger *zap.Logger) *GradeService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GradeService{repo: repo, enrollments: enrollments, validator: validate, logger: logger}
}

// ListByEnrollment returns the grades of an enrollment.
func (s *GradeService) ListByEnrollment(ctx context.Context, enrollmentID string) ([]models.Grade, error) {
	if err := requireEnrollment(ctx, s.enrollments, enrollmentID); err != nil {
		return nil, err
	}
	grades, err := s.repo.ListByEnrollment(ctx, enrollmentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list grades")
	}
	return grades, nil
}

// Create records a new grade.
func (s *GradeService) Create(ctx context.Context, enrollmentID string, req GradeRequest) (*models.Grade, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	if err := requireEnrollment(ctx, s.enrollments, enrollmentID); err != nil {
		return nil, err
	}
	grade := &models.Grade{EnrollmentID: enrollmentID, Score: req.Score, Comments: req.Comments}
	if err := s.repo.Create(ctx, grade); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save grade")
	}
	s.logger.Info("grade recorded", zap.String("grade_id", grade.ID), zap.String("enrollment_id", enrollmentID))
	return grade, nil
}

// Update changes the score and comments of a grade.
func (s *GradeService) Update(ctx context.Context, id string, req GradeRequest) (*models.Grade, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	grade, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	grade.Score, grade.Comments = req.Score, req.Comments
	if err := s.repo.Update(ctx, grade); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update grade")
	}
	return grade, nil
}

// Delete removes a grade.
func (s *GradeService) Delete(ctx context.Context, id string) error {
	if _, err := s.get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete grade")
	}
	return nil
}

func (s *GradeService) get(ctx context.Context, id string) (*models.Grade, error) {
	grade, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "grade", id)
	}
	return grade, nil
}

func (s *GradeService) validate(req GradeRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grade payload")
	}
	if req.Score.IsNegative() || req.Score.GreaterThan(maxScore) {
		return appErrors.Clone(appErrors.ErrValidation, "score must be between 0 and 10")
	}
	return nil
}

func requireEnrollment(ctx context.Context, enrollments enrollmentLookup, id string) error {
	if _, err := enrollments.FindByID(ctx, nil, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return enrollmentNotFound(id)
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, fmt.Sprintf("failed to load enrollment %s", id))
	}
	return nil
}
