package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/academy-manager/academy-api/internal/models"
	appErrors "github.com/academy-manager/academy-api/pkg/errors"
)

type subsidyRepository interface {
	FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.SubsidyEntity, error)
	List(ctx context.Context, filter models.CatalogFilter) ([]models.SubsidyEntity, int, error)
	Create(ctx context.Context, entity *models.SubsidyEntity) error
	Update(ctx context.Context, entity *models.SubsidyEntity) error
	Delete(ctx context.Context, id string) error
}

type SubsidyEntityRequest struct {
	Name         string  `json:"name" validate:"required,max=200"`
	OfficialCode *string `json:"official_code" validate:"omitempty,max=50"`
}

// SubsidyService manages the bodies that co-fund enrollments.
type SubsidyService struct {
	repo      subsidyRepository
	validator *validator.Validate
	logger    *zap.Logger
}

func NewSubsidyService(repo subsidyRepository, validate *validator.Validate, logger *zap.Logger) *SubsidyService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubsidyService{repo: repo, validator: validate, logger: logger}
}

func (s *SubsidyService) Get(ctx context.Context, id string) (*models.SubsidyEntity, error) {
	entity, err := s.repo.FindByID(ctx, nil, id)
	if err != nil {
		return nil, lookupError(err, "subsidy entity", id)
	}
	return entity, nil
}

func (s *SubsidyService) List(ctx context.Context, filter models.CatalogFilter) ([]models.SubsidyEntity, *models.Pagination, error) {
	entities, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list subsidy entities")
	}
	return entities, paginationFor(filter.Page, filter.PageSize, total), nil
}

func (s *SubsidyService) Create(ctx context.Context, req SubsidyEntityRequest) (*models.SubsidyEntity, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid subsidy entity payload")
	}
	entity := &models.SubsidyEntity{Name: req.Name, OfficialCode: req.OfficialCode}
	if err := s.repo.Create(ctx, entity); err != nil {
		return nil, conflictError(err, "subsidy entity", req.Name)
	}
	s.logger.Info("subsidy entity created", zap.String("subsidy_entity_id", entity.ID))
	return entity, nil
}

func (s *SubsidyService) Update(ctx context.Context, id string, req SubsidyEntityRequest) (*models.SubsidyEntity, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid subsidy entity payload")
	}
	entity, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	entity.Name, entity.OfficialCode = req.Name, req.OfficialCode
	if err := s.repo.Update(ctx, entity); err != nil {
		return nil, conflictError(err, "subsidy entity", req.Name)
	}
	return entity, nil
}

// Delete removes an entity. One still referenced by enrollments yields CONFLICT.
func (s *SubsidyService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return conflictError(err, "subsidy entity", id)
	}
	return nil
}
