package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/academy-manager/academy-api/internal/models"
	"github.com/academy-manager/academy-api/internal/repository"
	appErrors "github.com/academy-manager/academy-api/pkg/errors"
)

type userRepository interface {
	List(ctx context.Context, filter models.UserFilter) ([]models.UserDetail, int, error)
	FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.User, error)
	FindDetailByID(ctx context.Context, id string) (*models.UserDetail, error)
	EmailExists(ctx context.Context, email, excludeID string) (bool, error)
	Create(ctx context.Context, exec sqlx.ExtContext, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id string) error
}

type personalDataRepository interface {
	FindByUserID(ctx context.Context, exec sqlx.ExtContext, userID string) (*models.PersonalData, error)
	Upsert(ctx context.Context, exec sqlx.ExtContext, data *models.PersonalData) error
}

var maxDisabilityPercentage = decimal.NewFromInt(100)

// CreateUserRequest represents payload for creating users.
type CreateUserRequest struct {
	Email    string          `json:"email" validate:"required,email"`
	Role     models.UserRole `json:"role" validate:"required,oneof=ADMIN TEACHER STUDENT ADMINISTRATIVE_STAFF"`
	Active   *bool           `json:"active"`
	Password string          `json:"password" validate:"required,min=6"`
}

// UpdateUserRequest payload for updating users. An empty password keeps the current one.
type UpdateUserRequest struct {
	Email    string          `json:"email" validate:"required,email"`
	Role     models.UserRole `json:"role" validate:"required,oneof=ADMIN TEACHER STUDENT ADMINISTRATIVE_STAFF"`
	Active   *bool           `json:"active"`
	Password string          `json:"password" validate:"omitempty,min=6"`
}

// PersonalDataRequest replaces the personal data of a user.
type PersonalDataRequest struct {
	FirstName            string           `json:"first_name" validate:"required,max=100"`
	LastName             string           `json:"last_name" validate:"required,max=150"`
	NationalID           string           `json:"national_id" validate:"required,max=20"`
	Phone                *string          `json:"phone" validate:"omitempty,max=20"`
	Address              *string          `json:"address" validate:"omitempty,max=300"`
	DisabilityPercentage *decimal.Decimal `json:"disability_percentage"`
	LargeFamily          bool             `json:"large_family"`
}

// UserService handles user management workflows.
type UserService struct {
	repo         userRepository
	personalData personalDataRepository
	validator    *validator.Validate
	logger       *zap.Logger
}

// NewUserService creates an instance of UserService.
func NewUserService(repo userRepository, personalData personalDataRepository, validate *validator.Validate, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &UserService{repo: repo, personalData: personalData, validator: validate, logger: logger}
}

// List returns paginated users and pagination metadata.
func (s *UserService) List(ctx context.Context, filter models.UserFilter) ([]models.UserDetail, *models.Pagination, error) {
	if filter.Role != nil && !filter.Role.Valid() {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown role: %s", *filter.Role))
	}
	users, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list users")
	}
	return users, paginationFor(filter.Page, filter.PageSize, total), nil
}

// Get returns a user by ID.
func (s *UserService) Get(ctx context.Context, id string) (*models.UserDetail, error) {
	user, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("user not found: %s", id))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	return user, nil
}

// Create adds a new user.
func (s *UserService) Create(ctx context.Context, req CreateUserRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid create user payload")
	}
	if err := s.ensureEmailFree(ctx, req.Email, ""); err != nil {
		return nil, err
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Email:        strings.ToLower(req.Email),
		Role:         req.Role,
		Active:       boolOr(req.Active, true),
		PasswordHash: string(passwordHash),
	}
	if err := s.repo.Create(ctx, nil, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "email already exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create user")
	}

	s.logger.Info("user created", zap.String("user_id", user.ID), zap.String("role", string(user.Role)))
	return user, nil
}

// Update modifies the user attributes.
func (s *UserService) Update(ctx context.Context, id string, req UpdateUserRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid update payload")
	}

	user, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.ensureEmailFree(ctx, req.Email, id); err != nil {
		return nil, err
	}

	user.Email = strings.ToLower(req.Email)
	user.Role = req.Role
	user.Active = boolOr(req.Active, user.Active)
	if req.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
		}
		user.PasswordHash = string(hash)
	}

	if err := s.repo.Update(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "email already exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update user")
	}
	return user, nil
}

// Delete performs a soft delete (inactive) on a user.
func (s *UserService) Delete(ctx context.Context, id string) error {
	if _, err := s.load(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete user")
	}
	s.logger.Info("user deactivated", zap.String("user_id", id))
	return nil
}

// GetPersonalData returns the personal data of a user.
func (s *UserService) GetPersonalData(ctx context.Context, userID string) (*models.PersonalData, error) {
	data, err := s.personalData.FindByUserID(ctx, nil, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("personal data not found for user: %s", userID))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load personal data")
	}
	return data, nil
}

// UpsertPersonalData creates or replaces the personal data of an existing user.
// New prices only apply to enrollments created or updated afterwards.
func (s *UserService) UpsertPersonalData(ctx context.Context, userID string, req PersonalDataRequest) (*models.PersonalData, error) {
	data, err := buildPersonalData(s.validator, userID, req)
	if err != nil {
		return nil, err
	}
	if _, err := s.load(ctx, userID); err != nil {
		return nil, err
	}
	if err := s.personalData.Upsert(ctx, nil, data); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("national id already registered: %s", req.NationalID))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save personal data")
	}
	return data, nil
}

func (s *UserService) load(ctx context.Context, id string) (*models.User, error) {
	return loadUser(ctx, s.repo, nil, id)
}

func (s *UserService) ensureEmailFree(ctx context.Context, email, excludeID string) error {
	exists, err := s.repo.EmailExists(ctx, email, excludeID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check email uniqueness")
	}
	if exists {
		return appErrors.Clone(appErrors.ErrConflict, "email already exists")
	}
	return nil
}

// buildPersonalData validates req and returns the row to store. The disability
// percentage defaults to zero and must lie within [0, 100].
func buildPersonalData(validate *validator.Validate, userID string, req PersonalDataRequest) (*models.PersonalData, error) {
	if err := validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid personal data payload")
	}
	disability := decimal.Zero
	if req.DisabilityPercentage != nil {
		disability = *req.DisabilityPercentage
	}
	if disability.IsNegative() || disability.GreaterThan(maxDisabilityPercentage) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "disability_percentage must be between 0 and 100")
	}
	return &models.PersonalData{
		UserID:               userID,
		FirstName:            req.FirstName,
		LastName:             req.LastName,
		NationalID:           req.NationalID,
		Phone:                req.Phone,
		Address:              req.Address,
		DisabilityPercentage: decimal.NewNullDecimal(disability),
		LargeFamily:          req.LargeFamily,
	}, nil
}
