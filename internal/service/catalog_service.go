package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/academy-manager/academy-api/internal/models"
	"github.com/academy-manager/academy-api/internal/repository"
	appErrors "github.com/academy-manager/academy-api/pkg/errors"
)

type companyRepository interface {
	FindByID(ctx context.Context, id string) (*models.Company, error)
	List(ctx context.Context, filter models.CatalogFilter) ([]models.Company, int, error)
	Create(ctx context.Context, company *models.Company) error
	Update(ctx context.Context, company *models.Company) error
	Delete(ctx context.Context, id string) error
}

type communityRepository interface {
	FindByID(ctx context.Context, id string) (*models.Community, error)
	List(ctx context.Context, filter models.CatalogFilter) ([]models.Community, int, error)
	Create(ctx context.Context, community *models.Community) error
	Update(ctx context.Context, community *models.Community) error
	Delete(ctx context.Context, id string) error
}

type centerRepository interface {
	FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Center, error)
	List(ctx context.Context, filter models.CatalogFilter) ([]models.Center, int, error)
	Create(ctx context.Context, center *models.Center) error
	Update(ctx context.Context, center *models.Center) error
	Delete(ctx context.Context, id string) error
}

type subjectRepository interface {
	FindByID(ctx context.Context, id string) (*models.Subject, error)
	List(ctx context.Context, filter models.CatalogFilter) ([]models.Subject, int, error)
	Create(ctx context.Context, subject *models.Subject) error
	Delete(ctx context.Context, id string) error
}

type formatRepository interface {
	FindByID(ctx context.Context, id string) (*models.Format, error)
	List(ctx context.Context) ([]models.Format, error)
	Create(ctx context.Context, format *models.Format) error
	Delete(ctx context.Context, id string) error
}

type courseRepository interface {
	FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Course, error)
	FindDetailByID(ctx context.Context, id string) (*models.CourseDetail, error)
	List(ctx context.Context, filter models.CatalogFilter) ([]models.CourseDetail, int, error)
	Create(ctx context.Context, course *models.Course) error
	Update(ctx context.Context, course *models.Course) error
	Delete(ctx context.Context, id string) error
}

// CatalogRepositories groups the stores behind CatalogService.
type CatalogRepositories struct {
	Companies   companyRepository
	Communities communityRepository
	Centers     centerRepository
	Subjects    subjectRepository
	Formats     formatRepository
	Courses     courseRepository
}

type CompanyRequest struct {
	TaxID         string  `json:"tax_id" validate:"required,max=20"`
	LegalName     string  `json:"legal_name" validate:"required,max=200"`
	FiscalAddress *string `json:"fiscal_address" validate:"omitempty,max=300"`
	Active        *bool   `json:"active"`
}

type CommunityRequest struct {
	Code    string  `json:"code" validate:"required,max=10"`
	Name    string  `json:"name" validate:"required,max=100"`
	Capital *string `json:"capital" validate:"omitempty,max=100"`
	Active  *bool   `json:"active"`
}

type CenterRequest struct {
	Code        string  `json:"code" validate:"required,max=50"`
	Name        string  `json:"name" validate:"required,max=150"`
	CompanyID   string  `json:"company_id" validate:"required"`
	CommunityID string  `json:"community_id" validate:"required"`
	MaxCapacity *int    `json:"max_capacity" validate:"omitempty,min=1"`
	Active      *bool   `json:"active"`
}

type SubjectRequest struct {
	Name string `json:"name" validate:"required,max=150"`
}

type FormatRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

type CourseRequest struct {
	Name          string          `json:"name" validate:"required,max=200"`
	SubjectID     string          `json:"subject_id" validate:"required"`
	FormatID      string          `json:"format_id" validate:"required"`
	BasePrice     decimal.Decimal `json:"base_price"`
	DurationHours *int            `json:"duration_hours" validate:"omitempty,min=1"`
	Active        *bool           `json:"active"`
}

// cachedCourseList is the cached shape of one course list page.
type cachedCourseList struct {
	Items []models.CourseDetail `json:"items"`
	Total int                   `json:"total"`
}

// CatalogService manages companies, communities, centers, subjects, formats and courses.
type CatalogService struct {
	repos     CatalogRepositories
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCatalogService constructs CatalogService.
func NewCatalogService(repos CatalogRepositories, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *CatalogService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogService{repos: repos, cache: cache, validator: validate, logger: logger}
}

// Companies

func (s *CatalogService) GetCompany(ctx context.Context, id string) (*models.Company, error) {
	company, err := s.repos.Companies.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "company", id)
	}
	return company, nil
}

func (s *CatalogService) ListCompanies(ctx context.Context, filter models.CatalogFilter) ([]models.Company, *models.Pagination, error) {
	companies, total, err := s.repos.Companies.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list companies")
	}
	return companies, paginationFor(filter.Page, filter.PageSize, total), nil
}

func (s *CatalogService) CreateCompany(ctx context.Context, req CompanyRequest) (*models.Company, error) {
	if err := s.validate(req, "company"); err != nil {
		return nil, err
	}
	company := &models.Company{TaxID: req.TaxID, LegalName: req.LegalName, FiscalAddress: req.FiscalAddress, Active: boolOr(req.Active, true)}
	if err := s.repos.Companies.Create(ctx, company); err != nil {
		return nil, conflictError(err, "company", "tax id "+req.TaxID)
	}
	s.logger.Info("company created", zap.String("company_id", company.ID))
	return company, nil
}

func (s *CatalogService) UpdateCompany(ctx context.Context, id string, req CompanyRequest) (*models.Company, error) {
	if err := s.validate(req, "company"); err != nil {
		return nil, err
	}
	company, err := s.GetCompany(ctx, id)
	if err != nil {
		return nil, err
	}
	company.TaxID, company.LegalName, company.FiscalAddress = req.TaxID, req.LegalName, req.FiscalAddress
	company.Active = boolOr(req.Active, company.Active)
	if err := s.repos.Companies.Update(ctx, company); err != nil {
		return nil, conflictError(err, "company", "tax id "+req.TaxID)
	}
	return company, nil
}

func (s *CatalogService) DeleteCompany(ctx context.Context, id string) error {
	if _, err := s.GetCompany(ctx, id); err != nil {
		return err
	}
	if err := s.repos.Companies.Delete(ctx, id); err != nil {
		return conflictError(err, "company", id)
	}
	return nil
}

// Communities

func (s *CatalogService) GetCommunity(ctx context.Context, id string) (*models.Community, error) {
	community, err := s.repos.Communities.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "community", id)
	}
	return community, nil
}

func (s *CatalogService) ListCommunities(ctx context.Context, filter models.CatalogFilter) ([]models.Community, *models.Pagination, error) {
	communities, total, err := s.repos.Communities.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list communities")
	}
	return communities, paginationFor(filter.Page, filter.PageSize, total), nil
}

func (s *CatalogService) CreateCommunity(ctx context.Context, req CommunityRequest) (*models.Community, error) {
	if err := s.validate(req, "community"); err != nil {
		return nil, err
	}
	community := &models.Community{Code: req.Code, Name: req.Name, Capital: req.Capital, Active: boolOr(req.Active, true)}
	if err := s.repos.Communities.Create(ctx, community); err != nil {
		return nil, conflictError(err, "community", "code "+req.Code)
	}
	s.logger.Info("community created", zap.String("community_id", community.ID))
	return community, nil
}

func (s *CatalogService) UpdateCommunity(ctx context.Context, id string, req CommunityRequest) (*models.Community, error) {
	if err := s.validate(req, "community"); err != nil {
		return nil, err
	}
	community, err := s.GetCommunity(ctx, id)
	if err != nil {
		return nil, err
	}
	community.Code, community.Name, community.Capital = req.Code, req.Name, req.Capital
	community.Active = boolOr(req.Active, community.Active)
	if err := s.repos.Communities.Update(ctx, community); err != nil {
		return nil, conflictError(err, "community", "code "+req.Code)
	}
	return community, nil
}

// DeleteCommunity fails with CONFLICT while centers still belong to it.
func (s *CatalogService) DeleteCommunity(ctx context.Context, id string) error {
	if _, err := s.GetCommunity(ctx, id); err != nil {
		return err
	}
	if err := s.repos.Communities.Delete(ctx, id); err != nil {
		return conflictError(err, "community", id)
	}
	return nil
}

// Centers

func (s *CatalogService) GetCenter(ctx context.Context, id string) (*models.Center, error) {
	center, err := s.repos.Centers.FindByID(ctx, nil, id)
	if err != nil {
		return nil, lookupError(err, "center", id)
	}
	return center, nil
}

func (s *CatalogService) ListCenters(ctx context.Context, filter models.CatalogFilter) ([]models.Center, *models.Pagination, error) {
	centers, total, err := s.repos.Centers.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list centers")
	}
	return centers, paginationFor(filter.Page, filter.PageSize, total), nil
}

func (s *CatalogService) CreateCenter(ctx context.Context, req CenterRequest) (*models.Center, error) {
	if err := s.validate(req, "center"); err != nil {
		return nil, err
	}
	if _, err := s.GetCompany(ctx, req.CompanyID); err != nil {
		return nil, err
	}
	if _, err := s.GetCommunity(ctx, req.CommunityID); err != nil {
		return nil, err
	}
	center := &models.Center{
		Code:        req.Code,
		Name:        req.Name,
		CompanyID:   req.CompanyID,
		CommunityID: req.CommunityID,
		MaxCapacity: req.MaxCapacity,
		Active:      boolOr(req.Active, true),
	}
	if err := s.repos.Centers.Create(ctx, center); err != nil {
		return nil, conflictError(err, "center", "code "+req.Code)
	}
	s.logger.Info("center created", zap.String("center_id", center.ID))
	return center, nil
}

func (s *CatalogService) UpdateCenter(ctx context.Context, id string, req CenterRequest) (*models.Center, error) {
	if err := s.validate(req, "center"); err != nil {
		return nil, err
	}
	center, err := s.GetCenter(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.CompanyID != center.CompanyID {
		if _, err := s.GetCompany(ctx, req.CompanyID); err != nil {
			return nil, err
		}
	}
	if req.CommunityID != center.CommunityID {
		if _, err := s.GetCommunity(ctx, req.CommunityID); err != nil {
			return nil, err
		}
	}
	center.Code, center.Name, center.CompanyID = req.Code, req.Name, req.CompanyID
	center.CommunityID, center.MaxCapacity = req.CommunityID, req.MaxCapacity
	center.Active = boolOr(req.Active, center.Active)
	if err := s.repos.Centers.Update(ctx, center); err != nil {
		return nil, conflictError(err, "center", "code "+req.Code)
	}
	return center, nil
}

func (s *CatalogService) DeleteCenter(ctx context.Context, id string) error {
	if _, err := s.GetCenter(ctx, id); err != nil {
		return err
	}
	if err := s.repos.Centers.Delete(ctx, id); err != nil {
		return conflictError(err, "center", id)
	}
	return nil
}

// Subjects and formats

func (s *CatalogService) GetSubject(ctx context.Context, id string) (*models.Subject, error) {
	subject, err := s.repos.Subjects.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "subject", id)
	}
	return subject, nil
}

func (s *CatalogService) ListSubjects(ctx context.Context, filter models.CatalogFilter) ([]models.Subject, *models.Pagination, error) {
	subjects, total, err := s.repos.Subjects.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list subjects")
	}
	return subjects, paginationFor(filter.Page, filter.PageSize, total), nil
}

func (s *CatalogService) CreateSubject(ctx context.Context, req SubjectRequest) (*models.Subject, error) {
	if err := s.validate(req, "subject"); err != nil {
		return nil, err
	}
	subject := &models.Subject{Name: req.Name, Active: true}
	if err := s.repos.Subjects.Create(ctx, subject); err != nil {
		return nil, conflictError(err, "subject", req.Name)
	}
	return subject, nil
}

func (s *CatalogService) DeleteSubject(ctx context.Context, id string) error {
	if _, err := s.GetSubject(ctx, id); err != nil {
		return err
	}
	if err := s.repos.Subjects.Delete(ctx, id); err != nil {
		return conflictError(err, "subject", id)
	}
	s.cache.InvalidateCatalog(ctx)
	return nil
}

func (s *CatalogService) GetFormat(ctx context.Context, id string) (*models.Format, error) {
	format, err := s.repos.Formats.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "format", id)
	}
	return format, nil
}

func (s *CatalogService) ListFormats(ctx context.Context) ([]models.Format, error) {
	formats, err := s.repos.Formats.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list formats")
	}
	return formats, nil
}

func (s *CatalogService) CreateFormat(ctx context.Context, req FormatRequest) (*models.Format, error) {
	if err := s.validate(req, "format"); err != nil {
		return nil, err
	}
	format := &models.Format{Name: req.Name}
	if err := s.repos.Formats.Create(ctx, format); err != nil {
		return nil, conflictError(err, "format", req.Name)
	}
	return format, nil
}

func (s *CatalogService) DeleteFormat(ctx context.Context, id string) error {
	if _, err := s.GetFormat(ctx, id); err != nil {
		return err
	}
	if err := s.repos.Formats.Delete(ctx, id); err != nil {
		return conflictError(err, "format", id)
	}
	s.cache.InvalidateCatalog(ctx)
	return nil
}

// Courses

func (s *CatalogService) GetCourse(ctx context.Context, id string) (*models.CourseDetail, error) {
	course, err := s.repos.Courses.FindDetailByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "course", id)
	}
	return course, nil
}

// ListCourses returns a course page, cached per filter.
func (s *CatalogService) ListCourses(ctx context.Context, filter models.CatalogFilter) ([]models.CourseDetail, *models.Pagination, error) {
	key := courseListKey(filter)
	var cached cachedCourseList
	if s.cache.Get(ctx, key, &cached) {
		return cached.Items, paginationFor(filter.Page, filter.PageSize, cached.Total), nil
	}
	courses, total, err := s.repos.Courses.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}
	s.cache.Set(ctx, key, cachedCourseList{Items: courses, Total: total}, 0)
	return courses, paginationFor(filter.Page, filter.PageSize, total), nil
}

// ListActiveCourses lists courses with active forced on.
func (s *CatalogService) ListActiveCourses(ctx context.Context, filter models.CatalogFilter) ([]models.CourseDetail, *models.Pagination, error) {
	active := true
	filter.Active = &active
	return s.ListCourses(ctx, filter)
}

func (s *CatalogService) CreateCourse(ctx context.Context, req CourseRequest) (*models.CourseDetail, error) {
	if err := s.validateCourse(ctx, req); err != nil {
		return nil, err
	}
	course := &models.Course{
		Name:          req.Name,
		SubjectID:     req.SubjectID,
		FormatID:      req.FormatID,
		BasePrice:     req.BasePrice,
		DurationHours: req.DurationHours,
		Active:        boolOr(req.Active, true),
	}
	if err := s.repos.Courses.Create(ctx, course); err != nil {
		return nil, conflictError(err, "course", req.Name)
	}
	s.cache.InvalidateCatalog(ctx)
	s.logger.Info("course created", zap.String("course_id", course.ID), zap.String("base_price", course.BasePrice.String()))
	return s.GetCourse(ctx, course.ID)
}

// UpdateCourse replaces the course fields. Existing enrollments keep their
// prices until they are next updated.
func (s *CatalogService) UpdateCourse(ctx context.Context, id string, req CourseRequest) (*models.CourseDetail, error) {
	if err := s.validateCourse(ctx, req); err != nil {
		return nil, err
	}
	course, err := s.repos.Courses.FindByID(ctx, nil, id)
	if err != nil {
		return nil, lookupError(err, "course", id)
	}
	course.Name, course.SubjectID, course.FormatID = req.Name, req.SubjectID, req.FormatID
	course.BasePrice, course.DurationHours = req.BasePrice, req.DurationHours
	course.Active = boolOr(req.Active, course.Active)
	if err := s.repos.Courses.Update(ctx, course); err != nil {
		return nil, conflictError(err, "course", req.Name)
	}
	s.cache.InvalidateCatalog(ctx)
	return s.GetCourse(ctx, id)
}

func (s *CatalogService) DeleteCourse(ctx context.Context, id string) error {
	if _, err := s.repos.Courses.FindByID(ctx, nil, id); err != nil {
		return lookupError(err, "course", id)
	}
	if err := s.repos.Courses.Delete(ctx, id); err != nil {
		return conflictError(err, "course", id)
	}
	s.cache.InvalidateCatalog(ctx)
	return nil
}

func (s *CatalogService) validateCourse(ctx context.Context, req CourseRequest) error {
	if err := s.validate(req, "course"); err != nil {
		return err
	}
	if !req.BasePrice.IsPositive() {
		return appErrors.Clone(appErrors.ErrValidation, "base_price must be greater than zero")
	}
	if _, err := s.GetSubject(ctx, req.SubjectID); err != nil {
		return err
	}
	if _, err := s.GetFormat(ctx, req.FormatID); err != nil {
		return err
	}
	return nil
}

func (s *CatalogService) validate(req interface{}, entity string) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid "+entity+" payload")
	}
	return nil
}

func courseListKey(f models.CatalogFilter) string {
	active := "any"
	if f.Active != nil {
		active = strconv.FormatBool(*f.Active)
	}
	return fmt.Sprintf("%scourses:%s:%s:%s:%s:%d:%d:%s:%s", cacheKeyCatalogPrefix,
		f.SubjectID, f.FormatID, active, f.Search, f.Page, f.PageSize, f.SortBy, f.SortOrder)
}

// lookupError maps a repository read failure to NOT_FOUND or INTERNAL_ERROR.
func lookupError(err error, entity, id string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("%s not found: %s", entity, id))
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load "+entity)
}

// conflictError maps unique and foreign key violations to CONFLICT.
func conflictError(err error, entity, what string) error {
	switch {
	case errors.Is(err, repository.ErrDuplicateKey):
		return appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, fmt.Sprintf("%s already exists: %s", entity, what))
	case errors.Is(err, repository.ErrReferenced):
		return appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, fmt.Sprintf("%s is still referenced: %s", entity, what))
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save "+entity)
}

func boolOr(v *bool, fallback bool) bool {
	if v == nil {
		return fallback
	}
	return *v
}
