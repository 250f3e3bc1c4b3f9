package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/academy-manager/academy-api/internal/middleware"
	"github.com/academy-manager/academy-api/internal/models"
	"github.com/academy-manager/academy-api/internal/service"
	"github.com/academy-manager/academy-api/pkg/config"
	appErrors "github.com/academy-manager/academy-api/pkg/errors"
)

type enrollmentServiceMock struct {
	created    *service.CreateEnrollmentRequest
	updated    *service.UpdateEnrollmentRequest
	lastFilter models.EnrollmentFilter
	studentID  string
	deletedID  string
	getErr     error
	createErr  error
}

func sampleEnrollment(id string) *models.EnrollmentDetail {
	return &models.EnrollmentDetail{
		Enrollment: models.Enrollment{
			ID:              id,
			Code:            "MAT-1A2B3C4D",
			OfferingID:      "o-1",
			StudentID:       "s-1",
			GrossPrice:      decimal.NewFromInt(500),
			DiscountApplied: decimal.NewFromInt(100),
			DiscountReason:  models.DiscountReasonDisability,
			FinalPrice:      decimal.NewFromInt(400),
			PaymentStatus:   models.PaymentStatusPending,
		},
		OfferingCode: "CONV-1A2B3C4D",
		StudentName:  "Ana Lopez",
	}
}

func (m *enrollmentServiceMock) Get(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	return sampleEnrollment(id), nil
}

func (m *enrollmentServiceMock) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, *models.Pagination, error) {
	m.lastFilter = filter
	return []models.EnrollmentDetail{*sampleEnrollment("e-1")}, &models.Pagination{Page: 1, PageSize: 20, TotalCount: 1}, nil
}

func (m *enrollmentServiceMock) ListByStudent(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error) {
	m.studentID = studentID
	return []models.EnrollmentDetail{*sampleEnrollment("e-1")}, nil
}

func (m *enrollmentServiceMock) Create(ctx context.Context, req service.CreateEnrollmentRequest) (*models.EnrollmentDetail, error) {
	m.created = &req
	if m.createErr != nil {
		return nil, m.createErr
	}
	return sampleEnrollment("e-new"), nil
}

func (m *enrollmentServiceMock) Update(ctx context.Context, id string, req service.UpdateEnrollmentRequest) (*models.EnrollmentDetail, error) {
	m.updated = &req
	return sampleEnrollment(id), nil
}

func (m *enrollmentServiceMock) Delete(ctx context.Context, id string) error {
	m.deletedID = id
	return nil
}

type offeringServiceMock struct {
	activeCalls int
}

func (m *offeringServiceMock) Get(ctx context.Context, id string) (*models.OfferingDetail, error) {
	return nil, appErrors.Clone(appErrors.ErrNotFound, "offering not found: "+id)
}

func (m *offeringServiceMock) List(ctx context.Context, filter models.OfferingFilter) ([]models.OfferingDetail, *models.Pagination, error) {
	return nil, &models.Pagination{Page: 1, PageSize: 20}, nil
}

func (m *offeringServiceMock) ListActive(ctx context.Context) ([]models.OfferingDetail, error) {
	m.activeCalls++
	return []models.OfferingDetail{{
		CourseOffering: models.CourseOffering{ID: "o-1", Code: "CONV-1", Active: true, StartDate: time.Now(), EndDate: time.Now().AddDate(0, 1, 0)},
		CourseName:     "Spanish A1",
	}}, nil
}

func (m *offeringServiceMock) Create(ctx context.Context, req service.CreateOfferingRequest) (*models.OfferingDetail, error) {
	return nil, appErrors.Clone(appErrors.ErrRoleMismatch, "user is not a teacher")
}

func (m *offeringServiceMock) Update(ctx context.Context, id string, req service.UpdateOfferingRequest) (*models.OfferingDetail, error) {
	return nil, nil
}

func (m *offeringServiceMock) Delete(ctx context.Context, id string) error { return nil }

type stubTokens map[string]*models.JWTClaims

func (s stubTokens) ValidateToken(ctx context.Context, token string) (*models.JWTClaims, error) {
	if c, ok := s[token]; ok {
		return c, nil
	}
	return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
}

var tokens = stubTokens{
	"admin":   {UserID: "u-admin", Role: models.RoleAdmin},
	"staff":   {UserID: "u-staff", Role: models.RoleAdministrativeStaff},
	"teacher": {UserID: "u-teacher", Role: models.RoleTeacher},
	"student": {UserID: "s-1", Role: models.RoleStudent},
}

type envelope struct {
	Data       json.RawMessage    `json:"data"`
	Error      *appErrors.Error   `json:"error"`
	Pagination *models.Pagination `json:"pagination"`
}

func newTestRouter(enrollments *enrollmentServiceMock, offerings *offeringServiceMock) *gin.Engine {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{Env: config.EnvDevelopment, APIPrefix: "/api/v1", Metrics: config.MetricsConfig{Enabled: true}}
	metrics := service.NewMetricsService()
	return NewRouter(cfg, Handlers{
		Auth:        &AuthHandler{},
		Users:       &UserHandler{},
		Catalog:     &CatalogHandler{},
		Offerings:   NewOfferingHandler(offerings),
		Enrollments: NewEnrollmentHandler(enrollments),
		Subsidies:   &SubsidyHandler{},
		Grades:      &GradeHandler{},
		Invoices:    &InvoiceHandler{},
		Metrics:     NewMetricsHandler(metrics, nil),
	}, tokens, metrics, nil)
}

func do(r http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	var reader *bytes.Buffer
	if body != "" {
		reader = bytes.NewBufferString(body)
	} else {
		reader = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func TestEnrollmentHandlerCreate(t *testing.T) {
	mock := &enrollmentServiceMock{}
	r := newTestRouter(mock, &offeringServiceMock{})

	w := do(r, http.MethodPost, "/api/v1/enrollments", "staff",
		`{"offering_id":"o-1","student_id":"s-1","subsidy_entity_id":"sub-1","subsidized_amount":"50"}`)

	require.Equal(t, http.StatusCreated, w.Code)
	require.NotNil(t, mock.created)
	assert.Equal(t, "o-1", mock.created.OfferingID)
	require.NotNil(t, mock.created.SubsidizedAmount)
	assert.True(t, mock.created.SubsidizedAmount.Equal(decimal.NewFromInt(50)))

	var detail models.EnrollmentDetail
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &detail))
	assert.True(t, detail.FinalPrice.Equal(decimal.NewFromInt(400)))
	assert.Equal(t, "Ana Lopez", detail.StudentName)
}

func TestEnrollmentHandlerCreateInvalidBody(t *testing.T) {
	mock := &enrollmentServiceMock{}
	r := newTestRouter(mock, &offeringServiceMock{})

	w := do(r, http.MethodPost, "/api/v1/enrollments", "admin", `{"offering_id":`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, appErrors.ErrValidation.Code, decode(t, w).Error.Code)
	assert.Nil(t, mock.created)
}

func TestEnrollmentHandlerServiceErrorStatus(t *testing.T) {
	mock := &enrollmentServiceMock{createErr: appErrors.Clone(appErrors.ErrRoleMismatch, "user u-2 is not a student")}
	r := newTestRouter(mock, &offeringServiceMock{})

	w := do(r, http.MethodPost, "/api/v1/enrollments", "admin", `{"offering_id":"o-1","student_id":"u-2"}`)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, appErrors.ErrRoleMismatch.Code, decode(t, w).Error.Code)
}

func TestEnrollmentHandlerGetNotFound(t *testing.T) {
	mock := &enrollmentServiceMock{getErr: appErrors.Clone(appErrors.ErrNotFound, "enrollment not found: nope")}
	r := newTestRouter(mock, &offeringServiceMock{})

	w := do(r, http.MethodGet, "/api/v1/enrollments/nope", "teacher", "")

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
}

func TestEnrollmentHandlerListFilter(t *testing.T) {
	mock := &enrollmentServiceMock{}
	r := newTestRouter(mock, &offeringServiceMock{})

	w := do(r, http.MethodGet, "/api/v1/enrollments?student_id=s-1&payment_status=paid&page=2&page_size=5", "admin", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "s-1", mock.lastFilter.StudentID)
	assert.Equal(t, models.PaymentStatusPaid, mock.lastFilter.PaymentStatus)
	assert.Equal(t, 2, mock.lastFilter.Page)
	assert.Equal(t, 5, mock.lastFilter.PageSize)
	assert.Equal(t, 1, decode(t, w).Pagination.TotalCount)
}

func TestEnrollmentHandlerUpdateAndDelete(t *testing.T) {
	mock := &enrollmentServiceMock{}
	r := newTestRouter(mock, &offeringServiceMock{})

	w := do(r, http.MethodPut, "/api/v1/enrollments/e-1", "staff", `{"payment_status":"PAID","subsidy_entity_id":""}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, mock.updated)
	require.NotNil(t, mock.updated.PaymentStatus)
	assert.Equal(t, models.PaymentStatusPaid, *mock.updated.PaymentStatus)
	require.NotNil(t, mock.updated.SubsidyEntityID)
	assert.Empty(t, *mock.updated.SubsidyEntityID)

	w = do(r, http.MethodDelete, "/api/v1/enrollments/e-1", "admin", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "e-1", mock.deletedID)
}

func TestRouterEnforcesRoles(t *testing.T) {
	cases := []struct {
		name   string
		method string
		path   string
		token  string
		body   string
		status int
	}{
		{"anonymous", http.MethodGet, "/api/v1/enrollments", "", "", http.StatusUnauthorized},
		{"bad token", http.MethodGet, "/api/v1/enrollments", "forged", "", http.StatusUnauthorized},
		{"student cannot enroll", http.MethodPost, "/api/v1/enrollments", "student", `{"offering_id":"o-1","student_id":"s-1"}`, http.StatusForbidden},
		{"teacher cannot enroll", http.MethodPost, "/api/v1/enrollments", "teacher", `{"offering_id":"o-1","student_id":"s-1"}`, http.StatusForbidden},
		{"student cannot list all", http.MethodGet, "/api/v1/enrollments", "student", "", http.StatusForbidden},
		{"student reads own", http.MethodGet, "/api/v1/students/s-1/enrollments", "student", "", http.StatusOK},
		{"student reads other", http.MethodGet, "/api/v1/students/s-2/enrollments", "student", "", http.StatusForbidden},
		{"teacher reads student", http.MethodGet, "/api/v1/students/s-2/enrollments", "teacher", "", http.StatusOK},
		{"student cannot create offering", http.MethodPost, "/api/v1/offerings", "student", `{}`, http.StatusForbidden},
		{"staff cannot grade", http.MethodPost, "/api/v1/enrollments/e-1/grades", "staff", `{"score":"7"}`, http.StatusForbidden},
		{"any role lists active offerings", http.MethodGet, "/api/v1/offerings/active", "student", "", http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := newTestRouter(&enrollmentServiceMock{}, &offeringServiceMock{})
			w := do(r, tc.method, tc.path, tc.token, tc.body)
			assert.Equal(t, tc.status, w.Code)
		})
	}
}

func TestOfferingHandlerRoutes(t *testing.T) {
	offerings := &offeringServiceMock{}
	r := newTestRouter(&enrollmentServiceMock{}, offerings)

	w := do(r, http.MethodGet, "/api/v1/offerings/active", "admin", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, offerings.activeCalls)

	w = do(r, http.MethodGet, "/api/v1/offerings/o-404", "admin", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(r, http.MethodPost, "/api/v1/offerings", "admin", `{"course_id":"c-1","teacher_id":"u-2","center_id":"ce-1"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestAuthMeReturnsClaims(t *testing.T) {
	r := newTestRouter(&enrollmentServiceMock{}, &offeringServiceMock{})

	w := do(r, http.MethodGet, "/api/v1/auth/me", "teacher", "")
	require.Equal(t, http.StatusOK, w.Code)

	var info models.UserInfo
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &info))
	assert.Equal(t, "u-teacher", info.ID)
	assert.Equal(t, models.RoleTeacher, info.Role)
}

func TestMeWithoutClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/auth/me", nil)

	(&AuthHandler{}).Me(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHealthReadyAndMetrics(t *testing.T) {
	r := newTestRouter(&enrollmentServiceMock{}, &offeringServiceMock{})

	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/health", "", "").Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/ready", "", "").Code)

	w := do(r, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_requests_total")

	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/ready", nil)
	NewMetricsHandler(nil, map[string]ReadinessCheck{
		"cache":    func(context.Context) error { return nil },
		"database": func(context.Context) error { return context.DeadlineExceeded },
	}).Ready(c)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"failing":["database"]`)
}

func TestClaimsFromContext(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Nil(t, claimsFromContext(c))

	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "u-1"})
	require.NotNil(t, claimsFromContext(c))
	assert.Equal(t, "u-1", claimsFromContext(c).UserID)
}

func TestCatalogFilterReadsCommunity(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/centers?community_id=com-1&company_id=co-1&active=true&page=2", nil)

	filter := catalogFilter(c)
	assert.Equal(t, "com-1", filter.CommunityID)
	assert.Equal(t, "co-1", filter.CompanyID)
	require.NotNil(t, filter.Active)
	assert.True(t, *filter.Active)
	assert.Equal(t, 2, filter.Page)
}
