package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/academy-manager/academy-api/internal/models"
	"github.com/academy-manager/academy-api/internal/repository"
)

// newTxMock returns a sqlx handle whose only job is to hand out transactions.
func newTxMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return sqlx.NewDb(db, "sqlmock"), mock
}

func strPtr(s string) *string { return &s }

type fakeUsers struct {
	users map[string]models.User
}

func (f *fakeUsers) FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &u, nil
}

type fakeCourses struct {
	courses map[string]models.Course
}

func (f *fakeCourses) FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Course, error) {
	c, ok := f.courses[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &c, nil
}

type fakeSubsidies struct {
	entities map[string]models.SubsidyEntity
}

func (f *fakeSubsidies) FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.SubsidyEntity, error) {
	s, ok := f.entities[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &s, nil
}

type fakeOfferings struct {
	offerings map[string]models.CourseOffering
}

func (f *fakeOfferings) FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.CourseOffering, error) {
	o, ok := f.offerings[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &o, nil
}

// fakeEnrollments derives final_price on read the way the generated column does.
type fakeEnrollments struct {
	items      map[string]models.Enrollment
	creates    int
	updates    int
	duplicates int
	seq        int
}

func newFakeEnrollments() *fakeEnrollments {
	return &fakeEnrollments{items: map[string]models.Enrollment{}}
}

func (f *fakeEnrollments) FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Enrollment, error) {
	e, ok := f.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &e, nil
}

func (f *fakeEnrollments) FindDetailByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.EnrollmentDetail, error) {
	e, ok := f.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	e.FinalPrice = e.GrossPrice.Sub(e.DiscountApplied).Add(e.SubsidizedAmount)
	return &models.EnrollmentDetail{Enrollment: e}, nil
}

func (f *fakeEnrollments) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	var out []models.EnrollmentDetail
	for id := range f.items {
		d, _ := f.FindDetailByID(ctx, nil, id)
		out = append(out, *d)
	}
	return out, len(out), nil
}

func (f *fakeEnrollments) ListByStudent(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error) {
	var out []models.EnrollmentDetail
	for id, e := range f.items {
		if e.StudentID == studentID {
			d, _ := f.FindDetailByID(ctx, nil, id)
			out = append(out, *d)
		}
	}
	return out, nil
}

func (f *fakeEnrollments) Create(ctx context.Context, exec sqlx.ExtContext, enrollment *models.Enrollment) error {
	if f.duplicates > 0 {
		f.duplicates--
		return repository.ErrDuplicateKey
	}
	f.creates++
	f.seq++
	if enrollment.ID == "" {
		enrollment.ID = fmt.Sprintf("enr-%d", f.seq)
	}
	f.items[enrollment.ID] = *enrollment
	return nil
}

func (f *fakeEnrollments) Update(ctx context.Context, exec sqlx.ExtContext, enrollment *models.Enrollment) error {
	f.updates++
	f.items[enrollment.ID] = *enrollment
	return nil
}

func (f *fakeEnrollments) Delete(ctx context.Context, exec sqlx.ExtContext, id string) error {
	delete(f.items, id)
	return nil
}

type txExpecter struct {
	mock sqlmock.Sqlmock
}

func (e txExpecter) commit() {
	e.mock.ExpectBegin()
	e.mock.ExpectCommit()
}

func (e txExpecter) rollback() {
	e.mock.ExpectBegin()
	e.mock.ExpectRollback()
}

func (f *fakeEnrollments) DeleteByOffering(ctx context.Context, exec sqlx.ExtContext, offeringID string) (int64, error) {
	var n int64
	for id, e := range f.items {
		if e.OfferingID == offeringID {
			delete(f.items, id)
			n++
		}
	}
	return n, nil
}

type fakeCenters struct {
	centers map[string]models.Center
}

func (f *fakeCenters) FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Center, error) {
	c, ok := f.centers[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &c, nil
}

// offeringStore extends fakeOfferings with the writes OfferingService needs.
type offeringStore struct {
	fakeOfferings
	activeCalls int
	creates     int
}

func newOfferingStore() *offeringStore {
	return &offeringStore{fakeOfferings: fakeOfferings{offerings: map[string]models.CourseOffering{}}}
}

func (f *offeringStore) FindDetailByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.OfferingDetail, error) {
	o, ok := f.offerings[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &models.OfferingDetail{CourseOffering: o}, nil
}

func (f *offeringStore) List(ctx context.Context, filter models.OfferingFilter) ([]models.OfferingDetail, int, error) {
	var out []models.OfferingDetail
	for _, o := range f.offerings {
		out = append(out, models.OfferingDetail{CourseOffering: o})
	}
	return out, len(out), nil
}

func (f *offeringStore) ListActive(ctx context.Context) ([]models.OfferingDetail, error) {
	f.activeCalls++
	var out []models.OfferingDetail
	for _, o := range f.offerings {
		if o.Active {
			out = append(out, models.OfferingDetail{CourseOffering: o})
		}
	}
	return out, nil
}

func (f *offeringStore) Create(ctx context.Context, exec sqlx.ExtContext, offering *models.CourseOffering) error {
	f.creates++
	if offering.ID == "" {
		offering.ID = fmt.Sprintf("off-%d", f.creates)
	}
	f.offerings[offering.ID] = *offering
	return nil
}

func (f *offeringStore) Update(ctx context.Context, exec sqlx.ExtContext, offering *models.CourseOffering) error {
	f.offerings[offering.ID] = *offering
	return nil
}

func (f *offeringStore) Delete(ctx context.Context, exec sqlx.ExtContext, id string) error {
	delete(f.offerings, id)
	return nil
}

// memUsers implements both the directory and auth user stores.
type memUsers struct {
	byID      map[string]models.User
	createErr error
	deleted   []string
}

func newMemUsers(users ...models.User) *memUsers {
	m := &memUsers{byID: map[string]models.User{}}
	for _, u := range users {
		m.byID[u.ID] = u
	}
	return m
}

func (m *memUsers) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range m.byID {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *memUsers) FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.User, error) {
	u, ok := m.byID[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &u, nil
}

func (m *memUsers) FindDetailByID(ctx context.Context, id string) (*models.UserDetail, error) {
	u, ok := m.byID[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &models.UserDetail{User: u}, nil
}

func (m *memUsers) EmailExists(ctx context.Context, email, excludeID string) (bool, error) {
	for id, u := range m.byID {
		if id != excludeID && strings.EqualFold(u.Email, email) {
			return true, nil
		}
	}
	return false, nil
}

func (m *memUsers) List(ctx context.Context, filter models.UserFilter) ([]models.UserDetail, int, error) {
	var out []models.UserDetail
	for _, u := range m.byID {
		if filter.Role != nil && u.Role != *filter.Role {
			continue
		}
		out = append(out, models.UserDetail{User: u})
	}
	return out, len(out), nil
}

func (m *memUsers) Create(ctx context.Context, exec sqlx.ExtContext, user *models.User) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.byID[user.ID] = *user
	return nil
}

func (m *memUsers) Update(ctx context.Context, user *models.User) error {
	m.byID[user.ID] = *user
	return nil
}

func (m *memUsers) Delete(ctx context.Context, id string) error {
	u := m.byID[id]
	u.Active = false
	m.byID[id] = u
	m.deleted = append(m.deleted, id)
	return nil
}

func decPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}
