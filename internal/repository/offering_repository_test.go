package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/academy-manager/academy-api/internal/models"
)

var offeringDetailColumns = []string{"id", "code", "course_id", "teacher_id", "center_id", "start_date", "end_date", "active",
	"created_at", "updated_at", "course_name", "teacher_name", "center_name"}

func TestOfferingRepositoryListActive(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewOfferingRepository(db)

	start := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE o.active = TRUE ORDER BY o.start_date ASC")).
		WillReturnRows(sqlmock.NewRows(offeringDetailColumns).
			AddRow("o-1", "CONV-1A2B3C4D", "c-1", "t-1", "ce-1", start, start.AddDate(0, 3, 0), true, start, start, "Go Basics", "Marta Ruiz", "Madrid Centro"))

	offerings, err := repo.ListActive(context.Background())
	require.NoError(t, err)
	require.Len(t, offerings, 1)
	assert.Equal(t, "Go Basics", offerings[0].CourseName)
	require.NotNil(t, offerings[0].TeacherName)
	assert.Equal(t, "Marta Ruiz", *offerings[0].TeacherName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOfferingRepositoryListFilter(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewOfferingRepository(db)

	active := true
	mock.ExpectQuery(regexp.QuoteMeta("WHERE o.teacher_id = $1 AND o.active = $2 ORDER BY o.code ASC LIMIT 20 OFFSET 0")).
		WithArgs("t-1", true).
		WillReturnRows(sqlmock.NewRows(offeringDetailColumns))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM course_offerings o WHERE o.teacher_id = $1 AND o.active = $2")).
		WithArgs("t-1", true).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	items, total, err := repo.List(context.Background(), models.OfferingFilter{TeacherID: "t-1", Active: &active, SortBy: "code", SortOrder: "ASC"})
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Zero(t, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOfferingRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewOfferingRepository(db)

	mock.ExpectExec("INSERT INTO course_offerings").WillReturnResult(sqlmock.NewResult(0, 1))
	offering := &models.CourseOffering{Code: "CONV-1", CourseID: "c-1", TeacherID: "t-1", CenterID: "ce-1", Active: true}
	require.NoError(t, repo.Create(context.Background(), nil, offering))
	assert.NotEmpty(t, offering.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
