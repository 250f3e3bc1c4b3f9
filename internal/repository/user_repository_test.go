package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/academy-manager/academy-api/internal/models"
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	return sqlxdb, mock, func() {
		db.Close()
	}
}

var userRowColumns = []string{"id", "email", "password_hash", "role", "active", "created_at", "updated_at"}

func TestFindByEmail(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(userRowColumns).AddRow("u-1", "ana@example.com", "hash", string(models.RoleStudent), true, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM users u WHERE LOWER(u.email) = LOWER($1) LIMIT 1")).
		WithArgs("ana@example.com").
		WillReturnRows(rows)

	user, err := repo.FindByEmail(context.Background(), "ana@example.com")
	require.NoError(t, err)
	assert.Equal(t, models.RoleStudent, user.Role)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindUserByIDNotFound(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM users u WHERE u.id = $1")).WithArgs("missing").WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), nil, "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestFindUserByIDUsesTransaction(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	now := time.Now()
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM users u WHERE u.id = $1")).
		WithArgs("t-1").
		WillReturnRows(sqlmock.NewRows(userRowColumns).AddRow("t-1", "teacher@example.com", "hash", "TEACHER", true, now, now))
	mock.ExpectCommit()

	tx, err := db.Beginx()
	require.NoError(t, err)
	user, err := repo.FindByID(context.Background(), tx, "t-1")
	require.NoError(t, err)
	require.NoError(t, tx.Commit())
	assert.Equal(t, models.RoleTeacher, user.Role)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectExec("INSERT INTO users").WillReturnError(&pq.Error{Code: "23505", Constraint: "users_email_key"})

	err := repo.Create(context.Background(), nil, &models.User{Email: "dup@example.com", Role: models.RoleStudent})
	assert.ErrorIs(t, err, ErrDuplicateKey)
	assert.Equal(t, "users_email_key", DuplicateConstraint(err))
}

func TestListUsers(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	role := models.RoleTeacher
	now := time.Now()
	rows := sqlmock.NewRows(append(append([]string{}, userRowColumns...), "first_name", "last_name")).
		AddRow("t-1", "t@example.com", "hash", "TEACHER", true, now, now, "Marta", "Ruiz")
	mock.ExpectQuery(regexp.QuoteMeta("FROM users u LEFT JOIN personal_data p ON p.user_id = u.id WHERE u.role = $1 ORDER BY u.email ASC LIMIT 10 OFFSET 0")).
		WithArgs(role).
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM users u LEFT JOIN personal_data p ON p.user_id = u.id WHERE u.role = $1")).
		WithArgs(role).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	users, total, err := repo.List(context.Background(), models.UserFilter{Role: &role, PageSize: 10, SortBy: "email", SortOrder: "asc"})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, users, 1)
	assert.Equal(t, "Marta Ruiz", users[0].FullName())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindPersonalData(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewPersonalDataRepository(db)

	rows := sqlmock.NewRows([]string{"user_id", "first_name", "last_name", "national_id", "phone", "address", "disability_percentage", "large_family", "updated_at"}).
		AddRow("s-1", "Ana", "Lopez", "12345678Z", nil, nil, "45.00", false, time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM personal_data WHERE user_id = $1")).WithArgs("s-1").WillReturnRows(rows)

	data, err := repo.FindByUserID(context.Background(), nil, "s-1")
	require.NoError(t, err)
	require.True(t, data.DisabilityPercentage.Valid)
	assert.True(t, data.DisabilityPercentage.Decimal.Equal(decimal.RequireFromString("45")))
	assert.Equal(t, "Ana Lopez", data.FullName())
}

func TestFindPersonalDataNullDisability(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewPersonalDataRepository(db)

	rows := sqlmock.NewRows([]string{"user_id", "first_name", "last_name", "national_id", "phone", "address", "disability_percentage", "large_family", "updated_at"}).
		AddRow("s-2", "Luis", "Gil", "87654321X", nil, nil, nil, true, time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM personal_data WHERE user_id = $1")).WithArgs("s-2").WillReturnRows(rows)

	data, err := repo.FindByUserID(context.Background(), nil, "s-2")
	require.NoError(t, err)
	assert.False(t, data.DisabilityPercentage.Valid)
}

func TestUpsertPersonalData(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewPersonalDataRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (user_id) DO UPDATE")).WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Upsert(context.Background(), nil, &models.PersonalData{UserID: "s-1", FirstName: "Ana", LastName: "Lopez", NationalID: "1"})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
