package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/academy-manager/academy-api/internal/models"
	appErrors "github.com/academy-manager/academy-api/pkg/errors"
)

func day(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestValidateOfferingDates(t *testing.T) {
	cases := []struct {
		name    string
		start   *time.Time
		end     *time.Time
		wantErr bool
	}{
		{"valid range", day(2026, 1, 10), day(2026, 3, 31), false},
		{"one day apart", day(2026, 1, 10), day(2026, 1, 11), false},
		{"equal dates", day(2026, 1, 10), day(2026, 1, 10), true},
		{"end before start", day(2026, 3, 31), day(2026, 1, 10), true},
		{"missing start", nil, day(2026, 1, 10), true},
		{"missing end", day(2026, 1, 10), nil, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateOfferingDates(tc.start, tc.end)
			if !tc.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, appErrors.ErrInvalidDateRange.Code, appErrors.FromError(err).Code)
		})
	}
}

func TestValidateOfferingDatesIgnoresTimeOfDay(t *testing.T) {
	start := time.Date(2026, 1, 10, 8, 0, 0, 0, time.UTC)
	end := time.Date(2026, 1, 10, 20, 0, 0, 0, time.UTC)
	err := ValidateOfferingDates(&start, &end)
	assert.Equal(t, appErrors.ErrInvalidDateRange.Code, appErrors.FromError(err).Code)
}

func TestValidateRoles(t *testing.T) {
	teacher := &models.User{ID: "t-1", Role: models.RoleTeacher}
	student := &models.User{ID: "s-1", Role: models.RoleStudent}

	assert.NoError(t, ValidateTeacherAssignment(teacher))
	assert.NoError(t, ValidateStudentAssignment(student))

	err := ValidateTeacherAssignment(student)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrRoleMismatch.Code, appErr.Code)
	assert.Equal(t, "user is not a TEACHER: s-1", appErr.Message)

	err = ValidateStudentAssignment(&models.User{ID: "a-1", Role: models.RoleAdmin})
	assert.Equal(t, "user is not a STUDENT: a-1", appErrors.FromError(err).Message)

	assert.Error(t, ValidateStudentAssignment(nil))
}
