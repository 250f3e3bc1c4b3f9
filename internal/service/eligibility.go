package service

import (
	"fmt"
	"time"

	"github.com/academy-manager/academy-api/internal/models"
	appErrors "github.com/academy-manager/academy-api/pkg/errors"
)

// ValidateOfferingDates requires both dates and a strictly later end date.
// Dates are compared by calendar day.
func ValidateOfferingDates(start, end *time.Time) error {
	if start == nil || end == nil {
		return appErrors.Clone(appErrors.ErrInvalidDateRange, "start and end dates are required")
	}
	if !truncateDay(*end).After(truncateDay(*start)) {
		return appErrors.Clone(appErrors.ErrInvalidDateRange, fmt.Sprintf("end date %s must be after start date %s",
			end.Format(dateLayout), start.Format(dateLayout)))
	}
	return nil
}

// ValidateTeacherAssignment requires the user to hold the TEACHER role.
func ValidateTeacherAssignment(user *models.User) error {
	return requireRole(user, models.RoleTeacher)
}

// ValidateStudentAssignment requires the user to hold the STUDENT role.
func ValidateStudentAssignment(user *models.User) error {
	return requireRole(user, models.RoleStudent)
}

func requireRole(user *models.User, role models.UserRole) error {
	if user == nil {
		return appErrors.Clone(appErrors.ErrRoleMismatch, fmt.Sprintf("user is not a %s", role))
	}
	if user.Role != role {
		return appErrors.Clone(appErrors.ErrRoleMismatch, fmt.Sprintf("user is not a %s: %s", role, user.ID))
	}
	return nil
}

const dateLayout = "2006-01-02"

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
