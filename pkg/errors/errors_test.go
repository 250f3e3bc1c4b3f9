package errors

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromErrorKeepsTypedError(t *testing.T) {
	err := Clone(ErrRoleMismatch, "user is not a STUDENT: u-1")
	wrapped := fmt.Errorf("create enrollment: %w", err)

	got := FromError(wrapped)
	assert.Equal(t, "ROLE_MISMATCH", got.Code)
	assert.Equal(t, http.StatusUnprocessableEntity, got.Status)
	assert.Equal(t, "user is not a STUDENT: u-1", got.Message)
}

func TestFromErrorDefaultsToInternal(t *testing.T) {
	got := FromError(sql.ErrConnDone)
	assert.Equal(t, ErrInternal.Code, got.Code)
	assert.ErrorIs(t, got, sql.ErrConnDone)
	assert.Nil(t, FromError(nil))
}

func TestHasCode(t *testing.T) {
	assert.True(t, HasCode(Clone(ErrDuplicateKey, "code taken"), ErrDuplicateKey.Code))
	assert.True(t, HasCode(fmt.Errorf("x: %w", ErrInvalidDateRange), "INVALID_DATE_RANGE"))
	assert.False(t, HasCode(sql.ErrNoRows, ErrNotFound.Code))
}

func TestCloneDoesNotMutateSentinel(t *testing.T) {
	clone := Clone(ErrNotFound, "enrollment not found: e-1")
	assert.Equal(t, "resource not found", ErrNotFound.Message)
	assert.Equal(t, "enrollment not found: e-1", clone.Message)
	assert.Equal(t, ErrNotFound.Status, clone.Status)
}

func TestIsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("update offering: %w", Clone(ErrInvalidDateRange, "end date 2024-01-01 is not after start date 2024-01-01"))
	assert.True(t, errors.Is(err, ErrInvalidDateRange))
	assert.False(t, errors.Is(err, ErrRoleMismatch))
	assert.False(t, errors.Is(sql.ErrNoRows, ErrNotFound))
}
