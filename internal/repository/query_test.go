package repository

import (
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestNewPageNormalises(t *testing.T) {
	p := newPage(0, 500)
	assert.Equal(t, 1, p.number)
	assert.Equal(t, defaultPageSize, p.size)
	assert.Equal(t, "LIMIT 20 OFFSET 0", p.clause())

	p = newPage(3, 10)
	assert.Equal(t, 20, p.offset())
}

func TestOrderClauseUsesAllowlist(t *testing.T) {
	allowed := map[string]string{"code": "e.code", "enrolled_at": "e.enrolled_at"}
	assert.Equal(t, "ORDER BY e.code ASC", orderClause("code", "asc", allowed, "enrolled_at"))
	assert.Equal(t, "ORDER BY e.enrolled_at DESC", orderClause("1; DROP TABLE users", "sideways", allowed, "enrolled_at"))
}

func TestConditionsNumberPlaceholders(t *testing.T) {
	var c conditions
	c.add("e.student_id = ?", "stu-1")
	c.add("(LOWER(u.email) LIKE ? OR LOWER(p.last_name) LIKE ?)", "%ana%")
	assert.Equal(t, " WHERE e.student_id = $1 AND (LOWER(u.email) LIKE $2 OR LOWER(p.last_name) LIKE $2)", c.where())
	assert.Len(t, c.args, 2)
}

func TestTranslateErrorDetectsUniqueViolation(t *testing.T) {
	err := translateError(&pq.Error{Code: "23505", Constraint: "enrollments_code_key"})
	assert.True(t, errors.Is(err, ErrDuplicateKey))
	assert.Equal(t, "enrollments_code_key", DuplicateConstraint(fmt.Errorf("create enrollment: %w", err)))

	other := errors.New("boom")
	assert.Same(t, other, translateError(other))
	assert.False(t, errors.Is(translateError(&pq.Error{Code: "23503"}), ErrDuplicateKey))
}
