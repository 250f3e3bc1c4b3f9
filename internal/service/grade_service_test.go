package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/academy-manager/academy-api/internal/models"
	appErrors "github.com/academy-manager/academy-api/pkg/errors"
)

type memGrades struct{ items map[string]models.Grade }

func (m *memGrades) FindByID(ctx context.Context, id string) (*models.Grade, error) {
	g, ok := m.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &g, nil
}

func (m *memGrades) ListByEnrollment(ctx context.Context, enrollmentID string) ([]models.Grade, error) {
	var out []models.Grade
	for _, g := range m.items {
		if g.EnrollmentID == enrollmentID {
			out = append(out, g)
		}
	}
	return out, nil
}

func (m *memGrades) Create(ctx context.Context, g *models.Grade) error {
	g.ID = fmt.Sprintf("g-%d", len(m.items)+1)
	m.items[g.ID] = *g
	return nil
}

func (m *memGrades) Update(ctx context.Context, g *models.Grade) error {
	m.items[g.ID] = *g
	return nil
}

func (m *memGrades) Delete(ctx context.Context, id string) error {
	delete(m.items, id)
	return nil
}

func TestGradeServiceScoreBounds(t *testing.T) {
	enrollments := newFakeEnrollments()
	enrollments.items["enr-1"] = models.Enrollment{ID: "enr-1"}
	svc := NewGradeService(&memGrades{items: map[string]models.Grade{}}, enrollments, nil, nil)
	ctx := context.Background()

	for _, score := range []string{"-0.01", "10.01"} {
		_, err := svc.Create(ctx, "enr-1", GradeRequest{Score: dec(score)})
		assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code), score)
	}
	for _, score := range []string{"0", "10", "7.25"} {
		_, err := svc.Create(ctx, "enr-1", GradeRequest{Score: dec(score)})
		assert.NoError(t, err, score)
	}

	grades, err := svc.ListByEnrollment(ctx, "enr-1")
	require.NoError(t, err)
	assert.Len(t, grades, 3)
}

func TestGradeServiceRequiresEnrollment(t *testing.T) {
	svc := NewGradeService(&memGrades{items: map[string]models.Grade{}}, newFakeEnrollments(), nil, nil)

	_, err := svc.Create(context.Background(), "missing", GradeRequest{Score: dec("5")})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound.Code))
	_, err = svc.ListByEnrollment(context.Background(), "missing")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound.Code))
}

func TestGradeServiceUpdateAndDelete(t *testing.T) {
	enrollments := newFakeEnrollments()
	enrollments.items["enr-1"] = models.Enrollment{ID: "enr-1"}
	grades := &memGrades{items: map[string]models.Grade{}}
	svc := NewGradeService(grades, enrollments, nil, nil)
	ctx := context.Background()

	grade, err := svc.Create(ctx, "enr-1", GradeRequest{Score: dec("4")})
	require.NoError(t, err)

	note := "resubmitted"
	updated, err := svc.Update(ctx, grade.ID, GradeRequest{Score: dec("6.5"), Comments: &note})
	require.NoError(t, err)
	assert.True(t, updated.Score.Equal(dec("6.5")))
	assert.Equal(t, "resubmitted", *updated.Comments)

	require.NoError(t, svc.Delete(ctx, grade.ID))
	assert.True(t, appErrors.HasCode(svc.Delete(ctx, grade.ID), appErrors.ErrNotFound.Code))
}
