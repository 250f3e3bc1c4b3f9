package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/academy-manager/academy-api/internal/models"
	"github.com/academy-manager/academy-api/internal/repository"
	appErrors "github.com/academy-manager/academy-api/pkg/errors"
)

type memSubsidies struct {
	items      map[string]models.SubsidyEntity
	referenced map[string]bool
}

func (m *memSubsidies) FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.SubsidyEntity, error) {
	e, ok := m.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &e, nil
}

func (m *memSubsidies) List(ctx context.Context, filter models.CatalogFilter) ([]models.SubsidyEntity, int, error) {
	var out []models.SubsidyEntity
	for _, e := range m.items {
		out = append(out, e)
	}
	return out, len(out), nil
}

func (m *memSubsidies) Create(ctx context.Context, e *models.SubsidyEntity) error {
	e.ID = fmt.Sprintf("sub-%d", len(m.items)+1)
	m.items[e.ID] = *e
	return nil
}

func (m *memSubsidies) Update(ctx context.Context, e *models.SubsidyEntity) error {
	m.items[e.ID] = *e
	return nil
}

func (m *memSubsidies) Delete(ctx context.Context, id string) error {
	if m.referenced[id] {
		return fmt.Errorf("delete subsidy entity: %w", repository.ErrReferenced)
	}
	delete(m.items, id)
	return nil
}

func TestSubsidyServiceLifecycle(t *testing.T) {
	repo := &memSubsidies{items: map[string]models.SubsidyEntity{}, referenced: map[string]bool{}}
	svc := NewSubsidyService(repo, nil, nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, SubsidyEntityRequest{})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))

	entity, err := svc.Create(ctx, SubsidyEntityRequest{Name: "Regional employment fund", OfficialCode: strPtr("SEPE-01")})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, entity.ID, SubsidyEntityRequest{Name: "Regional fund"})
	require.NoError(t, err)
	assert.Equal(t, "Regional fund", updated.Name)
	assert.Nil(t, updated.OfficialCode)

	items, page, err := svc.List(ctx, models.CatalogFilter{})
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Equal(t, 1, page.TotalCount)

	repo.referenced[entity.ID] = true
	assert.True(t, appErrors.HasCode(svc.Delete(ctx, entity.ID), appErrors.ErrConflict.Code))

	repo.referenced[entity.ID] = false
	require.NoError(t, svc.Delete(ctx, entity.ID))
	_, err = svc.Get(ctx, entity.ID)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound.Code))
}
