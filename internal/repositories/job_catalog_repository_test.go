package repositories_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"dispatch-system/internal/entities"
	"dispatch-system/internal/repositories"
	"dispatch-system/internal/repositories/memory"
	apperrors "dispatch-system/pkg/errors"
)

type countingCatalog struct {
	calls int
	job   *entities.CatalogJob
}

func (c *countingCatalog) FindByID(ctx context.Context, id string) (*entities.CatalogJob, error) {
	c.calls++
	if c.job == nil || c.job.ID != id {
		return nil, apperrors.NewNotFoundError("job", id)
	}
	j := *c.job
	return &j, nil
}

func TestCachedJobCatalog_ReadsThroughOnce(t *testing.T) {
	ctx := context.Background()
	high := entities.PriorityHigh
	source := &countingCatalog{job: &entities.CatalogJob{ID: "j1", Title: "Замена фильтра", RequiredSkills: []string{"hvac"}, Priority: &high}}
	catalog := repositories.NewCachedJobCatalog(source, memory.NewCache(), time.Minute, zap.NewNop())

	first, err := catalog.FindByID(ctx, "j1")
	require.NoError(t, err)
	second, err := catalog.FindByID(ctx, "j1")
	require.NoError(t, err)

	assert.Equal(t, 1, source.calls)
	assert.Equal(t, first, second)
	assert.Equal(t, entities.PriorityHigh, *second.Priority)
}

func TestCachedJobCatalog_DoesNotCacheMisses(t *testing.T) {
	ctx := context.Background()
	source := &countingCatalog{}
	catalog := repositories.NewCachedJobCatalog(source, memory.NewCache(), time.Minute, zap.NewNop())

	_, err := catalog.FindByID(ctx, "nope")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	_, err = catalog.FindByID(ctx, "nope")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.Equal(t, 2, source.calls)
}
