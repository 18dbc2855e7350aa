package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"dispatch-system/internal/entities"
	"dispatch-system/pkg/constants"
)

const (
	jobTable  = "service_order_jobs"
	jobFields = "id, service_order_id, title, description, work_type, estimated_duration, estimated_cost, required_skills, priority"
)

// JobCatalogInterface - каталог работ сервисных заказов, только чтение.
type JobCatalogInterface interface {
	FindByID(ctx context.Context, id string) (*entities.CatalogJob, error)
}

type jobCatalogRepository struct {
	storage *pgxpool.Pool
	logger  *zap.Logger
}

func NewJobCatalogRepository(storage *pgxpool.Pool, logger *zap.Logger) JobCatalogInterface {
	return &jobCatalogRepository{storage: storage, logger: logger}
}

func (r *jobCatalogRepository) FindByID(ctx context.Context, id string) (*entities.CatalogJob, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = $1", jobFields, jobTable)

	var j entities.CatalogJob
	var cost decimal.NullDecimal
	var priority *string
	err := r.storage.QueryRow(ctx, query, id).Scan(&j.ID, &j.ServiceOrderID, &j.Title, &j.Description, &j.WorkType,
		&j.EstimatedDuration, &cost, &j.RequiredSkills, &priority)
	if err != nil {
		return nil, notFoundOr("job.find", "job", id, err)
	}
	if cost.Valid {
		j.EstimatedCost = &cost.Decimal
	}
	if priority != nil {
		p := entities.Priority(*priority)
		j.Priority = &p
	}
	if j.RequiredSkills == nil {
		j.RequiredSkills = []string{}
	}
	return &j, nil
}

// cachedJobCatalog кладет работы каталога в кеш на ttl. Сбой кеша не мешает чтению из источника.
type cachedJobCatalog struct {
	source JobCatalogInterface
	cache  CacheRepositoryInterface
	ttl    time.Duration
	logger *zap.Logger
}

func NewCachedJobCatalog(source JobCatalogInterface, cache CacheRepositoryInterface, ttl time.Duration, logger *zap.Logger) JobCatalogInterface {
	return &cachedJobCatalog{source: source, cache: cache, ttl: ttl, logger: logger}
}

func (c *cachedJobCatalog) FindByID(ctx context.Context, id string) (*entities.CatalogJob, error) {
	key := fmt.Sprintf(constants.CacheKeyCatalogJob, id)

	raw, err := c.cache.Get(ctx, key)
	switch {
	case err == nil:
		var job entities.CatalogJob
		if jsonErr := json.Unmarshal([]byte(raw), &job); jsonErr == nil {
			return &job, nil
		}
		c.logger.Warn("Поврежденная запись каталога в кеше", zap.String("key", key))
	case !errors.Is(err, ErrCacheMiss):
		c.logger.Warn("Кеш каталога недоступен", zap.String("key", key), zap.Error(err))
	}

	job, err := c.source.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if payload, err := json.Marshal(job); err == nil {
		if err := c.cache.Set(ctx, key, payload, c.ttl); err != nil {
			c.logger.Warn("Не удалось сохранить работу каталога в кеш", zap.String("key", key), zap.Error(err))
		}
	}
	return job, nil
}
