package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"dispatch-system/internal/repositories"
	"dispatch-system/pkg/constants"
	apperrors "dispatch-system/pkg/errors"
)

// DispatchNumberGeneratorInterface выдает номер вида PREFIX-YYYYMMDD-NNNN.
type DispatchNumberGeneratorInterface interface {
	Next(ctx context.Context) (string, error)
}

type DispatchNumberGenerator struct {
	cache  repositories.CacheRepositoryInterface
	prefix string
	now    clock
	logger *zap.Logger
}

func NewDispatchNumberGenerator(cache repositories.CacheRepositoryInterface, prefix string, logger *zap.Logger) DispatchNumberGeneratorInterface {
	if prefix == "" {
		prefix = "DSP"
	}
	return &DispatchNumberGenerator{cache: cache, prefix: prefix, now: systemClock, logger: logger}
}

func (g *DispatchNumberGenerator) Next(ctx context.Context) (string, error) {
	day := g.now().Format("20060102")
	key := fmt.Sprintf(constants.CacheKeyDispatchSequence, day)

	n, err := g.cache.Incr(ctx, key)
	if err != nil {
		g.logger.Error("не удалось получить номер выезда", zap.String("key", key), zap.Error(err))
		return "", apperrors.NewStorageError("dispatch.number", err)
	}
	if n == 1 {
		// Счетчик дня живет двое суток.
		if _, err := g.cache.Expire(ctx, key, 48*time.Hour); err != nil {
			g.logger.Warn("не удалось выставить TTL счетчика", zap.String("key", key), zap.Error(err))
		}
	}
	return fmt.Sprintf("%s-%s-%04d", g.prefix, day, n), nil
}
