package listeners

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"dispatch-system/internal/events"
	"dispatch-system/internal/repositories"
	"dispatch-system/pkg/config"
	"dispatch-system/pkg/eventbus"
)

// AuditListener сохраняет журналы выездов и статусов техников.
// Доставка at-least-once: повтор безопасен, хранилище отбрасывает дубликаты по event_id.
type AuditListener struct {
	dispatchHistory repositories.DispatchHistoryRepositoryInterface
	statusHistory   repositories.TechnicianStatusHistoryRepositoryInterface
	cfg             config.AuditConfig
	logger          *zap.Logger
}

func NewAuditListener(
	dispatchHistory repositories.DispatchHistoryRepositoryInterface,
	statusHistory repositories.TechnicianStatusHistoryRepositoryInterface,
	cfg config.AuditConfig,
	logger *zap.Logger,
) *AuditListener {
	return &AuditListener{
		dispatchHistory: dispatchHistory,
		statusHistory:   statusHistory,
		cfg:             cfg,
		logger:          logger,
	}
}

func (l *AuditListener) Register(bus *eventbus.Bus) {
	bus.Subscribe(events.DispatchHistoryRecordedName, l.handleDispatchHistory)
	bus.Subscribe(events.TechnicianStatusRecordedName, l.handleTechnicianStatus)
	l.logger.Info("AuditListener подписан на события журнала")
}

func (l *AuditListener) handleDispatchHistory(ctx context.Context, e eventbus.Event) error {
	event, ok := e.(events.DispatchHistoryRecorded)
	if !ok {
		return fmt.Errorf("неожиданный тип события %T", e)
	}
	l.persist(ctx, "dispatch_history", event.Event.EventID, func(ctx context.Context) error {
		return l.dispatchHistory.Append(ctx, &event.Event)
	})
	return nil
}

func (l *AuditListener) handleTechnicianStatus(ctx context.Context, e eventbus.Event) error {
	event, ok := e.(events.TechnicianStatusRecorded)
	if !ok {
		return fmt.Errorf("неожиданный тип события %T", e)
	}
	l.persist(ctx, "technician_status_history", event.Event.EventID, func(ctx context.Context) error {
		return l.statusHistory.Append(ctx, &event.Event)
	})
	return nil
}

// persist повторяет запись с удвоением паузы. Итоговая неудача только логируется.
func (l *AuditListener) persist(ctx context.Context, journal, eventID string, write func(context.Context) error) {
	attempts := l.cfg.RetryAttempts
	if attempts < 1 {
		attempts = 1
	}
	backoff := l.cfg.RetryBackoff

	var err error
	for attempt := 1; ; attempt++ {
		if err = write(ctx); err == nil {
			return
		}
		if attempt >= attempts {
			break
		}
		l.logger.Debug("Повтор записи журнала",
			zap.String("journal", journal), zap.String("eventID", eventID),
			zap.Int("attempt", attempt), zap.Error(err))

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			err = ctx.Err()
		case <-timer.C:
		}
		if ctx.Err() != nil {
			break
		}
		backoff *= 2
	}

	l.logger.Warn("Запись журнала не сохранена",
		zap.String("journal", journal), zap.String("eventID", eventID), zap.Error(err))
}
