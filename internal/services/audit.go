package services

import (
	"context"

	"go.uber.org/zap"

	"dispatch-system/internal/entities"
	"dispatch-system/internal/events"
	"dispatch-system/internal/repositories"
	"dispatch-system/pkg/eventbus"
)

// AuditServiceInterface - журнал изменений. Запись никогда не возвращает ошибку вызывающему.
type AuditServiceInterface interface {
	RecordDispatch(ctx context.Context, event entities.DispatchHistoryEvent, snapshot *entities.Dispatch)
	RecordStatus(ctx context.Context, event entities.TechnicianStatusEvent)
	DispatchHistory(ctx context.Context, dispatchID string) ([]*entities.DispatchHistoryEvent, error)
	StatusHistory(ctx context.Context, technicianID string) ([]*entities.TechnicianStatusEvent, error)
}

type AuditService struct {
	bus             *eventbus.Bus
	dispatchHistory repositories.DispatchHistoryRepositoryInterface
	statusHistory   repositories.TechnicianStatusHistoryRepositoryInterface
	logger          *zap.Logger
}

func NewAuditService(
	bus *eventbus.Bus,
	dispatchHistory repositories.DispatchHistoryRepositoryInterface,
	statusHistory repositories.TechnicianStatusHistoryRepositoryInterface,
	logger *zap.Logger,
) AuditServiceInterface {
	return &AuditService{
		bus:             bus,
		dispatchHistory: dispatchHistory,
		statusHistory:   statusHistory,
		logger:          logger,
	}
}

// RecordDispatch публикует событие после коммита; сохранение выполняет AuditListener.
func (s *AuditService) RecordDispatch(ctx context.Context, event entities.DispatchHistoryEvent, snapshot *entities.Dispatch) {
	if event.EventID == "" {
		event.EventID = newID()
	}
	s.bus.Publish(ctx, events.DispatchHistoryRecorded{Event: event, Dispatch: snapshot.Clone()})
}

func (s *AuditService) RecordStatus(ctx context.Context, event entities.TechnicianStatusEvent) {
	if event.EventID == "" {
		event.EventID = newID()
	}
	s.bus.Publish(ctx, events.TechnicianStatusRecorded{Event: event})
}

// DispatchHistory доступна и для мягко удаленных выездов.
func (s *AuditService) DispatchHistory(ctx context.Context, dispatchID string) ([]*entities.DispatchHistoryEvent, error) {
	return s.dispatchHistory.FindByDispatch(ctx, dispatchID)
}

func (s *AuditService) StatusHistory(ctx context.Context, technicianID string) ([]*entities.TechnicianStatusEvent, error) {
	return s.statusHistory.FindByTechnician(ctx, technicianID)
}
