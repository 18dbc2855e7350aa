package listeners

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"dispatch-system/internal/entities"
	"dispatch-system/internal/events"
	"dispatch-system/pkg/eventbus"
	"dispatch-system/pkg/websocket"
)

// BoardBroadcaster - то, что слушателю нужно от websocket.Hub.
type BoardBroadcaster interface {
	Broadcast(messageType string, payload interface{}) error
	SendMessageToActor(actorID string, messageType string, payload interface{}) error
}

// BoardListener транслирует события журнала на доску диспетчера.
type BoardListener struct {
	hub    BoardBroadcaster
	logger *zap.Logger
}

func NewBoardListener(hub BoardBroadcaster, logger *zap.Logger) *BoardListener {
	return &BoardListener{hub: hub, logger: logger}
}

func (l *BoardListener) Register(bus *eventbus.Bus) {
	bus.Subscribe(events.DispatchHistoryRecordedName, l.handleDispatchHistory)
	bus.Subscribe(events.TechnicianStatusRecordedName, l.handleTechnicianStatus)
}

func (l *BoardListener) handleDispatchHistory(ctx context.Context, e eventbus.Event) error {
	event, ok := e.(events.DispatchHistoryRecorded)
	if !ok {
		return fmt.Errorf("неожиданный тип события %T", e)
	}

	payload := websocket.BoardPayload{
		EventID:    event.Event.EventID,
		DispatchID: event.Event.DispatchID,
		Action:     string(event.Event.Action),
		ActorID:    event.Event.ChangedBy,
		OccurredAt: event.Event.ChangedAt,
	}
	if event.Dispatch != nil {
		payload.Status = string(event.Dispatch.Status)
	}
	if err := l.hub.Broadcast(websocket.MessageDispatchHistory, payload); err != nil {
		return err
	}

	// Назначенным техникам - личное уведомление.
	if event.Dispatch != nil && (event.Event.Action == entities.ActionAssigned || event.Event.Action == entities.ActionReassigned) {
		for _, a := range event.Dispatch.Technicians {
			if err := l.hub.SendMessageToActor(a.TechnicianID, websocket.MessageDispatchAssigned, event.Dispatch); err != nil {
				l.logger.Warn("Не удалось уведомить техника", zap.String("technicianID", a.TechnicianID), zap.Error(err))
			}
		}
	}
	return nil
}

func (l *BoardListener) handleTechnicianStatus(ctx context.Context, e eventbus.Event) error {
	event, ok := e.(events.TechnicianStatusRecorded)
	if !ok {
		return fmt.Errorf("неожиданный тип события %T", e)
	}
	return l.hub.Broadcast(websocket.MessageTechnicianStatus, websocket.BoardPayload{
		EventID:      event.Event.EventID,
		TechnicianID: event.Event.TechnicianID,
		Action:       "status_changed",
		Status:       string(event.Event.Status),
		ActorID:      event.Event.ChangedBy,
		OccurredAt:   event.Event.ChangedAt,
	})
}
