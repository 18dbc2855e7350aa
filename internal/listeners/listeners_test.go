package listeners

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"dispatch-system/internal/entities"
	"dispatch-system/internal/events"
	"dispatch-system/internal/repositories"
	"dispatch-system/internal/repositories/memory"
	"dispatch-system/pkg/config"
	"dispatch-system/pkg/eventbus"
)

// flakyHistory падает failures раз, затем пишет в настоящее хранилище.
type flakyHistory struct {
	repositories.DispatchHistoryRepositoryInterface
	mu       sync.Mutex
	failures int
	calls    int
}

func (f *flakyHistory) Append(ctx context.Context, e *entities.DispatchHistoryEvent) error {
	f.mu.Lock()
	f.calls++
	fail := f.calls <= f.failures
	f.mu.Unlock()
	if fail {
		return errors.New("connection reset")
	}
	return f.DispatchHistoryRepositoryInterface.Append(ctx, e)
}

func historyEvent(id string) events.DispatchHistoryRecorded {
	return events.DispatchHistoryRecorded{Event: entities.DispatchHistoryEvent{
		EventID: id, DispatchID: "d1", Action: entities.ActionCreated, ChangedBy: "u1", ChangedAt: time.Now(),
	}}
}

func TestAuditListener_RetriesUntilStored(t *testing.T) {
	store := memory.NewStore()
	history := &flakyHistory{DispatchHistoryRepositoryInterface: store.DispatchHistory(), failures: 2}
	bus := eventbus.New(zap.NewNop())
	NewAuditListener(history, store.StatusHistory(), config.AuditConfig{RetryAttempts: 3, RetryBackoff: time.Millisecond}, zap.NewNop()).Register(bus)

	bus.Publish(context.Background(), historyEvent("e1"))
	require.NoError(t, bus.Wait(context.Background()))

	stored, err := store.DispatchHistory().FindByDispatch(context.Background(), "d1")
	require.NoError(t, err)
	assert.Len(t, stored, 1)
	assert.Equal(t, 3, history.calls)
}

func TestAuditListener_DuplicateDeliveryKeepsOneRow(t *testing.T) {
	store := memory.NewStore()
	bus := eventbus.New(zap.NewNop())
	NewAuditListener(store.DispatchHistory(), store.StatusHistory(), config.AuditConfig{RetryAttempts: 1}, zap.NewNop()).Register(bus)

	bus.Publish(context.Background(), historyEvent("e1"))
	bus.Publish(context.Background(), historyEvent("e1"))
	require.NoError(t, bus.Wait(context.Background()))

	stored, err := store.DispatchHistory().FindByDispatch(context.Background(), "d1")
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}

func TestAuditListener_FinalFailureLoggedAtWarn(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	store := memory.NewStore()
	history := &flakyHistory{DispatchHistoryRepositoryInterface: store.DispatchHistory(), failures: 10}
	bus := eventbus.New(zap.NewNop())
	NewAuditListener(history, store.StatusHistory(), config.AuditConfig{RetryAttempts: 2, RetryBackoff: time.Millisecond}, zap.New(core)).Register(bus)

	bus.Publish(context.Background(), historyEvent("e1"))
	require.NoError(t, bus.Wait(context.Background()))

	warnings := logs.FilterLevelExact(zapcore.WarnLevel).All()
	require.Len(t, warnings, 1)
	assert.Equal(t, "Запись журнала не сохранена", warnings[0].Message)
	assert.Equal(t, 2, history.calls)
}

type recordingHub struct {
	mu        sync.Mutex
	broadcast []string
	personal  map[string][]string
}

func (h *recordingHub) Broadcast(messageType string, payload interface{}) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.broadcast = append(h.broadcast, messageType)
	return nil
}

func (h *recordingHub) SendMessageToActor(actorID, messageType string, payload interface{}) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.personal == nil {
		h.personal = make(map[string][]string)
	}
	h.personal[actorID] = append(h.personal[actorID], messageType)
	return nil
}

func TestBoardListener_NotifiesAssignedTechnicians(t *testing.T) {
	hub := &recordingHub{}
	bus := eventbus.New(zap.NewNop())
	NewBoardListener(hub, zap.NewNop()).Register(bus)

	ev := historyEvent("e1")
	ev.Event.Action = entities.ActionAssigned
	ev.Dispatch = &entities.Dispatch{ID: "d1", Status: entities.DispatchAssigned,
		Technicians: []entities.TechnicianAssignment{{TechnicianID: "t1"}, {TechnicianID: "t2"}}}
	bus.Publish(context.Background(), ev)
	bus.Publish(context.Background(), events.TechnicianStatusRecorded{Event: entities.TechnicianStatusEvent{EventID: "s1", TechnicianID: "t1"}})
	require.NoError(t, bus.Wait(context.Background()))

	assert.ElementsMatch(t, []string{"dispatch.history", "technician.status"}, hub.broadcast)
	assert.Equal(t, []string{"dispatch.assigned"}, hub.personal["t1"])
	assert.Equal(t, []string{"dispatch.assigned"}, hub.personal["t2"])
}
