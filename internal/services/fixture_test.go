package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"dispatch-system/internal/authz"
	"dispatch-system/internal/dto"
	"dispatch-system/internal/entities"
	"dispatch-system/internal/listeners"
	"dispatch-system/internal/repositories/memory"
	"dispatch-system/pkg/config"
	"dispatch-system/pkg/constants"
	"dispatch-system/pkg/contextkeys"
	"dispatch-system/pkg/eventbus"
	"dispatch-system/pkg/types"
)

// 2025-06-02 - понедельник.
var monday = civil.Date{Year: 2025, Month: 6, Day: 2}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fixture struct {
	store *memory.Store
	bus   *eventbus.Bus
	cache *memory.Cache
	clock *fakeClock
	cfg   config.DispatchConfig

	audit        AuditServiceInterface
	availability AvailabilityServiceInterface
	eligibility  EligibilityServiceInterface
	dispatches   *DispatchService
	costs        *CostEntryService
	leaves       *LeaveService
	hours        *WorkingHoursService
	technicians  *TechnicianService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := zap.NewNop()
	store := memory.NewStore()
	bus := eventbus.New(logger)
	listeners.NewAuditListener(store.DispatchHistory(), store.StatusHistory(),
		config.AuditConfig{RetryAttempts: 3, RetryBackoff: time.Millisecond}, logger).Register(bus)

	cfg := config.DispatchConfig{MaxDailyDispatches: 4, EligibilityConcurrency: 3, DefaultCurrency: "EUR"}
	gk := authz.NewGatekeeper()
	clk := &fakeClock{t: time.Date(2025, 6, 2, 7, 0, 0, 0, time.UTC)}
	cache := memory.NewCache()

	audit := NewAuditService(bus, store.DispatchHistory(), store.StatusHistory(), logger)
	availability := NewAvailabilityService(store.Technicians(), store.WorkingHours(), store.Leaves(), logger)
	eligibility := NewEligibilityService(store.Technicians(), store.Dispatches(), availability, cfg, logger)

	numbers := NewDispatchNumberGenerator(cache, "DSP", logger).(*DispatchNumberGenerator)
	numbers.now = clk.now

	dispatches := NewDispatchService(store.TxManager(), store.Dispatches(), store.Technicians(), store.Jobs(),
		eligibility, audit, numbers, gk, logger).(*DispatchService)
	dispatches.now = clk.now

	costs := NewCostEntryService(store.TxManager(), store.Dispatches(), store.TimeEntries(), store.Expenses(),
		store.Materials(), audit, gk, cfg, logger).(*CostEntryService)
	costs.now = clk.now

	leaves := NewLeaveService(store.TxManager(), store.Leaves(), store.Technicians(), gk, logger).(*LeaveService)
	leaves.now = clk.now

	hours := NewWorkingHoursService(store.WorkingHours(), store.Technicians(), gk, logger).(*WorkingHoursService)
	hours.now = clk.now

	technicians := NewTechnicianService(store.TxManager(), store.Technicians(), audit, gk, logger).(*TechnicianService)
	technicians.now = clk.now

	return &fixture{
		store: store, bus: bus, cache: cache, clock: clk, cfg: cfg,
		audit: audit, availability: availability, eligibility: eligibility,
		dispatches: dispatches, costs: costs, leaves: leaves, hours: hours, technicians: technicians,
	}
}

func actorCtx(id, role string) context.Context {
	ctx := context.WithValue(context.Background(), contextkeys.ActorIDKey, id)
	return context.WithValue(ctx, contextkeys.ActorRoleKey, role)
}

var (
	asDispatcher = actorCtx("disp-1", constants.RoleDispatcher)
	asApprover   = actorCtx("appr-1", constants.RoleApprover)
	asAdmin      = actorCtx("admin-1", constants.RoleAdmin)
)

func asTechnician(id string) context.Context {
	return actorCtx(id, constants.RoleTechnician)
}

func window(t *testing.T, start, end string) types.TimeWindow {
	t.Helper()
	w, err := types.ParseTimeWindow(start, end)
	require.NoError(t, err)
	return w
}

// seedTechnician добавляет техника с рабочими часами по понедельникам 08:00-16:00.
func (f *fixture) seedTechnician(t *testing.T, id string, skills ...string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, f.store.Technicians().Upsert(ctx, &entities.Technician{
		ID: id, Name: "Техник " + id, Role: constants.RoleTechnician, Skills: skills,
	}))
	require.NoError(t, f.store.WorkingHours().Create(ctx, &entities.WorkingHoursWindow{
		ID: "wh-" + id, TechnicianID: id, DayOfWeek: 1, Window: window(t, "08:00", "16:00"), IsActive: true,
	}))
}

func (f *fixture) createDispatch(t *testing.T, start, end string, skills ...string) *entities.Dispatch {
	t.Helper()
	d, err := f.dispatches.Create(asDispatcher, dto.CreateDispatchDTO{
		RequiredSkills:     skills,
		ScheduledDate:      monday.String(),
		ScheduledStartTime: start,
		ScheduledEndTime:   end,
	})
	require.NoError(t, err)
	return d
}

func (f *fixture) assign(t *testing.T, dispatchID string, techIDs ...string) *entities.Dispatch {
	t.Helper()
	d, err := f.dispatches.Assign(asDispatcher, dispatchID, dto.AssignDispatchDTO{TechnicianIDs: techIDs})
	require.NoError(t, err)
	return d
}

// flush дожидается сохранения журнала слушателем.
func (f *fixture) flush(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, f.bus.Wait(ctx))
}

func (f *fixture) history(t *testing.T, dispatchID string) []entities.HistoryAction {
	t.Helper()
	f.flush(t)
	events, err := f.audit.DispatchHistory(context.Background(), dispatchID)
	require.NoError(t, err)
	actions := make([]entities.HistoryAction, 0, len(events))
	for _, e := range events {
		actions = append(actions, e.Action)
	}
	return actions
}
