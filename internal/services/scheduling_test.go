package services

import (
	"context"
	"testing"

	"github.com/aarondl/null/v8"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dispatch-system/internal/approval"
	"dispatch-system/internal/dto"
	"dispatch-system/internal/entities"
	"dispatch-system/internal/repositories"
	apperrors "dispatch-system/pkg/errors"
	"dispatch-system/pkg/utils"
)

func TestLeave_Validation(t *testing.T) {
	f := newFixture(t)
	f.seedTechnician(t, "T1")

	cases := []struct {
		name string
		in   dto.CreateLeaveDTO
	}{
		{"конец раньше начала", dto.CreateLeaveDTO{LeaveType: "vacation", StartDate: "2025-06-10", EndDate: "2025-06-09"}},
		{"неизвестный тип", dto.CreateLeaveDTO{LeaveType: "holiday", StartDate: "2025-06-10", EndDate: "2025-06-10"}},
		{"частичный день без конца", dto.CreateLeaveDTO{LeaveType: "personal", StartDate: "2025-06-10", EndDate: "2025-06-10", StartTime: "10:00"}},
		{"частичный день наоборот", dto.CreateLeaveDTO{LeaveType: "personal", StartDate: "2025-06-10", EndDate: "2025-06-10", StartTime: "14:00", EndTime: "10:00"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.leaves.Create(asDispatcher, "T1", tc.in)
			assert.ErrorIs(t, err, apperrors.ErrValidation)
		})
	}

	_, err := f.leaves.Create(asDispatcher, "ghost", dto.CreateLeaveDTO{LeaveType: "sick", StartDate: "2025-06-10", EndDate: "2025-06-10"})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestLeave_DecisionLifecycle(t *testing.T) {
	f := newFixture(t)
	f.seedTechnician(t, "T1")

	leave, err := f.leaves.Create(asTechnician("T1"), "T1", dto.CreateLeaveDTO{
		LeaveType: "training", StartDate: "2025-06-10", EndDate: "2025-06-12", Reason: null.StringFrom("курсы"),
	})
	require.NoError(t, err)
	assert.Equal(t, approval.StatusPending, leave.Status)

	// Отменить можно только согласованный отпуск.
	_, err = f.leaves.Cancel(asApprover, leave.ID, nil)
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)

	approved, err := f.leaves.Approve(asApprover, leave.ID, utils.ToPtr("ок"))
	require.NoError(t, err)
	assert.Equal(t, approval.StatusApproved, approved.Status)
	assert.Equal(t, "appr-1", *approved.DecidedBy)
	assert.Equal(t, "ок", *approved.Comment)

	_, err = f.leaves.Reject(asApprover, leave.ID, nil)
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)

	cancelled, err := f.leaves.Cancel(asApprover, leave.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, approval.StatusCancelled, cancelled.Status)

	_, err = f.leaves.Approve(asApprover, leave.ID, nil)
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)
}

func TestLeave_TechnicianScope(t *testing.T) {
	f := newFixture(t)
	f.seedTechnician(t, "T1")
	f.seedTechnician(t, "T2")
	in := dto.CreateLeaveDTO{LeaveType: "sick", StartDate: "2025-06-10", EndDate: "2025-06-10"}

	_, err := f.leaves.Create(asTechnician("T1"), "T2", in)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	leave, err := f.leaves.Create(asTechnician("T1"), "T1", in)
	require.NoError(t, err)
	_, err = f.leaves.Approve(asTechnician("T1"), leave.ID, nil)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	_, err = f.leaves.ListByTechnician(asTechnician("T2"), "T1")
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
	own, err := f.leaves.ListByTechnician(asTechnician("T1"), "T1")
	require.NoError(t, err)
	assert.Len(t, own, 1)
}

func TestWorkingHours_Validation(t *testing.T) {
	f := newFixture(t)
	f.seedTechnician(t, "T1")

	for name, in := range map[string]dto.WorkingHoursDTO{
		"день 7":            {DayOfWeek: 7, StartTime: "08:00", EndTime: "16:00"},
		"начало равно концу": {DayOfWeek: 2, StartTime: "10:00", EndTime: "10:00"},
		"начало после конца": {DayOfWeek: 2, StartTime: "17:00", EndTime: "09:00"},
		"период наоборот":    {DayOfWeek: 2, StartTime: "08:00", EndTime: "16:00", EffectiveFrom: "2025-07-01", EffectiveUntil: "2025-06-01"},
	} {
		_, err := f.hours.Create(asDispatcher, "T1", in)
		assert.ErrorIs(t, err, apperrors.ErrValidation, name)
	}

	_, err := f.hours.Create(asDispatcher, "ghost", dto.WorkingHoursDTO{DayOfWeek: 2, StartTime: "08:00", EndTime: "16:00"})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	_, err = f.hours.Create(asTechnician("T1"), "T1", dto.WorkingHoursDTO{DayOfWeek: 2, StartTime: "08:00", EndTime: "16:00"})
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
}

func TestWorkingHours_CreateAndDeactivate(t *testing.T) {
	f := newFixture(t)
	f.seedTechnician(t, "T1")
	ctx := context.Background()
	tuesday := monday.AddDays(1)

	w, err := f.hours.Create(asDispatcher, "T1", dto.WorkingHoursDTO{DayOfWeek: 2, StartTime: "09:00", EndTime: "13:00"})
	require.NoError(t, err)
	assert.True(t, w.IsActive)

	ok, err := f.availability.IsAvailable(ctx, "T1", tuesday, window(t, "10:00", "12:00"))
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = f.hours.Update(asDispatcher, w.ID, dto.WorkingHoursDTO{
		DayOfWeek: 2, StartTime: "09:00", EndTime: "13:00", IsActive: null.BoolFrom(false),
	})
	require.NoError(t, err)

	ok, err = f.availability.IsAvailable(ctx, "T1", tuesday, window(t, "10:00", "12:00"))
	require.NoError(t, err)
	assert.False(t, ok)

	list, err := f.hours.ListByTechnician(asTechnician("T1"), "T1")
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestTechnician_ChangeStatusRecordsEvent(t *testing.T) {
	f := newFixture(t)
	f.seedTechnician(t, "T1")

	tech, err := f.technicians.ChangeStatus(asTechnician("T1"), "T1", dto.ChangeStatusDTO{
		Status: "busy", Reason: null.StringFrom("на объекте"),
	})
	require.NoError(t, err)
	assert.Equal(t, entities.TechnicianBusy, tech.CurrentStatus)

	// Тот же статус не пишет событие.
	_, err = f.technicians.ChangeStatus(asTechnician("T1"), "T1", dto.ChangeStatusDTO{Status: "busy"})
	require.NoError(t, err)

	f.flush(t)
	events, err := f.technicians.StatusHistory(asDispatcher, "T1")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, entities.TechnicianBusy, events[0].Status)
	assert.Equal(t, entities.TechnicianAvailable, *events[0].ChangedFrom)
	assert.Equal(t, "T1", events[0].ChangedBy)
	assert.Equal(t, "на объекте", *events[0].Reason)
	assert.NotEmpty(t, events[0].EventID)
}

// lockingDirectory считает чтения справочника с блокировкой и без.
type lockingDirectory struct {
	repositories.TechnicianDirectoryInterface
	locked, plain int
}

func (d *lockingDirectory) FindByID(ctx context.Context, id string) (*entities.Technician, error) {
	d.plain++
	return d.TechnicianDirectoryInterface.FindByID(ctx, id)
}

func (d *lockingDirectory) FindForUpdate(ctx context.Context, tx pgx.Tx, id string) (*entities.Technician, error) {
	d.locked++
	return d.TechnicianDirectoryInterface.FindForUpdate(ctx, tx, id)
}

func TestTechnician_ChangeStatusReadsUnderLock(t *testing.T) {
	f := newFixture(t)
	f.seedTechnician(t, "T1")
	dir := &lockingDirectory{TechnicianDirectoryInterface: f.store.Technicians()}
	f.technicians.directory = dir

	tech, err := f.technicians.ChangeStatus(asTechnician("T1"), "T1", dto.ChangeStatusDTO{Status: "offline"})
	require.NoError(t, err)
	assert.Equal(t, entities.TechnicianOffline, tech.CurrentStatus)
	assert.Equal(t, 1, dir.locked)
	assert.Zero(t, dir.plain)
}

func TestTechnician_ChangeStatusValidationAndScope(t *testing.T) {
	f := newFixture(t)
	f.seedTechnician(t, "T1")
	f.seedTechnician(t, "T2")

	_, err := f.technicians.ChangeStatus(asDispatcher, "T1", dto.ChangeStatusDTO{Status: "sleeping"})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
	_, err = f.technicians.ChangeStatus(asTechnician("T2"), "T1", dto.ChangeStatusDTO{Status: "offline"})
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
	_, err = f.technicians.ChangeStatus(asDispatcher, "ghost", dto.ChangeStatusDTO{Status: "offline"})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestTechnician_SyncKeepsCurrentStatus(t *testing.T) {
	f := newFixture(t)
	f.seedTechnician(t, "T1", "hvac")
	require.NoError(t, f.store.Technicians().UpdateStatus(context.Background(), nil, "T1", entities.TechnicianOffline))

	_, err := f.technicians.Sync(asDispatcher, dto.SyncTechnicianDTO{ID: "T1", Name: "Иванов", Role: "technician"})
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	tech, err := f.technicians.Sync(asAdmin, dto.SyncTechnicianDTO{
		ID: "T1", Name: "Иванов", Role: "technician", Skills: []string{"hvac", "electrical", "hvac"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Иванов", tech.Name)
	assert.Equal(t, []string{"hvac", "electrical"}, tech.Skills)
	assert.Equal(t, entities.TechnicianOffline, tech.CurrentStatus)
}
