package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/aarondl/null/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"dispatch-system/internal/dto"
	"dispatch-system/internal/entities"
	apperrors "dispatch-system/pkg/errors"
	"dispatch-system/pkg/types"
	"dispatch-system/pkg/utils"
)

type DispatchServiceSuite struct {
	suite.Suite
	f *fixture
}

func TestDispatchServiceSuite(t *testing.T) {
	suite.Run(t, new(DispatchServiceSuite))
}

func (s *DispatchServiceSuite) SetupTest() {
	s.f = newFixture(s.T())
	s.f.seedTechnician(s.T(), "A", "hvac")
	s.f.seedTechnician(s.T(), "B", "hvac", "electrical")
}

func (s *DispatchServiceSuite) TestCreate_GeneratesDailyNumberAndDefaults() {
	first := s.f.createDispatch(s.T(), "09:00", "11:00")
	second := s.f.createDispatch(s.T(), "12:00", "13:00")

	s.Equal("DSP-20250602-0001", first.DispatchNumber)
	s.Equal("DSP-20250602-0002", second.DispatchNumber)
	s.Equal(entities.DispatchPending, first.Status)
	s.Equal(entities.PriorityMedium, first.Priority)
	s.Equal([]entities.HistoryAction{entities.ActionCreated}, s.f.history(s.T(), first.ID))
}

func (s *DispatchServiceSuite) TestCreate_DuplicateNumberIsConflict() {
	in := dto.CreateDispatchDTO{DispatchNumber: "DSP-MANUAL-1"}
	_, err := s.f.dispatches.Create(asDispatcher, in)
	s.Require().NoError(err)

	_, err = s.f.dispatches.Create(asDispatcher, in)
	s.ErrorIs(err, apperrors.ErrConflict)
}

func (s *DispatchServiceSuite) TestCreate_InheritsMissingFieldsFromJob() {
	high := entities.PriorityHigh
	s.f.store.PutJob(&entities.CatalogJob{
		ID: "job-1", ServiceOrderID: "so-1", Title: "Замена компрессора",
		EstimatedDuration: utils.ToPtr(90), RequiredSkills: []string{"hvac"}, Priority: &high,
	})

	d, err := s.f.dispatches.Create(asDispatcher, dto.CreateDispatchDTO{JobID: null.StringFrom("job-1")})
	s.Require().NoError(err)
	s.Equal([]string{"hvac"}, d.RequiredSkills)
	s.Equal(entities.PriorityHigh, d.Priority)
	s.Equal(90, *d.EstimatedDuration)
	s.Equal("so-1", *d.ServiceOrderID)

	explicit, err := s.f.dispatches.Create(asDispatcher, dto.CreateDispatchDTO{
		JobID: null.StringFrom("job-1"), Priority: "low", RequiredSkills: []string{"electrical"},
	})
	s.Require().NoError(err)
	s.Equal(entities.PriorityLow, explicit.Priority)
	s.Equal([]string{"electrical"}, explicit.RequiredSkills)

	_, err = s.f.dispatches.Create(asDispatcher, dto.CreateDispatchDTO{JobID: null.StringFrom("missing")})
	s.ErrorIs(err, apperrors.ErrNotFound)
}

func (s *DispatchServiceSuite) TestCreate_RejectsPartialSchedule() {
	_, err := s.f.dispatches.Create(asDispatcher, dto.CreateDispatchDTO{ScheduledDate: "2025-06-02", ScheduledStartTime: "09:00"})
	s.ErrorIs(err, apperrors.ErrValidation)

	_, err = s.f.dispatches.Create(asDispatcher, dto.CreateDispatchDTO{
		ScheduledDate: "2025-06-02", ScheduledStartTime: "11:00", ScheduledEndTime: "09:00",
	})
	s.ErrorIs(err, apperrors.ErrValidation)
}

func (s *DispatchServiceSuite) TestCreate_TechnicianIsForbidden() {
	_, err := s.f.dispatches.Create(asTechnician("A"), dto.CreateDispatchDTO{})
	s.ErrorIs(err, apperrors.ErrForbidden)
}

func (s *DispatchServiceSuite) TestAssign_RequiresAllSkills() {
	d := s.f.createDispatch(s.T(), "09:00", "11:00", "hvac", "electrical")

	_, err := s.f.dispatches.Assign(asDispatcher, d.ID, dto.AssignDispatchDTO{TechnicianIDs: []string{"A"}})
	var eligErr *apperrors.EligibilityError
	s.Require().ErrorAs(err, &eligErr)
	s.Require().Len(eligErr.Failures, 1)
	s.Equal("A", eligErr.Failures[0].TechnicianID)
	s.Equal(apperrors.ReasonSkillMismatch, eligErr.Failures[0].Reason)

	stored, err := s.f.dispatches.FindByID(asDispatcher, d.ID)
	s.Require().NoError(err)
	s.Equal(entities.DispatchPending, stored.Status)

	assigned := s.f.assign(s.T(), d.ID, "B")
	s.Equal(entities.DispatchAssigned, assigned.Status)
	s.Equal([]string{"B"}, assigned.TechnicianIDs())
	s.Equal("disp-1", *assigned.DispatchedBy)
	s.NotNil(assigned.DispatchedAt)
	s.ElementsMatch([]entities.HistoryAction{entities.ActionCreated, entities.ActionAssigned}, s.f.history(s.T(), d.ID))
}

func (s *DispatchServiceSuite) TestAssign_UnknownTechnician() {
	d := s.f.createDispatch(s.T(), "09:00", "11:00")
	_, err := s.f.dispatches.Assign(asDispatcher, d.ID, dto.AssignDispatchDTO{TechnicianIDs: []string{"ghost"}})

	var eligErr *apperrors.EligibilityError
	s.Require().ErrorAs(err, &eligErr)
	s.Equal(apperrors.ReasonUnknown, eligErr.Failures[0].Reason)
}

func (s *DispatchServiceSuite) TestAssign_AutoSelectsLeastLoaded() {
	busy := s.f.createDispatch(s.T(), "13:00", "14:00")
	s.f.assign(s.T(), busy.ID, "A")

	d := s.f.createDispatch(s.T(), "09:00", "11:00", "hvac")
	assigned, err := s.f.dispatches.Assign(asDispatcher, d.ID, dto.AssignDispatchDTO{})
	s.Require().NoError(err)
	s.Equal([]string{"B"}, assigned.TechnicianIDs())
}

func (s *DispatchServiceSuite) TestAssign_NoEligibleCandidateFails() {
	d := s.f.createDispatch(s.T(), "09:00", "11:00", "plumbing")

	_, err := s.f.dispatches.Assign(asDispatcher, d.ID, dto.AssignDispatchDTO{})
	var eligErr *apperrors.EligibilityError
	s.Require().ErrorAs(err, &eligErr)
	s.Equal(apperrors.ReasonNoCandidates, eligErr.Failures[0].Reason)

	stored, err := s.f.dispatches.FindByID(asDispatcher, d.ID)
	s.Require().NoError(err)
	s.Equal(entities.DispatchPending, stored.Status)
	s.Empty(stored.Technicians)
	s.Equal([]entities.HistoryAction{entities.ActionCreated}, s.f.history(s.T(), d.ID))
}

func (s *DispatchServiceSuite) TestAssign_WithoutScheduleIsValidationError() {
	d, err := s.f.dispatches.Create(asDispatcher, dto.CreateDispatchDTO{})
	s.Require().NoError(err)

	_, err = s.f.dispatches.Assign(asDispatcher, d.ID, dto.AssignDispatchDTO{TechnicianIDs: []string{"A"}})
	s.ErrorIs(err, apperrors.ErrValidation)

	assigned, err := s.f.dispatches.Assign(asDispatcher, d.ID, dto.AssignDispatchDTO{
		TechnicianIDs: []string{"A"}, ScheduledDate: "2025-06-02", ScheduledStartTime: "10:00", ScheduledEndTime: "12:00",
	})
	s.Require().NoError(err)
	s.Equal(monday, assigned.Schedule.Date)
}

func (s *DispatchServiceSuite) TestAssign_DoubleBookingIsOverCapacity() {
	first := s.f.createDispatch(s.T(), "09:00", "11:00")
	s.f.assign(s.T(), first.ID, "A")

	second := s.f.createDispatch(s.T(), "10:00", "12:00")
	_, err := s.f.dispatches.Assign(asDispatcher, second.ID, dto.AssignDispatchDTO{TechnicianIDs: []string{"A"}})
	var eligErr *apperrors.EligibilityError
	s.Require().ErrorAs(err, &eligErr)
	s.Equal(apperrors.ReasonOverCapacity, eligErr.Failures[0].Reason)

	// Касание концами пересечением не считается.
	third := s.f.createDispatch(s.T(), "11:00", "12:00")
	s.f.assign(s.T(), third.ID, "A")

	// Повторное назначение того же выезда не конфликтует само с собой.
	again := s.f.assign(s.T(), first.ID, "A")
	s.Equal(entities.DispatchAssigned, again.Status)
}

func (s *DispatchServiceSuite) TestStartAndComplete_RecordExactDuration() {
	d := s.f.createDispatch(s.T(), "09:00", "11:00")
	s.f.assign(s.T(), d.ID, "A")

	technician := asTechnician("A")
	started, err := s.f.dispatches.Start(technician, d.ID)
	s.Require().NoError(err)
	s.Equal(entities.DispatchInProgress, started.Status)
	s.Require().NotNil(started.ActualStartTime)

	s.f.clock.advance(95*time.Minute + 30*time.Second)

	progressed, err := s.f.dispatches.UpdateProgress(technician, d.ID, 60)
	s.Require().NoError(err)
	s.Equal(60, progressed.CompletionPercentage)

	done, err := s.f.dispatches.Complete(technician, d.ID)
	s.Require().NoError(err)
	s.Equal(entities.DispatchCompleted, done.Status)
	s.Equal(100, done.CompletionPercentage)
	s.Require().NotNil(done.ActualEndTime)
	s.Equal(95*time.Minute+30*time.Second, *done.ActualDuration)
	s.Equal(done.ActualEndTime.Sub(*done.ActualStartTime), *done.ActualDuration)

	s.ElementsMatch([]entities.HistoryAction{
		entities.ActionCreated, entities.ActionAssigned, entities.ActionStatusChanged,
		entities.ActionUpdated, entities.ActionStatusChanged,
	}, s.f.history(s.T(), d.ID))
}

func (s *DispatchServiceSuite) TestComplete_BeforeStartIsInvalidTransition() {
	d := s.f.createDispatch(s.T(), "09:00", "11:00")
	s.f.assign(s.T(), d.ID, "A")

	_, err := s.f.dispatches.Complete(asTechnician("A"), d.ID)
	s.ErrorIs(err, apperrors.ErrInvalidTransition)

	stored, err := s.f.dispatches.FindByID(asDispatcher, d.ID)
	s.Require().NoError(err)
	s.Equal(entities.DispatchAssigned, stored.Status)
	s.Nil(stored.ActualEndTime)
}

func (s *DispatchServiceSuite) TestProgress_RejectsHundredAndOutsideInProgress() {
	d := s.f.createDispatch(s.T(), "09:00", "11:00")
	s.f.assign(s.T(), d.ID, "A")

	_, err := s.f.dispatches.UpdateProgress(asTechnician("A"), d.ID, 50)
	s.ErrorIs(err, apperrors.ErrInvalidTransition)

	_, err = s.f.dispatches.Start(asTechnician("A"), d.ID)
	s.Require().NoError(err)
	_, err = s.f.dispatches.UpdateProgress(asTechnician("A"), d.ID, 100)
	s.ErrorIs(err, apperrors.ErrValidation)
	_, err = s.f.dispatches.UpdateProgress(asTechnician("A"), d.ID, -1)
	s.ErrorIs(err, apperrors.ErrValidation)
}

func (s *DispatchServiceSuite) TestTerminalStatesRejectEveryTransition() {
	d := s.f.createDispatch(s.T(), "09:00", "11:00")
	reason := "клиент отказался"
	cancelled, err := s.f.dispatches.Cancel(asDispatcher, d.ID, &reason)
	s.Require().NoError(err)
	s.Equal(entities.DispatchCancelled, cancelled.Status)

	_, err = s.f.dispatches.Assign(asDispatcher, d.ID, dto.AssignDispatchDTO{TechnicianIDs: []string{"A"}})
	s.ErrorIs(err, apperrors.ErrInvalidTransition)
	_, err = s.f.dispatches.Start(asAdmin, d.ID)
	s.ErrorIs(err, apperrors.ErrInvalidTransition)
	_, err = s.f.dispatches.Cancel(asDispatcher, d.ID, nil)
	s.ErrorIs(err, apperrors.ErrInvalidTransition)
	_, err = s.f.dispatches.Reschedule(asDispatcher, d.ID, dto.RescheduleDispatchDTO{
		ScheduledDate: "2025-06-09", ScheduledStartTime: "09:00", ScheduledEndTime: "10:00",
	})
	s.ErrorIs(err, apperrors.ErrInvalidTransition)
	_, err = s.f.dispatches.Reassign(asDispatcher, d.ID, dto.ReassignDispatchDTO{TechnicianIDs: []string{"A"}})
	s.ErrorIs(err, apperrors.ErrInvalidTransition)

	s.f.flush(s.T())
	events, err := s.f.audit.DispatchHistory(context.Background(), d.ID)
	s.Require().NoError(err)
	s.Len(events, 2)
	for _, e := range events {
		if e.Action == entities.ActionCancelled {
			s.JSONEq(`{"from":"pending","to":"cancelled","reason":"клиент отказался"}`, string(e.Metadata))
		}
	}
}

func (s *DispatchServiceSuite) TestStart_OnlyFromAssigned() {
	d := s.f.createDispatch(s.T(), "09:00", "11:00")
	_, err := s.f.dispatches.Start(asAdmin, d.ID)
	s.ErrorIs(err, apperrors.ErrInvalidTransition)
}

func (s *DispatchServiceSuite) TestTechnicianActsOnlyOnOwnDispatches() {
	d := s.f.createDispatch(s.T(), "09:00", "11:00")
	s.f.assign(s.T(), d.ID, "A")
	other := s.f.createDispatch(s.T(), "12:00", "13:00")
	s.f.assign(s.T(), other.ID, "B")

	_, err := s.f.dispatches.Start(asTechnician("B"), d.ID)
	s.ErrorIs(err, apperrors.ErrForbidden)
	_, err = s.f.dispatches.FindByID(asTechnician("B"), d.ID)
	s.ErrorIs(err, apperrors.ErrForbidden)

	own, total, err := s.f.dispatches.List(asTechnician("B"), types.Filter{})
	s.Require().NoError(err)
	s.Equal(uint64(1), total)
	s.Equal(other.ID, own[0].ID)

	all, total, err := s.f.dispatches.List(asDispatcher, types.Filter{})
	s.Require().NoError(err)
	s.Equal(uint64(2), total)
	s.Len(all, 2)
}

func (s *DispatchServiceSuite) TestHistory_ScopedToOwnDispatches() {
	d := s.f.createDispatch(s.T(), "09:00", "11:00")
	s.f.assign(s.T(), d.ID, "A")
	s.f.flush(s.T())

	_, err := s.f.dispatches.History(asTechnician("B"), d.ID)
	s.ErrorIs(err, apperrors.ErrForbidden)

	own, err := s.f.dispatches.History(asTechnician("A"), d.ID)
	s.Require().NoError(err)
	s.Len(own, 2)

	_, err = s.f.dispatches.History(asTechnician("A"), "missing")
	s.ErrorIs(err, apperrors.ErrNotFound)

	// После удаления назначенный техник все еще видит историю, чужой - нет.
	s.Require().NoError(s.f.dispatches.SoftDelete(asDispatcher, d.ID))
	s.f.flush(s.T())
	own, err = s.f.dispatches.History(asTechnician("A"), d.ID)
	s.Require().NoError(err)
	s.Len(own, 3)
	_, err = s.f.dispatches.History(asTechnician("B"), d.ID)
	s.ErrorIs(err, apperrors.ErrForbidden)
}

func (s *DispatchServiceSuite) TestSoftDelete_HidesDispatchAndKeepsHistory() {
	d := s.f.createDispatch(s.T(), "09:00", "11:00")
	s.f.assign(s.T(), d.ID, "A")

	s.Require().NoError(s.f.dispatches.SoftDelete(asDispatcher, d.ID))

	_, err := s.f.dispatches.FindByID(asDispatcher, d.ID)
	s.ErrorIs(err, apperrors.ErrNotFound)
	list, total, err := s.f.dispatches.List(asDispatcher, types.Filter{})
	s.Require().NoError(err)
	s.Zero(total)
	s.Empty(list)

	s.ErrorIs(s.f.dispatches.SoftDelete(asDispatcher, d.ID), apperrors.ErrNotFound)

	s.f.flush(s.T())
	events, err := s.f.dispatches.History(asDispatcher, d.ID)
	s.Require().NoError(err)
	s.Len(events, 3)

	// Удаленный выезд больше не занимает техника.
	next := s.f.createDispatch(s.T(), "09:00", "11:00")
	s.f.assign(s.T(), next.ID, "A")
}

func (s *DispatchServiceSuite) TestReschedule_RechecksAssignedTechnicians() {
	d := s.f.createDispatch(s.T(), "09:00", "11:00")
	s.f.assign(s.T(), d.ID, "A")

	_, err := s.f.dispatches.Reschedule(asDispatcher, d.ID, dto.RescheduleDispatchDTO{
		ScheduledDate: "2025-06-02", ScheduledStartTime: "17:00", ScheduledEndTime: "18:00",
	})
	var eligErr *apperrors.EligibilityError
	s.Require().ErrorAs(err, &eligErr)
	s.Equal(apperrors.ReasonUnavailable, eligErr.Failures[0].Reason)

	moved, err := s.f.dispatches.Reschedule(asDispatcher, d.ID, dto.RescheduleDispatchDTO{
		ScheduledDate: "2025-06-09", ScheduledStartTime: "13:00", ScheduledEndTime: "15:00",
	})
	s.Require().NoError(err)
	s.Equal(entities.DispatchAssigned, moved.Status)
	s.Equal("2025-06-09", moved.Schedule.Date.String())
	s.Equal([]string{"A"}, moved.TechnicianIDs())
}

func (s *DispatchServiceSuite) TestReassign_ReplacesAssignments() {
	d := s.f.createDispatch(s.T(), "09:00", "11:00", "hvac")
	s.f.assign(s.T(), d.ID, "A")

	moved, err := s.f.dispatches.Reassign(asDispatcher, d.ID, dto.ReassignDispatchDTO{TechnicianIDs: []string{"B"}})
	s.Require().NoError(err)
	s.Equal([]string{"B"}, moved.TechnicianIDs())
	s.Equal(entities.DispatchAssigned, moved.Status)

	_, err = s.f.dispatches.Reassign(asDispatcher, d.ID, dto.ReassignDispatchDTO{})
	s.ErrorIs(err, apperrors.ErrValidation)
}

func (s *DispatchServiceSuite) TestPendingDispatchIsPlannedOnlyThroughAssign() {
	d := s.f.createDispatch(s.T(), "09:00", "11:00")

	_, err := s.f.dispatches.Reassign(asDispatcher, d.ID, dto.ReassignDispatchDTO{TechnicianIDs: []string{"A"}})
	s.ErrorIs(err, apperrors.ErrInvalidTransition)
	_, err = s.f.dispatches.Reschedule(asDispatcher, d.ID, dto.RescheduleDispatchDTO{
		ScheduledDate: "2025-06-02", ScheduledStartTime: "12:00", ScheduledEndTime: "13:00",
	})
	s.ErrorIs(err, apperrors.ErrInvalidTransition)

	current, err := s.f.dispatches.FindByID(asDispatcher, d.ID)
	s.Require().NoError(err)
	s.Equal(entities.DispatchPending, current.Status)
	s.Empty(current.Technicians)
	s.Equal(window(s.T(), "09:00", "11:00"), current.Schedule.Window)

	// Техник A не занят этим выездом.
	other := s.f.createDispatch(s.T(), "09:00", "11:00")
	s.f.assign(s.T(), other.ID, "A")
	s.f.assign(s.T(), d.ID, "B")
}

func (s *DispatchServiceSuite) TestList_FiltersByStatusAndValidates() {
	a := s.f.createDispatch(s.T(), "09:00", "10:00")
	s.f.createDispatch(s.T(), "10:00", "11:00")
	s.f.assign(s.T(), a.ID, "A")

	list, total, err := s.f.dispatches.List(asDispatcher, types.Filter{Filter: map[string]interface{}{"status": "assigned"}})
	s.Require().NoError(err)
	s.Equal(uint64(1), total)
	s.Equal(a.ID, list[0].ID)

	_, _, err = s.f.dispatches.List(asDispatcher, types.Filter{Filter: map[string]interface{}{"status": "done"}})
	s.ErrorIs(err, apperrors.ErrValidation)
}

func TestAssign_ConcurrentDoubleBookingOnlyOneWins(t *testing.T) {
	f := newFixture(t)
	f.seedTechnician(t, "A", "hvac")
	first := f.createDispatch(t, "09:00", "11:00")
	second := f.createDispatch(t, "09:30", "10:30")

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, id := range []string{first.ID, second.ID} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = f.dispatches.Assign(asDispatcher, id, dto.AssignDispatchDTO{TechnicianIDs: []string{"A"}})
		}()
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, apperrors.ErrEligibility)
	}
	require.Equal(t, 1, succeeded)

	workload, err := f.store.Dispatches().CountActiveWorkload(context.Background(), []string{"A"})
	require.NoError(t, err)
	assert.Equal(t, 1, workload["A"])
}
