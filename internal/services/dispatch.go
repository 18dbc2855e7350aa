package services

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"dispatch-system/internal/authz"
	"dispatch-system/internal/dto"
	"dispatch-system/internal/entities"
	"dispatch-system/internal/repositories"
	apperrors "dispatch-system/pkg/errors"
	"dispatch-system/pkg/types"
	"dispatch-system/pkg/utils"
)

type DispatchServiceInterface interface {
	Create(ctx context.Context, in dto.CreateDispatchDTO) (*entities.Dispatch, error)
	Assign(ctx context.Context, id string, in dto.AssignDispatchDTO) (*entities.Dispatch, error)
	Reschedule(ctx context.Context, id string, in dto.RescheduleDispatchDTO) (*entities.Dispatch, error)
	Reassign(ctx context.Context, id string, in dto.ReassignDispatchDTO) (*entities.Dispatch, error)
	Start(ctx context.Context, id string) (*entities.Dispatch, error)
	UpdateProgress(ctx context.Context, id string, percentage int) (*entities.Dispatch, error)
	Complete(ctx context.Context, id string) (*entities.Dispatch, error)
	Cancel(ctx context.Context, id string, reason *string) (*entities.Dispatch, error)
	SoftDelete(ctx context.Context, id string) error
	FindByID(ctx context.Context, id string) (*entities.Dispatch, error)
	List(ctx context.Context, filter types.Filter) ([]*entities.Dispatch, uint64, error)
	History(ctx context.Context, id string) ([]*entities.DispatchHistoryEvent, error)
}

type DispatchService struct {
	tx          repositories.TxManagerInterface
	dispatches  repositories.DispatchRepositoryInterface
	directory   repositories.TechnicianDirectoryInterface
	jobs        repositories.JobCatalogInterface
	eligibility EligibilityServiceInterface
	audit       AuditServiceInterface
	numbers     DispatchNumberGeneratorInterface
	gatekeeper  *authz.Gatekeeper
	logger      *zap.Logger
	now         clock
}

func NewDispatchService(
	tx repositories.TxManagerInterface,
	dispatches repositories.DispatchRepositoryInterface,
	directory repositories.TechnicianDirectoryInterface,
	jobs repositories.JobCatalogInterface,
	eligibility EligibilityServiceInterface,
	audit AuditServiceInterface,
	numbers DispatchNumberGeneratorInterface,
	gatekeeper *authz.Gatekeeper,
	logger *zap.Logger,
) DispatchServiceInterface {
	return &DispatchService{
		tx:          tx,
		dispatches:  dispatches,
		directory:   directory,
		jobs:        jobs,
		eligibility: eligibility,
		audit:       audit,
		numbers:     numbers,
		gatekeeper:  gatekeeper,
		logger:      logger,
		now:         systemClock,
	}
}

// change - изменение выезда внутри транзакции. Возвращает метаданные для истории.
type change func(tx pgx.Tx, d *entities.Dispatch, actorID string, now time.Time) (interface{}, error)

// transition читает выезд FOR UPDATE, применяет fn к копии и пишет ее CAS-ом по прежнему статусу.
// История записывается после коммита и только при успехе.
func (s *DispatchService) transition(ctx context.Context, id string, action entities.HistoryAction, permission string, fn change) (*entities.Dispatch, error) {
	actorID, role, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}

	var before, after *entities.Dispatch
	var metadata interface{}
	now := s.now()

	err = s.tx.RunInTransaction(ctx, func(tx pgx.Tx) error {
		current, err := s.dispatches.FindForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if !s.gatekeeper.Can(actorID, role, permission, current) {
			return apperrors.ErrForbidden
		}

		next := current.Clone()
		md, err := fn(tx, next, actorID, now)
		if err != nil {
			return err
		}
		next.UpdatedAt = now

		if err := s.dispatches.Update(ctx, tx, next, current.Status); err != nil {
			return err
		}
		before, after, metadata = current, next, md
		return nil
	})
	if err != nil {
		s.logger.Debug("переход выезда отклонен",
			zap.String("dispatchID", id),
			zap.String("action", string(action)),
			zap.Error(err),
		)
		return nil, err
	}

	s.audit.RecordDispatch(ctx, entities.DispatchHistoryEvent{
		DispatchID: id,
		Action:     action,
		OldValue:   mustJSON(before),
		NewValue:   mustJSON(after),
		ChangedBy:  actorID,
		ChangedAt:  now,
		Metadata:   mustJSON(metadata),
	}, after)
	return after, nil
}

func (s *DispatchService) Create(ctx context.Context, in dto.CreateDispatchDTO) (*entities.Dispatch, error) {
	actorID, role, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	if !s.gatekeeper.Can(actorID, role, authz.DispatchesCreate, nil) {
		return nil, apperrors.ErrForbidden
	}

	now := s.now()
	d := &entities.Dispatch{
		ID:             newID(),
		DispatchNumber: strings.TrimSpace(in.DispatchNumber),
		Status:         entities.DispatchPending,
		RequiredSkills: utils.Dedupe(in.RequiredSkills),
		Technicians:    []entities.TechnicianAssignment{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if in.ServiceOrderID.Valid {
		d.ServiceOrderID = &in.ServiceOrderID.String
	}
	if in.EstimatedDuration.Valid {
		minutes := in.EstimatedDuration.Int
		d.EstimatedDuration = &minutes
	}
	if in.Priority != "" {
		p, err := entities.ParsePriority(in.Priority)
		if err != nil {
			return nil, apperrors.NewValidationError("priority", "%s", err.Error())
		}
		d.Priority = p
	}
	if len(in.WorkLocation) > 0 {
		if !json.Valid(in.WorkLocation) {
			return nil, apperrors.NewValidationError("work_location", "ожидается JSON")
		}
		d.WorkLocation = in.WorkLocation
	}

	schedule, err := optionalSchedule(in.ScheduledDate, in.ScheduledStartTime, in.ScheduledEndTime)
	if err != nil {
		return nil, err
	}
	d.Schedule = schedule

	if in.JobID.Valid {
		if err := s.inheritFromJob(ctx, d, in.JobID.String); err != nil {
			return nil, err
		}
	}
	if d.Priority == "" {
		d.Priority = entities.PriorityMedium
	}

	if d.DispatchNumber == "" {
		number, err := s.numbers.Next(ctx)
		if err != nil {
			return nil, err
		}
		d.DispatchNumber = number
	}

	err = s.tx.RunInTransaction(ctx, func(tx pgx.Tx) error {
		return s.dispatches.Create(ctx, tx, d)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("создан выезд", zap.String("dispatchID", d.ID), zap.String("number", d.DispatchNumber))
	s.audit.RecordDispatch(ctx, entities.DispatchHistoryEvent{
		DispatchID: d.ID,
		Action:     entities.ActionCreated,
		NewValue:   mustJSON(d),
		ChangedBy:  actorID,
		ChangedAt:  now,
	}, d)
	return d, nil
}

// inheritFromJob заполняет только то, что не пришло в запросе.
func (s *DispatchService) inheritFromJob(ctx context.Context, d *entities.Dispatch, jobID string) error {
	job, err := s.jobs.FindByID(ctx, jobID)
	if err != nil {
		return err
	}
	d.JobID = &job.ID
	if d.ServiceOrderID == nil && job.ServiceOrderID != "" {
		d.ServiceOrderID = &job.ServiceOrderID
	}
	if len(d.RequiredSkills) == 0 {
		d.RequiredSkills = utils.Dedupe(job.RequiredSkills)
	}
	if d.Priority == "" && job.Priority != nil {
		d.Priority = *job.Priority
	}
	if d.EstimatedDuration == nil && job.EstimatedDuration != nil {
		minutes := *job.EstimatedDuration
		d.EstimatedDuration = &minutes
	}
	return nil
}

func (s *DispatchService) Assign(ctx context.Context, id string, in dto.AssignDispatchDTO) (*entities.Dispatch, error) {
	override, err := optionalSchedule(in.ScheduledDate, in.ScheduledStartTime, in.ScheduledEndTime)
	if err != nil {
		return nil, err
	}
	requested := utils.Dedupe(in.TechnicianIDs)

	return s.transition(ctx, id, entities.ActionAssigned, authz.DispatchesAssign,
		func(tx pgx.Tx, d *entities.Dispatch, actorID string, now time.Time) (interface{}, error) {
			if !d.Status.CanTransitionTo(entities.DispatchAssigned) {
				return nil, apperrors.NewInvalidTransitionError("dispatch", d.ID, string(d.Status), string(entities.DispatchAssigned))
			}
			schedule, err := scheduleFor(d, override)
			if err != nil {
				return nil, err
			}

			ids := requested
			autoSelected := false
			if len(ids) == 0 {
				best, err := s.pickBest(ctx, d, schedule)
				if err != nil {
					return nil, err
				}
				ids, autoSelected = []string{best}, true
			}

			assignments, err := s.checkTechnicians(ctx, tx, d, ids, schedule, now)
			if err != nil {
				return nil, err
			}

			d.Status = entities.DispatchAssigned
			d.Schedule = &schedule
			d.Technicians = assignments
			d.DispatchedBy = &actorID
			d.DispatchedAt = &now
			return map[string]interface{}{"technician_ids": ids, "auto_selected": autoSelected}, nil
		})
}

// pickBest - автоподбор: первый из ранжированного списка подходящих.
func (s *DispatchService) pickBest(ctx context.Context, d *entities.Dispatch, schedule types.Schedule) (string, error) {
	eligible, err := s.eligibility.FindEligible(ctx, EligibilityQuery{
		RequiredSkills:    d.RequiredSkills,
		Date:              schedule.Date,
		Window:            schedule.Window,
		ExcludeDispatchID: d.ID,
	})
	if err != nil {
		return "", err
	}
	if len(eligible) == 0 {
		return "", apperrors.NewEligibilityError(d.ID, apperrors.EligibilityFailure{
			Reason: apperrors.ReasonNoCandidates,
			Detail: "ни один техник не подходит под навыки и окно",
		})
	}
	return eligible[0], nil
}

// checkTechnicians блокирует техников и проверяет каждого уже под блокировкой.
// Любой отказ отклоняет все назначение целиком.
func (s *DispatchService) checkTechnicians(ctx context.Context, tx pgx.Tx, d *entities.Dispatch, ids []string, schedule types.Schedule, now time.Time) ([]entities.TechnicianAssignment, error) {
	if err := s.dispatches.LockTechnicians(ctx, tx, ids); err != nil {
		return nil, err
	}
	found, err := s.directory.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	q := EligibilityQuery{
		RequiredSkills:    d.RequiredSkills,
		Date:              schedule.Date,
		Window:            schedule.Window,
		ExcludeDispatchID: d.ID,
	}
	failures := make([]apperrors.EligibilityFailure, 0)
	assignments := make([]entities.TechnicianAssignment, 0, len(ids))
	for _, techID := range ids {
		tech, ok := found[techID]
		if !ok {
			failures = append(failures, apperrors.EligibilityFailure{
				TechnicianID: techID,
				Reason:       apperrors.ReasonUnknown,
				Detail:       "техник отсутствует в справочнике",
			})
			continue
		}
		failure, err := s.eligibility.Evaluate(ctx, tx, tech, q)
		if err != nil {
			return nil, err
		}
		if failure != nil {
			failures = append(failures, *failure)
			continue
		}
		assignments = append(assignments, entities.TechnicianAssignment{
			DispatchID:   d.ID,
			TechnicianID: tech.ID,
			Name:         tech.Name,
			Email:        tech.Email,
			Phone:        tech.Phone,
			AssignedAt:   now,
		})
	}
	if len(failures) > 0 {
		return nil, apperrors.NewEligibilityError(d.ID, failures...)
	}
	return assignments, nil
}

func (s *DispatchService) Reschedule(ctx context.Context, id string, in dto.RescheduleDispatchDTO) (*entities.Dispatch, error) {
	schedule, err := parseSchedule(in.ScheduledDate, in.ScheduledStartTime, in.ScheduledEndTime)
	if err != nil {
		return nil, err
	}

	return s.transition(ctx, id, entities.ActionRescheduled, authz.DispatchesAssign,
		func(tx pgx.Tx, d *entities.Dispatch, actorID string, now time.Time) (interface{}, error) {
			// Ожидающий выезд планируется через assign.
			if d.Status.IsTerminal() || d.Status == entities.DispatchPending {
				return nil, apperrors.NewInvalidTransitionError("dispatch", d.ID, string(d.Status), string(entities.ActionRescheduled))
			}
			// Назначенные техники должны подходить и под новое окно.
			if len(d.Technicians) > 0 {
				if _, err := s.checkTechnicians(ctx, tx, d, d.TechnicianIDs(), schedule, now); err != nil {
					return nil, err
				}
			}
			previous := d.Schedule
			d.Schedule = &schedule
			return map[string]interface{}{"previous_schedule": previous}, nil
		})
}

func (s *DispatchService) Reassign(ctx context.Context, id string, in dto.ReassignDispatchDTO) (*entities.Dispatch, error) {
	requested := utils.Dedupe(in.TechnicianIDs)
	if len(requested) == 0 {
		return nil, apperrors.NewValidationError("technician_ids", "нужен хотя бы один техник")
	}

	return s.transition(ctx, id, entities.ActionReassigned, authz.DispatchesAssign,
		func(tx pgx.Tx, d *entities.Dispatch, actorID string, now time.Time) (interface{}, error) {
			if d.Status.IsTerminal() || d.Status == entities.DispatchPending {
				return nil, apperrors.NewInvalidTransitionError("dispatch", d.ID, string(d.Status), string(entities.ActionReassigned))
			}
			if d.Schedule == nil {
				return nil, apperrors.NewValidationError("scheduled_date", "у выезда нет расписания")
			}
			assignments, err := s.checkTechnicians(ctx, tx, d, requested, *d.Schedule, now)
			if err != nil {
				return nil, err
			}
			previous := d.TechnicianIDs()
			d.Technicians = assignments
			return map[string]interface{}{"previous_technician_ids": previous, "technician_ids": requested}, nil
		})
}

func (s *DispatchService) Start(ctx context.Context, id string) (*entities.Dispatch, error) {
	return s.transition(ctx, id, entities.ActionStatusChanged, authz.DispatchesWork,
		func(tx pgx.Tx, d *entities.Dispatch, actorID string, now time.Time) (interface{}, error) {
			if d.Status != entities.DispatchAssigned {
				return nil, apperrors.NewInvalidTransitionError("dispatch", d.ID, string(d.Status), string(entities.DispatchInProgress))
			}
			from := d.Status
			d.Status = entities.DispatchInProgress
			d.ActualStartTime = &now
			return statusChange(from, d.Status), nil
		})
}

func (s *DispatchService) UpdateProgress(ctx context.Context, id string, percentage int) (*entities.Dispatch, error) {
	if percentage < 0 || percentage >= 100 {
		return nil, apperrors.NewValidationError("completion_percentage", "допустимо от 0 до 99, 100%% выставляется завершением")
	}

	return s.transition(ctx, id, entities.ActionUpdated, authz.DispatchesWork,
		func(tx pgx.Tx, d *entities.Dispatch, actorID string, now time.Time) (interface{}, error) {
			if d.Status != entities.DispatchInProgress {
				return nil, apperrors.NewInvalidTransitionError("dispatch", d.ID, string(d.Status), "progress")
			}
			previous := d.CompletionPercentage
			d.CompletionPercentage = percentage
			return map[string]int{"previous_percentage": previous, "completion_percentage": percentage}, nil
		})
}

func (s *DispatchService) Complete(ctx context.Context, id string) (*entities.Dispatch, error) {
	return s.transition(ctx, id, entities.ActionStatusChanged, authz.DispatchesWork,
		func(tx pgx.Tx, d *entities.Dispatch, actorID string, now time.Time) (interface{}, error) {
			if d.Status != entities.DispatchInProgress || d.ActualStartTime == nil {
				return nil, apperrors.NewInvalidTransitionError("dispatch", d.ID, string(d.Status), string(entities.DispatchCompleted))
			}
			end := now
			if end.Before(*d.ActualStartTime) {
				end = *d.ActualStartTime
			}
			duration := end.Sub(*d.ActualStartTime)

			from := d.Status
			d.Status = entities.DispatchCompleted
			d.CompletionPercentage = 100
			d.ActualEndTime = &end
			d.ActualDuration = &duration
			return statusChange(from, d.Status), nil
		})
}

func (s *DispatchService) Cancel(ctx context.Context, id string, reason *string) (*entities.Dispatch, error) {
	return s.transition(ctx, id, entities.ActionCancelled, authz.DispatchesCancel,
		func(tx pgx.Tx, d *entities.Dispatch, actorID string, now time.Time) (interface{}, error) {
			if !d.Status.CanTransitionTo(entities.DispatchCancelled) {
				return nil, apperrors.NewInvalidTransitionError("dispatch", d.ID, string(d.Status), string(entities.DispatchCancelled))
			}
			md := statusChange(d.Status, entities.DispatchCancelled)
			if reason != nil {
				md["reason"] = *reason
			}
			d.Status = entities.DispatchCancelled
			return md, nil
		})
}

// SoftDelete допустим в любом статусе. История выезда остается доступной.
func (s *DispatchService) SoftDelete(ctx context.Context, id string) error {
	_, err := s.transition(ctx, id, entities.ActionDeleted, authz.DispatchesDelete,
		func(tx pgx.Tx, d *entities.Dispatch, actorID string, now time.Time) (interface{}, error) {
			d.IsDeleted = true
			return nil, nil
		})
	return err
}

func (s *DispatchService) FindByID(ctx context.Context, id string) (*entities.Dispatch, error) {
	actorID, role, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	d, err := s.dispatches.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.gatekeeper.Can(actorID, role, authz.DispatchesView, d) {
		return nil, apperrors.ErrForbidden
	}
	return d, nil
}

// List: роль с областью scope:own видит только свои выезды.
func (s *DispatchService) List(ctx context.Context, filter types.Filter) ([]*entities.Dispatch, uint64, error) {
	actorID, role, err := actorFrom(ctx)
	if err != nil {
		return nil, 0, err
	}
	perms := authz.PermissionsFor(role)
	if !perms[authz.Superuser] && !perms[authz.DispatchesView] {
		return nil, 0, apperrors.ErrForbidden
	}

	f, err := dispatchFilterFrom(filter)
	if err != nil {
		return nil, 0, err
	}
	if !perms[authz.Superuser] && !perms[authz.ScopeAll] {
		f.TechnicianID = actorID
	}
	return s.dispatches.List(ctx, f)
}

func (s *DispatchService) History(ctx context.Context, id string) ([]*entities.DispatchHistoryEvent, error) {
	actorID, role, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	perms := authz.PermissionsFor(role)
	var target *entities.Dispatch
	if !perms[authz.Superuser] && !perms[authz.ScopeAll] {
		// История доступна и после мягкого удаления.
		target, err = s.dispatches.FindIncludingDeleted(ctx, id)
		if err != nil {
			return nil, err
		}
	}
	if !s.gatekeeper.Can(actorID, role, authz.DispatchesView, target) {
		return nil, apperrors.ErrForbidden
	}
	return s.audit.DispatchHistory(ctx, id)
}

func statusChange(from, to entities.DispatchStatus) map[string]interface{} {
	return map[string]interface{}{"from": from, "to": to}
}

// scheduleFor: окно из запроса важнее сохраненного.
func scheduleFor(d *entities.Dispatch, override *types.Schedule) (types.Schedule, error) {
	if override != nil {
		return *override, nil
	}
	if d.Schedule == nil {
		return types.Schedule{}, apperrors.NewValidationError("scheduled_date", "у выезда нет расписания")
	}
	return *d.Schedule, nil
}

func parseSchedule(date, start, end string) (types.Schedule, error) {
	day, err := types.ParseDate(date)
	if err != nil {
		return types.Schedule{}, apperrors.NewValidationError("scheduled_date", "%s", err.Error())
	}
	window, err := types.ParseTimeWindow(start, end)
	if err != nil {
		return types.Schedule{}, apperrors.NewValidationError("scheduled_start_time", "%s", err.Error())
	}
	return types.Schedule{Date: day, Window: window}, nil
}

// optionalSchedule: либо все три поля, либо ни одного.
func optionalSchedule(date, start, end string) (*types.Schedule, error) {
	if date == "" && start == "" && end == "" {
		return nil, nil
	}
	if date == "" || start == "" || end == "" {
		return nil, apperrors.NewValidationError("scheduled_date", "дата, начало и конец задаются вместе")
	}
	s, err := parseSchedule(date, start, end)
	if err != nil {
		return nil, err
	}
	return &s, nil
}
