package services

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"dispatch-system/internal/approval"
	"dispatch-system/internal/authz"
	"dispatch-system/internal/dto"
	"dispatch-system/internal/entities"
	"dispatch-system/internal/repositories"
	apperrors "dispatch-system/pkg/errors"
	"dispatch-system/pkg/types"
)

type LeaveServiceInterface interface {
	Create(ctx context.Context, technicianID string, in dto.CreateLeaveDTO) (*entities.LeaveRecord, error)
	Approve(ctx context.Context, id string, comment *string) (*entities.LeaveRecord, error)
	Reject(ctx context.Context, id string, comment *string) (*entities.LeaveRecord, error)
	Cancel(ctx context.Context, id string, comment *string) (*entities.LeaveRecord, error)
	ListByTechnician(ctx context.Context, technicianID string) ([]*entities.LeaveRecord, error)
}

type LeaveService struct {
	tx         repositories.TxManagerInterface
	leaves     repositories.LeaveRepositoryInterface
	directory  repositories.TechnicianDirectoryInterface
	gatekeeper *authz.Gatekeeper
	logger     *zap.Logger
	now        clock
}

func NewLeaveService(
	tx repositories.TxManagerInterface,
	leaves repositories.LeaveRepositoryInterface,
	directory repositories.TechnicianDirectoryInterface,
	gatekeeper *authz.Gatekeeper,
	logger *zap.Logger,
) LeaveServiceInterface {
	return &LeaveService{
		tx:         tx,
		leaves:     leaves,
		directory:  directory,
		gatekeeper: gatekeeper,
		logger:     logger,
		now:        systemClock,
	}
}

func (s *LeaveService) Create(ctx context.Context, technicianID string, in dto.CreateLeaveDTO) (*entities.LeaveRecord, error) {
	actorID, role, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	if !canActOnTechnician(s.gatekeeper, actorID, role, authz.LeavesCreate, technicianID) {
		return nil, apperrors.ErrForbidden
	}

	leaveType, err := entities.ParseLeaveType(in.LeaveType)
	if err != nil {
		return nil, apperrors.NewValidationError("leave_type", "%s", err.Error())
	}
	start, err := types.ParseDate(in.StartDate)
	if err != nil {
		return nil, apperrors.NewValidationError("start_date", "%s", err.Error())
	}
	end, err := types.ParseDate(in.EndDate)
	if err != nil {
		return nil, apperrors.NewValidationError("end_date", "%s", err.Error())
	}
	if end.Before(start) {
		return nil, apperrors.NewValidationError("end_date", "дата окончания %s раньше начала %s", end, start)
	}

	var partial *types.TimeWindow
	switch {
	case in.StartTime == "" && in.EndTime == "":
	case in.StartTime == "" || in.EndTime == "":
		return nil, apperrors.NewValidationError("start_time", "для частичного дня нужны начало и конец")
	default:
		w, err := types.ParseTimeWindow(in.StartTime, in.EndTime)
		if err != nil {
			return nil, apperrors.NewValidationError("start_time", "%s", err.Error())
		}
		partial = &w
	}

	if _, err := s.directory.FindByID(ctx, technicianID); err != nil {
		return nil, err
	}

	now := s.now()
	leave := &entities.LeaveRecord{
		ID:           newID(),
		TechnicianID: technicianID,
		LeaveType:    leaveType,
		StartDate:    start,
		EndDate:      end,
		PartialDay:   partial,
		Reason:       in.Reason.Ptr(),
		State:        approval.NewPending(now),
		UpdatedAt:    now,
	}
	if err := s.leaves.Create(ctx, leave); err != nil {
		return nil, err
	}
	s.logger.Info("создана заявка на отсутствие", zap.String("leaveID", leave.ID), zap.String("technicianID", technicianID))
	return leave, nil
}

func (s *LeaveService) Approve(ctx context.Context, id string, comment *string) (*entities.LeaveRecord, error) {
	return s.decide(ctx, id, approval.StatusApproved, comment)
}

func (s *LeaveService) Reject(ctx context.Context, id string, comment *string) (*entities.LeaveRecord, error) {
	return s.decide(ctx, id, approval.StatusRejected, comment)
}

// Cancel допустим только для согласованного отпуска.
func (s *LeaveService) Cancel(ctx context.Context, id string, comment *string) (*entities.LeaveRecord, error) {
	return s.decide(ctx, id, approval.StatusCancelled, comment)
}

func (s *LeaveService) decide(ctx context.Context, id string, to approval.Status, comment *string) (*entities.LeaveRecord, error) {
	actorID, role, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	if !s.gatekeeper.Can(actorID, role, authz.LeavesApprove, nil) {
		return nil, apperrors.ErrForbidden
	}

	var decided *entities.LeaveRecord
	err = s.tx.RunInTransaction(ctx, func(tx pgx.Tx) error {
		leave, err := s.leaves.FindForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		now := s.now()
		from := leave.Status
		next, err := approval.Leaves.Apply(leave.State, to, actorID, comment, now)
		if err != nil {
			if errors.Is(err, approval.ErrIllegalTransition) {
				return apperrors.NewInvalidTransitionError("leave", id, string(from), string(to))
			}
			return err
		}
		leave.State = next
		leave.UpdatedAt = now
		if err := s.leaves.UpdateApproval(ctx, tx, leave, from); err != nil {
			return err
		}
		decided = leave
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("решение по отсутствию", zap.String("leaveID", id), zap.String("status", string(to)), zap.String("actorID", actorID))
	return decided, nil
}

func (s *LeaveService) ListByTechnician(ctx context.Context, technicianID string) ([]*entities.LeaveRecord, error) {
	actorID, role, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	if !canActOnTechnician(s.gatekeeper, actorID, role, authz.SchedulingView, technicianID) {
		return nil, apperrors.ErrForbidden
	}
	return s.leaves.FindByTechnician(ctx, technicianID)
}

// canActOnTechnician: роль со scope:own действует только от своего имени.
func canActOnTechnician(g *authz.Gatekeeper, actorID, role, permission, technicianID string) bool {
	if !g.Can(actorID, role, permission, nil) {
		return false
	}
	perms := authz.PermissionsFor(role)
	if perms[authz.Superuser] || perms[authz.ScopeAll] {
		return true
	}
	return actorID == technicianID
}
