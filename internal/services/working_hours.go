package services

import (
	"context"

	"cloud.google.com/go/civil"
	"go.uber.org/zap"

	"dispatch-system/internal/authz"
	"dispatch-system/internal/dto"
	"dispatch-system/internal/entities"
	"dispatch-system/internal/repositories"
	apperrors "dispatch-system/pkg/errors"
	"dispatch-system/pkg/types"
)

type WorkingHoursServiceInterface interface {
	Create(ctx context.Context, technicianID string, in dto.WorkingHoursDTO) (*entities.WorkingHoursWindow, error)
	Update(ctx context.Context, id string, in dto.WorkingHoursDTO) (*entities.WorkingHoursWindow, error)
	ListByTechnician(ctx context.Context, technicianID string) ([]*entities.WorkingHoursWindow, error)
}

type WorkingHoursService struct {
	repo       repositories.WorkingHoursRepositoryInterface
	directory  repositories.TechnicianDirectoryInterface
	gatekeeper *authz.Gatekeeper
	logger     *zap.Logger
	now        clock
}

func NewWorkingHoursService(
	repo repositories.WorkingHoursRepositoryInterface,
	directory repositories.TechnicianDirectoryInterface,
	gatekeeper *authz.Gatekeeper,
	logger *zap.Logger,
) WorkingHoursServiceInterface {
	return &WorkingHoursService{
		repo:       repo,
		directory:  directory,
		gatekeeper: gatekeeper,
		logger:     logger,
		now:        systemClock,
	}
}

// applyWorkingHours проверяет ввод и переносит его в окно.
func applyWorkingHours(w *entities.WorkingHoursWindow, in dto.WorkingHoursDTO) error {
	if in.DayOfWeek < 0 || in.DayOfWeek > 6 {
		return apperrors.NewValidationError("day_of_week", "день недели от 0 (воскресенье) до 6")
	}
	window, err := types.ParseTimeWindow(in.StartTime, in.EndTime)
	if err != nil {
		return apperrors.NewValidationError("start_time", "%s", err.Error())
	}

	var from, until *civil.Date
	if in.EffectiveFrom != "" {
		d, err := types.ParseDate(in.EffectiveFrom)
		if err != nil {
			return apperrors.NewValidationError("effective_from", "%s", err.Error())
		}
		from = &d
	}
	if in.EffectiveUntil != "" {
		d, err := types.ParseDate(in.EffectiveUntil)
		if err != nil {
			return apperrors.NewValidationError("effective_until", "%s", err.Error())
		}
		until = &d
	}
	if from != nil && until != nil && until.Before(*from) {
		return apperrors.NewValidationError("effective_until", "окончание действия раньше начала")
	}

	w.DayOfWeek = in.DayOfWeek
	w.Window = window
	w.EffectiveFrom = from
	w.EffectiveUntil = until
	w.IsActive = true
	if in.IsActive.Valid {
		w.IsActive = in.IsActive.Bool
	}
	return nil
}

func (s *WorkingHoursService) Create(ctx context.Context, technicianID string, in dto.WorkingHoursDTO) (*entities.WorkingHoursWindow, error) {
	actorID, role, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	if !s.gatekeeper.Can(actorID, role, authz.WorkingHoursEdit, nil) {
		return nil, apperrors.ErrForbidden
	}

	now := s.now()
	w := &entities.WorkingHoursWindow{ID: newID(), TechnicianID: technicianID, CreatedAt: now, UpdatedAt: now}
	if err := applyWorkingHours(w, in); err != nil {
		return nil, err
	}
	if _, err := s.directory.FindByID(ctx, technicianID); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, w); err != nil {
		return nil, err
	}
	return w, nil
}

func (s *WorkingHoursService) Update(ctx context.Context, id string, in dto.WorkingHoursDTO) (*entities.WorkingHoursWindow, error) {
	actorID, role, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	if !s.gatekeeper.Can(actorID, role, authz.WorkingHoursEdit, nil) {
		return nil, apperrors.ErrForbidden
	}

	w, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := applyWorkingHours(w, in); err != nil {
		return nil, err
	}
	w.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, w); err != nil {
		return nil, err
	}
	return w, nil
}

func (s *WorkingHoursService) ListByTechnician(ctx context.Context, technicianID string) ([]*entities.WorkingHoursWindow, error) {
	actorID, role, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	if !canActOnTechnician(s.gatekeeper, actorID, role, authz.SchedulingView, technicianID) {
		return nil, apperrors.ErrForbidden
	}
	return s.repo.FindByTechnician(ctx, technicianID)
}
