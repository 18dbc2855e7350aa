package services

import (
	"context"
	"fmt"

	"cloud.google.com/go/civil"
	"go.uber.org/zap"

	"dispatch-system/internal/entities"
	"dispatch-system/internal/repositories"
	apperrors "dispatch-system/pkg/errors"
	"dispatch-system/pkg/types"
)

// Availability - результат проверки с причиной отказа.
type Availability struct {
	Available bool                        `json:"available"`
	Reason    apperrors.EligibilityReason `json:"reason,omitempty"`
	Detail    string                      `json:"detail,omitempty"`
}

// AvailabilityServiceInterface - индекс доступности техников. Ничего не кеширует.
type AvailabilityServiceInterface interface {
	IsAvailable(ctx context.Context, technicianID string, date civil.Date, window types.TimeWindow) (bool, error)
	Check(ctx context.Context, technicianID string, date civil.Date, window types.TimeWindow) (Availability, error)
	CheckTechnician(ctx context.Context, tech *entities.Technician, date civil.Date, window types.TimeWindow) (Availability, error)
}

type AvailabilityService struct {
	directory    repositories.TechnicianDirectoryInterface
	workingHours repositories.WorkingHoursRepositoryInterface
	leaves       repositories.LeaveRepositoryInterface
	logger       *zap.Logger
}

func NewAvailabilityService(
	directory repositories.TechnicianDirectoryInterface,
	workingHours repositories.WorkingHoursRepositoryInterface,
	leaves repositories.LeaveRepositoryInterface,
	logger *zap.Logger,
) AvailabilityServiceInterface {
	return &AvailabilityService{
		directory:    directory,
		workingHours: workingHours,
		leaves:       leaves,
		logger:       logger,
	}
}

func (s *AvailabilityService) IsAvailable(ctx context.Context, technicianID string, date civil.Date, window types.TimeWindow) (bool, error) {
	res, err := s.Check(ctx, technicianID, date, window)
	if err != nil {
		return false, err
	}
	return res.Available, nil
}

// Check: неизвестный техник - NotFoundError, сбой хранилища - ошибка, а не "доступен".
func (s *AvailabilityService) Check(ctx context.Context, technicianID string, date civil.Date, window types.TimeWindow) (Availability, error) {
	tech, err := s.directory.FindByID(ctx, technicianID)
	if err != nil {
		return Availability{}, err
	}
	return s.CheckTechnician(ctx, tech, date, window)
}

func (s *AvailabilityService) CheckTechnician(ctx context.Context, tech *entities.Technician, date civil.Date, window types.TimeWindow) (Availability, error) {
	// 1. Текущий статус
	if tech.CurrentStatus.BlocksAvailability() {
		reason := apperrors.ReasonUnavailable
		if tech.CurrentStatus == entities.TechnicianOnLeave {
			reason = apperrors.ReasonOnLeave
		}
		return Availability{Reason: reason, Detail: fmt.Sprintf("текущий статус %s", tech.CurrentStatus)}, nil
	}

	// 2. Рабочие часы: достаточно одного окна, целиком покрывающего запрошенное
	windows, err := s.workingHours.FindByTechnician(ctx, tech.ID)
	if err != nil {
		return Availability{}, err
	}
	covered := false
	for _, w := range windows {
		if w.AppliesTo(date) && w.Window.Contains(window) {
			covered = true
			break
		}
	}
	if !covered {
		return Availability{
			Reason: apperrors.ReasonUnavailable,
			Detail: fmt.Sprintf("окно %s вне рабочих часов %s", window, date),
		}, nil
	}

	// 3. Согласованные отпуска
	leaves, err := s.leaves.FindApprovedOn(ctx, tech.ID, date)
	if err != nil {
		return Availability{}, err
	}
	for _, l := range leaves {
		if l.Blocks(date, window) {
			return Availability{
				Reason: apperrors.ReasonOnLeave,
				Detail: fmt.Sprintf("отсутствие %s с %s по %s", l.LeaveType, l.StartDate, l.EndDate),
			}, nil
		}
	}

	return Availability{Available: true}, nil
}
