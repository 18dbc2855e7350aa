package services

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"dispatch-system/internal/authz"
	"dispatch-system/internal/dto"
	"dispatch-system/internal/entities"
	"dispatch-system/internal/repositories"
	apperrors "dispatch-system/pkg/errors"
	"dispatch-system/pkg/utils"
)

type TechnicianServiceInterface interface {
	FindByID(ctx context.Context, id string) (*entities.Technician, error)
	// ChangeStatus возвращает статус в справочник и пишет событие. Смена на тот же статус ничего не пишет.
	ChangeStatus(ctx context.Context, technicianID string, in dto.ChangeStatusDTO) (*entities.Technician, error)
	StatusHistory(ctx context.Context, technicianID string) ([]*entities.TechnicianStatusEvent, error)
	Sync(ctx context.Context, in dto.SyncTechnicianDTO) (*entities.Technician, error)
}

type TechnicianService struct {
	tx         repositories.TxManagerInterface
	directory  repositories.TechnicianDirectoryInterface
	audit      AuditServiceInterface
	gatekeeper *authz.Gatekeeper
	logger     *zap.Logger
	now        clock
}

func NewTechnicianService(
	tx repositories.TxManagerInterface,
	directory repositories.TechnicianDirectoryInterface,
	audit AuditServiceInterface,
	gatekeeper *authz.Gatekeeper,
	logger *zap.Logger,
) TechnicianServiceInterface {
	return &TechnicianService{
		tx:         tx,
		directory:  directory,
		audit:      audit,
		gatekeeper: gatekeeper,
		logger:     logger,
		now:        systemClock,
	}
}

func (s *TechnicianService) FindByID(ctx context.Context, id string) (*entities.Technician, error) {
	return s.directory.FindByID(ctx, id)
}

func (s *TechnicianService) ChangeStatus(ctx context.Context, technicianID string, in dto.ChangeStatusDTO) (*entities.Technician, error) {
	actorID, role, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	if !canActOnTechnician(s.gatekeeper, actorID, role, authz.TechnicianStatus, technicianID) {
		return nil, apperrors.ErrForbidden
	}
	status, err := entities.ParseTechnicianStatus(in.Status)
	if err != nil {
		return nil, apperrors.NewValidationError("status", "%s", err.Error())
	}
	if len(in.Metadata) > 0 && !json.Valid(in.Metadata) {
		return nil, apperrors.NewValidationError("metadata", "ожидается JSON")
	}

	var tech *entities.Technician
	var from entities.TechnicianStatus
	changed := false
	err = s.tx.RunInTransaction(ctx, func(tx pgx.Tx) error {
		current, err := s.directory.FindForUpdate(ctx, tx, technicianID)
		if err != nil {
			return err
		}
		tech = current
		if current.CurrentStatus == status {
			return nil
		}
		if err := s.directory.UpdateStatus(ctx, tx, technicianID, status); err != nil {
			return err
		}
		from, changed = current.CurrentStatus, true
		tech.CurrentStatus = status
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !changed {
		return tech, nil
	}

	s.logger.Info("статус техника изменен",
		zap.String("technicianID", technicianID),
		zap.String("from", string(from)),
		zap.String("to", string(status)),
	)
	s.audit.RecordStatus(ctx, entities.TechnicianStatusEvent{
		TechnicianID: technicianID,
		Status:       status,
		ChangedFrom:  utils.ToPtr(from),
		ChangedAt:    s.now(),
		ChangedBy:    actorID,
		Reason:       in.Reason.Ptr(),
		Metadata:     in.Metadata,
	})
	return tech, nil
}

func (s *TechnicianService) StatusHistory(ctx context.Context, technicianID string) ([]*entities.TechnicianStatusEvent, error) {
	actorID, role, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	if !canActOnTechnician(s.gatekeeper, actorID, role, authz.SchedulingView, technicianID) {
		return nil, apperrors.ErrForbidden
	}
	return s.audit.StatusHistory(ctx, technicianID)
}

// Sync обновляет проекцию профиля из справочника. Текущий статус не трогает.
func (s *TechnicianService) Sync(ctx context.Context, in dto.SyncTechnicianDTO) (*entities.Technician, error) {
	actorID, role, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	if !s.gatekeeper.Can(actorID, role, authz.DirectorySync, nil) {
		return nil, apperrors.ErrForbidden
	}

	t := &entities.Technician{
		ID:     in.ID,
		Name:   in.Name,
		Email:  in.Email.Ptr(),
		Phone:  in.Phone.Ptr(),
		Role:   in.Role,
		Skills: utils.Dedupe(in.Skills),
	}
	if err := s.directory.Upsert(ctx, t); err != nil {
		return nil, err
	}
	return s.directory.FindByID(ctx, in.ID)
}
