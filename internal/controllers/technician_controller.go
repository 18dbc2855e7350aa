package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"dispatch-system/internal/dto"
	"dispatch-system/internal/entities"
	"dispatch-system/internal/services"
	"dispatch-system/pkg/api"
	"dispatch-system/pkg/utils"
)

// TechnicianController объединяет часы работы, отсутствия и статусы техников.
type TechnicianController struct {
	technicians  services.TechnicianServiceInterface
	workingHours services.WorkingHoursServiceInterface
	leaves       services.LeaveServiceInterface
	timeout      time.Duration
	logger       *zap.Logger
}

func NewTechnicianController(
	technicians services.TechnicianServiceInterface,
	workingHours services.WorkingHoursServiceInterface,
	leaves services.LeaveServiceInterface,
	timeout time.Duration,
	logger *zap.Logger,
) *TechnicianController {
	return &TechnicianController{
		technicians:  technicians,
		workingHours: workingHours,
		leaves:       leaves,
		timeout:      timeout,
		logger:       logger,
	}
}

func (c *TechnicianController) FindTechnician(ctx echo.Context) error {
	reqCtx, cancel := utils.Ctx(ctx, c.timeout)
	defer cancel()

	res, err := c.technicians.FindByID(reqCtx, ctx.Param("id"))
	if err != nil {
		return api.ErrorResponse(ctx, err)
	}
	return api.SuccessOne(ctx, http.StatusOK, "Техник найден", res)
}

func (c *TechnicianController) SyncTechnician(ctx echo.Context) error {
	reqCtx, cancel := utils.Ctx(ctx, c.timeout)
	defer cancel()

	var in dto.SyncTechnicianDTO
	if err := bind(ctx, &in); err != nil {
		return api.ErrorResponse(ctx, err)
	}
	res, err := c.technicians.Sync(reqCtx, in)
	if err != nil {
		c.logger.Error("не удалось синхронизировать техника", zap.String("technicianID", in.ID), zap.Error(err))
		return api.ErrorResponse(ctx, err)
	}
	return api.SuccessOne(ctx, http.StatusOK, "Профиль техника синхронизирован", res)
}

func (c *TechnicianController) ChangeStatus(ctx echo.Context) error {
	reqCtx, cancel := utils.Ctx(ctx, c.timeout)
	defer cancel()

	var in dto.ChangeStatusDTO
	if err := bind(ctx, &in); err != nil {
		return api.ErrorResponse(ctx, err)
	}
	res, err := c.technicians.ChangeStatus(reqCtx, ctx.Param("id"), in)
	if err != nil {
		return api.ErrorResponse(ctx, err)
	}
	return api.SuccessOne(ctx, http.StatusOK, "Статус техника обновлен", res)
}

func (c *TechnicianController) GetStatusHistory(ctx echo.Context) error {
	reqCtx, cancel := utils.Ctx(ctx, c.timeout)
	defer cancel()

	list, err := c.technicians.StatusHistory(reqCtx, ctx.Param("id"))
	if err != nil {
		return api.ErrorResponse(ctx, err)
	}
	return api.SuccessList(ctx, "История статусов получена", list, uint64(len(list)), 1, len(list))
}

// --- Часы работы ---

func (c *TechnicianController) CreateWorkingHours(ctx echo.Context) error {
	reqCtx, cancel := utils.Ctx(ctx, c.timeout)
	defer cancel()

	var in dto.WorkingHoursDTO
	if err := bind(ctx, &in); err != nil {
		return api.ErrorResponse(ctx, err)
	}
	res, err := c.workingHours.Create(reqCtx, ctx.Param("id"), in)
	if err != nil {
		return api.ErrorResponse(ctx, err)
	}
	return api.SuccessOne(ctx, http.StatusCreated, "Окно рабочих часов создано", res)
}

func (c *TechnicianController) GetWorkingHours(ctx echo.Context) error {
	reqCtx, cancel := utils.Ctx(ctx, c.timeout)
	defer cancel()

	list, err := c.workingHours.ListByTechnician(reqCtx, ctx.Param("id"))
	if err != nil {
		return api.ErrorResponse(ctx, err)
	}
	return api.SuccessList(ctx, "Рабочие часы получены", list, uint64(len(list)), 1, len(list))
}

func (c *TechnicianController) UpdateWorkingHours(ctx echo.Context) error {
	reqCtx, cancel := utils.Ctx(ctx, c.timeout)
	defer cancel()

	var in dto.WorkingHoursDTO
	if err := bind(ctx, &in); err != nil {
		return api.ErrorResponse(ctx, err)
	}
	res, err := c.workingHours.Update(reqCtx, ctx.Param("id"), in)
	if err != nil {
		return api.ErrorResponse(ctx, err)
	}
	return api.SuccessOne(ctx, http.StatusOK, "Окно рабочих часов обновлено", res)
}

// --- Отсутствия ---

func (c *TechnicianController) CreateLeave(ctx echo.Context) error {
	reqCtx, cancel := utils.Ctx(ctx, c.timeout)
	defer cancel()

	var in dto.CreateLeaveDTO
	if err := bind(ctx, &in); err != nil {
		return api.ErrorResponse(ctx, err)
	}
	res, err := c.leaves.Create(reqCtx, ctx.Param("id"), in)
	if err != nil {
		return api.ErrorResponse(ctx, err)
	}
	return api.SuccessOne(ctx, http.StatusCreated, "Заявка на отсутствие создана", res)
}

func (c *TechnicianController) GetLeaves(ctx echo.Context) error {
	reqCtx, cancel := utils.Ctx(ctx, c.timeout)
	defer cancel()

	list, err := c.leaves.ListByTechnician(reqCtx, ctx.Param("id"))
	if err != nil {
		return api.ErrorResponse(ctx, err)
	}
	return api.SuccessList(ctx, "Отсутствия техника получены", list, uint64(len(list)), 1, len(list))
}

func (c *TechnicianController) ApproveLeave(ctx echo.Context) error {
	return c.leaveDecision(ctx, c.leaves.Approve, "Отсутствие согласовано")
}

func (c *TechnicianController) RejectLeave(ctx echo.Context) error {
	return c.leaveDecision(ctx, c.leaves.Reject, "Отсутствие отклонено")
}

func (c *TechnicianController) CancelLeave(ctx echo.Context) error {
	return c.leaveDecision(ctx, c.leaves.Cancel, "Отсутствие отменено")
}

type leaveAction func(ctx context.Context, id string, comment *string) (*entities.LeaveRecord, error)

func (c *TechnicianController) leaveDecision(ctx echo.Context, action leaveAction, message string) error {
	reqCtx, cancel := utils.Ctx(ctx, c.timeout)
	defer cancel()

	var in dto.DecisionDTO
	if err := bindOptional(ctx, &in); err != nil {
		return api.ErrorResponse(ctx, err)
	}
	res, err := action(reqCtx, ctx.Param("id"), in.Comment.Ptr())
	if err != nil {
		return api.ErrorResponse(ctx, err)
	}
	return api.SuccessOne(ctx, http.StatusOK, message, res)
}
