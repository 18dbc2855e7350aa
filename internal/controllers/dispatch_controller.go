package controllers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"dispatch-system/internal/dto"
	"dispatch-system/internal/services"
	"dispatch-system/pkg/api"
	"dispatch-system/pkg/utils"
)

type DispatchController struct {
	dispatchService services.DispatchServiceInterface
	timeout         time.Duration
	logger          *zap.Logger
}

func NewDispatchController(dispatchService services.DispatchServiceInterface, timeout time.Duration, logger *zap.Logger) *DispatchController {
	return &DispatchController{dispatchService: dispatchService, timeout: timeout, logger: logger}
}

func (c *DispatchController) CreateDispatch(ctx echo.Context) error {
	reqCtx, cancel := utils.Ctx(ctx, c.timeout)
	defer cancel()

	var in dto.CreateDispatchDTO
	if err := bind(ctx, &in); err != nil {
		return api.ErrorResponse(ctx, err)
	}

	res, err := c.dispatchService.Create(reqCtx, in)
	if err != nil {
		return api.ErrorResponse(ctx, err)
	}
	return api.SuccessOne(ctx, http.StatusCreated, "Выезд успешно создан", res)
}

func (c *DispatchController) GetDispatches(ctx echo.Context) error {
	reqCtx, cancel := utils.Ctx(ctx, c.timeout)
	defer cancel()

	filter := utils.ParseQuery(ctx.QueryParams()).ToFilter()
	list, total, err := c.dispatchService.List(reqCtx, filter)
	if err != nil {
		return api.ErrorResponse(ctx, err)
	}
	return api.SuccessList(ctx, "Список выездов успешно получен", list, total, filter.Page, filter.Limit)
}

func (c *DispatchController) FindDispatch(ctx echo.Context) error {
	reqCtx, cancel := utils.Ctx(ctx, c.timeout)
	defer cancel()

	res, err := c.dispatchService.FindByID(reqCtx, ctx.Param("id"))
	if err != nil {
		return api.ErrorResponse(ctx, err)
	}
	return api.SuccessOne(ctx, http.StatusOK, "Выезд успешно найден", res)
}

func (c *DispatchController) DeleteDispatch(ctx echo.Context) error {
	reqCtx, cancel := utils.Ctx(ctx, c.timeout)
	defer cancel()

	if err := c.dispatchService.SoftDelete(reqCtx, ctx.Param("id")); err != nil {
		return api.ErrorResponse(ctx, err)
	}
	return api.SuccessOne(ctx, http.StatusOK, "Выезд успешно удален", struct{}{})
}

func (c *DispatchController) AssignDispatch(ctx echo.Context) error {
	reqCtx, cancel := utils.Ctx(ctx, c.timeout)
	defer cancel()

	var in dto.AssignDispatchDTO
	if err := bindOptional(ctx, &in); err != nil {
		return api.ErrorResponse(ctx, err)
	}

	res, err := c.dispatchService.Assign(reqCtx, ctx.Param("id"), in)
	if err != nil {
		return api.ErrorResponse(ctx, err)
	}
	return api.SuccessOne(ctx, http.StatusOK, "Выезд назначен", res)
}

func (c *DispatchController) RescheduleDispatch(ctx echo.Context) error {
	reqCtx, cancel := utils.Ctx(ctx, c.timeout)
	defer cancel()

	var in dto.RescheduleDispatchDTO
	if err := bind(ctx, &in); err != nil {
		return api.ErrorResponse(ctx, err)
	}

	res, err := c.dispatchService.Reschedule(reqCtx, ctx.Param("id"), in)
	if err != nil {
		return api.ErrorResponse(ctx, err)
	}
	return api.SuccessOne(ctx, http.StatusOK, "Выезд перенесен", res)
}

func (c *DispatchController) ReassignDispatch(ctx echo.Context) error {
	reqCtx, cancel := utils.Ctx(ctx, c.timeout)
	defer cancel()

	var in dto.ReassignDispatchDTO
	if err := bind(ctx, &in); err != nil {
		return api.ErrorResponse(ctx, err)
	}

	res, err := c.dispatchService.Reassign(reqCtx, ctx.Param("id"), in)
	if err != nil {
		return api.ErrorResponse(ctx, err)
	}
	return api.SuccessOne(ctx, http.StatusOK, "Техники выезда изменены", res)
}

func (c *DispatchController) StartDispatch(ctx echo.Context) error {
	reqCtx, cancel := utils.Ctx(ctx, c.timeout)
	defer cancel()

	res, err := c.dispatchService.Start(reqCtx, ctx.Param("id"))
	if err != nil {
		return api.ErrorResponse(ctx, err)
	}
	return api.SuccessOne(ctx, http.StatusOK, "Работы по выезду начаты", res)
}

func (c *DispatchController) UpdateProgress(ctx echo.Context) error {
	reqCtx, cancel := utils.Ctx(ctx, c.timeout)
	defer cancel()

	var in dto.ProgressDTO
	if err := bind(ctx, &in); err != nil {
		return api.ErrorResponse(ctx, err)
	}

	res, err := c.dispatchService.UpdateProgress(reqCtx, ctx.Param("id"), in.CompletionPercentage)
	if err != nil {
		return api.ErrorResponse(ctx, err)
	}
	return api.SuccessOne(ctx, http.StatusOK, "Прогресс обновлен", res)
}

func (c *DispatchController) CompleteDispatch(ctx echo.Context) error {
	reqCtx, cancel := utils.Ctx(ctx, c.timeout)
	defer cancel()

	res, err := c.dispatchService.Complete(reqCtx, ctx.Param("id"))
	if err != nil {
		return api.ErrorResponse(ctx, err)
	}
	return api.SuccessOne(ctx, http.StatusOK, "Выезд завершен", res)
}

func (c *DispatchController) CancelDispatch(ctx echo.Context) error {
	reqCtx, cancel := utils.Ctx(ctx, c.timeout)
	defer cancel()

	var in dto.CancelDispatchDTO
	if err := bindOptional(ctx, &in); err != nil {
		return api.ErrorResponse(ctx, err)
	}

	res, err := c.dispatchService.Cancel(reqCtx, ctx.Param("id"), in.Reason.Ptr())
	if err != nil {
		return api.ErrorResponse(ctx, err)
	}
	return api.SuccessOne(ctx, http.StatusOK, "Выезд отменен", res)
}

func (c *DispatchController) GetHistory(ctx echo.Context) error {
	reqCtx, cancel := utils.Ctx(ctx, c.timeout)
	defer cancel()

	res, err := c.dispatchService.History(reqCtx, ctx.Param("id"))
	if err != nil {
		return api.ErrorResponse(ctx, err)
	}
	return api.SuccessOne(ctx, http.StatusOK, "История выезда получена", res)
}
