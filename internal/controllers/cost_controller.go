package controllers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"dispatch-system/internal/approval"
	"dispatch-system/internal/dto"
	"dispatch-system/internal/entities"
	"dispatch-system/internal/services"
	"dispatch-system/pkg/api"
	apperrors "dispatch-system/pkg/errors"
	"dispatch-system/pkg/utils"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type CostController struct {
	costService   services.CostEntryServiceInterface
	reportService services.ReportServiceInterface
	timeout       time.Duration
	logger        *zap.Logger
}

func NewCostController(
	costService services.CostEntryServiceInterface,
	reportService services.ReportServiceInterface,
	timeout time.Duration,
	logger *zap.Logger,
) *CostController {
	return &CostController{costService: costService, reportService: reportService, timeout: timeout, logger: logger}
}

func (c *CostController) SubmitTimeEntry(ctx echo.Context) error {
	reqCtx, cancel := utils.Ctx(ctx, c.timeout)
	defer cancel()

	var in dto.CreateTimeEntryDTO
	if err := bind(ctx, &in); err != nil {
		return api.ErrorResponse(ctx, err)
	}
	res, err := c.costService.SubmitTimeEntry(reqCtx, ctx.Param("id"), in)
	if err != nil {
		return api.ErrorResponse(ctx, err)
	}
	return api.SuccessOne(ctx, http.StatusCreated, "Запись времени отправлена на согласование", res)
}

func (c *CostController) SubmitExpense(ctx echo.Context) error {
	reqCtx, cancel := utils.Ctx(ctx, c.timeout)
	defer cancel()

	var in dto.CreateExpenseDTO
	if err := bind(ctx, &in); err != nil {
		return api.ErrorResponse(ctx, err)
	}
	res, err := c.costService.SubmitExpense(reqCtx, ctx.Param("id"), in)
	if err != nil {
		return api.ErrorResponse(ctx, err)
	}
	return api.SuccessOne(ctx, http.StatusCreated, "Расход отправлен на согласование", res)
}

func (c *CostController) SubmitMaterial(ctx echo.Context) error {
	reqCtx, cancel := utils.Ctx(ctx, c.timeout)
	defer cancel()

	var in dto.CreateMaterialDTO
	if err := bind(ctx, &in); err != nil {
		return api.ErrorResponse(ctx, err)
	}
	res, err := c.costService.SubmitMaterial(reqCtx, ctx.Param("id"), in)
	if err != nil {
		return api.ErrorResponse(ctx, err)
	}
	return api.SuccessOne(ctx, http.StatusCreated, "Материал отправлен на согласование", res)
}

func (c *CostController) GetCosts(ctx echo.Context) error {
	reqCtx, cancel := utils.Ctx(ctx, c.timeout)
	defer cancel()

	res, err := c.costService.DispatchCosts(reqCtx, ctx.Param("id"))
	if err != nil {
		return api.ErrorResponse(ctx, err)
	}
	return api.SuccessOne(ctx, http.StatusOK, "Затраты выезда получены", res)
}

func (c *CostController) ExportCosts(ctx echo.Context) error {
	reqCtx, cancel := utils.Ctx(ctx, c.timeout)
	defer cancel()

	dispatchID := ctx.Param("id")
	data, err := c.reportService.CostsXLSX(reqCtx, dispatchID)
	if err != nil {
		return api.ErrorResponse(ctx, err)
	}

	fileName := fmt.Sprintf("costs_%s_%s.xlsx", dispatchID, time.Now().Format("20060102"))
	ctx.Response().Header().Set("Content-Disposition", "attachment; filename="+fileName)
	return ctx.Blob(http.StatusOK, xlsxContentType, data)
}

func (c *CostController) Approve(ctx echo.Context) error {
	return c.decide(ctx, approval.StatusApproved, "Запись затрат согласована")
}

func (c *CostController) Reject(ctx echo.Context) error {
	return c.decide(ctx, approval.StatusRejected, "Запись затрат отклонена")
}

func (c *CostController) decide(ctx echo.Context, to approval.Status, message string) error {
	reqCtx, cancel := utils.Ctx(ctx, c.timeout)
	defer cancel()

	kind, ok := entities.ParseCostKind(ctx.Param("kind"))
	if !ok {
		return api.ErrorResponse(ctx, apperrors.NewHttpError(
			http.StatusBadRequest,
			"Неизвестный вид записи затрат",
			apperrors.NewValidationError("kind", "ожидается time, expense или material"),
			map[string]interface{}{"param": ctx.Param("kind")},
		))
	}

	var in dto.DecisionDTO
	if err := bindOptional(ctx, &in); err != nil {
		return api.ErrorResponse(ctx, err)
	}

	res, err := c.costService.Decide(reqCtx, kind, ctx.Param("id"), to, in.Comment.Ptr())
	if err != nil {
		c.logger.Debug("решение по записи затрат отклонено", zap.String("kind", string(kind)), zap.Error(err))
		return api.ErrorResponse(ctx, err)
	}
	return api.SuccessOne(ctx, http.StatusOK, message, res)
}
