package controllers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"dispatch-system/internal/dto"
	"dispatch-system/internal/services"
	"dispatch-system/pkg/api"
	apperrors "dispatch-system/pkg/errors"
	"dispatch-system/pkg/types"
	"dispatch-system/pkg/utils"
)

// SchedulingController - запросы доступности и подбора техников.
type SchedulingController struct {
	availability services.AvailabilityServiceInterface
	eligibility  services.EligibilityServiceInterface
	timeout      time.Duration
	logger       *zap.Logger
}

func NewSchedulingController(
	availability services.AvailabilityServiceInterface,
	eligibility services.EligibilityServiceInterface,
	timeout time.Duration,
	logger *zap.Logger,
) *SchedulingController {
	return &SchedulingController{availability: availability, eligibility: eligibility, timeout: timeout, logger: logger}
}

func (c *SchedulingController) Availability(ctx echo.Context) error {
	reqCtx, cancel := utils.Ctx(ctx, c.timeout)
	defer cancel()

	var in dto.AvailabilityQueryDTO
	if err := bind(ctx, &in); err != nil {
		return api.ErrorResponse(ctx, err)
	}

	date, err := types.ParseDate(in.Date)
	if err != nil {
		return api.ErrorResponse(ctx, apperrors.NewValidationError("date", "%s", err.Error()))
	}
	window, err := types.ParseTimeWindow(in.StartTime, in.EndTime)
	if err != nil {
		return api.ErrorResponse(ctx, apperrors.NewValidationError("window", "%s", err.Error()))
	}

	res, err := c.availability.Check(reqCtx, in.TechnicianID, date, window)
	if err != nil {
		return api.ErrorResponse(ctx, err)
	}
	return api.SuccessOne(ctx, http.StatusOK, "Доступность техника получена", dto.AvailabilityDTO{
		TechnicianID: in.TechnicianID,
		Available:    res.Available,
		Reason:       res.Reason,
		Detail:       res.Detail,
	})
}

func (c *SchedulingController) Eligible(ctx echo.Context) error {
	reqCtx, cancel := utils.Ctx(ctx, c.timeout)
	defer cancel()

	var in dto.EligibleQueryDTO
	if err := bind(ctx, &in); err != nil {
		return api.ErrorResponse(ctx, err)
	}

	date, err := types.ParseDate(in.Date)
	if err != nil {
		return api.ErrorResponse(ctx, apperrors.NewValidationError("date", "%s", err.Error()))
	}
	window, err := types.ParseTimeWindow(in.StartTime, in.EndTime)
	if err != nil {
		return api.ErrorResponse(ctx, apperrors.NewValidationError("window", "%s", err.Error()))
	}

	ids, err := c.eligibility.FindEligible(reqCtx, services.EligibilityQuery{
		RequiredSkills: in.RequiredSkills,
		Date:           date,
		Window:         window,
		CandidateIDs:   in.CandidateIDs,
	})
	if err != nil {
		return api.ErrorResponse(ctx, err)
	}
	return api.SuccessList(ctx, "Подходящие техники найдены", ids, uint64(len(ids)), 1, len(ids))
}
