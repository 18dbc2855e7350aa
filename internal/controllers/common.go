package controllers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	apperrors "dispatch-system/pkg/errors"
)

// bind разбирает тело запроса и прогоняет DTO через валидатор echo.
func bind(ctx echo.Context, dst interface{}) error {
	if err := ctx.Bind(dst); err != nil {
		return apperrors.NewHttpError(http.StatusBadRequest, "Некорректные данные в запросе", err, nil)
	}
	return ctx.Validate(dst)
}

// bindOptional - для действий, тело которых может отсутствовать.
func bindOptional(ctx echo.Context, dst interface{}) error {
	if ctx.Request().ContentLength == 0 {
		return ctx.Validate(dst)
	}
	return bind(ctx, dst)
}
