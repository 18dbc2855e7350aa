package utils

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"
)

// Ctx - контекст запроса с ограничением по времени. cancel обязателен к вызову.
func Ctx(c echo.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), timeout)
}
