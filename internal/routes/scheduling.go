package routes

import (
	"github.com/labstack/echo/v4"

	"dispatch-system/internal/authz"
	"dispatch-system/internal/controllers"
)

func runSchedulingRouter(secureGroup *echo.Group, ctrl *controllers.SchedulingController, gk *authz.Gatekeeper) {
	scheduling := secureGroup.Group("/scheduling", gk.Require(authz.SchedulingView))
	{
		scheduling.GET("/availability", ctrl.Availability)
		scheduling.POST("/eligible", ctrl.Eligible)
	}
}
