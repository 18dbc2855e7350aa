package routes

import (
	"github.com/labstack/echo/v4"

	"dispatch-system/internal/authz"
	"dispatch-system/internal/controllers"
)

func runBoardRouter(secureGroup *echo.Group, ctrl *controllers.WebSocketController, gk *authz.Gatekeeper) {
	secureGroup.GET("/ws/board", ctrl.ServeBoard, gk.Require(authz.DispatchesView))
}
