package routes

import (
	"github.com/labstack/echo/v4"

	"dispatch-system/internal/authz"
	"dispatch-system/internal/controllers"
)

func runDispatchRouter(secureGroup *echo.Group, ctrl *controllers.DispatchController, gk *authz.Gatekeeper) {
	dispatches := secureGroup.Group("/dispatches")
	{
		dispatches.POST("", ctrl.CreateDispatch, gk.Require(authz.DispatchesCreate))
		dispatches.GET("", ctrl.GetDispatches, gk.Require(authz.DispatchesView))
		dispatches.GET("/:id", ctrl.FindDispatch, gk.Require(authz.DispatchesView))
		dispatches.DELETE("/:id", ctrl.DeleteDispatch, gk.Require(authz.DispatchesDelete))
		dispatches.GET("/:id/history", ctrl.GetHistory, gk.Require(authz.DispatchesView))

		dispatches.POST("/:id/assign", ctrl.AssignDispatch, gk.Require(authz.DispatchesAssign))
		dispatches.POST("/:id/reschedule", ctrl.RescheduleDispatch, gk.Require(authz.DispatchesAssign))
		dispatches.POST("/:id/reassign", ctrl.ReassignDispatch, gk.Require(authz.DispatchesAssign))
		dispatches.POST("/:id/start", ctrl.StartDispatch, gk.Require(authz.DispatchesWork))
		dispatches.POST("/:id/progress", ctrl.UpdateProgress, gk.Require(authz.DispatchesWork))
		dispatches.POST("/:id/complete", ctrl.CompleteDispatch, gk.Require(authz.DispatchesWork))
		dispatches.POST("/:id/cancel", ctrl.CancelDispatch, gk.Require(authz.DispatchesCancel))
	}
}
