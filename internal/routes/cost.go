package routes

import (
	"github.com/labstack/echo/v4"

	"dispatch-system/internal/authz"
	"dispatch-system/internal/controllers"
)

func runCostRouter(secureGroup *echo.Group, ctrl *controllers.CostController, gk *authz.Gatekeeper) {
	secureGroup.POST("/dispatches/:id/time-entries", ctrl.SubmitTimeEntry, gk.Require(authz.CostsSubmit))
	secureGroup.POST("/dispatches/:id/expenses", ctrl.SubmitExpense, gk.Require(authz.CostsSubmit))
	secureGroup.POST("/dispatches/:id/materials", ctrl.SubmitMaterial, gk.Require(authz.CostsSubmit))
	secureGroup.GET("/dispatches/:id/costs", ctrl.GetCosts, gk.Require(authz.CostsView))
	secureGroup.GET("/dispatches/:id/costs/export", ctrl.ExportCosts, gk.Require(authz.CostsView))

	secureGroup.POST("/cost-entries/:kind/:id/approve", ctrl.Approve, gk.Require(authz.CostsApprove))
	secureGroup.POST("/cost-entries/:kind/:id/reject", ctrl.Reject, gk.Require(authz.CostsApprove))
}
