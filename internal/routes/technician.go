package routes

import (
	"github.com/labstack/echo/v4"

	"dispatch-system/internal/authz"
	"dispatch-system/internal/controllers"
)

func runTechnicianRouter(secureGroup *echo.Group, ctrl *controllers.TechnicianController, gk *authz.Gatekeeper) {
	technicians := secureGroup.Group("/technicians")
	{
		technicians.POST("/sync", ctrl.SyncTechnician, gk.Require(authz.DirectorySync))
		technicians.GET("/:id", ctrl.FindTechnician, gk.Require(authz.SchedulingView))
		technicians.POST("/:id/status", ctrl.ChangeStatus, gk.Require(authz.TechnicianStatus))
		technicians.GET("/:id/status-history", ctrl.GetStatusHistory, gk.Require(authz.SchedulingView))

		technicians.POST("/:id/working-hours", ctrl.CreateWorkingHours, gk.Require(authz.WorkingHoursEdit))
		technicians.GET("/:id/working-hours", ctrl.GetWorkingHours, gk.Require(authz.SchedulingView))

		technicians.POST("/:id/leaves", ctrl.CreateLeave, gk.Require(authz.LeavesCreate))
		technicians.GET("/:id/leaves", ctrl.GetLeaves, gk.Require(authz.SchedulingView))
	}

	secureGroup.PUT("/working-hours/:id", ctrl.UpdateWorkingHours, gk.Require(authz.WorkingHoursEdit))

	secureGroup.POST("/leaves/:id/approve", ctrl.ApproveLeave, gk.Require(authz.LeavesApprove))
	secureGroup.POST("/leaves/:id/reject", ctrl.RejectLeave, gk.Require(authz.LeavesApprove))
	secureGroup.POST("/leaves/:id/cancel", ctrl.CancelLeave, gk.Require(authz.LeavesApprove))
}
