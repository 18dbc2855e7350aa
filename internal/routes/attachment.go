package routes

import (
	"github.com/labstack/echo/v4"

	"dispatch-system/internal/authz"
	"dispatch-system/internal/controllers"
)

func runAttachmentRouter(secureGroup *echo.Group, ctrl *controllers.AttachmentController, gk *authz.Gatekeeper) {
	secureGroup.POST("/dispatches/:id/attachments", ctrl.UploadAttachment, gk.Require(authz.DispatchesAttachmentsCreate))
	secureGroup.GET("/dispatches/:id/attachments", ctrl.GetAttachments, gk.Require(authz.DispatchesView))
	secureGroup.POST("/dispatches/:id/notes", ctrl.CreateNote, gk.Require(authz.DispatchesNotesCreate))
	secureGroup.GET("/dispatches/:id/notes", ctrl.GetNotes, gk.Require(authz.DispatchesView))
}
