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
	"dispatch-system/pkg/utils"
)

type AttachmentController struct {
	attachmentService services.AttachmentServiceInterface
	noteService       services.NoteServiceInterface
	timeout           time.Duration
	logger            *zap.Logger
}

func NewAttachmentController(
	attachmentService services.AttachmentServiceInterface,
	noteService services.NoteServiceInterface,
	timeout time.Duration,
	logger *zap.Logger,
) *AttachmentController {
	return &AttachmentController{
		attachmentService: attachmentService,
		noteService:       noteService,
		timeout:           timeout,
		logger:            logger,
	}
}

// UploadAttachment ждет multipart с полем file и необязательным category.
func (c *AttachmentController) UploadAttachment(ctx echo.Context) error {
	reqCtx, cancel := utils.Ctx(ctx, c.timeout)
	defer cancel()

	file, err := ctx.FormFile("file")
	if err != nil {
		return api.ErrorResponse(ctx, apperrors.NewHttpError(http.StatusBadRequest, "Файл не передан", err, nil))
	}
	var category *string
	if v := ctx.FormValue("category"); v != "" {
		category = &v
	}

	res, err := c.attachmentService.Upload(reqCtx, ctx.Param("id"), file, category)
	if err != nil {
		c.logger.Warn("не удалось загрузить вложение", zap.String("dispatchID", ctx.Param("id")), zap.Error(err))
		return api.ErrorResponse(ctx, err)
	}
	return api.SuccessOne(ctx, http.StatusCreated, "Файл успешно загружен", res)
}

func (c *AttachmentController) GetAttachments(ctx echo.Context) error {
	reqCtx, cancel := utils.Ctx(ctx, c.timeout)
	defer cancel()

	list, err := c.attachmentService.ListByDispatch(reqCtx, ctx.Param("id"))
	if err != nil {
		return api.ErrorResponse(ctx, err)
	}
	return api.SuccessList(ctx, "Вложения выезда получены", list, uint64(len(list)), 1, len(list))
}

func (c *AttachmentController) CreateNote(ctx echo.Context) error {
	reqCtx, cancel := utils.Ctx(ctx, c.timeout)
	defer cancel()

	var in dto.CreateNoteDTO
	if err := bind(ctx, &in); err != nil {
		return api.ErrorResponse(ctx, err)
	}
	res, err := c.noteService.Create(reqCtx, ctx.Param("id"), in)
	if err != nil {
		return api.ErrorResponse(ctx, err)
	}
	return api.SuccessOne(ctx, http.StatusCreated, "Заметка добавлена", res)
}

func (c *AttachmentController) GetNotes(ctx echo.Context) error {
	reqCtx, cancel := utils.Ctx(ctx, c.timeout)
	defer cancel()

	list, err := c.noteService.ListByDispatch(reqCtx, ctx.Param("id"))
	if err != nil {
		return api.ErrorResponse(ctx, err)
	}
	return api.SuccessList(ctx, "Заметки выезда получены", list, uint64(len(list)), 1, len(list))
}
