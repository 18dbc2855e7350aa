package services

import (
	"context"
	"mime/multipart"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"dispatch-system/internal/authz"
	"dispatch-system/internal/dto"
	"dispatch-system/internal/entities"
	"dispatch-system/internal/repositories"
	"dispatch-system/pkg/constants"
	apperrors "dispatch-system/pkg/errors"
	"dispatch-system/pkg/filestorage"
	"dispatch-system/pkg/validation"
)

// AttachmentServiceInterface определяет контракт для управления вложениями выезда.
type AttachmentServiceInterface interface {
	Upload(ctx context.Context, dispatchID string, file *multipart.FileHeader, category *string) (*dto.AttachmentResponseDTO, error)
	ListByDispatch(ctx context.Context, dispatchID string) ([]dto.AttachmentResponseDTO, error)
}

type AttachmentService struct {
	repo        repositories.AttachmentRepositoryInterface
	dispatches  repositories.DispatchRepositoryInterface
	fileStorage filestorage.FileStorageInterface
	gatekeeper  *authz.Gatekeeper
	logger      *zap.Logger
	now         clock
}

func NewAttachmentService(
	repo repositories.AttachmentRepositoryInterface,
	dispatches repositories.DispatchRepositoryInterface,
	fileStorage filestorage.FileStorageInterface,
	gatekeeper *authz.Gatekeeper,
	logger *zap.Logger,
) AttachmentServiceInterface {
	return &AttachmentService{
		repo:        repo,
		dispatches:  dispatches,
		fileStorage: fileStorage,
		gatekeeper:  gatekeeper,
		logger:      logger,
		now:         systemClock,
	}
}

var bytesInMB = decimal.NewFromInt(1024 * 1024)

func (s *AttachmentService) Upload(ctx context.Context, dispatchID string, fileHeader *multipart.FileHeader, category *string) (*dto.AttachmentResponseDTO, error) {
	actorID, role, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	d, err := s.dispatches.FindByID(ctx, dispatchID)
	if err != nil {
		return nil, err
	}
	if !s.gatekeeper.Can(actorID, role, authz.DispatchesAttachmentsCreate, d) {
		return nil, apperrors.ErrForbidden
	}

	src, err := fileHeader.Open()
	if err != nil {
		return nil, apperrors.NewValidationError("file", "не удалось открыть файл")
	}
	defer src.Close()

	uploadContext := constants.UploadContextDispatchAttachment.String()
	mimeType, err := validation.ValidateFile(fileHeader, src, uploadContext)
	if err != nil {
		return nil, apperrors.NewValidationError("file", "%s", err.Error())
	}

	prefix := validation.UploadContexts[uploadContext].PathPrefix + "/" + dispatchID
	path, err := s.fileStorage.Save(ctx, src, fileHeader.Filename, mimeType, prefix)
	if err != nil {
		s.logger.Error("не удалось сохранить файл", zap.String("dispatchID", dispatchID), zap.Error(err))
		return nil, apperrors.NewStorageError("attachment.save", err)
	}

	a := &entities.Attachment{
		ID:          newID(),
		DispatchID:  dispatchID,
		FileName:    fileHeader.Filename,
		FileType:    mimeType,
		FileSizeMB:  decimal.NewFromInt(fileHeader.Size).Div(bytesInMB).Round(2),
		Category:    category,
		UploadedBy:  actorID,
		UploadedAt:  s.now(),
		StoragePath: path,
	}
	if err := s.repo.Create(ctx, a); err != nil {
		// Файл без записи в БД никому не виден, убираем его.
		if delErr := s.fileStorage.Delete(ctx, path); delErr != nil {
			s.logger.Warn("не удалось удалить файл без записи", zap.String("path", path), zap.Error(delErr))
		}
		return nil, err
	}

	res := s.toDTO(a)
	return &res, nil
}

func (s *AttachmentService) ListByDispatch(ctx context.Context, dispatchID string) ([]dto.AttachmentResponseDTO, error) {
	actorID, role, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	d, err := s.dispatches.FindByID(ctx, dispatchID)
	if err != nil {
		return nil, err
	}
	if !s.gatekeeper.Can(actorID, role, authz.DispatchesView, d) {
		return nil, apperrors.ErrForbidden
	}

	attachments, err := s.repo.FindByDispatch(ctx, dispatchID)
	if err != nil {
		s.logger.Error("не удалось получить вложения выезда", zap.String("dispatchID", dispatchID), zap.Error(err))
		return nil, err
	}
	list := make([]dto.AttachmentResponseDTO, 0, len(attachments))
	for _, a := range attachments {
		list = append(list, s.toDTO(a))
	}
	return list, nil
}

func (s *AttachmentService) toDTO(a *entities.Attachment) dto.AttachmentResponseDTO {
	return dto.AttachmentResponseDTO{
		ID:         a.ID,
		DispatchID: a.DispatchID,
		FileName:   a.FileName,
		FileType:   a.FileType,
		FileSizeMB: a.FileSizeMB.StringFixed(2),
		Category:   a.Category,
		UploadedBy: a.UploadedBy,
		UploadedAt: a.UploadedAt.Format(time.RFC3339),
		URL:        s.fileStorage.URL(a.StoragePath),
	}
}
