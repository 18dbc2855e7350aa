package services

import (
	"context"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"dispatch-system/internal/authz"
	"dispatch-system/internal/dto"
	"dispatch-system/internal/entities"
	"dispatch-system/internal/repositories"
	apperrors "dispatch-system/pkg/errors"
)

const maxNoteLength = 2000

type NoteServiceInterface interface {
	Create(ctx context.Context, dispatchID string, in dto.CreateNoteDTO) (*entities.Note, error)
	ListByDispatch(ctx context.Context, dispatchID string) ([]*entities.Note, error)
}

type NoteService struct {
	repo       repositories.NoteRepositoryInterface
	dispatches repositories.DispatchRepositoryInterface
	gatekeeper *authz.Gatekeeper
	logger     *zap.Logger
	now        clock
}

func NewNoteService(
	repo repositories.NoteRepositoryInterface,
	dispatches repositories.DispatchRepositoryInterface,
	gatekeeper *authz.Gatekeeper,
	logger *zap.Logger,
) NoteServiceInterface {
	return &NoteService{repo: repo, dispatches: dispatches, gatekeeper: gatekeeper, logger: logger, now: systemClock}
}

func (s *NoteService) Create(ctx context.Context, dispatchID string, in dto.CreateNoteDTO) (*entities.Note, error) {
	actorID, role, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	content := strings.TrimSpace(in.Content)
	if content == "" {
		return nil, apperrors.NewValidationError("content", "заметка не может быть пустой")
	}
	if utf8.RuneCountInString(content) > maxNoteLength {
		return nil, apperrors.NewValidationError("content", "не длиннее %d символов", maxNoteLength)
	}

	d, err := s.dispatches.FindByID(ctx, dispatchID)
	if err != nil {
		return nil, err
	}
	if !s.gatekeeper.Can(actorID, role, authz.DispatchesNotesCreate, d) {
		return nil, apperrors.ErrForbidden
	}

	n := &entities.Note{
		ID:         newID(),
		DispatchID: dispatchID,
		Content:    content,
		Category:   in.Category.Ptr(),
		Priority:   in.Priority.Ptr(),
		CreatedBy:  actorID,
		CreatedAt:  s.now(),
	}
	if err := s.repo.Create(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

func (s *NoteService) ListByDispatch(ctx context.Context, dispatchID string) ([]*entities.Note, error) {
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
	return s.repo.FindByDispatch(ctx, dispatchID)
}
