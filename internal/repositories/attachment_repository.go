package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"dispatch-system/internal/entities"
)

const (
	attachmentTable  = "dispatch_attachments"
	attachmentFields = "id, dispatch_id, file_name, COALESCE(file_type, ''), COALESCE(file_size_mb, 0), category, COALESCE(uploaded_by, ''), uploaded_at, COALESCE(storage_path, '')"

	noteTable  = "dispatch_notes"
	noteFields = "id, dispatch_id, content, category, priority, COALESCE(created_by, ''), created_at"
)

type AttachmentRepositoryInterface interface {
	Create(ctx context.Context, a *entities.Attachment) error
	FindByDispatch(ctx context.Context, dispatchID string) ([]*entities.Attachment, error)
}

type NoteRepositoryInterface interface {
	Create(ctx context.Context, n *entities.Note) error
	FindByDispatch(ctx context.Context, dispatchID string) ([]*entities.Note, error)
}

type attachmentRepository struct {
	storage *pgxpool.Pool
	logger  *zap.Logger
}

func NewAttachmentRepository(storage *pgxpool.Pool, logger *zap.Logger) AttachmentRepositoryInterface {
	return &attachmentRepository{storage: storage, logger: logger}
}

func (r *attachmentRepository) Create(ctx context.Context, a *entities.Attachment) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, dispatch_id, file_name, file_type, file_size_mb, category, uploaded_by, uploaded_at, storage_path)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`, attachmentTable)

	_, err := r.storage.Exec(ctx, query, a.ID, a.DispatchID, a.FileName, a.FileType, a.FileSizeMB,
		a.Category, a.UploadedBy, a.UploadedAt, a.StoragePath)
	if err != nil {
		return storageError("attachment.create", err)
	}
	return nil
}

func (r *attachmentRepository) FindByDispatch(ctx context.Context, dispatchID string) ([]*entities.Attachment, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE dispatch_id = $1 ORDER BY uploaded_at DESC", attachmentFields, attachmentTable)
	rows, err := r.storage.Query(ctx, query, dispatchID)
	if err != nil {
		return nil, storageError("attachment.list", err)
	}
	return collect(rows, "attachment", func(row pgx.Row) (*entities.Attachment, error) {
		var a entities.Attachment
		err := row.Scan(&a.ID, &a.DispatchID, &a.FileName, &a.FileType, &a.FileSizeMB, &a.Category, &a.UploadedBy, &a.UploadedAt, &a.StoragePath)
		return &a, err
	})
}

type noteRepository struct {
	storage *pgxpool.Pool
	logger  *zap.Logger
}

func NewNoteRepository(storage *pgxpool.Pool, logger *zap.Logger) NoteRepositoryInterface {
	return &noteRepository{storage: storage, logger: logger}
}

func (r *noteRepository) Create(ctx context.Context, n *entities.Note) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, dispatch_id, content, category, priority, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`, noteTable)

	_, err := r.storage.Exec(ctx, query, n.ID, n.DispatchID, n.Content, n.Category, n.Priority, n.CreatedBy, n.CreatedAt)
	if err != nil {
		return storageError("note.create", err)
	}
	return nil
}

func (r *noteRepository) FindByDispatch(ctx context.Context, dispatchID string) ([]*entities.Note, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE dispatch_id = $1 ORDER BY created_at DESC", noteFields, noteTable)
	rows, err := r.storage.Query(ctx, query, dispatchID)
	if err != nil {
		return nil, storageError("note.list", err)
	}
	return collect(rows, "note", func(row pgx.Row) (*entities.Note, error) {
		var n entities.Note
		err := row.Scan(&n.ID, &n.DispatchID, &n.Content, &n.Category, &n.Priority, &n.CreatedBy, &n.CreatedAt)
		return &n, err
	})
}

// collect читает все строки и закрывает rows.
func collect[T any](rows pgx.Rows, entity string, scan func(pgx.Row) (T, error)) ([]T, error) {
	defer rows.Close()

	items := make([]T, 0)
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, storageError(entity+".scan", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError(entity+".rows", err)
	}
	return items, nil
}
