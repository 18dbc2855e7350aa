package repositories

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"dispatch-system/internal/entities"
	apperrors "dispatch-system/pkg/errors"
)

const (
	technicianTable  = "technicians"
	technicianFields = "id, name, email, phone, role, skills, current_status"
)

// TechnicianDirectoryInterface - справочник техников. Запись разрешена только для статуса
// и синхронизации проекции профиля.
type TechnicianDirectoryInterface interface {
	FindByID(ctx context.Context, id string) (*entities.Technician, error)
	// FindForUpdate берет тот же advisory-ключ, что и назначение выездов, и блокирует строку.
	FindForUpdate(ctx context.Context, tx pgx.Tx, id string) (*entities.Technician, error)
	FindByIDs(ctx context.Context, ids []string) (map[string]*entities.Technician, error)
	ListByRole(ctx context.Context, role string) ([]*entities.Technician, error)
	UpdateStatus(ctx context.Context, tx pgx.Tx, id string, status entities.TechnicianStatus) error
	Upsert(ctx context.Context, t *entities.Technician) error
}

type technicianRepository struct {
	storage *pgxpool.Pool
	logger  *zap.Logger
}

func NewTechnicianRepository(storage *pgxpool.Pool, logger *zap.Logger) TechnicianDirectoryInterface {
	return &technicianRepository{storage: storage, logger: logger}
}

func scanTechnician(row pgx.Row) (*entities.Technician, error) {
	var t entities.Technician
	var status string
	if err := row.Scan(&t.ID, &t.Name, &t.Email, &t.Phone, &t.Role, &t.Skills, &status); err != nil {
		return nil, err
	}
	t.CurrentStatus = entities.TechnicianStatus(status)
	if t.Skills == nil {
		t.Skills = []string{}
	}
	return &t, nil
}

func (r *technicianRepository) FindByID(ctx context.Context, id string) (*entities.Technician, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = $1", technicianFields, technicianTable)
	t, err := scanTechnician(r.storage.QueryRow(ctx, query, id))
	if err != nil {
		return nil, notFoundOr("technician.find", "technician", id, err)
	}
	return t, nil
}

func (r *technicianRepository) FindForUpdate(ctx context.Context, tx pgx.Tx, id string) (*entities.Technician, error) {
	if tx == nil {
		return r.FindByID(ctx, id)
	}
	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock(hashtext($1))", id); err != nil {
		return nil, storageError("technician.lock", err)
	}
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = $1 FOR UPDATE", technicianFields, technicianTable)
	t, err := scanTechnician(tx.QueryRow(ctx, query, id))
	if err != nil {
		return nil, notFoundOr("technician.find_for_update", "technician", id, err)
	}
	return t, nil
}

func (r *technicianRepository) FindByIDs(ctx context.Context, ids []string) (map[string]*entities.Technician, error) {
	result := make(map[string]*entities.Technician, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	query, args, err := sq.Select(technicianFields).From(technicianTable).
		Where(sq.Eq{"id": ids}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, storageError("technician.find_many.build", err)
	}

	techs, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	for _, t := range techs {
		result[t.ID] = t
	}
	return result, nil
}

func (r *technicianRepository) ListByRole(ctx context.Context, role string) ([]*entities.Technician, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE role = $1 ORDER BY id", technicianFields, technicianTable)
	return r.query(ctx, query, role)
}

func (r *technicianRepository) query(ctx context.Context, query string, args ...interface{}) ([]*entities.Technician, error) {
	rows, err := r.storage.Query(ctx, query, args...)
	if err != nil {
		return nil, storageError("technician.query", err)
	}
	defer rows.Close()

	techs := make([]*entities.Technician, 0)
	for rows.Next() {
		t, err := scanTechnician(rows)
		if err != nil {
			return nil, storageError("technician.scan", err)
		}
		techs = append(techs, t)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("technician.rows", err)
	}
	return techs, nil
}

func (r *technicianRepository) UpdateStatus(ctx context.Context, tx pgx.Tx, id string, status entities.TechnicianStatus) error {
	tag, err := pick(tx, r.storage).Exec(ctx,
		fmt.Sprintf("UPDATE %s SET current_status = $1, updated_at = NOW() WHERE id = $2", technicianTable),
		string(status), id)
	if err != nil {
		return storageError("technician.update_status", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NewNotFoundError("technician", id)
	}
	return nil
}

func (r *technicianRepository) Upsert(ctx context.Context, t *entities.Technician) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, name, email, phone, role, skills, current_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name, email = EXCLUDED.email, phone = EXCLUDED.phone,
			role = EXCLUDED.role, skills = EXCLUDED.skills, updated_at = NOW()`, technicianTable)

	_, err := r.storage.Exec(ctx, query, t.ID, t.Name, t.Email, t.Phone, t.Role, textArray(t.Skills), string(t.CurrentStatus))
	if err != nil {
		return storageError("technician.upsert", err)
	}
	return nil
}
