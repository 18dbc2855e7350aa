package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"dispatch-system/internal/entities"
	apperrors "dispatch-system/pkg/errors"
	"dispatch-system/pkg/types"
)

const (
	workingHoursTable  = "technician_working_hours"
	workingHoursFields = "id, technician_id, day_of_week, start_time, end_time, is_active, effective_from, effective_until, created_at, updated_at"
)

type WorkingHoursRepositoryInterface interface {
	Create(ctx context.Context, w *entities.WorkingHoursWindow) error
	Update(ctx context.Context, w *entities.WorkingHoursWindow) error
	FindByID(ctx context.Context, id string) (*entities.WorkingHoursWindow, error)
	FindByTechnician(ctx context.Context, technicianID string) ([]*entities.WorkingHoursWindow, error)
}

type workingHoursRepository struct {
	storage *pgxpool.Pool
	logger  *zap.Logger
}

func NewWorkingHoursRepository(storage *pgxpool.Pool, logger *zap.Logger) WorkingHoursRepositoryInterface {
	return &workingHoursRepository{storage: storage, logger: logger}
}

func scanWorkingHours(row pgx.Row) (*entities.WorkingHoursWindow, error) {
	var w entities.WorkingHoursWindow
	var start, end pgtype.Time
	var from, until pgtype.Date
	err := row.Scan(&w.ID, &w.TechnicianID, &w.DayOfWeek, &start, &end, &w.IsActive, &from, &until, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if win := windowFrom(start, end); win != nil {
		w.Window = *win
	}
	w.EffectiveFrom = dateFrom(from)
	w.EffectiveUntil = dateFrom(until)
	return &w, nil
}

func windowParams(w types.TimeWindow) (pgtype.Time, pgtype.Time) {
	return timeParam(&w.Start), timeParam(&w.End)
}

func (r *workingHoursRepository) Create(ctx context.Context, w *entities.WorkingHoursWindow) error {
	start, end := windowParams(w.Window)
	query := fmt.Sprintf(`
		INSERT INTO %s (id, technician_id, day_of_week, start_time, end_time, is_active, effective_from, effective_until, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`, workingHoursTable)

	_, err := r.storage.Exec(ctx, query, w.ID, w.TechnicianID, w.DayOfWeek, start, end, w.IsActive,
		dateParam(w.EffectiveFrom), dateParam(w.EffectiveUntil), w.CreatedAt, w.UpdatedAt)
	if err != nil {
		return storageError("working_hours.create", err)
	}
	return nil
}

func (r *workingHoursRepository) Update(ctx context.Context, w *entities.WorkingHoursWindow) error {
	start, end := windowParams(w.Window)
	query := fmt.Sprintf(`
		UPDATE %s SET day_of_week = $1, start_time = $2, end_time = $3, is_active = $4,
			effective_from = $5, effective_until = $6, updated_at = $7
		WHERE id = $8`, workingHoursTable)

	tag, err := r.storage.Exec(ctx, query, w.DayOfWeek, start, end, w.IsActive,
		dateParam(w.EffectiveFrom), dateParam(w.EffectiveUntil), w.UpdatedAt, w.ID)
	if err != nil {
		return storageError("working_hours.update", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NewNotFoundError("working_hours", w.ID)
	}
	return nil
}

func (r *workingHoursRepository) FindByID(ctx context.Context, id string) (*entities.WorkingHoursWindow, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = $1", workingHoursFields, workingHoursTable)
	w, err := scanWorkingHours(r.storage.QueryRow(ctx, query, id))
	if err != nil {
		return nil, notFoundOr("working_hours.find", "working_hours", id, err)
	}
	return w, nil
}

func (r *workingHoursRepository) FindByTechnician(ctx context.Context, technicianID string) ([]*entities.WorkingHoursWindow, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE technician_id = $1 ORDER BY day_of_week, start_time", workingHoursFields, workingHoursTable)
	rows, err := r.storage.Query(ctx, query, technicianID)
	if err != nil {
		return nil, storageError("working_hours.list", err)
	}
	defer rows.Close()

	windows := make([]*entities.WorkingHoursWindow, 0)
	for rows.Next() {
		w, err := scanWorkingHours(rows)
		if err != nil {
			return nil, storageError("working_hours.scan", err)
		}
		windows = append(windows, w)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("working_hours.rows", err)
	}
	return windows, nil
}
