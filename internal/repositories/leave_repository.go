package repositories

import (
	"context"
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"dispatch-system/internal/approval"
	"dispatch-system/internal/entities"
)

const (
	leaveTable  = "technician_leaves"
	leaveFields = `id, technician_id, leave_type, start_date, end_date, start_time, end_time, reason,
		status, created_at, approved_by, approved_at, decision_comment, updated_at`
)

type LeaveRepositoryInterface interface {
	Create(ctx context.Context, l *entities.LeaveRecord) error
	FindByID(ctx context.Context, id string) (*entities.LeaveRecord, error)
	FindForUpdate(ctx context.Context, tx pgx.Tx, id string) (*entities.LeaveRecord, error)
	UpdateApproval(ctx context.Context, tx pgx.Tx, l *entities.LeaveRecord, expected approval.Status) error
	FindByTechnician(ctx context.Context, technicianID string) ([]*entities.LeaveRecord, error)
	// FindApprovedOn - согласованные отпуска, покрывающие дату.
	FindApprovedOn(ctx context.Context, technicianID string, date civil.Date) ([]*entities.LeaveRecord, error)
}

type leaveRepository struct {
	storage *pgxpool.Pool
	logger  *zap.Logger
}

func NewLeaveRepository(storage *pgxpool.Pool, logger *zap.Logger) LeaveRepositoryInterface {
	return &leaveRepository{storage: storage, logger: logger}
}

func scanLeave(row pgx.Row) (*entities.LeaveRecord, error) {
	var (
		l                  entities.LeaveRecord
		leaveType, status  string
		startDate, endDate pgtype.Date
		startTime, endTime pgtype.Time
	)
	err := row.Scan(&l.ID, &l.TechnicianID, &leaveType, &startDate, &endDate, &startTime, &endTime, &l.Reason,
		&status, &l.CreatedAt, &l.DecidedBy, &l.DecidedAt, &l.Comment, &l.UpdatedAt)
	if err != nil {
		return nil, err
	}
	l.LeaveType = entities.LeaveType(leaveType)
	l.Status = approval.Status(status)
	if d := dateFrom(startDate); d != nil {
		l.StartDate = *d
	}
	if d := dateFrom(endDate); d != nil {
		l.EndDate = *d
	}
	l.PartialDay = windowFrom(startTime, endTime)
	return &l, nil
}

func (r *leaveRepository) Create(ctx context.Context, l *entities.LeaveRecord) error {
	var start, end pgtype.Time
	if l.PartialDay != nil {
		start, end = windowParams(*l.PartialDay)
	}
	query := fmt.Sprintf(`
		INSERT INTO %s (id, technician_id, leave_type, start_date, end_date, start_time, end_time, reason, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`, leaveTable)

	_, err := r.storage.Exec(ctx, query, l.ID, l.TechnicianID, string(l.LeaveType),
		dateParam(&l.StartDate), dateParam(&l.EndDate), start, end, l.Reason,
		string(l.Status), l.CreatedAt, l.UpdatedAt)
	if err != nil {
		return storageError("leave.create", err)
	}
	return nil
}

func (r *leaveRepository) FindByID(ctx context.Context, id string) (*entities.LeaveRecord, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = $1", leaveFields, leaveTable)
	l, err := scanLeave(r.storage.QueryRow(ctx, query, id))
	if err != nil {
		return nil, notFoundOr("leave.find", "leave", id, err)
	}
	return l, nil
}

func (r *leaveRepository) FindForUpdate(ctx context.Context, tx pgx.Tx, id string) (*entities.LeaveRecord, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = $1", leaveFields, leaveTable)
	if tx != nil {
		query += " FOR UPDATE"
	}
	l, err := scanLeave(pick(tx, r.storage).QueryRow(ctx, query, id))
	if err != nil {
		return nil, notFoundOr("leave.find_for_update", "leave", id, err)
	}
	return l, nil
}

func (r *leaveRepository) UpdateApproval(ctx context.Context, tx pgx.Tx, l *entities.LeaveRecord, expected approval.Status) error {
	q := pick(tx, r.storage)
	if err := updateApproval(ctx, q, leaveTable, "leave", l.ID, l.State, expected); err != nil {
		return err
	}
	if _, err := q.Exec(ctx, fmt.Sprintf("UPDATE %s SET updated_at = $1 WHERE id = $2", leaveTable), l.UpdatedAt, l.ID); err != nil {
		return storageError("leave.touch", err)
	}
	return nil
}

func (r *leaveRepository) FindByTechnician(ctx context.Context, technicianID string) ([]*entities.LeaveRecord, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE technician_id = $1 ORDER BY start_date DESC", leaveFields, leaveTable)
	return r.query(ctx, query, technicianID)
}

func (r *leaveRepository) FindApprovedOn(ctx context.Context, technicianID string, date civil.Date) ([]*entities.LeaveRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s
		WHERE technician_id = $1 AND status = $2 AND start_date <= $3 AND end_date >= $3`, leaveFields, leaveTable)
	return r.query(ctx, query, technicianID, string(approval.StatusApproved), dateParam(&date))
}

func (r *leaveRepository) query(ctx context.Context, query string, args ...interface{}) ([]*entities.LeaveRecord, error) {
	rows, err := r.storage.Query(ctx, query, args...)
	if err != nil {
		return nil, storageError("leave.query", err)
	}
	defer rows.Close()

	leaves := make([]*entities.LeaveRecord, 0)
	for rows.Next() {
		l, err := scanLeave(rows)
		if err != nil {
			return nil, storageError("leave.scan", err)
		}
		leaves = append(leaves, l)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("leave.rows", err)
	}
	return leaves, nil
}
