package repositories

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"dispatch-system/internal/entities"
	apperrors "dispatch-system/pkg/errors"
	"dispatch-system/pkg/types"
)

const (
	dispatchTable  = "dispatches"
	dispatchFields = `d.id, d.dispatch_number, d.service_order_id, d.job_id, d.status, d.priority,
		d.required_skills, d.scheduled_date, d.scheduled_start_time, d.scheduled_end_time,
		d.estimated_duration, d.actual_start_time, d.actual_end_time, d.actual_duration,
		d.work_location, d.completion_percentage, d.dispatched_by, d.dispatched_at,
		d.created_at, d.updated_at, d.is_deleted`
)

var activeDispatchStatuses = []string{string(entities.DispatchAssigned), string(entities.DispatchInProgress)}

var dispatchSortColumns = map[string]string{
	"created_at":      "d.created_at",
	"scheduled_date":  "d.scheduled_date",
	"priority":        "CASE d.priority WHEN 'low' THEN 1 WHEN 'medium' THEN 2 WHEN 'high' THEN 3 WHEN 'urgent' THEN 4 END",
	"status":          "d.status",
	"dispatch_number": "d.dispatch_number",
}

type DispatchRepositoryInterface interface {
	Create(ctx context.Context, tx pgx.Tx, d *entities.Dispatch) error
	FindByID(ctx context.Context, id string) (*entities.Dispatch, error)
	FindForUpdate(ctx context.Context, tx pgx.Tx, id string) (*entities.Dispatch, error)
	// FindIncludingDeleted видит и мягко удаленные выезды. Нужен для истории.
	FindIncludingDeleted(ctx context.Context, id string) (*entities.Dispatch, error)
	// Update пишет строку и заменяет назначения, если статус в БД все еще expected.
	Update(ctx context.Context, tx pgx.Tx, d *entities.Dispatch, expected entities.DispatchStatus) error
	List(ctx context.Context, filter entities.DispatchFilter) ([]*entities.Dispatch, uint64, error)
	FindActiveBookings(ctx context.Context, tx pgx.Tx, technicianID string, date civil.Date, excludeDispatchID string) ([]*entities.Dispatch, error)
	CountActiveWorkload(ctx context.Context, technicianIDs []string) (map[string]int, error)
	// LockTechnicians берет advisory-блокировки уровня транзакции в порядке id.
	LockTechnicians(ctx context.Context, tx pgx.Tx, technicianIDs []string) error
}

type dispatchRepository struct {
	storage *pgxpool.Pool
	logger  *zap.Logger
}

func NewDispatchRepository(storage *pgxpool.Pool, logger *zap.Logger) DispatchRepositoryInterface {
	return &dispatchRepository{storage: storage, logger: logger}
}

func scanDispatch(row pgx.Row) (*entities.Dispatch, error) {
	var (
		d                    entities.Dispatch
		status, priority     string
		schedDate            pgtype.Date
		schedStart, schedEnd pgtype.Time
		actualDuration       *int64
		workLocation         []byte
	)

	err := row.Scan(
		&d.ID, &d.DispatchNumber, &d.ServiceOrderID, &d.JobID, &status, &priority,
		&d.RequiredSkills, &schedDate, &schedStart, &schedEnd,
		&d.EstimatedDuration, &d.ActualStartTime, &d.ActualEndTime, &actualDuration,
		&workLocation, &d.CompletionPercentage, &d.DispatchedBy, &d.DispatchedAt,
		&d.CreatedAt, &d.UpdatedAt, &d.IsDeleted,
	)
	if err != nil {
		return nil, err
	}

	d.Status = entities.DispatchStatus(status)
	d.Priority = entities.Priority(priority)
	if date := dateFrom(schedDate); date != nil {
		if w := windowFrom(schedStart, schedEnd); w != nil {
			d.Schedule = &types.Schedule{Date: *date, Window: *w}
		}
	}
	if actualDuration != nil {
		dur := time.Duration(*actualDuration) * time.Second
		d.ActualDuration = &dur
	}
	if len(workLocation) > 0 {
		d.WorkLocation = workLocation
	}
	if d.RequiredSkills == nil {
		d.RequiredSkills = []string{}
	}
	return &d, nil
}

func scheduleParams(s *types.Schedule) (pgtype.Date, pgtype.Time, pgtype.Time) {
	if s == nil {
		return pgtype.Date{}, pgtype.Time{}, pgtype.Time{}
	}
	return dateParam(&s.Date), timeParam(&s.Window.Start), timeParam(&s.Window.End)
}

func durationParam(d *time.Duration) *int64 {
	if d == nil {
		return nil
	}
	secs := int64(*d / time.Second)
	return &secs
}

func (r *dispatchRepository) Create(ctx context.Context, tx pgx.Tx, d *entities.Dispatch) error {
	q := pick(tx, r.storage)
	date, start, end := scheduleParams(d.Schedule)

	query := fmt.Sprintf(`
		INSERT INTO %s (id, dispatch_number, service_order_id, job_id, status, priority, required_skills,
			scheduled_date, scheduled_start_time, scheduled_end_time, estimated_duration, work_location,
			completion_percentage, created_at, updated_at, is_deleted)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, FALSE)`, dispatchTable)

	_, err := q.Exec(ctx, query,
		d.ID, d.DispatchNumber, d.ServiceOrderID, d.JobID, string(d.Status), string(d.Priority), textArray(d.RequiredSkills),
		date, start, end, d.EstimatedDuration, jsonParam(d.WorkLocation),
		d.CompletionPercentage, d.CreatedAt, d.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.NewConflictError("dispatch", "dispatch_number", d.DispatchNumber)
		}
		return storageError("dispatch.create", err)
	}

	return r.replaceAssignments(ctx, q, d)
}

func (r *dispatchRepository) FindByID(ctx context.Context, id string) (*entities.Dispatch, error) {
	return r.findOne(ctx, r.storage, id, false, false)
}

func (r *dispatchRepository) FindForUpdate(ctx context.Context, tx pgx.Tx, id string) (*entities.Dispatch, error) {
	return r.findOne(ctx, pick(tx, r.storage), id, tx != nil, false)
}

func (r *dispatchRepository) FindIncludingDeleted(ctx context.Context, id string) (*entities.Dispatch, error) {
	return r.findOne(ctx, r.storage, id, false, true)
}

func (r *dispatchRepository) findOne(ctx context.Context, q querier, id string, forUpdate, withDeleted bool) (*entities.Dispatch, error) {
	query := fmt.Sprintf("SELECT %s FROM %s d WHERE d.id = $1", dispatchFields, dispatchTable)
	if !withDeleted {
		query += " AND d.is_deleted = FALSE"
	}
	if forUpdate {
		query += " FOR UPDATE"
	}

	d, err := scanDispatch(q.QueryRow(ctx, query, id))
	if err != nil {
		return nil, notFoundOr("dispatch.find", "dispatch", id, err)
	}

	assignments, err := r.loadAssignments(ctx, q, []string{d.ID})
	if err != nil {
		return nil, err
	}
	d.Technicians = assignments[d.ID]
	return d, nil
}

func (r *dispatchRepository) Update(ctx context.Context, tx pgx.Tx, d *entities.Dispatch, expected entities.DispatchStatus) error {
	q := pick(tx, r.storage)
	date, start, end := scheduleParams(d.Schedule)

	query := fmt.Sprintf(`
		UPDATE %s SET
			status = $1, priority = $2, required_skills = $3,
			scheduled_date = $4, scheduled_start_time = $5, scheduled_end_time = $6,
			actual_start_time = $7, actual_end_time = $8, actual_duration = $9,
			completion_percentage = $10, dispatched_by = $11, dispatched_at = $12,
			updated_at = $13, is_deleted = $14
		WHERE id = $15 AND status = $16 AND is_deleted = FALSE`, dispatchTable)

	tag, err := q.Exec(ctx, query,
		string(d.Status), string(d.Priority), textArray(d.RequiredSkills),
		date, start, end,
		d.ActualStartTime, d.ActualEndTime, durationParam(d.ActualDuration),
		d.CompletionPercentage, d.DispatchedBy, d.DispatchedAt,
		d.UpdatedAt, d.IsDeleted,
		d.ID, string(expected),
	)
	if err != nil {
		return storageError("dispatch.update", err)
	}
	if tag.RowsAffected() == 0 {
		// Строку изменили или удалили между чтением и записью.
		return apperrors.NewInvalidTransitionError("dispatch", d.ID, string(expected), string(d.Status))
	}

	return r.replaceAssignments(ctx, q, d)
}

func (r *dispatchRepository) replaceAssignments(ctx context.Context, q querier, d *entities.Dispatch) error {
	if _, err := q.Exec(ctx, "DELETE FROM dispatch_technicians WHERE dispatch_id = $1", d.ID); err != nil {
		return storageError("dispatch.assignments.delete", err)
	}
	for _, a := range d.Technicians {
		_, err := q.Exec(ctx, `
			INSERT INTO dispatch_technicians (dispatch_id, technician_id, name, email, phone, assigned_at)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			d.ID, a.TechnicianID, a.Name, a.Email, a.Phone, a.AssignedAt)
		if err != nil {
			return storageError("dispatch.assignments.insert", err)
		}
	}
	return nil
}

func (r *dispatchRepository) loadAssignments(ctx context.Context, q querier, dispatchIDs []string) (map[string][]entities.TechnicianAssignment, error) {
	result := make(map[string][]entities.TechnicianAssignment, len(dispatchIDs))
	if len(dispatchIDs) == 0 {
		return result, nil
	}

	query, args, err := sq.Select("dispatch_id", "technician_id", "COALESCE(name, '')", "email", "phone", "assigned_at").
		From("dispatch_technicians").
		Where(sq.Eq{"dispatch_id": dispatchIDs}).
		OrderBy("technician_id").
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, storageError("dispatch.assignments.build", err)
	}

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, storageError("dispatch.assignments.load", err)
	}
	defer rows.Close()

	for rows.Next() {
		var a entities.TechnicianAssignment
		var assignedAt *time.Time
		if err := rows.Scan(&a.DispatchID, &a.TechnicianID, &a.Name, &a.Email, &a.Phone, &assignedAt); err != nil {
			return nil, storageError("dispatch.assignments.scan", err)
		}
		if assignedAt != nil {
			a.AssignedAt = *assignedAt
		}
		result[a.DispatchID] = append(result[a.DispatchID], a)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("dispatch.assignments.rows", err)
	}
	return result, nil
}

func (r *dispatchRepository) List(ctx context.Context, filter entities.DispatchFilter) ([]*entities.Dispatch, uint64, error) {
	where := sq.And{sq.Eq{"d.is_deleted": false}}

	if len(filter.Statuses) > 0 {
		statuses := make([]string, 0, len(filter.Statuses))
		for _, s := range filter.Statuses {
			statuses = append(statuses, string(s))
		}
		where = append(where, sq.Eq{"d.status": statuses})
	}
	if len(filter.Priorities) > 0 {
		priorities := make([]string, 0, len(filter.Priorities))
		for _, p := range filter.Priorities {
			priorities = append(priorities, string(p))
		}
		where = append(where, sq.Eq{"d.priority": priorities})
	}
	if filter.TechnicianID != "" {
		where = append(where, sq.Expr(
			"EXISTS (SELECT 1 FROM dispatch_technicians dt WHERE dt.dispatch_id = d.id AND dt.technician_id = ?)",
			filter.TechnicianID))
	}
	if filter.DateFrom != nil {
		where = append(where, sq.GtOrEq{"d.scheduled_date": dateParam(filter.DateFrom)})
	}
	if filter.DateTo != nil {
		where = append(where, sq.LtOrEq{"d.scheduled_date": dateParam(filter.DateTo)})
	}
	if filter.Search != "" {
		where = append(where, sq.ILike{"d.dispatch_number": "%" + filter.Search + "%"})
	}

	countQuery, countArgs, err := sq.Select("COUNT(*)").From(dispatchTable + " d").Where(where).
		PlaceholderFormat(sq.Dollar).ToSql()
	if err != nil {
		return nil, 0, storageError("dispatch.list.build", err)
	}

	var total uint64
	if err := r.storage.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, storageError("dispatch.list.count", err)
	}
	if total == 0 {
		return []*entities.Dispatch{}, 0, nil
	}

	sortColumn, ok := dispatchSortColumns[filter.SortBy]
	if !ok {
		sortColumn = "d.created_at"
	}
	order := "DESC"
	if strings.EqualFold(filter.SortOrder, "asc") {
		order = "ASC"
	}

	builder := sq.Select(dispatchFields).From(dispatchTable + " d").Where(where).
		OrderBy(sortColumn+" "+order, "d.id").
		PlaceholderFormat(sq.Dollar)
	if filter.Limit > 0 {
		builder = builder.Limit(filter.Limit).Offset(filter.Offset)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, 0, storageError("dispatch.list.build", err)
	}

	dispatches, err := r.queryDispatches(ctx, r.storage, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return dispatches, total, nil
}

func (r *dispatchRepository) queryDispatches(ctx context.Context, q querier, query string, args ...interface{}) ([]*entities.Dispatch, error) {
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, storageError("dispatch.query", err)
	}

	dispatches := make([]*entities.Dispatch, 0)
	ids := make([]string, 0)
	for rows.Next() {
		d, err := scanDispatch(rows)
		if err != nil {
			rows.Close()
			return nil, storageError("dispatch.scan", err)
		}
		dispatches = append(dispatches, d)
		ids = append(ids, d.ID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, storageError("dispatch.rows", err)
	}

	assignments, err := r.loadAssignments(ctx, q, ids)
	if err != nil {
		return nil, err
	}
	for _, d := range dispatches {
		d.Technicians = assignments[d.ID]
	}
	return dispatches, nil
}

func (r *dispatchRepository) FindActiveBookings(ctx context.Context, tx pgx.Tx, technicianID string, date civil.Date, excludeDispatchID string) ([]*entities.Dispatch, error) {
	builder := sq.Select(dispatchFields).
		From(dispatchTable + " d").
		Join("dispatch_technicians dt ON dt.dispatch_id = d.id").
		Where(sq.Eq{
			"dt.technician_id": technicianID,
			"d.status":         activeDispatchStatuses,
			"d.is_deleted":     false,
			"d.scheduled_date": dateParam(&date),
		}).
		OrderBy("d.scheduled_start_time").
		PlaceholderFormat(sq.Dollar)
	if excludeDispatchID != "" {
		builder = builder.Where(sq.NotEq{"d.id": excludeDispatchID})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, storageError("dispatch.bookings.build", err)
	}
	return r.queryDispatches(ctx, pick(tx, r.storage), query, args...)
}

func (r *dispatchRepository) CountActiveWorkload(ctx context.Context, technicianIDs []string) (map[string]int, error) {
	workload := make(map[string]int, len(technicianIDs))
	if len(technicianIDs) == 0 {
		return workload, nil
	}

	query, args, err := sq.Select("dt.technician_id", "COUNT(*)").
		From("dispatch_technicians dt").
		Join(dispatchTable + " d ON d.id = dt.dispatch_id").
		Where(sq.Eq{
			"dt.technician_id": technicianIDs,
			"d.status":         activeDispatchStatuses,
			"d.is_deleted":     false,
		}).
		GroupBy("dt.technician_id").
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, storageError("dispatch.workload.build", err)
	}

	rows, err := r.storage.Query(ctx, query, args...)
	if err != nil {
		return nil, storageError("dispatch.workload", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		var count int
		if err := rows.Scan(&id, &count); err != nil {
			return nil, storageError("dispatch.workload.scan", err)
		}
		workload[id] = count
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("dispatch.workload.rows", err)
	}
	return workload, nil
}

func (r *dispatchRepository) LockTechnicians(ctx context.Context, tx pgx.Tx, technicianIDs []string) error {
	if tx == nil {
		return storageError("dispatch.lock", fmt.Errorf("блокировка техников требует транзакции"))
	}
	ids := append([]string(nil), technicianIDs...)
	sort.Strings(ids)
	for _, id := range ids {
		if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock(hashtext($1))", id); err != nil {
			return storageError("dispatch.lock", err)
		}
	}
	return nil
}
