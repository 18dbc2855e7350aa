package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"dispatch-system/internal/approval"
	"dispatch-system/internal/entities"
)

const approvalFields = "status, created_at, approved_by, approved_at, decision_comment"

// CostEntryRepositoryInterface - хранилище одного вида записей затрат.
type CostEntryRepositoryInterface[T entities.CostEntry] interface {
	Create(ctx context.Context, tx pgx.Tx, e T) error
	FindByID(ctx context.Context, id string) (T, error)
	FindForUpdate(ctx context.Context, tx pgx.Tx, id string) (T, error)
	UpdateApproval(ctx context.Context, tx pgx.Tx, e T, expected approval.Status) error
	FindByDispatch(ctx context.Context, dispatchID string) ([]T, error)
}

// costTable описывает таблицу конкретного вида записи.
type costTable[T entities.CostEntry] struct {
	table  string
	entity string
	fields string
	scan   func(row pgx.Row) (T, error)
	insert func(ctx context.Context, q querier, e T) error
}

type costEntryRepository[T entities.CostEntry] struct {
	storage *pgxpool.Pool
	logger  *zap.Logger
	def     costTable[T]
}

func (r *costEntryRepository[T]) Create(ctx context.Context, tx pgx.Tx, e T) error {
	if err := r.def.insert(ctx, pick(tx, r.storage), e); err != nil {
		return storageError(r.def.entity+".create", err)
	}
	return nil
}

func (r *costEntryRepository[T]) FindByID(ctx context.Context, id string) (T, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = $1", r.def.fields, r.def.table)
	e, err := r.def.scan(r.storage.QueryRow(ctx, query, id))
	if err != nil {
		var zero T
		return zero, notFoundOr(r.def.entity+".find", r.def.entity, id, err)
	}
	return e, nil
}

func (r *costEntryRepository[T]) FindForUpdate(ctx context.Context, tx pgx.Tx, id string) (T, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = $1", r.def.fields, r.def.table)
	if tx != nil {
		query += " FOR UPDATE"
	}
	e, err := r.def.scan(pick(tx, r.storage).QueryRow(ctx, query, id))
	if err != nil {
		var zero T
		return zero, notFoundOr(r.def.entity+".find_for_update", r.def.entity, id, err)
	}
	return e, nil
}

func (r *costEntryRepository[T]) UpdateApproval(ctx context.Context, tx pgx.Tx, e T, expected approval.Status) error {
	return updateApproval(ctx, pick(tx, r.storage), r.def.table, r.def.entity, e.EntryID(), e.Approval(), expected)
}

func (r *costEntryRepository[T]) FindByDispatch(ctx context.Context, dispatchID string) ([]T, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE dispatch_id = $1 ORDER BY created_at, id", r.def.fields, r.def.table)
	rows, err := r.storage.Query(ctx, query, dispatchID)
	if err != nil {
		return nil, storageError(r.def.entity+".list", err)
	}
	defer rows.Close()

	entries := make([]T, 0)
	for rows.Next() {
		e, err := r.def.scan(rows)
		if err != nil {
			return nil, storageError(r.def.entity+".scan", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError(r.def.entity+".rows", err)
	}
	return entries, nil
}

// Учет времени

func NewTimeEntryRepository(storage *pgxpool.Pool, logger *zap.Logger) CostEntryRepositoryInterface[*entities.TimeEntry] {
	return &costEntryRepository[*entities.TimeEntry]{storage: storage, logger: logger, def: costTable[*entities.TimeEntry]{
		table:  "dispatch_time_entries",
		entity: "time_entry",
		fields: "id, dispatch_id, technician_id, work_type, start_time, end_time, COALESCE(duration, 0), description, billable, " +
			"COALESCE(hourly_rate, 0), COALESCE(total_cost, 0), " + approvalFields,
		scan: func(row pgx.Row) (*entities.TimeEntry, error) {
			var e entities.TimeEntry
			var status string
			err := row.Scan(&e.ID, &e.DispatchID, &e.TechnicianID, &e.WorkType, &e.StartTime, &e.EndTime, &e.Duration,
				&e.Description, &e.Billable, &e.HourlyRate, &e.TotalCost,
				&status, &e.CreatedAt, &e.DecidedBy, &e.DecidedAt, &e.Comment)
			if err != nil {
				return nil, err
			}
			e.Status = approval.Status(status)
			return &e, nil
		},
		insert: func(ctx context.Context, q querier, e *entities.TimeEntry) error {
			_, err := q.Exec(ctx, `
				INSERT INTO dispatch_time_entries (id, dispatch_id, technician_id, work_type, start_time, end_time, duration,
					description, billable, hourly_rate, total_cost, status, created_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
				e.ID, e.DispatchID, e.TechnicianID, e.WorkType, e.StartTime, e.EndTime, e.Duration,
				e.Description, e.Billable, e.HourlyRate, e.TotalCost, string(e.Status), e.CreatedAt)
			return err
		},
	}}
}

// Расходы

func NewExpenseRepository(storage *pgxpool.Pool, logger *zap.Logger) CostEntryRepositoryInterface[*entities.Expense] {
	return &costEntryRepository[*entities.Expense]{storage: storage, logger: logger, def: costTable[*entities.Expense]{
		table:  "dispatch_expenses",
		entity: "expense",
		fields: "id, dispatch_id, technician_id, COALESCE(type, ''), amount, COALESCE(currency, ''), description, date, " + approvalFields,
		scan: func(row pgx.Row) (*entities.Expense, error) {
			var e entities.Expense
			var status string
			var date pgtype.Date
			err := row.Scan(&e.ID, &e.DispatchID, &e.TechnicianID, &e.Type, &e.Amount, &e.Currency, &e.Description, &date,
				&status, &e.CreatedAt, &e.DecidedBy, &e.DecidedAt, &e.Comment)
			if err != nil {
				return nil, err
			}
			e.Date = dateFrom(date)
			e.Status = approval.Status(status)
			return &e, nil
		},
		insert: func(ctx context.Context, q querier, e *entities.Expense) error {
			_, err := q.Exec(ctx, `
				INSERT INTO dispatch_expenses (id, dispatch_id, technician_id, type, amount, currency, description, date, status, created_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
				e.ID, e.DispatchID, e.TechnicianID, e.Type, e.Amount, e.Currency, e.Description, dateParam(e.Date),
				string(e.Status), e.CreatedAt)
			return err
		},
	}}
}

// Материалы

func NewMaterialRepository(storage *pgxpool.Pool, logger *zap.Logger) CostEntryRepositoryInterface[*entities.Material] {
	return &costEntryRepository[*entities.Material]{storage: storage, logger: logger, def: costTable[*entities.Material]{
		table:  "dispatch_materials",
		entity: "material",
		fields: "id, dispatch_id, technician_id, article_id, article_name, sku, quantity, unit_price, COALESCE(total_price, 0), used_at, " +
			approvalFields,
		scan: func(row pgx.Row) (*entities.Material, error) {
			var e entities.Material
			var status string
			err := row.Scan(&e.ID, &e.DispatchID, &e.TechnicianID, &e.ArticleID, &e.ArticleName, &e.SKU, &e.Quantity,
				&e.UnitPrice, &e.TotalPrice, &e.UsedAt,
				&status, &e.CreatedAt, &e.DecidedBy, &e.DecidedAt, &e.Comment)
			if err != nil {
				return nil, err
			}
			e.Status = approval.Status(status)
			return &e, nil
		},
		insert: func(ctx context.Context, q querier, e *entities.Material) error {
			_, err := q.Exec(ctx, `
				INSERT INTO dispatch_materials (id, dispatch_id, technician_id, article_id, article_name, sku, quantity,
					unit_price, total_price, used_at, status, created_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
				e.ID, e.DispatchID, e.TechnicianID, e.ArticleID, e.ArticleName, e.SKU, e.Quantity,
				e.UnitPrice, e.TotalPrice, e.UsedAt, string(e.Status), e.CreatedAt)
			return err
		},
	}}
}
