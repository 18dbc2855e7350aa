package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"dispatch-system/internal/entities"
)

const (
	dispatchHistoryTable  = "dispatch_history"
	dispatchHistoryFields = "event_id::text, dispatch_id, action, old_value, new_value, COALESCE(changed_by, ''), changed_at, metadata"

	statusHistoryTable  = "technician_status_history"
	statusHistoryFields = "event_id::text, technician_id, status, changed_from, changed_at, COALESCE(changed_by, ''), reason, metadata"
)

// Журналы только добавляются: пути обновления и удаления нет.
type DispatchHistoryRepositoryInterface interface {
	// Append идемпотентен по EventID.
	Append(ctx context.Context, e *entities.DispatchHistoryEvent) error
	FindByDispatch(ctx context.Context, dispatchID string) ([]*entities.DispatchHistoryEvent, error)
}

type TechnicianStatusHistoryRepositoryInterface interface {
	Append(ctx context.Context, e *entities.TechnicianStatusEvent) error
	FindByTechnician(ctx context.Context, technicianID string) ([]*entities.TechnicianStatusEvent, error)
}

type dispatchHistoryRepository struct {
	storage *pgxpool.Pool
	logger  *zap.Logger
}

func NewDispatchHistoryRepository(storage *pgxpool.Pool, logger *zap.Logger) DispatchHistoryRepositoryInterface {
	return &dispatchHistoryRepository{storage: storage, logger: logger}
}

func (r *dispatchHistoryRepository) Append(ctx context.Context, e *entities.DispatchHistoryEvent) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (event_id, dispatch_id, action, old_value, new_value, changed_by, changed_at, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (event_id) DO NOTHING`, dispatchHistoryTable)

	_, err := r.storage.Exec(ctx, query, e.EventID, e.DispatchID, string(e.Action),
		jsonParam(e.OldValue), jsonParam(e.NewValue), e.ChangedBy, e.ChangedAt, jsonParam(e.Metadata))
	if err != nil {
		return storageError("dispatch_history.append", err)
	}
	return nil
}

// FindByDispatch не фильтрует по is_deleted: история удаленного выезда остается доступной.
func (r *dispatchHistoryRepository) FindByDispatch(ctx context.Context, dispatchID string) ([]*entities.DispatchHistoryEvent, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE dispatch_id = $1 ORDER BY changed_at, id", dispatchHistoryFields, dispatchHistoryTable)
	rows, err := r.storage.Query(ctx, query, dispatchID)
	if err != nil {
		return nil, storageError("dispatch_history.list", err)
	}
	defer rows.Close()

	events := make([]*entities.DispatchHistoryEvent, 0)
	for rows.Next() {
		var e entities.DispatchHistoryEvent
		var action string
		var oldValue, newValue, metadata []byte
		if err := rows.Scan(&e.EventID, &e.DispatchID, &action, &oldValue, &newValue, &e.ChangedBy, &e.ChangedAt, &metadata); err != nil {
			return nil, storageError("dispatch_history.scan", err)
		}
		e.Action = entities.HistoryAction(action)
		e.OldValue, e.NewValue, e.Metadata = nonEmpty(oldValue), nonEmpty(newValue), nonEmpty(metadata)
		events = append(events, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("dispatch_history.rows", err)
	}
	return events, nil
}

type technicianStatusHistoryRepository struct {
	storage *pgxpool.Pool
	logger  *zap.Logger
}

func NewTechnicianStatusHistoryRepository(storage *pgxpool.Pool, logger *zap.Logger) TechnicianStatusHistoryRepositoryInterface {
	return &technicianStatusHistoryRepository{storage: storage, logger: logger}
}

func (r *technicianStatusHistoryRepository) Append(ctx context.Context, e *entities.TechnicianStatusEvent) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (event_id, technician_id, status, changed_from, changed_at, changed_by, reason, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (event_id) DO NOTHING`, statusHistoryTable)

	var changedFrom *string
	if e.ChangedFrom != nil {
		s := string(*e.ChangedFrom)
		changedFrom = &s
	}

	_, err := r.storage.Exec(ctx, query, e.EventID, e.TechnicianID, string(e.Status), changedFrom,
		e.ChangedAt, e.ChangedBy, e.Reason, jsonParam(e.Metadata))
	if err != nil {
		return storageError("status_history.append", err)
	}
	return nil
}

func (r *technicianStatusHistoryRepository) FindByTechnician(ctx context.Context, technicianID string) ([]*entities.TechnicianStatusEvent, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE technician_id = $1 ORDER BY changed_at, id", statusHistoryFields, statusHistoryTable)
	rows, err := r.storage.Query(ctx, query, technicianID)
	if err != nil {
		return nil, storageError("status_history.list", err)
	}
	defer rows.Close()

	events := make([]*entities.TechnicianStatusEvent, 0)
	for rows.Next() {
		var e entities.TechnicianStatusEvent
		var status string
		var changedFrom *string
		var metadata []byte
		if err := rows.Scan(&e.EventID, &e.TechnicianID, &status, &changedFrom, &e.ChangedAt, &e.ChangedBy, &e.Reason, &metadata); err != nil {
			return nil, storageError("status_history.scan", err)
		}
		e.Status = entities.TechnicianStatus(status)
		if changedFrom != nil {
			from := entities.TechnicianStatus(*changedFrom)
			e.ChangedFrom = &from
		}
		e.Metadata = nonEmpty(metadata)
		events = append(events, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("status_history.rows", err)
	}
	return events, nil
}

func nonEmpty(raw []byte) []byte {
	if len(raw) == 0 {
		return nil
	}
	return raw
}
