package memory

import (
	"context"
	"sort"

	"github.com/jackc/pgx/v5"

	"dispatch-system/internal/approval"
	"dispatch-system/internal/entities"
	apperrors "dispatch-system/pkg/errors"
)

type costStore[T entities.CostEntry] struct {
	entity string
	clone  func(T) T
	rows   map[string]T
}

func newCostStore[T entities.CostEntry](entity string, clone func(T) T) *costStore[T] {
	return &costStore[T]{entity: entity, clone: clone, rows: make(map[string]T)}
}

type costRepository[T entities.CostEntry] struct {
	s     *Store
	store *costStore[T]
}

func (r *costRepository[T]) Create(ctx context.Context, tx pgx.Tx, e T) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if d, ok := r.s.dispatches[e.EntryDispatchID()]; !ok || d.IsDeleted {
		return apperrors.NewNotFoundError("dispatch", e.EntryDispatchID())
	}
	r.store.rows[e.EntryID()] = r.store.clone(e)
	return nil
}

func (r *costRepository[T]) FindByID(ctx context.Context, id string) (T, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	e, ok := r.store.rows[id]
	if !ok {
		var zero T
		return zero, apperrors.NewNotFoundError(r.store.entity, id)
	}
	return r.store.clone(e), nil
}

func (r *costRepository[T]) FindForUpdate(ctx context.Context, tx pgx.Tx, id string) (T, error) {
	return r.FindByID(ctx, id)
}

func (r *costRepository[T]) UpdateApproval(ctx context.Context, tx pgx.Tx, e T, expected approval.Status) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	current, ok := r.store.rows[e.EntryID()]
	if !ok || current.Approval().Status != expected {
		return apperrors.NewInvalidTransitionError(r.store.entity, e.EntryID(), string(expected), string(e.Approval().Status))
	}
	current.SetApproval(e.Approval())
	return nil
}

func (r *costRepository[T]) FindByDispatch(ctx context.Context, dispatchID string) ([]T, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	list := make([]T, 0)
	for _, e := range r.store.rows {
		if e.EntryDispatchID() == dispatchID {
			list = append(list, r.store.clone(e))
		}
	}
	sort.Slice(list, func(i, j int) bool {
		a, b := list[i].Approval().CreatedAt, list[j].Approval().CreatedAt
		if !a.Equal(b) {
			return a.Before(b)
		}
		return list[i].EntryID() < list[j].EntryID()
	})
	return list, nil
}
