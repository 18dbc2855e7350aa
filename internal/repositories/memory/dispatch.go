package memory

import (
	"context"
	"sort"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/jackc/pgx/v5"

	"dispatch-system/internal/entities"
	apperrors "dispatch-system/pkg/errors"
)

type dispatchRepository struct {
	s *Store
}

func (r *dispatchRepository) Create(ctx context.Context, tx pgx.Tx, d *entities.Dispatch) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.dispatches {
		if existing.DispatchNumber == d.DispatchNumber {
			return apperrors.NewConflictError("dispatch", "dispatch_number", d.DispatchNumber)
		}
	}
	r.s.dispatches[d.ID] = d.Clone()
	return nil
}

func (r *dispatchRepository) FindByID(ctx context.Context, id string) (*entities.Dispatch, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	d, ok := r.s.dispatches[id]
	if !ok || d.IsDeleted {
		return nil, apperrors.NewNotFoundError("dispatch", id)
	}
	return d.Clone(), nil
}

func (r *dispatchRepository) FindForUpdate(ctx context.Context, tx pgx.Tx, id string) (*entities.Dispatch, error) {
	return r.FindByID(ctx, id)
}

func (r *dispatchRepository) FindIncludingDeleted(ctx context.Context, id string) (*entities.Dispatch, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	d, ok := r.s.dispatches[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("dispatch", id)
	}
	return d.Clone(), nil
}

func (r *dispatchRepository) Update(ctx context.Context, tx pgx.Tx, d *entities.Dispatch, expected entities.DispatchStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	current, ok := r.s.dispatches[d.ID]
	if !ok || current.IsDeleted || current.Status != expected {
		return apperrors.NewInvalidTransitionError("dispatch", d.ID, string(expected), string(d.Status))
	}
	r.s.dispatches[d.ID] = d.Clone()
	return nil
}

func (r *dispatchRepository) List(ctx context.Context, filter entities.DispatchFilter) ([]*entities.Dispatch, uint64, error) {
	r.s.mu.RLock()
	matched := make([]*entities.Dispatch, 0)
	for _, d := range r.s.dispatches {
		if matchesFilter(d, filter) {
			matched = append(matched, d.Clone())
		}
	}
	r.s.mu.RUnlock()

	sortDispatches(matched, filter.SortBy, strings.EqualFold(filter.SortOrder, "asc"))

	total := uint64(len(matched))
	if filter.Limit > 0 {
		start := filter.Offset
		if start > total {
			start = total
		}
		end := start + filter.Limit
		if end > total {
			end = total
		}
		matched = matched[start:end]
	}
	return matched, total, nil
}

func matchesFilter(d *entities.Dispatch, f entities.DispatchFilter) bool {
	if d.IsDeleted {
		return false
	}
	if len(f.Statuses) > 0 && !contains(f.Statuses, d.Status) {
		return false
	}
	if len(f.Priorities) > 0 && !contains(f.Priorities, d.Priority) {
		return false
	}
	if f.TechnicianID != "" && !d.HasTechnician(f.TechnicianID) {
		return false
	}
	if f.DateFrom != nil || f.DateTo != nil {
		if d.Schedule == nil {
			return false
		}
		if f.DateFrom != nil && d.Schedule.Date.Before(*f.DateFrom) {
			return false
		}
		if f.DateTo != nil && d.Schedule.Date.After(*f.DateTo) {
			return false
		}
	}
	if f.Search != "" && !strings.Contains(strings.ToLower(d.DispatchNumber), strings.ToLower(f.Search)) {
		return false
	}
	return true
}

func contains[T comparable](values []T, v T) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}

func sortDispatches(list []*entities.Dispatch, by string, asc bool) {
	less := func(a, b *entities.Dispatch) int {
		switch by {
		case "scheduled_date":
			return compareDates(a, b)
		case "priority":
			return a.Priority.Rank() - b.Priority.Rank()
		case "status":
			return strings.Compare(string(a.Status), string(b.Status))
		case "dispatch_number":
			return strings.Compare(a.DispatchNumber, b.DispatchNumber)
		}
		return a.CreatedAt.Compare(b.CreatedAt)
	}
	sort.SliceStable(list, func(i, j int) bool {
		c := less(list[i], list[j])
		if c == 0 {
			return list[i].ID < list[j].ID
		}
		if asc {
			return c < 0
		}
		return c > 0
	})
}

func compareDates(a, b *entities.Dispatch) int {
	switch {
	case a.Schedule == nil && b.Schedule == nil:
		return 0
	case a.Schedule == nil:
		return 1
	case b.Schedule == nil:
		return -1
	case a.Schedule.Date.Before(b.Schedule.Date):
		return -1
	case a.Schedule.Date.After(b.Schedule.Date):
		return 1
	}
	return 0
}

func (r *dispatchRepository) FindActiveBookings(ctx context.Context, tx pgx.Tx, technicianID string, date civil.Date, excludeDispatchID string) ([]*entities.Dispatch, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	bookings := make([]*entities.Dispatch, 0)
	for _, d := range r.s.dispatches {
		if d.IsDeleted || d.ID == excludeDispatchID || !d.Status.IsActive() || d.Schedule == nil {
			continue
		}
		if d.Schedule.Date == date && d.HasTechnician(technicianID) {
			bookings = append(bookings, d.Clone())
		}
	}
	sort.Slice(bookings, func(i, j int) bool { return bookings[i].ID < bookings[j].ID })
	return bookings, nil
}

func (r *dispatchRepository) CountActiveWorkload(ctx context.Context, technicianIDs []string) (map[string]int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	workload := make(map[string]int, len(technicianIDs))
	for _, d := range r.s.dispatches {
		if d.IsDeleted || !d.Status.IsActive() {
			continue
		}
		for _, id := range technicianIDs {
			if d.HasTechnician(id) {
				workload[id]++
			}
		}
	}
	return workload, nil
}

// LockTechnicians не нужен: транзакции уже сериализованы.
func (r *dispatchRepository) LockTechnicians(ctx context.Context, tx pgx.Tx, technicianIDs []string) error {
	return nil
}
