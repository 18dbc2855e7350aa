package memory

import (
	"context"
	"sort"

	"cloud.google.com/go/civil"
	"github.com/jackc/pgx/v5"

	"dispatch-system/internal/approval"
	"dispatch-system/internal/entities"
	apperrors "dispatch-system/pkg/errors"
	"dispatch-system/pkg/types"
)

type technicianRepository struct {
	s *Store
}

func cloneTechnician(t *entities.Technician) *entities.Technician {
	c := *t
	c.Skills = append([]string{}, t.Skills...)
	return &c
}

func (r *technicianRepository) FindByID(ctx context.Context, id string) (*entities.Technician, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	t, ok := r.s.technicians[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("technician", id)
	}
	return cloneTechnician(t), nil
}

// FindForUpdate: транзакции хранилища в памяти и так идут по одной.
func (r *technicianRepository) FindForUpdate(ctx context.Context, tx pgx.Tx, id string) (*entities.Technician, error) {
	return r.FindByID(ctx, id)
}

func (r *technicianRepository) FindByIDs(ctx context.Context, ids []string) (map[string]*entities.Technician, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	result := make(map[string]*entities.Technician, len(ids))
	for _, id := range ids {
		if t, ok := r.s.technicians[id]; ok {
			result[id] = cloneTechnician(t)
		}
	}
	return result, nil
}

func (r *technicianRepository) ListByRole(ctx context.Context, role string) ([]*entities.Technician, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	list := make([]*entities.Technician, 0)
	for _, t := range r.s.technicians {
		if t.Role == role {
			list = append(list, cloneTechnician(t))
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list, nil
}

func (r *technicianRepository) UpdateStatus(ctx context.Context, tx pgx.Tx, id string, status entities.TechnicianStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.technicians[id]
	if !ok {
		return apperrors.NewNotFoundError("technician", id)
	}
	t.CurrentStatus = status
	return nil
}

// Upsert сохраняет текущий статус существующего техника, как и вариант для postgres.
func (r *technicianRepository) Upsert(ctx context.Context, t *entities.Technician) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c := cloneTechnician(t)
	if existing, ok := r.s.technicians[t.ID]; ok {
		c.CurrentStatus = existing.CurrentStatus
	} else if c.CurrentStatus == "" {
		c.CurrentStatus = entities.TechnicianAvailable
	}
	r.s.technicians[t.ID] = c
	return nil
}

type workingHoursRepository struct {
	s *Store
}

func (r *workingHoursRepository) Create(ctx context.Context, w *entities.WorkingHoursWindow) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.technicians[w.TechnicianID]; !ok {
		return apperrors.NewNotFoundError("technician", w.TechnicianID)
	}
	c := *w
	r.s.workingHours[w.ID] = &c
	return nil
}

func (r *workingHoursRepository) Update(ctx context.Context, w *entities.WorkingHoursWindow) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.workingHours[w.ID]; !ok {
		return apperrors.NewNotFoundError("working_hours", w.ID)
	}
	c := *w
	r.s.workingHours[w.ID] = &c
	return nil
}

func (r *workingHoursRepository) FindByID(ctx context.Context, id string) (*entities.WorkingHoursWindow, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	w, ok := r.s.workingHours[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("working_hours", id)
	}
	c := *w
	return &c, nil
}

func (r *workingHoursRepository) FindByTechnician(ctx context.Context, technicianID string) ([]*entities.WorkingHoursWindow, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	list := make([]*entities.WorkingHoursWindow, 0)
	for _, w := range r.s.workingHours {
		if w.TechnicianID == technicianID {
			c := *w
			list = append(list, &c)
		}
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].DayOfWeek != list[j].DayOfWeek {
			return list[i].DayOfWeek < list[j].DayOfWeek
		}
		return types.SecondsOf(list[i].Window.Start) < types.SecondsOf(list[j].Window.Start)
	})
	return list, nil
}

type leaveRepository struct {
	s *Store
}

func (r *leaveRepository) Create(ctx context.Context, l *entities.LeaveRecord) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.technicians[l.TechnicianID]; !ok {
		return apperrors.NewNotFoundError("technician", l.TechnicianID)
	}
	c := *l
	r.s.leaves[l.ID] = &c
	return nil
}

func (r *leaveRepository) FindByID(ctx context.Context, id string) (*entities.LeaveRecord, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	l, ok := r.s.leaves[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("leave", id)
	}
	c := *l
	return &c, nil
}

func (r *leaveRepository) FindForUpdate(ctx context.Context, tx pgx.Tx, id string) (*entities.LeaveRecord, error) {
	return r.FindByID(ctx, id)
}

func (r *leaveRepository) UpdateApproval(ctx context.Context, tx pgx.Tx, l *entities.LeaveRecord, expected approval.Status) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	current, ok := r.s.leaves[l.ID]
	if !ok || current.Status != expected {
		return apperrors.NewInvalidTransitionError("leave", l.ID, string(expected), string(l.Status))
	}
	current.State = l.State
	current.UpdatedAt = l.UpdatedAt
	return nil
}

func (r *leaveRepository) FindByTechnician(ctx context.Context, technicianID string) ([]*entities.LeaveRecord, error) {
	return r.filter(func(l *entities.LeaveRecord) bool { return l.TechnicianID == technicianID }), nil
}

func (r *leaveRepository) FindApprovedOn(ctx context.Context, technicianID string, date civil.Date) ([]*entities.LeaveRecord, error) {
	return r.filter(func(l *entities.LeaveRecord) bool {
		return l.TechnicianID == technicianID && l.Status == approval.StatusApproved &&
			!date.Before(l.StartDate) && !date.After(l.EndDate)
	}), nil
}

func (r *leaveRepository) filter(keep func(*entities.LeaveRecord) bool) []*entities.LeaveRecord {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	list := make([]*entities.LeaveRecord, 0)
	for _, l := range r.s.leaves {
		if keep(l) {
			c := *l
			list = append(list, &c)
		}
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].StartDate != list[j].StartDate {
			return list[i].StartDate.After(list[j].StartDate)
		}
		return list[i].ID < list[j].ID
	})
	return list
}
