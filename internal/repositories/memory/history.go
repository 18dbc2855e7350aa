package memory

import (
	"context"

	"dispatch-system/internal/entities"
)

type dispatchHistoryRepository struct {
	s *Store
}

func (r *dispatchHistoryRepository) Append(ctx context.Context, e *entities.DispatchHistoryEvent) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, seen := r.s.seenEvents[e.EventID]; seen {
		return nil
	}
	r.s.seenEvents[e.EventID] = struct{}{}
	c := *e
	r.s.dispatchHistory = append(r.s.dispatchHistory, &c)
	return nil
}

// FindByDispatch возвращает историю и для удаленных выездов.
func (r *dispatchHistoryRepository) FindByDispatch(ctx context.Context, dispatchID string) ([]*entities.DispatchHistoryEvent, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	events := make([]*entities.DispatchHistoryEvent, 0)
	for _, e := range r.s.dispatchHistory {
		if e.DispatchID == dispatchID {
			c := *e
			events = append(events, &c)
		}
	}
	return events, nil
}

type statusHistoryRepository struct {
	s *Store
}

func (r *statusHistoryRepository) Append(ctx context.Context, e *entities.TechnicianStatusEvent) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, seen := r.s.seenEvents[e.EventID]; seen {
		return nil
	}
	r.s.seenEvents[e.EventID] = struct{}{}
	c := *e
	r.s.statusHistory = append(r.s.statusHistory, &c)
	return nil
}

func (r *statusHistoryRepository) FindByTechnician(ctx context.Context, technicianID string) ([]*entities.TechnicianStatusEvent, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	events := make([]*entities.TechnicianStatusEvent, 0)
	for _, e := range r.s.statusHistory {
		if e.TechnicianID == technicianID {
			c := *e
			events = append(events, &c)
		}
	}
	return events, nil
}
