package entities

import (
	"encoding/json"
	"time"

	"cloud.google.com/go/civil"

	"dispatch-system/pkg/types"
)

type Dispatch struct {
	ID                   string                 `json:"id"`
	DispatchNumber       string                 `json:"dispatch_number"`
	ServiceOrderID       *string                `json:"service_order_id,omitempty"`
	JobID                *string                `json:"job_id,omitempty"`
	Status               DispatchStatus         `json:"status"`
	Priority             Priority               `json:"priority"`
	RequiredSkills       []string               `json:"required_skills"`
	Schedule             *types.Schedule        `json:"schedule,omitempty"`
	EstimatedDuration    *int                   `json:"estimated_duration,omitempty"` // минуты
	ActualStartTime      *time.Time             `json:"actual_start_time,omitempty"`
	ActualEndTime        *time.Time             `json:"actual_end_time,omitempty"`
	ActualDuration       *time.Duration         `json:"actual_duration,omitempty"`
	CompletionPercentage int                    `json:"completion_percentage"`
	WorkLocation         json.RawMessage        `json:"work_location,omitempty"`
	DispatchedBy         *string                `json:"dispatched_by,omitempty"`
	DispatchedAt         *time.Time             `json:"dispatched_at,omitempty"`
	Technicians          []TechnicianAssignment `json:"technicians"`
	CreatedAt            time.Time              `json:"created_at"`
	UpdatedAt            time.Time              `json:"updated_at"`
	IsDeleted            bool                   `json:"-"`
}

// TechnicianAssignment хранит снимок контактов на момент назначения.
type TechnicianAssignment struct {
	DispatchID   string    `json:"dispatch_id"`
	TechnicianID string    `json:"technician_id"`
	Name         string    `json:"name"`
	Email        *string   `json:"email,omitempty"`
	Phone        *string   `json:"phone,omitempty"`
	AssignedAt   time.Time `json:"assigned_at"`
}

func (d *Dispatch) TechnicianIDs() []string {
	ids := make([]string, 0, len(d.Technicians))
	for _, t := range d.Technicians {
		ids = append(ids, t.TechnicianID)
	}
	return ids
}

func (d *Dispatch) HasTechnician(technicianID string) bool {
	for _, t := range d.Technicians {
		if t.TechnicianID == technicianID {
			return true
		}
	}
	return false
}

// Clone - глубокая копия для снимков истории и хранилища в памяти.
func (d *Dispatch) Clone() *Dispatch {
	if d == nil {
		return nil
	}
	c := *d
	c.RequiredSkills = append([]string(nil), d.RequiredSkills...)
	c.Technicians = append([]TechnicianAssignment(nil), d.Technicians...)
	if d.WorkLocation != nil {
		c.WorkLocation = append(json.RawMessage(nil), d.WorkLocation...)
	}
	if d.Schedule != nil {
		s := *d.Schedule
		c.Schedule = &s
	}
	return &c
}

// DispatchFilter - параметры выборки активных (не удаленных) выездов.
type DispatchFilter struct {
	Statuses     []DispatchStatus
	Priorities   []Priority
	TechnicianID string
	DateFrom     *civil.Date
	DateTo       *civil.Date
	Search       string
	SortBy       string
	SortOrder    string
	Limit        uint64
	Offset       uint64
}
