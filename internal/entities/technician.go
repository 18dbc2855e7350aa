package entities

import (
	"encoding/json"
	"time"

	"cloud.google.com/go/civil"

	"dispatch-system/internal/approval"
	"dispatch-system/pkg/types"
)

// Technician - проекция профиля из справочника пользователей.
type Technician struct {
	ID            string           `json:"id"`
	Name          string           `json:"name"`
	Email         *string          `json:"email,omitempty"`
	Phone         *string          `json:"phone,omitempty"`
	Role          string           `json:"role"`
	Skills        []string         `json:"skills"`
	CurrentStatus TechnicianStatus `json:"current_status"`
}

// HasSkills: skills техника - надмножество required; пустой required подходит всем.
func (t *Technician) HasSkills(required []string) bool {
	if len(required) == 0 {
		return true
	}
	have := make(map[string]struct{}, len(t.Skills))
	for _, s := range t.Skills {
		have[s] = struct{}{}
	}
	for _, s := range required {
		if _, ok := have[s]; !ok {
			return false
		}
	}
	return true
}

type WorkingHoursWindow struct {
	ID             string           `json:"id"`
	TechnicianID   string           `json:"technician_id"`
	DayOfWeek      int              `json:"day_of_week"` // 0 = воскресенье
	Window         types.TimeWindow `json:"window"`
	IsActive       bool             `json:"is_active"`
	EffectiveFrom  *civil.Date      `json:"effective_from,omitempty"`
	EffectiveUntil *civil.Date      `json:"effective_until,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

// AppliesTo - окно активно в указанный день.
func (w *WorkingHoursWindow) AppliesTo(d civil.Date) bool {
	return w.IsActive && w.DayOfWeek == types.Weekday(d) && types.DateInRange(d, w.EffectiveFrom, w.EffectiveUntil)
}

type LeaveRecord struct {
	ID           string            `json:"id"`
	TechnicianID string            `json:"technician_id"`
	LeaveType    LeaveType         `json:"leave_type"`
	StartDate    civil.Date        `json:"start_date"`
	EndDate      civil.Date        `json:"end_date"`
	PartialDay   *types.TimeWindow `json:"partial_day,omitempty"`
	Reason       *string           `json:"reason,omitempty"`
	approval.State
	UpdatedAt time.Time `json:"updated_at"`
}

// Blocks - согласованный отпуск перекрывает окно в этот день.
// Частичный отпуск блокирует только при пересечении по времени.
func (l *LeaveRecord) Blocks(d civil.Date, w types.TimeWindow) bool {
	if l.Status != approval.StatusApproved {
		return false
	}
	if d.Before(l.StartDate) || d.After(l.EndDate) {
		return false
	}
	if l.PartialDay == nil {
		return true
	}
	return l.PartialDay.Overlaps(w)
}

type TechnicianStatusEvent struct {
	EventID      string            `json:"event_id"`
	TechnicianID string            `json:"technician_id"`
	Status       TechnicianStatus  `json:"status"`
	ChangedFrom  *TechnicianStatus `json:"changed_from,omitempty"`
	ChangedAt    time.Time         `json:"changed_at"`
	ChangedBy    string            `json:"changed_by"`
	Reason       *string           `json:"reason,omitempty"`
	Metadata     json.RawMessage   `json:"metadata,omitempty"`
}
