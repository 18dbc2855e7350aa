package dto

import (
	"encoding/json"

	"github.com/aarondl/null/v8"
)

// CreateDispatchDTO - пустые навыки, приоритет и длительность наследуются из каталога работ по job_id.
type CreateDispatchDTO struct {
	DispatchNumber     string          `json:"dispatch_number" validate:"omitempty,max=100"`
	ServiceOrderID     null.String     `json:"service_order_id" validate:"omitempty,max=50"`
	JobID              null.String     `json:"job_id" validate:"omitempty,max=50"`
	Priority           string          `json:"priority" validate:"omitempty,priority"`
	RequiredSkills     []string        `json:"required_skills" validate:"omitempty,skills"`
	ScheduledDate      string          `json:"scheduled_date" validate:"omitempty,civil_date"`
	ScheduledStartTime string          `json:"scheduled_start_time" validate:"omitempty,time_of_day"`
	ScheduledEndTime   string          `json:"scheduled_end_time" validate:"omitempty,time_of_day"`
	EstimatedDuration  null.Int        `json:"estimated_duration" validate:"omitempty,min=1"`
	WorkLocation       json.RawMessage `json:"work_location"`
}

// AssignDispatchDTO - пустой список техников означает автоподбор. Окно можно сменить тем же запросом.
type AssignDispatchDTO struct {
	TechnicianIDs      []string `json:"technician_ids" validate:"omitempty,dive,required"`
	ScheduledDate      string   `json:"scheduled_date" validate:"omitempty,civil_date"`
	ScheduledStartTime string   `json:"scheduled_start_time" validate:"omitempty,time_of_day"`
	ScheduledEndTime   string   `json:"scheduled_end_time" validate:"omitempty,time_of_day"`
}

type RescheduleDispatchDTO struct {
	ScheduledDate      string `json:"scheduled_date" validate:"required,civil_date"`
	ScheduledStartTime string `json:"scheduled_start_time" validate:"required,time_of_day"`
	ScheduledEndTime   string `json:"scheduled_end_time" validate:"required,time_of_day"`
}

type ReassignDispatchDTO struct {
	TechnicianIDs []string `json:"technician_ids" validate:"required,min=1,dive,required"`
}

// ProgressDTO - 100% выставляется только завершением выезда.
type ProgressDTO struct {
	CompletionPercentage int `json:"completion_percentage" validate:"min=0,max=99"`
}

type CancelDispatchDTO struct {
	Reason null.String `json:"reason" validate:"omitempty,max=2000"`
}
