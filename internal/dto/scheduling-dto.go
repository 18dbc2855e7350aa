package dto

import (
	"encoding/json"

	"github.com/aarondl/null/v8"

	apperrors "dispatch-system/pkg/errors"
)

type AvailabilityQueryDTO struct {
	TechnicianID string `query:"technician_id" json:"technician_id" validate:"required"`
	Date         string `query:"date" json:"date" validate:"required,civil_date"`
	StartTime    string `query:"start_time" json:"start_time" validate:"required,time_of_day"`
	EndTime      string `query:"end_time" json:"end_time" validate:"required,time_of_day"`
}

type AvailabilityDTO struct {
	TechnicianID string                      `json:"technician_id"`
	Available    bool                        `json:"available"`
	Reason       apperrors.EligibilityReason `json:"reason,omitempty"`
	Detail       string                      `json:"detail,omitempty"`
}

// EligibleQueryDTO - пустой candidate_ids означает всех техников справочника.
type EligibleQueryDTO struct {
	RequiredSkills []string `json:"required_skills" validate:"omitempty,skills"`
	Date           string   `json:"date" validate:"required,civil_date"`
	StartTime      string   `json:"start_time" validate:"required,time_of_day"`
	EndTime        string   `json:"end_time" validate:"required,time_of_day"`
	CandidateIDs   []string `json:"candidate_ids" validate:"omitempty,dive,required"`
}

type WorkingHoursDTO struct {
	DayOfWeek      int       `json:"day_of_week" validate:"min=0,max=6"`
	StartTime      string    `json:"start_time" validate:"required,time_of_day"`
	EndTime        string    `json:"end_time" validate:"required,time_of_day"`
	IsActive       null.Bool `json:"is_active"`
	EffectiveFrom  string    `json:"effective_from" validate:"omitempty,civil_date"`
	EffectiveUntil string    `json:"effective_until" validate:"omitempty,civil_date"`
}

type CreateLeaveDTO struct {
	LeaveType string      `json:"leave_type" validate:"required,oneof=vacation sick personal training other"`
	StartDate string      `json:"start_date" validate:"required,civil_date"`
	EndDate   string      `json:"end_date" validate:"required,civil_date"`
	StartTime string      `json:"start_time" validate:"omitempty,time_of_day"`
	EndTime   string      `json:"end_time" validate:"omitempty,time_of_day"`
	Reason    null.String `json:"reason" validate:"omitempty,max=2000"`
}

type ChangeStatusDTO struct {
	Status   string          `json:"status" validate:"required,oneof=available busy offline on_leave not_working over_capacity"`
	Reason   null.String     `json:"reason" validate:"omitempty,max=2000"`
	Metadata json.RawMessage `json:"metadata"`
}

// SyncTechnicianDTO - проекция профиля из внешнего справочника.
type SyncTechnicianDTO struct {
	ID     string      `json:"id" validate:"required,max=50"`
	Name   string      `json:"name" validate:"required,max=255"`
	Email  null.String `json:"email" validate:"omitempty,email"`
	Phone  null.String `json:"phone" validate:"omitempty,max=50"`
	Role   string      `json:"role" validate:"required,oneof=dispatcher technician approver admin"`
	Skills []string    `json:"skills" validate:"omitempty,skills"`
}
