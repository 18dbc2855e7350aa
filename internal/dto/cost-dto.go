package dto

import (
	"time"

	"github.com/aarondl/null/v8"
	"github.com/shopspring/decimal"

	"dispatch-system/internal/entities"
)

type CreateTimeEntryDTO struct {
	TechnicianID string      `json:"technician_id" validate:"required"`
	WorkType     null.String `json:"work_type" validate:"omitempty,max=50"`
	StartTime    time.Time   `json:"start_time" validate:"required"`
	EndTime      time.Time   `json:"end_time" validate:"required"`
	Description  null.String `json:"description" validate:"omitempty,max=2000"`
	Billable     null.Bool   `json:"billable"`
	HourlyRate   string      `json:"hourly_rate" validate:"omitempty,decimal"`
}

type CreateExpenseDTO struct {
	TechnicianID string      `json:"technician_id" validate:"required"`
	Type         string      `json:"type" validate:"required,max=100"`
	Amount       string      `json:"amount" validate:"required,decimal"`
	Currency     string      `json:"currency" validate:"omitempty,currency"`
	Description  null.String `json:"description" validate:"omitempty,max=2000"`
	Date         string      `json:"date" validate:"omitempty,civil_date"`
}

type CreateMaterialDTO struct {
	TechnicianID string      `json:"technician_id" validate:"required"`
	ArticleID    string      `json:"article_id" validate:"required,max=50"`
	ArticleName  null.String `json:"article_name" validate:"omitempty,max=255"`
	SKU          null.String `json:"sku" validate:"omitempty,max=100"`
	Quantity     int         `json:"quantity" validate:"required,min=1"`
	UnitPrice    string      `json:"unit_price" validate:"required,decimal"`
	UsedAt       null.Time   `json:"used_at"`
}

type DecisionDTO struct {
	Comment null.String `json:"comment" validate:"omitempty,max=2000"`
}

// CostTotals - суммы по виду записи в разрезе статусов согласования.
type CostTotals struct {
	Kind     entities.CostKind          `json:"kind"`
	ByStatus map[string]decimal.Decimal `json:"by_status"`
	Total    decimal.Decimal            `json:"total"`
}

// DispatchCostsDTO - все записи затрат выезда и итоги.
type DispatchCostsDTO struct {
	DispatchID  string                `json:"dispatch_id"`
	TimeEntries []*entities.TimeEntry `json:"time_entries"`
	Expenses    []*entities.Expense   `json:"expenses"`
	Materials   []*entities.Material  `json:"materials"`
	Totals      []CostTotals          `json:"totals"`
	GrandTotal  decimal.Decimal       `json:"grand_total"`
}
