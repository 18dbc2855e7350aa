package entities

import (
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"dispatch-system/internal/approval"
)

type CostKind string

const (
	CostKindTime     CostKind = "time"
	CostKindExpense  CostKind = "expense"
	CostKindMaterial CostKind = "material"
)

func ParseCostKind(s string) (CostKind, bool) {
	switch k := CostKind(s); k {
	case CostKindTime, CostKindExpense, CostKindMaterial:
		return k, true
	}
	return "", false
}

// CostEntry - общий контракт записей затрат, которыми управляет автомат согласования.
type CostEntry interface {
	EntryID() string
	EntryDispatchID() string
	Kind() CostKind
	Approval() approval.State
	SetApproval(approval.State)
	Total() decimal.Decimal
}

type TimeEntry struct {
	ID           string          `json:"id"`
	DispatchID   string          `json:"dispatch_id"`
	TechnicianID string          `json:"technician_id"`
	WorkType     *string         `json:"work_type,omitempty"`
	StartTime    time.Time       `json:"start_time"`
	EndTime      time.Time       `json:"end_time"`
	Duration     int             `json:"duration"` // минуты
	Description  *string         `json:"description,omitempty"`
	Billable     bool            `json:"billable"`
	HourlyRate   decimal.Decimal `json:"hourly_rate"`
	TotalCost    decimal.Decimal `json:"total_cost"`
	approval.State
}

func (e *TimeEntry) EntryID() string              { return e.ID }
func (e *TimeEntry) EntryDispatchID() string      { return e.DispatchID }
func (e *TimeEntry) Kind() CostKind               { return CostKindTime }
func (e *TimeEntry) Approval() approval.State     { return e.State }
func (e *TimeEntry) SetApproval(s approval.State) { e.State = s }
func (e *TimeEntry) Total() decimal.Decimal       { return e.TotalCost }

type Expense struct {
	ID           string          `json:"id"`
	DispatchID   string          `json:"dispatch_id"`
	TechnicianID string          `json:"technician_id"`
	Type         string          `json:"type"`
	Amount       decimal.Decimal `json:"amount"`
	Currency     string          `json:"currency"`
	Description  *string         `json:"description,omitempty"`
	Date         *civil.Date     `json:"date,omitempty"`
	approval.State
}

func (e *Expense) EntryID() string              { return e.ID }
func (e *Expense) EntryDispatchID() string      { return e.DispatchID }
func (e *Expense) Kind() CostKind               { return CostKindExpense }
func (e *Expense) Approval() approval.State     { return e.State }
func (e *Expense) SetApproval(s approval.State) { e.State = s }
func (e *Expense) Total() decimal.Decimal       { return e.Amount }

type Material struct {
	ID           string          `json:"id"`
	DispatchID   string          `json:"dispatch_id"`
	TechnicianID string          `json:"technician_id"`
	ArticleID    string          `json:"article_id"`
	ArticleName  *string         `json:"article_name,omitempty"`
	SKU          *string         `json:"sku,omitempty"`
	Quantity     int             `json:"quantity"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	TotalPrice   decimal.Decimal `json:"total_price"`
	UsedAt       *time.Time      `json:"used_at,omitempty"`
	approval.State
}

func (e *Material) EntryID() string              { return e.ID }
func (e *Material) EntryDispatchID() string      { return e.DispatchID }
func (e *Material) Kind() CostKind               { return CostKindMaterial }
func (e *Material) Approval() approval.State     { return e.State }
func (e *Material) SetApproval(s approval.State) { e.State = s }
func (e *Material) Total() decimal.Decimal       { return e.TotalPrice }
