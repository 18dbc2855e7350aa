package entities

import "github.com/shopspring/decimal"

// CatalogJob - работа из каталога сервисных заказов (только чтение).
type CatalogJob struct {
	ID                string           `json:"id"`
	ServiceOrderID    string           `json:"service_order_id"`
	Title             string           `json:"title"`
	Description       *string          `json:"description,omitempty"`
	WorkType          *string          `json:"work_type,omitempty"`
	EstimatedDuration *int             `json:"estimated_duration,omitempty"`
	EstimatedCost     *decimal.Decimal `json:"estimated_cost,omitempty"`
	RequiredSkills    []string         `json:"required_skills"`
	Priority          *Priority        `json:"priority,omitempty"`
}
