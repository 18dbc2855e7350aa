package entities

import (
	"encoding/json"
	"time"
)

// DispatchHistoryEvent - неизменяемая запись журнала. EventID уникален.
type DispatchHistoryEvent struct {
	EventID    string          `json:"event_id"`
	DispatchID string          `json:"dispatch_id"`
	Action     HistoryAction   `json:"action"`
	OldValue   json.RawMessage `json:"old_value,omitempty"`
	NewValue   json.RawMessage `json:"new_value,omitempty"`
	ChangedBy  string          `json:"changed_by"`
	ChangedAt  time.Time       `json:"changed_at"`
	Metadata   json.RawMessage `json:"metadata,omitempty"`
}
