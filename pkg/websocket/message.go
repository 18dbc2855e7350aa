package websocket

import "time"

// Envelope - это "конверт", в котором мы отправляем наши сообщения.
// Type позволяет фронтенду понять, что делать.
type Envelope struct {
	Type      string      `json:"type"`
	Payload   interface{} `json:"payload"`
	Timestamp time.Time   `json:"timestamp"`
}

const (
	MessageDispatchHistory  = "dispatch.history"
	MessageDispatchAssigned = "dispatch.assigned"
	MessageTechnicianStatus = "technician.status"
)

// BoardPayload - строка ленты доски диспетчера.
type BoardPayload struct {
	EventID      string    `json:"eventId"`
	DispatchID   string    `json:"dispatchId,omitempty"`
	TechnicianID string    `json:"technicianId,omitempty"`
	Action       string    `json:"action"`
	Status       string    `json:"status,omitempty"`
	ActorID      string    `json:"actorId"`
	OccurredAt   time.Time `json:"occurredAt"`
}
