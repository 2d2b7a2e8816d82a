package models

import (
	"time"

	"github.com/google/uuid"
)

// Имена событий жизненного цикла, общие для журнала и realtime-канала
const (
	EventIncidentNew           = "incident:new"
	EventIncidentUpdated       = "incident:updated"
	EventIncidentStatusUpdated = "incident:status_updated"
	EventIncidentAssigned      = "incident:assigned"
	EventIncidentDeleted       = "incident:deleted"
)

// IncidentEvent - запись журнала изменений инцидента
type IncidentEvent struct {
	ID         int64          `json:"id"`
	IncidentID uuid.UUID      `json:"incident_id"`
	ActorID    uuid.UUID      `json:"actor_id"`
	ActorRole  string         `json:"actor_role"`
	Event      string         `json:"event"`
	FromStatus IncidentStatus `json:"from_status,omitempty"`
	ToStatus   IncidentStatus `json:"to_status,omitempty"`
	VehicleID  *int64         `json:"vehicle_id,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}
