// Package realtime доставляет события жизненного цикла инцидентов подключённым клиентам.
// Доставка best-effort: без подтверждений, повторов и хранения пропущенных событий.
package realtime

import (
	"time"

	"github.com/google/uuid"
	"github.com/shenikar/emergency_dispatch_system/internal/models"
)

// Event - сообщение, рассылаемое клиентам после зафиксированного изменения
type Event struct {
	Name       string           `json:"event"`
	IncidentID uuid.UUID        `json:"incident_id"`
	ReporterID uuid.UUID        `json:"reporter_id"`
	Incident   *models.Incident `json:"incident,omitempty"` // отсутствует у incident:deleted
	Timestamp  time.Time        `json:"timestamp"`
}

// NewIncidentEvent создает событие с полной записью инцидента
func NewIncidentEvent(name string, incident *models.Incident) Event {
	return Event{
		Name:       name,
		IncidentID: incident.ID,
		ReporterID: incident.ReporterID,
		Incident:   incident,
		Timestamp:  time.Now().UTC(),
	}
}

// NewDeletedEvent создает событие удаления, содержащее только идентификатор
func NewDeletedEvent(incidentID, reporterID uuid.UUID) Event {
	return Event{
		Name:       models.EventIncidentDeleted,
		IncidentID: incidentID,
		ReporterID: reporterID,
		Timestamp:  time.Now().UTC(),
	}
}
