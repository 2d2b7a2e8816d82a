package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/shenikar/emergency_dispatch_system/internal/models"
)

// IncidentRepository определяет контракт для работы с бд инцидентов
type IncidentRepository interface {
	Create(ctx context.Context, incident *models.Incident) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Incident, error)
	// GetForUpdate читает инцидент с блокировкой строки до конца транзакции
	GetForUpdate(ctx context.Context, id uuid.UUID) (*models.Incident, error)
	Update(ctx context.Context, incident *models.Incident) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListIncidents(ctx context.Context, filter models.IncidentFilter) ([]*models.Incident, error)
	FindActiveNearby(ctx context.Context, lat, lon, radiusMeters float64) ([]*models.Incident, error)
	// FindActiveByVehicle возвращает незавершённый инцидент (кроме excludeID), за которым закреплена машина, или nil
	FindActiveByVehicle(ctx context.Context, vehicleID int64, excludeID uuid.UUID) (*models.Incident, error)
	CountByStatus(ctx context.Context) (*models.IncidentStats, error)
	AppendEvent(ctx context.Context, event *models.IncidentEvent) error
	ListEvents(ctx context.Context, incidentID uuid.UUID) ([]*models.IncidentEvent, error)
}

// VehicleRepository определяет контракт для работы с машинами
type VehicleRepository interface {
	Create(ctx context.Context, vehicle *models.Vehicle) error
	GetByID(ctx context.Context, id int64) (*models.Vehicle, error)
	GetForUpdate(ctx context.Context, id int64) (*models.Vehicle, error)
	List(ctx context.Context, status models.VehicleStatus) ([]*models.Vehicle, error)
	SetStatus(ctx context.Context, id int64, status models.VehicleStatus) error
}

// ResponderRepository определяет контракт для работы со спасателями
type ResponderRepository interface {
	Create(ctx context.Context, responder *models.Responder) error
	GetByID(ctx context.Context, id int64) (*models.Responder, error)
	List(ctx context.Context) ([]*models.Responder, error)
}

// Store объединяет репозитории и транзакционную границу.
// Внутри WithinTx все репозитории работают в одной транзакции:
// ошибка fn откатывает все изменения.
type Store interface {
	Incidents() IncidentRepository
	Vehicles() VehicleRepository
	Responders() ResponderRepository
	WithinTx(ctx context.Context, fn func(tx Store) error) error
}
