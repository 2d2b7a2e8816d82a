package v1

import (
	"time"

	"github.com/google/uuid"
)

// CreateIncidentRequest DTO для создания инцидента
// @Description DTO для создания инцидента. Для manual_alert обязательны alert_type, severity, title и адрес или координаты.
type CreateIncidentRequest struct {
	Kind        string   `json:"kind" validate:"required,oneof=manual_alert auto_crash sos"`
	AlertType   string   `json:"alert_type,omitempty" validate:"omitempty,oneof=medical fire accident crime natural_disaster other"`
	Severity    string   `json:"severity,omitempty" validate:"omitempty,oneof=low medium high critical"`
	Title       string   `json:"title,omitempty" validate:"max=255"`
	Description string   `json:"description,omitempty" validate:"max=4000"`
	Address     string   `json:"address,omitempty" validate:"max=500"`
	Latitude    *float64 `json:"latitude,omitempty" validate:"omitempty,latitude"`
	Longitude   *float64 `json:"longitude,omitempty" validate:"omitempty,longitude"`
}

// UpdateIncidentRequest DTO для обновления описательных полей инцидента
// @Description DTO для обновления описательных полей инцидента
type UpdateIncidentRequest struct {
	AlertType   string   `json:"alert_type,omitempty" validate:"omitempty,oneof=medical fire accident crime natural_disaster other"`
	Severity    string   `json:"severity,omitempty" validate:"omitempty,oneof=low medium high critical"`
	Title       string   `json:"title,omitempty" validate:"max=255"`
	Description string   `json:"description,omitempty" validate:"max=4000"`
	Address     string   `json:"address,omitempty" validate:"max=500"`
	Latitude    *float64 `json:"latitude,omitempty" validate:"omitempty,latitude"`
	Longitude   *float64 `json:"longitude,omitempty" validate:"omitempty,longitude"`
}

// UpdateStatusRequest DTO для смены статуса
// @Description DTO для смены статуса инцидента
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// AssignRequest DTO для назначения машины и спасателя; null снимает назначение
// @Description DTO для назначения машины и спасателя
type AssignRequest struct {
	VehicleID   *int64 `json:"vehicle_id" validate:"omitempty,gt=0"`
	ResponderID *int64 `json:"responder_id" validate:"omitempty,gt=0"`
}

// IncidentResponse DTO для ответа с информацией об инциденте
// @Description DTO для ответа с информацией об инциденте
type IncidentResponse struct {
	ID                  uuid.UUID `json:"id"`
	ReporterID          uuid.UUID `json:"reporter_id"`
	Kind                string    `json:"kind"`
	Status              string    `json:"status"`
	AlertType           string    `json:"alert_type,omitempty"`
	Severity            string    `json:"severity,omitempty"`
	Title               string    `json:"title,omitempty"`
	Description         string    `json:"description,omitempty"`
	Address             string    `json:"address,omitempty"`
	Latitude            *float64  `json:"latitude,omitempty"`
	Longitude           *float64  `json:"longitude,omitempty"`
	AssignedVehicleID   *int64    `json:"assigned_vehicle_id,omitempty"`
	AssignedResponderID *int64    `json:"assigned_responder_id,omitempty"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// IncidentEventResponse DTO записи журнала
// @Description DTO записи журнала изменений инцидента
type IncidentEventResponse struct {
	ID         int64     `json:"id"`
	ActorID    uuid.UUID `json:"actor_id"`
	ActorRole  string    `json:"actor_role"`
	Event      string    `json:"event"`
	FromStatus string    `json:"from_status,omitempty"`
	ToStatus   string    `json:"to_status,omitempty"`
	VehicleID  *int64    `json:"vehicle_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// StatsResponse DTO для ответа со статистикой
// @Description Количество инцидентов по статусам
type StatsResponse struct {
	Pending    int `json:"pending"`
	Responding int `json:"responding"`
	Resolved   int `json:"resolved"`
	Cancelled  int `json:"cancelled"`
}

// CreateVehicleRequest DTO для регистрации машины
// @Description DTO для регистрации машины
type CreateVehicleRequest struct {
	CallSign    string `json:"call_sign" validate:"required,max=32"`
	VehicleType string `json:"vehicle_type,omitempty" validate:"max=64"`
	Status      string `json:"status,omitempty"`
}

// SetVehicleStatusRequest DTO для ручной смены статуса машины
// @Description DTO для ручной смены статуса машины
type SetVehicleStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// VehicleResponse DTO машины
// @Description DTO машины
type VehicleResponse struct {
	ID          int64     `json:"id"`
	CallSign    string    `json:"call_sign"`
	VehicleType string    `json:"vehicle_type,omitempty"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CreateResponderRequest DTO для регистрации спасателя
// @Description DTO для регистрации спасателя
type CreateResponderRequest struct {
	Name   string `json:"name" validate:"required,max=255"`
	Phone  string `json:"phone,omitempty" validate:"max=32"`
	Status string `json:"status,omitempty"`
}

// ResponderResponse DTO спасателя
// @Description DTO спасателя
type ResponderResponse struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone,omitempty"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
