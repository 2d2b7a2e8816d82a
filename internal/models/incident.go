package models

import (
	"time"

	"github.com/google/uuid"
)

// IncidentKind различает источник инцидента
type IncidentKind string

const (
	KindManualAlert IncidentKind = "manual_alert"
	KindAutoCrash   IncidentKind = "auto_crash"
	KindSOS         IncidentKind = "sos"
)

// IncidentStatus - состояние инцидента в жизненном цикле
type IncidentStatus string

const (
	StatusPending    IncidentStatus = "pending"
	StatusResponding IncidentStatus = "responding"
	StatusResolved   IncidentStatus = "resolved"
	StatusCancelled  IncidentStatus = "cancelled"
)

// Valid сообщает, входит ли статус в допустимое множество
func (s IncidentStatus) Valid() bool {
	switch s {
	case StatusPending, StatusResponding, StatusResolved, StatusCancelled:
		return true
	}
	return false
}

// Terminal возвращает true для resolved и cancelled
func (s IncidentStatus) Terminal() bool {
	return s == StatusResolved || s == StatusCancelled
}

// Valid сообщает, известен ли тип инцидента
func (k IncidentKind) Valid() bool {
	switch k {
	case KindManualAlert, KindAutoCrash, KindSOS:
		return true
	}
	return false
}

var (
	AlertTypes = []string{"medical", "fire", "accident", "crime", "natural_disaster", "other"}
	Severities = []string{"low", "medium", "high", "critical"}
)

type Incident struct {
	ID                  uuid.UUID      `json:"id"`
	ReporterID          uuid.UUID      `json:"reporter_id"`
	Kind                IncidentKind   `json:"kind"`
	Status              IncidentStatus `json:"status"`
	AlertType           string         `json:"alert_type,omitempty"`
	Severity            string         `json:"severity,omitempty"`
	Title               string         `json:"title,omitempty"`
	Description         string         `json:"description,omitempty"`
	Address             string         `json:"address,omitempty"`
	Latitude            *float64       `json:"latitude,omitempty"`
	Longitude           *float64       `json:"longitude,omitempty"`
	AssignedVehicleID   *int64         `json:"assigned_vehicle_id,omitempty"`
	AssignedResponderID *int64         `json:"assigned_responder_id,omitempty"`
	CreatedAt           time.Time      `json:"created_at"`
	UpdatedAt           time.Time      `json:"updated_at"`
}

// HasLocation сообщает, заданы ли обе координаты
func (i *Incident) HasLocation() bool {
	return i.Latitude != nil && i.Longitude != nil
}

// IncidentFilter - параметры выборки списка инцидентов
type IncidentFilter struct {
	Status     IncidentStatus
	Kind       IncidentKind
	AlertType  string
	ReporterID *uuid.UUID
	Page       int
	PageSize   int
}

// IncidentStats - количество инцидентов по статусам
type IncidentStats struct {
	Pending    int `json:"pending"`
	Responding int `json:"responding"`
	Resolved   int `json:"resolved"`
	Cancelled  int `json:"cancelled"`
}
