package models

import "time"

type VehicleStatus string

const (
	VehicleAvailable    VehicleStatus = "available"
	VehicleAssigned     VehicleStatus = "assigned"
	VehicleResponding   VehicleStatus = "responding"
	VehicleMaintenance  VehicleStatus = "maintenance"
	VehicleOutOfService VehicleStatus = "out_of_service"
)

func (s VehicleStatus) Valid() bool {
	switch s {
	case VehicleAvailable, VehicleAssigned, VehicleResponding, VehicleMaintenance, VehicleOutOfService:
		return true
	}
	return false
}

// Dispatchable возвращает false для машин, выведенных из эксплуатации
func (s VehicleStatus) Dispatchable() bool {
	return s != VehicleMaintenance && s != VehicleOutOfService
}

type Vehicle struct {
	ID          int64         `json:"id"`
	CallSign    string        `json:"call_sign"`
	VehicleType string        `json:"vehicle_type"`
	Status      VehicleStatus `json:"status"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

type ResponderStatus string

const (
	ResponderAvailable ResponderStatus = "available"
	ResponderBusy      ResponderStatus = "busy"
	ResponderOffDuty   ResponderStatus = "off_duty"
)

func (s ResponderStatus) Valid() bool {
	return s == ResponderAvailable || s == ResponderBusy || s == ResponderOffDuty
}

type Responder struct {
	ID        int64           `json:"id"`
	Name      string          `json:"name"`
	Phone     string          `json:"phone,omitempty"`
	Status    ResponderStatus `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}
