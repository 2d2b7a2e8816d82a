package service

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/shenikar/emergency_dispatch_system/internal/models"
)

// memStore - хранилище в памяти для тестов жизненного цикла.
// WithinTx делает снимок состояния и восстанавливает его при ошибке.
type memStore struct {
	incidents  map[uuid.UUID]models.Incident
	vehicles   map[int64]models.Vehicle
	responders map[int64]models.Responder
	events     []models.IncidentEvent

	nextID int64
	clock  time.Time

	// failVehicleWrite, если задан, возвращается из SetStatus
	failVehicleWrite error
	// afterGetByID, если задан, вызывается один раз после чтения строки в GetByID
	afterGetByID func()
}

func newMemStore() *memStore {
	return &memStore{
		incidents:  make(map[uuid.UUID]models.Incident),
		vehicles:   make(map[int64]models.Vehicle),
		responders: make(map[int64]models.Responder),
		clock:      time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (m *memStore) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

func (m *memStore) Incidents() IncidentRepository   { return memIncidents{m} }
func (m *memStore) Vehicles() VehicleRepository     { return memVehicles{m} }
func (m *memStore) Responders() ResponderRepository { return memResponders{m} }

func (m *memStore) WithinTx(_ context.Context, fn func(tx Store) error) error {
	incidents := maps.Clone(m.incidents)
	vehicles := maps.Clone(m.vehicles)
	responders := maps.Clone(m.responders)
	events := slices.Clone(m.events)

	if err := fn(m); err != nil {
		m.incidents, m.vehicles, m.responders, m.events = incidents, vehicles, responders, events
		return err
	}
	return nil
}

// addVehicle добавляет машину с заданным ID в обход сервиса
func (m *memStore) addVehicle(id int64, status models.VehicleStatus) {
	m.vehicles[id] = models.Vehicle{ID: id, CallSign: fmt.Sprintf("UNIT-%d", id), Status: status}
}

func (m *memStore) vehicleStatus(id int64) models.VehicleStatus {
	return m.vehicles[id].Status
}

type memIncidents struct{ m *memStore }

func (r memIncidents) Create(_ context.Context, incident *models.Incident) error {
	incident.ID = uuid.New()
	incident.CreatedAt = r.m.tick()
	incident.UpdatedAt = incident.CreatedAt
	r.m.incidents[incident.ID] = *incident
	return nil
}

func (r memIncidents) GetByID(_ context.Context, id uuid.UUID) (*models.Incident, error) {
	incident, ok := r.m.incidents[id]
	if !ok {
		return nil, fmt.Errorf("incident with id %s: %w", id, models.ErrNotFound)
	}
	if hook := r.m.afterGetByID; hook != nil {
		r.m.afterGetByID = nil
		hook()
	}
	return &incident, nil
}

func (r memIncidents) GetForUpdate(ctx context.Context, id uuid.UUID) (*models.Incident, error) {
	return r.GetByID(ctx, id)
}

func (r memIncidents) Update(_ context.Context, incident *models.Incident) error {
	if _, ok := r.m.incidents[incident.ID]; !ok {
		return fmt.Errorf("incident with id %s: %w", incident.ID, models.ErrNotFound)
	}
	incident.UpdatedAt = r.m.tick()
	r.m.incidents[incident.ID] = *incident
	return nil
}

func (r memIncidents) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := r.m.incidents[id]; !ok {
		return fmt.Errorf("incident with id %s: %w", id, models.ErrNotFound)
	}
	delete(r.m.incidents, id)
	r.m.events = slices.DeleteFunc(r.m.events, func(e models.IncidentEvent) bool { return e.IncidentID == id })
	return nil
}

func (r memIncidents) ListIncidents(_ context.Context, filter models.IncidentFilter) ([]*models.Incident, error) {
	result := make([]*models.Incident, 0)
	for _, incident := range r.m.incidents {
		if filter.Status != "" && incident.Status != filter.Status {
			continue
		}
		if filter.Kind != "" && incident.Kind != filter.Kind {
			continue
		}
		if filter.AlertType != "" && incident.AlertType != filter.AlertType {
			continue
		}
		if filter.ReporterID != nil && incident.ReporterID != *filter.ReporterID {
			continue
		}
		result = append(result, &incident)
	}
	slices.SortFunc(result, func(a, b *models.Incident) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return slices.Compare(b.ID[:], a.ID[:])
	})

	offset := (filter.Page - 1) * filter.PageSize
	if offset >= len(result) {
		return []*models.Incident{}, nil
	}
	end := min(offset+filter.PageSize, len(result))
	return result[offset:end], nil
}

func (r memIncidents) FindActiveNearby(_ context.Context, _, _, _ float64) ([]*models.Incident, error) {
	result := make([]*models.Incident, 0)
	for _, incident := range r.m.incidents {
		if !incident.Status.Terminal() && incident.HasLocation() {
			result = append(result, &incident)
		}
	}
	return result, nil
}

func (r memIncidents) FindActiveByVehicle(_ context.Context, vehicleID int64, excludeID uuid.UUID) (*models.Incident, error) {
	for _, incident := range r.m.incidents {
		if incident.ID == excludeID || incident.Status.Terminal() || incident.AssignedVehicleID == nil {
			continue
		}
		if *incident.AssignedVehicleID == vehicleID {
			return &incident, nil
		}
	}
	return nil, nil
}

func (r memIncidents) CountByStatus(_ context.Context) (*models.IncidentStats, error) {
	stats := &models.IncidentStats{}
	for _, incident := range r.m.incidents {
		switch incident.Status {
		case models.StatusPending:
			stats.Pending++
		case models.StatusResponding:
			stats.Responding++
		case models.StatusResolved:
			stats.Resolved++
		case models.StatusCancelled:
			stats.Cancelled++
		}
	}
	return stats, nil
}

func (r memIncidents) AppendEvent(_ context.Context, event *models.IncidentEvent) error {
	r.m.nextID++
	event.ID = r.m.nextID
	event.CreatedAt = r.m.clock
	r.m.events = append(r.m.events, *event)
	return nil
}

func (r memIncidents) ListEvents(_ context.Context, incidentID uuid.UUID) ([]*models.IncidentEvent, error) {
	result := make([]*models.IncidentEvent, 0)
	for _, event := range r.m.events {
		if event.IncidentID == incidentID {
			result = append(result, &event)
		}
	}
	return result, nil
}

type memVehicles struct{ m *memStore }

func (r memVehicles) Create(_ context.Context, vehicle *models.Vehicle) error {
	r.m.nextID++
	vehicle.ID = r.m.nextID
	vehicle.CreatedAt = r.m.tick()
	vehicle.UpdatedAt = vehicle.CreatedAt
	r.m.vehicles[vehicle.ID] = *vehicle
	return nil
}

func (r memVehicles) GetByID(_ context.Context, id int64) (*models.Vehicle, error) {
	vehicle, ok := r.m.vehicles[id]
	if !ok {
		return nil, fmt.Errorf("vehicle with id %d: %w", id, models.ErrNotFound)
	}
	return &vehicle, nil
}

func (r memVehicles) GetForUpdate(ctx context.Context, id int64) (*models.Vehicle, error) {
	return r.GetByID(ctx, id)
}

func (r memVehicles) List(_ context.Context, status models.VehicleStatus) ([]*models.Vehicle, error) {
	result := make([]*models.Vehicle, 0)
	for _, id := range slices.Sorted(maps.Keys(r.m.vehicles)) {
		vehicle := r.m.vehicles[id]
		if status == "" || vehicle.Status == status {
			result = append(result, &vehicle)
		}
	}
	return result, nil
}

func (r memVehicles) SetStatus(_ context.Context, id int64, status models.VehicleStatus) error {
	if r.m.failVehicleWrite != nil {
		return r.m.failVehicleWrite
	}
	vehicle, ok := r.m.vehicles[id]
	if !ok {
		return fmt.Errorf("vehicle with id %d: %w", id, models.ErrNotFound)
	}
	vehicle.Status = status
	vehicle.UpdatedAt = r.m.tick()
	r.m.vehicles[id] = vehicle
	return nil
}

type memResponders struct{ m *memStore }

func (r memResponders) Create(_ context.Context, responder *models.Responder) error {
	r.m.nextID++
	responder.ID = r.m.nextID
	responder.CreatedAt = r.m.tick()
	responder.UpdatedAt = responder.CreatedAt
	r.m.responders[responder.ID] = *responder
	return nil
}

func (r memResponders) GetByID(_ context.Context, id int64) (*models.Responder, error) {
	responder, ok := r.m.responders[id]
	if !ok {
		return nil, fmt.Errorf("responder with id %d: %w", id, models.ErrNotFound)
	}
	return &responder, nil
}

func (r memResponders) List(_ context.Context) ([]*models.Responder, error) {
	result := make([]*models.Responder, 0)
	for _, id := range slices.Sorted(maps.Keys(r.m.responders)) {
		responder := r.m.responders[id]
		result = append(result, &responder)
	}
	return result, nil
}

var errVehicleWrite = errors.New("vehicle row update failed")
