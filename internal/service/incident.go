package service

//go:generate mockgen -source=incident.go -destination=mocks/mock_incident.go -package=mocks

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shenikar/emergency_dispatch_system/internal/access"
	"github.com/shenikar/emergency_dispatch_system/internal/config"
	"github.com/shenikar/emergency_dispatch_system/internal/lifecycle"
	"github.com/shenikar/emergency_dispatch_system/internal/models"
	"github.com/shenikar/emergency_dispatch_system/internal/realtime"
	"github.com/sirupsen/logrus"
)

// IncidentCache определяет контракт кеша отдельных инцидентов
type IncidentCache interface {
	GetIncidentFromCache(ctx context.Context, id uuid.UUID) (*models.Incident, error)
	SetIncidentCache(ctx context.Context, incident *models.Incident) error
	InvalidateIncidentCache(ctx context.Context, incident *models.Incident) error
	MarkIncidentDeleted(ctx context.Context, id uuid.UUID) error
}

// EventPublisher публикует события жизненного цикла для realtime-клиентов
type EventPublisher interface {
	Publish(ctx context.Context, event realtime.Event) error
}

// IncidentService определяет контракт бизнес-логики жизненного цикла инцидентов
type IncidentService interface {
	CreateIncident(ctx context.Context, actor access.Actor, incident *models.Incident) error
	GetIncident(ctx context.Context, actor access.Actor, id uuid.UUID) (*models.Incident, error)
	ListIncidents(ctx context.Context, actor access.Actor, filter models.IncidentFilter) ([]*models.Incident, error)
	UpdateIncident(ctx context.Context, actor access.Actor, incident *models.Incident) (*models.Incident, error)
	UpdateStatus(ctx context.Context, actor access.Actor, id uuid.UUID, status models.IncidentStatus) (*models.Incident, error)
	Assign(ctx context.Context, actor access.Actor, id uuid.UUID, vehicleID, responderID *int64) (*models.Incident, error)
	DeleteIncident(ctx context.Context, actor access.Actor, id uuid.UUID) error
	ListNearby(ctx context.Context, actor access.Actor, lat, lon, radiusMeters float64) ([]*models.Incident, error)
	GetStats(ctx context.Context, actor access.Actor) (*models.IncidentStats, error)
	GetHistory(ctx context.Context, actor access.Actor, id uuid.UUID) ([]*models.IncidentEvent, error)
}

type incidentService struct {
	store     Store
	cache     IncidentCache
	publisher EventPublisher
	policy    *access.Policy
	rules     lifecycle.Rules
	logger    *logrus.Logger
	cfg       *config.Config
}

func NewIncidentService(
	store Store,
	cache IncidentCache,
	publisher EventPublisher,
	policy *access.Policy,
	logger *logrus.Logger,
	cfg *config.Config,
) IncidentService {
	return &incidentService{
		store:     store,
		cache:     cache,
		publisher: publisher,
		policy:    policy,
		rules:     lifecycle.Rules{AllowDirectResolve: cfg.AllowDirectResolve},
		logger:    logger,
		cfg:       cfg,
	}
}

func (s *incidentService) methodLogger(method string, actor access.Actor) *logrus.Entry {
	return s.logger.WithFields(logrus.Fields{
		"service":    "incident",
		"method":     method,
		"actor_id":   actor.ID,
		"actor_role": actor.Role,
	})
}

// CreateIncident регистрирует новый инцидент от имени актора
func (s *incidentService) CreateIncident(ctx context.Context, actor access.Actor, incident *models.Incident) error {
	log := s.methodLogger("CreateIncident", actor).WithField("kind", incident.Kind)
	log.Info("Attempting to create a new incident")

	if err := s.policy.Authorize(actor, access.ActionCreate, actor.ID); err != nil {
		log.WithError(err).Warn("Create denied")
		return err
	}

	incident.ReporterID = actor.ID
	incident.Status = models.StatusPending
	incident.AssignedVehicleID = nil
	incident.AssignedResponderID = nil

	if err := lifecycle.ValidateReport(incident); err != nil {
		log.WithError(err).Warn("Incident report rejected")
		return err
	}

	err := s.store.WithinTx(ctx, func(tx Store) error {
		if err := tx.Incidents().Create(ctx, incident); err != nil {
			return err
		}
		return tx.Incidents().AppendEvent(ctx, newTimelineEvent(incident, actor, models.EventIncidentNew, "", nil))
	})
	if err != nil {
		log.WithError(err).Error("Failed to create incident in repository")
		return fmt.Errorf("service: could not create incident: %w", err)
	}

	log.WithField("incident_id", incident.ID).Info("Incident created successfully")
	s.publish(ctx, log, realtime.NewIncidentEvent(models.EventIncidentNew, incident))
	return nil
}

// GetIncident получает инцидент по ID, сначала из кеша
func (s *incidentService) GetIncident(ctx context.Context, actor access.Actor, id uuid.UUID) (*models.Incident, error) {
	log := s.methodLogger("GetIncident", actor).WithField("incident_id", id)
	log.Info("Fetching incident by ID")

	incident, err := s.cache.GetIncidentFromCache(ctx, id)
	if err != nil {
		log.WithError(err).Warn("Failed to read incident from cache")
	}

	if incident == nil {
		incident, err = s.store.Incidents().GetByID(ctx, id)
		if err != nil {
			log.WithError(err).Warn("Failed to get incident in repository")
			return nil, fmt.Errorf("service: could not get incident: %w", err)
		}
		if err := s.cache.SetIncidentCache(ctx, incident); err != nil {
			log.WithError(err).Warn("Failed to cache incident")
		}
	}

	if !s.policy.CanView(actor, incident.ReporterID) {
		log.Warn("Access to foreign incident denied")
		return nil, fmt.Errorf("%w: incident %s belongs to another user", models.ErrAccessDenied, id)
	}

	log.Info("Incident fetched successfully")
	return incident, nil
}

// ListIncidents возвращает список инцидентов; обычный пользователь видит только свои
func (s *incidentService) ListIncidents(ctx context.Context, actor access.Actor, filter models.IncidentFilter) ([]*models.Incident, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}

	if filter.PageSize < 1 || filter.PageSize > 100 {
		filter.PageSize = 20
	}

	log := s.methodLogger("ListIncidents", actor).WithFields(logrus.Fields{
		"page":      filter.Page,
		"page_size": filter.PageSize,
	})
	log.Info("Listing incidents")

	if !s.policy.Can(actor, access.ActionViewAll, uuid.Nil) {
		if err := s.policy.Authorize(actor, access.ActionViewOwn, actor.ID); err != nil {
			log.WithError(err).Warn("List denied")
			return nil, err
		}
		own := actor.ID
		filter.ReporterID = &own
	}

	incidents, err := s.store.Incidents().ListIncidents(ctx, filter)
	if err != nil {
		log.WithError(err).Error("Failed to list incidents from repository")
		return nil, fmt.Errorf("service: could not list incidents: %w", err)
	}

	log.WithField("count", len(incidents)).Info("Incidents listed successfully")
	return incidents, nil
}

// UpdateIncident обновляет описательные поля инцидента.
// Статус и назначение меняются только через UpdateStatus и Assign.
func (s *incidentService) UpdateIncident(ctx context.Context, actor access.Actor, incident *models.Incident) (*models.Incident, error) {
	log := s.methodLogger("UpdateIncident", actor).WithField("incident_id", incident.ID)
	log.Info("Attempting to update incident")

	if err := s.policy.Authorize(actor, access.ActionUpdate, uuid.Nil); err != nil {
		log.WithError(err).Warn("Update denied")
		return nil, err
	}

	var updated *models.Incident
	err := s.store.WithinTx(ctx, func(tx Store) error {
		existing, err := tx.Incidents().GetForUpdate(ctx, incident.ID)
		if err != nil {
			return err
		}

		existing.Title = incident.Title
		existing.Description = incident.Description
		existing.AlertType = incident.AlertType
		existing.Severity = incident.Severity
		existing.Address = incident.Address
		existing.Latitude = incident.Latitude
		existing.Longitude = incident.Longitude

		if err := lifecycle.ValidateReport(existing); err != nil {
			return err
		}
		if err := tx.Incidents().Update(ctx, existing); err != nil {
			return err
		}
		if err := tx.Incidents().AppendEvent(ctx, newTimelineEvent(existing, actor, models.EventIncidentUpdated, existing.Status, nil)); err != nil {
			return err
		}
		updated = existing
		return nil
	})
	if err != nil {
		log.WithError(err).Warn("Failed to update incident")
		return nil, fmt.Errorf("service: could not update incident: %w", err)
	}

	log.Info("Incident updated successfully")
	s.invalidate(ctx, log, updated)
	s.publish(ctx, log, realtime.NewIncidentEvent(models.EventIncidentUpdated, updated))
	return updated, nil
}

// UpdateStatus переводит инцидент в новый статус и синхронизирует статус назначенной машины
// в той же транзакции.
func (s *incidentService) UpdateStatus(ctx context.Context, actor access.Actor, id uuid.UUID, status models.IncidentStatus) (*models.Incident, error) {
	log := s.methodLogger("UpdateStatus", actor).WithFields(logrus.Fields{
		"incident_id": id,
		"status":      status,
	})
	log.Info("Attempting to change incident status")

	if !status.Valid() {
		log.Warn("Unknown status requested")
		return nil, fmt.Errorf("%w: unknown status %q", models.ErrValidation, status)
	}
	if err := s.policy.Authorize(actor, access.ActionChangeStatus, uuid.Nil); err != nil {
		log.WithError(err).Warn("Status change denied")
		return nil, err
	}

	var updated *models.Incident
	err := s.store.WithinTx(ctx, func(tx Store) error {
		incident, err := tx.Incidents().GetForUpdate(ctx, id)
		if err != nil {
			return err
		}

		from := incident.Status
		if err := s.rules.Transition(from, status); err != nil {
			return err
		}

		incident.Status = status
		if err := tx.Incidents().Update(ctx, incident); err != nil {
			return err
		}
		if err := s.syncVehicle(ctx, tx, incident); err != nil {
			return err
		}
		if err := tx.Incidents().AppendEvent(ctx, newTimelineEvent(incident, actor, models.EventIncidentStatusUpdated, from, incident.AssignedVehicleID)); err != nil {
			return err
		}
		updated = incident
		return nil
	})
	if err != nil {
		log.WithError(err).Warn("Failed to change incident status")
		return nil, fmt.Errorf("service: could not change incident status: %w", err)
	}

	log.Info("Incident status changed successfully")
	s.invalidate(ctx, log, updated)
	s.publish(ctx, log, realtime.NewIncidentEvent(models.EventIncidentStatusUpdated, updated))
	return updated, nil
}

// syncVehicle приводит статус назначенной машины в соответствие со статусом инцидента
func (s *incidentService) syncVehicle(ctx context.Context, tx Store, incident *models.Incident) error {
	if incident.AssignedVehicleID == nil {
		return nil
	}
	vehicleStatus, ok := lifecycle.VehicleEffect(incident.Status)
	if !ok {
		return nil
	}
	vehicleID := *incident.AssignedVehicleID

	// Завершённый инцидент не освобождает машину, которую уже занял другой инцидент
	if vehicleStatus == models.VehicleAvailable {
		holder, err := tx.Incidents().FindActiveByVehicle(ctx, vehicleID, incident.ID)
		if err != nil {
			return err
		}
		if holder != nil {
			return nil
		}
	}

	if err := tx.Vehicles().SetStatus(ctx, vehicleID, vehicleStatus); err != nil {
		return fmt.Errorf("could not set vehicle %d status to %s: %w", vehicleID, vehicleStatus, err)
	}
	return nil
}

// Assign закрепляет за инцидентом машину и спасателя. Пустое значение снимает назначение.
func (s *incidentService) Assign(ctx context.Context, actor access.Actor, id uuid.UUID, vehicleID, responderID *int64) (*models.Incident, error) {
	log := s.methodLogger("Assign", actor).WithField("incident_id", id)
	if vehicleID != nil {
		log = log.WithField("vehicle_id", *vehicleID)
	}
	if responderID != nil {
		log = log.WithField("responder_id", *responderID)
	}
	log.Info("Attempting to change incident assignment")

	if err := s.policy.Authorize(actor, access.ActionAssign, uuid.Nil); err != nil {
		log.WithError(err).Warn("Assignment denied")
		return nil, err
	}

	var updated *models.Incident
	err := s.store.WithinTx(ctx, func(tx Store) error {
		incident, err := tx.Incidents().GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if incident.Status.Terminal() {
			return fmt.Errorf("%w: incident is %s", models.ErrInvalidTransition, incident.Status)
		}

		if vehicleID != nil {
			if err := s.checkVehicleFree(ctx, tx, *vehicleID, incident.ID); err != nil {
				return err
			}
		}
		if responderID != nil {
			if _, err := tx.Responders().GetByID(ctx, *responderID); err != nil {
				return fmt.Errorf("responder %d: %w", *responderID, err)
			}
		}

		previous := incident.AssignedVehicleID
		incident.AssignedVehicleID = vehicleID
		incident.AssignedResponderID = responderID
		if err := tx.Incidents().Update(ctx, incident); err != nil {
			return err
		}

		for _, change := range lifecycle.PlanAssignment(previous, vehicleID) {
			if err := tx.Vehicles().SetStatus(ctx, change.VehicleID, change.Status); err != nil {
				return fmt.Errorf("could not set vehicle %d status to %s: %w", change.VehicleID, change.Status, err)
			}
		}
		// Машина, назначенная на уже выехавший инцидент, сразу считается выехавшей
		if incident.Status == models.StatusResponding {
			if err := s.syncVehicle(ctx, tx, incident); err != nil {
				return err
			}
		}

		if err := tx.Incidents().AppendEvent(ctx, newTimelineEvent(incident, actor, models.EventIncidentAssigned, incident.Status, vehicleID)); err != nil {
			return err
		}
		updated = incident
		return nil
	})
	if err != nil {
		log.WithError(err).Warn("Failed to change incident assignment")
		return nil, fmt.Errorf("service: could not assign incident: %w", err)
	}

	log.Info("Incident assignment changed successfully")
	s.invalidate(ctx, log, updated)
	s.publish(ctx, log, realtime.NewIncidentEvent(models.EventIncidentAssigned, updated))
	return updated, nil
}

// checkVehicleFree проверяет, что машина существует, исправна и не закреплена за другим инцидентом
func (s *incidentService) checkVehicleFree(ctx context.Context, tx Store, vehicleID int64, incidentID uuid.UUID) error {
	vehicle, err := tx.Vehicles().GetForUpdate(ctx, vehicleID)
	if err != nil {
		return fmt.Errorf("vehicle %d: %w", vehicleID, err)
	}
	if !vehicle.Status.Dispatchable() {
		return fmt.Errorf("%w: vehicle %d is %s", models.ErrConflict, vehicleID, vehicle.Status)
	}
	holder, err := tx.Incidents().FindActiveByVehicle(ctx, vehicleID, incidentID)
	if err != nil {
		return err
	}
	if holder != nil {
		return fmt.Errorf("%w: vehicle %d is already assigned to incident %s", models.ErrConflict, vehicleID, holder.ID)
	}
	return nil
}

// DeleteIncident безвозвратно удаляет инцидент. Статус назначенной машины не меняется.
func (s *incidentService) DeleteIncident(ctx context.Context, actor access.Actor, id uuid.UUID) error {
	log := s.methodLogger("DeleteIncident", actor).WithField("incident_id", id)
	log.Info("Attempting to delete incident")

	if err := s.policy.Authorize(actor, access.ActionDelete, uuid.Nil); err != nil {
		log.WithError(err).Warn("Delete denied")
		return err
	}

	var reporterID uuid.UUID
	err := s.store.WithinTx(ctx, func(tx Store) error {
		incident, err := tx.Incidents().GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		reporterID = incident.ReporterID
		if incident.AssignedVehicleID != nil && !incident.Status.Terminal() {
			log.WithField("vehicle_id", *incident.AssignedVehicleID).Warn("Deleting incident that still holds a vehicle")
		}
		return tx.Incidents().Delete(ctx, id)
	})
	if err != nil {
		log.WithError(err).Warn("Failed to delete incident")
		return fmt.Errorf("service: could not delete incident: %w", err)
	}

	log.Info("Incident deleted successfully")
	if err := s.cache.MarkIncidentDeleted(ctx, id); err != nil {
		log.WithError(err).Warn("Failed to invalidate incident cache")
	}
	s.publish(ctx, log, realtime.NewDeletedEvent(id, reporterID))
	return nil
}

// ListNearby находит незавершённые инциденты в радиусе от точки
func (s *incidentService) ListNearby(ctx context.Context, actor access.Actor, lat, lon, radiusMeters float64) ([]*models.Incident, error) {
	log := s.methodLogger("ListNearby", actor).WithFields(logrus.Fields{
		"lat": lat,
		"lon": lon,
	})
	log.Info("Searching incidents nearby")

	if err := s.policy.Authorize(actor, access.ActionViewAll, uuid.Nil); err != nil {
		log.WithError(err).Warn("Nearby search denied")
		return nil, err
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return nil, fmt.Errorf("%w: coordinates out of range", models.ErrValidation)
	}
	if radiusMeters <= 0 {
		radiusMeters = s.cfg.NearbyDefaultRadiusMeters
	}

	incidents, err := s.store.Incidents().FindActiveNearby(ctx, lat, lon, radiusMeters)
	if err != nil {
		log.WithError(err).Error("Failed to find incidents nearby")
		return nil, fmt.Errorf("service: failed to find incidents nearby: %w", err)
	}

	log.WithField("count", len(incidents)).Info("Nearby search completed")
	return incidents, nil
}

// GetStats возвращает количество инцидентов по статусам
func (s *incidentService) GetStats(ctx context.Context, actor access.Actor) (*models.IncidentStats, error) {
	log := s.methodLogger("GetStats", actor)
	log.Info("Getting incident statistics")

	if err := s.policy.Authorize(actor, access.ActionViewAll, uuid.Nil); err != nil {
		log.WithError(err).Warn("Stats denied")
		return nil, err
	}

	stats, err := s.store.Incidents().CountByStatus(ctx)
	if err != nil {
		log.WithError(err).Error("Failed to get incident stats from repository")
		return nil, fmt.Errorf("service: could not get stats: %w", err)
	}

	return stats, nil
}

// GetHistory возвращает журнал изменений инцидента с теми же правами, что и GetIncident
func (s *incidentService) GetHistory(ctx context.Context, actor access.Actor, id uuid.UUID) ([]*models.IncidentEvent, error) {
	if _, err := s.GetIncident(ctx, actor, id); err != nil {
		return nil, err
	}

	events, err := s.store.Incidents().ListEvents(ctx, id)
	if err != nil {
		s.methodLogger("GetHistory", actor).WithError(err).Error("Failed to list incident events")
		return nil, fmt.Errorf("service: could not get incident history: %w", err)
	}
	return events, nil
}

// invalidate сбрасывает кеш после фиксации транзакции; ошибка только логируется.
// Версия зафиксированной записи не дает читателю со старым снимком заполнить кеш.
func (s *incidentService) invalidate(ctx context.Context, log *logrus.Entry, updated *models.Incident) {
	if err := s.cache.InvalidateIncidentCache(ctx, updated); err != nil {
		log.WithError(err).Warn("Failed to invalidate incident cache")
	}
}

// publish рассылает событие; ошибка доставки не влияет на результат операции
func (s *incidentService) publish(ctx context.Context, log *logrus.Entry, event realtime.Event) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		log.WithError(err).WithField("event", event.Name).Warn("Failed to publish incident event")
	}
}

func newTimelineEvent(incident *models.Incident, actor access.Actor, name string, from models.IncidentStatus, vehicleID *int64) *models.IncidentEvent {
	return &models.IncidentEvent{
		IncidentID: incident.ID,
		ActorID:    actor.ID,
		ActorRole:  string(actor.Role),
		Event:      name,
		FromStatus: from,
		ToStatus:   incident.Status,
		VehicleID:  vehicleID,
	}
}
