package service

//go:generate mockgen -source=fleet.go -destination=mocks/mock_fleet.go -package=mocks

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shenikar/emergency_dispatch_system/internal/access"
	"github.com/shenikar/emergency_dispatch_system/internal/models"
	"github.com/sirupsen/logrus"
)

// FleetService управляет машинами и спасателями
type FleetService interface {
	ListVehicles(ctx context.Context, actor access.Actor, status models.VehicleStatus) ([]*models.Vehicle, error)
	GetVehicle(ctx context.Context, actor access.Actor, id int64) (*models.Vehicle, error)
	CreateVehicle(ctx context.Context, actor access.Actor, vehicle *models.Vehicle) error
	SetVehicleStatus(ctx context.Context, actor access.Actor, id int64, status models.VehicleStatus) (*models.Vehicle, error)
	ListResponders(ctx context.Context, actor access.Actor) ([]*models.Responder, error)
	CreateResponder(ctx context.Context, actor access.Actor, responder *models.Responder) error
}

type fleetService struct {
	store  Store
	policy *access.Policy
	logger *logrus.Logger
}

func NewFleetService(store Store, policy *access.Policy, logger *logrus.Logger) FleetService {
	return &fleetService{
		store:  store,
		policy: policy,
		logger: logger,
	}
}

func (s *fleetService) methodLogger(method string, actor access.Actor) *logrus.Entry {
	return s.logger.WithFields(logrus.Fields{
		"service":    "fleet",
		"method":     method,
		"actor_id":   actor.ID,
		"actor_role": actor.Role,
	})
}

func (s *fleetService) ListVehicles(ctx context.Context, actor access.Actor, status models.VehicleStatus) ([]*models.Vehicle, error) {
	log := s.methodLogger("ListVehicles", actor)

	if err := s.policy.Authorize(actor, access.ActionViewFleet, uuid.Nil); err != nil {
		return nil, err
	}
	if status != "" && !status.Valid() {
		return nil, fmt.Errorf("%w: unknown vehicle status %q", models.ErrValidation, status)
	}

	vehicles, err := s.store.Vehicles().List(ctx, status)
	if err != nil {
		log.WithError(err).Error("Failed to list vehicles")
		return nil, fmt.Errorf("service: could not list vehicles: %w", err)
	}
	return vehicles, nil
}

func (s *fleetService) GetVehicle(ctx context.Context, actor access.Actor, id int64) (*models.Vehicle, error) {
	if err := s.policy.Authorize(actor, access.ActionViewFleet, uuid.Nil); err != nil {
		return nil, err
	}

	vehicle, err := s.store.Vehicles().GetByID(ctx, id)
	if err != nil {
		s.methodLogger("GetVehicle", actor).WithError(err).Warn("Failed to get vehicle")
		return nil, fmt.Errorf("service: could not get vehicle: %w", err)
	}
	return vehicle, nil
}

// CreateVehicle регистрирует машину; по умолчанию она доступна для назначения
func (s *fleetService) CreateVehicle(ctx context.Context, actor access.Actor, vehicle *models.Vehicle) error {
	log := s.methodLogger("CreateVehicle", actor).WithField("call_sign", vehicle.CallSign)
	log.Info("Attempting to create vehicle")

	if err := s.policy.Authorize(actor, access.ActionManageFleet, uuid.Nil); err != nil {
		log.WithError(err).Warn("Vehicle creation denied")
		return err
	}
	if strings.TrimSpace(vehicle.CallSign) == "" {
		return fmt.Errorf("%w: call_sign is required", models.ErrValidation)
	}
	if vehicle.Status == "" {
		vehicle.Status = models.VehicleAvailable
	}
	if !vehicle.Status.Valid() {
		return fmt.Errorf("%w: unknown vehicle status %q", models.ErrValidation, vehicle.Status)
	}

	if err := s.store.Vehicles().Create(ctx, vehicle); err != nil {
		log.WithError(err).Error("Failed to create vehicle")
		return fmt.Errorf("service: could not create vehicle: %w", err)
	}

	log.WithField("vehicle_id", vehicle.ID).Info("Vehicle created successfully")
	return nil
}

// SetVehicleStatus вручную исправляет статус машины, например после удаления инцидента
func (s *fleetService) SetVehicleStatus(ctx context.Context, actor access.Actor, id int64, status models.VehicleStatus) (*models.Vehicle, error) {
	log := s.methodLogger("SetVehicleStatus", actor).WithFields(logrus.Fields{
		"vehicle_id": id,
		"status":     status,
	})
	log.Info("Attempting to correct vehicle status")

	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown vehicle status %q", models.ErrValidation, status)
	}
	if err := s.policy.Authorize(actor, access.ActionManageFleet, uuid.Nil); err != nil {
		log.WithError(err).Warn("Vehicle status correction denied")
		return nil, err
	}

	var vehicle *models.Vehicle
	err := s.store.WithinTx(ctx, func(tx Store) error {
		if _, err := tx.Vehicles().GetForUpdate(ctx, id); err != nil {
			return err
		}
		if err := tx.Vehicles().SetStatus(ctx, id, status); err != nil {
			return err
		}
		var err error
		vehicle, err = tx.Vehicles().GetByID(ctx, id)
		return err
	})
	if err != nil {
		log.WithError(err).Warn("Failed to correct vehicle status")
		return nil, fmt.Errorf("service: could not set vehicle status: %w", err)
	}

	log.Info("Vehicle status corrected")
	return vehicle, nil
}

func (s *fleetService) ListResponders(ctx context.Context, actor access.Actor) ([]*models.Responder, error) {
	if err := s.policy.Authorize(actor, access.ActionViewFleet, uuid.Nil); err != nil {
		return nil, err
	}

	responders, err := s.store.Responders().List(ctx)
	if err != nil {
		s.methodLogger("ListResponders", actor).WithError(err).Error("Failed to list responders")
		return nil, fmt.Errorf("service: could not list responders: %w", err)
	}
	return responders, nil
}

func (s *fleetService) CreateResponder(ctx context.Context, actor access.Actor, responder *models.Responder) error {
	log := s.methodLogger("CreateResponder", actor)

	if err := s.policy.Authorize(actor, access.ActionManageFleet, uuid.Nil); err != nil {
		log.WithError(err).Warn("Responder creation denied")
		return err
	}
	if strings.TrimSpace(responder.Name) == "" {
		return fmt.Errorf("%w: name is required", models.ErrValidation)
	}
	if responder.Status == "" {
		responder.Status = models.ResponderAvailable
	}
	if !responder.Status.Valid() {
		return fmt.Errorf("%w: unknown responder status %q", models.ErrValidation, responder.Status)
	}

	if err := s.store.Responders().Create(ctx, responder); err != nil {
		log.WithError(err).Error("Failed to create responder")
		return fmt.Errorf("service: could not create responder: %w", err)
	}

	log.WithField("responder_id", responder.ID).Info("Responder created successfully")
	return nil
}
