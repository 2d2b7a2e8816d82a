package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shenikar/emergency_dispatch_system/internal/models"
)

type VehicleRepository struct {
	db querier
}

func scanVehicle(row pgx.Row) (*models.Vehicle, error) {
	vehicle := &models.Vehicle{}
	err := row.Scan(
		&vehicle.ID,
		&vehicle.CallSign,
		&vehicle.VehicleType,
		&vehicle.Status,
		&vehicle.CreatedAt,
		&vehicle.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return vehicle, nil
}

func (r *VehicleRepository) Create(ctx context.Context, vehicle *models.Vehicle) error {
	query := `
		INSERT INTO vehicles (call_sign, vehicle_type, status)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at;
	`
	err := r.db.QueryRow(ctx, query, vehicle.CallSign, vehicle.VehicleType, vehicle.Status).
		Scan(&vehicle.ID, &vehicle.CreatedAt, &vehicle.UpdatedAt)
	if err != nil {
		return mapError(err, "create vehicle %s", vehicle.CallSign)
	}
	return nil
}

func (r *VehicleRepository) GetByID(ctx context.Context, id int64) (*models.Vehicle, error) {
	query := `SELECT id, call_sign, vehicle_type, status, created_at, updated_at FROM vehicles WHERE id = $1;`
	vehicle, err := scanVehicle(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, mapError(err, "get vehicle %d", id)
	}
	return vehicle, nil
}

// GetForUpdate блокирует строку машины, чтобы два назначения не заняли ее одновременно
func (r *VehicleRepository) GetForUpdate(ctx context.Context, id int64) (*models.Vehicle, error) {
	query := `SELECT id, call_sign, vehicle_type, status, created_at, updated_at FROM vehicles WHERE id = $1 FOR UPDATE;`
	vehicle, err := scanVehicle(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, mapError(err, "lock vehicle %d", id)
	}
	return vehicle, nil
}

// List возвращает машины, при непустом status только в этом статусе
func (r *VehicleRepository) List(ctx context.Context, status models.VehicleStatus) ([]*models.Vehicle, error) {
	query := `
		SELECT id, call_sign, vehicle_type, status, created_at, updated_at
		FROM vehicles
		WHERE $1 = '' OR status = $1
		ORDER BY id;
	`
	rows, err := r.db.Query(ctx, query, string(status))
	if err != nil {
		return nil, mapError(err, "list vehicles")
	}
	defer rows.Close()

	vehicles := make([]*models.Vehicle, 0)
	for rows.Next() {
		vehicle, err := scanVehicle(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan vehicle row: %w", err)
		}
		vehicles = append(vehicles, vehicle)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error list iteration: %w", err)
	}
	return vehicles, nil
}

func (r *VehicleRepository) SetStatus(ctx context.Context, id int64, status models.VehicleStatus) error {
	cmdTag, err := r.db.Exec(ctx, `UPDATE vehicles SET status = $1, updated_at = NOW() WHERE id = $2;`, status, id)
	if err != nil {
		return mapError(err, "set vehicle %d status", id)
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("vehicle with id %d not found for update: %w", id, models.ErrNotFound)
	}
	return nil
}

type ResponderRepository struct {
	db querier
}

func (r *ResponderRepository) Create(ctx context.Context, responder *models.Responder) error {
	query := `
		INSERT INTO responders (name, phone, status)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at;
	`
	err := r.db.QueryRow(ctx, query, responder.Name, responder.Phone, responder.Status).
		Scan(&responder.ID, &responder.CreatedAt, &responder.UpdatedAt)
	if err != nil {
		return mapError(err, "create responder")
	}
	return nil
}

func (r *ResponderRepository) GetByID(ctx context.Context, id int64) (*models.Responder, error) {
	responder := &models.Responder{}
	err := r.db.QueryRow(ctx, `SELECT id, name, phone, status, created_at, updated_at FROM responders WHERE id = $1;`, id).
		Scan(&responder.ID, &responder.Name, &responder.Phone, &responder.Status, &responder.CreatedAt, &responder.UpdatedAt)
	if err != nil {
		return nil, mapError(err, "get responder %d", id)
	}
	return responder, nil
}

func (r *ResponderRepository) List(ctx context.Context) ([]*models.Responder, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name, phone, status, created_at, updated_at FROM responders ORDER BY id;`)
	if err != nil {
		return nil, mapError(err, "list responders")
	}
	defer rows.Close()

	responders := make([]*models.Responder, 0)
	for rows.Next() {
		responder := &models.Responder{}
		if err := rows.Scan(&responder.ID, &responder.Name, &responder.Phone, &responder.Status, &responder.CreatedAt, &responder.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan responder row: %w", err)
		}
		responders = append(responders, responder)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error list iteration: %w", err)
	}
	return responders, nil
}
