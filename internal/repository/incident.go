package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shenikar/emergency_dispatch_system/internal/models"
)

type IncidentRepository struct {
	db querier
}

const incidentColumns = `
	id,
	reporter_id,
	kind,
	status,
	alert_type,
	severity,
	title,
	description,
	address,
	ST_Y(location::geometry) AS latitude,
	ST_X(location::geometry) AS longitude,
	assigned_vehicle_id,
	assigned_responder_id,
	created_at,
	updated_at`

func scanIncident(row pgx.Row) (*models.Incident, error) {
	incident := &models.Incident{}
	err := row.Scan(
		&incident.ID,
		&incident.ReporterID,
		&incident.Kind,
		&incident.Status,
		&incident.AlertType,
		&incident.Severity,
		&incident.Title,
		&incident.Description,
		&incident.Address,
		&incident.Latitude,
		&incident.Longitude,
		&incident.AssignedVehicleID,
		&incident.AssignedResponderID,
		&incident.CreatedAt,
		&incident.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return incident, nil
}

func collectIncidents(rows pgx.Rows) ([]*models.Incident, error) {
	defer rows.Close()

	incidents := make([]*models.Incident, 0)
	for rows.Next() {
		incident, err := scanIncident(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan incident row: %w", err)
		}
		incidents = append(incidents, incident)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error list iteration: %w", err)
	}
	return incidents, nil
}

// Create создает новую запись об инциденте в бд.
// Точка строится только если заданы обе координаты: ST_MakePoint от NULL дает NULL.
func (r *IncidentRepository) Create(ctx context.Context, incident *models.Incident) error {
	query := `
		INSERT INTO incidents (
			reporter_id, kind, status, alert_type, severity, title, description, address,
			location, assigned_vehicle_id, assigned_responder_id
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8,
			ST_SetSRID(ST_MakePoint($9::float8, $10::float8), 4326)::geography, $11, $12)
		RETURNING id, created_at, updated_at;
	`
	err := r.db.QueryRow(ctx, query,
		incident.ReporterID,
		incident.Kind,
		incident.Status,
		incident.AlertType,
		incident.Severity,
		incident.Title,
		incident.Description,
		incident.Address,
		incident.Longitude,
		incident.Latitude,
		incident.AssignedVehicleID,
		incident.AssignedResponderID,
	).Scan(&incident.ID, &incident.CreatedAt, &incident.UpdatedAt)
	if err != nil {
		return mapError(err, "create incident")
	}
	return nil
}

// GetByID возвращает инцидент по его UUID
func (r *IncidentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Incident, error) {
	query := `SELECT ` + incidentColumns + ` FROM incidents WHERE id = $1;`
	incident, err := scanIncident(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, mapError(err, "get incident %s", id)
	}
	return incident, nil
}

// GetForUpdate читает инцидент с блокировкой строки до конца транзакции
func (r *IncidentRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*models.Incident, error) {
	query := `SELECT ` + incidentColumns + ` FROM incidents WHERE id = $1 FOR UPDATE;`
	incident, err := scanIncident(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, mapError(err, "lock incident %s", id)
	}
	return incident, nil
}

// Update сохраняет изменяемые поля. updated_at строго растет для каждой строки,
// по нему кеш отличает свежий снимок от устаревшего.
func (r *IncidentRepository) Update(ctx context.Context, incident *models.Incident) error {
	query := `
		UPDATE incidents SET
			status = $1,
			alert_type = $2,
			severity = $3,
			title = $4,
			description = $5,
			address = $6,
			location = ST_SetSRID(ST_MakePoint($7::float8, $8::float8), 4326)::geography,
			assigned_vehicle_id = $9,
			assigned_responder_id = $10,
			updated_at = GREATEST(clock_timestamp(), updated_at + interval '1 microsecond')
		WHERE id = $11
		RETURNING updated_at;
	`
	err := r.db.QueryRow(ctx, query,
		incident.Status,
		incident.AlertType,
		incident.Severity,
		incident.Title,
		incident.Description,
		incident.Address,
		incident.Longitude,
		incident.Latitude,
		incident.AssignedVehicleID,
		incident.AssignedResponderID,
		incident.ID,
	).Scan(&incident.UpdatedAt)
	if err != nil {
		return mapError(err, "update incident %s", incident.ID)
	}
	return nil
}

// Delete удаляет инцидент; журнал удаляется каскадно
func (r *IncidentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	cmdTag, err := r.db.Exec(ctx, `DELETE FROM incidents WHERE id = $1;`, id)
	if err != nil {
		return mapError(err, "delete incident %s", id)
	}

	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("incident with id %s not found for delete: %w", id, models.ErrNotFound)
	}
	return nil
}

// ListIncidents возвращает список инцидентов с фильтрами и пагинацией
func (r *IncidentRepository) ListIncidents(ctx context.Context, filter models.IncidentFilter) ([]*models.Incident, error) {
	// рассчитываем смещение
	offset := (filter.Page - 1) * filter.PageSize

	conditions := make([]string, 0, 4)
	args := make([]any, 0, 6)
	addCondition := func(column string, value any) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if filter.Status != "" {
		addCondition("status", filter.Status)
	}
	if filter.Kind != "" {
		addCondition("kind", filter.Kind)
	}
	if filter.AlertType != "" {
		addCondition("alert_type", filter.AlertType)
	}
	if filter.ReporterID != nil {
		addCondition("reporter_id", *filter.ReporterID)
	}

	var where string
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}
	args = append(args, filter.PageSize, offset)

	query := fmt.Sprintf(`
		SELECT %s
		FROM incidents
		%s
		ORDER BY created_at DESC, id DESC
		LIMIT $%d OFFSET $%d;
	`, incidentColumns, where, len(args)-1, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError(err, "list incidents")
	}
	return collectIncidents(rows)
}

// FindActiveNearby находит незавершенные инциденты в радиусе от точки, ближайшие первыми
func (r *IncidentRepository) FindActiveNearby(ctx context.Context, lat, lon, radiusMeters float64) ([]*models.Incident, error) {
	query := `
		SELECT ` + incidentColumns + `
		FROM incidents
		WHERE
			status IN ('pending', 'responding')
			AND location IS NOT NULL
			AND ST_DWithin(
				location,
				ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography,
				$3
			)
		ORDER BY ST_Distance(location, ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography);
	`
	rows, err := r.db.Query(ctx, query, lon, lat, radiusMeters)
	if err != nil {
		return nil, mapError(err, "find incidents nearby")
	}
	return collectIncidents(rows)
}

// FindActiveByVehicle возвращает незавершенный инцидент, за которым закреплена машина.
// Если такого нет, возвращает nil без ошибки.
func (r *IncidentRepository) FindActiveByVehicle(ctx context.Context, vehicleID int64, excludeID uuid.UUID) (*models.Incident, error) {
	query := `
		SELECT ` + incidentColumns + `
		FROM incidents
		WHERE assigned_vehicle_id = $1
			AND id <> $2
			AND status IN ('pending', 'responding')
		LIMIT 1;
	`
	incident, err := scanIncident(r.db.QueryRow(ctx, query, vehicleID, excludeID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, mapError(err, "find incident by vehicle %d", vehicleID)
	}
	return incident, nil
}

// CountByStatus возвращает количество инцидентов в каждом статусе
func (r *IncidentRepository) CountByStatus(ctx context.Context) (*models.IncidentStats, error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE status = 'pending'),
			COUNT(*) FILTER (WHERE status = 'responding'),
			COUNT(*) FILTER (WHERE status = 'resolved'),
			COUNT(*) FILTER (WHERE status = 'cancelled')
		FROM incidents;
	`
	stats := &models.IncidentStats{}
	err := r.db.QueryRow(ctx, query).Scan(&stats.Pending, &stats.Responding, &stats.Resolved, &stats.Cancelled)
	if err != nil {
		return nil, mapError(err, "count incidents by status")
	}
	return stats, nil
}

// AppendEvent добавляет запись в журнал изменений инцидента
func (r *IncidentRepository) AppendEvent(ctx context.Context, event *models.IncidentEvent) error {
	query := `
		INSERT INTO incident_events (incident_id, actor_id, actor_role, event, from_status, to_status, vehicle_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at;
	`
	err := r.db.QueryRow(ctx, query,
		event.IncidentID,
		event.ActorID,
		event.ActorRole,
		event.Event,
		event.FromStatus,
		event.ToStatus,
		event.VehicleID,
	).Scan(&event.ID, &event.CreatedAt)
	if err != nil {
		return mapError(err, "append incident event")
	}
	return nil
}

// ListEvents возвращает журнал инцидента в хронологическом порядке
func (r *IncidentRepository) ListEvents(ctx context.Context, incidentID uuid.UUID) ([]*models.IncidentEvent, error) {
	query := `
		SELECT id, incident_id, actor_id, actor_role, event, from_status, to_status, vehicle_id, created_at
		FROM incident_events
		WHERE incident_id = $1
		ORDER BY created_at, id;
	`
	rows, err := r.db.Query(ctx, query, incidentID)
	if err != nil {
		return nil, mapError(err, "list incident events")
	}
	defer rows.Close()

	events := make([]*models.IncidentEvent, 0)
	for rows.Next() {
		event := &models.IncidentEvent{}
		err := rows.Scan(
			&event.ID,
			&event.IncidentID,
			&event.ActorID,
			&event.ActorRole,
			&event.Event,
			&event.FromStatus,
			&event.ToStatus,
			&event.VehicleID,
			&event.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan incident event row: %w", err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error list iteration: %w", err)
	}
	return events, nil
}
