// Package lifecycle содержит чистые правила жизненного цикла инцидента:
// таблицу переходов статусов, связанные изменения статуса машин и проверку отчёта.
// Функции пакета не обращаются к хранилищу.
package lifecycle

import (
	"fmt"
	"slices"
	"strings"

	"github.com/shenikar/emergency_dispatch_system/internal/models"
)

var transitions = map[models.IncidentStatus][]models.IncidentStatus{
	models.StatusPending:    {models.StatusResponding, models.StatusCancelled},
	models.StatusResponding: {models.StatusResolved, models.StatusCancelled},
}

// Rules - настраиваемая часть политики переходов
type Rules struct {
	// AllowDirectResolve разрешает переход pending -> resolved
	AllowDirectResolve bool
}

// Transition проверяет переход from -> to.
// Переход в тот же статус разрешён всегда, чтобы повторный запрос был идемпотентным.
func (r Rules) Transition(from, to models.IncidentStatus) error {
	if !to.Valid() {
		return fmt.Errorf("%w: unknown status %q", models.ErrValidation, to)
	}
	if from == to {
		return nil
	}
	if slices.Contains(transitions[from], to) {
		return nil
	}
	if r.AllowDirectResolve && from == models.StatusPending && to == models.StatusResolved {
		return nil
	}
	return fmt.Errorf("%w: %s -> %s", models.ErrInvalidTransition, from, to)
}

// VehicleEffect возвращает статус, который должна получить назначенная машина
// после перехода инцидента в статус to.
func VehicleEffect(to models.IncidentStatus) (models.VehicleStatus, bool) {
	switch to {
	case models.StatusResponding:
		return models.VehicleResponding, true
	case models.StatusResolved, models.StatusCancelled:
		return models.VehicleAvailable, true
	}
	return "", false
}

// VehicleChange - запланированная смена статуса машины
type VehicleChange struct {
	VehicleID int64
	Status    models.VehicleStatus
}

// PlanAssignment строит упорядоченный список изменений машин при переназначении:
// сначала освобождается прежняя машина, затем занимается новая.
func PlanAssignment(prev, next *int64) []VehicleChange {
	changes := make([]VehicleChange, 0, 2)
	if prev != nil && (next == nil || *prev != *next) {
		changes = append(changes, VehicleChange{VehicleID: *prev, Status: models.VehicleAvailable})
	}
	if next != nil {
		changes = append(changes, VehicleChange{VehicleID: *next, Status: models.VehicleAssigned})
	}
	return changes
}

// ValidateReport проверяет обязательные поля нового инцидента в зависимости от его типа
func ValidateReport(inc *models.Incident) error {
	var problems []string

	if !inc.Kind.Valid() {
		problems = append(problems, fmt.Sprintf("unknown kind %q", inc.Kind))
	}

	if inc.Kind == models.KindManualAlert {
		if inc.AlertType == "" {
			problems = append(problems, "alert_type is required")
		}
		if inc.Severity == "" {
			problems = append(problems, "severity is required")
		}
		if strings.TrimSpace(inc.Title) == "" {
			problems = append(problems, "title is required")
		}
		if strings.TrimSpace(inc.Address) == "" && !inc.HasLocation() {
			problems = append(problems, "location is required")
		}
	}

	if (inc.Kind == models.KindAutoCrash || inc.Kind == models.KindSOS) && !inc.HasLocation() {
		problems = append(problems, "latitude and longitude are required")
	}

	if inc.AlertType != "" && !slices.Contains(models.AlertTypes, inc.AlertType) {
		problems = append(problems, fmt.Sprintf("unknown alert_type %q", inc.AlertType))
	}
	if inc.Severity != "" && !slices.Contains(models.Severities, inc.Severity) {
		problems = append(problems, fmt.Sprintf("unknown severity %q", inc.Severity))
	}
	if inc.Latitude != nil && (*inc.Latitude < -90 || *inc.Latitude > 90) {
		problems = append(problems, "latitude out of range")
	}
	if inc.Longitude != nil && (*inc.Longitude < -180 || *inc.Longitude > 180) {
		problems = append(problems, "longitude out of range")
	}
	if (inc.Latitude == nil) != (inc.Longitude == nil) {
		problems = append(problems, "latitude and longitude must be set together")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", models.ErrValidation, strings.Join(problems, "; "))
	}
	return nil
}
