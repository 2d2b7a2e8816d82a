package v1

import "github.com/shenikar/emergency_dispatch_system/internal/models"

// CreateDTOToIncidentModel преобразует DTO создания в доменную модель
func CreateDTOToIncidentModel(dto CreateIncidentRequest) *models.Incident {
	return &models.Incident{
		Kind:        models.IncidentKind(dto.Kind),
		AlertType:   dto.AlertType,
		Severity:    dto.Severity,
		Title:       dto.Title,
		Description: dto.Description,
		Address:     dto.Address,
		Latitude:    dto.Latitude,
		Longitude:   dto.Longitude,
	}
}

// UpdateDTOToIncidentModel преобразует DTO обновления в доменную модель.
// ID проставляется из пути запроса.
func UpdateDTOToIncidentModel(dto UpdateIncidentRequest) *models.Incident {
	return &models.Incident{
		AlertType:   dto.AlertType,
		Severity:    dto.Severity,
		Title:       dto.Title,
		Description: dto.Description,
		Address:     dto.Address,
		Latitude:    dto.Latitude,
		Longitude:   dto.Longitude,
	}
}

// ModelToIncidentResponse преобразует доменную модель в DTO для ответа
func ModelToIncidentResponse(model *models.Incident) *IncidentResponse {
	return &IncidentResponse{
		ID:                  model.ID,
		ReporterID:          model.ReporterID,
		Kind:                string(model.Kind),
		Status:              string(model.Status),
		AlertType:           model.AlertType,
		Severity:            model.Severity,
		Title:               model.Title,
		Description:         model.Description,
		Address:             model.Address,
		Latitude:            model.Latitude,
		Longitude:           model.Longitude,
		AssignedVehicleID:   model.AssignedVehicleID,
		AssignedResponderID: model.AssignedResponderID,
		CreatedAt:           model.CreatedAt,
		UpdatedAt:           model.UpdatedAt,
	}
}

// ModelsToIncidentResponses преобразует слайс моделей в слайс DTO
func ModelsToIncidentResponses(models []*models.Incident) []*IncidentResponse {
	responses := make([]*IncidentResponse, len(models))
	for i, model := range models {
		responses[i] = ModelToIncidentResponse(model)
	}
	return responses
}

func ModelsToEventResponses(events []*models.IncidentEvent) []*IncidentEventResponse {
	responses := make([]*IncidentEventResponse, len(events))
	for i, event := range events {
		responses[i] = &IncidentEventResponse{
			ID:         event.ID,
			ActorID:    event.ActorID,
			ActorRole:  event.ActorRole,
			Event:      event.Event,
			FromStatus: string(event.FromStatus),
			ToStatus:   string(event.ToStatus),
			VehicleID:  event.VehicleID,
			CreatedAt:  event.CreatedAt,
		}
	}
	return responses
}

func ModelToVehicleResponse(model *models.Vehicle) *VehicleResponse {
	return &VehicleResponse{
		ID:          model.ID,
		CallSign:    model.CallSign,
		VehicleType: model.VehicleType,
		Status:      string(model.Status),
		CreatedAt:   model.CreatedAt,
		UpdatedAt:   model.UpdatedAt,
	}
}

func ModelsToVehicleResponses(vehicles []*models.Vehicle) []*VehicleResponse {
	responses := make([]*VehicleResponse, len(vehicles))
	for i, vehicle := range vehicles {
		responses[i] = ModelToVehicleResponse(vehicle)
	}
	return responses
}

func ModelToResponderResponse(model *models.Responder) *ResponderResponse {
	return &ResponderResponse{
		ID:        model.ID,
		Name:      model.Name,
		Phone:     model.Phone,
		Status:    string(model.Status),
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	}
}

func ModelsToResponderResponses(responders []*models.Responder) []*ResponderResponse {
	responses := make([]*ResponderResponse, len(responders))
	for i, responder := range responders {
		responses[i] = ModelToResponderResponse(responder)
	}
	return responses
}
