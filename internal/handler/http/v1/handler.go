package v1

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/shenikar/emergency_dispatch_system/internal/config"
	"github.com/shenikar/emergency_dispatch_system/internal/models"
	"github.com/shenikar/emergency_dispatch_system/internal/realtime"
	"github.com/shenikar/emergency_dispatch_system/internal/service"
	"github.com/sirupsen/logrus"
)

type Handler struct {
	incidentService service.IncidentService
	fleetService    service.FleetService
	hub             *realtime.Hub
	logger          *logrus.Logger
	validate        *validator.Validate
	cfg             *config.Config
	reportLimiter   *ReportRateLimiter
	upgrader        websocket.Upgrader
}

func NewHandler(
	incidentService service.IncidentService,
	fleetService service.FleetService,
	hub *realtime.Hub,
	logger *logrus.Logger,
	cfg *config.Config,
) *Handler {
	return &Handler{
		incidentService: incidentService,
		fleetService:    fleetService,
		hub:             hub,
		logger:          logger,
		validate:        validator.New(),
		cfg:             cfg,
		reportLimiter:   NewReportRateLimiter(cfg.ReportRatePerMinute),
		upgrader:        newUpgrader(cfg.WSAllowedOrigins),
	}
}

func (h *Handler) requestLogger(c *gin.Context, method string) *logrus.Entry {
	actor := actorFrom(c)
	return h.logger.WithFields(logrus.Fields{
		"method":     method,
		"actor_id":   actor.ID,
		"actor_role": actor.Role,
	})
}

// bindJSON разбирает и валидирует тело запроса; при ошибке ответ уже отправлен
func (h *Handler) bindJSON(c *gin.Context, log *logrus.Entry, input any) bool {
	if err := c.ShouldBindJSON(input); err != nil {
		log.WithError(err).Warn("Failed to bind JSON")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return false
	}

	if err := h.validate.Struct(input); err != nil {
		log.WithError(err).Warn("Validation failed")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return false
	}
	return true
}

func parseIncidentID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid incident ID"})
		return uuid.Nil, false
	}
	return id, true
}

// @Summary Report a new incident
// @Description Create a new incident. The reporter is taken from the token, status is always pending.
// @Tags Incidents
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param incident body CreateIncidentRequest true "Incident creation request"
// @Success 201 {object} IncidentResponse
// @Failure 400 {object} map[string]string "Invalid request body or validation error"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 429 {object} map[string]string "Too many reports"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /incidents [post]
func (h *Handler) createIncident(c *gin.Context) {
	var input CreateIncidentRequest
	log := h.requestLogger(c, "createIncident")

	if !h.bindJSON(c, log, &input) {
		return
	}

	model := CreateDTOToIncidentModel(input)
	if err := h.incidentService.CreateIncident(c.Request.Context(), actorFrom(c), model); err != nil {
		respondError(c, log, err)
		return
	}
	c.JSON(http.StatusCreated, ModelToIncidentResponse(model))
}

// @Summary Get a list of incidents
// @Description Get a paginated list of incidents, newest first. Users only see their own incidents.
// @Tags Incidents
// @Produce json
// @Security BearerAuth
// @Param status query string false "Filter by status"
// @Param kind query string false "Filter by kind"
// @Param type query string false "Filter by alert type"
// @Param user_id query string false "Filter by reporter"
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Number of items per page" default(20)
// @Success 200 {array} IncidentResponse
// @Failure 400 {object} map[string]string "Invalid filter"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /incidents [get]
func (h *Handler) listIncidents(c *gin.Context) {
	log := h.requestLogger(c, "listIncidents")
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", "20"))

	filter := models.IncidentFilter{
		Status:    models.IncidentStatus(c.Query("status")),
		Kind:      models.IncidentKind(c.Query("kind")),
		AlertType: c.Query("type"),
		Page:      page,
		PageSize:  pageSize,
	}
	if filter.Status != "" && !filter.Status.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status filter"})
		return
	}
	if filter.Kind != "" && !filter.Kind.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid kind filter"})
		return
	}
	if raw := c.Query("user_id"); raw != "" {
		reporterID, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user_id filter"})
			return
		}
		filter.ReporterID = &reporterID
	}

	incidents, err := h.incidentService.ListIncidents(c.Request.Context(), actorFrom(c), filter)
	if err != nil {
		respondError(c, log, err)
		return
	}

	c.JSON(http.StatusOK, ModelsToIncidentResponses(incidents))
}

// @Summary Get incident by ID
// @Description Get a single incident by its ID. Users may only read their own incidents.
// @Tags Incidents
// @Produce json
// @Security BearerAuth
// @Param id path string true "Incident ID"
// @Success 200 {object} IncidentResponse
// @Failure 400 {object} map[string]string "Invalid incident ID"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Access denied"
// @Failure 404 {object} map[string]string "Incident not found"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /incidents/{id} [get]
func (h *Handler) getIncident(c *gin.Context) {
	id, ok := parseIncidentID(c)
	if !ok {
		return
	}
	log := h.requestLogger(c, "getIncident").WithField("id", id)

	incident, err := h.incidentService.GetIncident(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		respondError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, ModelToIncidentResponse(incident))
}

// @Summary Update incident details
// @Description Replace descriptive fields of an incident. Status and assignment have their own endpoints.
// @Tags Incidents
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Incident ID"
// @Param incident body UpdateIncidentRequest true "Incident update request"
// @Success 200 {object} IncidentResponse
// @Failure 400 {object} map[string]string "Invalid incident ID or request body"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Access denied"
// @Failure 404 {object} map[string]string "Incident not found"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /incidents/{id} [put]
func (h *Handler) updateIncident(c *gin.Context) {
	id, ok := parseIncidentID(c)
	if !ok {
		return
	}
	log := h.requestLogger(c, "updateIncident").WithField("id", id)

	var input UpdateIncidentRequest
	if !h.bindJSON(c, log, &input) {
		return
	}

	model := UpdateDTOToIncidentModel(input)
	model.ID = id

	updated, err := h.incidentService.UpdateIncident(c.Request.Context(), actorFrom(c), model)
	if err != nil {
		respondError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, ModelToIncidentResponse(updated))
}

// @Summary Change incident status
// @Description Move an incident through its lifecycle. The assigned vehicle status follows in the same transaction.
// @Tags Incidents
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Incident ID"
// @Param status body UpdateStatusRequest true "New status"
// @Success 200 {object} IncidentResponse
// @Failure 400 {object} map[string]string "Unknown status"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Access denied"
// @Failure 404 {object} map[string]string "Incident not found"
// @Failure 409 {object} map[string]string "Transition not allowed"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /incidents/{id}/status [patch]
func (h *Handler) updateStatus(c *gin.Context) {
	id, ok := parseIncidentID(c)
	if !ok {
		return
	}
	log := h.requestLogger(c, "updateStatus").WithField("id", id)

	var input UpdateStatusRequest
	if !h.bindJSON(c, log, &input) {
		return
	}

	updated, err := h.incidentService.UpdateStatus(c.Request.Context(), actorFrom(c), id, models.IncidentStatus(input.Status))
	if err != nil {
		respondError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, ModelToIncidentResponse(updated))
}

// @Summary Assign vehicle and responder
// @Description Attach a vehicle and responder to an incident. Null clears the assignment and frees the previous vehicle.
// @Tags Incidents
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Incident ID"
// @Param assignment body AssignRequest true "Assignment"
// @Success 200 {object} IncidentResponse
// @Failure 400 {object} map[string]string "Invalid request body"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Access denied"
// @Failure 404 {object} map[string]string "Incident, vehicle or responder not found"
// @Failure 409 {object} map[string]string "Vehicle busy or incident closed"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /incidents/{id}/assign [patch]
func (h *Handler) assignIncident(c *gin.Context) {
	id, ok := parseIncidentID(c)
	if !ok {
		return
	}
	log := h.requestLogger(c, "assignIncident").WithField("id", id)

	var input AssignRequest
	if !h.bindJSON(c, log, &input) {
		return
	}

	updated, err := h.incidentService.Assign(c.Request.Context(), actorFrom(c), id, input.VehicleID, input.ResponderID)
	if err != nil {
		respondError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, ModelToIncidentResponse(updated))
}

// @Summary Delete an incident
// @Description Permanently delete an incident and its history. Admin only.
// @Tags Incidents
// @Security BearerAuth
// @Param id path string true "Incident ID"
// @Success 204 "No Content"
// @Failure 400 {object} map[string]string "Invalid incident ID"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Access denied"
// @Failure 404 {object} map[string]string "Incident not found"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /incidents/{id} [delete]
func (h *Handler) deleteIncident(c *gin.Context) {
	id, ok := parseIncidentID(c)
	if !ok {
		return
	}
	log := h.requestLogger(c, "deleteIncident").WithField("id", id)

	if err := h.incidentService.DeleteIncident(c.Request.Context(), actorFrom(c), id); err != nil {
		respondError(c, log, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// @Summary Get incident history
// @Description Get the timeline of lifecycle changes of an incident, oldest first.
// @Tags Incidents
// @Produce json
// @Security BearerAuth
// @Param id path string true "Incident ID"
// @Success 200 {array} IncidentEventResponse
// @Failure 400 {object} map[string]string "Invalid incident ID"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Access denied"
// @Failure 404 {object} map[string]string "Incident not found"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /incidents/{id}/history [get]
func (h *Handler) getHistory(c *gin.Context) {
	id, ok := parseIncidentID(c)
	if !ok {
		return
	}
	log := h.requestLogger(c, "getHistory").WithField("id", id)

	events, err := h.incidentService.GetHistory(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		respondError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, ModelsToEventResponses(events))
}

// @Summary Find active incidents nearby
// @Description Find pending and responding incidents within a radius of a point, nearest first.
// @Tags Incidents
// @Produce json
// @Security BearerAuth
// @Param lat query number true "Latitude"
// @Param lon query number true "Longitude"
// @Param radius query number false "Radius in meters"
// @Success 200 {array} IncidentResponse
// @Failure 400 {object} map[string]string "Invalid coordinates"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Access denied"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /incidents/nearby [get]
func (h *Handler) listNearby(c *gin.Context) {
	log := h.requestLogger(c, "listNearby")

	lat, errLat := strconv.ParseFloat(c.Query("lat"), 64)
	lon, errLon := strconv.ParseFloat(c.Query("lon"), 64)
	if errLat != nil || errLon != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "lat and lon are required numbers"})
		return
	}
	radius, _ := strconv.ParseFloat(c.DefaultQuery("radius", "0"), 64)

	incidents, err := h.incidentService.ListNearby(c.Request.Context(), actorFrom(c), lat, lon, radius)
	if err != nil {
		respondError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, ModelsToIncidentResponses(incidents))
}

// @Summary Get incident statistics
// @Description Get the number of incidents in each status.
// @Tags Incidents
// @Produce json
// @Security BearerAuth
// @Success 200 {object} StatsResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Access denied"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /incidents/stats [get]
func (h *Handler) getStats(c *gin.Context) {
	log := h.requestLogger(c, "getStats")

	stats, err := h.incidentService.GetStats(c.Request.Context(), actorFrom(c))
	if err != nil {
		respondError(c, log, err)
		return
	}

	c.JSON(http.StatusOK, StatsResponse{
		Pending:    stats.Pending,
		Responding: stats.Responding,
		Resolved:   stats.Resolved,
		Cancelled:  stats.Cancelled,
	})
}

// @Summary Get application health status
// @Description Get health status of the application
// @Tags System
// @Accept json
// @Produce json
// @Success 200 {object} map[string]any "Status OK"
// @Router /system/health [get]
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "ws_clients": h.hub.ClientCount()})
}
