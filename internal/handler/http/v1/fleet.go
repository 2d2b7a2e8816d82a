package v1

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shenikar/emergency_dispatch_system/internal/models"
)

// @Summary List vehicles
// @Tags Fleet
// @Produce json
// @Security BearerAuth
// @Param status query string false "Filter by vehicle status"
// @Success 200 {array} VehicleResponse
// @Failure 400 {object} map[string]string "Unknown status"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Access denied"
// @Router /vehicles [get]
func (h *Handler) listVehicles(c *gin.Context) {
	log := h.requestLogger(c, "listVehicles")

	vehicles, err := h.fleetService.ListVehicles(c.Request.Context(), actorFrom(c), models.VehicleStatus(c.Query("status")))
	if err != nil {
		respondError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, ModelsToVehicleResponses(vehicles))
}

// @Summary Get vehicle by ID
// @Tags Fleet
// @Produce json
// @Security BearerAuth
// @Param id path int true "Vehicle ID"
// @Success 200 {object} VehicleResponse
// @Failure 400 {object} map[string]string "Invalid vehicle ID"
// @Failure 404 {object} map[string]string "Vehicle not found"
// @Router /vehicles/{id} [get]
func (h *Handler) getVehicle(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid vehicle ID"})
		return
	}
	log := h.requestLogger(c, "getVehicle").WithField("id", id)

	vehicle, err := h.fleetService.GetVehicle(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		respondError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, ModelToVehicleResponse(vehicle))
}

// @Summary Register a vehicle
// @Tags Fleet
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param vehicle body CreateVehicleRequest true "Vehicle"
// @Success 201 {object} VehicleResponse
// @Failure 400 {object} map[string]string "Validation error"
// @Failure 403 {object} map[string]string "Access denied"
// @Failure 409 {object} map[string]string "Call sign already used"
// @Router /vehicles [post]
func (h *Handler) createVehicle(c *gin.Context) {
	var input CreateVehicleRequest
	log := h.requestLogger(c, "createVehicle")

	if !h.bindJSON(c, log, &input) {
		return
	}

	vehicle := &models.Vehicle{
		CallSign:    input.CallSign,
		VehicleType: input.VehicleType,
		Status:      models.VehicleStatus(input.Status),
	}
	if err := h.fleetService.CreateVehicle(c.Request.Context(), actorFrom(c), vehicle); err != nil {
		respondError(c, log, err)
		return
	}
	c.JSON(http.StatusCreated, ModelToVehicleResponse(vehicle))
}

// @Summary Correct vehicle status
// @Description Manually set a vehicle status, for example after an incident holding it was deleted.
// @Tags Fleet
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Vehicle ID"
// @Param status body SetVehicleStatusRequest true "New status"
// @Success 200 {object} VehicleResponse
// @Failure 400 {object} map[string]string "Invalid request"
// @Failure 403 {object} map[string]string "Access denied"
// @Failure 404 {object} map[string]string "Vehicle not found"
// @Router /vehicles/{id}/status [patch]
func (h *Handler) setVehicleStatus(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid vehicle ID"})
		return
	}
	log := h.requestLogger(c, "setVehicleStatus").WithField("id", id)

	var input SetVehicleStatusRequest
	if !h.bindJSON(c, log, &input) {
		return
	}

	vehicle, err := h.fleetService.SetVehicleStatus(c.Request.Context(), actorFrom(c), id, models.VehicleStatus(input.Status))
	if err != nil {
		respondError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, ModelToVehicleResponse(vehicle))
}

// @Summary List responders
// @Tags Fleet
// @Produce json
// @Security BearerAuth
// @Success 200 {array} ResponderResponse
// @Failure 403 {object} map[string]string "Access denied"
// @Router /responders [get]
func (h *Handler) listResponders(c *gin.Context) {
	log := h.requestLogger(c, "listResponders")

	responders, err := h.fleetService.ListResponders(c.Request.Context(), actorFrom(c))
	if err != nil {
		respondError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, ModelsToResponderResponses(responders))
}

// @Summary Register a responder
// @Tags Fleet
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param responder body CreateResponderRequest true "Responder"
// @Success 201 {object} ResponderResponse
// @Failure 400 {object} map[string]string "Validation error"
// @Failure 403 {object} map[string]string "Access denied"
// @Router /responders [post]
func (h *Handler) createResponder(c *gin.Context) {
	var input CreateResponderRequest
	log := h.requestLogger(c, "createResponder")

	if !h.bindJSON(c, log, &input) {
		return
	}

	responder := &models.Responder{
		Name:   input.Name,
		Phone:  input.Phone,
		Status: models.ResponderStatus(input.Status),
	}
	if err := h.fleetService.CreateResponder(c.Request.Context(), actorFrom(c), responder); err != nil {
		respondError(c, log, err)
		return
	}
	c.JSON(http.StatusCreated, ModelToResponderResponse(responder))
}
