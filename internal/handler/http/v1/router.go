package v1

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes регистрирует все маршруты API v1
func (h *Handler) RegisterRoutes(api *gin.RouterGroup) {
	// Маршрут Health-check
	api.GET("/system/health", h.healthCheck)

	authorized := api.Group("", JWTAuthMiddleware(h.cfg, h.logger))

	// Маршруты жизненного цикла инцидентов
	incidents := authorized.Group("/incidents")
	{
		incidents.POST("", h.reportLimiter.Middleware(), h.createIncident)
		incidents.GET("", h.listIncidents)
		incidents.GET("/nearby", h.listNearby)
		incidents.GET("/stats", h.getStats)
		incidents.GET("/:id", h.getIncident)
		incidents.PUT("/:id", h.updateIncident)
		incidents.DELETE("/:id", h.deleteIncident)
		incidents.PATCH("/:id/status", h.updateStatus)
		incidents.PATCH("/:id/assign", h.assignIncident)
		incidents.GET("/:id/history", h.getHistory)
	}

	// Автопарк и спасатели
	vehicles := authorized.Group("/vehicles")
	{
		vehicles.GET("", h.listVehicles)
		vehicles.POST("", h.createVehicle)
		vehicles.GET("/:id", h.getVehicle)
		vehicles.PATCH("/:id/status", h.setVehicleStatus)
	}
	authorized.GET("/responders", h.listResponders)
	authorized.POST("/responders", h.createResponder)

	// Поток событий реального времени
	api.GET("/ws", WSAuthMiddleware(h.cfg, h.logger), h.serveWS)
}
