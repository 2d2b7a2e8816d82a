package v1

import (
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// newUpgrader без списка источников оставляет проверку gorilla по умолчанию (тот же хост)
func newUpgrader(allowedOrigins []string) websocket.Upgrader {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}
	if len(allowedOrigins) > 0 {
		upgrader.CheckOrigin = func(r *http.Request) bool {
			return slices.Contains(allowedOrigins, r.Header.Get("Origin"))
		}
	}
	return upgrader
}

// @Summary Subscribe to incident events
// @Description Upgrade to a websocket that streams incident lifecycle events visible to the caller.
// @Description The token may be passed in the token query parameter.
// @Tags Realtime
// @Security BearerAuth
// @Param token query string false "Bearer token"
// @Success 101 "Switching Protocols"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Router /ws [get]
func (h *Handler) serveWS(c *gin.Context) {
	log := h.requestLogger(c, "serveWS")

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// upgrader уже ответил клиенту
		log.WithError(err).Warn("WebSocket upgrade failed")
		return
	}

	h.hub.Serve(conn, actorFrom(c))
}
