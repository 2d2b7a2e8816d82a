package v1

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shenikar/emergency_dispatch_system/internal/access"
	"github.com/shenikar/emergency_dispatch_system/internal/auth"
	"github.com/shenikar/emergency_dispatch_system/internal/config"
	"github.com/sirupsen/logrus"
)

const ContextActorKey = "actor"

// JWTAuthMiddleware - middleware для аутентификации по bearer-токену в заголовке Authorization
func JWTAuthMiddleware(cfg *config.Config, log *logrus.Logger) gin.HandlerFunc {
	return tokenAuth(cfg, log, false)
}

// WSAuthMiddleware дополнительно принимает токен из ?token=:
// браузерный websocket не умеет ставить заголовки. Подключается только к /ws.
func WSAuthMiddleware(cfg *config.Config, log *logrus.Logger) gin.HandlerFunc {
	return tokenAuth(cfg, log, true)
}

func tokenAuth(cfg *config.Config, log *logrus.Logger, allowQuery bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		var tokenString string
		if authHeader := c.GetHeader("Authorization"); authHeader != "" {
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header format must be Bearer {token}"})
				return
			}
			tokenString = parts[1]
		} else if allowQuery {
			tokenString = c.Query("token")
		}

		if tokenString == "" {
			log.Warn("Token missing from request")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization token required"})
			return
		}

		actor, err := auth.ParseToken(cfg.JWTSecret, tokenString)
		if err != nil {
			log.WithError(err).Warn("Invalid token provided")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}

		c.Set(ContextActorKey, actor)
		c.Next()
	}
}

// actorFrom возвращает актора, установленного JWTAuthMiddleware
func actorFrom(c *gin.Context) access.Actor {
	if v, ok := c.Get(ContextActorKey); ok {
		if actor, ok := v.(access.Actor); ok {
			return actor
		}
	}
	return access.Actor{}
}
