package v1

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shenikar/emergency_dispatch_system/internal/models"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// RequestLogger пишет одну запись logrus на запрос вместо стандартного логгера gin
func RequestLogger(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := log.WithFields(logrus.Fields{
			"method":     c.Request.Method,
			"path":       c.FullPath(),
			"status":     c.Writer.Status(),
			"latency_ms": time.Since(start).Milliseconds(),
			"client_ip":  c.ClientIP(),
		})
		if actor := actorFrom(c); actor.ID != uuid.Nil {
			entry = entry.WithField("actor_id", actor.ID)
		}

		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			entry.Error("Request failed")
		case c.Writer.Status() >= http.StatusBadRequest:
			entry.Warn("Request rejected")
		default:
			entry.Info("Request handled")
		}
	}
}

// ReportRateLimiter ограничивает частоту новых сообщений об инцидентах от одного пользователя
type ReportRateLimiter struct {
	mu        sync.Mutex
	limiters  map[uuid.UUID]*userLimiter
	limit     rate.Limit
	burst     int
	idleTTL   time.Duration
	lastSweep time.Time
	now       func() time.Time
}

type userLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewReportRateLimiter создает лимитер на perMinute сообщений в минуту; 0 отключает ограничение
func NewReportRateLimiter(perMinute int) *ReportRateLimiter {
	limit := rate.Inf
	burst := 1
	if perMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(perMinute))
		burst = perMinute
	}
	return &ReportRateLimiter{
		limiters: make(map[uuid.UUID]*userLimiter),
		limit:    limit,
		burst:    burst,
		// За минуту корзина пополняется полностью, после этого запись не отличается от новой
		idleTTL: time.Minute,
		now:     time.Now,
	}
}

func (l *ReportRateLimiter) Allow(userID uuid.UUID) bool {
	if l.limit == rate.Inf {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) >= l.idleTTL {
		l.evictIdle(now)
	}

	entry, ok := l.limiters[userID]
	if !ok {
		entry = &userLimiter{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[userID] = entry
	}
	entry.lastSeen = now
	return entry.limiter.AllowN(now, 1)
}

// evictIdle удаляет лимитеры пользователей, не отправлявших сообщений дольше idleTTL
func (l *ReportRateLimiter) evictIdle(now time.Time) {
	for id, entry := range l.limiters {
		if now.Sub(entry.lastSeen) >= l.idleTTL {
			delete(l.limiters, id)
		}
	}
	l.lastSweep = now
}

func (l *ReportRateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.Allow(actorFrom(c).ID) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many reports, try again later"})
			return
		}
		c.Next()
	}
}

// respondError переводит доменную ошибку в HTTP-статус.
// Текст внутренних ошибок клиенту не отдается.
func respondError(c *gin.Context, log *logrus.Entry, err error) {
	var status int
	switch {
	case errors.Is(err, models.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, models.ErrAccessDenied):
		status = http.StatusForbidden
	case errors.Is(err, models.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, models.ErrInvalidTransition), errors.Is(err, models.ErrConflict):
		status = http.StatusConflict
	default:
		log.WithError(err).Error("Request failed in service")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	log.WithError(err).Warn("Request rejected by service")
	c.JSON(status, gin.H{"error": err.Error()})
}
