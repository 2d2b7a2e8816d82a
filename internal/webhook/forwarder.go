// Package webhook пересылает автоматические тревоги (SOS, авария) во внешний диспетчерский центр.
// Доставка идет через очередь Redis и отдельный воркер с повторами.
package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shenikar/emergency_dispatch_system/internal/models"
	"github.com/shenikar/emergency_dispatch_system/internal/realtime"
	"github.com/sirupsen/logrus"
)

const (
	alertQueueKey = "dispatch_alerts"
)

// Alert - данные тревоги для внешнего диспетчерского центра
type Alert struct {
	IncidentID uuid.UUID           `json:"incident_id"`
	ReporterID uuid.UUID           `json:"reporter_id"`
	Kind       models.IncidentKind `json:"kind"`
	Latitude   *float64            `json:"latitude,omitempty"`
	Longitude  *float64            `json:"longitude,omitempty"`
	Address    string              `json:"address,omitempty"`
	ReportedAt time.Time           `json:"reported_at"`
}

// AlertQueue - очередь тревог на доставку
type AlertQueue interface {
	Push(ctx context.Context, alert Alert) error
}

// RedisAlertQueue - реализация AlertQueue на списке Redis
type RedisAlertQueue struct {
	redisClient *redis.Client
}

// NewRedisAlertQueue создает новый RedisAlertQueue
func NewRedisAlertQueue(client *redis.Client) *RedisAlertQueue {
	return &RedisAlertQueue{
		redisClient: client,
	}
}

// Push добавляет тревогу в очередь
func (q *RedisAlertQueue) Push(ctx context.Context, alert Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("failed to marshal dispatch alert: %w", err)
	}

	// LPUSH слева, воркер забирает справа через BRPOP
	if err := q.redisClient.LPush(ctx, alertQueueKey, payload).Err(); err != nil {
		return fmt.Errorf("failed to enqueue dispatch alert: %w", err)
	}
	return nil
}

type eventPublisher interface {
	Publish(ctx context.Context, event realtime.Event) error
}

// ForwardingPublisher передает события дальше и ставит в очередь новые автоматические тревоги
type ForwardingPublisher struct {
	next   eventPublisher
	queue  AlertQueue
	logger *logrus.Logger
}

// NewForwardingPublisher оборачивает издателя realtime-событий
func NewForwardingPublisher(next eventPublisher, queue AlertQueue, logger *logrus.Logger) *ForwardingPublisher {
	return &ForwardingPublisher{
		next:   next,
		queue:  queue,
		logger: logger,
	}
}

// Publish не меняет результат основного издателя: ошибка очереди только логируется
func (p *ForwardingPublisher) Publish(ctx context.Context, event realtime.Event) error {
	if alert, ok := alertFromEvent(event); ok {
		if err := p.queue.Push(ctx, alert); err != nil {
			p.logger.WithError(err).WithField("incident_id", event.IncidentID).Error("Failed to enqueue dispatch alert")
		}
	}
	return p.next.Publish(ctx, event)
}

// alertFromEvent отбирает только создание SOS и автоматических аварий
func alertFromEvent(event realtime.Event) (Alert, bool) {
	if event.Name != models.EventIncidentNew || event.Incident == nil {
		return Alert{}, false
	}
	inc := event.Incident
	if inc.Kind != models.KindSOS && inc.Kind != models.KindAutoCrash {
		return Alert{}, false
	}
	return Alert{
		IncidentID: inc.ID,
		ReporterID: inc.ReporterID,
		Kind:       inc.Kind,
		Latitude:   inc.Latitude,
		Longitude:  inc.Longitude,
		Address:    inc.Address,
		ReportedAt: inc.CreatedAt,
	}, true
}
