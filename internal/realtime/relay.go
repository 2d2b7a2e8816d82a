package realtime

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Relay читает события из канала Redis и передает их в хаб этого экземпляра
type Relay struct {
	redisClient *redis.Client
	channel     string
	hub         *Hub
	logger      *logrus.Logger
}

// NewRelay создает новый Relay
func NewRelay(redisClient *redis.Client, channel string, hub *Hub, logger *logrus.Logger) *Relay {
	return &Relay{
		redisClient: redisClient,
		channel:     channel,
		hub:         hub,
		logger:      logger,
	}
}

// Run блокируется до отмены контекста или закрытия подписки
func (r *Relay) Run(ctx context.Context) error {
	log := r.logger.WithField("channel", r.channel)
	log.Info("Starting realtime relay...")

	pubsub := r.redisClient.Subscribe(ctx, r.channel)
	defer pubsub.Close()

	// Дожидаемся подтверждения подписки, иначе первые события могут потеряться
	if _, err := pubsub.Receive(ctx); err != nil {
		return err
	}

	messages := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			log.Info("Stopping realtime relay.")
			return nil
		case msg, ok := <-messages:
			if !ok {
				return errors.New("realtime relay: subscription closed")
			}
			r.handleMessage(msg.Payload)
		}
	}
}

func (r *Relay) handleMessage(payload string) {
	var event Event
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		r.logger.WithError(err).Error("Failed to unmarshal incident event from Redis")
		return
	}

	r.logger.WithFields(logrus.Fields{
		"event":       event.Name,
		"incident_id": event.IncidentID,
	}).Debug("Relaying incident event")
	r.hub.Broadcast(event)
}
