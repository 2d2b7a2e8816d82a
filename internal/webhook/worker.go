package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shenikar/emergency_dispatch_system/internal/config"
	"github.com/sirupsen/logrus"
)

const signatureHeader = "X-Webhook-Signature"

// Worker забирает тревоги из очереди и доставляет их на WEBHOOK_URL
type Worker struct {
	redisClient *redis.Client
	logger      *logrus.Logger
	cfg         *config.Config
	httpClient  *http.Client
}

// NewWorker создает новый Worker
func NewWorker(redisClient *redis.Client, logger *logrus.Logger, cfg *config.Config) *Worker {
	return &Worker{
		redisClient: redisClient,
		logger:      logger,
		cfg:         cfg,
		httpClient: &http.Client{
			Timeout: cfg.WebhookTimeout,
		},
	}
}

// Run обрабатывает очередь до отмены контекста
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("Starting webhook worker...")
	for {
		// BRPOP с таймаутом, чтобы регулярно проверять контекст
		result, err := w.redisClient.BRPop(ctx, time.Second, alertQueueKey).Result()
		if ctx.Err() != nil {
			w.logger.Info("Stopping webhook worker.")
			return nil
		}
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			w.logger.WithError(err).Error("Failed to pop dispatch alert from Redis")
			if !sleep(ctx, w.cfg.WebhookBaseDelay) {
				return nil
			}
			continue
		}

		// result[0] - ключ, result[1] - значение
		w.process(ctx, result[1])
	}
}

func (w *Worker) process(ctx context.Context, payload string) {
	var alert Alert
	if err := json.Unmarshal([]byte(payload), &alert); err != nil {
		w.logger.WithError(err).Error("Failed to unmarshal dispatch alert from Redis")
		return
	}

	log := w.logger.WithFields(logrus.Fields{
		"incident_id": alert.IncidentID,
		"kind":        alert.Kind,
	})
	if w.cfg.WebhookURL == "" {
		log.Warn("Webhook URL is not configured. Skipping alert delivery.")
		return
	}

	if err := w.deliver(ctx, log, []byte(payload)); err != nil {
		log.WithError(err).Error("Failed to deliver dispatch alert")
		return
	}
	log.Info("Dispatch alert delivered successfully.")
}

// deliver отправляет тревогу с экспоненциальной задержкой между попытками
func (w *Worker) deliver(ctx context.Context, log *logrus.Entry, payload []byte) error {
	maxRetries := max(w.cfg.WebhookMaxRetries, 1)
	delay := w.cfg.WebhookBaseDelay

	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		lastErr = w.send(ctx, payload)
		if lastErr == nil {
			return nil
		}
		if attempt == maxRetries {
			break
		}

		log.WithError(lastErr).Warnf("Alert delivery failed. Retrying in %v. Retries left: %d", delay, maxRetries-attempt)
		if !sleep(ctx, delay) {
			return ctx.Err()
		}
		delay *= 2
	}
	return fmt.Errorf("after %d attempts: %w", maxRetries, lastErr)
}

func (w *Worker) send(ctx context.Context, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.cfg.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	// Подпись HMAC, если WEBHOOK_SECRET задан
	if w.cfg.WebhookSecret != "" {
		req.Header.Set(signatureHeader, sign(payload, w.cfg.WebhookSecret))
	}

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status code %d", resp.StatusCode)
	}
	return nil
}

// sign вычисляет HMAC-SHA256 подпись тела запроса
func sign(payload []byte, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}

// sleep ждет d или отмены контекста; false означает отмену
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
