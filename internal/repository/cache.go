package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shenikar/emergency_dispatch_system/internal/models"
)

// Запись кеша - хэш incident:<id> с полями:
//   - version: updated_at закэшированного или последнего зафиксированного состояния (микросекунды)
//   - data: JSON инцидента; отсутствует после инвалидации
//   - deleted: признак удаления, блокирует любую запись до истечения TTL
//
// Запись снимка разрешена только если он не старше version, поэтому читатель,
// загрузивший строку до конкурентного изменения, не вернет в кеш устаревшее состояние.
var (
	setIfNotOlderScript = redis.NewScript(`
local fence = redis.call('HMGET', KEYS[1], 'deleted', 'version')
if fence[1] then
	return 0
end
if fence[2] and tonumber(fence[2]) > tonumber(ARGV[1]) then
	return 0
end
redis.call('HSET', KEYS[1], 'version', ARGV[1], 'data', ARGV[2])
redis.call('PEXPIRE', KEYS[1], ARGV[3])
return 1
`)

	invalidateScript = redis.NewScript(`
local current = redis.call('HGET', KEYS[1], 'version')
if current and tonumber(current) > tonumber(ARGV[1]) then
	return 0
end
redis.call('HDEL', KEYS[1], 'data')
redis.call('HSET', KEYS[1], 'version', ARGV[1])
redis.call('PEXPIRE', KEYS[1], ARGV[2])
return 1
`)

	markDeletedScript = redis.NewScript(`
redis.call('HDEL', KEYS[1], 'data')
redis.call('HSET', KEYS[1], 'deleted', '1')
redis.call('PEXPIRE', KEYS[1], ARGV[1])
return 1
`)
)

// IncidentCache хранит отдельные инциденты в Redis под ключом incident:<id>
type IncidentCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewIncidentCache(client *redis.Client, ttl time.Duration) *IncidentCache {
	return &IncidentCache{client: client, ttl: ttl}
}

func incidentKey(id uuid.UUID) string {
	return fmt.Sprintf("incident:%s", id.String())
}

func cacheVersion(incident *models.Incident) int64 {
	return incident.UpdatedAt.UnixMicro()
}

// GetIncidentFromCache пытается получить инцидент из Redis; промах возвращает nil без ошибки
func (c *IncidentCache) GetIncidentFromCache(ctx context.Context, id uuid.UUID) (*models.Incident, error) {
	val, err := c.client.HGet(ctx, incidentKey(id), "data").Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get incident from cache: %w", err)
	}

	incident := &models.Incident{}
	if err := json.Unmarshal(val, incident); err != nil {
		return nil, fmt.Errorf("failed to unmarshal incident from cache: %w", err)
	}
	return incident, nil
}

// SetIncidentCache сохраняет снимок инцидента, если в кеше не отмечена более новая версия.
// Отклоненная запись ошибкой не считается.
func (c *IncidentCache) SetIncidentCache(ctx context.Context, incident *models.Incident) error {
	val, err := json.Marshal(incident)
	if err != nil {
		return fmt.Errorf("failed to marshal incident for cache: %w", err)
	}
	keys := []string{incidentKey(incident.ID)}
	if err := setIfNotOlderScript.Run(ctx, c.client, keys, cacheVersion(incident), val, c.ttl.Milliseconds()).Err(); err != nil {
		return fmt.Errorf("failed to set incident in cache: %w", err)
	}
	return nil
}

// InvalidateIncidentCache убирает закэшированный снимок и запоминает версию зафиксированного изменения
func (c *IncidentCache) InvalidateIncidentCache(ctx context.Context, incident *models.Incident) error {
	keys := []string{incidentKey(incident.ID)}
	if err := invalidateScript.Run(ctx, c.client, keys, cacheVersion(incident), c.ttl.Milliseconds()).Err(); err != nil {
		return fmt.Errorf("failed to invalidate incident cache: %w", err)
	}
	return nil
}

// MarkIncidentDeleted оставляет метку удаления, чтобы запоздавший читатель не вернул инцидент в кеш
func (c *IncidentCache) MarkIncidentDeleted(ctx context.Context, id uuid.UUID) error {
	if err := markDeletedScript.Run(ctx, c.client, []string{incidentKey(id)}, c.ttl.Milliseconds()).Err(); err != nil {
		return fmt.Errorf("failed to mark incident deleted in cache: %w", err)
	}
	return nil
}
