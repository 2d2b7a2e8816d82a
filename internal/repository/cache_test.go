package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shenikar/emergency_dispatch_system/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*IncidentCache, *miniredis.Miniredis) {
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewIncidentCache(client, time.Minute), server
}

func incidentAt(id uuid.UUID, status models.IncidentStatus, updatedAt time.Time) *models.Incident {
	return &models.Incident{ID: id, Status: status, Title: "Chest pain", UpdatedAt: updatedAt}
}

func TestIncidentCache_SetAndGet(t *testing.T) {
	// Подготовка
	cache, server := newTestCache(t)
	ctx := context.Background()
	id := uuid.New()
	incident := incidentAt(id, models.StatusPending, time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC))

	// Действие
	missed, err := cache.GetIncidentFromCache(ctx, id)
	require.NoError(t, err)
	require.NoError(t, cache.SetIncidentCache(ctx, incident))
	cached, err := cache.GetIncidentFromCache(ctx, id)

	// Проверки
	assert.Nil(t, missed)
	require.NoError(t, err)
	require.NotNil(t, cached)
	assert.Equal(t, models.StatusPending, cached.Status)
	assert.True(t, incident.UpdatedAt.Equal(cached.UpdatedAt))
	assert.Equal(t, time.Minute, server.TTL(incidentKey(id)))
}

func TestIncidentCache_StaleSetAfterInvalidateIsRejected(t *testing.T) {
	// Подготовка
	cache, _ := newTestCache(t)
	ctx := context.Background()
	id := uuid.New()
	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	older := incidentAt(id, models.StatusResponding, base)
	newer := incidentAt(id, models.StatusResolved, base.Add(time.Microsecond))

	// Действие: читатель загрузил older, затем зафиксировано изменение до newer
	require.NoError(t, cache.InvalidateIncidentCache(ctx, newer))
	require.NoError(t, cache.SetIncidentCache(ctx, older))

	// Проверки
	cached, err := cache.GetIncidentFromCache(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, cached, "stale snapshot must not be cached")

	require.NoError(t, cache.SetIncidentCache(ctx, newer))
	cached, err = cache.GetIncidentFromCache(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, cached)
	assert.Equal(t, models.StatusResolved, cached.Status)
}

func TestIncidentCache_InvalidateDropsCachedSnapshot(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()
	id := uuid.New()
	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, cache.SetIncidentCache(ctx, incidentAt(id, models.StatusPending, base)))
	require.NoError(t, cache.InvalidateIncidentCache(ctx, incidentAt(id, models.StatusResponding, base.Add(time.Second))))

	cached, err := cache.GetIncidentFromCache(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, cached)
}

func TestIncidentCache_OlderInvalidateKeepsNewerSnapshot(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()
	id := uuid.New()
	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, cache.SetIncidentCache(ctx, incidentAt(id, models.StatusResolved, base.Add(time.Second))))
	require.NoError(t, cache.InvalidateIncidentCache(ctx, incidentAt(id, models.StatusResponding, base)))

	cached, err := cache.GetIncidentFromCache(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, cached)
	assert.Equal(t, models.StatusResolved, cached.Status)
}

func TestIncidentCache_DeletedIncidentIsNotCachedAgain(t *testing.T) {
	// Подготовка
	cache, server := newTestCache(t)
	ctx := context.Background()
	id := uuid.New()
	incident := incidentAt(id, models.StatusPending, time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC))
	require.NoError(t, cache.SetIncidentCache(ctx, incident))

	// Действие
	require.NoError(t, cache.MarkIncidentDeleted(ctx, id))
	require.NoError(t, cache.SetIncidentCache(ctx, incident))

	// Проверки
	cached, err := cache.GetIncidentFromCache(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, cached)
	assert.Equal(t, time.Minute, server.TTL(incidentKey(id)), "tombstone expires with the cache TTL")
}
