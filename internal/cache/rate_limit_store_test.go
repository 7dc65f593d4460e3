package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GTDGit/muni_commerce/internal/config"
	"github.com/GTDGit/muni_commerce/internal/models"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *RedisClient) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := NewRedisClient(&config.RedisConfig{Host: mr.Host(), Port: mr.Port()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestNewRedisClientUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	host, port := mr.Host(), mr.Port()
	mr.Close()

	_, err := NewRedisClient(&config.RedisConfig{Host: host, Port: port})
	assert.Error(t, err)
}

func TestRateLimitStoreApply(t *testing.T) {
	mr, client := newTestRedis(t)
	store := NewRateLimitStore(client)
	ctx := context.Background()
	start := time.Date(2026, 2, 3, 10, 0, 0, 0, time.UTC)

	var seen *models.RateLimitRecord
	err := store.Apply(ctx, "1.2.3.4", "admin_login", time.Minute, func(cur *models.RateLimitRecord) *models.RateLimitRecord {
		seen = cur
		return &models.RateLimitRecord{Count: 1, WindowStart: start}
	})
	require.NoError(t, err)
	assert.Nil(t, seen)
	assert.Equal(t, 2*time.Minute, mr.TTL("ratelimit:admin_login:1.2.3.4"))

	err = store.Apply(ctx, "1.2.3.4", "admin_login", time.Minute, func(cur *models.RateLimitRecord) *models.RateLimitRecord {
		seen = cur
		next := *cur
		next.Count++
		return &next
	})
	require.NoError(t, err)
	require.NotNil(t, seen)
	assert.Equal(t, 1, seen.Count)
	assert.Equal(t, "admin_login", seen.Endpoint)

	rec, err := store.Get(ctx, "1.2.3.4", "admin_login")
	require.NoError(t, err)
	assert.Equal(t, 2, rec.Count)
	assert.True(t, rec.WindowStart.Equal(start))

	// nil leaves the hash as is
	require.NoError(t, store.Apply(ctx, "1.2.3.4", "admin_login", time.Minute, func(*models.RateLimitRecord) *models.RateLimitRecord { return nil }))
	assert.Equal(t, "2", mr.HGet("ratelimit:admin_login:1.2.3.4", "count"))

	other, err := store.Get(ctx, "1.2.3.4", "recrutement")
	require.NoError(t, err)
	assert.Nil(t, other)
}

func TestRateLimitStoreExpiry(t *testing.T) {
	mr, client := newTestRedis(t)
	store := NewRateLimitStore(client)
	ctx := context.Background()

	require.NoError(t, store.Apply(ctx, "5.6.7.8", "investissement", time.Minute, func(*models.RateLimitRecord) *models.RateLimitRecord {
		return &models.RateLimitRecord{Count: 5, WindowStart: time.Now()}
	}))

	mr.FastForward(3 * time.Minute)

	rec, err := store.Get(ctx, "5.6.7.8", "investissement")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestRateLimitStoreCorruptHash(t *testing.T) {
	mr, client := newTestRedis(t)
	store := NewRateLimitStore(client)

	mr.HSet("ratelimit:admin_login:9.9.9.9", "count", "many")
	mr.HSet("ratelimit:admin_login:9.9.9.9", "window_start", "0")

	_, err := store.Get(context.Background(), "9.9.9.9", "admin_login")
	assert.Error(t, err)
}

func TestRateLimitStoreTTLFollowsWindow(t *testing.T) {
	mr, client := newTestRedis(t)
	store := NewRateLimitStore(client)
	ctx := context.Background()

	require.NoError(t, store.Apply(ctx, "1.2.3.4", "recrutement", time.Hour, func(*models.RateLimitRecord) *models.RateLimitRecord {
		return &models.RateLimitRecord{Count: 1, WindowStart: time.Now()}
	}))
	assert.Equal(t, 2*time.Hour, mr.TTL("ratelimit:recrutement:1.2.3.4"))

	mr.FastForward(90 * time.Minute)

	rec, err := store.Get(ctx, "1.2.3.4", "recrutement")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, 1, rec.Count)
}
