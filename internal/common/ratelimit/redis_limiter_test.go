package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nic-dns/internal/common/errors"
	"nic-dns/internal/redis"
)

func newRedisCounter(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := redis.NewClient(&redis.Config{Address: mr.Addr(), PoolSize: 2})
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client
}

func TestRedisLimiter_SharedBudget(t *testing.T) {
	client := newRedisCounter(t)
	config := Config{Enabled: true, RequestsPerSecond: 0.001, BurstSize: 2}

	first, err := NewRedisLimiter(client, "app", config)
	require.NoError(t, err)
	second, err := NewRedisLimiter(client, "app", config)
	require.NoError(t, err)

	assert.True(t, first.TryAcquire())
	assert.True(t, second.TryAcquire())
	assert.False(t, first.TryAcquire())

	other, err := NewRedisLimiter(client, "other-app", config)
	require.NoError(t, err)
	assert.True(t, other.TryAcquire())

	stats := first.Stats()
	assert.Equal(t, true, stats["distributed"])
	assert.Equal(t, 2, stats["limit"])
}

func TestRedisLimiter_WaitHonoursDeadline(t *testing.T) {
	client := newRedisCounter(t)
	limiter, err := NewRedisLimiter(client, "app", Config{Enabled: true, RequestsPerSecond: 0.001, BurstSize: 1})
	require.NoError(t, err)

	require.NoError(t, limiter.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err = limiter.Wait(ctx)
	assert.True(t, errors.IsType(err, errors.ErrTypeRateLimit))
}

func TestNewRedisLimiter(t *testing.T) {
	_, err := NewRedisLimiter(nil, "app", Config{Enabled: true, RequestsPerSecond: 1, BurstSize: 1})
	assert.True(t, errors.IsType(err, errors.ErrTypeConfig))

	_, err = NewRedisLimiter(nil, "app", Config{Enabled: true})
	assert.True(t, errors.IsType(err, errors.ErrTypeConfig))

	limiter, err := NewRedisLimiter(nil, "app", Config{Enabled: false})
	require.NoError(t, err)
	assert.True(t, limiter.TryAcquire())
}
