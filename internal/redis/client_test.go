package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*Client, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client, err := NewClient(&Config{Address: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	return client, mr
}

func TestNewClient(t *testing.T) {
	t.Run("nil config", func(t *testing.T) {
		_, err := NewClient(nil)
		assert.Error(t, err)
	})

	t.Run("unreachable server", func(t *testing.T) {
		mr, err := miniredis.Run()
		require.NoError(t, err)
		addr := mr.Addr()
		mr.Close()

		_, err = NewClient(&Config{Address: addr})
		assert.Error(t, err)
	})

	t.Run("applies defaults", func(t *testing.T) {
		client, _ := setupTestRedis(t)
		assert.Equal(t, 10, client.config.PoolSize)
		assert.NoError(t, client.Health())
	})
}

func TestClient_KeyValue(t *testing.T) {
	client, mr := setupTestRedis(t)
	ctx := context.Background()

	_, err := client.Get(ctx, "nic_token")
	assert.ErrorIs(t, err, Nil)

	require.NoError(t, client.Set(ctx, "nic_token", `{"access_token":"a"}`, time.Hour))
	value, err := client.Get(ctx, "nic_token")
	require.NoError(t, err)
	assert.Equal(t, `{"access_token":"a"}`, value)
	assert.Equal(t, time.Hour, mr.TTL("nic_token"))

	require.NoError(t, client.Delete(ctx, "nic_token"))
	assert.False(t, mr.Exists("nic_token"))
}

func TestClient_CheckRateLimit(t *testing.T) {
	client, _ := setupTestRedis(t)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		allowed, count, err := client.CheckRateLimit(ctx, "rate:api", 2, time.Hour)
		require.NoError(t, err)
		assert.Equal(t, i, count)
		assert.Equal(t, i <= 2, allowed)
	}
}
