package postgres

import (
	"context"
	"os"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Validate(t *testing.T) {
	c := &Config{Host: "db", Database: "nic", Username: "admin"}
	require.NoError(t, c.Validate())
	assert.Equal(t, 5432, c.Port)
	assert.Equal(t, "prefer", c.SSLMode)

	assert.Error(t, (&Config{Database: "nic", Username: "u"}).Validate())
	assert.Error(t, (&Config{Host: "db", Username: "u"}).Validate())
	assert.Error(t, (&Config{Host: "db", Database: "nic"}).Validate())
}

func TestConfig_GetConnectionString(t *testing.T) {
	c := &Config{Host: "db", Port: 5433, Database: "nic", Username: "admin", Password: "p@ss", SSLMode: "disable"}
	assert.Equal(t, "postgres://admin:p%40ss@db:5433/nic?sslmode=disable", c.GetConnectionString())
}

// TestAdapter_Settings runs against a real server when POSTGRES_TEST_HOST is set.
func TestAdapter_Settings(t *testing.T) {
	host := os.Getenv("POSTGRES_TEST_HOST")
	if host == "" {
		t.Skip("POSTGRES_TEST_HOST not set")
	}
	port, _ := strconv.Atoi(os.Getenv("POSTGRES_TEST_PORT"))

	adapter, err := NewAdapter(&Config{
		Host:     host,
		Port:     port,
		Database: os.Getenv("POSTGRES_TEST_DB"),
		Username: os.Getenv("POSTGRES_TEST_USER"),
		Password: os.Getenv("POSTGRES_TEST_PASSWORD"),
		SSLMode:  "disable",
	})
	require.NoError(t, err)
	defer adapter.Close()

	ctx := context.Background()
	key := "nic_token_test"
	defer adapter.DeleteSetting(ctx, key)

	require.NoError(t, adapter.SetSetting(ctx, key, "one"))
	require.NoError(t, adapter.SetSetting(ctx, key, "two"))

	value, err := adapter.GetSetting(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "two", value)

	require.NoError(t, adapter.DeleteSetting(ctx, key))
	value, err = adapter.GetSetting(ctx, key)
	require.NoError(t, err)
	assert.Empty(t, value)
}
