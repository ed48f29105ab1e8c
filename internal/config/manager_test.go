package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewManagerDefaults(t *testing.T) {
	manager, err := NewManager()
	require.NoError(t, err)

	server := manager.GetEffectiveServerConfig()
	assert.Equal(t, 3001, server.Port)
	assert.Equal(t, "0.0.0.0", server.Host)
	assert.True(t, manager.IsMaster())

	presence := manager.GetPresenceConfig()
	assert.Equal(t, 10*time.Minute, presence.TTL)
	assert.Equal(t, 30*time.Second, presence.SweepInterval)
	assert.Equal(t, 8, presence.SubscriberBuffer)

	assert.Equal(t, "./data/presence-hub.db", manager.GetDatabaseConfig().DSN)
	assert.Empty(t, manager.GetRedisDSN())
}

func TestNewManagerEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("IS_SLAVE", "true")
	t.Setenv("PRESENCE_TTL", "5m")
	t.Setenv("PRESENCE_SWEEP_INTERVAL", "10s")
	t.Setenv("PRESENCE_SUBSCRIBER_BUFFER", "32")
	t.Setenv("DATABASE_DSN", ":memory:")
	t.Setenv("REDIS_DSN", "redis://localhost:6379/0")

	manager, err := NewManager()
	require.NoError(t, err)

	assert.Equal(t, 9090, manager.GetEffectiveServerConfig().Port)
	assert.False(t, manager.IsMaster())

	presence := manager.GetPresenceConfig()
	assert.Equal(t, 5*time.Minute, presence.TTL)
	assert.Equal(t, 10*time.Second, presence.SweepInterval)
	assert.Equal(t, 32, presence.SubscriberBuffer)

	assert.Equal(t, ":memory:", manager.GetDatabaseConfig().DSN)
	assert.Equal(t, "redis://localhost:6379/0", manager.GetRedisDSN())
}

func TestNewManagerInvalidPort(t *testing.T) {
	t.Setenv("PORT", "99999")

	_, err := NewManager()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid port")
}

func TestNewManagerInvalidTTL(t *testing.T) {
	t.Setenv("PRESENCE_TTL", "-5m")

	_, err := NewManager()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TTL")
}

func TestReloadConfigPicksUpChanges(t *testing.T) {
	manager, err := NewManager()
	require.NoError(t, err)

	t.Setenv("PORT", "4000")
	require.NoError(t, manager.ReloadConfig())
	assert.Equal(t, 4000, manager.GetEffectiveServerConfig().Port)
}
