package db

import (
	"testing"
	"time"

	"presence-hub/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubConfigManager struct {
	dsn string
}

func (s stubConfigManager) IsMaster() bool                  { return true }
func (s stubConfigManager) GetCORSConfig() types.CORSConfig { return types.CORSConfig{} }
func (s stubConfigManager) GetLogConfig() types.LogConfig   { return types.LogConfig{Level: "info"} }
func (s stubConfigManager) GetRedisDSN() string             { return "" }
func (s stubConfigManager) Validate() error                 { return nil }
func (s stubConfigManager) DisplayServerConfig()            {}
func (s stubConfigManager) ReloadConfig() error             { return nil }
func (s stubConfigManager) GetPerformanceConfig() types.PerformanceConfig {
	return types.PerformanceConfig{MaxConcurrentRequests: 100}
}
func (s stubConfigManager) GetDatabaseConfig() types.DatabaseConfig {
	return types.DatabaseConfig{DSN: s.dsn}
}
func (s stubConfigManager) GetEffectiveServerConfig() types.ServerConfig {
	return types.ServerConfig{Host: "127.0.0.1", Port: 3001}
}
func (s stubConfigManager) GetPresenceConfig() types.PresenceConfig {
	return types.PresenceConfig{TTL: 10 * time.Minute, SweepInterval: 30 * time.Second, SubscriberBuffer: 8}
}

func TestNewDBSQLiteMemory(t *testing.T) {
	db, err := NewDB(stubConfigManager{dsn: ":memory:"})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	defer sqlDB.Close()

	assert.NoError(t, sqlDB.Ping())
	assert.Equal(t, "sqlite", db.Dialector.Name())
}

func TestNewDBEmptyDSN(t *testing.T) {
	_, err := NewDB(stubConfigManager{dsn: ""})
	require.Error(t, err)
}
