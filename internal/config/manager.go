// Package config provides environment-driven configuration management.
package config

import (
	"fmt"
	"os"
	"sync"
	"time"

	"presence-hub/internal/types"
	"presence-hub/internal/utils"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Config holds the complete application configuration, loaded from the
// environment (and an optional .env file) at startup.
type Config struct {
	Server      types.ServerConfig      `json:"server"`
	CORS        types.CORSConfig        `json:"cors"`
	Performance types.PerformanceConfig `json:"performance"`
	Log         types.LogConfig         `json:"log"`
	Database    types.DatabaseConfig    `json:"database"`
	RedisDSN    string                  `json:"redis_dsn"`
	Presence    types.PresenceConfig    `json:"presence"`
}

// Manager implements types.ConfigManager.
type Manager struct {
	mu     sync.RWMutex
	config *Config
}

// NewManager creates a new configuration manager and loads the configuration.
func NewManager() (types.ConfigManager, error) {
	if err := godotenv.Load(); err != nil {
		logrus.Debug("No .env file found, using system environment variables")
	}

	manager := &Manager{}
	if err := manager.ReloadConfig(); err != nil {
		return nil, err
	}
	return manager, nil
}

// ReloadConfig re-reads the configuration from the environment.
func (m *Manager) ReloadConfig() error {
	config := &Config{
		Server: types.ServerConfig{
			Port:                    utils.ParseInteger(os.Getenv("PORT"), 3001),
			Host:                    utils.GetEnvOrDefault("HOST", "0.0.0.0"),
			IsMaster:                !utils.ParseBoolean(os.Getenv("IS_SLAVE"), false),
			ReadTimeout:             utils.ParseInteger(os.Getenv("SERVER_READ_TIMEOUT"), 60),
			WriteTimeout:            utils.ParseInteger(os.Getenv("SERVER_WRITE_TIMEOUT"), 600),
			IdleTimeout:             utils.ParseInteger(os.Getenv("SERVER_IDLE_TIMEOUT"), 120),
			GracefulShutdownTimeout: utils.ParseInteger(os.Getenv("SERVER_GRACEFUL_SHUTDOWN_TIMEOUT"), 10),
		},
		CORS: types.CORSConfig{
			Enabled:          utils.ParseBoolean(os.Getenv("ENABLE_CORS"), true),
			AllowedOrigins:   utils.ParseArray(os.Getenv("ALLOWED_ORIGINS"), []string{"*"}),
			AllowedMethods:   utils.ParseArray(os.Getenv("ALLOWED_METHODS"), []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
			AllowedHeaders:   utils.ParseArray(os.Getenv("ALLOWED_HEADERS"), []string{"*"}),
			AllowCredentials: utils.ParseBoolean(os.Getenv("ALLOW_CREDENTIALS"), false),
		},
		Performance: types.PerformanceConfig{
			MaxConcurrentRequests: utils.ParseInteger(os.Getenv("MAX_CONCURRENT_REQUESTS"), 100),
		},
		Log: types.LogConfig{
			Level:      utils.GetEnvOrDefault("LOG_LEVEL", "info"),
			Format:     utils.GetEnvOrDefault("LOG_FORMAT", "text"),
			EnableFile: utils.ParseBoolean(os.Getenv("LOG_ENABLE_FILE"), false),
			FilePath:   utils.GetEnvOrDefault("LOG_FILE_PATH", "./data/logs/app.log"),
		},
		Database: types.DatabaseConfig{
			DSN: utils.GetEnvOrDefault("DATABASE_DSN", "./data/presence-hub.db"),
		},
		RedisDSN: os.Getenv("REDIS_DSN"),
		Presence: types.PresenceConfig{
			TTL:              utils.ParseDuration(os.Getenv("PRESENCE_TTL"), 10*time.Minute),
			SweepInterval:    utils.ParseDuration(os.Getenv("PRESENCE_SWEEP_INTERVAL"), 30*time.Second),
			SubscriberBuffer: utils.ParseInteger(os.Getenv("PRESENCE_SUBSCRIBER_BUFFER"), 8),
		},
	}

	m.mu.Lock()
	m.config = config
	m.mu.Unlock()

	return m.Validate()
}

// IsMaster returns whether this node runs the background services.
func (m *Manager) IsMaster() bool {
	return m.snapshot().Server.IsMaster
}

// GetCORSConfig returns the CORS configuration.
func (m *Manager) GetCORSConfig() types.CORSConfig {
	return m.snapshot().CORS
}

// GetPerformanceConfig returns the performance configuration.
func (m *Manager) GetPerformanceConfig() types.PerformanceConfig {
	return m.snapshot().Performance
}

// GetLogConfig returns the logging configuration.
func (m *Manager) GetLogConfig() types.LogConfig {
	return m.snapshot().Log
}

// GetDatabaseConfig returns the database configuration.
func (m *Manager) GetDatabaseConfig() types.DatabaseConfig {
	return m.snapshot().Database
}

// GetRedisDSN returns the redis connection string, empty when unconfigured.
func (m *Manager) GetRedisDSN() string {
	return m.snapshot().RedisDSN
}

// GetEffectiveServerConfig returns the HTTP server configuration.
func (m *Manager) GetEffectiveServerConfig() types.ServerConfig {
	return m.snapshot().Server
}

// GetPresenceConfig returns the presence engine configuration.
func (m *Manager) GetPresenceConfig() types.PresenceConfig {
	return m.snapshot().Presence
}

// Validate checks configuration consistency.
func (m *Manager) Validate() error {
	config := m.snapshot()

	if config.Server.Port < 1 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", config.Server.Port)
	}
	if config.Database.DSN == "" {
		return fmt.Errorf("DATABASE_DSN is not configured")
	}
	if config.Performance.MaxConcurrentRequests < 1 {
		return fmt.Errorf("max concurrent requests must be at least 1")
	}
	if config.Presence.TTL <= 0 {
		return fmt.Errorf("presence TTL must be positive")
	}
	if config.Presence.SweepInterval <= 0 {
		return fmt.Errorf("presence sweep interval must be positive")
	}
	if config.Presence.SubscriberBuffer < 1 {
		return fmt.Errorf("subscriber buffer must be at least 1")
	}
	return nil
}

// DisplayServerConfig logs a configuration summary at startup.
func (m *Manager) DisplayServerConfig() {
	config := m.snapshot()

	logrus.Info("Server configuration:")
	logrus.Infof("  Listen: %s:%d", config.Server.Host, config.Server.Port)
	logrus.Infof("  Master node: %v", config.Server.IsMaster)
	logrus.Infof("  Presence TTL: %v", config.Presence.TTL)
	logrus.Infof("  Sweep interval: %v", config.Presence.SweepInterval)
	if config.RedisDSN != "" {
		logrus.Info("  Store: redis")
	} else {
		logrus.Info("  Store: memory")
	}
}

func (m *Manager) snapshot() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}
