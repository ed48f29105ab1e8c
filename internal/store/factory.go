package store

import (
	"presence-hub/internal/types"

	"github.com/sirupsen/logrus"
)

// NewStore selects the store backend from configuration: redis when a
// REDIS_DSN is configured, otherwise the in-process memory store.
func NewStore(configManager types.ConfigManager) (Store, error) {
	if dsn := configManager.GetRedisDSN(); dsn != "" {
		logrus.Info("Using redis store")
		return NewRedisStore(dsn)
	}
	logrus.Info("Using memory store")
	return NewMemoryStore(), nil
}
