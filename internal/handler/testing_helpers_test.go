package handler_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"presence-hub/internal/broadcast"
	"presence-hub/internal/handler"
	"presence-hub/internal/models"
	"presence-hub/internal/registry"
	"presence-hub/internal/router"
	"presence-hub/internal/services"
	"presence-hub/internal/store"
	"presence-hub/internal/types"

	"github.com/glebarez/sqlite"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// testConfigManager is a fixed-value ConfigManager for handler tests.
type testConfigManager struct{}

func (testConfigManager) IsMaster() bool                     { return true }
func (testConfigManager) GetCORSConfig() types.CORSConfig    { return types.CORSConfig{} }
func (testConfigManager) GetLogConfig() types.LogConfig      { return types.LogConfig{Level: "error"} }
func (testConfigManager) GetRedisDSN() string                { return "" }
func (testConfigManager) Validate() error                    { return nil }
func (testConfigManager) DisplayServerConfig()               {}
func (testConfigManager) ReloadConfig() error                { return nil }
func (testConfigManager) GetPerformanceConfig() types.PerformanceConfig {
	return types.PerformanceConfig{MaxConcurrentRequests: 100}
}
func (testConfigManager) GetDatabaseConfig() types.DatabaseConfig {
	return types.DatabaseConfig{DSN: ":memory:"}
}
func (testConfigManager) GetEffectiveServerConfig() types.ServerConfig {
	return types.ServerConfig{Host: "127.0.0.1", Port: 0}
}
func (testConfigManager) GetPresenceConfig() types.PresenceConfig {
	return types.PresenceConfig{TTL: 10 * time.Minute, SweepInterval: 30 * time.Second, SubscriberBuffer: 8}
}

type testEnv struct {
	engine   *gin.Engine
	db       *gorm.DB
	registry *registry.Registry
	server   *handler.Server
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Site{},
		&models.UserInfo{},
		&models.Announcement{},
		&models.Favorite{},
	))
	require.NoError(t, db.Create(&models.Site{ID: "hq", Name: "Headquarters", Latitude: 48.1, Longitude: 11.6}).Error)
	require.NoError(t, db.Create(&models.Site{ID: "branch", Name: "Branch", Latitude: 52.5, Longitude: 13.4}).Error)

	st := store.NewMemoryStore()
	reg := registry.New(10 * time.Minute)
	siteService := services.NewSiteService(db, st)
	announcementService := services.NewAnnouncementService(db)
	favoriteService := services.NewFavoriteService(db)
	presenceService := services.NewPresenceService(reg, siteService, announcementService, favoriteService)
	broadcaster := broadcast.NewBroadcaster(st, presenceService, 8)
	require.NoError(t, broadcaster.Start())

	server := &handler.Server{
		ConfigManager:       testConfigManager{},
		Registry:            reg,
		Broadcaster:         broadcaster,
		SiteService:         siteService,
		AnnouncementService: announcementService,
		FavoriteService:     favoriteService,
		PresenceService:     presenceService,
	}

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		broadcaster.Stop(ctx)
		st.Close()
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	return &testEnv{
		engine:   router.NewRouter(server, testConfigManager{}),
		db:       db,
		registry: reg,
		server:   server,
	}
}

// doRequest performs a request as the given user. An empty userID sends no
// identity headers.
func (e *testEnv) doRequest(t *testing.T, method, path, userID, body string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, path, reader)
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != "" {
		req.Header.Set("X-User-Id", userID)
		req.Header.Set("X-User-Name", displayNameFor(userID))
	}

	w := httptest.NewRecorder()
	e.engine.ServeHTTP(w, req)
	return w
}

func timeoutContext(t *testing.T, d time.Duration) (context.Context, context.CancelFunc) {
	t.Helper()
	return context.WithTimeout(context.Background(), d)
}

func displayNameFor(userID string) string {
	switch userID {
	case "alice":
		return "Alice"
	case "bob":
		return "Bob"
	default:
		return userID
	}
}
