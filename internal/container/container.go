// Package container builds the dependency injection container.
package container

import (
	"presence-hub/internal/app"
	"presence-hub/internal/broadcast"
	"presence-hub/internal/config"
	"presence-hub/internal/db"
	"presence-hub/internal/handler"
	"presence-hub/internal/registry"
	"presence-hub/internal/router"
	"presence-hub/internal/services"
	"presence-hub/internal/store"
	"presence-hub/internal/types"

	"go.uber.org/dig"
)

// BuildContainer creates and configures the DI container.
func BuildContainer() (*dig.Container, error) {
	container := dig.New()

	providers := []any{
		// Configuration
		config.NewManager,

		// Infrastructure
		db.NewDB,
		store.NewStore,

		// Presence core
		func(cm types.ConfigManager) *registry.Registry {
			return registry.New(cm.GetPresenceConfig().TTL)
		},
		services.NewSiteService,
		services.NewAnnouncementService,
		services.NewFavoriteService,
		services.NewPresenceService,
		func(st store.Store, presence *services.PresenceService, cm types.ConfigManager) *broadcast.Broadcaster {
			return broadcast.NewBroadcaster(st, presence, cm.GetPresenceConfig().SubscriberBuffer)
		},
		func(reg *registry.Registry, b *broadcast.Broadcaster, cm types.ConfigManager) *registry.ExpiryScheduler {
			return registry.NewExpiryScheduler(reg, b, cm.GetPresenceConfig().SweepInterval)
		},

		// HTTP layer
		handler.NewServer,
		router.NewRouter,

		// Application
		app.NewApp,
	}

	for _, provider := range providers {
		if err := container.Provide(provider); err != nil {
			return nil, err
		}
	}

	return container, nil
}
