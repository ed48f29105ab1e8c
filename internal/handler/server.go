// Package handler contains the HTTP handlers for the presence API.
package handler

import (
	"time"

	"presence-hub/internal/broadcast"
	"presence-hub/internal/middleware"
	"presence-hub/internal/registry"
	"presence-hub/internal/services"
	"presence-hub/internal/types"

	"github.com/gin-gonic/gin"
	"go.uber.org/dig"
)

// Server aggregates all HTTP handlers and their dependencies.
type Server struct {
	ConfigManager       types.ConfigManager
	Registry            *registry.Registry
	Broadcaster         *broadcast.Broadcaster
	SiteService         *services.SiteService
	AnnouncementService *services.AnnouncementService
	FavoriteService     *services.FavoriteService
	PresenceService     *services.PresenceService
}

// ServerParams contains the dependencies for the Server.
type ServerParams struct {
	dig.In

	ConfigManager       types.ConfigManager
	Registry            *registry.Registry
	Broadcaster         *broadcast.Broadcaster
	SiteService         *services.SiteService
	AnnouncementService *services.AnnouncementService
	FavoriteService     *services.FavoriteService
	PresenceService     *services.PresenceService
}

// NewServer creates a new Server instance.
func NewServer(params ServerParams) *Server {
	return &Server{
		ConfigManager:       params.ConfigManager,
		Registry:            params.Registry,
		Broadcaster:         params.Broadcaster,
		SiteService:         params.SiteService,
		AnnouncementService: params.AnnouncementService,
		FavoriteService:     params.FavoriteService,
		PresenceService:     params.PresenceService,
	}
}

// identity is the caller identity established by the identity middleware.
type identity struct {
	UserID      string
	DisplayName string
}

func callerIdentity(c *gin.Context) identity {
	id := identity{
		UserID:      c.GetString(middleware.ContextUserIDKey),
		DisplayName: c.GetString(middleware.ContextDisplayNameKey),
	}
	if id.DisplayName == "" {
		id.DisplayName = id.UserID
	}
	return id
}

// Health handles health check requests
// GET /health
func (s *Server) Health(c *gin.Context) {
	c.JSON(200, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}
