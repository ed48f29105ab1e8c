// Package router wires the HTTP routes.
package router

import (
	"net/http"

	"presence-hub/internal/handler"
	"presence-hub/internal/middleware"
	"presence-hub/internal/types"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
)

func NewRouter(
	serverHandler *handler.Server,
	configManager types.ConfigManager,
) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Register global middleware
	router.Use(middleware.Recovery())
	router.Use(middleware.ErrorHandler())
	router.Use(middleware.Logger(configManager.GetLogConfig()))
	router.Use(middleware.CORS(configManager.GetCORSConfig()))
	router.Use(middleware.RateLimiter(configManager.GetPerformanceConfig()))
	router.Use(middleware.SecurityHeaders())
	// SSE responses must reach the client unbuffered, so the stream
	// endpoint is excluded from compression.
	router.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPathsRegexs([]string{`.*/presence/stream$`})))

	registerSystemRoutes(router, serverHandler)
	registerAPIRoutes(router, serverHandler)

	router.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "Method not allowed"})
	})
	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not Found"})
	})

	return router
}

// registerSystemRoutes registers system-level routes
func registerSystemRoutes(router *gin.Engine, serverHandler *handler.Server) {
	router.GET("/health", serverHandler.Health)
}

// registerAPIRoutes registers API routes
func registerAPIRoutes(router *gin.Engine, serverHandler *handler.Server) {
	api := router.Group("/api")
	api.Use(middleware.Identity())

	sites := api.Group("/sites")
	{
		sites.GET("", serverHandler.ListSites)
		sites.GET("/:siteId/presence", serverHandler.GetPresence)
		sites.GET("/:siteId/presence/stream", serverHandler.StreamPresence)
		sites.POST("/:siteId/hello", serverHandler.Hello)
		sites.PUT("/:siteId/announce", serverHandler.Announce)
	}

	self := api.Group("/self")
	{
		self.PUT("/favorites/:userId", serverHandler.AddFavorite)
		self.DELETE("/favorites/:userId", serverHandler.RemoveFavorite)
	}
}
