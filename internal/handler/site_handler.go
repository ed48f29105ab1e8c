package handler

import (
	app_errors "presence-hub/internal/errors"
	"presence-hub/internal/response"

	"github.com/gin-gonic/gin"
)

// ListSites returns all known sites.
// GET /api/sites
func (s *Server) ListSites(c *gin.Context) {
	sites, err := s.SiteService.ListSites()
	if err != nil {
		response.Error(c, app_errors.ParseDBError(err))
		return
	}
	response.Success(c, sites)
}
