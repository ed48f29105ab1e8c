package handler

import (
	app_errors "presence-hub/internal/errors"
	"presence-hub/internal/models"
	"presence-hub/internal/response"
	"presence-hub/internal/services"

	"github.com/gin-gonic/gin"
)

// AnnounceRequest is the payload replacing the caller's announcements for a
// site. An empty list clears them.
type AnnounceRequest struct {
	Announcements []models.AnnouncementDTO `json:"announcements"`
}

// Announce atomically replaces the caller's announcements for a site.
// Unknown sites and malformed announcements are both client errors here;
// nothing is persisted in either case.
// PUT /api/sites/:siteId/announce
func (s *Server) Announce(c *gin.Context) {
	siteID := c.Param("siteId")
	id := callerIdentity(c)

	var req AnnounceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, app_errors.NewAPIError(app_errors.ErrInvalidJSON, err.Error()))
		return
	}

	exists, err := s.SiteService.SiteExists(siteID)
	if err != nil {
		response.Error(c, app_errors.ParseDBError(err))
		return
	}
	if !exists {
		response.Error(c, app_errors.NewAPIError(app_errors.ErrBadRequest, "unknown site: "+siteID))
		return
	}

	announcements, err := services.ParseAnnouncements(id.UserID, siteID, req.Announcements)
	if err != nil {
		response.Error(c, app_errors.ParseDBError(err))
		return
	}

	if err := s.AnnouncementService.Put(id.UserID, id.DisplayName, siteID, announcements); err != nil {
		response.Error(c, app_errors.ParseDBError(err))
		return
	}

	s.Broadcaster.NotifySiteChanged(siteID)
	response.NoContent(c)
}
