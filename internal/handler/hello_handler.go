package handler

import (
	"time"

	app_errors "presence-hub/internal/errors"
	"presence-hub/internal/response"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Hello records a presence signal for the caller at a site. The signal is
// accepted, not confirmed: presence becomes visible to readers on their next
// view, so 202 is the honest status.
// POST /api/sites/:siteId/hello
func (s *Server) Hello(c *gin.Context) {
	siteID := c.Param("siteId")
	id := callerIdentity(c)

	site, err := s.SiteService.GetSite(siteID)
	if err != nil {
		response.Error(c, app_errors.ParseDBError(err))
		return
	}

	s.Registry.RecordHello(siteID, id.UserID, id.DisplayName, time.Now())
	logrus.WithFields(logrus.Fields{
		"site": site.Name,
		"user": id.UserID,
	}).Debug("Hello: presence recorded")

	// Name upkeep is best effort; a failed write must not reject the hello.
	if err := s.AnnouncementService.RecordUserInfo(id.UserID, id.DisplayName); err != nil {
		logrus.WithFields(logrus.Fields{
			"user":  id.UserID,
			"error": err,
		}).Warn("Hello: failed to record display name")
	}

	s.Broadcaster.NotifySiteChanged(siteID)
	response.Accepted(c)
}
