package handler

import (
	app_errors "presence-hub/internal/errors"
	"presence-hub/internal/response"

	"github.com/gin-gonic/gin"
)

// AddFavorite marks another user as a favorite of the caller. Adding an
// existing favorite succeeds.
// PUT /api/self/favorites/:userId
func (s *Server) AddFavorite(c *gin.Context) {
	id := callerIdentity(c)
	favoriteUserID := c.Param("userId")

	if err := s.FavoriteService.Add(id.UserID, favoriteUserID); err != nil {
		response.Error(c, app_errors.ParseDBError(err))
		return
	}

	s.notifyFavoriteChange()
	response.Success(c, nil)
}

// RemoveFavorite removes a favorite edge of the caller.
// DELETE /api/self/favorites/:userId
func (s *Server) RemoveFavorite(c *gin.Context) {
	id := callerIdentity(c)
	favoriteUserID := c.Param("userId")

	if err := s.FavoriteService.Remove(id.UserID, favoriteUserID); err != nil {
		response.Error(c, app_errors.ParseDBError(err))
		return
	}

	s.notifyFavoriteChange()
	response.Success(c, nil)
}

// notifyFavoriteChange refreshes every subscribed site. Favorite edges are
// not scoped to a site, so any open view may now render a different
// is_favorite flag.
func (s *Server) notifyFavoriteChange() {
	for _, siteID := range s.Broadcaster.SubscribedSites() {
		s.Broadcaster.NotifySiteChanged(siteID)
	}
}
