package handler

import (
	"strconv"
	"time"

	app_errors "presence-hub/internal/errors"
	"presence-hub/internal/response"
	"presence-hub/internal/services"

	"github.com/gin-gonic/gin"
)

// presenceQueryFromRequest parses the view parameters. A missing limit means
// uncapped; malformed numbers are a validation error.
func presenceQueryFromRequest(c *gin.Context) (services.PresenceQuery, error) {
	id := callerIdentity(c)
	query := services.PresenceQuery{
		SiteID:      c.Param("siteId"),
		UserID:      id.UserID,
		DisplayName: id.DisplayName,
		Term:        c.Query("term"),
		Offset:      0,
		Limit:       -1,
	}

	if raw := c.Query("favorites_only"); raw != "" {
		value, err := strconv.ParseBool(raw)
		if err != nil {
			return query, app_errors.NewValidationError("favorites_only must be a boolean")
		}
		query.FavoritesOnly = value
	}
	if raw := c.Query("offset"); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value < 0 {
			return query, app_errors.NewValidationError("offset must be a non-negative integer")
		}
		query.Offset = value
	}
	if raw := c.Query("limit"); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value < 0 {
			return query, app_errors.NewValidationError("limit must be a non-negative integer")
		}
		query.Limit = value
	}

	return query, nil
}

// GetPresence returns the assembled presence view for a site.
// GET /api/sites/:siteId/presence
func (s *Server) GetPresence(c *gin.Context) {
	query, err := presenceQueryFromRequest(c)
	if err != nil {
		response.Error(c, app_errors.ParseDBError(err))
		return
	}

	view, err := s.PresenceService.Assemble(query, time.Now())
	if err != nil {
		response.Error(c, app_errors.ParseDBError(err))
		return
	}
	response.Success(c, view)
}

// StreamPresence pushes recomputed presence views over Server-Sent Events.
// The first event carries the current view so the client renders without
// waiting for a mutation. The subscription ends when the client disconnects
// or when the broadcaster drops a subscriber that stopped draining.
// GET /api/sites/:siteId/presence/stream
func (s *Server) StreamPresence(c *gin.Context) {
	query, err := presenceQueryFromRequest(c)
	if err != nil {
		response.Error(c, app_errors.ParseDBError(err))
		return
	}

	view, err := s.PresenceService.Assemble(query, time.Now())
	if err != nil {
		response.Error(c, app_errors.ParseDBError(err))
		return
	}

	sub := s.Broadcaster.Subscribe(query)
	defer sub.Close()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	c.SSEvent("presence", view)
	c.Writer.Flush()

	clientGone := c.Request.Context().Done()
	for {
		select {
		case update, ok := <-sub.Updates():
			if !ok {
				return
			}
			c.SSEvent("presence", update)
			c.Writer.Flush()
		case <-clientGone:
			return
		}
	}
}
