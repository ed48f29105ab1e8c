package services

import (
	"sort"
	"strings"
	"time"

	app_errors "presence-hub/internal/errors"
	"presence-hub/internal/models"
	"presence-hub/internal/registry"
)

// PresenceQuery carries the view parameters for one assembly.
type PresenceQuery struct {
	SiteID        string
	UserID        string
	DisplayName   string
	Term          string
	FavoritesOnly bool
	Offset        int
	// Limit caps the page size. Negative means uncapped.
	Limit int
}

// PresenceService assembles the per-site presence view from the live
// registry, the announcement store and the favorites store. The view is
// derived on every call and never cached.
type PresenceService struct {
	registry      *registry.Registry
	sites         *SiteService
	announcements *AnnouncementService
	favorites     *FavoriteService
}

// NewPresenceService creates a new PresenceService.
func NewPresenceService(
	reg *registry.Registry,
	sites *SiteService,
	announcements *AnnouncementService,
	favorites *FavoriteService,
) *PresenceService {
	return &PresenceService{
		registry:      reg,
		sites:         sites,
		announcements: announcements,
		favorites:     favorites,
	}
}

// Assemble builds the presence view for one site and one requesting user.
// A user appears in the view iff currently present or holding at least one
// announcement for the site. The requester gets no special treatment beyond
// ordering: when no search term is given, their own record moves to the
// front of the page.
func (s *PresenceService) Assemble(q PresenceQuery, now time.Time) ([]models.Presence, error) {
	exists, err := s.sites.SiteExists(q.SiteID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, app_errors.ErrSiteNotFound
	}

	live := s.registry.ListPresent(q.SiteID, now)
	announced, err := s.announcements.GetForSite(q.SiteID)
	if err != nil {
		return nil, err
	}

	candidates := make(map[string]struct{}, len(live)+len(announced))
	for _, userID := range live {
		candidates[userID] = struct{}{}
	}
	for userID := range announced {
		candidates[userID] = struct{}{}
	}
	if len(candidates) == 0 {
		return []models.Presence{}, nil
	}

	userIDs := make([]string, 0, len(candidates))
	for userID := range candidates {
		userIDs = append(userIDs, userID)
	}
	names, err := s.announcements.DisplayNames(userIDs)
	if err != nil {
		return nil, err
	}
	favoriteSet, err := s.favorites.ListFavorites(q.UserID)
	if err != nil {
		return nil, err
	}

	records := make([]models.Presence, 0, len(candidates))
	for userID := range candidates {
		name := names[userID]
		if userID == q.UserID && q.DisplayName != "" {
			// The requester's own identity is fresher than anything stored.
			name = q.DisplayName
		}
		if name == "" {
			name = userID
		}

		dtos := make([]models.AnnouncementDTO, 0, len(announced[userID]))
		for _, a := range announced[userID] {
			dtos = append(dtos, a.DTO())
		}

		_, isFavorite := favoriteSet[userID]
		records = append(records, models.Presence{
			UserID:           userID,
			DisplayName:      name,
			IsSelf:           userID == q.UserID,
			CurrentlyPresent: s.registry.IsPresent(q.SiteID, userID, now),
			IsFavorite:       isFavorite,
			Announcements:    dtos,
		})
	}

	records = filterRecords(records, q.Term, q.FavoritesOnly)

	sort.Slice(records, func(i, j int) bool {
		if records[i].DisplayName != records[j].DisplayName {
			return records[i].DisplayName < records[j].DisplayName
		}
		return records[i].UserID < records[j].UserID
	})

	if q.Term == "" {
		promoteSelf(records)
	}

	return paginate(records, q.Offset, q.Limit), nil
}

// filterRecords applies the term and favorites filters. The term matches
// case-insensitively anywhere in the display name. The favorites filter does
// not exempt the requester's own record.
func filterRecords(records []models.Presence, term string, favoritesOnly bool) []models.Presence {
	term = strings.ToLower(term)
	filtered := records[:0]
	for _, record := range records {
		if term != "" && !strings.Contains(strings.ToLower(record.DisplayName), term) {
			continue
		}
		if favoritesOnly && !record.IsFavorite {
			continue
		}
		filtered = append(filtered, record)
	}
	return filtered
}

// promoteSelf moves the requester's record to the front, preserving the
// relative order of everyone else.
func promoteSelf(records []models.Presence) {
	for i, record := range records {
		if record.IsSelf {
			self := records[i]
			copy(records[1:i+1], records[:i])
			records[0] = self
			return
		}
	}
}

func paginate(records []models.Presence, offset, limit int) []models.Presence {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(records) {
		return []models.Presence{}
	}
	records = records[offset:]
	if limit >= 0 && limit < len(records) {
		records = records[:limit]
	}
	return records
}
