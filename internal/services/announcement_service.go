package services

import (
	"fmt"
	"time"

	app_errors "presence-hub/internal/errors"
	"presence-hub/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AnnouncementService persists future presence declarations. The set of
// announcements for a (user, site) pair is always replaced as a whole, inside
// one transaction, so readers never observe a partial replacement.
type AnnouncementService struct {
	DB *gorm.DB
}

// NewAnnouncementService creates a new AnnouncementService.
func NewAnnouncementService(db *gorm.DB) *AnnouncementService {
	return &AnnouncementService{DB: db}
}

// ParseAnnouncements validates wire announcements and converts them to the
// persisted form. Returns a validation error on a malformed date or kind;
// nothing is persisted in that case.
func ParseAnnouncements(userID, siteID string, dtos []models.AnnouncementDTO) ([]models.Announcement, error) {
	announcements := make([]models.Announcement, 0, len(dtos))
	for i, dto := range dtos {
		date, err := time.Parse(models.AnnouncementDateLayout, dto.Date)
		if err != nil {
			return nil, app_errors.NewValidationError(fmt.Sprintf("announcement %d: invalid date %q, expected YYYY-MM-DD", i, dto.Date))
		}
		switch dto.Kind {
		case models.AnnouncementKindSingular, models.AnnouncementKindRecurring:
		default:
			return nil, app_errors.NewValidationError(fmt.Sprintf("announcement %d: unknown kind %q", i, dto.Kind))
		}
		announcements = append(announcements, models.Announcement{
			UserID: userID,
			SiteID: siteID,
			Date:   date,
			Kind:   dto.Kind,
		})
	}
	return announcements, nil
}

// Put atomically replaces all announcements for (user, site) and records the
// user's display name. Store failures surface to the caller unretried.
func (s *AnnouncementService) Put(userID, displayName, siteID string, announcements []models.Announcement) error {
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := upsertUserInfo(tx, userID, displayName); err != nil {
			return err
		}
		if err := tx.Where("user_id = ? AND site_id = ?", userID, siteID).
			Delete(&models.Announcement{}).Error; err != nil {
			return err
		}
		if len(announcements) == 0 {
			return nil
		}
		return tx.Create(&announcements).Error
	})
	if err != nil {
		return app_errors.ParseDBError(err)
	}
	return nil
}

// GetForSite returns all announcements for a site, grouped by user.
func (s *AnnouncementService) GetForSite(siteID string) (map[string][]models.Announcement, error) {
	var rows []models.Announcement
	if err := s.DB.Where("site_id = ?", siteID).Order("id asc").Find(&rows).Error; err != nil {
		return nil, app_errors.ParseDBError(err)
	}

	byUser := make(map[string][]models.Announcement)
	for _, row := range rows {
		byUser[row.UserID] = append(byUser[row.UserID], row)
	}
	return byUser, nil
}

// GetForUserSite returns the announcements one user holds for one site, in
// the order they were written.
func (s *AnnouncementService) GetForUserSite(userID, siteID string) ([]models.Announcement, error) {
	var rows []models.Announcement
	if err := s.DB.Where("user_id = ? AND site_id = ?", userID, siteID).
		Order("id asc").Find(&rows).Error; err != nil {
		return nil, app_errors.ParseDBError(err)
	}
	return rows, nil
}

// RecordUserInfo stores the latest display name for a user.
func (s *AnnouncementService) RecordUserInfo(userID, displayName string) error {
	if err := upsertUserInfo(s.DB, userID, displayName); err != nil {
		return app_errors.ParseDBError(err)
	}
	return nil
}

// DisplayNames resolves display names for a set of user ids.
func (s *AnnouncementService) DisplayNames(userIDs []string) (map[string]string, error) {
	if len(userIDs) == 0 {
		return map[string]string{}, nil
	}
	var rows []models.UserInfo
	if err := s.DB.Where("user_id IN ?", userIDs).Find(&rows).Error; err != nil {
		return nil, app_errors.ParseDBError(err)
	}
	names := make(map[string]string, len(rows))
	for _, row := range rows {
		names[row.UserID] = row.DisplayName
	}
	return names, nil
}

func upsertUserInfo(tx *gorm.DB, userID, displayName string) error {
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"display_name", "last_seen"}),
	}).Create(&models.UserInfo{
		UserID:      userID,
		DisplayName: displayName,
		LastSeen:    time.Now(),
	}).Error
}
