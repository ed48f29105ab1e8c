// Package models defines the persisted entities and the presence view DTO.
package models

import "time"

// Announcement kind values
const (
	AnnouncementKindSingular  = "singular"
	AnnouncementKindRecurring = "recurring"
)

// AnnouncementDateLayout is the civil date format used on the wire and in storage.
const AnnouncementDateLayout = "2006-01-02"

// Site is a physical location with geographic coordinates. Reference data,
// maintained by an external admin tool; read-only here.
type Site struct {
	ID        string  `gorm:"primaryKey;type:varchar(64)" json:"id"`
	Name      string  `gorm:"type:varchar(255);not null" json:"name"`
	Latitude  float64 `gorm:"not null" json:"latitude"`
	Longitude float64 `gorm:"not null" json:"longitude"`
}

// UserInfo records the last known display name per user, so users that are
// only announced (never helloed from this node) still render with a name.
type UserInfo struct {
	UserID      string    `gorm:"primaryKey;type:varchar(64)" json:"user_id"`
	DisplayName string    `gorm:"type:varchar(255);not null" json:"display_name"`
	LastSeen    time.Time `json:"last_seen"`
}

// Announcement is a user's declaration of planned presence at a site on a date.
// The set for a (user, site) pair is always replaced atomically as a whole.
type Announcement struct {
	ID      uint      `gorm:"primaryKey;autoIncrement" json:"-"`
	UserID  string    `gorm:"type:varchar(64);not null;index:idx_announcements_user_site" json:"-"`
	SiteID  string    `gorm:"type:varchar(64);not null;index:idx_announcements_user_site;index:idx_announcements_site" json:"-"`
	Date    time.Time `gorm:"type:date;not null" json:"-"`
	Kind    string    `gorm:"type:varchar(16);not null" json:"-"`
}

// AnnouncementDTO is the wire form of an announcement.
type AnnouncementDTO struct {
	Date string `json:"date" binding:"required"`
	Kind string `json:"kind" binding:"required"`
}

// DTO converts a persisted announcement to its wire form.
func (a *Announcement) DTO() AnnouncementDTO {
	return AnnouncementDTO{
		Date: a.Date.Format(AnnouncementDateLayout),
		Kind: a.Kind,
	}
}

// Favorite is a directed user-to-user edge used to prioritize presence views.
type Favorite struct {
	ID             uint      `gorm:"primaryKey;autoIncrement" json:"-"`
	UserID         string    `gorm:"type:varchar(64);not null;uniqueIndex:idx_favorites_edge" json:"user_id"`
	FavoriteUserID string    `gorm:"type:varchar(64);not null;uniqueIndex:idx_favorites_edge" json:"favorite_user_id"`
	CreatedAt      time.Time `json:"created_at"`
}

// Presence is the derived per-site view record. Never persisted; assembled on
// demand for exactly one site and one requesting user.
type Presence struct {
	UserID           string            `json:"user_id"`
	DisplayName      string            `json:"display_name"`
	IsSelf           bool              `json:"is_self"`
	CurrentlyPresent bool              `json:"currently_present"`
	IsFavorite       bool              `json:"is_favorite"`
	Announcements    []AnnouncementDTO `json:"announcements"`
}
