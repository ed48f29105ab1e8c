// Package services contains the domain services: sites, announcements,
// favorites and the presence view assembler.
package services

import (
	"encoding/json"
	"errors"
	"time"

	app_errors "presence-hub/internal/errors"
	"presence-hub/internal/models"
	"presence-hub/internal/store"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	siteCatalogCacheKey = "sites:catalog"
	siteExistsKeyPrefix = "sites:exists:"
	siteCacheTTL        = time.Minute
)

// SiteService reads site reference data. Sites are maintained externally;
// this service never writes them. Reads go through the shared store as a
// short-lived cache, so the per-request existence checks stay off the
// database. Cache failures fall back to the database.
type SiteService struct {
	DB    *gorm.DB
	cache store.Store
}

// NewSiteService creates a new SiteService.
func NewSiteService(db *gorm.DB, cache store.Store) *SiteService {
	return &SiteService{DB: db, cache: cache}
}

// ListSites returns all known sites ordered by name.
func (s *SiteService) ListSites() ([]models.Site, error) {
	if data, err := s.cache.Get(siteCatalogCacheKey); err == nil {
		var sites []models.Site
		if err := json.Unmarshal(data, &sites); err == nil {
			return sites, nil
		}
		// A corrupt entry falls through to the database.
		if err := s.cache.Delete(siteCatalogCacheKey); err != nil {
			logrus.WithError(err).Debug("SiteService: failed to drop corrupt catalog entry")
		}
	}

	var sites []models.Site
	if err := s.DB.Order("name asc").Find(&sites).Error; err != nil {
		return nil, app_errors.ParseDBError(err)
	}

	if data, err := json.Marshal(sites); err == nil {
		if err := s.cache.Set(siteCatalogCacheKey, data, siteCacheTTL); err != nil {
			logrus.WithError(err).Debug("SiteService: failed to cache site catalog")
		}
	}
	return sites, nil
}

// GetSite returns one site, or ErrSiteNotFound for an unknown id. It always
// reads the database, so a stale existence entry is corrected here.
func (s *SiteService) GetSite(siteID string) (*models.Site, error) {
	var site models.Site
	if err := s.DB.First(&site, "id = ?", siteID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if err := s.cache.Delete(siteExistsKeyPrefix + siteID); err != nil {
				logrus.WithError(err).Debug("SiteService: failed to drop stale existence entry")
			}
			return nil, app_errors.ErrSiteNotFound
		}
		return nil, app_errors.ParseDBError(err)
	}
	return &site, nil
}

// SiteExists reports whether the site id is known. Only positive results are
// cached; an unknown site always hits the database, so a freshly added site
// is visible immediately.
func (s *SiteService) SiteExists(siteID string) (bool, error) {
	key := siteExistsKeyPrefix + siteID
	if hit, err := s.cache.Exists(key); err == nil && hit {
		return true, nil
	}

	var count int64
	if err := s.DB.Model(&models.Site{}).Where("id = ?", siteID).Count(&count).Error; err != nil {
		return false, app_errors.ParseDBError(err)
	}
	if count == 0 {
		return false, nil
	}

	if err := s.cache.Set(key, []byte("1"), siteCacheTTL); err != nil {
		logrus.WithError(err).Debug("SiteService: failed to cache site existence")
	}
	return true, nil
}
