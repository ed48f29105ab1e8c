package services

import (
	app_errors "presence-hub/internal/errors"
	"presence-hub/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FavoriteService manages the directed favorite edges between users.
type FavoriteService struct {
	DB *gorm.DB
}

// NewFavoriteService creates a new FavoriteService.
func NewFavoriteService(db *gorm.DB) *FavoriteService {
	return &FavoriteService{DB: db}
}

// Add marks favoriteUserID as a favorite of userID. Adding an existing
// favorite is a no-op success.
func (s *FavoriteService) Add(userID, favoriteUserID string) error {
	err := s.DB.Clauses(clause.OnConflict{DoNothing: true}).Create(&models.Favorite{
		UserID:         userID,
		FavoriteUserID: favoriteUserID,
	}).Error
	if err != nil {
		return app_errors.ParseDBError(err)
	}
	return nil
}

// Remove deletes the favorite edge, or returns ErrFavoriteNotFound if the
// edge does not exist.
func (s *FavoriteService) Remove(userID, favoriteUserID string) error {
	result := s.DB.Where("user_id = ? AND favorite_user_id = ?", userID, favoriteUserID).
		Delete(&models.Favorite{})
	if result.Error != nil {
		return app_errors.ParseDBError(result.Error)
	}
	if result.RowsAffected == 0 {
		return app_errors.ErrFavoriteNotFound
	}
	return nil
}

// IsFavorite reports whether favoriteUserID is a favorite of userID.
func (s *FavoriteService) IsFavorite(userID, favoriteUserID string) (bool, error) {
	var count int64
	err := s.DB.Model(&models.Favorite{}).
		Where("user_id = ? AND favorite_user_id = ?", userID, favoriteUserID).
		Count(&count).Error
	if err != nil {
		return false, app_errors.ParseDBError(err)
	}
	return count > 0, nil
}

// ListFavorites returns the set of user ids favorited by userID. The view
// assembler uses this to check every candidate with one query.
func (s *FavoriteService) ListFavorites(userID string) (map[string]struct{}, error) {
	var rows []models.Favorite
	if err := s.DB.Where("user_id = ?", userID).Find(&rows).Error; err != nil {
		return nil, app_errors.ParseDBError(err)
	}
	favorites := make(map[string]struct{}, len(rows))
	for _, row := range rows {
		favorites[row.FavoriteUserID] = struct{}{}
	}
	return favorites, nil
}
