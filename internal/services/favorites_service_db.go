package services

import (
	"context"

	"chefbot_go_backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type FavoritesServiceDB interface {
	UpsertFavoriteDB(ctx context.Context, fav *models.Favorite) error
	DeleteFavoriteDB(ctx context.Context, userID int64, dishName string) (bool, error)
	GetFavoriteDB(ctx context.Context, userID int64, dishName string) (*models.Favorite, error)
	ListFavoritesDB(ctx context.Context, userID int64, offset, limit int) ([]models.Favorite, int64, error)
	ListFavoriteNamesDB(ctx context.Context, userID int64) ([]string, error)
}

type DefaultFavoritesServiceDB struct {
	db *gorm.DB
}

func NewFavoritesServiceDB(db *gorm.DB) FavoritesServiceDB {
	return &DefaultFavoritesServiceDB{db: db}
}

// UpsertFavoriteDB overwrites the stored recipe when the user already saved the dish.
// UpdatedAt is taken from fav; gorm fills it only when zero.
func (s *DefaultFavoritesServiceDB) UpsertFavoriteDB(ctx context.Context, fav *models.Favorite) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "dish_name"}},
		DoUpdates: clause.AssignmentColumns([]string{"category", "recipe_text", "updated_at"}),
	}).Create(fav).Error
}

func (s *DefaultFavoritesServiceDB) DeleteFavoriteDB(ctx context.Context, userID int64, dishName string) (bool, error) {
	result := s.db.WithContext(ctx).
		Where("user_id = ? AND dish_name = ?", userID, dishName).
		Delete(&models.Favorite{})
	return result.RowsAffected > 0, result.Error
}

func (s *DefaultFavoritesServiceDB) GetFavoriteDB(ctx context.Context, userID int64, dishName string) (*models.Favorite, error) {
	var fav models.Favorite
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND dish_name = ?", userID, dishName).
		First(&fav).Error
	if err != nil {
		return nil, err
	}
	return &fav, nil
}

// ListFavoritesDB returns one page, newest first, and the total count. A negative
// limit returns everything.
func (s *DefaultFavoritesServiceDB) ListFavoritesDB(ctx context.Context, userID int64, offset, limit int) ([]models.Favorite, int64, error) {
	var total int64
	q := s.db.WithContext(ctx).Model(&models.Favorite{}).Where("user_id = ?", userID)
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var favs []models.Favorite
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc, id desc").
		Offset(offset).
		Limit(limit).
		Find(&favs).Error
	if err != nil {
		return nil, 0, err
	}
	return favs, total, nil
}

func (s *DefaultFavoritesServiceDB) ListFavoriteNamesDB(ctx context.Context, userID int64) ([]string, error) {
	var names []string
	err := s.db.WithContext(ctx).Model(&models.Favorite{}).
		Where("user_id = ?", userID).
		Pluck("dish_name", &names).Error
	return names, err
}
