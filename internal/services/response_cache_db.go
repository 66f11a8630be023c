package services

import (
	"context"
	"time"

	"chefbot_go_backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ResponseCacheDB interface {
	GetCacheEntryDB(ctx context.Context, promptHash string, category models.CacheCategory) (*models.CacheEntry, error)
	UpsertCacheEntryDB(ctx context.Context, entry *models.CacheEntry) error
	DeleteExpiredCacheEntriesDB(ctx context.Context, now time.Time) (int64, error)
}

type DefaultResponseCacheDB struct {
	db *gorm.DB
}

func NewResponseCacheDB(db *gorm.DB) ResponseCacheDB {
	return &DefaultResponseCacheDB{db: db}
}

func (s *DefaultResponseCacheDB) GetCacheEntryDB(ctx context.Context, promptHash string, category models.CacheCategory) (*models.CacheEntry, error) {
	var entry models.CacheEntry
	err := s.db.WithContext(ctx).
		Where("prompt_hash = ? AND category = ?", promptHash, category).
		First(&entry).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// UpsertCacheEntryDB replaces the row for (prompt_hash, category) and refreshes its expiry.
func (s *DefaultResponseCacheDB) UpsertCacheEntryDB(ctx context.Context, entry *models.CacheEntry) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "prompt_hash"}, {Name: "category"}},
		DoUpdates: clause.AssignmentColumns([]string{"response", "tokens_used", "expires_at", "language", "model", "updated_at"}),
	}).Create(entry).Error
}

func (s *DefaultResponseCacheDB) DeleteExpiredCacheEntriesDB(ctx context.Context, now time.Time) (int64, error) {
	result := s.db.WithContext(ctx).Where("expires_at <= ?", now).Delete(&models.CacheEntry{})
	return result.RowsAffected, result.Error
}
