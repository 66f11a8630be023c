package models

import (
	"time"
)

// CacheEntry is a stored model response keyed by (PromptHash, Category).
type CacheEntry struct {
	ID         uint          `gorm:"primaryKey"`
	PromptHash string        `gorm:"type:varchar(64);not null;uniqueIndex:idx_cache_hash_category"`
	Category   CacheCategory `gorm:"type:varchar(32);not null;uniqueIndex:idx_cache_hash_category"`
	Language   Language      `gorm:"type:varchar(16)"`
	Model      string        `gorm:"type:varchar(128)"`
	Response   string        `gorm:"type:text;not null"`
	TokensUsed int
	ExpiresAt  time.Time `gorm:"index;not null"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (CacheEntry) TableName() string {
	return "response_cache"
}

// IsExpired returns true once the entry's lifetime has passed.
func (c *CacheEntry) IsExpired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}
