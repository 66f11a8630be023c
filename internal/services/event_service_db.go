package services

import (
	"context"
	"time"

	"chefbot_go_backend/internal/models"

	"gorm.io/gorm"
)

type EventServiceDB interface {
	CreateEventDB(ctx context.Context, event *models.Event) error
	CountEventsSinceDB(ctx context.Context, since time.Time) ([]models.EventCount, error)
}

type DefaultEventServiceDB struct {
	db *gorm.DB
}

func NewEventServiceDB(db *gorm.DB) EventServiceDB {
	return &DefaultEventServiceDB{db: db}
}

func (s *DefaultEventServiceDB) CreateEventDB(ctx context.Context, event *models.Event) error {
	return s.db.WithContext(ctx).Create(event).Error
}

// CountEventsSinceDB groups events newer than since by type.
func (s *DefaultEventServiceDB) CountEventsSinceDB(ctx context.Context, since time.Time) ([]models.EventCount, error) {
	var counts []models.EventCount
	err := s.db.WithContext(ctx).Model(&models.Event{}).
		Select("type, count(*) as count").
		Where("created_at >= ?", since).
		Group("type").
		Order("type").
		Scan(&counts).Error
	return counts, err
}
