package models

import (
	"time"

	"github.com/google/uuid"
)

// EventType names an analytics event.
type EventType string

const (
	EventCategoriesGenerated EventType = "categories_generated"
	EventDishesGenerated     EventType = "dishes_generated"
	EventRecipeGenerated     EventType = "recipe_generated"
	EventRecipeDeclined      EventType = "recipe_declined"
	EventQuotaExceeded       EventType = "quota_exceeded"
	EventFavoriteAdded       EventType = "favorite_added"
	EventFavoriteRemoved     EventType = "favorite_removed"
	EventVoiceTranscribed    EventType = "voice_transcribed"
	EventTrialActivated      EventType = "trial_activated"
	EventPremiumActivated    EventType = "premium_activated"
	EventPremiumExpired      EventType = "premium_expired"
)

// Event is an append-only analytics record.
type Event struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID    int64     `gorm:"index"`
	Type      EventType `gorm:"type:varchar(64);index"`
	Detail    string
	CreatedAt time.Time `gorm:"index"`
}

// EventCount is one row of an aggregated event report.
type EventCount struct {
	Type  EventType `json:"type"`
	Count int64     `json:"count"`
}
