package services

import (
	"context"
	"time"

	"chefbot_go_backend/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// EventService appends analytics events. Recording never fails the caller.
type EventService struct {
	db  EventServiceDB
	now func() time.Time
}

func NewEventService(db EventServiceDB, opts ...ServiceOption) *EventService {
	o := applyOptions(opts)
	return &EventService{db: db, now: o.now}
}

func (s *EventService) Record(ctx context.Context, userID int64, eventType models.EventType, detail string) {
	event := &models.Event{
		ID:        uuid.New(),
		UserID:    userID,
		Type:      eventType,
		Detail:    detail,
		CreatedAt: s.now(),
	}
	if err := s.db.CreateEventDB(ctx, event); err != nil {
		log.Warn().Err(err).
			Int64("user_id", userID).
			Str("event", string(eventType)).
			Msg("Failed to record event")
	}
}

func (s *EventService) Counts(ctx context.Context, since time.Time) ([]models.EventCount, error) {
	return s.db.CountEventsSinceDB(ctx, since)
}
