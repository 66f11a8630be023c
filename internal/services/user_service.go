package services

import (
	"context"
	"time"

	"chefbot_go_backend/internal/models"

	"github.com/rs/zerolog/log"
)

type UserService struct {
	db  UsageServiceDB
	now func() time.Time
}

func NewUserService(db UsageServiceDB, opts ...ServiceOption) *UserService {
	o := applyOptions(opts)
	return &UserService{db: db, now: o.now}
}

// EnsureUser creates the ledger row on first contact with a pending trial. Later calls
// only refresh the username and language.
func (s *UserService) EnsureUser(ctx context.Context, telegramID int64, username string, lang models.Language) (*models.User, error) {
	user := &models.User{
		TelegramID:  telegramID,
		Username:    username,
		Language:    lang.OrDefault(),
		TrialStatus: models.TrialPending,
		CreatedAt:   s.now(),
	}
	created, err := s.db.GetOrCreateUserDB(ctx, user)
	if err != nil {
		return nil, err
	}
	if created {
		log.Info().Int64("user_id", telegramID).Str("language", string(user.Language)).Msg("New user registered")
		return user, nil
	}

	wantLang := user.Language
	if lang != models.LangUnknown && lang != "" {
		wantLang = lang
	}
	if (username == "" || user.Username == username) && user.Language == wantLang {
		return user, nil
	}
	return s.db.UpdateUserDB(ctx, telegramID, func(u *models.User) error {
		if username != "" {
			u.Username = username
		}
		u.Language = wantLang
		return nil
	})
}

func (s *UserService) GetUser(ctx context.Context, telegramID int64) (*models.User, error) {
	return s.db.GetUserDB(ctx, telegramID)
}
