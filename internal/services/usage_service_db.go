package services

import (
	"context"
	"errors"
	"time"

	"chefbot_go_backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// errNoUpdate lets an UpdateUserDB callback skip the write.
var errNoUpdate = errors.New("no update")

type UsageServiceDB interface {
	GetOrCreateUserDB(ctx context.Context, user *models.User) (bool, error)
	GetUserDB(ctx context.Context, telegramID int64) (*models.User, error)
	UpdateUserDB(ctx context.Context, telegramID int64, fn func(*models.User) error) (*models.User, error)
	ListExpiredPremiumDB(ctx context.Context, now time.Time) ([]int64, error)
	ListPendingTrialsDB(ctx context.Context, createdBefore time.Time) ([]int64, error)
}

type DefaultUsageServiceDB struct {
	db *gorm.DB
}

func NewUsageServiceDB(db *gorm.DB) UsageServiceDB {
	return &DefaultUsageServiceDB{db: db}
}

// GetOrCreateUserDB loads the row for user.TelegramID into user, inserting user as
// given when none exists. It reports whether a row was created.
func (s *DefaultUsageServiceDB) GetOrCreateUserDB(ctx context.Context, user *models.User) (bool, error) {
	attrs := *user
	result := s.db.WithContext(ctx).
		Where(models.User{TelegramID: user.TelegramID}).
		Attrs(attrs).
		FirstOrCreate(user)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (s *DefaultUsageServiceDB) GetUserDB(ctx context.Context, telegramID int64) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("telegram_id = ?", telegramID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateUserDB runs fn on the row locked FOR UPDATE and saves the result in the same
// transaction. Returning errNoUpdate from fn keeps the row unchanged.
func (s *DefaultUsageServiceDB) UpdateUserDB(ctx context.Context, telegramID int64, fn func(*models.User) error) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("telegram_id = ?", telegramID).
			First(&user).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		if err != nil {
			return err
		}
		if err := fn(&user); err != nil {
			return err
		}
		return tx.Save(&user).Error
	})
	if errors.Is(err, errNoUpdate) {
		return &user, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *DefaultUsageServiceDB) ListExpiredPremiumDB(ctx context.Context, now time.Time) ([]int64, error) {
	var ids []int64
	err := s.db.WithContext(ctx).Model(&models.User{}).
		Where("is_premium = ? AND premium_until IS NOT NULL AND premium_until <= ?", true, now).
		Pluck("telegram_id", &ids).Error
	return ids, err
}

func (s *DefaultUsageServiceDB) ListPendingTrialsDB(ctx context.Context, createdBefore time.Time) ([]int64, error) {
	var ids []int64
	err := s.db.WithContext(ctx).Model(&models.User{}).
		Where("trial_status = ? AND is_premium = ? AND created_at <= ?", models.TrialPending, false, createdBefore).
		Pluck("telegram_id", &ids).Error
	return ids, err
}
