package models

import (
	"time"
)

// User is the per-account usage and entitlement ledger row. TelegramID is the chat
// platform user identifier and the natural key for every lookup.
type User struct {
	ID              uint        `gorm:"primaryKey" json:"-"`
	TelegramID      int64       `gorm:"uniqueIndex;not null" json:"user_id"`
	Username        string      `json:"username"`
	Language        Language    `gorm:"type:varchar(16);default:'en'" json:"language"`
	DailyTextCount  int         `gorm:"not null;default:0" json:"daily_text_count"`
	DailyVoiceCount int         `gorm:"not null;default:0" json:"daily_voice_count"`
	UsageDate       string      `gorm:"type:varchar(10)" json:"usage_date"` // YYYY-MM-DD of the counters
	IsPremium       bool        `gorm:"not null;default:false;index" json:"is_premium"`
	PremiumUntil    *time.Time  `gorm:"index" json:"premium_until,omitempty"`
	TrialStatus     TrialStatus `gorm:"type:varchar(16);not null;default:'pending';index" json:"trial_status"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// PremiumActive reports whether the account has a live premium entitlement at now.
// An expired but not yet swept premium flag counts as free.
func (u *User) PremiumActive(now time.Time) bool {
	if !u.IsPremium {
		return false
	}
	return u.PremiumUntil == nil || u.PremiumUntil.After(now)
}
