package services

import (
	"context"
	"fmt"
	"time"

	"chefbot_go_backend/internal/models"

	"github.com/rs/zerolog/log"
)

const usageDateLayout = "2006-01-02"

// Limits are the per-day request quotas of each tier.
type Limits struct {
	FreeText     int
	FreeVoice    int
	PremiumText  int
	PremiumVoice int
}

// TrialPolicy grants TrialDays of premium once an account is Delay old.
type TrialPolicy struct {
	Delay time.Duration
	Days  int
}

// UsageCheck is the result of a quota check.
type UsageCheck struct {
	Allowed bool
	Kind    models.UsageKind
	Used    int
	Limit   int
}

// UsageStatus summarizes an account's tier and today's usage.
type UsageStatus struct {
	Premium      bool               `json:"premium"`
	PremiumUntil *time.Time         `json:"premium_until,omitempty"`
	TrialStatus  models.TrialStatus `json:"trial_status"`
	TextUsed     int                `json:"text_used"`
	TextLimit    int                `json:"text_limit"`
	VoiceUsed    int                `json:"voice_used"`
	VoiceLimit   int                `json:"voice_limit"`
}

// UsageService is the usage and entitlement ledger. Counters are per calendar day in
// the configured location and reset lazily when the stored date differs from today.
type UsageService struct {
	db     UsageServiceDB
	limits Limits
	trial  TrialPolicy
	loc    *time.Location
	now    func() time.Time
}

func NewUsageService(db UsageServiceDB, limits Limits, trial TrialPolicy, loc *time.Location, opts ...ServiceOption) *UsageService {
	o := applyOptions(opts)
	if loc == nil {
		loc = time.UTC
	}
	return &UsageService{
		db:     db,
		limits: limits,
		trial:  trial,
		loc:    loc,
		now:    o.now,
	}
}

func (s *UsageService) today(now time.Time) string {
	return now.In(s.loc).Format(usageDateLayout)
}

func (s *UsageService) limitFor(user *models.User, kind models.UsageKind, now time.Time) int {
	premium := user.PremiumActive(now)
	switch {
	case kind == models.UsageVoice && premium:
		return s.limits.PremiumVoice
	case kind == models.UsageVoice:
		return s.limits.FreeVoice
	case premium:
		return s.limits.PremiumText
	default:
		return s.limits.FreeText
	}
}

// CheckAndIncrement atomically resets stale counters, then either denies the request
// (used >= limit) or counts it.
func (s *UsageService) CheckAndIncrement(ctx context.Context, telegramID int64, kind models.UsageKind) (UsageCheck, error) {
	now := s.now()
	today := s.today(now)
	check := UsageCheck{Kind: kind}

	_, err := s.db.UpdateUserDB(ctx, telegramID, func(u *models.User) error {
		if u.UsageDate != today {
			u.UsageDate = today
			u.DailyTextCount = 0
			u.DailyVoiceCount = 0
		}
		counter := &u.DailyTextCount
		if kind == models.UsageVoice {
			counter = &u.DailyVoiceCount
		}
		check.Limit = s.limitFor(u, kind, now)
		if *counter >= check.Limit {
			check.Used = *counter
			return nil
		}
		*counter++
		check.Used = *counter
		check.Allowed = true
		return nil
	})
	if err != nil {
		return UsageCheck{}, fmt.Errorf("check usage: %w", err)
	}
	return check, nil
}

// ActivatePremium sets premium_until to now+days. Re-activation does not stack.
func (s *UsageService) ActivatePremium(ctx context.Context, telegramID int64, days int) (*models.User, error) {
	now := s.now()
	until := now.Add(time.Duration(days) * 24 * time.Hour)
	user, err := s.db.UpdateUserDB(ctx, telegramID, func(u *models.User) error {
		u.IsPremium = true
		u.PremiumUntil = &until
		if u.TrialStatus == models.TrialPending {
			u.TrialStatus = models.TrialNone
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("activate premium: %w", err)
	}
	log.Info().Int64("user_id", telegramID).Time("premium_until", until).Msg("Premium activated")
	return user, nil
}

// CheckExpiry flips every lapsed premium account back to free and returns them; the
// length of the result is the number deactivated. Accounts that fail to update are
// logged and left for the next run.
func (s *UsageService) CheckExpiry(ctx context.Context) ([]int64, error) {
	now := s.now()
	ids, err := s.db.ListExpiredPremiumDB(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("list expired premium: %w", err)
	}

	var expired []int64
	for _, id := range ids {
		changed := false
		_, err := s.db.UpdateUserDB(ctx, id, func(u *models.User) error {
			if !u.IsPremium || u.PremiumActive(now) {
				return errNoUpdate
			}
			u.IsPremium = false
			if u.TrialStatus == models.TrialActive {
				u.TrialStatus = models.TrialNone
			}
			changed = true
			return nil
		})
		if err != nil {
			log.Error().Err(err).Int64("user_id", id).Msg("Failed to expire premium")
			continue
		}
		if changed {
			expired = append(expired, id)
		}
	}
	return expired, nil
}

// ProcessTrialActivations grants the delayed trial to pending, non-premium accounts
// old enough and returns them. Eligibility is re-checked under the row lock, so a
// second run activates nobody twice.
func (s *UsageService) ProcessTrialActivations(ctx context.Context) ([]int64, error) {
	now := s.now()
	cutoff := now.Add(-s.trial.Delay)
	ids, err := s.db.ListPendingTrialsDB(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("list pending trials: %w", err)
	}

	until := now.Add(time.Duration(s.trial.Days) * 24 * time.Hour)
	var activated []int64
	for _, id := range ids {
		changed := false
		_, err := s.db.UpdateUserDB(ctx, id, func(u *models.User) error {
			if u.TrialStatus != models.TrialPending || u.IsPremium || u.CreatedAt.After(cutoff) {
				return errNoUpdate
			}
			u.TrialStatus = models.TrialActive
			u.IsPremium = true
			u.PremiumUntil = &until
			changed = true
			return nil
		})
		if err != nil {
			log.Error().Err(err).Int64("user_id", id).Msg("Failed to activate trial")
			continue
		}
		if changed {
			activated = append(activated, id)
		}
	}
	return activated, nil
}

// Status is read-only: counters from a previous day are reported as zero.
func (s *UsageService) Status(ctx context.Context, telegramID int64) (UsageStatus, error) {
	user, err := s.db.GetUserDB(ctx, telegramID)
	if err != nil {
		return UsageStatus{}, err
	}
	now := s.now()
	status := UsageStatus{
		Premium:     user.PremiumActive(now),
		TrialStatus: user.TrialStatus,
		TextLimit:   s.limitFor(user, models.UsageText, now),
		VoiceLimit:  s.limitFor(user, models.UsageVoice, now),
	}
	if status.Premium {
		status.PremiumUntil = user.PremiumUntil
	}
	if user.UsageDate == s.today(now) {
		status.TextUsed = user.DailyTextCount
		status.VoiceUsed = user.DailyVoiceCount
	}
	return status, nil
}
