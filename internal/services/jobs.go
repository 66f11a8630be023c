package services

import (
	"context"
	"sync"
	"time"

	"chefbot_go_backend/internal/models"

	"github.com/rs/zerolog/log"
)

type ScheduleConfig struct {
	CacheSweep   time.Duration
	PremiumSweep time.Duration
	TrialSweep   time.Duration
	SessionSweep time.Duration
	TrialDays    int
}

// Scheduler runs the periodic maintenance jobs. Every iteration is self-contained: a
// failed run is logged and retried on the next tick.
type Scheduler struct {
	cache    ResponseCache
	ledger   UsageLedger
	sessions SessionStore
	events   EventRecorder
	notifier *Notifier
	cfg      ScheduleConfig
}

func NewScheduler(
	cache ResponseCache,
	ledger UsageLedger,
	sessions SessionStore,
	events EventRecorder,
	notifier *Notifier,
	cfg ScheduleConfig,
) *Scheduler {
	return &Scheduler{
		cache:    cache,
		ledger:   ledger,
		sessions: sessions,
		events:   events,
		notifier: notifier,
		cfg:      cfg,
	}
}

// Run blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	jobs := []struct {
		name     string
		interval time.Duration
		run      func(context.Context)
	}{
		{"cache_sweep", s.cfg.CacheSweep, func(ctx context.Context) { s.SweepCache(ctx) }},
		{"premium_expiry", s.cfg.PremiumSweep, func(ctx context.Context) { s.ExpirePremium(ctx) }},
		{"trial_activation", s.cfg.TrialSweep, func(ctx context.Context) { s.ActivateTrials(ctx) }},
		{"session_eviction", s.cfg.SessionSweep, func(context.Context) { s.EvictSessions() }},
	}

	var wg sync.WaitGroup
	for _, job := range jobs {
		if job.interval <= 0 {
			log.Info().Str("job", job.name).Msg("Job disabled")
			continue
		}
		wg.Add(1)
		go func(name string, interval time.Duration, run func(context.Context)) {
			defer wg.Done()
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					run(ctx)
				}
			}
		}(job.name, job.interval, job.run)
	}
	wg.Wait()
	log.Info().Msg("Scheduler stopped")
}

func (s *Scheduler) SweepCache(ctx context.Context) int64 {
	removed, err := s.cache.SweepExpired(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Cache sweep failed")
		return 0
	}
	if removed > 0 {
		log.Info().Int64("count", removed).Msg("Removed expired cache entries")
	}
	return removed
}

func (s *Scheduler) ExpirePremium(ctx context.Context) int {
	ids, err := s.ledger.CheckExpiry(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Premium expiry sweep failed")
		return 0
	}
	for _, id := range ids {
		s.events.Record(ctx, id, models.EventPremiumExpired, "")
		s.notifier.Notify(ctx, id, "notify_premium_expired", nil)
	}
	if len(ids) > 0 {
		log.Info().Int("count", len(ids)).Msg("Deactivated expired premium accounts")
	}
	return len(ids)
}

func (s *Scheduler) ActivateTrials(ctx context.Context) int {
	ids, err := s.ledger.ProcessTrialActivations(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Trial activation sweep failed")
		return 0
	}
	for _, id := range ids {
		s.events.Record(ctx, id, models.EventTrialActivated, "")
		s.notifier.Notify(ctx, id, "notify_trial", map[string]any{"days": s.cfg.TrialDays})
	}
	if len(ids) > 0 {
		log.Info().Int("count", len(ids)).Msg("Activated trials")
	}
	return len(ids)
}

func (s *Scheduler) EvictSessions() int {
	return s.sessions.CleanupExpiredSessions()
}
