package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mamadbah2/delivery-ledger/internal/config"
	"github.com/mamadbah2/delivery-ledger/internal/domain/models"
	"github.com/mamadbah2/delivery-ledger/internal/query"
	"github.com/mamadbah2/delivery-ledger/internal/repository"
	"github.com/mamadbah2/delivery-ledger/pkg/clients/webhook"
)

// Scheduler manages scheduled tasks. Currently the only job is the daily
// nudge for deliveries that were sent but never confirmed received.
type Scheduler struct {
	cron     *cron.Cron
	store    repository.Store
	notifier webhook.Client
	cfg      config.ReminderConfig
	logger   *zap.Logger
	now      func() time.Time
}

// NewScheduler creates a new scheduler instance.
func NewScheduler(cfg config.ReminderConfig, store repository.Store, notifier webhook.Client, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		logger.Warn("invalid timezone, falling back to local",
			zap.String("timezone", cfg.Timezone), zap.Error(err))
		loc = time.Local
	}

	// robfig/cron/v3 default parser is standard cron (5 fields).
	c := cron.New(cron.WithLocation(loc))

	return &Scheduler{
		cron:     c,
		store:    store,
		notifier: notifier,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// Start starts the scheduler.
func (s *Scheduler) Start() {
	s.logger.Info("starting scheduler", zap.String("schedule", s.cfg.CronSchedule))

	_, err := s.cron.AddFunc(s.cfg.CronSchedule, s.remindStaleDeliveries)
	if err != nil {
		s.logger.Error("failed to schedule stale delivery reminder", zap.Error(err))
	}

	s.cron.Start()
}

// Stop stops the scheduler.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	s.cron.Stop()
}

func (s *Scheduler) remindStaleDeliveries() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	stale, err := s.findStale(ctx)
	if err != nil {
		s.logger.Error("failed to collect stale deliveries", zap.Error(err))
		return
	}
	if len(stale) == 0 {
		s.logger.Info("no stale deliveries")
		return
	}

	sent := 0
	for _, d := range stale {
		if err := s.notifier.SendEvent(ctx, webhook.EventReminder, d); err != nil {
			s.logger.Error("failed to send reminder",
				zap.String("id", d.ID), zap.Error(err))
			continue
		}
		sent++
	}
	s.logger.Info("stale delivery reminders sent",
		zap.Int("stale", len(stale)), zap.Int("sent", sent))
}

// findStale returns deliveries still marked sent whose delivery date is
// StaleAfterDays or more days in the past. The boundary day counts: a slip
// sent exactly StaleAfterDays ago has gone unconfirmed for the full window.
func (s *Scheduler) findStale(ctx context.Context) ([]models.Delivery, error) {
	cutoff := s.now().AddDate(0, 0, -s.cfg.StaleAfterDays).Format("2006-01-02")
	return s.store.List(ctx, query.Criteria{
		Status: string(models.StatusSent),
		DateTo: cutoff,
	})
}
