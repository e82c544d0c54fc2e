// Package jobs holds the periodic work run by the scheduler binary.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/segyhp/rental-billing/internal/cache"
	"github.com/segyhp/rental-billing/internal/config"
	"github.com/segyhp/rental-billing/internal/domain"
	"github.com/segyhp/rental-billing/internal/notify"
	"github.com/segyhp/rental-billing/pkg/utils"
)

// Billing is the part of service.BillingService the jobs call.
type Billing interface {
	Today() time.Time
	ScanOverdue(ctx context.Context, today time.Time) (*domain.ScanResponse, error)
	UpcomingPayments(ctx context.Context, today time.Time, days int) ([]domain.UpcomingPayment, error)
}

type Runner struct {
	billing  Billing
	locker   *cache.Locker
	notifier notify.Notifier
	cfg      *config.Config
	logger   logrus.FieldLogger
}

func NewRunner(billing Billing, locker *cache.Locker, notifier notify.Notifier, cfg *config.Config, logger logrus.FieldLogger) *Runner {
	return &Runner{
		billing:  billing,
		locker:   locker,
		notifier: notifier,
		cfg:      cfg,
		logger:   logger,
	}
}

// Register schedules both jobs on c. c must be created with seconds enabled.
func (r *Runner) Register(c *cron.Cron) error {
	if _, err := c.AddFunc(r.cfg.Scheduler.OverdueCron, func() {
		if _, err := r.RunOverdueScan(context.Background()); err != nil {
			r.logger.WithError(err).Error("Overdue scan job failed")
		}
	}); err != nil {
		return fmt.Errorf("schedule overdue scan: %w", err)
	}

	if _, err := c.AddFunc(r.cfg.Scheduler.ReminderCron, func() {
		if err := r.SendReminders(context.Background()); err != nil {
			r.logger.WithError(err).Error("Payment reminder job failed")
		}
	}); err != nil {
		return fmt.Errorf("schedule payment reminders: %w", err)
	}

	return nil
}

// RunOverdueScan posts today's penalties. The per-day lock keeps replicas from
// scanning the same day twice; it is released only when the scan fails so that
// another replica may retry. A nil result with nil error means another replica
// holds the lock.
func (r *Runner) RunOverdueScan(ctx context.Context) (*domain.ScanResponse, error) {
	today := r.billing.Today()
	key := "lock:overdue-scan:" + today.Format(utils.DateLayout)

	lock, err := r.locker.Acquire(ctx, key, r.cfg.Scheduler.LockTTL)
	if errors.Is(err, cache.ErrLockHeld) {
		r.logger.WithField("date", today.Format(utils.DateLayout)).Info("Overdue scan already running or done elsewhere")
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	result, err := r.billing.ScanOverdue(ctx, today)
	if err != nil {
		if releaseErr := lock.Release(ctx); releaseErr != nil {
			r.logger.WithError(releaseErr).Warn("Failed to release overdue scan lock")
		}
		return nil, err
	}
	return result, nil
}

// SendReminders sends the digest of payments due within the reminder window.
func (r *Runner) SendReminders(ctx context.Context) error {
	today := r.billing.Today()
	key := "lock:payment-reminders:" + today.Format(utils.DateLayout)

	lock, err := r.locker.Acquire(ctx, key, r.cfg.Scheduler.LockTTL)
	if errors.Is(err, cache.ErrLockHeld) {
		r.logger.WithField("date", today.Format(utils.DateLayout)).Info("Payment reminders already sent elsewhere")
		return nil
	}
	if err != nil {
		return err
	}

	days := r.cfg.Business.ReminderWindowDays
	upcoming, err := r.billing.UpcomingPayments(ctx, today, days)
	if err == nil {
		err = r.notifier.SendDigest(ctx, notify.Digest{GeneratedAt: today, WindowDays: days, Upcoming: upcoming})
	}
	if err != nil {
		if releaseErr := lock.Release(ctx); releaseErr != nil {
			r.logger.WithError(releaseErr).Warn("Failed to release payment reminder lock")
		}
		return err
	}

	r.logger.WithField("count", len(upcoming)).Info("Payment reminders sent")
	return nil
}
