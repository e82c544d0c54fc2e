package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/segyhp/rental-billing/internal/cache"
	"github.com/segyhp/rental-billing/internal/config"
	"github.com/segyhp/rental-billing/internal/jobs"
	"github.com/segyhp/rental-billing/internal/notify"
	"github.com/segyhp/rental-billing/internal/repository"
	"github.com/segyhp/rental-billing/internal/service"
	"github.com/segyhp/rental-billing/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}
	log := logger.New(cfg.Logging)
	log.Info("Starting billing scheduler...")

	db, err := sqlx.Connect("postgres", cfg.Database.DSN())
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize database")
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	// The scheduler needs Redis for its job locks
	redisClient, err := cache.New(context.Background(), cfg.Redis.Addr(), cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to Redis")
	}
	defer redisClient.Close()

	billingService := service.NewBillingService(
		repository.NewLeaseRepository(db),
		repository.NewScheduleRepository(db),
		cache.NewScheduleCache(redisClient, cfg.Redis.CacheTTL),
		cfg,
		log,
	)

	runner := jobs.NewRunner(billingService, cache.NewLocker(redisClient), newNotifier(cfg, log), cfg, log)

	c := cron.New(cron.WithSeconds(), cron.WithLocation(cfg.Location()))
	if err := runner.Register(c); err != nil {
		log.WithError(err).Fatal("Failed to schedule jobs")
	}

	c.Start()
	log.WithFields(logrus.Fields{
		"overdue_cron":  cfg.Scheduler.OverdueCron,
		"reminder_cron": cfg.Scheduler.ReminderCron,
		"timezone":      cfg.Scheduler.Timezone,
	}).Info("Scheduler started successfully")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down scheduler...")
	<-c.Stop().Done()
	log.Info("Scheduler stopped")
}

func newNotifier(cfg *config.Config, log *logrus.Logger) notify.Notifier {
	if !cfg.Notify.Enabled() {
		log.Info("SMTP not configured, payment reminders go to the log")
		return notify.NewLogNotifier(log)
	}

	var to []string
	for _, addr := range strings.Split(cfg.Notify.To, ",") {
		if addr = strings.TrimSpace(addr); addr != "" {
			to = append(to, addr)
		}
	}

	return notify.NewEmailNotifier(notify.SMTPConfig{
		Host:     cfg.Notify.SMTPHost,
		Port:     cfg.Notify.SMTPPort,
		Username: cfg.Notify.SMTPUsername,
		Password: cfg.Notify.SMTPPassword,
		From:     cfg.Notify.From,
		To:       to,
	}, log)
}
