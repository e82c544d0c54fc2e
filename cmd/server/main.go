package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/segyhp/rental-billing/internal/cache"
	"github.com/segyhp/rental-billing/internal/config"
	"github.com/segyhp/rental-billing/internal/handler"
	"github.com/segyhp/rental-billing/internal/repository"
	"github.com/segyhp/rental-billing/internal/service"
	"github.com/segyhp/rental-billing/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}
	log := logger.New(cfg.Logging)

	// Initialize database
	db, err := initDB(cfg)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize database")
	}
	defer db.Close()

	// Redis is optional for the API; without it schedules are read straight from Postgres
	redisClient := initRedis(cfg, log)
	if redisClient != nil {
		defer redisClient.Close()
	}

	leaseRepo := repository.NewLeaseRepository(db)
	scheduleRepo := repository.NewScheduleRepository(db)

	billingService := service.NewBillingService(
		leaseRepo,
		scheduleRepo,
		cache.NewScheduleCache(redisClient, cfg.Redis.CacheTTL),
		cfg,
		log,
	)
	billingHandler := handler.NewBillingHandler(billingService, cfg, log)
	healthHandler := handler.NewHealthHandler(db, redisClient, cfg.Health.Timeout)

	router := handler.NewRouter(billingHandler, healthHandler, log)

	server := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.WithField("addr", server.Addr).Info("Server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("Server failed to start")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.WithError(err).Fatal("Server forced to shutdown")
	}

	log.Info("Server exited")
}

func initDB(cfg *config.Config) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", cfg.Database.DSN())
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	return db, nil
}

func initRedis(cfg *config.Config, log *logrus.Logger) *redis.Client {
	client, err := cache.New(context.Background(), cfg.Redis.Addr(), cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.WithError(err).Warn("Redis unavailable, schedule cache disabled")
		return nil
	}
	return client
}
