package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/segyhp/lending-engine/internal/app"
	"github.com/segyhp/lending-engine/internal/config"
	"github.com/segyhp/lending-engine/internal/service"
	"github.com/segyhp/lending-engine/pkg/logger"
)

// sweepTimeout bounds a single overdue sweep.
const sweepTimeout = 10 * time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New("info", "json").WithError(err).Fatal("Failed to load configuration")
	}
	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	log.Info("Starting lending scheduler...")

	ctx := context.Background()

	db, err := app.OpenDatabase(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize database")
	}
	defer db.Close()

	redisClient := app.OpenRedis(ctx, cfg, log)
	if redisClient != nil {
		defer redisClient.Close()
	}

	lendingService := app.NewLendingService(cfg, db, redisClient, log)

	c := cron.New(
		cron.WithSeconds(),
		cron.WithLocation(cfg.GetSchedulerLocation()),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)

	if err := setupCronJobs(c, cfg, lendingService, log); err != nil {
		log.WithError(err).Fatal("Failed to schedule jobs")
	}

	c.Start()
	log.Info("Scheduler started successfully")

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down scheduler...")
	<-c.Stop().Done()
	log.Info("Scheduler stopped")
}

func setupCronJobs(c *cron.Cron, cfg *config.Config, svc *service.LendingService, log logrus.FieldLogger) error {
	// Daily sweep marking overdue installments
	_, err := c.AddFunc(cfg.Scheduler.OverdueSpec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
		defer cancel()

		log.Info("Running overdue sweep...")
		if _, err := svc.SweepOverdue(ctx); err != nil {
			log.WithError(err).Error("Overdue sweep failed")
		}
	})
	if err != nil {
		return err
	}

	log.WithField("spec", cfg.Scheduler.OverdueSpec).Info("Cron jobs scheduled successfully")
	return nil
}
