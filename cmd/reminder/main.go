package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mamontuka/tuya-iot-core-reminder/internal/app"
	"github.com/mamontuka/tuya-iot-core-reminder/internal/domain/expiry"
	"github.com/mamontuka/tuya-iot-core-reminder/internal/domain/reminder"
	"github.com/mamontuka/tuya-iot-core-reminder/internal/infra/config"
	"github.com/mamontuka/tuya-iot-core-reminder/internal/infra/homeassistant"
	"github.com/mamontuka/tuya-iot-core-reminder/internal/infra/logger"
	"github.com/mamontuka/tuya-iot-core-reminder/internal/infra/scheduler"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Get().Fatalf("FATAL: Could not load add-on configuration: %v", err)
	}

	logger.Init(cfg.Debug)
	log := logger.Get()
	log.Infof("Configuration loaded. Expiry: %s %s (%s), NotifyService: %s, PushCount: %d, PushIntervalMin: %d, Debug: %t",
		cfg.ExpiryDate, cfg.ExpiryTime, cfg.DateFormat, cfg.NotifyService, cfg.PushCount, cfg.PushIntervalMin, cfg.Debug)

	expiryAt, err := expiry.Parse(cfg.ExpiryDate, cfg.ExpiryTime, cfg.DateFormat)
	if err != nil {
		log.Fatalf("FATAL: Could not parse expiry deadline: %v", err)
	}
	log.Infof("Expiry deadline resolved to %s", expiryAt.Format(time.RFC3339))

	if cfg.SupervisorToken == "" {
		log.Warn("SUPERVISOR_TOKEN is missing! Notification sends will fail until it is provided.")
	}

	hassClient := homeassistant.NewSupervisorClient(cfg.SupervisorURL, cfg.SupervisorToken, log)
	tracker := reminder.NewTracker(reminder.Thresholds)
	reminderService := app.NewReminderService(
		hassClient,
		tracker,
		log,
		expiryAt,
		cfg.NotifyService,
		cfg.PushCount,
		cfg.PushIntervalMin,
	)
	log.Info("Reminder service initialized.")

	startupCtx, cancelStartup := context.WithTimeout(context.Background(), 5*time.Minute)
	reminderService.AnnounceTargets(startupCtx)
	reminderService.SendStartupStatus(startupCtx, time.Now().UTC())
	cancelStartup()

	expiryScheduler := scheduler.NewExpiryScheduler(reminderService, log)
	expiryScheduler.Start()

	log.Info("Application setup complete. Scheduler is running.")

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down application...")
	expiryScheduler.Stop()
	log.Info("Application shut down gracefully.")
}
