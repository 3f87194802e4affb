// Package main implements a monitor that polls a community EV
// charging-station API and pushes chat-webhook notifications when queue
// state changes: a session starts, charging time is almost up, or a queued
// subscriber's turn arrives.
package main

import (
	"context"
	"evqueue-notifier/config"
	"evqueue-notifier/monitor"
	"evqueue-notifier/notify"
	"evqueue-notifier/stationapi"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-co-op/gocron"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize structured logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	var provider notify.Provider
	if cfg.Debug {
		logger.Info("Debug mode enabled, notifications go to the log only")
		provider = notify.NewLogProvider(logger)
	} else {
		provider = notify.NewWebhookProvider(cfg.WebhookURL, cfg.WebhookToken, logger)
	}
	sender := notify.New(provider, logger)

	client := stationapi.New(cfg.BaseURL, cfg.Username, cfg.Password, cfg.DeviceID,
		cfg.AuthRefreshInterval, logger)

	mon := monitor.New(client, sender, monitor.Options{
		Recipients:    cfg.Recipients,
		WarningOffset: cfg.WarningOffset,
		WorkdayStart:  cfg.WorkdayStart,
		WorkdayEnd:    cfg.WorkdayEnd,
	}, logger)

	// SingletonMode keeps cycles strictly sequential: the next tick never
	// overlaps a running one, so the monitor state needs no locking.
	scheduler := gocron.NewScheduler(time.Local)
	if _, err := scheduler.Every(cfg.PollInterval).SingletonMode().StartImmediately().Do(func() {
		mon.Run(ctx)
	}); err != nil {
		logger.Error("Failed to schedule poll job", "error", err)
		os.Exit(1)
	}
	scheduler.StartAsync()

	logger.Info("Station monitor started",
		"device_id", cfg.DeviceID,
		"poll_interval", cfg.PollInterval.String(),
		"auth_refresh_interval", cfg.AuthRefreshInterval.String(),
		"workday_start", cfg.WorkdayStart,
		"workday_end", cfg.WorkdayEnd,
		"recipients", len(cfg.Recipients),
		"debug", cfg.Debug)

	<-ctx.Done()
	scheduler.Stop()
	logger.Info("Station monitor stopped")
}
