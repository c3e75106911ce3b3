package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/saglikops/checkup-tracker/internal/api/router"
	"github.com/saglikops/checkup-tracker/internal/app/bootstrap"
	"github.com/saglikops/checkup-tracker/internal/checkup"
	"github.com/saglikops/checkup-tracker/internal/commands"
	appconfig "github.com/saglikops/checkup-tracker/internal/config"
	"github.com/saglikops/checkup-tracker/internal/http/handlers"
	"github.com/saglikops/checkup-tracker/internal/notify"
	"github.com/saglikops/checkup-tracker/internal/observability/metrics"
	"github.com/saglikops/checkup-tracker/internal/reminder"
	"github.com/saglikops/checkup-tracker/internal/templates"
	"github.com/saglikops/checkup-tracker/internal/webhook"
	"github.com/saglikops/checkup-tracker/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting checkup-tracker API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := bootstrap.BuildPgxPool(ctx, cfg)
	if err != nil {
		logger.Error("database unavailable", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	sqlDB, err := bootstrap.BuildSQLDB(cfg)
	if err != nil {
		logger.Error("sql db unavailable", "error", err)
		os.Exit(1)
	}
	defer func() { _ = sqlDB.Close() }()

	store := checkup.NewStore(pool)
	packages := checkup.NewPackageRepository(sqlDB)
	engine := templates.NewEngine(cfg.Location())
	trackerMetrics := metrics.NewTrackerMetrics(nil)

	sender := bootstrap.BuildSender(cfg, logger)
	broadcaster := notify.NewBroadcaster(sender, logger).
		WithWorkers(cfg.FanOutWorkers).
		WithSendTimeout(cfg.SendTimeout)
	if email := bootstrap.BuildEmailSender(ctx, cfg, logger); email != nil {
		broadcaster = broadcaster.WithEmail(email)
		logger.Info("staff email channel enabled")
	}

	statusNotifier := notify.NewStatusNotifier(store, broadcaster, engine, logger)
	dispatcher := commands.NewDispatcher(store, packages, statusNotifier, logger).
		WithMetrics(trackerMetrics)

	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger)
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
	}
	deduper := webhook.NewDeduper(redisClient, cfg.WebhookDedupTTL, logger)
	webhookHandler := webhook.NewHandler(cfg.TwilioAuthToken, dispatcher, store, deduper, logger).
		WithMetrics(trackerMetrics)

	adminHandler := handlers.NewAdminHandler(store, packages, statusNotifier, sender, cfg.Location(), logger)

	r := router.New(&router.Config{
		Logger:          logger,
		WebhookHandler:  webhookHandler,
		AdminHandler:    adminHandler,
		AdminAuthSecret: cfg.AdminJWTSecret,
		MetricsHandler:  promhttp.Handler(),
	})

	scheduler := reminder.NewScheduler(store, broadcaster, engine, logger).
		WithInterval(cfg.ReminderInterval).
		WithLookahead(cfg.ReminderLookahead).
		WithMetrics(trackerMetrics)
	go scheduler.Run(ctx)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", "error", err)
	}
	logger.Info("shutdown complete")
}
