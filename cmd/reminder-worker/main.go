package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/saglikops/checkup-tracker/internal/app/bootstrap"
	"github.com/saglikops/checkup-tracker/internal/checkup"
	appconfig "github.com/saglikops/checkup-tracker/internal/config"
	"github.com/saglikops/checkup-tracker/internal/notify"
	"github.com/saglikops/checkup-tracker/internal/observability/metrics"
	"github.com/saglikops/checkup-tracker/internal/reminder"
	"github.com/saglikops/checkup-tracker/internal/templates"
	"github.com/saglikops/checkup-tracker/pkg/logging"
)

// Standalone reminder loop, for deployments that scale the API and the
// scheduler separately. Run exactly one instance: the scheduler assumes
// it is the only writer of the notified flag.
func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting checkup-tracker reminder worker",
		"env", cfg.Env,
		"interval", cfg.ReminderInterval.String(),
		"lookahead", cfg.ReminderLookahead.String(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := bootstrap.BuildPgxPool(ctx, cfg)
	if err != nil {
		logger.Error("database unavailable", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	store := checkup.NewStore(pool)
	engine := templates.NewEngine(cfg.Location())
	trackerMetrics := metrics.NewTrackerMetrics(nil)

	sender := bootstrap.BuildSender(cfg, logger)
	broadcaster := notify.NewBroadcaster(sender, logger).
		WithWorkers(cfg.FanOutWorkers).
		WithSendTimeout(cfg.SendTimeout)
	if email := bootstrap.BuildEmailSender(ctx, cfg, logger); email != nil {
		broadcaster = broadcaster.WithEmail(email)
	}

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
		if err := http.ListenAndServe(":"+cfg.Port, mux); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server error", "error", err)
		}
	}()

	scheduler := reminder.NewScheduler(store, broadcaster, engine, logger).
		WithInterval(cfg.ReminderInterval).
		WithLookahead(cfg.ReminderLookahead).
		WithMetrics(trackerMetrics)
	scheduler.Run(ctx)

	logger.Info("reminder worker stopped")
}
