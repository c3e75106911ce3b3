package reminder

import (
	"context"
	"time"

	"github.com/saglikops/checkup-tracker/internal/checkup"
	"github.com/saglikops/checkup-tracker/internal/notify"
	"github.com/saglikops/checkup-tracker/internal/observability/metrics"
	"github.com/saglikops/checkup-tracker/internal/templates"
	"github.com/saglikops/checkup-tracker/pkg/logging"
)

// Store is the storage surface the scheduler needs.
type Store interface {
	DueReminders(ctx context.Context, now time.Time, lookahead time.Duration) ([]checkup.Reminder, error)
	MarkNotified(ctx context.Context, reminderID int64) (bool, error)
	ActiveStaff(ctx context.Context) ([]checkup.Staff, error)
}

// Scheduler periodically picks up visit reminders that fall due within the
// lookahead window and fans a reminder message out to active staff exactly
// once per event.
//
// An event is due when scheduled_at <= now+lookahead and it has not been
// notified yet. This is the widened-window policy: a delayed or skipped
// tick catches up on the next cadence instead of silently missing the
// event's exact minute.
type Scheduler struct {
	store       Store
	broadcaster *notify.Broadcaster
	engine      *templates.Engine
	logger      *logging.Logger
	metrics     *metrics.TrackerMetrics
	interval    time.Duration
	lookahead   time.Duration
	now         func() time.Time
}

// NewScheduler creates a reminder scheduler.
func NewScheduler(store Store, broadcaster *notify.Broadcaster, engine *templates.Engine, logger *logging.Logger) *Scheduler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Scheduler{
		store:       store,
		broadcaster: broadcaster,
		engine:      engine,
		logger:      logger,
		interval:    time.Minute,
		lookahead:   10 * time.Minute,
		now:         time.Now,
	}
}

func (s *Scheduler) WithInterval(d time.Duration) *Scheduler {
	if d > 0 {
		s.interval = d
	}
	return s
}

func (s *Scheduler) WithLookahead(d time.Duration) *Scheduler {
	if d > 0 {
		s.lookahead = d
	}
	return s
}

func (s *Scheduler) WithMetrics(m *metrics.TrackerMetrics) *Scheduler {
	s.metrics = m
	return s
}

// WithNow overrides the time source. Tests pin this to a fixed clock.
func (s *Scheduler) WithNow(now func() time.Time) *Scheduler {
	if now != nil {
		s.now = now
	}
	return s
}

// Run executes ticks on the configured cadence until ctx is cancelled.
// Ticks are serialized by the loop itself; a slow tick delays the next one
// but two ticks never overlap.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	s.logger.Info("reminder scheduler started",
		"interval", s.interval.String(),
		"lookahead", s.lookahead.String(),
	)
	s.Tick(ctx)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("reminder scheduler stopped")
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick processes one scheduler pass. A storage read failure skips the
// whole pass (retried on the next cadence); a single bad event is logged
// and the pass continues.
func (s *Scheduler) Tick(ctx context.Context) {
	if s.store == nil {
		return
	}
	now := s.now()
	due, err := s.store.DueReminders(ctx, now, s.lookahead)
	if err != nil {
		s.logger.Error("reminder tick: fetch due failed, skipping tick", "error", err)
		s.metrics.ObserveReminderEvent("error")
		return
	}
	if len(due) == 0 {
		return
	}

	staff, err := s.store.ActiveStaff(ctx)
	if err != nil {
		s.logger.Error("reminder tick: fetch staff failed, skipping tick", "error", err)
		s.metrics.ObserveReminderEvent("error")
		return
	}

	for _, event := range due {
		s.processOne(ctx, event, staff)
	}
}

// processOne fans out one reminder and flips its notified flag. The flag
// is written after the fan-out attempt completes, and written even when
// every send failed: each event gets at most one reminder attempt-batch.
func (s *Scheduler) processOne(ctx context.Context, event checkup.Reminder, staff []checkup.Staff) {
	body, err := s.engine.Reminder(event.PatientName, event.Department, event.ScheduledAt)
	if err != nil {
		s.logger.Error("reminder tick: render failed", "error", err, "reminder_id", event.ID)
		s.metrics.ObserveReminderEvent("error")
		return
	}

	result := s.broadcaster.Broadcast(ctx, staff, "Randevu hatırlatması", body)
	s.metrics.ObserveFanOut(result.Sent, result.Failed)

	updated, err := s.store.MarkNotified(ctx, event.ID)
	if err != nil {
		s.logger.Error("reminder tick: mark notified failed", "error", err, "reminder_id", event.ID)
		s.metrics.ObserveReminderEvent("error")
		return
	}
	if !updated {
		// Row vanished or another pass won the race; nothing to repair.
		s.logger.Warn("reminder already notified or gone", "reminder_id", event.ID)
		s.metrics.ObserveReminderEvent("stale")
		return
	}

	s.logger.Info("reminder sent",
		"reminder_id", event.ID,
		"checkup_id", event.CheckupID,
		"scheduled_at", event.ScheduledAt.Format(time.RFC3339),
		"sent", result.Sent,
		"failed", result.Failed,
	)
	s.metrics.ObserveReminderEvent("notified")
}
