package notify

import (
	"context"
	"fmt"

	"github.com/saglikops/checkup-tracker/internal/checkup"
	"github.com/saglikops/checkup-tracker/internal/templates"
	"github.com/saglikops/checkup-tracker/pkg/logging"
)

// StatusStore is the storage surface the status notifier needs.
type StatusStore interface {
	CheckupByID(ctx context.Context, id int64) (*checkup.Checkup, error)
	TasksForCheckup(ctx context.Context, checkupID int64) ([]checkup.Task, error)
	ActiveStaff(ctx context.Context) ([]checkup.Staff, error)
}

// StatusNotifier broadcasts a full done/remaining snapshot for a check-up
// after any task status change. Every toggle re-fires: the message is a
// complete snapshot, so repeated sends carry identical content.
type StatusNotifier struct {
	store       StatusStore
	broadcaster *Broadcaster
	engine      *templates.Engine
	logger      *logging.Logger
}

// NewStatusNotifier creates a status notifier.
func NewStatusNotifier(store StatusStore, broadcaster *Broadcaster, engine *templates.Engine, logger *logging.Logger) *StatusNotifier {
	if logger == nil {
		logger = logging.Default()
	}
	return &StatusNotifier{
		store:       store,
		broadcaster: broadcaster,
		engine:      engine,
		logger:      logger,
	}
}

// NotifyStatusChange recomputes the check-up's task partition and fans the
// snapshot out to all active staff. The caller is never blocked by send
// failures; it only sees aggregate counts.
func (n *StatusNotifier) NotifyStatusChange(ctx context.Context, checkupID int64) (BatchResult, error) {
	c, err := n.store.CheckupByID(ctx, checkupID)
	if err != nil {
		return BatchResult{}, fmt.Errorf("notify: status change: %w", err)
	}
	if c == nil {
		// Check-up deleted between toggle and broadcast; nothing to say.
		return BatchResult{}, nil
	}

	tasks, err := n.store.TasksForCheckup(ctx, checkupID)
	if err != nil {
		return BatchResult{}, fmt.Errorf("notify: status change: %w", err)
	}

	pending, done := Partition(tasks)
	body, err := n.engine.Status(c.PatientName, pending, done)
	if err != nil {
		return BatchResult{}, fmt.Errorf("notify: status change: %w", err)
	}

	staff, err := n.store.ActiveStaff(ctx)
	if err != nil {
		return BatchResult{}, fmt.Errorf("notify: status change: %w", err)
	}

	subject := fmt.Sprintf("Check-up durumu: %s", c.PatientName)
	result := n.broadcaster.Broadcast(ctx, staff, subject, body)
	n.logger.Info("status update broadcast",
		"checkup_id", checkupID,
		"sent", result.Sent,
		"failed", result.Failed,
	)
	return result, nil
}

// Partition splits tasks into pending and done name lists, preserving
// creation order. Every task lands in exactly one list.
func Partition(tasks []checkup.Task) (pending, done []string) {
	for _, t := range tasks {
		if t.Status == checkup.StatusDone {
			done = append(done, t.Name)
			continue
		}
		pending = append(pending, t.Name)
	}
	return pending, done
}
