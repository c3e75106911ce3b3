package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/saglikops/checkup-tracker/internal/checkup"
	"github.com/saglikops/checkup-tracker/internal/notify"
	"github.com/saglikops/checkup-tracker/internal/observability/metrics"
	"github.com/saglikops/checkup-tracker/internal/templates"
	"github.com/saglikops/checkup-tracker/pkg/logging"
)

// Turkish replies sent back over the chat channel.
const (
	replyHelp = "Komutlar:\n" +
		"KAYIT Ad Soyad; Telefon; Paket; YYYY-AA-GG\n" +
		"DURUM\n" +
		"YAPILDI GörevAdı"
	replyRegisterFormat = "Format: KAYIT Ad Soyad; +905xxxxxxxxx; Paket; YYYY-AA-GG"
	replyNoRecord       = "Kayıt bulunamadı. 'KAYIT' komutunu deneyin."
	replyTaskNotFound   = "Görev bulunamadı. 'DURUM' ile kontrol edin."
	replyInternalError  = "Bir hata oluştu, lütfen tekrar deneyin."
)

// Store is the storage surface the dispatcher needs.
type Store interface {
	FindOrCreatePatient(ctx context.Context, name, phone string) (int64, error)
	CreateCheckup(ctx context.Context, patientID int64, packageName string, checkDate time.Time) (int64, error)
	AddTasks(ctx context.Context, checkupID int64, names []string) error
	MostRecentCheckupByPhone(ctx context.Context, phone string) (*checkup.Checkup, error)
	TasksForCheckup(ctx context.Context, checkupID int64) ([]checkup.Task, error)
	FindPendingTaskByName(ctx context.Context, phone, substring string) (*checkup.Task, error)
	SetTaskStatus(ctx context.Context, taskID int64, status checkup.TaskStatus) error
}

// PackageCatalog resolves a package name to its task list.
type PackageCatalog interface {
	TasksForPackage(ctx context.Context, name string) ([]string, error)
}

// StatusNotifier broadcasts the task snapshot after a status change.
type StatusNotifier interface {
	NotifyStatusChange(ctx context.Context, checkupID int64) (notify.BatchResult, error)
}

// Dispatcher interprets one inbound text command and executes exactly one
// state transition, producing a human-readable reply. It is stateless per
// invocation: no multi-turn memory.
type Dispatcher struct {
	store    Store
	packages PackageCatalog
	notifier StatusNotifier
	logger   *logging.Logger
	metrics  *metrics.TrackerMetrics
}

// NewDispatcher creates a command dispatcher. packages and notifier may be
// nil; registration then falls back to the default task list, and task
// completion skips the staff broadcast.
func NewDispatcher(store Store, packages PackageCatalog, notifier StatusNotifier, logger *logging.Logger) *Dispatcher {
	if logger == nil {
		logger = logging.Default()
	}
	return &Dispatcher{
		store:    store,
		packages: packages,
		notifier: notifier,
		logger:   logger,
	}
}

func (d *Dispatcher) WithMetrics(m *metrics.TrackerMetrics) *Dispatcher {
	d.metrics = m
	return d
}

// Dispatch maps (sender phone, raw text) to a reply. It never returns an
// error: the caller is a chat channel with no retry UI, so any internal
// failure is converted to a generic error reply.
func (d *Dispatcher) Dispatch(ctx context.Context, senderPhone, rawText string) string {
	intent := ParseIntent(rawText)
	d.metrics.ObserveInboundCommand(string(intent.Kind))

	var reply string
	var err error
	switch intent.Kind {
	case IntentRegister:
		reply, err = d.register(ctx, intent)
	case IntentQueryStatus:
		reply, err = d.queryStatus(ctx, senderPhone)
	case IntentMarkDone:
		reply, err = d.markDone(ctx, senderPhone, intent)
	default:
		reply = replyHelp
	}
	if err != nil {
		d.logger.Error("command dispatch failed",
			"intent", string(intent.Kind),
			"sender", senderPhone,
			"error", err,
		)
		return replyInternalError
	}
	return reply
}

func (d *Dispatcher) register(ctx context.Context, intent Intent) (string, error) {
	if intent.Malformed {
		return replyRegisterFormat, nil
	}
	checkDate, err := time.Parse("2006-01-02", intent.Date)
	if err != nil {
		return replyRegisterFormat, nil
	}

	tasks := checkup.DefaultTasks()
	if d.packages != nil {
		tasks, err = d.packages.TasksForPackage(ctx, intent.PackageName)
		if err != nil {
			return "", err
		}
	}

	patientID, err := d.store.FindOrCreatePatient(ctx, intent.Name, intent.Phone)
	if err != nil {
		return "", err
	}
	checkupID, err := d.store.CreateCheckup(ctx, patientID, intent.PackageName, checkDate)
	if err != nil {
		return "", err
	}
	if err := d.store.AddTasks(ctx, checkupID, tasks); err != nil {
		return "", err
	}

	d.logger.Info("patient registered",
		"patient_id", patientID,
		"checkup_id", checkupID,
		"package", intent.PackageName,
		"tasks", len(tasks),
	)
	return fmt.Sprintf("Kayıt oluşturuldu. Hasta: %s, Tarih: %s, Paket: %s. Görev sayısı: %d",
		intent.Name, intent.Date, intent.PackageName, len(tasks)), nil
}

func (d *Dispatcher) queryStatus(ctx context.Context, senderPhone string) (string, error) {
	c, err := d.store.MostRecentCheckupByPhone(ctx, senderPhone)
	if err != nil {
		return "", err
	}
	if c == nil {
		return replyNoRecord, nil
	}
	tasks, err := d.store.TasksForCheckup(ctx, c.ID)
	if err != nil {
		return "", err
	}
	pending, done := notify.Partition(tasks)
	return fmt.Sprintf("%s (%s) check-up durumu:\n- Bekleyen: %s\n- Tamamlanan: %s",
		c.PatientName, c.CheckDate.Format("2006-01-02"),
		templates.JoinOrSentinel(pending), templates.JoinOrSentinel(done)), nil
}

func (d *Dispatcher) markDone(ctx context.Context, senderPhone string, intent Intent) (string, error) {
	if intent.Malformed {
		return replyTaskNotFound, nil
	}
	task, err := d.store.FindPendingTaskByName(ctx, senderPhone, intent.TaskName)
	if err != nil {
		return "", err
	}
	if task == nil {
		// Also covers the already-done case: only pending tasks match.
		return replyTaskNotFound, nil
	}
	if err := d.store.SetTaskStatus(ctx, task.ID, checkup.StatusDone); err != nil {
		return "", err
	}

	if d.notifier != nil {
		if _, err := d.notifier.NotifyStatusChange(ctx, task.CheckupID); err != nil {
			// The toggle already committed; the broadcast is best-effort.
			d.logger.Error("status broadcast after YAPILDI failed",
				"checkup_id", task.CheckupID, "error", err)
		}
	}
	return fmt.Sprintf("'%s' tamamlandı olarak işaretlendi.", task.Name), nil
}
