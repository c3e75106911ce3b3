package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/saglikops/checkup-tracker/internal/checkup"
	"github.com/saglikops/checkup-tracker/internal/notify"
	"github.com/saglikops/checkup-tracker/pkg/logging"
)

// Store is the storage surface the admin API needs.
type Store interface {
	FindOrCreatePatient(ctx context.Context, name, phone string) (int64, error)
	CreateCheckup(ctx context.Context, patientID int64, packageName string, checkDate time.Time) (int64, error)
	AddTasks(ctx context.Context, checkupID int64, names []string) error
	TasksForCheckup(ctx context.Context, checkupID int64) ([]checkup.Task, error)
	TaskByID(ctx context.Context, id int64) (*checkup.Task, error)
	SetTaskStatus(ctx context.Context, taskID int64, status checkup.TaskStatus) error
	CheckupByID(ctx context.Context, id int64) (*checkup.Checkup, error)
	TodayCheckups(ctx context.Context, day time.Time) ([]checkup.Checkup, error)
	ScheduleReminder(ctx context.Context, checkupID int64, department string, at time.Time) (int64, error)
	ListStaff(ctx context.Context) ([]checkup.Staff, error)
	CreateStaff(ctx context.Context, st checkup.Staff) (int64, error)
	InsertMessage(ctx context.Context, direction, sender, receiver, body string) error
	ListMessages(ctx context.Context, limit int) ([]checkup.Message, error)
}

// PackageCatalog resolves package names to task lists.
type PackageCatalog interface {
	TasksForPackage(ctx context.Context, name string) ([]string, error)
}

// StatusNotifier broadcasts the status snapshot for a check-up.
type StatusNotifier interface {
	NotifyStatusChange(ctx context.Context, checkupID int64) (notify.BatchResult, error)
}

// AdminHandler serves the clinic staff API backing the reception board.
type AdminHandler struct {
	store    Store
	packages PackageCatalog
	notifier StatusNotifier
	sender   notify.Sender
	logger   *logging.Logger
	loc      *time.Location
	now      func() time.Time
}

// NewAdminHandler creates the admin API handler. packages, notifier and
// sender may be nil; the matching endpoints then degrade (default task
// list, no broadcast, direct send disabled).
func NewAdminHandler(store Store, packages PackageCatalog, notifier StatusNotifier, sender notify.Sender, loc *time.Location, logger *logging.Logger) *AdminHandler {
	if logger == nil {
		logger = logging.Default()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &AdminHandler{
		store:    store,
		packages: packages,
		notifier: notifier,
		sender:   sender,
		logger:   logger,
		loc:      loc,
		now:      time.Now,
	}
}

type createCheckupRequest struct {
	Name        string   `json:"name"`
	Phone       string   `json:"phone"`
	PackageName string   `json:"package"`
	CheckDate   string   `json:"check_date"`
	Tasks       []string `json:"tasks,omitempty"`
}

type createCheckupResponse struct {
	CheckupID int64 `json:"checkup_id"`
	PatientID int64 `json:"patient_id"`
	TaskCount int   `json:"task_count"`
}

// CreateCheckup handles POST /admin/checkups. A custom task list in the
// request overrides the package's default list.
func (h *AdminHandler) CreateCheckup(w http.ResponseWriter, r *http.Request) {
	var req createCheckupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Name == "" || req.Phone == "" {
		writeError(w, http.StatusBadRequest, "name and phone are required")
		return
	}
	checkDate, err := time.Parse("2006-01-02", req.CheckDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "check_date must be YYYY-MM-DD")
		return
	}

	ctx := r.Context()
	tasks := req.Tasks
	if len(tasks) == 0 {
		tasks = checkup.DefaultTasks()
		if h.packages != nil {
			tasks, err = h.packages.TasksForPackage(ctx, req.PackageName)
			if err != nil {
				h.logger.Error("resolve package failed", "package", req.PackageName, "error", err)
				writeError(w, http.StatusInternalServerError, "failed to resolve package")
				return
			}
		}
	}

	patientID, err := h.store.FindOrCreatePatient(ctx, req.Name, req.Phone)
	if err != nil {
		h.logger.Error("create patient failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create patient")
		return
	}
	checkupID, err := h.store.CreateCheckup(ctx, patientID, req.PackageName, checkDate)
	if err != nil {
		h.logger.Error("create checkup failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create checkup")
		return
	}
	if err := h.store.AddTasks(ctx, checkupID, tasks); err != nil {
		h.logger.Error("attach tasks failed", "checkup_id", checkupID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to attach tasks")
		return
	}

	h.logger.Info("checkup created",
		"checkup_id", checkupID,
		"patient_id", patientID,
		"package", req.PackageName,
	)
	writeJSON(w, http.StatusCreated, createCheckupResponse{
		CheckupID: checkupID,
		PatientID: patientID,
		TaskCount: len(tasks),
	})
}

type boardEntry struct {
	Checkup checkup.Checkup `json:"checkup"`
	Tasks   []checkup.Task  `json:"tasks"`
}

// TodayBoard handles GET /admin/checkups/today: every check-up scheduled
// for the clinic's current day, with task state.
func (h *AdminHandler) TodayBoard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	day := h.now().In(h.loc)
	today := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)

	checkups, err := h.store.TodayCheckups(ctx, today)
	if err != nil {
		h.logger.Error("today board failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load today's checkups")
		return
	}

	board := make([]boardEntry, 0, len(checkups))
	for _, c := range checkups {
		tasks, err := h.store.TasksForCheckup(ctx, c.ID)
		if err != nil {
			h.logger.Error("today board tasks failed", "checkup_id", c.ID, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to load tasks")
			return
		}
		board = append(board, boardEntry{Checkup: c, Tasks: tasks})
	}
	writeJSON(w, http.StatusOK, board)
}

type toggleResponse struct {
	Task      checkup.Task       `json:"task"`
	Broadcast notify.BatchResult `json:"broadcast"`
}

// ToggleTask handles POST /admin/tasks/{id}/toggle. Every toggle fires
// the status broadcast, in both directions.
func (h *AdminHandler) ToggleTask(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid task id")
		return
	}
	ctx := r.Context()
	task, err := h.store.TaskByID(ctx, id)
	if err != nil {
		h.logger.Error("load task failed", "task_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load task")
		return
	}
	if task == nil {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}

	next := checkup.StatusDone
	if task.Status == checkup.StatusDone {
		next = checkup.StatusPending
	}
	if err := h.store.SetTaskStatus(ctx, id, next); err != nil {
		h.logger.Error("toggle task failed", "task_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update task")
		return
	}
	task.Status = next

	var result notify.BatchResult
	if h.notifier != nil {
		result, err = h.notifier.NotifyStatusChange(ctx, task.CheckupID)
		if err != nil {
			// The toggle committed; report it with empty broadcast counts.
			h.logger.Error("status broadcast failed", "checkup_id", task.CheckupID, "error", err)
		}
	}

	h.logger.Info("task toggled",
		"task_id", id,
		"checkup_id", task.CheckupID,
		"status", string(next),
	)
	writeJSON(w, http.StatusOK, toggleResponse{Task: *task, Broadcast: result})
}

// NotifyCheckup handles POST /admin/checkups/{id}/notify: broadcast the
// current snapshot on demand.
func (h *AdminHandler) NotifyCheckup(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid checkup id")
		return
	}
	ctx := r.Context()
	c, err := h.store.CheckupByID(ctx, id)
	if err != nil {
		h.logger.Error("load checkup failed", "checkup_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load checkup")
		return
	}
	if c == nil {
		writeError(w, http.StatusNotFound, "checkup not found")
		return
	}
	if h.notifier == nil {
		writeError(w, http.StatusServiceUnavailable, "notifications disabled")
		return
	}
	result, err := h.notifier.NotifyStatusChange(ctx, id)
	if err != nil {
		h.logger.Error("status broadcast failed", "checkup_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "broadcast failed")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type setReminderRequest struct {
	Department  string `json:"department"`
	ScheduledAt string `json:"scheduled_at"`
}

// SetReminder handles PUT /admin/checkups/{id}/reminder: create or move
// the visit alarm. Re-scheduling re-arms a reminder that already fired.
func (h *AdminHandler) SetReminder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid checkup id")
		return
	}
	var req setReminderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	at, err := time.Parse(time.RFC3339, req.ScheduledAt)
	if err != nil {
		writeError(w, http.StatusBadRequest, "scheduled_at must be RFC3339")
		return
	}

	ctx := r.Context()
	c, err := h.store.CheckupByID(ctx, id)
	if err != nil {
		h.logger.Error("load checkup failed", "checkup_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load checkup")
		return
	}
	if c == nil {
		writeError(w, http.StatusNotFound, "checkup not found")
		return
	}

	reminderID, err := h.store.ScheduleReminder(ctx, id, req.Department, at)
	if err != nil {
		h.logger.Error("schedule reminder failed", "checkup_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to schedule reminder")
		return
	}
	h.logger.Info("reminder scheduled",
		"reminder_id", reminderID,
		"checkup_id", id,
		"scheduled_at", at.Format(time.RFC3339),
	)
	writeJSON(w, http.StatusOK, map[string]int64{"reminder_id": reminderID})
}

func pathID(r *http.Request, key string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, key), 10, 64)
}
