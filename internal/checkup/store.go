package checkup

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB abstracts the pgx query interface for testing.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store persists patients, check-ups, tasks, staff, reminders and the
// message log in Postgres.
type Store struct {
	db DB
}

// NewStore creates a new check-up store.
func NewStore(db DB) *Store {
	return &Store{db: db}
}

// FindOrCreatePatient upserts a patient keyed on phone and returns its id.
// A repeated registration for the same phone refreshes the name.
func (s *Store) FindOrCreatePatient(ctx context.Context, name, phone string) (int64, error) {
	var id int64
	err := s.db.QueryRow(ctx, `
		INSERT INTO patients (name, phone)
		VALUES ($1, $2)
		ON CONFLICT (phone) DO UPDATE SET name = EXCLUDED.name
		RETURNING id`, strings.TrimSpace(name), strings.TrimSpace(phone)).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("checkup: find or create patient: %w", err)
	}
	return id, nil
}

// CreateCheckup inserts a check-up record and returns its id.
func (s *Store) CreateCheckup(ctx context.Context, patientID int64, packageName string, checkDate time.Time) (int64, error) {
	var id int64
	err := s.db.QueryRow(ctx, `
		INSERT INTO checkups (patient_id, package_name, check_date)
		VALUES ($1, $2, $3)
		RETURNING id`, patientID, packageName, checkDate).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("checkup: create checkup: %w", err)
	}
	return id, nil
}

// AddTasks attaches the given task names to a check-up. Blank names are
// skipped.
func (s *Store) AddTasks(ctx context.Context, checkupID int64, names []string) error {
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, err := s.db.Exec(ctx, `
			INSERT INTO tasks (checkup_id, task_name) VALUES ($1, $2)`, checkupID, name); err != nil {
			return fmt.Errorf("checkup: add task: %w", err)
		}
	}
	return nil
}

// TasksForCheckup returns a check-up's tasks in creation order.
func (s *Store) TasksForCheckup(ctx context.Context, checkupID int64) ([]Task, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, checkup_id, task_name, is_done, done_at
		FROM tasks WHERE checkup_id = $1 ORDER BY id ASC`, checkupID)
	if err != nil {
		return nil, fmt.Errorf("checkup: tasks for checkup: %w", err)
	}
	defer rows.Close()
	return scanTasks(rows)
}

// TaskByID returns a single task, or nil when it does not exist.
func (s *Store) TaskByID(ctx context.Context, id int64) (*Task, error) {
	var t Task
	var done bool
	err := s.db.QueryRow(ctx, `
		SELECT id, checkup_id, task_name, is_done, done_at
		FROM tasks WHERE id = $1`, id).Scan(&t.ID, &t.CheckupID, &t.Name, &done, &t.DoneAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("checkup: task by id: %w", err)
	}
	t.Status = statusFromDone(done)
	return &t, nil
}

// SetTaskStatus updates a task's completion state, stamping done_at on
// completion and clearing it on undo.
func (s *Store) SetTaskStatus(ctx context.Context, taskID int64, status TaskStatus) error {
	var err error
	if status == StatusDone {
		_, err = s.db.Exec(ctx, `
			UPDATE tasks SET is_done = true, done_at = now() WHERE id = $1`, taskID)
	} else {
		_, err = s.db.Exec(ctx, `
			UPDATE tasks SET is_done = false, done_at = NULL WHERE id = $1`, taskID)
	}
	if err != nil {
		return fmt.Errorf("checkup: set task status: %w", err)
	}
	return nil
}

// CheckupByID returns a check-up joined with its patient, or nil.
func (s *Store) CheckupByID(ctx context.Context, id int64) (*Checkup, error) {
	var c Checkup
	err := s.db.QueryRow(ctx, `
		SELECT c.id, c.patient_id, p.name, p.phone, c.package_name, c.check_date, c.created_at
		FROM checkups c JOIN patients p ON p.id = c.patient_id
		WHERE c.id = $1`, id).
		Scan(&c.ID, &c.PatientID, &c.PatientName, &c.Phone, &c.PackageName, &c.CheckDate, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("checkup: checkup by id: %w", err)
	}
	return &c, nil
}

// MostRecentCheckupByPhone returns the sender's latest check-up: most
// recent check date first, then the most recently created record. Nil
// when the phone has no check-up at all.
func (s *Store) MostRecentCheckupByPhone(ctx context.Context, phone string) (*Checkup, error) {
	var c Checkup
	err := s.db.QueryRow(ctx, `
		SELECT c.id, c.patient_id, p.name, p.phone, c.package_name, c.check_date, c.created_at
		FROM checkups c JOIN patients p ON p.id = c.patient_id
		WHERE p.phone = $1
		ORDER BY c.check_date DESC, c.id DESC
		LIMIT 1`, phone).
		Scan(&c.ID, &c.PatientID, &c.PatientName, &c.Phone, &c.PackageName, &c.CheckDate, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("checkup: most recent checkup: %w", err)
	}
	return &c, nil
}

// FindPendingTaskByName resolves a fuzzy task-name substring against the
// sender's pending tasks. Tie-break is deterministic: most recent check-up
// first (check date, then checkup id), then lowest task id.
func (s *Store) FindPendingTaskByName(ctx context.Context, phone, substring string) (*Task, error) {
	var t Task
	var done bool
	err := s.db.QueryRow(ctx, `
		SELECT t.id, t.checkup_id, t.task_name, t.is_done, t.done_at
		FROM tasks t
		JOIN checkups c ON c.id = t.checkup_id
		JOIN patients p ON p.id = c.patient_id
		WHERE p.phone = $1 AND t.is_done = false AND t.task_name ILIKE $2
		ORDER BY c.check_date DESC, c.id DESC, t.id ASC
		LIMIT 1`, phone, "%"+substring+"%").
		Scan(&t.ID, &t.CheckupID, &t.Name, &done, &t.DoneAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("checkup: find pending task: %w", err)
	}
	t.Status = statusFromDone(done)
	return &t, nil
}

// TodayCheckups lists check-ups scheduled for the given day, ordered by
// patient name.
func (s *Store) TodayCheckups(ctx context.Context, day time.Time) ([]Checkup, error) {
	rows, err := s.db.Query(ctx, `
		SELECT c.id, c.patient_id, p.name, p.phone, c.package_name, c.check_date, c.created_at
		FROM checkups c JOIN patients p ON p.id = c.patient_id
		WHERE c.check_date = $1
		ORDER BY p.name ASC`, day)
	if err != nil {
		return nil, fmt.Errorf("checkup: today checkups: %w", err)
	}
	defer rows.Close()

	var out []Checkup
	for rows.Next() {
		var c Checkup
		if err := rows.Scan(&c.ID, &c.PatientID, &c.PatientName, &c.Phone, &c.PackageName, &c.CheckDate, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("checkup: scan checkup: %w", err)
		}
		out = append(out, c)
	}
	if out == nil {
		out = []Checkup{}
	}
	return out, rows.Err()
}

// ScheduleReminder creates or replaces the visit alarm for a check-up.
// Re-scheduling resets the notified flag so the new time fires again.
func (s *Store) ScheduleReminder(ctx context.Context, checkupID int64, department string, at time.Time) (int64, error) {
	var id int64
	err := s.db.QueryRow(ctx, `
		INSERT INTO reminders (checkup_id, department, scheduled_at, notified)
		VALUES ($1, $2, $3, false)
		ON CONFLICT (checkup_id) DO UPDATE SET
			department = EXCLUDED.department,
			scheduled_at = EXCLUDED.scheduled_at,
			notified = false,
			updated_at = now()
		RETURNING id`, checkupID, department, at).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("checkup: schedule reminder: %w", err)
	}
	return id, nil
}

// DueReminders returns un-notified reminders whose scheduled time falls at
// or before now+lookahead, oldest first.
func (s *Store) DueReminders(ctx context.Context, now time.Time, lookahead time.Duration) ([]Reminder, error) {
	rows, err := s.db.Query(ctx, `
		SELECT r.id, r.checkup_id, p.name, r.department, r.scheduled_at, r.notified
		FROM reminders r
		JOIN checkups c ON c.id = r.checkup_id
		JOIN patients p ON p.id = c.patient_id
		WHERE r.notified = false AND r.scheduled_at <= $1
		ORDER BY r.scheduled_at ASC`, now.Add(lookahead))
	if err != nil {
		return nil, fmt.Errorf("checkup: due reminders: %w", err)
	}
	defer rows.Close()

	var out []Reminder
	for rows.Next() {
		var r Reminder
		if err := rows.Scan(&r.ID, &r.CheckupID, &r.PatientName, &r.Department, &r.ScheduledAt, &r.Notified); err != nil {
			return nil, fmt.Errorf("checkup: scan reminder: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// MarkNotified flips a reminder's de-duplication flag. The bool reports
// whether a row was updated; false means the reminder vanished or was
// already notified, which callers treat as benign.
func (s *Store) MarkNotified(ctx context.Context, reminderID int64) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE reminders SET notified = true, updated_at = now()
		WHERE id = $1 AND notified = false`, reminderID)
	if err != nil {
		return false, fmt.Errorf("checkup: mark notified: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// ActiveStaff returns the current fan-out recipients.
func (s *Store) ActiveStaff(ctx context.Context) ([]Staff, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, name, phone, COALESCE(email, ''), active
		FROM staff WHERE active = true ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("checkup: active staff: %w", err)
	}
	defer rows.Close()
	return scanStaff(rows)
}

// ListStaff returns all staff, active or not.
func (s *Store) ListStaff(ctx context.Context) ([]Staff, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, name, phone, COALESCE(email, ''), active
		FROM staff ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("checkup: list staff: %w", err)
	}
	defer rows.Close()
	return scanStaff(rows)
}

// CreateStaff adds a notification recipient.
func (s *Store) CreateStaff(ctx context.Context, st Staff) (int64, error) {
	var id int64
	err := s.db.QueryRow(ctx, `
		INSERT INTO staff (name, phone, email, active)
		VALUES ($1, $2, NULLIF($3, ''), $4)
		RETURNING id`, st.Name, st.Phone, st.Email, st.Active).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("checkup: create staff: %w", err)
	}
	return id, nil
}

// InsertMessage appends to the message log.
func (s *Store) InsertMessage(ctx context.Context, direction, sender, receiver, body string) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO messages (direction, sender, receiver, body)
		VALUES ($1, $2, $3, $4)`, direction, sender, receiver, body)
	if err != nil {
		return fmt.Errorf("checkup: insert message: %w", err)
	}
	return nil
}

// ListMessages returns the most recent log entries, newest first.
func (s *Store) ListMessages(ctx context.Context, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(ctx, `
		SELECT id, direction, sender, receiver, body, at
		FROM messages ORDER BY id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("checkup: list messages: %w", err)
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.Direction, &m.Sender, &m.Receiver, &m.Body, &m.At); err != nil {
			return nil, fmt.Errorf("checkup: scan message: %w", err)
		}
		out = append(out, m)
	}
	if out == nil {
		out = []Message{}
	}
	return out, rows.Err()
}

func scanTasks(rows pgx.Rows) ([]Task, error) {
	var out []Task
	for rows.Next() {
		var t Task
		var done bool
		if err := rows.Scan(&t.ID, &t.CheckupID, &t.Name, &done, &t.DoneAt); err != nil {
			return nil, fmt.Errorf("checkup: scan task: %w", err)
		}
		t.Status = statusFromDone(done)
		out = append(out, t)
	}
	if out == nil {
		out = []Task{}
	}
	return out, rows.Err()
}

func scanStaff(rows pgx.Rows) ([]Staff, error) {
	var out []Staff
	for rows.Next() {
		var st Staff
		if err := rows.Scan(&st.ID, &st.Name, &st.Phone, &st.Email, &st.Active); err != nil {
			return nil, fmt.Errorf("checkup: scan staff: %w", err)
		}
		out = append(out, st)
	}
	if out == nil {
		out = []Staff{}
	}
	return out, rows.Err()
}

func statusFromDone(done bool) TaskStatus {
	if done {
		return StatusDone
	}
	return StatusPending
}
