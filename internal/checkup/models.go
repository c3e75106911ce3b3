package checkup

import "time"

// TaskStatus is the binary completion state of a check-up task.
type TaskStatus string

const (
	StatusPending TaskStatus = "pending"
	StatusDone    TaskStatus = "done"
)

// Patient is a person tracked by the clinic, keyed by phone number.
type Patient struct {
	ID        int64
	Name      string
	Phone     string
	CreatedAt time.Time
}

// Checkup is one check-up visit with its package and date.
type Checkup struct {
	ID          int64
	PatientID   int64
	PatientName string
	Phone       string
	PackageName string
	CheckDate   time.Time
	CreatedAt   time.Time
}

// Task is a single test item on a check-up checklist.
type Task struct {
	ID        int64
	CheckupID int64
	Name      string
	Status    TaskStatus
	DoneAt    *time.Time
}

// Staff is a notification recipient. Only active staff participate in
// fan-out; Email is optional and only used when the email channel is on.
type Staff struct {
	ID     int64
	Name   string
	Phone  string
	Email  string
	Active bool
}

// Reminder is a scheduled visit alarm. Once Notified flips true the
// scheduler never picks it up again for the same scheduled time.
type Reminder struct {
	ID          int64
	CheckupID   int64
	PatientName string
	Department  string
	ScheduledAt time.Time
	Notified    bool
}

// Message is one entry in the inbound/outbound message log.
type Message struct {
	ID        int64
	Direction string
	Sender    string
	Receiver  string
	Body      string
	At        time.Time
}

const (
	DirectionInbound  = "inbound"
	DirectionOutbound = "outbound"
)

// DefaultTasks is the task list attached when a package has no
// configured list of its own.
func DefaultTasks() []string {
	return []string{
		"Kan Tahlili",
		"EKG",
		"Radyoloji (Akciğer)",
		"Vücut Analizi",
		"Son Doktor Değerlendirmesi",
	}
}
