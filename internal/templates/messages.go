package templates

import (
	"strings"
	"time"
)

// Named templates used by the scheduler and the status notifier. The
// wording stays in Turkish to match the clinic's WhatsApp channel.
const (
	reminderTemplate = "⏰ Hatırlatma: {{.PatientName}} adlı hastanın {{.Department}} randevusu {{.Time}} saatinde."

	statusTemplate = "{{.PatientName}} check-up durumu:\n- Bekleyen: {{.Pending}}\n- Tamamlanan: {{.Done}}"
)

// EmptyListSentinel is rendered in place of an empty task list.
const EmptyListSentinel = "Yok"

// Engine maps named message templates to rendered text.
type Engine struct {
	renderer Renderer
	loc      *time.Location
}

// NewEngine creates a message engine rendering times in the given zone.
func NewEngine(loc *time.Location) *Engine {
	if loc == nil {
		loc = time.UTC
	}
	return &Engine{loc: loc}
}

// Reminder renders the visit reminder sent to staff ahead of an
// appointment.
func (e *Engine) Reminder(patientName, department string, at time.Time) (string, error) {
	dept := strings.TrimSpace(department)
	if dept == "" {
		dept = "check-up"
	}
	return e.renderer.Render("reminder", reminderTemplate, map[string]string{
		"PatientName": patientName,
		"Department":  dept,
		"Time":        at.In(e.loc).Format("02.01.2006 15:04"),
	})
}

// Status renders the full done/remaining snapshot broadcast after a task
// status change. Empty partitions render the "Yok" sentinel.
func (e *Engine) Status(patientName string, pending, done []string) (string, error) {
	return e.renderer.Render("status", statusTemplate, map[string]string{
		"PatientName": patientName,
		"Pending":     JoinOrSentinel(pending),
		"Done":        JoinOrSentinel(done),
	})
}

// JoinOrSentinel comma-joins a task list, or returns the empty-list
// sentinel.
func JoinOrSentinel(items []string) string {
	if len(items) == 0 {
		return EmptyListSentinel
	}
	return strings.Join(items, ", ")
}
