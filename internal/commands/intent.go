package commands

import "strings"

// IntentKind tags the parsed command variant.
type IntentKind string

const (
	IntentRegister    IntentKind = "register"
	IntentQueryStatus IntentKind = "status"
	IntentMarkDone    IntentKind = "done"
	IntentUnknown     IntentKind = "unknown"
)

// Intent is the parser output consumed within a single dispatch call.
type Intent struct {
	Kind IntentKind

	// Register fields, set when Kind == IntentRegister.
	Name        string
	Phone       string
	PackageName string
	Date        string

	// MarkDone fuzzy task-name substring, set when Kind == IntentMarkDone.
	TaskName string

	// Malformed reports a recognized prefix with an unusable payload.
	Malformed bool
}

// ParseIntent classifies one inbound message. The prefix keyword is
// matched case-insensitively; everything after it is the payload.
func ParseIntent(raw string) Intent {
	text := strings.TrimSpace(raw)
	upper := strings.ToUpper(text)

	switch {
	case strings.HasPrefix(upper, "KAYIT"):
		return parseRegister(strings.TrimSpace(text[len("KAYIT"):]))
	case strings.HasPrefix(upper, "DURUM"):
		return Intent{Kind: IntentQueryStatus}
	case strings.HasPrefix(upper, "YAPILDI"):
		name := strings.TrimSpace(text[len("YAPILDI"):])
		if name == "" {
			return Intent{Kind: IntentMarkDone, Malformed: true}
		}
		return Intent{Kind: IntentMarkDone, TaskName: name}
	default:
		return Intent{Kind: IntentUnknown}
	}
}

// parseRegister splits the KAYIT payload into its exactly-4
// semicolon-separated fields: name; phone; package; date.
func parseRegister(payload string) Intent {
	parts := strings.Split(payload, ";")
	if len(parts) != 4 {
		return Intent{Kind: IntentRegister, Malformed: true}
	}
	intent := Intent{
		Kind:        IntentRegister,
		Name:        strings.TrimSpace(parts[0]),
		Phone:       strings.TrimSpace(parts[1]),
		PackageName: strings.TrimSpace(parts[2]),
		Date:        strings.TrimSpace(parts[3]),
	}
	if intent.Name == "" || intent.Phone == "" || intent.Date == "" {
		intent.Malformed = true
	}
	return intent
}
