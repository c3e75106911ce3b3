package notify

import (
	"context"

	"github.com/saglikops/checkup-tracker/pkg/logging"
)

// StubSender is a no-op sender for tests and unconfigured environments.
type StubSender struct {
	logger *logging.Logger
}

// NewStubSender creates a stub sender.
func NewStubSender(logger *logging.Logger) *StubSender {
	if logger == nil {
		logger = logging.Default()
	}
	return &StubSender{logger: logger}
}

// Send logs but doesn't send.
func (s *StubSender) Send(ctx context.Context, to, body string) error {
	s.logger.Info("stub sender: would send", "to", to, "body_preview", truncate(body, 50))
	return nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

var _ Sender = (*StubSender)(nil)
