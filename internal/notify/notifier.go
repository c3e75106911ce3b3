package notify

import (
	"context"
	"sync"
	"time"

	"github.com/saglikops/checkup-tracker/internal/checkup"
	"github.com/saglikops/checkup-tracker/pkg/logging"
)

// Sender delivers one outbound message to one recipient.
type Sender interface {
	Send(ctx context.Context, to, body string) error
}

// EmailSender delivers an optional email copy to staff.
type EmailSender interface {
	Send(ctx context.Context, msg EmailMessage) error
}

// EmailMessage is a plain staff notification email.
type EmailMessage struct {
	To      string
	Subject string
	Body    string
}

// BatchResult aggregates one fan-out attempt.
type BatchResult struct {
	Sent   int `json:"sent"`
	Failed int `json:"failed"`
}

// Broadcaster fans a rendered message out to every active staff member.
// Sends run on a small bounded worker pool with a per-send timeout so one
// unreachable recipient cannot stall the batch; individual failures are
// logged and counted, never propagated.
type Broadcaster struct {
	sender      Sender
	email       EmailSender
	workers     int
	sendTimeout time.Duration
	logger      *logging.Logger
}

// NewBroadcaster creates a broadcaster over the given sender.
func NewBroadcaster(sender Sender, logger *logging.Logger) *Broadcaster {
	if logger == nil {
		logger = logging.Default()
	}
	return &Broadcaster{
		sender:      sender,
		workers:     4,
		sendTimeout: 10 * time.Second,
		logger:      logger,
	}
}

// WithEmail enables the optional email copy for staff with an address.
func (b *Broadcaster) WithEmail(email EmailSender) *Broadcaster {
	b.email = email
	return b
}

func (b *Broadcaster) WithWorkers(n int) *Broadcaster {
	if n > 0 {
		b.workers = n
	}
	return b
}

func (b *Broadcaster) WithSendTimeout(d time.Duration) *Broadcaster {
	if d > 0 {
		b.sendTimeout = d
	}
	return b
}

type sendOutcome struct {
	recipient string
	err       error
}

// Broadcast sends body to every recipient and returns aggregate counts.
// It blocks until every send has been attempted.
func (b *Broadcaster) Broadcast(ctx context.Context, recipients []checkup.Staff, subject, body string) BatchResult {
	if b.sender == nil || len(recipients) == 0 {
		return BatchResult{}
	}

	jobs := make(chan checkup.Staff)
	outcomes := make(chan sendOutcome, len(recipients))

	workers := b.workers
	if workers > len(recipients) {
		workers = len(recipients)
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for st := range jobs {
				outcomes <- sendOutcome{recipient: st.Phone, err: b.sendOne(ctx, st, subject, body)}
			}
		}()
	}

	for _, st := range recipients {
		jobs <- st
	}
	close(jobs)
	wg.Wait()
	close(outcomes)

	var result BatchResult
	for out := range outcomes {
		if out.err != nil {
			result.Failed++
			b.logger.Error("notify: send failed", "error", out.err, "to", out.recipient)
			continue
		}
		result.Sent++
	}
	return result
}

func (b *Broadcaster) sendOne(ctx context.Context, st checkup.Staff, subject, body string) error {
	sendCtx, cancel := context.WithTimeout(ctx, b.sendTimeout)
	defer cancel()

	if err := b.sender.Send(sendCtx, st.Phone, body); err != nil {
		return err
	}
	if b.email != nil && st.Email != "" {
		if err := b.email.Send(sendCtx, EmailMessage{To: st.Email, Subject: subject, Body: body}); err != nil {
			// Email is a best-effort copy; the WhatsApp send already
			// succeeded, so the batch counts this recipient as sent.
			b.logger.Warn("notify: email copy failed", "error", err, "to", st.Email)
		}
	}
	return nil
}
