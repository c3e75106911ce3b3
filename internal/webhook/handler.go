package webhook

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/saglikops/checkup-tracker/internal/checkup"
	"github.com/saglikops/checkup-tracker/internal/notify"
	"github.com/saglikops/checkup-tracker/internal/observability/metrics"
	"github.com/saglikops/checkup-tracker/pkg/logging"
)

var tracer = otel.Tracer("checkup.internal.webhook")

// Dispatcher interprets one inbound command into a reply.
type Dispatcher interface {
	Dispatch(ctx context.Context, senderPhone, rawText string) string
}

// MessageLog appends inbound and outbound traffic to the message log.
type MessageLog interface {
	InsertMessage(ctx context.Context, direction, sender, receiver, body string) error
}

// Handler terminates the Twilio WhatsApp webhook: it validates the
// signature, drops retry duplicates, runs the command dispatcher and
// answers with a TwiML message envelope.
type Handler struct {
	webhookSecret string
	dispatcher    Dispatcher
	messages      MessageLog
	deduper       *Deduper
	logger        *logging.Logger
	metrics       *metrics.TrackerMetrics
	now           func() time.Time
}

// NewHandler creates a webhook handler. messages and deduper may be nil.
func NewHandler(webhookSecret string, dispatcher Dispatcher, messages MessageLog, deduper *Deduper, logger *logging.Logger) *Handler {
	if dispatcher == nil {
		panic("webhook: dispatcher cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		webhookSecret: webhookSecret,
		dispatcher:    dispatcher,
		messages:      messages,
		deduper:       deduper,
		logger:        logger,
		now:           time.Now,
	}
}

func (h *Handler) WithMetrics(m *metrics.TrackerMetrics) *Handler {
	h.metrics = m
	return h
}

// WhatsAppWebhook handles POST /webhooks/twilio/whatsapp requests.
func (h *Handler) WhatsAppWebhook(w http.ResponseWriter, r *http.Request) {
	started := h.now()
	ctx, span := tracer.Start(r.Context(), "webhook.twilio.whatsapp")
	defer span.End()

	if h.webhookSecret != "" {
		if !ValidateTwilioSignature(r, h.webhookSecret, BuildAbsoluteURL(r)) {
			h.logger.Warn("invalid twilio signature")
			span.RecordError(errors.New("invalid twilio signature"))
			h.observe("invalid_signature", started)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
	}

	inbound, err := ParseInbound(r)
	if err != nil {
		h.logger.Error("failed to parse twilio webhook", "error", err)
		span.RecordError(err)
		h.observe("bad_request", started)
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	if inbound.MessageSid == "" || inbound.From == "" {
		err := errors.New("missing required twilio fields")
		h.logger.Error("invalid twilio payload", "error", err)
		span.RecordError(err)
		h.observe("bad_request", started)
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	from := notify.StripWhatsAppPrefix(inbound.From)
	to := notify.StripWhatsAppPrefix(inbound.To)
	span.SetAttributes(
		attribute.String("checkup.twilio.message_sid", inbound.MessageSid),
		attribute.String("checkup.twilio.from", from),
	)

	if !h.deduper.FirstDelivery(ctx, inbound.MessageSid) {
		h.logger.Info("duplicate webhook delivery dropped", "message_sid", inbound.MessageSid)
		h.observe("duplicate", started)
		writeTwiML(w, "")
		return
	}

	h.logMessage(ctx, checkup.DirectionInbound, from, to, inbound.Body)

	reply := h.dispatcher.Dispatch(ctx, from, inbound.Body)

	h.logMessage(ctx, checkup.DirectionOutbound, to, from, reply)
	h.logger.Info("webhook command handled",
		"message_sid", inbound.MessageSid,
		"from", from,
	)
	h.observe("ok", started)
	writeTwiML(w, reply)
}

// logMessage appends to the message log best-effort; the reply must go
// out even when the log write fails.
func (h *Handler) logMessage(ctx context.Context, direction, sender, receiver, body string) {
	if h.messages == nil {
		return
	}
	if err := h.messages.InsertMessage(ctx, direction, sender, receiver, body); err != nil {
		h.logger.Warn("message log write failed", "direction", direction, "error", err)
	}
}

func (h *Handler) observe(outcome string, started time.Time) {
	h.metrics.ObserveWebhookLatency(outcome, h.now().Sub(started).Seconds())
}

// writeTwiML answers the webhook with a TwiML envelope. An empty body
// acks without replying.
func writeTwiML(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(http.StatusOK)
	if body == "" {
		_, _ = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?><Response></Response>`))
		return
	}
	var escaped bytes.Buffer
	_ = xml.EscapeText(&escaped, []byte(body))
	_, _ = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?><Response><Message>` + escaped.String() + `</Message></Response>`))
}
