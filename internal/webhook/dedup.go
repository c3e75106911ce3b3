package webhook

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/saglikops/checkup-tracker/pkg/logging"
)

// Deduper suppresses Twilio webhook retries. Twilio re-delivers on slow
// or failed acks, so the same MessageSid can arrive more than once.
type Deduper struct {
	client *redis.Client
	ttl    time.Duration
	logger *logging.Logger
}

// NewDeduper creates a MessageSid deduper. A nil client disables
// de-duplication: every delivery is treated as first-seen.
func NewDeduper(client *redis.Client, ttl time.Duration, logger *logging.Logger) *Deduper {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Deduper{client: client, ttl: ttl, logger: logger}
}

// FirstDelivery reports whether this MessageSid has not been seen within
// the TTL. Redis failures degrade to first-seen so a cache outage never
// drops inbound commands; the worst case is a duplicate reply.
func (d *Deduper) FirstDelivery(ctx context.Context, messageSid string) bool {
	if d == nil || d.client == nil || messageSid == "" {
		return true
	}
	key := fmt.Sprintf("webhook:sid:%s", messageSid)
	ok, err := d.client.SetNX(ctx, key, "1", d.ttl).Result()
	if err != nil {
		d.logger.Warn("webhook dedup check failed, treating as first delivery",
			"message_sid", messageSid, "error", err)
		return true
	}
	return ok
}
