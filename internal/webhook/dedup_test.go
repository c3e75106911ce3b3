package webhook

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestDeduperFirstDelivery(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	d := NewDeduper(client, time.Hour, nil)
	ctx := context.Background()

	if !d.FirstDelivery(ctx, "SM123") {
		t.Fatal("first delivery reported as duplicate")
	}
	if d.FirstDelivery(ctx, "SM123") {
		t.Fatal("retry delivery not suppressed")
	}
	if !d.FirstDelivery(ctx, "SM456") {
		t.Fatal("unrelated sid suppressed")
	}
}

func TestDeduperTTLExpiry(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	d := NewDeduper(client, time.Minute, nil)
	ctx := context.Background()

	if !d.FirstDelivery(ctx, "SM123") {
		t.Fatal("first delivery reported as duplicate")
	}
	mr.FastForward(2 * time.Minute)
	if !d.FirstDelivery(ctx, "SM123") {
		t.Fatal("expired sid still suppressed")
	}
}

func TestDeduperDegradesWithoutRedis(t *testing.T) {
	var d *Deduper
	if !d.FirstDelivery(context.Background(), "SM123") {
		t.Fatal("nil deduper must pass everything through")
	}

	d = NewDeduper(nil, time.Hour, nil)
	if !d.FirstDelivery(context.Background(), "SM123") {
		t.Fatal("nil client must pass everything through")
	}

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	d = NewDeduper(client, time.Hour, nil)
	mr.Close()
	if !d.FirstDelivery(context.Background(), "SM123") {
		t.Fatal("redis outage must degrade to first-seen")
	}
}
