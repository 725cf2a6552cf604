package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func TestDisabledCacheNeverHits(t *testing.T) {
	c := New(nil, zap.NewNop())
	if c.Enabled() {
		t.Fatal("nil client must disable the cache")
	}
	ctx := context.Background()
	c.Set(ctx, StatsKey, map[string]int{"open": 1}, time.Minute)
	var out map[string]int
	if c.Get(ctx, StatsKey, &out) {
		t.Fatal("disabled cache returned a hit")
	}
	c.Delete(ctx, StatsKey)
}

func TestUnreachableRedisDegradesToMiss(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	c := New(client, zap.NewNop())
	ctx := context.Background()
	c.Set(ctx, TicketRefKey("CONTACT-20250101-ABCDEF01"), "value", time.Minute)
	var out string
	if c.Get(ctx, TicketRefKey("CONTACT-20250101-ABCDEF01"), &out) {
		t.Fatal("unreachable redis returned a hit")
	}
}

func TestTicketRefKey(t *testing.T) {
	if got := TicketRefKey("CONTACT-20250101-ABCDEF01"); got != "support:ticket:ref:CONTACT-20250101-ABCDEF01" {
		t.Fatalf("key = %q", got)
	}
}
