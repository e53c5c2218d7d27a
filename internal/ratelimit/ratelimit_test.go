package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/briangreenhill/coinwatch/kv"
)

type downStore struct{}

var errDown = errors.New("store unreachable")

func (downStore) Get(context.Context, string) ([]byte, bool, error)        { return nil, false, errDown }
func (downStore) Set(context.Context, string, []byte, time.Duration) error { return errDown }
func (downStore) Incr(context.Context, string) (int64, error)              { return 0, errDown }
func (downStore) TTL(context.Context, string) (time.Duration, bool, error) {
	return 0, false, errDown
}
func (downStore) Expire(context.Context, string, time.Duration) error { return errDown }

func newTestLimiter(store kv.Store, maxRequests int, window time.Duration) *Limiter {
	return New(store, Config{MaxRequests: maxRequests, Window: window}, zerolog.Nop())
}

func TestLimiterBoundary(t *testing.T) {
	ctx := context.Background()
	l := newTestLimiter(kv.NewMemory(), 3, time.Minute)

	for i := 1; i <= 3; i++ {
		res := l.Check(ctx, "1.2.3.4")
		if !res.Allowed {
			t.Fatalf("request %d should be allowed", i)
		}
		if res.Remaining != 3-i {
			t.Errorf("request %d remaining = %d, want %d", i, res.Remaining, 3-i)
		}
	}

	res := l.Check(ctx, "1.2.3.4")
	if res.Allowed {
		t.Fatal("fourth request should be denied")
	}
	if res.Remaining != 0 {
		t.Errorf("denied remaining = %d, want 0", res.Remaining)
	}
	if res.RetryAfter < time.Second || res.RetryAfter > time.Minute {
		t.Errorf("retryAfter = %v, want within [1s, 60s]", res.RetryAfter)
	}
}

func TestLimiterClientIsolation(t *testing.T) {
	ctx := context.Background()
	l := newTestLimiter(kv.NewMemory(), 3, time.Minute)

	for i := 0; i < 3; i++ {
		if res := l.Check(ctx, "client-a"); !res.Allowed {
			t.Fatalf("client-a request %d denied", i+1)
		}
	}
	for i := 0; i < 3; i++ {
		if res := l.Check(ctx, "client-b"); !res.Allowed {
			t.Fatalf("client-b request %d denied; counters should be independent", i+1)
		}
	}
}

func TestLimiterWindowReset(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory()
	l := newTestLimiter(store, 2, time.Minute)

	l.Check(ctx, "client")
	l.Check(ctx, "client")
	if res := l.Check(ctx, "client"); res.Allowed {
		t.Fatal("over-limit request should be denied")
	}

	// Simulate the window elapsing by evicting the counter key.
	if err := store.Expire(ctx, "rate-limit:client", -1); err != nil {
		t.Fatalf("evict counter: %v", err)
	}

	res := l.Check(ctx, "client")
	if !res.Allowed {
		t.Fatal("request after window reset should be allowed")
	}
	if res.Remaining != 1 {
		t.Errorf("remaining after reset = %d, want maxRequests-1 = 1", res.Remaining)
	}
}

func TestLimiterFailsOpenOnStoreOutage(t *testing.T) {
	ctx := context.Background()
	l := newTestLimiter(downStore{}, 1, time.Minute)

	for i := 0; i < 5; i++ {
		res := l.Check(ctx, "client")
		if !res.Allowed {
			t.Fatal("limiter must fail open when the store is down")
		}
		if !res.FailedOpen {
			t.Error("result should be marked FailedOpen")
		}
	}
}

func TestLimiterFailsOpenWithoutClientKey(t *testing.T) {
	l := newTestLimiter(kv.NewMemory(), 1, time.Minute)
	res := l.Check(context.Background(), "")
	if !res.Allowed || !res.FailedOpen {
		t.Fatalf("empty client key should fail open, got %+v", res)
	}
}

func TestLimiterDeniedStillCounts(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory()
	l := newTestLimiter(store, 1, time.Minute)

	l.Check(ctx, "client")
	l.Check(ctx, "client")
	l.Check(ctx, "client")

	n, err := store.Incr(ctx, "rate-limit:client")
	if err != nil {
		t.Fatalf("Incr: %v", err)
	}
	if n != 4 {
		t.Errorf("counter = %d after 3 checks + 1 probe, want 4 (denied requests still count)", n)
	}
}

func TestLimiterSubSecondWindowRoundsUp(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory()
	l := newTestLimiter(store, 1, 250*time.Millisecond)

	res := l.Check(ctx, "client")
	if !res.Allowed {
		t.Fatal("first request should pass")
	}

	// The counter's expiry is clamped to the 1s minimum.
	ttl, ok, err := store.TTL(ctx, "rate-limit:client")
	if err != nil || !ok {
		t.Fatalf("counter should have expiry, ok=%v err=%v", ok, err)
	}
	if ttl > time.Second || ttl <= 0 {
		t.Errorf("ttl = %v, want (0, 1s]", ttl)
	}
}
