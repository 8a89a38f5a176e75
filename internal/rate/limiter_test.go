package rate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MrEthical07/goContacts/metrics"
)

type failingStore struct{ err error }

func (f failingStore) Hit(context.Context, string, int, time.Duration) (Decision, error) {
	return Decision{}, f.err
}

type blockingStore struct{}

func (blockingStore) Hit(ctx context.Context, _ string, _ int, _ time.Duration) (Decision, error) {
	<-ctx.Done()
	return Decision{}, ctx.Err()
}

func newTestLimiter(t *testing.T, cfg Config) *Limiter {
	t.Helper()
	if cfg.Default.Window == 0 {
		cfg.Default = Policy{Limit: 100, Window: time.Minute}
	}
	l, err := New(cfg)
	if err != nil {
		t.Fatalf("new limiter: %v", err)
	}
	return l
}

func TestLimiterAdmitRouteUsesRoutePolicy(t *testing.T) {
	clock := &manualClock{now: time.Unix(1_700_000_000, 0)}
	m := metrics.New(metrics.Config{Enabled: true})
	l := newTestLimiter(t, Config{
		Store:   NewMemoryStore(clock.Now),
		Routes:  map[string]Policy{"auth.login": {Limit: 5, Window: time.Minute}},
		Metrics: m,
	})
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		clock.Advance(time.Second)
		if _, err := l.AdmitRoute(ctx, "auth.login", "203.0.113.7"); err != nil {
			t.Fatalf("request %d: %v", i+1, err)
		}
	}

	clock.Advance(5 * time.Second)
	d, err := l.AdmitRoute(ctx, "auth.login", "203.0.113.7")
	var limited *LimitedError
	if !errors.As(err, &limited) {
		t.Fatalf("expected *LimitedError, got %v", err)
	}
	if !errors.Is(err, ErrRateLimited) {
		t.Fatal("LimitedError must wrap ErrRateLimited")
	}
	if limited.RetryAfter != 50*time.Second || d.RetryAfter != 50*time.Second {
		t.Fatalf("expected retry after 50s, got %v", limited.RetryAfter)
	}

	if _, err := l.AdmitRoute(ctx, "auth.login", "198.51.100.1"); err != nil {
		t.Fatalf("other subject must be admitted: %v", err)
	}
	if _, err := l.AdmitRoute(ctx, "contacts.list", "203.0.113.7"); err != nil {
		t.Fatalf("route without policy uses the default: %v", err)
	}

	if got := m.Value(metrics.RateLimitDenied); got != 1 {
		t.Fatalf("expected 1 denial recorded, got %d", got)
	}
	if got := m.Value(metrics.RateLimitAllowed); got != 7 {
		t.Fatalf("expected 7 admissions recorded, got %d", got)
	}
}

func TestLimiterZeroLimitAlwaysDenies(t *testing.T) {
	l := newTestLimiter(t, Config{Store: NewMemoryStore(nil)})

	d, err := l.Admit(context.Background(), "k", 0, 30*time.Second)
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if d.Allowed || d.RetryAfter != 30*time.Second {
		t.Fatalf("unexpected decision %+v", d)
	}
}

func TestLimiterFailurePolicies(t *testing.T) {
	storeErr := errors.New("connection refused")

	tests := []struct {
		name    string
		policy  FailurePolicy
		allowed bool
		check   func(error) bool
	}{
		{name: "error", policy: FailureError, check: func(err error) bool { return errors.Is(err, ErrStoreUnavailable) }},
		{name: "default", policy: "", check: func(err error) bool { return errors.Is(err, ErrStoreUnavailable) }},
		{name: "open", policy: FailureOpen, allowed: true, check: func(err error) bool { return err == nil }},
		{name: "closed", policy: FailureClosed, check: func(err error) bool {
			var limited *LimitedError
			return errors.As(err, &limited) && limited.RetryAfter == time.Minute
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := metrics.New(metrics.Config{Enabled: true})
			l := newTestLimiter(t, Config{
				Store:         failingStore{err: storeErr},
				FailurePolicy: tt.policy,
				Metrics:       m,
			})

			d, err := l.Admit(context.Background(), "k", 5, time.Minute)
			if !tt.check(err) {
				t.Fatalf("unexpected error %v", err)
			}
			if d.Allowed != tt.allowed {
				t.Fatalf("expected allowed=%v, got %+v", tt.allowed, d)
			}
			if got := m.Value(metrics.RateLimitStoreFailure); got != 1 {
				t.Fatalf("expected store failure recorded, got %d", got)
			}
		})
	}
}

func TestLimiterBoundsStoreLatency(t *testing.T) {
	l := newTestLimiter(t, Config{Store: blockingStore{}, StoreTimeout: 20 * time.Millisecond})

	start := time.Now()
	_, err := l.Admit(context.Background(), "k", 5, time.Minute)
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("store call was not bounded, took %v", elapsed)
	}
}

func TestNewRejectsBadConfig(t *testing.T) {
	if _, err := New(Config{Default: Policy{Limit: 1, Window: time.Minute}}); err == nil {
		t.Fatal("expected error for nil store")
	}
	if _, err := New(Config{Store: NewMemoryStore(nil)}); err == nil {
		t.Fatal("expected error for zero default window")
	}
	if _, err := New(Config{Store: NewMemoryStore(nil), Default: Policy{Limit: 1, Window: time.Minute}, FailurePolicy: "maybe"}); err == nil {
		t.Fatal("expected error for unknown failure policy")
	}
}
