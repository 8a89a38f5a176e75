package rate

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestRedisStoreFixedWindow(t *testing.T) {
	mr, rdb := newTestRedis(t)
	s := NewRedisStore(rdb)
	ctx := context.Background()
	key := Key("auth.login", "203.0.113.7")

	for i := 1; i <= 5; i++ {
		d, err := s.Hit(ctx, key, 5, time.Minute)
		if err != nil {
			t.Fatalf("hit %d: %v", i, err)
		}
		if !d.Allowed || d.Count != i {
			t.Fatalf("hit %d: unexpected decision %+v", i, d)
		}
	}

	mr.FastForward(10 * time.Second)
	d, err := s.Hit(ctx, key, 5, time.Minute)
	if err != nil {
		t.Fatalf("sixth hit: %v", err)
	}
	if d.Allowed {
		t.Fatal("expected sixth hit to be denied")
	}
	if d.RetryAfter != 50*time.Second {
		t.Fatalf("expected retry after 50s, got %v", d.RetryAfter)
	}

	got, err := rdb.Get(ctx, key).Int()
	if err != nil {
		t.Fatalf("get counter: %v", err)
	}
	if got != 5 {
		t.Fatalf("denied hit must not increment, counter=%d", got)
	}

	mr.FastForward(50 * time.Second)
	d, err = s.Hit(ctx, key, 5, time.Minute)
	if err != nil {
		t.Fatalf("hit after rollover: %v", err)
	}
	if !d.Allowed || d.Count != 1 {
		t.Fatalf("expected fresh window after rollover, got %+v", d)
	}
}

func TestRedisStoreRepairsKeyWithoutTTL(t *testing.T) {
	mr, rdb := newTestRedis(t)
	s := NewRedisStore(rdb)
	if err := mr.Set("rl:x:y", "3"); err != nil {
		t.Fatalf("seed: %v", err)
	}

	d, err := s.Hit(context.Background(), "rl:x:y", 3, time.Minute)
	if err != nil {
		t.Fatalf("hit: %v", err)
	}
	if d.Allowed || d.RetryAfter != time.Minute {
		t.Fatalf("expected denial with full window, got %+v", d)
	}
	if ttl := mr.TTL("rl:x:y"); ttl != time.Minute {
		t.Fatalf("expected ttl to be restored, got %v", ttl)
	}
}

func TestRedisStoreConcurrentNeverExceedsLimit(t *testing.T) {
	_, rdb := newTestRedis(t)
	s := NewRedisStore(rdb)
	const workers = 32
	const limit = 10

	var allowed atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d, err := s.Hit(context.Background(), "rl:contacts.create:alice", limit, time.Minute)
			if err != nil {
				t.Errorf("hit: %v", err)
				return
			}
			if d.Allowed {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()

	if got := allowed.Load(); got != limit {
		t.Fatalf("expected exactly %d admitted, got %d", limit, got)
	}
}

func TestRedisStoreUnavailable(t *testing.T) {
	mr, rdb := newTestRedis(t)
	s := NewRedisStore(rdb)
	mr.Close()

	_, err := s.Hit(context.Background(), "k", 5, time.Minute)
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}
