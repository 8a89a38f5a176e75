package rate

import (
	"context"
	"sync"
	"time"
)

const pruneEvery = 1024

type memoryWindow struct {
	count  int
	start  time.Time
	window time.Duration
}

// MemoryStore is a single-process Store. It is only correct when one
// instance serves all traffic.
type MemoryStore struct {
	mu      sync.Mutex
	now     func() time.Time
	windows map[string]*memoryWindow
	hits    int
}

// NewMemoryStore returns a MemoryStore. A nil clock means time.Now.
func NewMemoryStore(now func() time.Time) *MemoryStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{
		now:     now,
		windows: make(map[string]*memoryWindow),
	}
}

func (s *MemoryStore) Hit(ctx context.Context, key string, limit int, window time.Duration) (Decision, error) {
	if err := ctx.Err(); err != nil {
		return Decision{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.hits++
	if s.hits%pruneEvery == 0 {
		s.pruneLocked(now)
	}

	w, ok := s.windows[key]
	if ok && now.Sub(w.start) >= w.window {
		ok = false
	}
	if !ok {
		if limit <= 0 {
			return Decision{Allowed: false, RetryAfter: window}, nil
		}
		s.windows[key] = &memoryWindow{count: 1, start: now, window: window}
		return Decision{Allowed: true, Count: 1, Remaining: remaining(limit, 1)}, nil
	}

	if w.count >= limit {
		return Decision{
			Allowed:    false,
			Count:      w.count,
			Remaining:  0,
			RetryAfter: w.window - now.Sub(w.start),
		}, nil
	}

	w.count++
	return Decision{Allowed: true, Count: w.count, Remaining: remaining(limit, w.count)}, nil
}

// Len reports the number of live windows.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.windows)
}

func (s *MemoryStore) pruneLocked(now time.Time) {
	for key, w := range s.windows {
		if now.Sub(w.start) >= w.window {
			delete(s.windows, key)
		}
	}
}
