package rate

import (
	"context"
	"time"
)

// Decision is the outcome of one admission check.
type Decision struct {
	Allowed    bool
	Count      int
	Remaining  int
	RetryAfter time.Duration
}

// Store performs the atomic check-increment-rollover for one key.
// Implementations must treat the sequence as a single unit per key.
type Store interface {
	Hit(ctx context.Context, key string, limit int, window time.Duration) (Decision, error)
}

func remaining(limit, count int) int {
	if count >= limit {
		return 0
	}
	return limit - count
}
