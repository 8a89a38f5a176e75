package rate

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrRateLimited = errors.New("rate limited")
	// ErrStoreUnavailable is returned under FailureError when the store errors or times out.
	ErrStoreUnavailable = errors.New("rate limit store unavailable")
)

// LimitedError carries the wait before the caller may retry. It wraps ErrRateLimited.
type LimitedError struct {
	RetryAfter time.Duration
}

func (e *LimitedError) Error() string {
	return fmt.Sprintf("rate limited: retry after %s", e.RetryAfter)
}

func (e *LimitedError) Unwrap() error {
	return ErrRateLimited
}
