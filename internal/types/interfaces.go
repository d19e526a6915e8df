package types

import (
	"context"
	"time"
)

// RateLimitInfo contains the current state of a rate limit window.
type RateLimitInfo struct {
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RateLimitStore atomically increments a request counter and checks it
// against the configured limit. Implemented by the Redis-backed store in the
// api package; a nil store disables rate limiting entirely.
type RateLimitStore interface {
	// IncrementAndCheck increments the counter for key and reports whether
	// the request is still within the limit for the window.
	IncrementAndCheck(ctx context.Context, key string) (RateLimitInfo, bool, error)
}
