package ratelimit

import (
	"context"
	"time"
)

// Result is one token-bucket decision.
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// Store is a token-bucket backend. Allow takes one token from the bucket at
// key, refilling at rate tokens per second up to burst.
type Store interface {
	Allow(ctx context.Context, key string, rate float64, burst int) (*Result, error)
}
