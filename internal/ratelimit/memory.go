package ratelimit

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/smallbiznis/warden/internal/clock"
)

// pruneThreshold bounds the bucket map; once exceeded, full buckets that have
// not been touched recently are dropped on the next write.
const pruneThreshold = 10000

type bucket struct {
	tokens     float64
	lastRefill time.Time
}

// MemoryStore is the in-process token-bucket backend, used when no redis
// address is configured. Single-instance semantics only.
type MemoryStore struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	clock   clock.Clock
}

func NewMemoryStore(clk clock.Clock) *MemoryStore {
	return &MemoryStore{
		buckets: make(map[string]*bucket),
		clock:   clk,
	}
}

func (s *MemoryStore) Allow(_ context.Context, key string, rate float64, burst int) (*Result, error) {
	if key == "" {
		return nil, errors.New("rate limiter key is empty")
	}
	if rate <= 0 || burst <= 0 {
		return nil, errors.New("rate limiter rate and burst must be positive")
	}

	now := s.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.buckets[key]
	if !ok {
		if len(s.buckets) >= pruneThreshold {
			s.pruneLocked(now, rate, burst)
		}
		b = &bucket{tokens: float64(burst), lastRefill: now}
		s.buckets[key] = b
	} else {
		elapsed := now.Sub(b.lastRefill).Seconds()
		if elapsed > 0 {
			b.tokens += elapsed * rate
			if b.tokens > float64(burst) {
				b.tokens = float64(burst)
			}
			b.lastRefill = now
		}
	}

	res := &Result{Limit: burst}
	if b.tokens >= 1 {
		b.tokens--
		res.Allowed = true
		res.Remaining = int(b.tokens)
		return res, nil
	}

	res.Remaining = 0
	res.RetryAfter = retryAfter(b.tokens, rate)
	return res, nil
}

// pruneLocked drops buckets idle long enough to have refilled completely;
// they would behave identically to a fresh bucket anyway.
func (s *MemoryStore) pruneLocked(now time.Time, rate float64, burst int) {
	idle := time.Duration(float64(burst)/rate*float64(time.Second)) * 2
	for key, b := range s.buckets {
		if now.Sub(b.lastRefill) > idle {
			delete(s.buckets, key)
		}
	}
}

func retryAfter(tokens, rate float64) time.Duration {
	needed := 1.0 - tokens
	if needed <= 0 {
		return 0
	}
	return time.Duration(needed / rate * float64(time.Second))
}
