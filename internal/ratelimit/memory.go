package ratelimit

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter admits or rejects one event for key.
type Limiter interface {
	Allow(ctx context.Context, key string, perSecond float64, burst int) (*RateLimitResult, error)
}

var _ Limiter = (*TokenBucket)(nil)
var _ Limiter = (*MemoryBucket)(nil)

// MemoryBucket is the in-process limiter used when Redis is not configured.
// Buckets idle for longer than their refill window are dropped on access.
type MemoryBucket struct {
	mu      sync.Mutex
	buckets map[string]*memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewMemoryBucket() *MemoryBucket {
	return &MemoryBucket{
		buckets: make(map[string]*memoryEntry),
		now:     time.Now,
	}
}

func (m *MemoryBucket) Allow(ctx context.Context, key string, perSecond float64, burst int) (*RateLimitResult, error) {
	if key == "" {
		return &RateLimitResult{Allowed: false}, errors.New("rate limiter key is empty")
	}
	if perSecond <= 0 || burst <= 0 {
		return &RateLimitResult{Allowed: false}, errors.New("rate limiter rate and burst must be positive")
	}
	if err := ctx.Err(); err != nil {
		return &RateLimitResult{Allowed: false}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.evict(now, defaultBucketTTL(perSecond, burst))

	e, ok := m.buckets[key]
	if !ok {
		e = &memoryEntry{limiter: rate.NewLimiter(rate.Limit(perSecond), burst)}
		m.buckets[key] = e
	}
	e.lastSeen = now

	reservation := e.limiter.ReserveN(now, 1)
	if !reservation.OK() {
		return &RateLimitResult{Allowed: false, Limit: burst}, nil
	}
	if delay := reservation.DelayFrom(now); delay > 0 {
		reservation.CancelAt(now)
		return &RateLimitResult{
			Allowed:    false,
			Limit:      burst,
			Remaining:  0,
			ResetTime:  now.Add(delay),
			RetryAfter: delay,
		}, nil
	}

	remaining := int(e.limiter.TokensAt(now))
	if remaining < 0 {
		remaining = 0
	}
	return &RateLimitResult{
		Allowed:   true,
		Limit:     burst,
		Remaining: remaining,
		ResetTime: now,
	}, nil
}

func (m *MemoryBucket) evict(now time.Time, idle time.Duration) {
	for key, e := range m.buckets {
		if now.Sub(e.lastSeen) > idle {
			delete(m.buckets, key)
		}
	}
}
