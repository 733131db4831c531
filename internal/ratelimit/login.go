package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Cookseyyyyyy/ntadmindashboard/internal/config"
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	keyLoginAttempt = "ntadmin:login:%s:%s"
	keyMutationLock = "ntadmin:mutation:%s:%s"

	defaultMutationTTL = 30 * time.Second
)

// LoginLimiter throttles sign-in attempts per client IP and email.
type LoginLimiter struct {
	enabled bool
	limiter Limiter
	rate    float64
	burst   int
	log     *zap.Logger
}

func NewLoginLimiter(cfg config.Config, client *redis.Client, log *zap.Logger) *LoginLimiter {
	if log == nil {
		log = zap.NewNop()
	}
	limitCfg := cfg.RateLimit
	if !limitCfg.LoginEnabled || limitCfg.LoginPerMinute <= 0 || limitCfg.LoginBurst <= 0 {
		return &LoginLimiter{}
	}

	var limiter Limiter = NewMemoryBucket()
	if client != nil {
		limiter = NewTokenBucket(client)
	}
	return &LoginLimiter{
		enabled: true,
		limiter: limiter,
		rate:    limitCfg.LoginPerMinute / 60,
		burst:   limitCfg.LoginBurst,
		log:     log.Named("ratelimit"),
	}
}

func (l *LoginLimiter) Enabled() bool {
	return l != nil && l.enabled
}

// Allow consumes one attempt. A limiter failure admits the attempt so a
// Redis outage does not lock every administrator out.
func (l *LoginLimiter) Allow(ctx context.Context, clientIP, email string) (*RateLimitResult, error) {
	if !l.Enabled() {
		return &RateLimitResult{Allowed: true}, nil
	}
	key := fmt.Sprintf(keyLoginAttempt, strings.TrimSpace(clientIP), strings.ToLower(strings.TrimSpace(email)))
	result, err := l.limiter.Allow(ctx, key, l.rate, l.burst)
	if err != nil {
		l.log.Warn("login limiter unavailable", zap.Error(err))
		return &RateLimitResult{Allowed: true}, err
	}
	return result, nil
}

// MutationGuard rejects a second mutation of the same record by the same
// browser while the first is still in flight.
type MutationGuard struct {
	locker SubmissionLocker
	ttl    time.Duration
}

func NewMutationGuard(client *redis.Client) *MutationGuard {
	if client != nil {
		return &MutationGuard{locker: NewLocker(client), ttl: defaultMutationTTL}
	}
	return &MutationGuard{locker: NewMemoryLocker(), ttl: defaultMutationTTL}
}

// Acquire returns a release func when the caller holds the guard.
func (g *MutationGuard) Acquire(ctx context.Context, sid, resource string) (func(), bool, error) {
	key := fmt.Sprintf(keyMutationLock, strings.TrimSpace(sid), strings.TrimSpace(resource))
	token, ok, err := g.locker.TryLock(ctx, key, g.ttl)
	if err != nil || !ok {
		return func() {}, ok, err
	}
	return func() {
		_ = g.locker.Release(context.WithoutCancel(ctx), key, token)
	}, true, nil
}
