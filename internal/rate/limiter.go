// Package rate implements the pre-gate request throttle: Redis fixed-window
// counters per identifier and per client IP, checked before the
// authentication state machine runs.
package rate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds throttle tuning parameters.
type Config struct {
	PerIP       bool
	MaxAttempts int
	Cooldown    time.Duration
	Prefix      string
}

// Limiter enforces per-identifier and per-IP attempt budgets using Redis
// counters with a cooldown TTL.
type Limiter struct {
	redis  redis.UniversalClient
	config Config
}

var (
	// ErrLimited indicates the attempt budget is exhausted.
	ErrLimited = errors.New("rate limited")
	// ErrUnavailable indicates the throttle backend is unreachable.
	ErrUnavailable = errors.New("rate limiter backend unavailable")
)

// New creates a [Limiter] backed by the given Redis client.
func New(redisClient redis.UniversalClient, cfg Config) *Limiter {
	if cfg.Prefix == "" {
		cfg.Prefix = "agt"
	}
	return &Limiter{redis: redisClient, config: cfg}
}

func (l *Limiter) identityKey(identity string) string {
	return l.config.Prefix + ":id:" + identity
}

func (l *Limiter) ipKey(ip string) string {
	return l.config.Prefix + ":ip:" + ip
}

// Check reports whether the identity+IP pair is within the attempt budget.
func (l *Limiter) Check(ctx context.Context, identity, ip string) error {
	if err := l.checkCounter(ctx, l.identityKey(identity)); err != nil {
		return err
	}
	if l.config.PerIP && ip != "" {
		if err := l.checkCounter(ctx, l.ipKey(ip)); err != nil {
			return err
		}
	}
	return nil
}

// Increment records a failed run for the identity+IP pair.
func (l *Limiter) Increment(ctx context.Context, identity, ip string) error {
	if err := l.incrementWithTTL(ctx, l.identityKey(identity)); err != nil {
		return err
	}
	if l.config.PerIP && ip != "" {
		if err := l.incrementWithTTL(ctx, l.ipKey(ip)); err != nil {
			return err
		}
	}
	return nil
}

// Reset clears the counters for the identity+IP pair after a successful run.
func (l *Limiter) Reset(ctx context.Context, identity, ip string) error {
	keys := []string{l.identityKey(identity)}
	if l.config.PerIP && ip != "" {
		keys = append(keys, l.ipKey(ip))
	}
	if err := l.redis.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (l *Limiter) checkCounter(ctx context.Context, key string) error {
	count, err := l.redis.Get(ctx, key).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if count >= int64(l.config.MaxAttempts) {
		return ErrLimited
	}
	return nil
}

func (l *Limiter) incrementWithTTL(ctx context.Context, key string) error {
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if count == 1 && l.config.Cooldown > 0 {
		// TTL on first failure makes the counter a rolling window.
		if err := l.redis.Expire(ctx, key, l.config.Cooldown).Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
	}
	return nil
}
