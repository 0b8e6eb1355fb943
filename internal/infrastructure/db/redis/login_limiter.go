package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// LoginLimiter counts failed logins per identifier in a fixed window.
// Key format: login:fail:<identifier>
type LoginLimiter struct {
	client      *redis.Client
	maxAttempts int64
	window      time.Duration
}

// NewLoginLimiter returns a limiter that denies logins once maxAttempts
// failures were recorded within window. maxAttempts <= 0 disables it.
func NewLoginLimiter(client *redis.Client, maxAttempts int, window time.Duration) *LoginLimiter {
	return &LoginLimiter{client: client, maxAttempts: int64(maxAttempts), window: window}
}

func (l *LoginLimiter) enabled() bool {
	return l.maxAttempts > 0 && l.client != nil
}

// Allow reports whether another attempt is permitted for identifier.
func (l *LoginLimiter) Allow(ctx context.Context, identifier string) (bool, error) {
	if !l.enabled() {
		return true, nil
	}
	n, err := l.client.Get(ctx, l.key(identifier)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return true, nil
		}
		return false, fmt.Errorf("login limiter check: %w", err)
	}
	return n < l.maxAttempts, nil
}

// RecordFailure increments the failure counter. The window starts at the
// first failure. INCR and EXPIRE NX run in one MULTI/EXEC, and the expiry is
// set whenever the key has none, so a counter can never outlive its window.
func (l *LoginLimiter) RecordFailure(ctx context.Context, identifier string) error {
	if !l.enabled() {
		return nil
	}
	key := l.key(identifier)
	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, key)
		pipe.ExpireNX(ctx, key, l.window)
		return nil
	})
	if err != nil {
		return fmt.Errorf("login limiter record failure: %w", err)
	}
	return nil
}

// Reset clears the counter after a successful login.
func (l *LoginLimiter) Reset(ctx context.Context, identifier string) error {
	if !l.enabled() {
		return nil
	}
	return l.client.Del(ctx, l.key(identifier)).Err()
}

func (l *LoginLimiter) key(identifier string) string {
	return "login:fail:" + identifier
}
