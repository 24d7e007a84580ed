// Package lockout implements the account lockout guard: per-account failed
// login counting with a temporary lock once a threshold is crossed.
//
// State lives in Redis rather than on the user document so that concurrent
// failed logins for the same account increment atomically (INCR) instead of
// racing a read-modify-write. Key layout:
//
//	lf:<userID> — failure counter, TTL = counter window
//	lk:<userID> — lock marker, TTL = lock duration
package lockout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrUnavailable indicates the lockout backend is unreachable. Callers
// surface it as a recoverable error; it never blocks indefinitely.
var ErrUnavailable = errors.New("lockout backend unavailable")

// Config tunes the guard. Threshold failures inside CounterWindow trigger a
// lock that lasts LockDuration.
type Config struct {
	Threshold     int
	LockDuration  time.Duration
	CounterWindow time.Duration
}

// DefaultConfig matches the production policy: 5 failures, 2 hour lock.
func DefaultConfig() Config {
	return Config{
		Threshold:     5,
		LockDuration:  2 * time.Hour,
		CounterWindow: 2 * time.Hour,
	}
}

// Guard tracks failed password verifications per account.
//
// The state machine per account is Unlocked -> (Threshold consecutive
// failures) -> Locked(until TTL elapses) -> Unlocked.
type Guard struct {
	redis  redis.UniversalClient
	config Config
}

// New creates a Guard backed by the given Redis client.
func New(redisClient redis.UniversalClient, cfg Config) *Guard {
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultConfig().Threshold
	}
	if cfg.LockDuration <= 0 {
		cfg.LockDuration = DefaultConfig().LockDuration
	}
	if cfg.CounterWindow <= 0 {
		cfg.CounterWindow = cfg.LockDuration
	}
	return &Guard{redis: redisClient, config: cfg}
}

func failKey(userID string) string { return "lf:" + userID }
func lockKey(userID string) string { return "lk:" + userID }

// RecordFailure increments the failure counter for an account. When the
// counter reaches the threshold the account is locked for the configured
// duration and the counter is cleared. Returns whether the account is now
// locked.
func (g *Guard) RecordFailure(ctx context.Context, userID string) (bool, error) {
	if userID == "" {
		return false, nil
	}

	count, err := g.redis.Incr(ctx, failKey(userID)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if count == 1 {
		// TTL on first failure makes the counter a rolling window.
		if err := g.redis.Expire(ctx, failKey(userID), g.config.CounterWindow).Err(); err != nil {
			return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
	}

	if count < int64(g.config.Threshold) {
		return false, nil
	}

	pipe := g.redis.TxPipeline()
	pipe.Set(ctx, lockKey(userID), "1", g.config.LockDuration)
	pipe.Del(ctx, failKey(userID))
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return true, nil
}

// IsLocked reports whether the account is inside an active lock window.
// Checked before the password is verified, so a locked login costs no
// hashing work.
func (g *Guard) IsLocked(ctx context.Context, userID string) (bool, error) {
	if userID == "" {
		return false, nil
	}

	n, err := g.redis.Exists(ctx, lockKey(userID)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return n > 0, nil
}

// Reset clears the counter and any lock. Called unconditionally after a
// successful password verification.
func (g *Guard) Reset(ctx context.Context, userID string) error {
	if userID == "" {
		return nil
	}

	if err := g.redis.Del(ctx, failKey(userID), lockKey(userID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// FailureCount returns the current counter value, zero when absent.
func (g *Guard) FailureCount(ctx context.Context, userID string) (int, error) {
	if userID == "" {
		return 0, nil
	}

	count, err := g.redis.Get(ctx, failKey(userID)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return int(count), nil
}
