// Package rotation re-mints the QR tokens of active sessions on an external
// cadence, bounding how long a leaked or photographed code stays valid.
package rotation

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"classtrack/internal/apperr"
	"classtrack/internal/metrics"
)

// ErrLocked is returned when another rotation run holds the lock. Callers
// treat it as a clean no-op, not a failure.
var ErrLocked = errors.New("rotation already running")

// Store rotates tokens in the backing database. Each session's rotation is
// independently atomic; a run that fails partway leaves some sessions
// rotated and the rest untouched, which the next run picks up.
type Store interface {
	RotateStartTokens(ctx context.Context) (int, error)
	RotateEndTokens(ctx context.Context) (int, error)
}

// Locker serializes rotation runs across processes. Nil-safe: without a
// locker every run proceeds.
type Locker interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// Rotator coordinates the two token sweeps.
type Rotator struct {
	store   Store
	locker  Locker
	lockTTL time.Duration
}

// NewRotator creates a rotator. locker may be nil.
func NewRotator(store Store, locker Locker) *Rotator {
	return &Rotator{store: store, locker: locker, lockTTL: 30 * time.Second}
}

const lockKey = "classtrack:rotation:lock"

// RotateStartTokens replaces the start token of every non-ended session.
func (r *Rotator) RotateStartTokens(ctx context.Context) (int, error) {
	return r.withLock(ctx, func() (int, error) {
		n, err := r.store.RotateStartTokens(ctx)
		if err != nil {
			return 0, err
		}
		metrics.RotationsTotal.WithLabelValues("start").Add(float64(n))
		return n, nil
	})
}

// RotateEndTokens replaces the end token of every non-ended session that has
// one. It never mints a first end token; that is the lecturer's act.
func (r *Rotator) RotateEndTokens(ctx context.Context) (int, error) {
	return r.withLock(ctx, func() (int, error) {
		n, err := r.store.RotateEndTokens(ctx)
		if err != nil {
			return 0, err
		}
		metrics.RotationsTotal.WithLabelValues("end").Add(float64(n))
		return n, nil
	})
}

func (r *Rotator) withLock(ctx context.Context, fn func() (int, error)) (int, error) {
	if r.locker == nil {
		return fn()
	}
	ok, err := r.locker.SetNX(ctx, lockKey, 1, r.lockTTL).Result()
	if err != nil {
		return 0, apperr.Wrap(apperr.Infrastructure, "acquire rotation lock", err)
	}
	if !ok {
		return 0, ErrLocked
	}
	defer r.locker.Del(context.WithoutCancel(ctx), lockKey)
	return fn()
}
