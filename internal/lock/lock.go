// internal/lock/lock.go
package lock

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"scoreboard/internal/apperr"
	"scoreboard/internal/metrics"
)

// Locker grants exclusive access to one tenant. Lock blocks until the lock is
// held or ctx is done; the returned release func is safe to call more than once.
type Locker interface {
	Lock(ctx context.Context, tenantID int64) (release func(), err error)
}

// Guard runs functions inside a tenant's lock.
type Guard struct {
	locker  Locker
	timeout time.Duration
	logger  *slog.Logger
}

// NewGuard wraps a Locker. A zero timeout waits for the lock forever, bounded
// only by the caller's context.
func NewGuard(locker Locker, timeout time.Duration, logger *slog.Logger) *Guard {
	return &Guard{locker: locker, timeout: timeout, logger: logger}
}

// WithTenant acquires the tenant lock, runs fn and releases the lock on every
// exit path. Failing to acquire returns an *apperr.LockError.
func (g *Guard) WithTenant(ctx context.Context, tenantID int64, fn func(ctx context.Context) error) error {
	acquireCtx := ctx
	if g.timeout > 0 {
		var cancel context.CancelFunc
		acquireCtx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	start := time.Now()
	release, err := g.locker.Lock(acquireCtx, tenantID)
	metrics.LockWait.WithLabelValues(metrics.Tenant(tenantID)).Observe(time.Since(start).Seconds())
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			g.logger.Warn("lock_acquire_timeout",
				slog.Int64("tenant_id", tenantID),
				slog.Duration("waited", time.Since(start)),
			)
		}
		return &apperr.LockError{TenantID: tenantID, Err: err}
	}
	defer release()

	return fn(ctx)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
