package lock

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/valkey-io/valkey-go"
)

const (
	valkeyRetryInitialDelay = 50 * time.Millisecond
	valkeyRetryMaxDelay     = 500 * time.Millisecond
	valkeyCallTimeout       = 2 * time.Second
)

var (
	releaseScript = valkey.NewLuaScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

	renewScript = valkey.NewLuaScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0`)
)

// ValkeyLocker is a lease-based lock shared by every process talking to the
// same valkey. The lease is renewed at a third of its TTL while held.
type ValkeyLocker struct {
	client valkey.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewValkeyLocker(client valkey.Client, ttl time.Duration, logger *slog.Logger) *ValkeyLocker {
	return &ValkeyLocker{client: client, ttl: ttl, logger: logger}
}

func lockKey(tenantID int64) string {
	return "tenant_lock:" + strconv.FormatInt(tenantID, 10)
}

func (l *ValkeyLocker) Lock(ctx context.Context, tenantID int64) (func(), error) {
	key := lockKey(tenantID)
	token := uuid.NewString()

	delay := valkeyRetryInitialDelay
	for {
		cmd := l.client.B().Set().Key(key).Value(token).Nx().Px(l.ttl).Build()
		err := l.client.Do(ctx, cmd).Error()
		if err == nil {
			break
		}
		if !valkey.IsValkeyNil(err) {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("valkey lock acquire: %w", err)
		}
		if err := sleepCtx(ctx, delay); err != nil {
			return nil, err
		}
		delay = min(delay*2, valkeyRetryMaxDelay)
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go l.renew(tenantID, key, token, stop, done)

	return sync.OnceFunc(func() {
		close(stop)
		<-done
		releaseCtx, cancel := context.WithTimeout(context.Background(), valkeyCallTimeout)
		defer cancel()
		if err := releaseScript.Exec(releaseCtx, l.client, []string{key}, []string{token}).Error(); err != nil {
			l.logger.Error("lock_release_failed", slog.Int64("tenant_id", tenantID), slog.Any("error", err))
		}
	}), nil
}

func (l *ValkeyLocker) renew(tenantID int64, key, token string, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(l.ttl / 3)
	defer ticker.Stop()

	ttl := strconv.FormatInt(l.ttl.Milliseconds(), 10)
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), valkeyCallTimeout)
			n, err := renewScript.Exec(ctx, l.client, []string{key}, []string{token, ttl}).AsInt64()
			cancel()
			if err != nil {
				l.logger.Warn("lock_renew_failed", slog.Int64("tenant_id", tenantID), slog.Any("error", err))
				continue
			}
			if n == 0 {
				l.logger.Error("lock_lease_lost", slog.Int64("tenant_id", tenantID))
				return
			}
		}
	}
}
