package lock

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"log/slog"
	"sync"
	"time"

	_ "github.com/lib/pq"
)

// AdvisoryLocker holds a session-level pg_advisory_lock on the directory
// database. Each held lock pins one pooled connection until release.
type AdvisoryLocker struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewAdvisoryLocker opens a dedicated lib/pq pool for lock sessions.
func NewAdvisoryLocker(dsn string, logger *slog.Logger) (*AdvisoryLocker, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open lock db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to lock db: %w", err)
	}
	return &AdvisoryLocker{db: db, logger: logger}, nil
}

func (l *AdvisoryLocker) Lock(ctx context.Context, tenantID int64) (func(), error) {
	conn, err := l.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get lock connection: %w", err)
	}
	if _, err := conn.ExecContext(ctx, "SELECT pg_advisory_lock($1)", tenantID); err != nil {
		// the lock may have been granted before the error surfaced
		_ = conn.Raw(func(any) error { return driver.ErrBadConn })
		_ = conn.Close()
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("pg_advisory_lock: %w", err)
	}

	return sync.OnceFunc(func() {
		unlockCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if _, err := conn.ExecContext(unlockCtx, "SELECT pg_advisory_unlock($1)", tenantID); err != nil {
			l.logger.Error("lock_release_failed", slog.Int64("tenant_id", tenantID), slog.Any("error", err))
			// a discarded session drops its advisory locks
			_ = conn.Raw(func(any) error { return driver.ErrBadConn })
		}
		_ = conn.Close()
	}), nil
}

func (l *AdvisoryLocker) Close() error {
	return l.db.Close()
}
