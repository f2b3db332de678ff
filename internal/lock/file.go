package lock

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

const (
	fileRetryInitialDelay = 5 * time.Millisecond
	fileRetryMaxDelay     = 100 * time.Millisecond
)

// FileLocker takes an exclusive flock on <dir>/<tenant>.lock. It serializes
// processes sharing the directory as well as goroutines in one process, since
// every Lock call opens its own file description.
type FileLocker struct {
	dir string
}

func NewFileLocker(dir string) (*FileLocker, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create lock dir: %w", err)
	}
	return &FileLocker{dir: dir}, nil
}

func (l *FileLocker) path(tenantID int64) string {
	return filepath.Join(l.dir, strconv.FormatInt(tenantID, 10)+".lock")
}

func (l *FileLocker) Lock(ctx context.Context, tenantID int64) (func(), error) {
	f, err := os.OpenFile(l.path(tenantID), os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return nil, fmt.Errorf("failed to open lock file: %w", err)
	}
	fd := int(f.Fd())

	delay := fileRetryInitialDelay
	for {
		err := unix.Flock(fd, unix.LOCK_EX|unix.LOCK_NB)
		if err == nil {
			break
		}
		if !errors.Is(err, unix.EWOULDBLOCK) && !errors.Is(err, unix.EINTR) {
			_ = f.Close()
			return nil, fmt.Errorf("failed to flock %s: %w", f.Name(), err)
		}
		if err := sleepCtx(ctx, delay); err != nil {
			_ = f.Close()
			return nil, err
		}
		delay = min(delay*2, fileRetryMaxDelay)
	}

	return sync.OnceFunc(func() {
		_ = unix.Flock(fd, unix.LOCK_UN)
		_ = f.Close()
	}), nil
}
