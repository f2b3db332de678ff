package lock

import (
	"context"
	"sync"
)

// LocalLocker serializes tenants within a single process.
type LocalLocker struct {
	mu    sync.Mutex
	slots map[int64]chan struct{}
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{slots: make(map[int64]chan struct{})}
}

func (l *LocalLocker) slot(tenantID int64) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	ch, ok := l.slots[tenantID]
	if !ok {
		ch = make(chan struct{}, 1)
		l.slots[tenantID] = ch
	}
	return ch
}

func (l *LocalLocker) Lock(ctx context.Context, tenantID int64) (func(), error) {
	ch := l.slot(tenantID)
	select {
	case ch <- struct{}{}:
		return sync.OnceFunc(func() { <-ch }), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
