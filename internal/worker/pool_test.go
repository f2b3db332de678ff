package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scoreboard/internal/apperr"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type ackRecorder struct {
	mu       sync.Mutex
	acked    []uint64
	requeued []uint64
	rejected []uint64
	done     chan struct{}
}

func newAckRecorder() *ackRecorder { return &ackRecorder{done: make(chan struct{}, 16)} }

func (a *ackRecorder) Ack(tag uint64, _ bool) error {
	a.mu.Lock()
	a.acked = append(a.acked, tag)
	a.mu.Unlock()
	a.done <- struct{}{}
	return nil
}

func (a *ackRecorder) Nack(tag uint64, _ bool, requeue bool) error {
	a.mu.Lock()
	if requeue {
		a.requeued = append(a.requeued, tag)
	} else {
		a.rejected = append(a.rejected, tag)
	}
	a.mu.Unlock()
	a.done <- struct{}{}
	return nil
}

func (a *ackRecorder) Reject(tag uint64, _ bool) error {
	a.mu.Lock()
	a.rejected = append(a.rejected, tag)
	a.mu.Unlock()
	a.done <- struct{}{}
	return nil
}

func (a *ackRecorder) wait(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-a.done:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for %d acknowledgements", n)
		}
	}
}

func TestWorkerPoolAcknowledgesByOutcome(t *testing.T) {
	handler := func(_ context.Context, tenantID int64, body []byte) error {
		assert.EqualValues(t, 3, tenantID)
		switch string(body) {
		case "busy":
			return &apperr.LockError{TenantID: tenantID, Err: context.DeadlineExceeded}
		case "bad":
			return errors.New("malformed payload")
		}
		return nil
	}
	pool := NewWorkerPool(3, handler, 2, discard)
	pool.Start(context.Background())
	defer pool.Stop()

	acks := newAckRecorder()
	for i, body := range []string{"ok", "busy", "bad"} {
		pool.Submit(amqp.Delivery{Acknowledger: acks, DeliveryTag: uint64(i + 1), Body: []byte(body)})
	}
	acks.wait(t, 3)

	assert.Equal(t, []uint64{1}, acks.acked)
	assert.Equal(t, []uint64{2}, acks.requeued)
	assert.Equal(t, []uint64{3}, acks.rejected)
}

func TestSetWorkerCount(t *testing.T) {
	pool := NewWorkerPool(1, func(context.Context, int64, []byte) error { return nil }, 1, discard)
	pool.SetWorkerCount(3)
	assert.Equal(t, 3, pool.Workers())

	pool.Start(context.Background())
	pool.SetWorkerCount(2)
	assert.Equal(t, 2, pool.Workers())

	acks := newAckRecorder()
	pool.Submit(amqp.Delivery{Acknowledger: acks, DeliveryTag: 1})
	acks.wait(t, 1)

	pool.Stop()
	pool.Stop()
	require.Equal(t, []uint64{1}, acks.acked)
}
