// internal/consumer/consumer.go
package consumer

import (
	"fmt"
	"log/slog"

	"github.com/streadway/amqp"

	"scoreboard/internal/messaging"
	"scoreboard/internal/worker"
)

type MessageHandlerFunc func(tenantID int64, delivery amqp.Delivery)

// Consumer holds control channels and metadata for a running tenant consumer
type Consumer struct {
	TenantID    int64
	QueueName   string
	Channel     *amqp.Channel
	StopChan    chan struct{}
	DoneChan    chan struct{}
	Handler     MessageHandlerFunc
	ConsumerTag string
	Pool        *worker.WorkerPool

	logger *slog.Logger
}

// StartConsumer starts a goroutine that consumes the tenant's recompute queue
// and hands each delivery to the worker pool.
func StartConsumer(conn *amqp.Connection, tenantID int64, pool *worker.WorkerPool, logger *slog.Logger) (*Consumer, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("tenant %d: failed to open channel: %w", tenantID, err)
	}

	c := newConsumer(tenantID, pool, logger)
	c.Channel = ch

	// one unacked message per worker
	if err := ch.Qos(pool.Workers(), 0, false); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("tenant %d: failed to set qos: %w", tenantID, err)
	}

	msgs, err := ch.Consume(
		c.QueueName,
		c.ConsumerTag,
		false, // autoAck: false to handle manually
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("tenant %d: failed to start consuming: %w", tenantID, err)
	}

	go c.consumeLoop(msgs)

	logger.Info("consumer_started", slog.Int64("tenant_id", tenantID), slog.String("queue", c.QueueName))
	return c, nil
}

func newConsumer(tenantID int64, pool *worker.WorkerPool, logger *slog.Logger) *Consumer {
	return &Consumer{
		TenantID:    tenantID,
		QueueName:   messaging.QueueName(tenantID),
		StopChan:    make(chan struct{}),
		DoneChan:    make(chan struct{}),
		Handler:     func(_ int64, d amqp.Delivery) { pool.Submit(d) },
		ConsumerTag: fmt.Sprintf("consumer-%d", tenantID),
		Pool:        pool,
		logger:      logger,
	}
}

// consumeLoop processes messages until StopChan is closed
func (c *Consumer) consumeLoop(msgs <-chan amqp.Delivery) {
	defer func() {
		close(c.DoneChan)
	}()

	for {
		select {
		case msg, ok := <-msgs:
			if !ok {
				c.logger.Warn("delivery_channel_closed", slog.Int64("tenant_id", c.TenantID))
				return
			}
			c.Handler(c.TenantID, msg)

		case <-c.StopChan:
			if c.Channel != nil {
				_ = c.Channel.Cancel(c.ConsumerTag, false)
			}
			return
		}
	}
}

// Stop signals the consumer to stop, waits for cleanup and stops the pool
func (c *Consumer) Stop() {
	close(c.StopChan)
	<-c.DoneChan
	c.Pool.Stop()
	if c.Channel != nil {
		_ = c.Channel.Close()
	}
	c.logger.Info("consumer_stopped", slog.Int64("tenant_id", c.TenantID))
}

func (c *Consumer) SetWorkerCount(n int) {
	c.Pool.SetWorkerCount(n)
}
