// internal/messaging/rabbit.go
package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/goccy/go-json"
	"github.com/streadway/amqp"

	"scoreboard/internal/metrics"
	"scoreboard/internal/model"
)

type RabbitClient struct {
	conn   *amqp.Connection
	logger *slog.Logger
	URL    string

	// amqp channels are not safe for concurrent publishers
	mu      sync.Mutex
	channel *amqp.Channel
}

func NewRabbitClient(url string, logger *slog.Logger) (*RabbitClient, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create channel: %w", err)
	}

	return &RabbitClient{
		conn:    conn,
		channel: ch,
		logger:  logger,
		URL:     url,
	}, nil
}

func (r *RabbitClient) GetConnection() *amqp.Connection {
	return r.conn
}

// QueueName is the tenant's recompute queue.
func QueueName(tenantID int64) string {
	return fmt.Sprintf("tenant_%d_recompute", tenantID)
}

// DLQName receives recompute messages that could not be processed.
func DLQName(tenantID int64) string {
	return fmt.Sprintf("tenant_%d_recompute_dlq", tenantID)
}

// DeclareQueue creates a tenant-specific durable queue
func (r *RabbitClient) DeclareQueue(tenantID int64) error {
	queueName := QueueName(tenantID)
	dlqName := DLQName(tenantID)

	r.mu.Lock()
	defer r.mu.Unlock()

	// 1. DLQ
	_, err := r.channel.QueueDeclare(
		dlqName,
		true, false, false, false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("declare DLQ: %w", err)
	}

	// 2. Main Queue with DLQ binding
	args := amqp.Table{
		"x-dead-letter-exchange":    "",
		"x-dead-letter-routing-key": dlqName,
	}
	_, err = r.channel.QueueDeclare(
		queueName,
		true, false, false, false,
		args,
	)
	if err != nil {
		return fmt.Errorf("declare main queue: %w", err)
	}

	r.logger.Debug("queues_declared", slog.Int64("tenant_id", tenantID), slog.String("queue", queueName))
	return nil
}

// DeleteQueue drops the tenant's recompute queue. The DLQ is kept for
// inspection.
func (r *RabbitClient) DeleteQueue(tenantID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := r.channel.QueueDelete(QueueName(tenantID), false, false, false); err != nil {
		return fmt.Errorf("failed to delete queue %s: %w", QueueName(tenantID), err)
	}
	return nil
}

// ScoresReplacedType is the AMQP type of a ScoresReplaced message.
const ScoresReplacedType = "scores_replaced"

// PublishScoresReplaced announces a new score generation to the tenant's
// recompute consumers.
func (r *RabbitClient) PublishScoresReplaced(_ context.Context, event model.ScoresReplaced) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	return r.publish(event.TenantID, amqp.Publishing{
		MessageId: event.EventID,
		Type:      ScoresReplacedType,
		Timestamp: event.OccurredAt,
		Headers:   amqp.Table{"generation": event.Generation},
		Body:      body,
	})
}

func (r *RabbitClient) publish(tenantID int64, msg amqp.Publishing) error {
	queueName := QueueName(tenantID)
	msg.ContentType = "application/json"
	msg.DeliveryMode = amqp.Persistent

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.channel.Publish("", queueName, false, false, msg); err != nil {
		return fmt.Errorf("failed to publish to queue %s: %w", queueName, err)
	}
	return nil
}

// Close cleans up connection and channel
func (r *RabbitClient) Close() error {
	if err := r.channel.Close(); err != nil {
		return err
	}
	if err := r.conn.Close(); err != nil {
		return err
	}
	return nil
}

func (r *RabbitClient) UpdateQueueDepth(tenantID int64) {
	queueName := QueueName(tenantID)

	r.mu.Lock()
	q, err := r.channel.QueueInspect(queueName)
	r.mu.Unlock()
	if err != nil {
		r.logger.Warn("queue_inspect_failed", slog.Int64("tenant_id", tenantID), slog.Any("error", err))
		return
	}

	metrics.QueueDepth.WithLabelValues(metrics.Tenant(tenantID)).Set(float64(q.Messages))
}
