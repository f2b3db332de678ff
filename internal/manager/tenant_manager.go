// internal/manager/tenant_manager.go
package manager

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/streadway/amqp"

	"scoreboard/internal/apperr"
	"scoreboard/internal/consumer"
	"scoreboard/internal/messaging"
	"scoreboard/internal/model"
	"scoreboard/internal/shard"
	"scoreboard/internal/storage"
	"scoreboard/internal/worker"
)

// TenantManager owns the open shard of every active tenant and, when
// RabbitMQ is configured, the tenant's recompute consumer.
type TenantManager struct {
	rabbitConn *amqp.Connection
	rabbit     *messaging.RabbitClient
	storage    *storage.Storage
	shardDir   string
	workers    int
	logger     *slog.Logger

	mu        sync.RWMutex
	ctx       context.Context
	handler   worker.Handler
	shards    map[int64]*shard.Store
	consumers map[int64]*consumer.Consumer
}

// NewTenantManager builds a manager. rabbit may be nil, in which case no
// consumers are started.
func NewTenantManager(
	rabbit *messaging.RabbitClient,
	storage *storage.Storage,
	shardDir string,
	workers int,
	logger *slog.Logger,
) *TenantManager {
	tm := &TenantManager{
		rabbit:    rabbit,
		storage:   storage,
		shardDir:  shardDir,
		workers:   workers,
		logger:    logger,
		ctx:       context.Background(),
		shards:    make(map[int64]*shard.Store),
		consumers: make(map[int64]*consumer.Consumer),
	}
	if rabbit != nil {
		tm.rabbitConn = rabbit.GetConnection()
	}
	return tm
}

// SetMessageHandler installs the recompute handler used by consumers started
// afterwards. ctx bounds the lifetime of the worker pools.
func (tm *TenantManager) SetMessageHandler(ctx context.Context, h worker.Handler) {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	tm.ctx = ctx
	tm.handler = h
}

// CreateTenant registers a tenant in the directory, provisions its shard and
// activates it.
func (tm *TenantManager) CreateTenant(ctx context.Context, name, displayName string) (model.Tenant, error) {
	tenant, err := tm.storage.CreateTenant(ctx, name, displayName)
	if err != nil {
		return model.Tenant{}, err
	}

	sh, err := shard.Provision(ctx, tm.shardDir, tenant.ID)
	if err != nil {
		return model.Tenant{}, fmt.Errorf("failed to provision shard for tenant %d: %w", tenant.ID, err)
	}

	tm.mu.Lock()
	tm.shards[tenant.ID] = sh
	tm.mu.Unlock()

	if err := tm.AddTenant(ctx, tenant.ID); err != nil {
		return model.Tenant{}, err
	}
	tm.logger.Info("tenant_created", slog.Int64("tenant_id", tenant.ID), slog.String("name", tenant.Name))
	return tenant, nil
}

// AddTenant opens the tenant's shard, declares its queue and spawns the consumer
func (tm *TenantManager) AddTenant(ctx context.Context, tenantID int64) error {
	if _, err := tm.Shard(ctx, tenantID); err != nil {
		return err
	}

	tm.mu.Lock()
	defer tm.mu.Unlock()

	if tm.rabbit == nil || tm.handler == nil {
		return nil
	}
	if _, exists := tm.consumers[tenantID]; exists {
		return nil // already exists
	}

	// Declare RabbitMQ queue
	if err := tm.rabbit.DeclareQueue(tenantID); err != nil {
		return err
	}

	// Start consumer
	pool := worker.NewWorkerPool(tenantID, tm.handler, tm.workers, tm.logger)
	pool.Start(tm.ctx)
	c, err := consumer.StartConsumer(tm.rabbitConn, tenantID, pool, tm.logger)
	if err != nil {
		pool.Stop()
		return err
	}
	tm.consumers[tenantID] = c

	tm.logger.Info("tenant_added", slog.Int64("tenant_id", tenantID))
	return nil
}

// Shard returns the tenant's open shard, opening it on first use.
func (tm *TenantManager) Shard(ctx context.Context, tenantID int64) (*shard.Store, error) {
	tm.mu.RLock()
	sh, ok := tm.shards[tenantID]
	tm.mu.RUnlock()
	if ok {
		return sh, nil
	}

	tm.mu.Lock()
	defer tm.mu.Unlock()
	if sh, ok := tm.shards[tenantID]; ok {
		return sh, nil
	}
	sh, err := shard.Open(ctx, tm.shardDir, tenantID)
	if err != nil {
		return nil, err
	}
	tm.shards[tenantID] = sh
	return sh, nil
}

// RemoveTenant stops the consumer, deletes the queue and closes the shard.
// Directory records and shard files are kept.
func (tm *TenantManager) RemoveTenant(tenantID int64) error {
	tm.mu.Lock()
	c, hasConsumer := tm.consumers[tenantID]
	delete(tm.consumers, tenantID)
	sh, hasShard := tm.shards[tenantID]
	delete(tm.shards, tenantID)
	tm.mu.Unlock()

	// stopped outside the lock: in-flight workers call Shard
	if hasConsumer {
		c.Stop()
		if err := tm.rabbit.DeleteQueue(tenantID); err != nil {
			tm.logger.Warn("queue_delete_failed", slog.Int64("tenant_id", tenantID), slog.Any("error", err))
		}
	}
	if hasShard {
		if err := sh.Close(); err != nil {
			tm.logger.Warn("shard_close_failed", slog.Int64("tenant_id", tenantID), slog.Any("error", err))
		}
	}

	tm.logger.Info("tenant_removed", slog.Int64("tenant_id", tenantID))
	return nil
}

// RecoverTenants activates every tenant registered in the directory.
func (tm *TenantManager) RecoverTenants(ctx context.Context) error {
	tenants, err := tm.storage.ListTenants(ctx)
	if err != nil {
		return fmt.Errorf("failed to load tenants: %w", err)
	}
	for _, t := range tenants {
		if err := tm.AddTenant(ctx, t.ID); err != nil {
			tm.logger.Warn("tenant_recover_failed", slog.Int64("tenant_id", t.ID), slog.Any("error", err))
			continue
		}
	}
	tm.logger.Info("tenants_recovered", slog.Int("count", len(tenants)))
	return nil
}

// Shutdown all tenants
func (tm *TenantManager) ShutdownAll() {
	tm.mu.Lock()
	consumers, shards := tm.consumers, tm.shards
	tm.consumers = make(map[int64]*consumer.Consumer)
	tm.shards = make(map[int64]*shard.Store)
	tm.mu.Unlock()

	for id, c := range consumers {
		c.Stop()
		tm.logger.Info("tenant_stopped", slog.Int64("tenant_id", id))
	}
	for _, sh := range shards {
		_ = sh.Close()
	}
}

// ListTenantIDs returns the tenants with a running consumer
func (tm *TenantManager) ListTenantIDs() []int64 {
	tm.mu.RLock()
	defer tm.mu.RUnlock()

	ids := make([]int64, 0, len(tm.consumers))
	for id := range tm.consumers {
		ids = append(ids, id)
	}
	return ids
}

// UpdateQueueDepths samples the recompute queue depth of every consumer.
func (tm *TenantManager) UpdateQueueDepths() {
	if tm.rabbit == nil {
		return
	}
	for _, id := range tm.ListTenantIDs() {
		tm.rabbit.UpdateQueueDepth(id)
	}
}

// SetWorkerCount resizes the worker pool of a running consumer.
func (tm *TenantManager) SetWorkerCount(tenantID int64, n int) error {
	tm.mu.RLock()
	c, ok := tm.consumers[tenantID]
	tm.mu.RUnlock()
	if !ok {
		return apperr.NotFound("tenant consumer", strconv.FormatInt(tenantID, 10))
	}
	if n <= 0 {
		return apperr.Validation("workers", "must be positive: %d", n)
	}
	c.SetWorkerCount(n)
	return nil
}
