package billing

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/sourcegraph/conc/pool"

	"scoreboard/internal/model"
	"scoreboard/internal/shard"
)

// AdminPageSize caps the tenants returned by one admin billing query.
const AdminPageSize = 10

type TenantLister interface {
	ListTenantsBefore(ctx context.Context, before *int64, limit int) ([]model.Tenant, error)
}

type ShardOpener interface {
	Shard(ctx context.Context, tenantID int64) (*shard.Store, error)
}

// Fanout totals billing across tenants, one concurrent task per tenant.
type Fanout struct {
	tenants     TenantLister
	shards      ShardOpener
	agg         *Aggregator
	concurrency int
	logger      *slog.Logger
}

func NewFanout(tenants TenantLister, shards ShardOpener, agg *Aggregator, concurrency int, logger *slog.Logger) *Fanout {
	if concurrency <= 0 {
		concurrency = AdminPageSize
	}
	return &Fanout{tenants: tenants, shards: shards, agg: agg, concurrency: concurrency, logger: logger}
}

// TenantsBilling returns up to AdminPageSize tenants with id below before
// (all tenants when before is nil), each with its total billing, ordered by
// id descending. Any failing tenant fails the whole query.
func (f *Fanout) TenantsBilling(ctx context.Context, before *int64) ([]model.TenantBilling, error) {
	tenants, err := f.tenants.ListTenantsBefore(ctx, before, AdminPageSize)
	if err != nil {
		return nil, err
	}

	p := pool.NewWithResults[model.TenantBilling]().
		WithContext(ctx).
		WithCancelOnError().
		WithFirstError().
		WithMaxGoroutines(f.concurrency)

	for _, t := range tenants {
		p.Go(func(ctx context.Context) (model.TenantBilling, error) {
			sh, err := f.shards.Shard(ctx, t.ID)
			if err != nil {
				return model.TenantBilling{}, err
			}
			total, err := f.agg.TenantTotal(ctx, sh)
			if err != nil {
				return model.TenantBilling{}, fmt.Errorf("tenant %d: %w", t.ID, err)
			}
			return model.TenantBilling{
				ID:          t.ID,
				Name:        t.Name,
				DisplayName: t.DisplayName,
				Billing:     total,
			}, nil
		})
	}

	results, err := p.Wait()
	if err != nil {
		f.logger.Error("tenant_billing_failed", slog.Any("error", err))
		return nil, err
	}
	slices.SortFunc(results, func(a, b model.TenantBilling) int {
		return cmp.Compare(b.ID, a.ID)
	})
	return results, nil
}
