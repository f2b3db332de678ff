package storage

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"gorm.io/gorm"

	"scoreboard/internal/apperr"
	"scoreboard/internal/model"
)

var tenantNamePattern = regexp.MustCompile(`^[a-z][a-z0-9-]{0,61}[a-z0-9]$`)

// ValidateTenantName checks a tenant name against the slug pattern used for
// tenant host names.
func ValidateTenantName(name string) error {
	if !tenantNamePattern.MatchString(name) {
		return apperr.Validation("name", "invalid tenant name: %s", name)
	}
	return nil
}

// CreateTenant registers a tenant. A duplicate name is a conflict.
func (s *Storage) CreateTenant(ctx context.Context, name, displayName string) (model.Tenant, error) {
	if err := ValidateTenantName(name); err != nil {
		return model.Tenant{}, err
	}
	now := time.Now().Unix()
	row := tenantRow{Name: name, DisplayName: displayName, CreatedAt: now, UpdatedAt: now}
	if err := s.DB.WithContext(ctx).Create(&row).Error; err != nil {
		if isDuplicateKey(err) {
			return model.Tenant{}, apperr.Duplicate("duplicate tenant")
		}
		return model.Tenant{}, fmt.Errorf("failed to insert tenant: %w", err)
	}
	return row.toModel(), nil
}

func (s *Storage) GetTenant(ctx context.Context, id int64) (model.Tenant, error) {
	var row tenantRow
	err := s.DB.WithContext(ctx).Where("id = ?", id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Tenant{}, apperr.NotFound("tenant", strconv.FormatInt(id, 10))
	}
	if err != nil {
		return model.Tenant{}, fmt.Errorf("failed to get tenant: %w", err)
	}
	return row.toModel(), nil
}

func (s *Storage) GetTenantByName(ctx context.Context, name string) (model.Tenant, error) {
	var row tenantRow
	err := s.DB.WithContext(ctx).Where("name = ?", name).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Tenant{}, apperr.NotFound("tenant", name)
	}
	if err != nil {
		return model.Tenant{}, fmt.Errorf("failed to get tenant: %w", err)
	}
	return row.toModel(), nil
}

// ListTenants returns every tenant, highest id first.
func (s *Storage) ListTenants(ctx context.Context) ([]model.Tenant, error) {
	return s.ListTenantsBefore(ctx, nil, 0)
}

// ListTenantsBefore returns tenants with id strictly below before (all when
// before is nil), highest id first. A limit of zero means no limit.
func (s *Storage) ListTenantsBefore(ctx context.Context, before *int64, limit int) ([]model.Tenant, error) {
	q := s.DB.WithContext(ctx).Order("id DESC")
	if before != nil {
		q = q.Where("id < ?", *before)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	var rows []tenantRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list tenants: %w", err)
	}
	tenants := make([]model.Tenant, 0, len(rows))
	for _, r := range rows {
		tenants = append(tenants, r.toModel())
	}
	return tenants, nil
}
