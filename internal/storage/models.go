package storage

import (
	"time"

	"scoreboard/internal/model"
)

type tenantRow struct {
	ID          int64  `gorm:"primaryKey;autoIncrement"`
	Name        string `gorm:"size:64;not null;uniqueIndex"`
	DisplayName string `gorm:"size:255;not null"`
	CreatedAt   int64  `gorm:"not null"`
	UpdatedAt   int64  `gorm:"not null"`
}

func (tenantRow) TableName() string { return "tenant" }

func (r tenantRow) toModel() model.Tenant {
	return model.Tenant{
		ID:          r.ID,
		Name:        r.Name,
		DisplayName: r.DisplayName,
		CreatedAt:   time.Unix(r.CreatedAt, 0),
		UpdatedAt:   time.Unix(r.UpdatedAt, 0),
	}
}

type idGeneratorRow struct {
	ID   int64  `gorm:"primaryKey;autoIncrement"`
	Stub string `gorm:"size:1;not null"`
}

func (idGeneratorRow) TableName() string { return "id_generator" }

type visitHistoryRow struct {
	ID            int64  `gorm:"primaryKey;autoIncrement"`
	PlayerID      string `gorm:"size:255;not null"`
	TenantID      int64  `gorm:"not null;index:idx_visit_tenant_competition,priority:1"`
	CompetitionID string `gorm:"size:255;not null;index:idx_visit_tenant_competition,priority:2"`
	CreatedAt     int64  `gorm:"not null"`
	UpdatedAt     int64  `gorm:"not null"`
}

func (visitHistoryRow) TableName() string { return "visit_history" }
