package storage

import (
	"context"
	"fmt"
	"time"

	"scoreboard/internal/model"
)

// RecordVisit appends one visit record.
func (s *Storage) RecordVisit(ctx context.Context, v model.VisitHistory) error {
	at := v.CreatedAt.Unix()
	row := visitHistoryRow{
		PlayerID:      v.PlayerID,
		TenantID:      v.TenantID,
		CompetitionID: v.CompetitionID,
		CreatedAt:     at,
		UpdatedAt:     at,
	}
	if err := s.DB.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to insert visit history: %w", err)
	}
	return nil
}

// FirstVisits returns the earliest visit of every player to a competition.
func (s *Storage) FirstVisits(ctx context.Context, tenantID int64, competitionID string) ([]model.FirstVisit, error) {
	var rows []struct {
		PlayerID     string
		MinCreatedAt int64
	}
	err := s.DB.WithContext(ctx).
		Model(&visitHistoryRow{}).
		Select("player_id, MIN(created_at) AS min_created_at").
		Where("tenant_id = ? AND competition_id = ?", tenantID, competitionID).
		Group("player_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query visit history: %w", err)
	}

	visits := make([]model.FirstVisit, 0, len(rows))
	for _, r := range rows {
		visits = append(visits, model.FirstVisit{PlayerID: r.PlayerID, FirstSeen: time.Unix(r.MinCreatedAt, 0)})
	}
	return visits, nil
}
