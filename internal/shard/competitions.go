package shard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"scoreboard/internal/apperr"
	"scoreboard/internal/model"
)

func (s *Store) CreateCompetition(ctx context.Context, c model.Competition) error {
	row := competitionRow{
		ID:        c.ID,
		TenantID:  s.tenantID,
		Title:     c.Title,
		CreatedAt: c.CreatedAt.Unix(),
		UpdatedAt: c.UpdatedAt.Unix(),
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isDuplicateKey(err) {
			return apperr.Duplicate("duplicate competition")
		}
		return fmt.Errorf("failed to insert competition: %w", err)
	}
	return nil
}

func (s *Store) GetCompetition(ctx context.Context, id string) (model.Competition, error) {
	row, err := getCompetition(s.db.WithContext(ctx), s.tenantID, id)
	if err != nil {
		return model.Competition{}, err
	}
	return row.toModel(), nil
}

func getCompetition(db *gorm.DB, tenantID int64, id string) (competitionRow, error) {
	var row competitionRow
	err := db.Where("tenant_id = ? AND id = ?", tenantID, id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return competitionRow{}, apperr.NotFound("competition", id)
	}
	if err != nil {
		return competitionRow{}, fmt.Errorf("failed to get competition: %w", err)
	}
	return row, nil
}

// ListCompetitions returns the tenant's competitions ordered by creation time.
func (s *Store) ListCompetitions(ctx context.Context, newestFirst bool) ([]model.Competition, error) {
	q := s.scoped(ctx)
	if newestFirst {
		q = q.Order("created_at DESC").Order("id DESC")
	} else {
		q = q.Order("created_at ASC").Order("id ASC")
	}
	var rows []competitionRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list competitions: %w", err)
	}
	comps := make([]model.Competition, 0, len(rows))
	for _, r := range rows {
		comps = append(comps, r.toModel())
	}
	return comps, nil
}

// FinishCompetition closes a competition. Finishing twice keeps the first
// finish time.
func (s *Store) FinishCompetition(ctx context.Context, id string, at time.Time) (model.Competition, error) {
	var out competitionRow
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row, err := getCompetition(tx, s.tenantID, id)
		if err != nil {
			return err
		}
		if row.FinishedAt == nil {
			finished := at.Unix()
			err := tx.Model(&competitionRow{}).
				Where("tenant_id = ? AND id = ?", s.tenantID, id).
				Updates(map[string]any{"finished_at": finished, "updated_at": finished}).Error
			if err != nil {
				return fmt.Errorf("failed to finish competition: %w", err)
			}
			row.FinishedAt = &finished
			row.UpdatedAt = finished
		}
		out = row
		return nil
	})
	if err != nil {
		return model.Competition{}, err
	}
	return out.toModel(), nil
}
