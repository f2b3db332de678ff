package shard

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"scoreboard/internal/apperr"
	"scoreboard/internal/model"
)

// lookupChunk keeps IN lists well below SQLite's bound-parameter limit.
const lookupChunk = 500

// CreatePlayers inserts players in one transaction.
func (s *Store) CreatePlayers(ctx context.Context, players []model.Player) error {
	if len(players) == 0 {
		return nil
	}
	rows := make([]playerRow, 0, len(players))
	for _, p := range players {
		rows = append(rows, playerRow{
			ID:             p.ID,
			TenantID:       s.tenantID,
			DisplayName:    p.DisplayName,
			IsDisqualified: p.IsDisqualified,
			CreatedAt:      p.CreatedAt.Unix(),
			UpdatedAt:      p.UpdatedAt.Unix(),
		})
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(rows, lookupChunk).Error
	})
	if err != nil {
		if isDuplicateKey(err) {
			return apperr.Duplicate("duplicate player")
		}
		return fmt.Errorf("failed to insert players: %w", err)
	}
	return nil
}

func (s *Store) GetPlayer(ctx context.Context, id string) (model.Player, error) {
	var row playerRow
	err := s.scoped(ctx).Where("id = ?", id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Player{}, apperr.NotFound("player", id)
	}
	if err != nil {
		return model.Player{}, fmt.Errorf("failed to get player: %w", err)
	}
	return row.toModel(), nil
}

// ListPlayers returns the tenant's players, newest first.
func (s *Store) ListPlayers(ctx context.Context) ([]model.Player, error) {
	var rows []playerRow
	if err := s.scoped(ctx).Order("created_at DESC").Order("id DESC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list players: %w", err)
	}
	players := make([]model.Player, 0, len(rows))
	for _, r := range rows {
		players = append(players, r.toModel())
	}
	return players, nil
}

// DisqualifyPlayer sets the disqualified flag. The flag is never cleared.
func (s *Store) DisqualifyPlayer(ctx context.Context, id string, at time.Time) (model.Player, error) {
	res := s.scoped(ctx).Model(&playerRow{}).Where("id = ?", id).
		Updates(map[string]any{"is_disqualified": true, "updated_at": at.Unix()})
	if res.Error != nil {
		return model.Player{}, fmt.Errorf("failed to disqualify player: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return model.Player{}, apperr.NotFound("player", id)
	}
	return s.GetPlayer(ctx, id)
}

// MissingPlayers returns the ids, in first-seen order and without repeats,
// that have no player row in this shard.
func (s *Store) MissingPlayers(ctx context.Context, ids []string) ([]string, error) {
	unique := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}

	found := make(map[string]struct{}, len(unique))
	for start := 0; start < len(unique); start += lookupChunk {
		end := min(start+lookupChunk, len(unique))
		var existing []string
		err := s.scoped(ctx).Model(&playerRow{}).
			Where("id IN ?", unique[start:end]).
			Pluck("id", &existing).Error
		if err != nil {
			return nil, fmt.Errorf("failed to look up players: %w", err)
		}
		for _, id := range existing {
			found[id] = struct{}{}
		}
	}

	var missing []string
	for _, id := range unique {
		if _, ok := found[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

func isDuplicateKey(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(err.Error(), "UNIQUE constraint failed")
}
