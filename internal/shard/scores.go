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

// ReplaceResult describes a committed score replacement.
type ReplaceResult struct {
	Generation int64
	// PreviousPlayers are the distinct players of the replaced generation.
	PreviousPlayers []string
}

// ReplaceScores deletes every score row of the competition and inserts rows
// as the new generation, bumping the competition's generation counter. The
// three steps commit together; on any failure the previous generation stays.
func (s *Store) ReplaceScores(ctx context.Context, competitionID string, rows []model.PlayerScore, at time.Time) (ReplaceResult, error) {
	var result ReplaceResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		comp, err := getCompetition(tx, s.tenantID, competitionID)
		if err != nil {
			return err
		}
		if comp.FinishedAt != nil {
			return apperr.Conflict("competition is finished")
		}

		var previous []string
		err = tx.Model(&playerScoreRow{}).
			Where("tenant_id = ? AND competition_id = ?", s.tenantID, competitionID).
			Distinct().Pluck("player_id", &previous).Error
		if err != nil {
			return fmt.Errorf("failed to read previous players: %w", err)
		}

		err = tx.Where("tenant_id = ? AND competition_id = ?", s.tenantID, competitionID).
			Delete(&playerScoreRow{}).Error
		if err != nil {
			return fmt.Errorf("failed to delete player_score: %w", err)
		}

		if len(rows) > 0 {
			inserts := make([]playerScoreRow, 0, len(rows))
			for _, r := range rows {
				r.TenantID = s.tenantID
				r.CompetitionID = competitionID
				inserts = append(inserts, scoreRowFromModel(r))
			}
			if err := tx.CreateInBatches(inserts, lookupChunk).Error; err != nil {
				return fmt.Errorf("failed to insert player_score: %w", err)
			}
		}

		err = tx.Model(&competitionRow{}).
			Where("tenant_id = ? AND id = ?", s.tenantID, competitionID).
			Updates(map[string]any{
				"generation": gorm.Expr("generation + 1"),
				"updated_at": at.Unix(),
			}).Error
		if err != nil {
			return fmt.Errorf("failed to bump generation: %w", err)
		}

		result = ReplaceResult{Generation: comp.Generation + 1, PreviousPlayers: previous}
		return nil
	})
	if err != nil {
		return ReplaceResult{}, err
	}
	return result, nil
}

// ScoresByRowNumDesc returns every row of the current generation joined with
// the player's display name, highest row_num first.
func (s *Store) ScoresByRowNumDesc(ctx context.Context, competitionID string) ([]model.RankEntry, error) {
	var entries []model.RankEntry
	err := s.db.WithContext(ctx).Raw(`
		SELECT ps.score, ps.player_id, p.display_name AS player_display_name, ps.row_num
		FROM player_score ps
		JOIN player p ON p.id = ps.player_id AND p.tenant_id = ps.tenant_id
		WHERE ps.tenant_id = ? AND ps.competition_id = ?
		ORDER BY ps.row_num DESC`, s.tenantID, competitionID).
		Scan(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to select player_score: %w", err)
	}
	return entries, nil
}

// ScoreRows returns the current generation in upload order.
func (s *Store) ScoreRows(ctx context.Context, competitionID string) ([]model.PlayerScore, error) {
	var rows []playerScoreRow
	err := s.scoped(ctx).Where("competition_id = ?", competitionID).Order("row_num ASC").Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to select player_score: %w", err)
	}
	scores := make([]model.PlayerScore, 0, len(rows))
	for _, r := range rows {
		scores = append(scores, r.toModel())
	}
	return scores, nil
}

// LatestScore returns the player's current score row in a competition: the
// row with the highest row_num. ok is false when the player has no row.
func (s *Store) LatestScore(ctx context.Context, competitionID, playerID string) (score model.PlayerScore, ok bool, err error) {
	var row playerScoreRow
	err = s.scoped(ctx).
		Where("competition_id = ? AND player_id = ?", competitionID, playerID).
		Order("row_num DESC").
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.PlayerScore{}, false, nil
	}
	if err != nil {
		return model.PlayerScore{}, false, fmt.Errorf("failed to select latest score: %w", err)
	}
	return row.toModel(), true, nil
}

// ScoredPlayers returns the distinct players holding at least one row in the
// competition's current generation.
func (s *Store) ScoredPlayers(ctx context.Context, competitionID string) ([]string, error) {
	var ids []string
	err := s.scoped(ctx).Model(&playerScoreRow{}).
		Where("competition_id = ?", competitionID).
		Distinct().Pluck("player_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to select scored players: %w", err)
	}
	return ids, nil
}

// ScoreEpoch is the sum of all competition generations. It increases on
// every score replacement in the tenant.
func (s *Store) ScoreEpoch(ctx context.Context) (int64, error) {
	var epoch int64
	err := s.db.WithContext(ctx).Raw(
		"SELECT COALESCE(SUM(generation), 0) FROM competition WHERE tenant_id = ?", s.tenantID).
		Scan(&epoch).Error
	if err != nil {
		return 0, fmt.Errorf("failed to compute score epoch: %w", err)
	}
	return epoch, nil
}
