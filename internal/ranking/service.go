// internal/ranking/service.go
package ranking

import (
	"context"
	"log/slog"
	"time"

	"scoreboard/internal/apperr"
	"scoreboard/internal/cache"
	"scoreboard/internal/lock"
	"scoreboard/internal/model"
	"scoreboard/internal/shard"
)

// VisitRecorder stores leaderboard views for billing.
type VisitRecorder interface {
	RecordVisit(ctx context.Context, v model.VisitHistory) error
}

// Service serves rankings and per-player score lists. All shard reads run
// inside the tenant lock; results are memoized per generation.
type Service struct {
	guard  *lock.Guard
	cache  *cache.Results
	visits VisitRecorder
	logger *slog.Logger
	now    func() time.Time
}

// NewService builds a Service. results may be nil to disable caching.
func NewService(guard *lock.Guard, results *cache.Results, visits VisitRecorder, logger *slog.Logger) *Service {
	return &Service{
		guard:  guard,
		cache:  results,
		visits: visits,
		logger: logger,
		now:    time.Now,
	}
}

// ViewRanking records the viewer's visit and returns one page of the
// competition's ranking.
func (s *Service) ViewRanking(ctx context.Context, sh *shard.Store, competitionID, viewerID string, rankAfter int64) (model.RankingPage, error) {
	if rankAfter < 0 {
		return model.RankingPage{}, apperr.Validation("rank_after", "must be non-negative: %d", rankAfter)
	}
	if _, err := sh.GetCompetition(ctx, competitionID); err != nil {
		return model.RankingPage{}, err
	}
	err := s.visits.RecordVisit(ctx, model.VisitHistory{
		TenantID:      sh.TenantID(),
		CompetitionID: competitionID,
		PlayerID:      viewerID,
		CreatedAt:     s.now(),
	})
	if err != nil {
		return model.RankingPage{}, err
	}
	return s.Ranking(ctx, sh, competitionID, rankAfter)
}

// Ranking returns one page of the competition's ranking.
func (s *Service) Ranking(ctx context.Context, sh *shard.Store, competitionID string, rankAfter int64) (model.RankingPage, error) {
	if rankAfter < 0 {
		return model.RankingPage{}, apperr.Validation("rank_after", "must be non-negative: %d", rankAfter)
	}

	var page model.RankingPage
	err := s.guard.WithTenant(ctx, sh.TenantID(), func(ctx context.Context) error {
		comp, err := sh.GetCompetition(ctx, competitionID)
		if err != nil {
			return err
		}
		entries, hit := s.cache.GetRanking(ctx, sh.TenantID(), competitionID, comp.Generation)
		if !hit {
			if entries, err = s.computeRanking(ctx, sh, comp); err != nil {
				return err
			}
		}
		page = model.RankingPage{
			Competition: comp.Summary(),
			Ranks:       Paginate(entries, rankAfter),
		}
		return nil
	})
	if err != nil {
		return model.RankingPage{}, err
	}
	return page, nil
}

// PlayerScores returns the player's current score in every competition that
// has one, oldest competition first.
func (s *Service) PlayerScores(ctx context.Context, sh *shard.Store, playerID string) (model.PlayerDetail, error) {
	var detail model.PlayerDetail
	err := s.guard.WithTenant(ctx, sh.TenantID(), func(ctx context.Context) error {
		player, err := sh.GetPlayer(ctx, playerID)
		if err != nil {
			return err
		}
		epoch, err := sh.ScoreEpoch(ctx)
		if err != nil {
			return err
		}
		scores, hit := s.cache.GetPlayerScores(ctx, sh.TenantID(), playerID, epoch)
		if !hit {
			if scores, err = s.computePlayerScores(ctx, sh, playerID, epoch); err != nil {
				return err
			}
		}
		detail = model.PlayerDetail{Player: player, Scores: scores}
		return nil
	})
	if err != nil {
		return model.PlayerDetail{}, err
	}
	return detail, nil
}

// Refresh recomputes the competition ranking at its current generation and
// the score lists of the given players at the current epoch, overwriting any
// older cache entries. Unknown players are skipped.
func (s *Service) Refresh(ctx context.Context, sh *shard.Store, competitionID string, playerIDs []string) error {
	return s.guard.WithTenant(ctx, sh.TenantID(), func(ctx context.Context) error {
		comp, err := sh.GetCompetition(ctx, competitionID)
		if err != nil {
			return err
		}
		if _, err := s.computeRanking(ctx, sh, comp); err != nil {
			return err
		}

		epoch, err := sh.ScoreEpoch(ctx)
		if err != nil {
			return err
		}
		for _, id := range playerIDs {
			if _, err := sh.GetPlayer(ctx, id); err != nil {
				if apperr.IsNotFound(err) {
					continue
				}
				return err
			}
			if _, err := s.computePlayerScores(ctx, sh, id, epoch); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Service) computeRanking(ctx context.Context, sh *shard.Store, comp model.Competition) ([]model.RankEntry, error) {
	rows, err := sh.ScoresByRowNumDesc(ctx, comp.ID)
	if err != nil {
		return nil, err
	}
	entries := Compute(rows)
	if err := s.cache.PutRanking(ctx, sh.TenantID(), comp.ID, comp.Generation, entries); err != nil {
		s.logger.Warn("cache_write_failed",
			slog.Int64("tenant_id", sh.TenantID()),
			slog.String("competition_id", comp.ID),
			slog.Any("error", err),
		)
	}
	return entries, nil
}

func (s *Service) computePlayerScores(ctx context.Context, sh *shard.Store, playerID string, epoch int64) ([]model.CompetitionScore, error) {
	comps, err := sh.ListCompetitions(ctx, false)
	if err != nil {
		return nil, err
	}
	scores := make([]model.CompetitionScore, 0, len(comps))
	for _, c := range comps {
		ps, ok, err := sh.LatestScore(ctx, c.ID, playerID)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		scores = append(scores, model.CompetitionScore{CompetitionTitle: c.Title, Score: ps.Score})
	}
	if err := s.cache.PutPlayerScores(ctx, sh.TenantID(), playerID, epoch, scores); err != nil {
		s.logger.Warn("cache_write_failed",
			slog.Int64("tenant_id", sh.TenantID()),
			slog.String("player_id", playerID),
			slog.Any("error", err),
		)
	}
	return scores, nil
}
