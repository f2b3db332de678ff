// internal/ingest/importer.go
package ingest

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"scoreboard/internal/apperr"
	"scoreboard/internal/lock"
	"scoreboard/internal/metrics"
	"scoreboard/internal/model"
	"scoreboard/internal/shard"
)

// IDDispenser hands out unique row ids.
type IDDispenser interface {
	DispenseIDs(ctx context.Context, n int) ([]string, error)
}

// EventPublisher announces a committed score replacement.
type EventPublisher interface {
	PublishScoresReplaced(ctx context.Context, event model.ScoresReplaced) error
}

type Importer struct {
	ids       IDDispenser
	guard     *lock.Guard
	publisher EventPublisher
	logger    *slog.Logger
	now       func() time.Time
}

// NewImporter builds an Importer. publisher may be nil, in which case no
// recompute events are sent.
func NewImporter(ids IDDispenser, guard *lock.Guard, publisher EventPublisher, logger *slog.Logger) *Importer {
	return &Importer{
		ids:       ids,
		guard:     guard,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// Import validates an uploaded score table and replaces the competition's
// score generation with it. Nothing is written unless the whole file is valid.
// It returns the number of rows stored.
func (im *Importer) Import(ctx context.Context, sh *shard.Store, competitionID, fileName string, data []byte) (int, error) {
	tenantID := sh.TenantID()
	n, err := im.importScores(ctx, sh, competitionID, fileName, data)
	tenant := metrics.Tenant(tenantID)
	switch {
	case err == nil:
		metrics.ScoreImports.WithLabelValues(tenant, "ok").Inc()
		metrics.ScoresImportedRows.WithLabelValues(tenant).Add(float64(n))
	case apperr.IsValidation(err), apperr.IsNotFound(err), apperr.IsConflict(err):
		metrics.ScoreImports.WithLabelValues(tenant, "rejected").Inc()
	default:
		metrics.ScoreImports.WithLabelValues(tenant, "error").Inc()
	}
	return n, err
}

func (im *Importer) importScores(ctx context.Context, sh *shard.Store, competitionID, fileName string, data []byte) (int, error) {
	tenantID := sh.TenantID()

	comp, err := sh.GetCompetition(ctx, competitionID)
	if err != nil {
		return 0, err
	}
	if comp.IsFinished() {
		return 0, apperr.Conflict("competition is finished")
	}

	parser, err := GetParser(fileName)
	if err != nil {
		return 0, err
	}
	records, err := parser.Parse(data)
	if err != nil {
		return 0, err
	}
	rows, err := checkShape(records)
	if err != nil {
		return 0, err
	}

	playerIDs := make([]string, 0, len(rows))
	for _, r := range rows {
		playerIDs = append(playerIDs, r.playerID)
	}
	missing, err := sh.MissingPlayers(ctx, playerIDs)
	if err != nil {
		return 0, err
	}
	if len(missing) > 0 {
		return 0, apperr.Validation("player_id", "player not found: %s", missing[0])
	}

	entries, err := parseScores(rows)
	if err != nil {
		return 0, err
	}

	ids, err := im.ids.DispenseIDs(ctx, len(entries))
	if err != nil {
		return 0, err
	}
	now := im.now()
	scores := make([]model.PlayerScore, 0, len(entries))
	for i, e := range entries {
		scores = append(scores, model.PlayerScore{
			ID:            ids[i],
			TenantID:      tenantID,
			CompetitionID: competitionID,
			PlayerID:      e.PlayerID,
			Score:         e.Score,
			RowNum:        int64(i),
			CreatedAt:     now,
			UpdatedAt:     now,
		})
	}

	var result shard.ReplaceResult
	err = im.guard.WithTenant(ctx, tenantID, func(ctx context.Context) error {
		var err error
		result, err = sh.ReplaceScores(ctx, competitionID, scores, now)
		return err
	})
	if err != nil {
		return 0, err
	}

	im.logger.Info("scores_imported",
		slog.Int64("tenant_id", tenantID),
		slog.String("competition_id", competitionID),
		slog.Int("rows", len(scores)),
		slog.Int64("generation", result.Generation),
	)

	im.publish(ctx, model.ScoresReplaced{
		EventID:       uuid.NewString(),
		TenantID:      tenantID,
		CompetitionID: competitionID,
		Generation:    result.Generation,
		PlayerIDs:     affectedPlayers(result.PreviousPlayers, playerIDs),
		OccurredAt:    now,
	})
	return len(scores), nil
}

func (im *Importer) publish(ctx context.Context, event model.ScoresReplaced) {
	if im.publisher == nil {
		return
	}
	if err := im.publisher.PublishScoresReplaced(ctx, event); err != nil {
		im.logger.Warn("recompute_publish_failed",
			slog.Int64("tenant_id", event.TenantID),
			slog.String("competition_id", event.CompetitionID),
			slog.Any("error", err),
		)
	}
}

// affectedPlayers merges the players of the old and new generation.
func affectedPlayers(previous, current []string) []string {
	seen := make(map[string]struct{}, len(previous)+len(current))
	out := make([]string, 0, len(previous)+len(current))
	for _, list := range [][]string{previous, current} {
		for _, id := range list {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}
