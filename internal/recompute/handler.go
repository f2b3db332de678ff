package recompute

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/goccy/go-json"

	"scoreboard/internal/model"
	"scoreboard/internal/shard"
)

type ShardOpener interface {
	Shard(ctx context.Context, tenantID int64) (*shard.Store, error)
}

// Refresher rewrites cached results at the current generation.
type Refresher interface {
	Refresh(ctx context.Context, sh *shard.Store, competitionID string, playerIDs []string) error
}

// Handler turns ScoresReplaced events into cache refreshes.
type Handler struct {
	shards    ShardOpener
	refresher Refresher
	logger    *slog.Logger
}

func NewHandler(shards ShardOpener, refresher Refresher, logger *slog.Logger) *Handler {
	return &Handler{shards: shards, refresher: refresher, logger: logger}
}

// Handle decodes one event delivered on the tenant's queue. The refresh always
// uses the generation current at processing time, so a late event can only
// write a newer entry than the one it announced.
func (h *Handler) Handle(ctx context.Context, tenantID int64, body []byte) error {
	var event model.ScoresReplaced
	if err := json.Unmarshal(body, &event); err != nil {
		return fmt.Errorf("failed to decode recompute event: %w", err)
	}
	if event.TenantID != tenantID {
		return fmt.Errorf("event for tenant %d delivered to tenant %d queue", event.TenantID, tenantID)
	}
	if event.CompetitionID == "" {
		return fmt.Errorf("recompute event %s has no competition", event.EventID)
	}

	sh, err := h.shards.Shard(ctx, tenantID)
	if err != nil {
		return err
	}
	if err := h.refresher.Refresh(ctx, sh, event.CompetitionID, event.PlayerIDs); err != nil {
		return err
	}

	h.logger.Debug("results_recomputed",
		slog.Int64("tenant_id", tenantID),
		slog.String("competition_id", event.CompetitionID),
		slog.Int64("event_generation", event.Generation),
		slog.Int("players", len(event.PlayerIDs)),
	)
	return nil
}
