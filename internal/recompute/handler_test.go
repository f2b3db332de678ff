package recompute

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valkey-io/valkey-go"

	"scoreboard/internal/cache"
	"scoreboard/internal/lock"
	"scoreboard/internal/model"
	"scoreboard/internal/ranking"
	"scoreboard/internal/shard"
)

var t0 = time.Unix(1_700_000_000, 0)

type singleShard struct{ sh *shard.Store }

func (s singleShard) Shard(context.Context, int64) (*shard.Store, error) { return s.sh, nil }

type nopVisits struct{}

func (nopVisits) RecordVisit(context.Context, model.VisitHistory) error { return nil }

func TestHandleRefreshesCurrentGeneration(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	sh, err := shard.Provision(ctx, t.TempDir(), 2)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sh.Close() })
	require.NoError(t, sh.CreatePlayers(ctx, []model.Player{{ID: "p1", DisplayName: "Ann", CreatedAt: t0, UpdatedAt: t0}}))
	require.NoError(t, sh.CreateCompetition(ctx, model.Competition{ID: "c1", Title: "Cup", CreatedAt: t0, UpdatedAt: t0}))
	for i, score := range []int64{5, 8} {
		_, err := sh.ReplaceScores(ctx, "c1", []model.PlayerScore{{ID: string(rune('a' + i)), PlayerID: "p1", Score: score, CreatedAt: t0, UpdatedAt: t0}}, t0)
		require.NoError(t, err)
	}

	mr := miniredis.RunT(t)
	client, err := valkey.NewClient(valkey.ClientOption{InitAddress: []string{mr.Addr()}, DisableCache: true, ForceSingleClient: true})
	require.NoError(t, err)
	t.Cleanup(client.Close)
	results := cache.New(client, logger)

	svc := ranking.NewService(lock.NewGuard(lock.NewLocalLocker(), 0, logger), results, nopVisits{}, logger)
	h := NewHandler(singleShard{sh}, svc, logger)

	// event for the first generation arrives after the second was written
	body, err := json.Marshal(model.ScoresReplaced{EventID: "e1", TenantID: 2, CompetitionID: "c1", Generation: 1, PlayerIDs: []string{"p1"}})
	require.NoError(t, err)
	require.NoError(t, h.Handle(ctx, 2, body))

	entries, ok := results.GetRanking(ctx, 2, "c1", 2)
	require.True(t, ok)
	require.Len(t, entries, 1)
	assert.EqualValues(t, 8, entries[0].Score)

	scores, ok := results.GetPlayerScores(ctx, 2, "p1", 2)
	require.True(t, ok)
	assert.Equal(t, []model.CompetitionScore{{CompetitionTitle: "Cup", Score: 8}}, scores)
}

func TestHandleRejectsBadEvents(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewHandler(singleShard{}, nil, logger)

	assert.Error(t, h.Handle(context.Background(), 1, []byte("{not json")))

	body, _ := json.Marshal(model.ScoresReplaced{TenantID: 9, CompetitionID: "c1"})
	assert.Error(t, h.Handle(context.Background(), 1, body))

	body, _ = json.Marshal(model.ScoresReplaced{TenantID: 1})
	assert.Error(t, h.Handle(context.Background(), 1, body))
}
