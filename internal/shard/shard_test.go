package shard

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scoreboard/internal/apperr"
	"scoreboard/internal/model"
)

var t0 = time.Unix(1_700_000_000, 0)

func newTestShard(t *testing.T) *Store {
	t.Helper()
	s, err := Provision(context.Background(), t.TempDir(), 1)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seed(t *testing.T, s *Store, players ...string) {
	t.Helper()
	ctx := context.Background()
	var ps []model.Player
	for _, id := range players {
		ps = append(ps, model.Player{ID: id, DisplayName: "name-" + id, CreatedAt: t0, UpdatedAt: t0})
	}
	require.NoError(t, s.CreatePlayers(ctx, ps))
	require.NoError(t, s.CreateCompetition(ctx, model.Competition{ID: "c1", Title: "Cup", CreatedAt: t0, UpdatedAt: t0}))
}

func scoreRows(entries ...model.ScoreEntry) []model.PlayerScore {
	rows := make([]model.PlayerScore, 0, len(entries))
	for i, e := range entries {
		rows = append(rows, model.PlayerScore{
			ID:        fmt.Sprintf("s%d", i),
			PlayerID:  e.PlayerID,
			Score:     e.Score,
			RowNum:    int64(i),
			CreatedAt: t0,
			UpdatedAt: t0,
		})
	}
	return rows
}

func TestOpenMissingShard(t *testing.T) {
	_, err := Open(context.Background(), t.TempDir(), 42)
	require.Error(t, err)
	assert.True(t, apperr.IsNotFound(err))
}

func TestOpenProvisionedShard(t *testing.T) {
	dir := t.TempDir()
	s, err := Provision(context.Background(), dir, 7)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(context.Background(), dir, 7)
	require.NoError(t, err)
	defer s.Close()
	assert.Equal(t, Path(dir, 7), s.Path())
	assert.EqualValues(t, 7, s.TenantID())
}

func TestPlayers(t *testing.T) {
	s := newTestShard(t)
	ctx := context.Background()
	seed(t, s, "p1", "p2")

	err := s.CreatePlayers(ctx, []model.Player{{ID: "p1", DisplayName: "again", CreatedAt: t0, UpdatedAt: t0}})
	assert.True(t, apperr.IsDuplicate(err))

	p, err := s.DisqualifyPlayer(ctx, "p2", t0.Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, p.IsDisqualified)

	_, err = s.DisqualifyPlayer(ctx, "nobody", t0)
	assert.True(t, apperr.IsNotFound(err))

	missing, err := s.MissingPlayers(ctx, []string{"p1", "x", "p2", "x", "y"})
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y"}, missing)

	players, err := s.ListPlayers(ctx)
	require.NoError(t, err)
	assert.Len(t, players, 2)
}

func TestFinishCompetitionKeepsFirstTimestamp(t *testing.T) {
	s := newTestShard(t)
	ctx := context.Background()
	seed(t, s)

	c, err := s.FinishCompetition(ctx, "c1", t0.Add(time.Hour))
	require.NoError(t, err)
	require.True(t, c.IsFinished())

	c, err = s.FinishCompetition(ctx, "c1", t0.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, t0.Add(time.Hour).Unix(), c.FinishedAt.Unix())

	_, err = s.FinishCompetition(ctx, "missing", t0)
	assert.True(t, apperr.IsNotFound(err))
}

func TestReplaceScoresBumpsGeneration(t *testing.T) {
	s := newTestShard(t)
	ctx := context.Background()
	seed(t, s, "p1", "p2", "p3")

	res, err := s.ReplaceScores(ctx, "c1", scoreRows(
		model.ScoreEntry{PlayerID: "p1", Score: 10},
		model.ScoreEntry{PlayerID: "p2", Score: 20},
		model.ScoreEntry{PlayerID: "p1", Score: 15},
	), t0)
	require.NoError(t, err)
	assert.EqualValues(t, 1, res.Generation)
	assert.Empty(t, res.PreviousPlayers)

	rows, err := s.ScoreRows(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	for i, r := range rows {
		assert.EqualValues(t, i, r.RowNum)
	}

	latest, ok, err := s.LatestScore(ctx, "c1", "p1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.EqualValues(t, 15, latest.Score)

	res, err = s.ReplaceScores(ctx, "c1", scoreRows(model.ScoreEntry{PlayerID: "p3", Score: 1}), t0)
	require.NoError(t, err)
	assert.EqualValues(t, 2, res.Generation)
	assert.ElementsMatch(t, []string{"p1", "p2"}, res.PreviousPlayers)

	_, ok, err = s.LatestScore(ctx, "c1", "p1")
	require.NoError(t, err)
	assert.False(t, ok)

	scored, err := s.ScoredPlayers(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, []string{"p3"}, scored)

	epoch, err := s.ScoreEpoch(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, epoch)
}

func TestReplaceScoresRejectsFinished(t *testing.T) {
	s := newTestShard(t)
	ctx := context.Background()
	seed(t, s, "p1")

	_, err := s.ReplaceScores(ctx, "c1", scoreRows(model.ScoreEntry{PlayerID: "p1", Score: 5}), t0)
	require.NoError(t, err)
	_, err = s.FinishCompetition(ctx, "c1", t0)
	require.NoError(t, err)

	_, err = s.ReplaceScores(ctx, "c1", nil, t0)
	assert.True(t, apperr.IsConflict(err))

	rows, err := s.ScoreRows(ctx, "c1")
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestReplaceScoresRollsBackOnInsertFailure(t *testing.T) {
	s := newTestShard(t)
	ctx := context.Background()
	seed(t, s, "p1")

	_, err := s.ReplaceScores(ctx, "c1", scoreRows(model.ScoreEntry{PlayerID: "p1", Score: 5}), t0)
	require.NoError(t, err)

	dup := scoreRows(model.ScoreEntry{PlayerID: "p1", Score: 1}, model.ScoreEntry{PlayerID: "p1", Score: 2})
	dup[1].ID = dup[0].ID
	_, err = s.ReplaceScores(ctx, "c1", dup, t0)
	require.Error(t, err)

	rows, err := s.ScoreRows(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.EqualValues(t, 5, rows[0].Score)

	c, err := s.GetCompetition(ctx, "c1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, c.Generation)
}

func TestScoresByRowNumDesc(t *testing.T) {
	s := newTestShard(t)
	ctx := context.Background()
	seed(t, s, "p1", "p2")

	_, err := s.ReplaceScores(ctx, "c1", scoreRows(
		model.ScoreEntry{PlayerID: "p1", Score: 10},
		model.ScoreEntry{PlayerID: "p2", Score: 20},
	), t0)
	require.NoError(t, err)

	entries, err := s.ScoresByRowNumDesc(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, []model.RankEntry{
		{Score: 20, PlayerID: "p2", PlayerDisplayName: "name-p2", RowNum: 1},
		{Score: 10, PlayerID: "p1", PlayerDisplayName: "name-p1", RowNum: 0},
	}, entries)
}
