// internal/cache/results.go
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/goccy/go-json"
	"github.com/valkey-io/valkey-go"

	"scoreboard/internal/metrics"
	"scoreboard/internal/model"
)

const (
	KindRanking     = "ranking"
	KindPlayerScore = "player_score"
)

// putScript writes gen and data unless the stored entry carries a newer
// generation.
var putScript = valkey.NewLuaScript(`
local cur = redis.call("HGET", KEYS[1], "gen")
if cur and tonumber(cur) > tonumber(ARGV[1]) then
	return 0
end
redis.call("HSET", KEYS[1], "gen", ARGV[1], "data", ARGV[2])
return 1`)

// Results memoizes rankings and per-player score lists. Every entry is tagged
// with the generation it was computed at and only served to readers at that
// same generation. A nil *Results is a disabled cache.
type Results struct {
	client valkey.Client
	logger *slog.Logger
}

func New(client valkey.Client, logger *slog.Logger) *Results {
	return &Results{client: client, logger: logger}
}

func RankingKey(tenantID int64, competitionID string) string {
	return fmt.Sprintf("ranking:%d:%s", tenantID, competitionID)
}

func PlayerScoreKey(tenantID int64, playerID string) string {
	return fmt.Sprintf("player_score:%d:%s", tenantID, playerID)
}

// GetRanking returns the full ordered ranking of a competition at gen.
func (r *Results) GetRanking(ctx context.Context, tenantID int64, competitionID string, gen int64) ([]model.RankEntry, bool) {
	var entries []model.RankEntry
	ok := r.get(ctx, KindRanking, RankingKey(tenantID, competitionID), gen, &entries)
	return entries, ok
}

func (r *Results) PutRanking(ctx context.Context, tenantID int64, competitionID string, gen int64, entries []model.RankEntry) error {
	return r.put(ctx, RankingKey(tenantID, competitionID), gen, entries)
}

// GetPlayerScores returns a player's score list at the tenant score epoch.
func (r *Results) GetPlayerScores(ctx context.Context, tenantID int64, playerID string, epoch int64) ([]model.CompetitionScore, bool) {
	var scores []model.CompetitionScore
	ok := r.get(ctx, KindPlayerScore, PlayerScoreKey(tenantID, playerID), epoch, &scores)
	return scores, ok
}

func (r *Results) PutPlayerScores(ctx context.Context, tenantID int64, playerID string, epoch int64, scores []model.CompetitionScore) error {
	return r.put(ctx, PlayerScoreKey(tenantID, playerID), epoch, scores)
}

func (r *Results) get(ctx context.Context, kind, key string, gen int64, dst any) bool {
	if r == nil {
		return false
	}
	vals, err := r.client.Do(ctx, r.client.B().Hmget().Key(key).Field("gen", "data").Build()).ToArray()
	if err != nil {
		r.logger.Warn("cache_read_failed", slog.String("key", key), slog.Any("error", err))
		metrics.CacheRequests.WithLabelValues(kind, "error").Inc()
		return false
	}
	if len(vals) != 2 || vals[0].IsNil() {
		metrics.CacheRequests.WithLabelValues(kind, "miss").Inc()
		return false
	}

	stored, err := vals[0].AsInt64()
	if err != nil || stored != gen {
		metrics.CacheRequests.WithLabelValues(kind, "stale").Inc()
		return false
	}
	data, err := vals[1].AsBytes()
	if err == nil {
		err = json.Unmarshal(data, dst)
	}
	if err != nil {
		r.logger.Warn("cache_decode_failed", slog.String("key", key), slog.Any("error", err))
		metrics.CacheRequests.WithLabelValues(kind, "error").Inc()
		return false
	}

	metrics.CacheRequests.WithLabelValues(kind, "hit").Inc()
	return true
}

func (r *Results) put(ctx context.Context, key string, gen int64, v any) error {
	if r == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}
	err = putScript.Exec(ctx, r.client, []string{key}, []string{strconv.FormatInt(gen, 10), string(data)}).Error()
	if err != nil {
		return fmt.Errorf("failed to write cache entry %s: %w", key, err)
	}
	return nil
}
