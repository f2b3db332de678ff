package ingest

import (
	"slices"
	"strconv"
	"strings"

	"scoreboard/internal/apperr"
	"scoreboard/internal/model"
)

var scoreHeader = []string{"player_id", "score"}

type rawRow struct {
	playerID string
	score    string
}

// checkShape validates the header and the width of every row.
func checkShape(records [][]string) ([]rawRow, error) {
	if len(records) == 0 || !slices.Equal(records[0], scoreHeader) {
		return nil, apperr.Validation("header", "invalid CSV headers")
	}
	rows := make([]rawRow, 0, len(records)-1)
	for i, rec := range records[1:] {
		if len(rec) != 2 {
			return nil, apperr.Validation("row", "row must have two columns: line %d has %d", i+2, len(rec))
		}
		rows = append(rows, rawRow{playerID: rec[0], score: rec[1]})
	}
	return rows, nil
}

// parseScores converts each score to a base-10 integer, keeping file order.
func parseScores(rows []rawRow) ([]model.ScoreEntry, error) {
	entries := make([]model.ScoreEntry, 0, len(rows))
	for _, r := range rows {
		score, err := strconv.ParseInt(strings.TrimSpace(r.score), 10, 64)
		if err != nil {
			return nil, apperr.Validation("score", "error strconv.ParseInt: scoreStr=%s", r.score)
		}
		entries = append(entries, model.ScoreEntry{PlayerID: r.playerID, Score: score})
	}
	return entries, nil
}
