package model

import "time"

// PlayerScore is one row of a competition's score generation. RowNum is the
// zero-based position of the row in the uploaded table.
type PlayerScore struct {
	ID            string
	TenantID      int64
	CompetitionID string
	PlayerID      string
	Score         int64
	RowNum        int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ScoreEntry is a validated (player_id, score) pair from an upload, in file order.
type ScoreEntry struct {
	PlayerID string
	Score    int64
}

// RankEntry is the current score of one player within a generation.
type RankEntry struct {
	Score             int64  `json:"score"`
	PlayerID          string `json:"player_id"`
	PlayerDisplayName string `json:"player_display_name"`
	RowNum            int64  `json:"row_num"`
}

// Rank is one line of a paginated leaderboard.
type Rank struct {
	Rank              int64  `json:"rank"`
	Score             int64  `json:"score"`
	PlayerID          string `json:"player_id"`
	PlayerDisplayName string `json:"player_display_name"`
}

type RankingPage struct {
	Competition CompetitionSummary `json:"competition"`
	Ranks       []Rank             `json:"ranks"`
}

// CompetitionScore is a player's current score in one competition.
type CompetitionScore struct {
	CompetitionTitle string `json:"competition_title"`
	Score            int64  `json:"score"`
}

type PlayerDetail struct {
	Player Player             `json:"player"`
	Scores []CompetitionScore `json:"scores"`
}
