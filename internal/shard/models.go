package shard

import (
	"time"

	"scoreboard/internal/model"
)

type playerRow struct {
	ID             string `gorm:"primaryKey;size:255"`
	TenantID       int64  `gorm:"not null;index"`
	DisplayName    string `gorm:"not null"`
	IsDisqualified bool   `gorm:"not null;default:false"`
	CreatedAt      int64  `gorm:"not null"`
	UpdatedAt      int64  `gorm:"not null"`
}

func (playerRow) TableName() string { return "player" }

func (r playerRow) toModel() model.Player {
	return model.Player{
		ID:             r.ID,
		TenantID:       r.TenantID,
		DisplayName:    r.DisplayName,
		IsDisqualified: r.IsDisqualified,
		CreatedAt:      time.Unix(r.CreatedAt, 0),
		UpdatedAt:      time.Unix(r.UpdatedAt, 0),
	}
}

type competitionRow struct {
	ID         string `gorm:"primaryKey;size:255"`
	TenantID   int64  `gorm:"not null;index"`
	Title      string `gorm:"not null"`
	FinishedAt *int64
	Generation int64 `gorm:"not null;default:0"`
	CreatedAt  int64 `gorm:"not null"`
	UpdatedAt  int64 `gorm:"not null"`
}

func (competitionRow) TableName() string { return "competition" }

func (r competitionRow) toModel() model.Competition {
	c := model.Competition{
		ID:         r.ID,
		TenantID:   r.TenantID,
		Title:      r.Title,
		Generation: r.Generation,
		CreatedAt:  time.Unix(r.CreatedAt, 0),
		UpdatedAt:  time.Unix(r.UpdatedAt, 0),
	}
	if r.FinishedAt != nil {
		at := time.Unix(*r.FinishedAt, 0)
		c.FinishedAt = &at
	}
	return c
}

type playerScoreRow struct {
	ID            string `gorm:"primaryKey;size:255"`
	TenantID      int64  `gorm:"not null;index:idx_score_competition,priority:1"`
	PlayerID      string `gorm:"size:255;not null;index"`
	CompetitionID string `gorm:"size:255;not null;index:idx_score_competition,priority:2"`
	Score         int64  `gorm:"not null"`
	RowNum        int64  `gorm:"not null;index:idx_score_competition,priority:3"`
	CreatedAt     int64  `gorm:"not null"`
	UpdatedAt     int64  `gorm:"not null"`
}

func (playerScoreRow) TableName() string { return "player_score" }

func (r playerScoreRow) toModel() model.PlayerScore {
	return model.PlayerScore{
		ID:            r.ID,
		TenantID:      r.TenantID,
		CompetitionID: r.CompetitionID,
		PlayerID:      r.PlayerID,
		Score:         r.Score,
		RowNum:        r.RowNum,
		CreatedAt:     time.Unix(r.CreatedAt, 0),
		UpdatedAt:     time.Unix(r.UpdatedAt, 0),
	}
}

func scoreRowFromModel(s model.PlayerScore) playerScoreRow {
	return playerScoreRow{
		ID:            s.ID,
		TenantID:      s.TenantID,
		PlayerID:      s.PlayerID,
		CompetitionID: s.CompetitionID,
		Score:         s.Score,
		RowNum:        s.RowNum,
		CreatedAt:     s.CreatedAt.Unix(),
		UpdatedAt:     s.UpdatedAt.Unix(),
	}
}
