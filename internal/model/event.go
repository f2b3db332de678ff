package model

import "time"

// ScoresReplaced is published after a competition's score generation has been
// replaced. Consumers use it to refresh cached results.
type ScoresReplaced struct {
	EventID       string    `json:"event_id"`
	TenantID      int64     `json:"tenant_id"`
	CompetitionID string    `json:"competition_id"`
	Generation    int64     `json:"generation"`
	PlayerIDs     []string  `json:"player_ids"`
	OccurredAt    time.Time `json:"occurred_at"`
}
