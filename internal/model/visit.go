package model

import "time"

// VisitHistory records a player viewing a competition's ranking. Records are
// append-only.
type VisitHistory struct {
	TenantID      int64
	CompetitionID string
	PlayerID      string
	CreatedAt     time.Time
}

// FirstVisit is the earliest visit of a player to one competition.
type FirstVisit struct {
	PlayerID  string
	FirstSeen time.Time
}
