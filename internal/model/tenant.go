// internal/model/tenant.go
package model

import "time"

// Tenant is an organization registered in the directory. Each tenant owns
// exactly one shard.
type Tenant struct {
	ID          int64     `json:"id,string"`
	Name        string    `json:"name"`
	DisplayName string    `json:"display_name"`
	CreatedAt   time.Time `json:"-"`
	UpdatedAt   time.Time `json:"-"`
}

// Player belongs to a single tenant. IsDisqualified only ever flips to true.
type Player struct {
	ID             string    `json:"id"`
	TenantID       int64     `json:"-"`
	DisplayName    string    `json:"display_name"`
	IsDisqualified bool      `json:"is_disqualified"`
	CreatedAt      time.Time `json:"-"`
	UpdatedAt      time.Time `json:"-"`
}

// Competition belongs to a single tenant. FinishedAt is nil while the
// competition is open and never changes once set.
type Competition struct {
	ID         string
	TenantID   int64
	Title      string
	FinishedAt *time.Time
	// Generation counts score replacements for this competition.
	Generation int64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (c Competition) IsFinished() bool {
	return c.FinishedAt != nil
}

// Summary is the public view of a competition.
func (c Competition) Summary() CompetitionSummary {
	return CompetitionSummary{ID: c.ID, Title: c.Title, IsFinished: c.IsFinished()}
}

type CompetitionSummary struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	IsFinished bool   `json:"is_finished"`
}
