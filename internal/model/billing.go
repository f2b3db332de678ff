package model

// Yen is an integral amount of Japanese yen.
type Yen int64

const (
	PlayerFee  Yen = 100
	VisitorFee Yen = 10
)

// BillingReport is derived per competition from score ownership and visit
// history. It is never persisted.
type BillingReport struct {
	CompetitionID     string `json:"competition_id"`
	CompetitionTitle  string `json:"competition_title"`
	PlayerCount       int64  `json:"player_count"`
	VisitorCount      int64  `json:"visitor_count"`
	BillingPlayerYen  Yen    `json:"billing_player_yen"`
	BillingVisitorYen Yen    `json:"billing_visitor_yen"`
	BillingYen        Yen    `json:"billing_yen"`
}

// NewBillingReport prices the given counts.
func NewBillingReport(comp Competition, players, visitors int64) BillingReport {
	playerYen := PlayerFee * Yen(players)
	visitorYen := VisitorFee * Yen(visitors)
	return BillingReport{
		CompetitionID:     comp.ID,
		CompetitionTitle:  comp.Title,
		PlayerCount:       players,
		VisitorCount:      visitors,
		BillingPlayerYen:  playerYen,
		BillingVisitorYen: visitorYen,
		BillingYen:        playerYen + visitorYen,
	}
}

// TenantBilling is the admin view of one tenant's total billing.
type TenantBilling struct {
	ID          int64  `json:"id,string"`
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Billing     Yen    `json:"billing"`
}
