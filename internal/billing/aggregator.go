// internal/billing/aggregator.go
package billing

import (
	"context"
	"log/slog"

	"scoreboard/internal/lock"
	"scoreboard/internal/model"
	"scoreboard/internal/shard"
)

// VisitSource reads the earliest visit of each player to a competition.
type VisitSource interface {
	FirstVisits(ctx context.Context, tenantID int64, competitionID string) ([]model.FirstVisit, error)
}

// Aggregator prices competitions from score ownership and visit history.
type Aggregator struct {
	visits VisitSource
	guard  *lock.Guard
	logger *slog.Logger
}

func NewAggregator(visits VisitSource, guard *lock.Guard, logger *slog.Logger) *Aggregator {
	return &Aggregator{visits: visits, guard: guard, logger: logger}
}

// Tally classifies players of one competition and prices the result. A
// visit after the finish time is ignored; a player who scored is never also
// a visitor. Unfinished competitions always report zero counts.
func Tally(comp model.Competition, visits []model.FirstVisit, scored []string) model.BillingReport {
	const (
		roleVisitor = "visitor"
		rolePlayer  = "player"
	)
	roles := make(map[string]string, len(visits)+len(scored))
	for _, v := range visits {
		if comp.FinishedAt != nil && v.FirstSeen.After(*comp.FinishedAt) {
			continue
		}
		roles[v.PlayerID] = roleVisitor
	}
	for _, id := range scored {
		roles[id] = rolePlayer
	}

	var players, visitors int64
	if comp.IsFinished() {
		for _, role := range roles {
			switch role {
			case rolePlayer:
				players++
			case roleVisitor:
				visitors++
			}
		}
	}
	return model.NewBillingReport(comp, players, visitors)
}

// CompetitionReport bills a single competition.
func (a *Aggregator) CompetitionReport(ctx context.Context, sh *shard.Store, comp model.Competition) (model.BillingReport, error) {
	reports, err := a.reports(ctx, sh, []model.Competition{comp})
	if err != nil {
		return model.BillingReport{}, err
	}
	return reports[0], nil
}

// TenantReport bills every competition of the tenant, newest first.
func (a *Aggregator) TenantReport(ctx context.Context, sh *shard.Store) ([]model.BillingReport, error) {
	comps, err := sh.ListCompetitions(ctx, true)
	if err != nil {
		return nil, err
	}
	return a.reports(ctx, sh, comps)
}

// TenantTotal sums billing_yen over all of the tenant's competitions.
func (a *Aggregator) TenantTotal(ctx context.Context, sh *shard.Store) (model.Yen, error) {
	reports, err := a.TenantReport(ctx, sh)
	if err != nil {
		return 0, err
	}
	var total model.Yen
	for _, r := range reports {
		total += r.BillingYen
	}
	return total, nil
}

// reports reads visit history without the tenant lock, since it is
// append-only, then reads every competition's scored players under a single
// lock acquisition.
func (a *Aggregator) reports(ctx context.Context, sh *shard.Store, comps []model.Competition) ([]model.BillingReport, error) {
	visits := make([][]model.FirstVisit, len(comps))
	for i, c := range comps {
		v, err := a.visits.FirstVisits(ctx, sh.TenantID(), c.ID)
		if err != nil {
			return nil, err
		}
		visits[i] = v
	}

	scored := make([][]string, len(comps))
	err := a.guard.WithTenant(ctx, sh.TenantID(), func(ctx context.Context) error {
		for i, c := range comps {
			ids, err := sh.ScoredPlayers(ctx, c.ID)
			if err != nil {
				return err
			}
			scored[i] = ids
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	reports := make([]model.BillingReport, 0, len(comps))
	for i, c := range comps {
		reports = append(reports, Tally(c, visits[i], scored[i]))
	}
	return reports, nil
}
