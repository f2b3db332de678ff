package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "scoreboard/docs"

	"scoreboard/internal/auth"
	"scoreboard/internal/metrics"
	"scoreboard/internal/shard"
)

func (a *API) Router() http.Handler {
	a.Routers.Use(middleware.RequestID)
	a.Routers.Use(middleware.Recoverer)

	a.Routers.Handle("/metrics", metrics.Handler())
	a.Routers.Get("/swagger/*", httpSwagger.WrapHandler)

	a.Routers.Route("/api", func(r chi.Router) {
		r.Use(auth.JWTAuthMiddleware)

		r.Route("/admin", func(r chi.Router) {
			r.Use(auth.RequireRole(auth.RoleAdmin))
			r.Post("/tenants/add", a.AddTenant)
			r.Get("/tenants/billing", a.TenantsBilling)
			r.Put("/tenants/{tenant_id}/config/concurrency", a.UpdateConcurrency)
		})

		r.Route("/organizer", func(r chi.Router) {
			r.Use(auth.RequireRole(auth.RoleOrganizer))
			r.Get("/players", a.ListPlayers)
			r.Post("/players/add", a.AddPlayers)
			r.Post("/player/{player_id}/disqualified", a.DisqualifyPlayer)
			r.Get("/competitions", a.OrganizerCompetitions)
			r.Post("/competitions/add", a.AddCompetition)
			r.Post("/competition/{competition_id}/finish", a.FinishCompetition)
			r.Post("/competition/{competition_id}/score", a.UploadScores)
			r.Get("/billing", a.TenantBilling)
		})

		r.Route("/player", func(r chi.Router) {
			r.Use(auth.RequireRole(auth.RolePlayer))
			r.Use(a.requireActivePlayer)
			r.Get("/player/{player_id}", a.PlayerDetail)
			r.Get("/competition/{competition_id}/ranking", a.CompetitionRanking)
			r.Get("/competitions", a.PlayerCompetitions)
		})
	})

	return a.Routers
}

// tenantShard resolves the shard of the token's tenant.
func (a *API) tenantShard(r *http.Request) (*shard.Store, error) {
	return a.TenantMgr.Shard(r.Context(), auth.GetTenantID(r))
}
