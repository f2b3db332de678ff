package api

import (
	"log/slog"
	"time"

	"github.com/go-chi/chi/v5"

	"scoreboard/internal/billing"
	"scoreboard/internal/ingest"
	"scoreboard/internal/manager"
	"scoreboard/internal/ranking"
	"scoreboard/internal/storage"
)

type API struct {
	TenantMgr *manager.TenantManager
	Storage   *storage.Storage
	Importer  *ingest.Importer
	Ranking   *ranking.Service
	Billing   *billing.Aggregator
	Fanout    *billing.Fanout
	Routers   *chi.Mux

	logger *slog.Logger
	now    func() time.Time
}

func NewAPI(
	tm *manager.TenantManager,
	db *storage.Storage,
	importer *ingest.Importer,
	rankingSvc *ranking.Service,
	agg *billing.Aggregator,
	fanout *billing.Fanout,
	logger *slog.Logger,
) *API {
	return &API{
		TenantMgr: tm,
		Storage:   db,
		Importer:  importer,
		Ranking:   rankingSvc,
		Billing:   agg,
		Fanout:    fanout,
		Routers:   chi.NewRouter(),
		logger:    logger,
		now:       time.Now,
	}
}
