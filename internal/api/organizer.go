package api

import (
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"scoreboard/internal/apperr"
	"scoreboard/internal/model"
)

// maxUploadBytes bounds a score table upload.
const maxUploadBytes = 32 << 20

// @Summary List the tenant's players
// @Tags Organizer
// @Security ApiKeyAuth
// @Produce json
// @Router /api/organizer/players [get]
func (a *API) ListPlayers(w http.ResponseWriter, r *http.Request) {
	sh, err := a.tenantShard(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	players, err := sh.ListPlayers(r.Context())
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeData(w, map[string]any{"players": players})
}

// @Summary Register players
// @Tags Organizer
// @Security ApiKeyAuth
// @Accept x-www-form-urlencoded
// @Param display_name[] formData []string true "Display names"
// @Produce json
// @Router /api/organizer/players/add [post]
func (a *API) AddPlayers(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		a.writeError(w, r, apperr.Validation("form", "%v", err))
		return
	}
	names := r.PostForm["display_name[]"]
	if len(names) == 0 {
		a.writeError(w, r, apperr.Validation("display_name[]", "at least one player is required"))
		return
	}

	sh, err := a.tenantShard(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	ids, err := a.Storage.DispenseIDs(r.Context(), len(names))
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	now := a.now()
	players := make([]model.Player, 0, len(names))
	for i, name := range names {
		players = append(players, model.Player{
			ID:          ids[i],
			TenantID:    sh.TenantID(),
			DisplayName: name,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	}
	if err := sh.CreatePlayers(r.Context(), players); err != nil {
		a.writeError(w, r, err)
		return
	}

	a.logger.Info("players_added", slog.Int64("tenant_id", sh.TenantID()), slog.Int("count", len(players)))
	writeData(w, map[string]any{"players": players})
}

// @Summary Disqualify a player
// @Tags Organizer
// @Security ApiKeyAuth
// @Param player_id path string true "Player ID"
// @Produce json
// @Router /api/organizer/player/{player_id}/disqualified [post]
func (a *API) DisqualifyPlayer(w http.ResponseWriter, r *http.Request) {
	sh, err := a.tenantShard(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	player, err := sh.DisqualifyPlayer(r.Context(), chi.URLParam(r, "player_id"), a.now())
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeData(w, map[string]any{"player": player})
}

// @Summary List competitions
// @Tags Organizer
// @Security ApiKeyAuth
// @Produce json
// @Router /api/organizer/competitions [get]
func (a *API) OrganizerCompetitions(w http.ResponseWriter, r *http.Request) {
	a.listCompetitions(w, r)
}

// @Summary Create a competition
// @Tags Organizer
// @Security ApiKeyAuth
// @Param title formData string true "Title"
// @Produce json
// @Router /api/organizer/competitions/add [post]
func (a *API) AddCompetition(w http.ResponseWriter, r *http.Request) {
	title := strings.TrimSpace(r.PostFormValue("title"))
	if title == "" {
		a.writeError(w, r, apperr.Validation("title", "must not be empty"))
		return
	}

	sh, err := a.tenantShard(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	id, err := a.Storage.DispenseID(r.Context())
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	now := a.now()
	comp := model.Competition{
		ID:        id,
		TenantID:  sh.TenantID(),
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := sh.CreateCompetition(r.Context(), comp); err != nil {
		a.writeError(w, r, err)
		return
	}
	writeData(w, map[string]any{"competition": comp.Summary()})
}

// @Summary Finish a competition
// @Tags Organizer
// @Security ApiKeyAuth
// @Param competition_id path string true "Competition ID"
// @Produce json
// @Router /api/organizer/competition/{competition_id}/finish [post]
func (a *API) FinishCompetition(w http.ResponseWriter, r *http.Request) {
	sh, err := a.tenantShard(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	comp, err := sh.FinishCompetition(r.Context(), chi.URLParam(r, "competition_id"), a.now())
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeData(w, map[string]any{"competition": comp.Summary()})
}

// @Summary Upload a competition's score table
// @Tags Organizer
// @Security ApiKeyAuth
// @Accept multipart/form-data
// @Param competition_id path string true "Competition ID"
// @Param scores formData file true "CSV or XLSX score table"
// @Produce json
// @Router /api/organizer/competition/{competition_id}/score [post]
func (a *API) UploadScores(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("scores")
	if err != nil {
		a.writeError(w, r, apperr.Validation("scores", "file is required: %v", err))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		a.writeError(w, r, apperr.Validation("scores", "unreadable upload: %v", err))
		return
	}

	sh, err := a.tenantShard(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	rows, err := a.Importer.Import(r.Context(), sh, chi.URLParam(r, "competition_id"), header.Filename, data)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeData(w, map[string]any{"rows": rows})
}

// @Summary Billing report of every competition in the tenant
// @Tags Organizer
// @Security ApiKeyAuth
// @Produce json
// @Router /api/organizer/billing [get]
func (a *API) TenantBilling(w http.ResponseWriter, r *http.Request) {
	sh, err := a.tenantShard(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	reports, err := a.Billing.TenantReport(r.Context(), sh)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeData(w, map[string]any{"reports": reports})
}

func (a *API) listCompetitions(w http.ResponseWriter, r *http.Request) {
	sh, err := a.tenantShard(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	comps, err := sh.ListCompetitions(r.Context(), true)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	summaries := make([]model.CompetitionSummary, 0, len(comps))
	for _, c := range comps {
		summaries = append(summaries, c.Summary())
	}
	writeData(w, map[string]any{"competitions": summaries})
}
