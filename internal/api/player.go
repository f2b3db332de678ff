package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"scoreboard/internal/apperr"
	"scoreboard/internal/auth"
)

// requireActivePlayer rejects tokens whose player is unknown or disqualified.
func (a *API) requireActivePlayer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sh, err := a.tenantShard(r)
		if err != nil {
			a.writeError(w, r, err)
			return
		}
		viewer, err := sh.GetPlayer(r.Context(), auth.GetClaims(r).Subject)
		if err != nil {
			if apperr.IsNotFound(err) {
				writeFailure(w, http.StatusUnauthorized, "player not found")
				return
			}
			a.writeError(w, r, err)
			return
		}
		if viewer.IsDisqualified {
			writeFailure(w, http.StatusForbidden, "player is disqualified")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// @Summary A player's scores across competitions
// @Tags Player
// @Security ApiKeyAuth
// @Param player_id path string true "Player ID"
// @Produce json
// @Router /api/player/player/{player_id} [get]
func (a *API) PlayerDetail(w http.ResponseWriter, r *http.Request) {
	sh, err := a.tenantShard(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	detail, err := a.Ranking.PlayerScores(r.Context(), sh, chi.URLParam(r, "player_id"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeData(w, detail)
}

// @Summary One page of a competition's ranking
// @Tags Player
// @Security ApiKeyAuth
// @Param competition_id path string true "Competition ID"
// @Param rank_after query int false "Rank to start after"
// @Produce json
// @Router /api/player/competition/{competition_id}/ranking [get]
func (a *API) CompetitionRanking(w http.ResponseWriter, r *http.Request) {
	var rankAfter int64
	if v := r.URL.Query().Get("rank_after"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			a.writeError(w, r, apperr.Validation("rank_after", "not an integer: %q", v))
			return
		}
		rankAfter = n
	}

	sh, err := a.tenantShard(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	page, err := a.Ranking.ViewRanking(r.Context(), sh, chi.URLParam(r, "competition_id"), auth.GetClaims(r).Subject, rankAfter)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeData(w, page)
}

// @Summary List competitions
// @Tags Player
// @Security ApiKeyAuth
// @Produce json
// @Router /api/player/competitions [get]
func (a *API) PlayerCompetitions(w http.ResponseWriter, r *http.Request) {
	a.listCompetitions(w, r)
}
