package api

import (
	"bytes"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scoreboard/internal/auth"
	"scoreboard/internal/billing"
	"scoreboard/internal/config"
	"scoreboard/internal/ingest"
	"scoreboard/internal/lock"
	"scoreboard/internal/manager"
	"scoreboard/internal/model"
	"scoreboard/internal/ranking"
	"scoreboard/internal/storage"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type envelope struct {
	Status  bool            `json:"status"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

type harness struct {
	t      *testing.T
	server *httptest.Server
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	auth.SetSecret("api-test-secret")

	db, err := storage.NewStorage(config.DriverSQLite, filepath.Join(t.TempDir(), "directory.db"), discard)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	tm := manager.NewTenantManager(nil, db, t.TempDir(), 1, discard)
	t.Cleanup(tm.ShutdownAll)

	guard := lock.NewGuard(lock.NewLocalLocker(), 0, discard)
	agg := billing.NewAggregator(db, guard, discard)
	a := NewAPI(
		tm,
		db,
		ingest.NewImporter(db, guard, nil, discard),
		ranking.NewService(guard, nil, db, discard),
		agg,
		billing.NewFanout(db, tm, agg, 4, discard),
		discard,
	)

	srv := httptest.NewServer(a.Router())
	t.Cleanup(srv.Close)
	return &harness{t: t, server: srv}
}

func token(t *testing.T, tenantID int64, role, subject string) string {
	t.Helper()
	tok, err := auth.GenerateToken(tenantID, role, subject)
	require.NoError(t, err)
	return tok
}

func (h *harness) do(method, path, tok, contentType string, body io.Reader) (int, envelope) {
	h.t.Helper()
	req, err := http.NewRequest(method, h.server.URL+path, body)
	require.NoError(h.t, err)
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(h.t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(h.t, err)
	var env envelope
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(h.t, json.Unmarshal(raw, &env))
	}
	return resp.StatusCode, env
}

func (h *harness) get(path, tok string) (int, envelope) {
	return h.do(http.MethodGet, path, tok, "", nil)
}

func (h *harness) postForm(path, tok string, form url.Values) (int, envelope) {
	return h.do(http.MethodPost, path, tok, "application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
}

func (h *harness) upload(path, tok, fileName, content string) (int, envelope) {
	h.t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("scores", fileName)
	require.NoError(h.t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(h.t, err)
	require.NoError(h.t, mw.Close())
	return h.do(http.MethodPost, path, tok, mw.FormDataContentType(), &buf)
}

func decode[T any](t *testing.T, env envelope) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(env.Data, &v))
	return v
}

type tenantFixture struct {
	id        int64
	organizer string
	players   map[string]model.Player
	compID    string
}

// setupTenant creates a tenant with three players and one open competition.
func setupTenant(t *testing.T, h *harness, name string) tenantFixture {
	t.Helper()
	admin := token(t, 0, auth.RoleAdmin, "")

	status, env := h.postForm("/api/admin/tenants/add", admin, url.Values{"name": {name}, "display_name": {strings.ToUpper(name)}})
	require.Equal(t, http.StatusOK, status, env.Message)
	created := decode[struct {
		Tenant model.TenantBilling `json:"tenant"`
	}](t, env)
	require.NotZero(t, created.Tenant.ID)

	fx := tenantFixture{
		id:        created.Tenant.ID,
		organizer: token(t, created.Tenant.ID, auth.RoleOrganizer, ""),
		players:   map[string]model.Player{},
	}

	status, env = h.postForm("/api/organizer/players/add", fx.organizer, url.Values{"display_name[]": {"alice", "bob", "carol"}})
	require.Equal(t, http.StatusOK, status, env.Message)
	added := decode[struct {
		Players []model.Player `json:"players"`
	}](t, env)
	require.Len(t, added.Players, 3)
	for _, p := range added.Players {
		fx.players[p.DisplayName] = p
	}

	status, env = h.postForm("/api/organizer/competitions/add", fx.organizer, url.Values{"title": {"final"}})
	require.Equal(t, http.StatusOK, status, env.Message)
	comp := decode[struct {
		Competition model.CompetitionSummary `json:"competition"`
	}](t, env)
	require.False(t, comp.Competition.IsFinished)
	fx.compID = comp.Competition.ID
	return fx
}

func (fx tenantFixture) playerToken(t *testing.T, name string) string {
	return token(t, fx.id, auth.RolePlayer, fx.players[name].ID)
}

func TestScoreLifecycle(t *testing.T) {
	h := newHarness(t)
	fx := setupTenant(t, h, "acme")
	alice, bob := fx.players["alice"].ID, fx.players["bob"].ID

	csv := "player_id,score\n" + alice + ",10\n" + bob + ",20\n"
	status, env := h.upload("/api/organizer/competition/"+fx.compID+"/score", fx.organizer, "scores.csv", csv)
	require.Equal(t, http.StatusOK, status, env.Message)
	rows := decode[struct {
		Rows int `json:"rows"`
	}](t, env)
	assert.Equal(t, 2, rows.Rows)

	// carol only views the ranking
	status, env = h.get("/api/player/competition/"+fx.compID+"/ranking", fx.playerToken(t, "carol"))
	require.Equal(t, http.StatusOK, status, env.Message)
	page := decode[model.RankingPage](t, env)
	assert.Equal(t, fx.compID, page.Competition.ID)
	require.Len(t, page.Ranks, 2)
	assert.Equal(t, model.Rank{Rank: 1, Score: 20, PlayerID: bob, PlayerDisplayName: "bob"}, page.Ranks[0])
	assert.Equal(t, model.Rank{Rank: 2, Score: 10, PlayerID: alice, PlayerDisplayName: "alice"}, page.Ranks[1])

	status, env = h.get("/api/player/competition/"+fx.compID+"/ranking?rank_after=1", fx.playerToken(t, "carol"))
	require.Equal(t, http.StatusOK, status)
	page = decode[model.RankingPage](t, env)
	require.Len(t, page.Ranks, 1)
	assert.Equal(t, alice, page.Ranks[0].PlayerID)

	status, env = h.get("/api/player/player/"+bob, fx.playerToken(t, "alice"))
	require.Equal(t, http.StatusOK, status, env.Message)
	detail := decode[model.PlayerDetail](t, env)
	assert.Equal(t, bob, detail.Player.ID)
	assert.Equal(t, []model.CompetitionScore{{CompetitionTitle: "final", Score: 20}}, detail.Scores)

	status, env = h.postForm("/api/organizer/competition/"+fx.compID+"/finish", fx.organizer, nil)
	require.Equal(t, http.StatusOK, status, env.Message)

	status, env = h.upload("/api/organizer/competition/"+fx.compID+"/score", fx.organizer, "scores.csv", csv)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.False(t, env.Status)
	assert.Contains(t, env.Message, "finished")

	status, env = h.get("/api/organizer/billing", fx.organizer)
	require.Equal(t, http.StatusOK, status, env.Message)
	reports := decode[struct {
		Reports []model.BillingReport `json:"reports"`
	}](t, env)
	require.Len(t, reports.Reports, 1)
	assert.EqualValues(t, 2, reports.Reports[0].PlayerCount)
	assert.EqualValues(t, 1, reports.Reports[0].VisitorCount)
	assert.EqualValues(t, 210, reports.Reports[0].BillingYen)

	status, env = h.get("/api/admin/tenants/billing", token(t, 0, auth.RoleAdmin, ""))
	require.Equal(t, http.StatusOK, status, env.Message)
	tenants := decode[struct {
		Tenants []model.TenantBilling `json:"tenants"`
	}](t, env)
	require.Len(t, tenants.Tenants, 1)
	assert.Equal(t, fx.id, tenants.Tenants[0].ID)
	assert.EqualValues(t, 210, tenants.Tenants[0].Billing)
}

func TestUploadRejectsInvalidTable(t *testing.T) {
	h := newHarness(t)
	fx := setupTenant(t, h, "acme")
	path := "/api/organizer/competition/" + fx.compID + "/score"

	tests := []struct {
		name     string
		fileName string
		content  string
	}{
		{name: "unknown player", fileName: "s.csv", content: "player_id,score\nnobody,1\n"},
		{name: "bad header", fileName: "s.csv", content: "id,score\n" + fx.players["alice"].ID + ",1\n"},
		{name: "bad score", fileName: "s.csv", content: "player_id,score\n" + fx.players["alice"].ID + ",ten\n"},
		{name: "unsupported format", fileName: "s.pdf", content: "player_id,score\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, env := h.upload(path, fx.organizer, tt.fileName, tt.content)
			assert.Equal(t, http.StatusBadRequest, status)
			assert.False(t, env.Status)
		})
	}

	status, _ := h.upload("/api/organizer/competition/missing/score", fx.organizer, "s.csv", "player_id,score\n")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestDisqualifiedPlayerIsForbidden(t *testing.T) {
	h := newHarness(t)
	fx := setupTenant(t, h, "acme")
	bob := fx.players["bob"].ID

	status, env := h.postForm("/api/organizer/player/"+bob+"/disqualified", fx.organizer, nil)
	require.Equal(t, http.StatusOK, status, env.Message)
	player := decode[struct {
		Player model.Player `json:"player"`
	}](t, env)
	assert.True(t, player.Player.IsDisqualified)

	status, _ = h.get("/api/player/competitions", fx.playerToken(t, "bob"))
	assert.Equal(t, http.StatusForbidden, status)

	status, env = h.get("/api/player/competitions", fx.playerToken(t, "alice"))
	require.Equal(t, http.StatusOK, status)
	comps := decode[struct {
		Competitions []model.CompetitionSummary `json:"competitions"`
	}](t, env)
	require.Len(t, comps.Competitions, 1)
	assert.Equal(t, fx.compID, comps.Competitions[0].ID)

	status, _ = h.get("/api/player/competitions", token(t, fx.id, auth.RolePlayer, "ghost"))
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestAccessControl(t *testing.T) {
	h := newHarness(t)
	fx := setupTenant(t, h, "acme")

	status, _ := h.get("/api/organizer/players", "")
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = h.get("/api/organizer/players", "not-a-jwt")
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = h.get("/api/admin/tenants/billing", fx.organizer)
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = h.get("/api/organizer/players", fx.playerToken(t, "alice"))
	assert.Equal(t, http.StatusForbidden, status)

	// a token for a tenant without a shard
	status, _ = h.get("/api/organizer/players", token(t, fx.id+100, auth.RoleOrganizer, ""))
	assert.Equal(t, http.StatusNotFound, status)
}

func TestRequestValidation(t *testing.T) {
	h := newHarness(t)
	fx := setupTenant(t, h, "acme")
	admin := token(t, 0, auth.RoleAdmin, "")

	status, _ := h.postForm("/api/admin/tenants/add", admin, url.Values{"name": {"acme"}, "display_name": {"again"}})
	assert.Equal(t, http.StatusConflict, status)

	status, _ = h.postForm("/api/admin/tenants/add", admin, url.Values{"name": {"Not Valid"}})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = h.get("/api/admin/tenants/billing?before=abc", admin)
	assert.Equal(t, http.StatusBadRequest, status)

	path := "/api/admin/tenants/" + strconv.FormatInt(fx.id, 10) + "/config/concurrency"
	status, _ = h.do(http.MethodPut, path, admin, "application/json", strings.NewReader(`{"workers":`))
	assert.Equal(t, http.StatusBadRequest, status)

	// no consumer runs without a broker
	status, _ = h.do(http.MethodPut, path, admin, "application/json", strings.NewReader(`{"workers":3}`))
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = h.postForm("/api/organizer/competitions/add", fx.organizer, url.Values{"title": {"  "}})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = h.postForm("/api/organizer/players/add", fx.organizer, url.Values{})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = h.postForm("/api/organizer/player/missing/disqualified", fx.organizer, nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = h.postForm("/api/organizer/competition/missing/finish", fx.organizer, nil)
	assert.Equal(t, http.StatusNotFound, status)

	carol := fx.playerToken(t, "carol")
	status, _ = h.get("/api/player/competition/"+fx.compID+"/ranking?rank_after=-1", carol)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = h.get("/api/player/competition/"+fx.compID+"/ranking?rank_after=x", carol)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = h.get("/api/player/competition/missing/ranking", carol)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = h.get("/api/player/player/missing", carol)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestMetricsEndpoint(t *testing.T) {
	h := newHarness(t)
	resp, err := http.Get(h.server.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestSwaggerDoc(t *testing.T) {
	h := newHarness(t)
	resp, err := http.Get(h.server.URL + "/swagger/doc.json")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var doc struct {
		Paths map[string]any `json:"paths"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&doc))
	assert.Contains(t, doc.Paths, "/api/organizer/competition/{competition_id}/score")
}
