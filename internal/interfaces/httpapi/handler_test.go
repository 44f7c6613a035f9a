package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/scorecast/scorecast/external/footballdata"
	"github.com/scorecast/scorecast/internal/domain/fixture"
	"github.com/scorecast/scorecast/internal/domain/rawdata"
	"github.com/scorecast/scorecast/internal/domain/user"
	"github.com/scorecast/scorecast/internal/infrastructure/repository/memory"
	"github.com/scorecast/scorecast/internal/usecase"
)

type fakeProvider struct {
	fixtures []fixture.Fixture
}

func (p *fakeProvider) MatchesInRange(context.Context, time.Time, time.Time) ([]fixture.Fixture, rawdata.Payload, error) {
	return p.fixtures, rawdata.Payload{}, nil
}

func (p *fakeProvider) MatchesByMatchday(context.Context, int, int) ([]fixture.Fixture, rawdata.Payload, error) {
	return p.fixtures, rawdata.Payload{}, nil
}

func (p *fakeProvider) MatchesBySeason(context.Context, int) ([]fixture.Fixture, rawdata.Payload, error) {
	return p.fixtures, rawdata.Payload{}, nil
}

type fakeGateway struct {
	resp footballdata.Response
	err  error
	path string
}

func (g *fakeGateway) Do(_ context.Context, path string, _ url.Values) (footballdata.Response, error) {
	g.path = path
	return g.resp, g.err
}

func roundFixtures(matchday int, kickoff time.Time) []fixture.Fixture {
	md := matchday
	return []fixture.Fixture{
		{
			ID: 1, Kickoff: kickoff, Status: fixture.StatusTimed, Matchday: &md, Season: 2025,
			Round:    "Matchday 13",
			HomeTeam: fixture.Team{Name: "Arsenal FC", Short: "Arsenal"},
			AwayTeam: fixture.Team{Name: "Brighton & Hove Albion FC", Short: "Brighton Hove"},
		},
		{
			ID: 2, Kickoff: kickoff.Add(2 * time.Hour), Status: fixture.StatusTimed, Matchday: &md, Season: 2025,
			Round:    "Matchday 13",
			HomeTeam: fixture.Team{Name: "Everton FC", Short: "Everton"},
			AwayTeam: fixture.Team{Name: "Newcastle United FC", Short: "Newcastle"},
		},
	}
}

func newTestRouter(t *testing.T, provider usecase.MatchProvider, gateway upstreamGateway) http.Handler {
	t.Helper()

	users := memory.NewUserRepository(
		user.Profile{ID: "u-alice", DisplayName: "Alice", HasPaid: true},
		user.Profile{ID: "u-admin", DisplayName: "Admin", IsAdmin: true},
	)
	preds := memory.NewPredictionRepository()

	gameweekSvc := usecase.NewGameweekService(provider, nil, nil, nil)
	leaderboardSvc := usecase.NewLeaderboardService(provider, users, preds, nil, nil)
	predictionSvc := usecase.NewPredictionService(gameweekSvc, preds, users, nil)
	refreshSvc := usecase.NewRefreshService(provider, memory.NewFixtureRepository(), nil, nil, 0, nil)

	handler := NewHandler(gameweekSvc, leaderboardSvc, predictionSvc, refreshSvc, gateway, nil)
	return NewRouter(handler, nil, []string{"*"}, "job-secret")
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var envelope map[string]any
	if err := sonic.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v body=%s", err, rec.Body.String())
	}
	return envelope
}

func TestHandler_Healthz(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t, &fakeProvider{}, nil)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d, want 200", rec.Code)
	}
}

func TestHandler_GetCurrentGameweek(t *testing.T) {
	t.Parallel()

	kickoff := time.Now().UTC().Add(48 * time.Hour).Truncate(time.Second)
	router := newTestRouter(t, &fakeProvider{fixtures: roundFixtures(13, kickoff)}, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/gameweek/current", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	envelope := decodeEnvelope(t, rec)
	data, _ := envelope["data"].(map[string]any)
	if data == nil {
		t.Fatalf("missing data envelope: %s", rec.Body.String())
	}
	if got, _ := data["matchday"].(float64); int(got) != 13 {
		t.Fatalf("matchday=%v, want 13", data["matchday"])
	}
	fixtures, _ := data["fixtures"].([]any)
	if len(fixtures) != 2 {
		t.Fatalf("got %d fixtures, want 2", len(fixtures))
	}
}

func TestHandler_GetCurrentGameweek_NoFixtures(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t, &fakeProvider{}, nil)
	req := httptest.NewRequest(http.MethodGet, "/v1/gameweek/current", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status=%d, want 404", rec.Code)
	}
}

func TestHandler_SaveAndListPredictions(t *testing.T) {
	t.Parallel()

	kickoff := time.Now().UTC().Add(48 * time.Hour).Truncate(time.Second)
	router := newTestRouter(t, &fakeProvider{fixtures: roundFixtures(13, kickoff)}, nil)

	body := `{"fixtureId":1,"home":2,"away":1}`
	req := httptest.NewRequest(http.MethodPut, "/v1/predictions", strings.NewReader(body))
	req.Header.Set("X-User-Id", "u-alice")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("save status=%d body=%s", rec.Code, rec.Body.String())
	}

	// Saving locked it; a second save is rejected until an unlock.
	req = httptest.NewRequest(http.MethodPut, "/v1/predictions", strings.NewReader(body))
	req.Header.Set("X-User-Id", "u-alice")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusConflict {
		t.Fatalf("locked save status=%d, want 409", rec.Code)
	}

	// Admin unlock reopens it.
	req = httptest.NewRequest(http.MethodPost, "/v1/predictions/unlock", strings.NewReader(`{"userId":"u-alice","fixtureId":1}`))
	req.Header.Set("X-User-Id", "u-admin")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("unlock status=%d body=%s", rec.Code, rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/v1/predictions/me", nil)
	req.Header.Set("X-User-Id", "u-alice")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status=%d", rec.Code)
	}
	envelope := decodeEnvelope(t, rec)
	items, _ := envelope["data"].([]any)
	if len(items) != 1 {
		t.Fatalf("got %d predictions, want 1", len(items))
	}
}

func TestHandler_UnlockDefaultsToCaller(t *testing.T) {
	t.Parallel()

	kickoff := time.Now().UTC().Add(48 * time.Hour).Truncate(time.Second)
	router := newTestRouter(t, &fakeProvider{fixtures: roundFixtures(13, kickoff)}, nil)

	body := `{"fixtureId":1,"home":2,"away":1}`
	req := httptest.NewRequest(http.MethodPut, "/v1/predictions", strings.NewReader(body))
	req.Header.Set("X-User-Id", "u-alice")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("save status=%d body=%s", rec.Code, rec.Body.String())
	}

	// No userId in the body; the caller unlocks their own prediction.
	req = httptest.NewRequest(http.MethodPost, "/v1/predictions/unlock", strings.NewReader(`{"fixtureId":1}`))
	req.Header.Set("X-User-Id", "u-alice")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("unlock status=%d body=%s", rec.Code, rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodPut, "/v1/predictions", strings.NewReader(`{"fixtureId":1,"home":3,"away":1}`))
	req.Header.Set("X-User-Id", "u-alice")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("resave status=%d body=%s", rec.Code, rec.Body.String())
	}
}

func TestHandler_SavePredictionRequiresIdentity(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t, &fakeProvider{}, nil)
	req := httptest.NewRequest(http.MethodPut, "/v1/predictions", strings.NewReader(`{"fixtureId":1,"home":1,"away":0}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status=%d, want 401", rec.Code)
	}
}

func TestHandler_GatewayProxyMirrorsUpstream(t *testing.T) {
	t.Parallel()

	gateway := &fakeGateway{resp: footballdata.Response{
		StatusCode: http.StatusNotFound,
		Body:       []byte(`{"message":"not found"}`),
	}}
	router := newTestRouter(t, &fakeProvider{}, gateway)

	req := httptest.NewRequest(http.MethodGet, "/football-api/competitions/PL/standings?season=2025", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status=%d, want mirrored 404", rec.Code)
	}
	if gateway.path != "competitions/PL/standings" {
		t.Fatalf("forwarded path=%q", gateway.path)
	}
	if !strings.Contains(rec.Body.String(), "not found") {
		t.Fatalf("body not mirrored: %s", rec.Body.String())
	}
	if got := rec.Header().Get("Content-Type"); got != "application/json" {
		t.Fatalf("content type=%q, want application/json for a JSON body", got)
	}
}

func TestHandler_GatewayProxyMirrorsContentType(t *testing.T) {
	t.Parallel()

	gateway := &fakeGateway{resp: footballdata.Response{
		StatusCode:  http.StatusOK,
		ContentType: "text/plain; charset=utf-8",
		Body:        []byte("maintenance window"),
	}}
	router := newTestRouter(t, &fakeProvider{}, gateway)

	req := httptest.NewRequest(http.MethodGet, "/football-api/competitions/PL/standings", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if got := rec.Header().Get("Content-Type"); got != "text/plain; charset=utf-8" {
		t.Fatalf("content type=%q, want the upstream's", got)
	}
}

func TestHandler_InternalRefreshRequiresToken(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t, &fakeProvider{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/v1/internal/jobs/refresh", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status=%d, want 401", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/v1/internal/jobs/refresh", nil)
	req.Header.Set("X-Internal-Job-Token", "job-secret")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
}

func TestHandler_ListFixturesValidatesDates(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t, &fakeProvider{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/fixtures?dateFrom=2025-11-27", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing dateTo status=%d, want 400", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/v1/fixtures?dateFrom=2025-11-27&dateTo=2025-12-05", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
}
