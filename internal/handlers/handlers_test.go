package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/XavierBriggs/fortuna/services/line-engine/internal/cache"
	"github.com/XavierBriggs/fortuna/services/line-engine/internal/engine"
	"github.com/XavierBriggs/fortuna/services/line-engine/internal/movement"
	"github.com/XavierBriggs/fortuna/services/line-engine/internal/predictor"
	"github.com/XavierBriggs/fortuna/services/line-engine/internal/snapshots"
	"github.com/XavierBriggs/fortuna/services/line-engine/pkg/models"
)

type stubProvider struct {
	props []models.PlayerProp
	err   error
}

func (s stubProvider) FetchGameOdds(context.Context, string, []string) ([]models.GameOdds, *models.APIUsage, error) {
	return nil, nil, s.err
}

func (s stubProvider) FetchPlayerProps(context.Context, string) ([]models.PlayerProp, *models.APIUsage, error) {
	return s.props, nil, s.err
}

func newRouter(t *testing.T, provider engine.OddsProvider) http.Handler {
	t.Helper()
	c := cache.New(nil, cache.Options{Logger: zerolog.Nop()})
	tracker := movement.NewTracker(snapshots.NewMemoryStore(), nil, zerolog.Nop())
	pred := predictor.New(nil, tracker, c, zerolog.Nop())
	e := engine.New(provider, c, tracker, pred, nil, engine.Options{DefaultBankroll: 1000, Logger: zerolog.Nop()})

	h := NewHandler(e, nil, nil, zerolog.Nop())
	r := chi.NewRouter()
	r.Get("/health", h.HealthCheck)
	r.Mount("/api/v1", h.Routes())
	return r
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, &buf))
	return rec
}

func TestHealthCheck(t *testing.T) {
	rec := do(t, newRouter(t, stubProvider{}), http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "disabled", body["cache"])
}

func TestGetOdds_Errors(t *testing.T) {
	r := newRouter(t, stubProvider{err: errors.New("upstream down")})

	rec := do(t, r, http.MethodGet, "/api/v1/odds?sport=cricket", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, r, http.MethodGet, "/api/v1/odds?sport=nfl", nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	var resp models.OddsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.NotNil(t, resp.Games)
	assert.Contains(t, resp.Error, "upstream down")
}

func TestGetProps(t *testing.T) {
	now := time.Now().UTC()
	r := newRouter(t, stubProvider{props: []models.PlayerProp{
		{PlayerName: "Patrick Mahomes", PropType: "player_pass_yds", Line: 275.5, OverOdds: -110, UnderOdds: -110, Sportsbook: "draftkings", LastUpdate: now},
		{PlayerName: "Josh Allen", PropType: "player_pass_yds", Line: 260.5, OverOdds: -110, UnderOdds: -110, Sportsbook: "draftkings", LastUpdate: now},
	}})

	rec := do(t, r, http.MethodGet, "/api/v1/props?player=ALLEN", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp models.PropsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	require.Len(t, resp.Props, 1)
	assert.Equal(t, "Josh Allen", resp.Props[0].PlayerName)

	rec = do(t, r, http.MethodGet, "/api/v1/props/arbitrage?minProfit=abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, r, http.MethodGet, "/api/v1/props/arbitrage", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var arb engine.ArbitrageResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &arb))
	assert.Equal(t, 0, arb.Count)
	assert.Equal(t, 0.5, arb.MinProfit)

	rec = do(t, r, http.MethodGet, "/api/v1/props/arbitrage?minProfit=0", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &arb))
	assert.Zero(t, arb.MinProfit, "explicit zero is honored")

	rec = do(t, r, http.MethodGet, "/api/v1/props/value", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var defaults engine.ValueResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &defaults))
	assert.Equal(t, 5.0, defaults.MinValue)
	assert.Zero(t, defaults.Count, "-110 coin flips fall below the default threshold")

	rec = do(t, r, http.MethodGet, "/api/v1/props/value?minValue=-100", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var value engine.ValueResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &value))
	assert.Equal(t, 2, value.Count)

	rec = do(t, r, http.MethodGet, "/api/v1/props/featured", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func parlayLegs() []models.ParlayLeg {
	start := time.Date(2025, 10, 12, 17, 0, 0, 0, time.UTC)
	return []models.ParlayLeg{
		{
			GameID:      "g1",
			Game:        models.Game{ID: "g1", HomeTeam: models.Team{ID: "kc", Name: "Chiefs"}, AwayTeam: models.Team{ID: "buf", Name: "Bills"}, StartsAt: start},
			BetType:     "spread",
			Selection:   "Chiefs -3.5",
			Price:       -110,
			Probability: 55,
		},
		{
			GameID:      "g2",
			Game:        models.Game{ID: "g2", HomeTeam: models.Team{ID: "phi", Name: "Eagles"}, AwayTeam: models.Team{ID: "dal", Name: "Cowboys"}, StartsAt: start.Add(24 * time.Hour)},
			BetType:     "moneyline",
			Selection:   "Eagles",
			Price:       -150,
			Probability: 62,
		},
	}
}

func TestValidateParlay(t *testing.T) {
	r := newRouter(t, stubProvider{})

	rec := do(t, r, http.MethodPost, "/api/v1/parlay/validate", engine.ParlayRequest{Legs: parlayLegs(), Stake: 10})
	require.Equal(t, http.StatusOK, rec.Code)

	var report engine.ParlayReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.True(t, report.Validation.Valid)
	require.NotNil(t, report.Evaluation)
	assert.Equal(t, 10.0, report.Evaluation.Stake)

	dup := parlayLegs()
	dup[1].Game.HomeTeam = models.Team{ID: "kc", Name: "Chiefs"}
	rec = do(t, r, http.MethodPost, "/api/v1/parlay/validate", engine.ParlayRequest{Legs: dup, Stake: 10})
	require.Equal(t, http.StatusOK, rec.Code)
	report = engine.ParlayReport{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.False(t, report.Validation.Valid)
	assert.Contains(t, report.Validation.Error, "Chiefs")

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/parlay/validate", bytes.NewBufferString("{")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRoundRobinEndpoint(t *testing.T) {
	r := newRouter(t, stubProvider{})

	rec := do(t, r, http.MethodPost, "/api/v1/parlay/round-robin", engine.RoundRobinRequest{Legs: parlayLegs(), Size: 2, Stake: 5})
	require.Equal(t, http.StatusOK, rec.Code)

	var report engine.RoundRobinReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, 1, report.Count)

	rec = do(t, r, http.MethodPost, "/api/v1/parlay/round-robin", engine.RoundRobinRequest{Legs: parlayLegs(), Size: 3, Stake: 5})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLines(t *testing.T) {
	r := newRouter(t, stubProvider{})

	rec := do(t, r, http.MethodGet, "/api/v1/lines/evt1/spread", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, r, http.MethodPost, "/api/v1/lines/evt1/spread", engine.LineInput{
		Sportsbook: "draftkings", Line: models.Float(-3.5), OverPrice: -110, UnderPrice: -110,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, r, http.MethodGet, "/api/v1/lines/evt1/spread", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var hist movement.LineHistory
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &hist))
	assert.Len(t, hist.Movements, 1)
	require.NotNil(t, hist.Opening)
	assert.Equal(t, "draftkings", hist.Opening.Sportsbook)

	rec = do(t, r, http.MethodPost, "/api/v1/lines/evt1/moneyline", engine.LineInput{
		Sportsbook: "draftkings", Line: models.Float(1), OverPrice: -110, UnderPrice: -110,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, r, http.MethodGet, "/api/v1/lines/evt1/corners", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCacheStats(t *testing.T) {
	rec := do(t, newRouter(t, stubProvider{}), http.MethodGet, "/api/v1/cache/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var stats cache.Stats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.False(t, stats.Enabled)
}
