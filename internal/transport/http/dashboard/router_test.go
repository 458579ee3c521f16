package dashboardhttp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"lighterdash/internal/account"
	"lighterdash/internal/market"
	"lighterdash/internal/preset"
	"lighterdash/internal/store/gormstore"
	"lighterdash/internal/store/markettape"
)

type MockAccountService struct {
	mock.Mock
}

func (m *MockAccountService) State() account.TrackerState {
	return m.Called().Get(0).(account.TrackerState)
}

func (m *MockAccountService) Refresh(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type stubMarkets struct {
	state market.BoardState
	err   error
}

func (s *stubMarkets) State() market.BoardState      { return s.state }
func (s *stubMarkets) Refresh(context.Context) error { return s.err }

type stubPresets map[string]preset.Preset

func (s stubPresets) Lookup(name string) (preset.Preset, bool) {
	p, ok := s[name]
	return p, ok
}

func (s stubPresets) List() []preset.Preset {
	out := make([]preset.Preset, 0, len(s))
	for _, p := range s {
		out = append(out, p)
	}
	return out
}

type stubMarketHistory struct{}

func (stubMarketHistory) Series(_ context.Context, symbol string, limit int) ([]markettape.Tick, error) {
	return []markettape.Tick{{Symbol: symbol, MarkPrice: float64(limit)}}, nil
}

type stubAccountHistory struct{ err error }

func (s stubAccountHistory) Recent(context.Context, int) ([]gormstore.AccountSnapshotModel, error) {
	return []gormstore.AccountSnapshotModel{{ID: "x"}}, s.err
}

func sampleMarkets() *stubMarkets {
	return &stubMarkets{state: market.BoardState{
		Rows: []market.Row{
			{Symbol: "BTC", Change24hPct: 2, Volume24hUSD: 5_000_000, FundingRate8h: 0.0003},
			{Symbol: "ETH", Change24hPct: -1, Volume24hUSD: 9_000_000},
			{Symbol: "SOL", Change24hPct: 3, Volume24hUSD: 1_000},
		},
		RefreshedAt: time.Unix(1700000000, 0),
	}}
}

func newTestServer(t *testing.T, acc AccountService, mk MarketService, routes *Router) *Server {
	t.Helper()
	if routes == nil {
		routes = &Router{}
	}
	routes.Account = acc
	routes.Markets = mk
	if routes.DefaultQuery == (market.Query{}) {
		routes.DefaultQuery = market.Query{Filter: market.FilterAll, SortKey: market.SortVolume24hUSD, SortDir: market.Desc}
	}
	srv, err := NewServer(ServerConfig{Routes: routes})
	require.NoError(t, err)
	return srv
}

func do(t *testing.T, srv *Server, method, target string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	var body map[string]any
	if rec.Header().Get("Content-Type") == "application/json; charset=utf-8" {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

func names(t *testing.T, body map[string]any) []string {
	t.Helper()
	rows, ok := body["rows"].([]any)
	require.True(t, ok)
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.(map[string]any)["symbol"].(string))
	}
	return out
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t, new(MockAccountService), sampleMarkets(), nil)
	rec, body := do(t, srv, http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
}

func TestAccountView(t *testing.T) {
	acc := new(MockAccountService)
	acc.On("State").Return(account.TrackerState{
		Summary: &account.Summary{AccountID: "1", EquityUSD: 1000},
		Positions: []account.Position{
			{Symbol: "BTC", Side: account.ParseSide("buy"), SizeUSD: 100, UnrealizedPnlUSD: 5, MarginUsedUSD: 250},
			{Symbol: "BTC", Side: account.ParseSide("short"), SizeUSD: 0, UnrealizedPnlUSD: -1, MarginUsedUSD: 250},
		},
		Err: "orders: 500",
	})
	srv := newTestServer(t, acc, sampleMarkets(), nil)
	rec, body := do(t, srv, http.MethodGet, "/api/dashboard/account")
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, "orders: 500", body["error"])
	derived := body["derived"].(map[string]any)
	assert.Equal(t, 4.0, derived["aggregate_unrealized_pnl_usd"])
	assert.Equal(t, 500.0, derived["aggregate_margin_used_usd"])
	assert.Equal(t, 2.0, derived["effective_leverage"])

	positions := body["positions"].([]any)
	require.Len(t, positions, 2)
	first := positions[0].(map[string]any)
	assert.Equal(t, "BTC-buy", first["key"])
	assert.Equal(t, "long", first["side_kind"])
	assert.Equal(t, 5.0, first["pnl_pct"])
	assert.Equal(t, "positive", first["pnl_tier"])
	assert.Equal(t, 0.0, positions[1].(map[string]any)["pnl_pct"])
	assert.Equal(t, []any{}, body["orders"])
}

func TestAccountView_OverflowingAggregatesStillEncode(t *testing.T) {
	acc := new(MockAccountService)
	acc.On("State").Return(account.TrackerState{
		Summary: &account.Summary{AccountID: "1", EquityUSD: 1000},
		Positions: []account.Position{
			{Symbol: "BTC", UnrealizedPnlUSD: 1e308},
			{Symbol: "ETH", UnrealizedPnlUSD: 1e308},
		},
	})
	srv := newTestServer(t, acc, sampleMarkets(), nil)

	rec, body := do(t, srv, http.MethodGet, "/api/dashboard/account")
	require.Equal(t, http.StatusOK, rec.Code)
	derived, ok := body["derived"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 0.0, derived["aggregate_unrealized_pnl_usd"])
}

func TestAccountRefresh(t *testing.T) {
	acc := new(MockAccountService)
	acc.On("State").Return(account.TrackerState{Err: "positions: 500"})
	acc.On("Refresh", mock.Anything).Return(errors.New("positions: 500")).Once()
	acc.On("Refresh", mock.Anything).Return(nil).Once()
	srv := newTestServer(t, acc, sampleMarkets(), nil)

	rec, body := do(t, srv, http.MethodPost, "/api/dashboard/account/refresh")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "positions: 500", body["error"])
	assert.NotNil(t, body["state"])

	rec, _ = do(t, srv, http.MethodPost, "/api/dashboard/account/refresh")
	assert.Equal(t, http.StatusOK, rec.Code)
	acc.AssertExpectations(t)
}

func TestMarketsView(t *testing.T) {
	srv := newTestServer(t, new(MockAccountService), sampleMarkets(), nil)

	rec, body := do(t, srv, http.MethodGet, "/api/dashboard/markets")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"ETH", "BTC", "SOL"}, names(t, body))
	assert.Equal(t, 3.0, body["total"])

	_, body = do(t, srv, http.MethodGet, "/api/dashboard/markets?filter=gainers&sort=symbol&dir=desc")
	assert.Equal(t, []string{"SOL", "BTC"}, names(t, body))
	row := body["rows"].([]any)[1].(map[string]any)
	assert.Equal(t, "$5.00M", row["volume_24h_usd_text"])
	assert.Equal(t, "2.00%", row["change_text"])
	assert.Equal(t, "positive", row["funding_tier"])

	_, body = do(t, srv, http.MethodGet, "/api/dashboard/markets?search=et")
	assert.Equal(t, []string{"ETH"}, names(t, body))
}

func TestMarketsView_BadParams(t *testing.T) {
	srv := newTestServer(t, new(MockAccountService), sampleMarkets(), nil)
	for _, target := range []string{
		"/api/dashboard/markets?filter=winners",
		"/api/dashboard/markets?sort=price",
		"/api/dashboard/markets?dir=sideways",
	} {
		rec, body := do(t, srv, http.MethodGet, target)
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
		assert.NotEmpty(t, body["error"])
	}
}

func TestMarketsView_Preset(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/presets.yaml"
	require.NoError(t, writeFile(path, "presets:\n  losers:\n    filter: losers\n"))
	reg, err := preset.NewRegistry(path)
	require.NoError(t, err)

	srv := newTestServer(t, new(MockAccountService), sampleMarkets(), &Router{Presets: reg})
	rec, body := do(t, srv, http.MethodGet, "/api/dashboard/markets?preset=losers")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"ETH"}, names(t, body))
	assert.Equal(t, "losers", body["preset"])

	rec, _ = do(t, srv, http.MethodGet, "/api/dashboard/markets?preset=nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	_, body = do(t, srv, http.MethodGet, "/api/dashboard/presets")
	assert.Len(t, body["presets"], 1)
}

func TestMarketsRefreshAndChart(t *testing.T) {
	mk := sampleMarkets()
	srv := newTestServer(t, new(MockAccountService), mk, &Router{ChartTopN: 2})

	rec, _ := do(t, srv, http.MethodPost, "/api/dashboard/markets/refresh")
	assert.Equal(t, http.StatusOK, rec.Code)

	mk.err = errors.New("markets: 503")
	rec, body := do(t, srv, http.MethodPost, "/api/dashboard/markets/refresh")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "markets: 503", body["error"])

	rec, _ = do(t, srv, http.MethodGet, "/api/dashboard/markets/chart")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Top 2 markets")

	rec, _ = do(t, srv, http.MethodGet, "/api/dashboard/markets/chart?top=zero")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHistory(t *testing.T) {
	srv := newTestServer(t, new(MockAccountService), sampleMarkets(), nil)
	rec, _ := do(t, srv, http.MethodGet, "/api/dashboard/history/account")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	srv = newTestServer(t, new(MockAccountService), sampleMarkets(), &Router{
		AccountHistory: stubAccountHistory{},
		MarketHistory:  stubMarketHistory{},
	})
	rec, body := do(t, srv, http.MethodGet, "/api/dashboard/history/account?limit=5")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["snapshots"], 1)

	rec, body = do(t, srv, http.MethodGet, "/api/dashboard/history/markets/btc?limit=5000")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "BTC", body["symbol"])
	tick := body["ticks"].([]any)[0].(map[string]any)
	assert.Equal(t, 1000.0, tick["mark_price"])
}

func TestNewServer_RequiresServices(t *testing.T) {
	_, err := NewServer(ServerConfig{})
	assert.Error(t, err)
}
