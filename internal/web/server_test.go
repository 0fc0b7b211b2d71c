package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kazusol/soltrader/internal/entity"
)

type fakeTrigger struct {
	mu    sync.Mutex
	calls int
	busy  bool
	done  chan struct{}
}

func (f *fakeTrigger) TriggerCycle(context.Context) error {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.done != nil {
		close(f.done)
	}
	return nil
}

func (f *fakeTrigger) Busy() bool {
	return f.busy
}

type fakeProfits struct {
	records []entity.ProfitRecord
	latest  *entity.ProfitRecord
}

func (f *fakeProfits) Since(context.Context, time.Time) ([]entity.ProfitRecord, error) {
	return f.records, nil
}

func (f *fakeProfits) Latest(context.Context) (*entity.ProfitRecord, error) {
	return f.latest, nil
}

type fakePrices struct {
	samples []entity.PriceSample
}

func (f *fakePrices) Window(context.Context, time.Time) ([]entity.PriceSample, error) {
	return f.samples, nil
}

type fakeTrades struct {
	trades   []entity.TradeRecord
	gotLimit int
}

func (f *fakeTrades) Recent(_ context.Context, limit int) ([]entity.TradeRecord, error) {
	f.gotLimit = limit
	return f.trades, nil
}

func newTestServer(trigger CycleTrigger, profits ProfitReader, prices PriceReader, trades TradeReader) *httptest.Server {
	srv := New(trigger, profits, prices, trades,
		http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		}), zap.NewNop())
	return httptest.NewServer(srv.Handler())
}

func TestHealthEndpoints(t *testing.T) {
	ts := newTestServer(&fakeTrigger{}, &fakeProfits{}, &fakePrices{}, &fakeTrades{})
	defer ts.Close()

	for _, path := range []string{"/", "/health"} {
		resp, err := http.Get(ts.URL + path)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		resp.Body.Close()
	}
}

func TestTriggerStartsCycleAsync(t *testing.T) {
	trigger := &fakeTrigger{done: make(chan struct{})}
	ts := newTestServer(trigger, &fakeProfits{}, &fakePrices{}, &fakeTrades{})
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/trigger", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	select {
	case <-trigger.done:
	case <-time.After(time.Second):
		t.Fatal("trigger was never invoked")
	}
}

func TestTriggerRejectedWhileBusy(t *testing.T) {
	trigger := &fakeTrigger{busy: true}
	ts := newTestServer(trigger, &fakeProfits{}, &fakePrices{}, &fakeTrades{})
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/trigger")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	require.Zero(t, trigger.calls)
}

func TestPerformanceAggregation(t *testing.T) {
	profits := &fakeProfits{
		records: []entity.ProfitRecord{
			{ProfitLoss: decimal.NewFromInt(10)},
			{ProfitLoss: decimal.NewFromInt(-4)},
			{ProfitLoss: decimal.NewFromInt(6)},
			{ProfitLoss: decimal.Zero},
		},
		latest: &entity.ProfitRecord{
			CumulativeProfit: decimal.NewFromInt(12),
			ROIPercent:       decimal.RequireFromString("1.2"),
		},
	}
	ts := newTestServer(&fakeTrigger{}, profits, &fakePrices{}, &fakeTrades{})
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/performance?days=30")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got struct {
		Days             int    `json:"days"`
		Trades           int    `json:"trades"`
		WinningTrades    int64  `json:"winning_trades"`
		LosingTrades     int64  `json:"losing_trades"`
		WinRatePercent   string `json:"win_rate_percent"`
		PeriodProfit     string `json:"period_profit"`
		CumulativeProfit string `json:"cumulative_profit"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))

	require.Equal(t, 30, got.Days)
	require.Equal(t, 4, got.Trades)
	require.Equal(t, int64(2), got.WinningTrades)
	require.Equal(t, int64(1), got.LosingTrades)
	require.Equal(t, "12", got.PeriodProfit)
	require.Equal(t, "12", got.CumulativeProfit)

	winRate, err := decimal.NewFromString(got.WinRatePercent)
	require.NoError(t, err)
	want := decimal.NewFromInt(2).Div(decimal.NewFromInt(3)).Mul(decimal.NewFromInt(100))
	require.True(t, winRate.Equal(want), "got %s want %s", winRate, want)
}

func TestPriceHistoryDefaultsAndEmpty(t *testing.T) {
	ts := newTestServer(&fakeTrigger{}, &fakeProfits{}, &fakePrices{}, &fakeTrades{})
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/price-history")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got struct {
		Hours  int               `json:"hours"`
		Prices []json.RawMessage `json:"prices"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	require.Equal(t, 24, got.Hours)
	require.NotNil(t, got.Prices)
	require.Empty(t, got.Prices)
}

func TestTradingSessionsLimit(t *testing.T) {
	trades := &fakeTrades{trades: []entity.TradeRecord{{ID: "t1"}, {ID: "t2"}}}
	ts := newTestServer(&fakeTrigger{}, &fakeProfits{}, &fakePrices{}, trades)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/trading-sessions?limit=2")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, 2, trades.gotLimit)

	// Garbage limit falls back to the default.
	resp2, err := http.Get(ts.URL + "/api/trading-sessions?limit=bogus")
	require.NoError(t, err)
	resp2.Body.Close()
	require.Equal(t, 20, trades.gotLimit)
}

func TestMetricsRouteWired(t *testing.T) {
	ts := newTestServer(&fakeTrigger{}, &fakeProfits{}, &fakePrices{}, &fakeTrades{})
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}
