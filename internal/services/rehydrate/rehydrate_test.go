package rehydrate

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kazusol/soltrader/internal/entity"
)

type fakeTrades struct {
	trade *entity.TradeRecord
	err   error
}

func (f *fakeTrades) Latest(context.Context) (*entity.TradeRecord, error) {
	return f.trade, f.err
}

type fakeProfits struct {
	profit *entity.ProfitRecord
	err    error
}

func (f *fakeProfits) Latest(context.Context) (*entity.ProfitRecord, error) {
	return f.profit, f.err
}

func TestRehydrateFreshDeploymentDefaults(t *testing.T) {
	r := New(&fakeTrades{}, &fakeProfits{}, zap.NewNop())

	state := r.Rehydrate(context.Background())

	require.Equal(t, entity.PositionQuote, state.Position)
	require.Nil(t, state.LastTradePrice)
	require.True(t, state.CumulativeProfit.IsZero())
	require.Zero(t, state.TotalTrades)
}

func TestRehydrateFromRecords(t *testing.T) {
	trades := &fakeTrades{trade: &entity.TradeRecord{
		PositionAfter: entity.PositionBase,
		PriceAtTrade:  decimal.RequireFromString("151.2"),
	}}
	profits := &fakeProfits{profit: &entity.ProfitRecord{
		CumulativeProfit: decimal.RequireFromString("42.5"),
		TotalTrades:      7,
		WinningTrades:    4,
		LosingTrades:     2,
	}}

	state := New(trades, profits, zap.NewNop()).Rehydrate(context.Background())

	require.Equal(t, entity.PositionBase, state.Position)
	require.NotNil(t, state.LastTradePrice)
	require.True(t, state.LastTradePrice.Equal(decimal.RequireFromString("151.2")))
	require.True(t, state.CumulativeProfit.Equal(decimal.RequireFromString("42.5")))
	require.Equal(t, int64(7), state.TotalTrades)
	require.Equal(t, int64(4), state.WinningTrades)
	require.Equal(t, int64(2), state.LosingTrades)
}

func TestRehydrateNeverFails(t *testing.T) {
	trades := &fakeTrades{err: errors.New("wal corrupted")}
	profits := &fakeProfits{err: errors.New("wal corrupted")}

	state := New(trades, profits, zap.NewNop()).Rehydrate(context.Background())

	require.NotNil(t, state)
	require.Equal(t, entity.PositionQuote, state.Position)
	require.Nil(t, state.LastTradePrice)
}

func TestRehydratePartialSources(t *testing.T) {
	// Trades readable, profits broken: position recovers, counters default.
	trades := &fakeTrades{trade: &entity.TradeRecord{
		PositionAfter: entity.PositionBase,
		PriceAtTrade:  decimal.NewFromInt(150),
	}}
	profits := &fakeProfits{err: errors.New("unreadable")}

	state := New(trades, profits, zap.NewNop()).Rehydrate(context.Background())

	require.Equal(t, entity.PositionBase, state.Position)
	require.NotNil(t, state.LastTradePrice)
	require.Zero(t, state.TotalTrades)
	require.True(t, state.CumulativeProfit.IsZero())
}
