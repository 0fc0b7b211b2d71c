// Package rehydrate reconstructs the trading state from persisted records at
// startup. Rehydration never fails the boot: any unreadable or missing source
// degrades that slice of state to its default and the engine starts anyway.
package rehydrate

import (
	"context"

	"go.uber.org/zap"

	"github.com/kazusol/soltrader/internal/entity"
)

// TradeSource exposes the most recently persisted trade, nil when none exist.
type TradeSource interface {
	Latest(ctx context.Context) (*entity.TradeRecord, error)
}

// ProfitSource exposes the most recently persisted profit record.
type ProfitSource interface {
	Latest(ctx context.Context) (*entity.ProfitRecord, error)
}

// Rehydrator rebuilds state from the trade and profit stores.
type Rehydrator struct {
	trades  TradeSource
	profits ProfitSource
	logger  *zap.Logger
}

// New creates a rehydrator over the given sources.
func New(trades TradeSource, profits ProfitSource, logger *zap.Logger) *Rehydrator {
	return &Rehydrator{trades: trades, profits: profits, logger: logger}
}

// Rehydrate rebuilds the trading state. Position and last trade price come
// from the latest trade; cumulative profit and counters come from the latest
// profit record. A fresh deployment (no records) yields the default state:
// holding quote, no last trade price, zero counters.
func (r *Rehydrator) Rehydrate(ctx context.Context) *entity.TradingState {
	state := entity.NewTradingState()

	trade, err := r.trades.Latest(ctx)
	switch {
	case err != nil:
		r.logger.Warn("could not read latest trade, starting from default position", zap.Error(err))
	case trade != nil:
		state.Position = entity.ParsePosition(string(trade.PositionAfter))
		price := trade.PriceAtTrade
		state.LastTradePrice = &price
	}

	profit, err := r.profits.Latest(ctx)
	switch {
	case err != nil:
		r.logger.Warn("could not read latest profit record, starting from zero counters", zap.Error(err))
	case profit != nil:
		state.CumulativeProfit = profit.CumulativeProfit
		state.TotalTrades = profit.TotalTrades
		state.WinningTrades = profit.WinningTrades
		state.LosingTrades = profit.LosingTrades
	}

	lastPrice := "none"
	if state.LastTradePrice != nil {
		lastPrice = state.LastTradePrice.String()
	}
	r.logger.Info("trading state rehydrated",
		zap.String("position", string(state.Position)),
		zap.String("last_trade_price", lastPrice),
		zap.String("cumulative_profit", state.CumulativeProfit.String()),
		zap.Int64("total_trades", state.TotalTrades))

	return state
}
