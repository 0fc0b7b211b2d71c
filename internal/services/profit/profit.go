// Package profit settles realized profit-and-loss after each executed swap
// and maintains the running performance counters.
package profit

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kazusol/soltrader/internal/entity"
)

// hundred scales ratios into percentages.
var hundred = decimal.NewFromInt(100)

// Accountant settles trades against the trading state. Settlement is pure
// arithmetic; persistence of the resulting records is the caller's concern.
type Accountant struct{}

// NewAccountant returns a profit accountant.
func NewAccountant() *Accountant {
	return &Accountant{}
}

// Settlement is the outcome of settling one trade.
type Settlement struct {
	// ProfitLoss is nil when no prior trade price exists to measure against.
	ProfitLoss       *decimal.Decimal
	CumulativeProfit decimal.Decimal
	TotalTrades      int64
	WinningTrades    int64
	LosingTrades     int64
}

// Settle computes realized P&L for a trade and updates state counters in
// place. P&L is always expressed in quote-asset terms:
//
//	SELL_BASE: (realizedPrice - lastTradePrice) * baseMoved
//	BUY_BASE:  (lastTradePrice - realizedPrice) * baseMoved
//
// The sign reversal reflects that buying base cheaper than the last trade
// price is the profitable outcome for that direction. Every executed trade
// counts toward TotalTrades, including the first trade (nil P&L) and
// zero-delta trades (neither win nor loss), so
// WinningTrades + LosingTrades <= TotalTrades always holds.
func (a *Accountant) Settle(state *entity.TradingState, action entity.Action, realizedPrice, baseMoved decimal.Decimal) Settlement {
	state.TotalTrades++

	if state.LastTradePrice == nil {
		return a.snapshot(state, nil)
	}

	var pnl decimal.Decimal
	switch action {
	case entity.ActionSellBase:
		pnl = realizedPrice.Sub(*state.LastTradePrice).Mul(baseMoved)
	case entity.ActionBuyBase:
		pnl = state.LastTradePrice.Sub(realizedPrice).Mul(baseMoved)
	}

	state.CumulativeProfit = state.CumulativeProfit.Add(pnl)
	switch {
	case pnl.IsPositive():
		state.WinningTrades++
	case pnl.IsNegative():
		state.LosingTrades++
	}

	return a.snapshot(state, &pnl)
}

func (a *Accountant) snapshot(state *entity.TradingState, pnl *decimal.Decimal) Settlement {
	return Settlement{
		ProfitLoss:       pnl,
		CumulativeProfit: state.CumulativeProfit,
		TotalTrades:      state.TotalTrades,
		WinningTrades:    state.WinningTrades,
		LosingTrades:     state.LosingTrades,
	}
}

// Record materializes a settlement into the persisted profit record.
func (a *Accountant) Record(s Settlement, tradeID string, initialCapital decimal.Decimal, now time.Time) *entity.ProfitRecord {
	pnl := decimal.Zero
	if s.ProfitLoss != nil {
		pnl = *s.ProfitLoss
	}

	roi := decimal.Zero
	if initialCapital.IsPositive() {
		roi = s.CumulativeProfit.Div(initialCapital).Mul(hundred)
	}

	return &entity.ProfitRecord{
		ID:               uuid.New().String(),
		Timestamp:        now,
		TradeID:          tradeID,
		ProfitLoss:       pnl,
		CumulativeProfit: s.CumulativeProfit,
		ROIPercent:       roi,
		TotalTrades:      s.TotalTrades,
		WinningTrades:    s.WinningTrades,
		LosingTrades:     s.LosingTrades,
	}
}
