package entity

import "github.com/shopspring/decimal"

// TradingState is the single piece of mutable state in the engine. It is
// owned by exactly one decision cycle for the cycle's full duration and is
// mutated only after a committed trade.
//
// Invariant: WinningTrades + LosingTrades <= TotalTrades (a zero-delta trade
// counts toward the total but neither bucket).
type TradingState struct {
	Position         Position
	LastTradePrice   *decimal.Decimal // quote per base at the last executed trade
	CumulativeProfit decimal.Decimal  // quote-asset terms
	TotalTrades      int64
	WinningTrades    int64
	LosingTrades     int64
}

// NewTradingState returns the state used when no prior records exist:
// holding the quote asset with zero counters and no last trade price.
func NewTradingState() *TradingState {
	return &TradingState{
		Position:         PositionQuote,
		CumulativeProfit: decimal.Zero,
	}
}

// Commit flips the position and records the price at which the trade
// executed. It is the terminal step of a successful swap; nothing else may
// change Position.
func (s *TradingState) Commit(after Position, priceAtTrade decimal.Decimal) {
	s.Position = after
	p := priceAtTrade
	s.LastTradePrice = &p
}
