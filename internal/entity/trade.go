package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Action is the direction of an executed swap, expressed against the base asset.
type Action string

const (
	ActionBuyBase  Action = "BUY_BASE"
	ActionSellBase Action = "SELL_BASE"
)

// TradeRecord is created exactly once per executed swap, immutable
// thereafter, and handed to the persistence layer. Balance fields are UI
// amounts (not smallest units).
type TradeRecord struct {
	ID                    string           `json:"id"`
	Timestamp             time.Time        `json:"timestamp"`
	PositionBefore        Position         `json:"position_before"`
	PositionAfter         Position         `json:"position_after"`
	Action                Action           `json:"action"`
	Signature             string           `json:"signature"`
	BaseBalanceBefore     decimal.Decimal  `json:"base_balance_before"`
	BaseBalanceAfter      decimal.Decimal  `json:"base_balance_after"`
	QuoteBalanceBefore    decimal.Decimal  `json:"quote_balance_before"`
	QuoteBalanceAfter     decimal.Decimal  `json:"quote_balance_after"`
	PriceAtTrade          decimal.Decimal  `json:"price_at_trade"`
	RealizedSlippage      *decimal.Decimal `json:"realized_slippage,omitempty"`
	ProfitLoss            *decimal.Decimal `json:"profit_loss,omitempty"`
	CumulativeProfitAfter *decimal.Decimal `json:"cumulative_profit_after,omitempty"`
}

// ProfitRecord is the running performance snapshot persisted alongside a
// settled trade.
type ProfitRecord struct {
	ID               string          `json:"id"`
	Timestamp        time.Time       `json:"timestamp"`
	TradeID          string          `json:"trade_id"`
	ProfitLoss       decimal.Decimal `json:"profit_loss"`
	CumulativeProfit decimal.Decimal `json:"cumulative_profit"`
	ROIPercent       decimal.Decimal `json:"roi_percent"`
	TotalTrades      int64           `json:"total_trades"`
	WinningTrades    int64           `json:"winning_trades"`
	LosingTrades     int64           `json:"losing_trades"`
}
