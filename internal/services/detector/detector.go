// Package detector holds the trade decision policy: a pure threshold rule
// over the base asset's price and the price at the last executed trade.
package detector

import (
	"github.com/shopspring/decimal"
)

// momentumThreshold is the minimum relative move that triggers a trade:
// current >= last * 1.01 (a 1% rise in the base asset's price).
var momentumThreshold = decimal.RequireFromString("1.01")

// Detector decides whether the observed momentum justifies a swap.
type Detector struct{}

// New returns a momentum detector.
func New() *Detector {
	return &Detector{}
}

// ShouldTrade applies the momentum rule. Both prices are quote-per-base: a
// >=1% rise of the base asset above the last trade price fires regardless of
// which side is held — holding base, the rise is realized into quote; holding
// quote, the rise is bought into. No last trade price (first run) means no
// reference, so no trade.
func (d *Detector) ShouldTrade(current decimal.Decimal, lastTradePrice *decimal.Decimal) bool {
	if lastTradePrice == nil {
		return false
	}
	return current.GreaterThanOrEqual(lastTradePrice.Mul(momentumThreshold))
}
