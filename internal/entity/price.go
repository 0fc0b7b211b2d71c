package entity

import (
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// maxReasonablePrice guards against obviously corrupt quotes.
var maxReasonablePrice = decimal.NewFromInt(1_000_000)

// PriceSample is one observation of the exchange rate in both directions.
// Immutable once produced; one instance is generated per decision cycle
// regardless of whether a trade fires.
type PriceSample struct {
	ID          string          `json:"id"`
	Timestamp   time.Time       `json:"timestamp"`
	BaseInQuote decimal.Decimal `json:"base_in_quote"` // 1 base in quote units
	QuoteInBase decimal.Decimal `json:"quote_in_base"` // 1 quote in base units
	Source      string          `json:"source"`
}

// ValidatePrice rejects non-positive prices and prices above the sanity
// ceiling before they reach the decision policy or storage.
func ValidatePrice(price decimal.Decimal) error {
	if price.LessThanOrEqual(decimal.Zero) {
		return errors.New("invalid price: must be greater than zero")
	}
	if price.GreaterThan(maxReasonablePrice) {
		return errors.New("invalid price: exceeds maximum allowed value")
	}
	return nil
}
