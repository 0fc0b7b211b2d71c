package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Direction classifies price movement over a horizon.
type Direction string

const (
	DirectionUp     Direction = "UP"
	DirectionDown   Direction = "DOWN"
	DirectionStable Direction = "STABLE"
)

// TrendSnapshot is derived, read-only trend data recomputed every cycle from
// historical samples. Advisory input to the decision policy, never persisted.
// A nil price pointer or empty direction means no sample old enough existed
// for that horizon.
type TrendSnapshot struct {
	Timestamp time.Time

	Price1hAgo  *decimal.Decimal
	Price24hAgo *decimal.Decimal
	Price7dAgo  *decimal.Decimal

	Direction1h  Direction
	Direction24h Direction
	Direction7d  Direction

	// Population variance of sampled prices within the window; zero when
	// fewer than two samples exist. Variance is used directly as the
	// dispersion proxy, not its square root.
	Volatility1h  decimal.Decimal
	Volatility24h decimal.Decimal
}
