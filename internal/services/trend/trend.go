// Package trend derives advisory trend context from historical price samples.
// The analysis is pure: same history, reference price and clock in, same
// snapshot out. Gaps in history degrade individual fields, never the whole
// snapshot.
package trend

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/kazusol/soltrader/internal/entity"
)

const (
	horizon1h  = time.Hour
	horizon24h = 24 * time.Hour
	horizon7d  = 7 * 24 * time.Hour
)

// Analyzer computes trend snapshots over price history.
type Analyzer struct{}

// NewAnalyzer returns a trend analyzer.
func NewAnalyzer() *Analyzer {
	return &Analyzer{}
}

// Analyze builds a snapshot of the current price relative to 1h/24h/7d
// reference points plus windowed volatility. History may arrive in any order
// and may be empty; missing horizons leave their fields absent.
func (a *Analyzer) Analyze(history []entity.PriceSample, current decimal.Decimal, now time.Time) entity.TrendSnapshot {
	snapshot := entity.TrendSnapshot{Timestamp: now}

	snapshot.Price1hAgo = referencePrice(history, now, horizon1h)
	snapshot.Price24hAgo = referencePrice(history, now, horizon24h)
	snapshot.Price7dAgo = referencePrice(history, now, horizon7d)

	snapshot.Direction1h = direction(current, snapshot.Price1hAgo)
	snapshot.Direction24h = direction(current, snapshot.Price24hAgo)
	snapshot.Direction7d = direction(current, snapshot.Price7dAgo)

	snapshot.Volatility1h = windowVariance(history, now, horizon1h)
	snapshot.Volatility24h = windowVariance(history, now, horizon24h)

	return snapshot
}

// referencePrice picks the sample closest to (but at least) horizon old: the
// most recent sample with timestamp <= now - horizon.
func referencePrice(history []entity.PriceSample, now time.Time, horizon time.Duration) *decimal.Decimal {
	cutoff := now.Add(-horizon)

	var best *entity.PriceSample
	for i := range history {
		s := &history[i]
		if s.Timestamp.After(cutoff) {
			continue
		}
		if best == nil || s.Timestamp.After(best.Timestamp) {
			best = s
		}
	}
	if best == nil {
		return nil
	}
	p := best.BaseInQuote
	return &p
}

func direction(current decimal.Decimal, reference *decimal.Decimal) entity.Direction {
	if reference == nil {
		return ""
	}
	switch {
	case current.GreaterThan(*reference):
		return entity.DirectionUp
	case current.LessThan(*reference):
		return entity.DirectionDown
	default:
		return entity.DirectionStable
	}
}

// windowVariance is the population variance of sample prices inside the
// window (now-horizon, now]. Fewer than two samples yields zero.
func windowVariance(history []entity.PriceSample, now time.Time, horizon time.Duration) decimal.Decimal {
	cutoff := now.Add(-horizon)

	var prices []decimal.Decimal
	for i := range history {
		s := &history[i]
		if s.Timestamp.After(cutoff) && !s.Timestamp.After(now) {
			prices = append(prices, s.BaseInQuote)
		}
	}
	if len(prices) < 2 {
		return decimal.Zero
	}

	n := decimal.NewFromInt(int64(len(prices)))
	sum := decimal.Zero
	for _, p := range prices {
		sum = sum.Add(p)
	}
	mean := sum.Div(n)

	sumSq := decimal.Zero
	for _, p := range prices {
		d := p.Sub(mean)
		sumSq = sumSq.Add(d.Mul(d))
	}
	return sumSq.Div(n)
}
