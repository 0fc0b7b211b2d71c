// Package observability exposes the engine's Prometheus metrics.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Cycle outcome labels.
const (
	OutcomeTraded = "traded"
	OutcomeNoOp   = "no_op"
	OutcomeError  = "error"
	OutcomeBusy   = "busy"
)

// Metrics is the engine's metric set.
type Metrics struct {
	registry *prometheus.Registry

	CyclesTotal       *prometheus.CounterVec
	TradesTotal       prometheus.Counter
	SwapFailuresTotal *prometheus.CounterVec
	CumulativeProfit  prometheus.Gauge
	LastPrice         prometheus.Gauge
	CycleDuration     prometheus.Histogram
}

// NewMetrics registers the metric set on a fresh registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		CyclesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "soltrader_cycles_total",
			Help: "Decision cycles by outcome.",
		}, []string{"outcome"}),
		TradesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "soltrader_trades_executed_total",
			Help: "Swaps executed and confirmed on-chain.",
		}),
		SwapFailuresTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "soltrader_swap_failures_total",
			Help: "Swap pipeline failures by stage.",
		}, []string{"stage"}),
		CumulativeProfit: factory.NewGauge(prometheus.GaugeOpts{
			Name: "soltrader_cumulative_profit_quote",
			Help: "Cumulative realized profit in quote-asset terms.",
		}),
		LastPrice: factory.NewGauge(prometheus.GaugeOpts{
			Name: "soltrader_last_price_quote_per_base",
			Help: "Most recently sampled base price in quote units.",
		}),
		CycleDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "soltrader_cycle_duration_seconds",
			Help:    "Wall time of one decision cycle.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
	}
}

// Handler serves the /metrics endpoint for this metric set.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
