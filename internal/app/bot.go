// Package app wires the trading components into the decision cycle and owns
// the engine's single piece of mutable state.
package app

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/kazusol/soltrader/internal/entity"
	"github.com/kazusol/soltrader/internal/observability"
	"github.com/kazusol/soltrader/internal/services/detector"
	"github.com/kazusol/soltrader/internal/services/profit"
	"github.com/kazusol/soltrader/internal/services/reconciler"
	"github.com/kazusol/soltrader/internal/services/swapper"
	"github.com/kazusol/soltrader/internal/services/trend"
)

const trendWindow = 7 * 24 * time.Hour

// PriceSampler produces one price sample per cycle.
type PriceSampler interface {
	Sample(ctx context.Context, pair entity.Pair) (*entity.PriceSample, error)
}

// SwapExecutor runs the swap pipeline to confirmation.
type SwapExecutor interface {
	Execute(ctx context.Context, pair entity.Pair, action entity.Action, spendAmount decimal.Decimal) (*swapper.Result, error)
}

// BalanceReader snapshots the wallet's balances.
type BalanceReader interface {
	Snapshot(ctx context.Context, wallet string, pair entity.Pair) (*reconciler.BalanceSnapshot, error)
}

// StateLoader rebuilds the trading state at startup.
type StateLoader interface {
	Rehydrate(ctx context.Context) *entity.TradingState
}

// TradeStore persists executed trades.
type TradeStore interface {
	Save(ctx context.Context, rec *entity.TradeRecord) error
	Prune(ctx context.Context, cutoff time.Time) (int, error)
}

// ProfitStore persists per-trade profit records.
type ProfitStore interface {
	Save(ctx context.Context, rec *entity.ProfitRecord) error
	Prune(ctx context.Context, cutoff time.Time) (int, error)
}

// PriceStore persists price samples and serves the history window.
type PriceStore interface {
	Save(ctx context.Context, sample *entity.PriceSample) error
	Window(ctx context.Context, cutoff time.Time) ([]entity.PriceSample, error)
	Prune(ctx context.Context, cutoff time.Time) (int, error)
}

// Notifier receives plain-text cycle summaries. Delivery is best-effort.
type Notifier interface {
	Push(ctx context.Context, text string)
}

// Config is the engine's runtime configuration.
type Config struct {
	Pair           entity.Pair
	WalletPubkey   string
	Interval       time.Duration
	FeeBuffer      decimal.Decimal // held back when the spent asset pays network fees
	InitialCapital decimal.Decimal // ROI denominator, quote-asset terms
	Retention      time.Duration   // records older than this are pruned each cycle; zero disables
}

// Bot runs the decision-and-execution loop. Exactly one cycle owns the
// trading state at a time; a trigger arriving mid-cycle is rejected, never
// interleaved.
type Bot struct {
	cfg Config

	sampler  PriceSampler
	swaps    SwapExecutor
	balances BalanceReader
	loader   StateLoader
	trades   TradeStore
	profits  ProfitStore
	prices   PriceStore
	notify   Notifier

	analyzer   *trend.Analyzer
	policy     *detector.Detector
	accountant *profit.Accountant
	metrics    *observability.Metrics
	logger     *zap.Logger

	// state is published atomically: Run stores it once after rehydration,
	// and every reader loads it through the pointer so a trigger racing
	// startup sees either the rehydrated state or nil, never a torn write.
	state atomic.Pointer[entity.TradingState]
	busy  atomic.Bool
	now   func() time.Time
}

// New creates the bot. The trading state is rehydrated when Run starts.
func New(
	cfg Config,
	sampler PriceSampler,
	swaps SwapExecutor,
	balances BalanceReader,
	loader StateLoader,
	trades TradeStore,
	profits ProfitStore,
	prices PriceStore,
	notify Notifier,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *Bot {
	return &Bot{
		cfg:        cfg,
		sampler:    sampler,
		swaps:      swaps,
		balances:   balances,
		loader:     loader,
		trades:     trades,
		profits:    profits,
		prices:     prices,
		notify:     notify,
		analyzer:   trend.NewAnalyzer(),
		policy:     detector.New(),
		accountant: profit.NewAccountant(),
		metrics:    metrics,
		logger:     logger,
		now:        time.Now,
	}
}

// Run rehydrates the state and drives cycles on the configured interval until
// ctx ends. A daily price summary goes out at midnight UTC.
func (b *Bot) Run(ctx context.Context) error {
	b.state.Store(b.loader.Rehydrate(ctx))

	ticker := time.NewTicker(b.cfg.Interval)
	defer ticker.Stop()

	midnight := time.NewTimer(untilNextMidnightUTC(b.now()))
	defer midnight.Stop()

	b.logger.Info("trading engine started",
		zap.String("pair", b.cfg.Pair.String()),
		zap.Duration("interval", b.cfg.Interval))

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := b.TriggerCycle(ctx); err != nil && !errors.Is(err, entity.ErrCycleInProgress) {
				b.logger.Error("trading cycle failed", zap.Error(err))
			}
		case <-midnight.C:
			b.sendDailySummary(ctx)
			midnight.Reset(untilNextMidnightUTC(b.now()))
		}
	}
}

// Busy reports whether a decision cycle is currently in flight.
func (b *Bot) Busy() bool {
	return b.busy.Load()
}

// TriggerCycle runs one decision cycle. A second trigger while a cycle is in
// flight returns ErrCycleInProgress.
func (b *Bot) TriggerCycle(ctx context.Context) error {
	state := b.state.Load()
	if state == nil {
		return errors.New("trading state not rehydrated yet")
	}
	if !b.busy.CompareAndSwap(false, true) {
		b.metrics.CyclesTotal.WithLabelValues(observability.OutcomeBusy).Inc()
		return entity.ErrCycleInProgress
	}
	defer b.busy.Store(false)

	start := b.now()
	outcome, err := b.runCycle(ctx, state)
	b.metrics.CycleDuration.Observe(b.now().Sub(start).Seconds())
	b.metrics.CyclesTotal.WithLabelValues(outcome).Inc()

	if err != nil {
		b.notify.Push(ctx, fmt.Sprintf("⚠️ %s cycle failed: %v", b.cfg.Pair, err))
	}
	return err
}

func (b *Bot) runCycle(ctx context.Context, state *entity.TradingState) (string, error) {
	b.pruneHistory(ctx)

	sample, err := b.sampler.Sample(ctx, b.cfg.Pair)
	if err != nil {
		return observability.OutcomeError, errors.Wrap(err, "sample prices")
	}
	if err := entity.ValidatePrice(sample.BaseInQuote); err != nil {
		return observability.OutcomeError, errors.Wrapf(err, "%s price", b.cfg.Pair.Base.Symbol)
	}
	if err := entity.ValidatePrice(sample.QuoteInBase); err != nil {
		return observability.OutcomeError, errors.Wrapf(err, "%s price", b.cfg.Pair.Quote.Symbol)
	}

	b.metrics.LastPrice.Set(sample.BaseInQuote.InexactFloat64())

	// Persistence is best-effort: a write failure never aborts the cycle.
	if err := b.prices.Save(ctx, sample); err != nil {
		b.logger.Warn("failed to persist price sample", zap.Error(err))
	}

	b.logTrend(ctx, sample)

	// The policy and the last trade price both live in quote-per-base terms,
	// whichever side is held: a trade fires only on a rise of the base
	// asset's price above the last trade.
	if !b.policy.ShouldTrade(sample.BaseInQuote, state.LastTradePrice) {
		b.logger.Info("holding position",
			zap.String("position", string(state.Position)),
			zap.String("current_price", sample.BaseInQuote.String()),
			zap.String("last_trade_price", formatPrice(state.LastTradePrice)))
		return observability.OutcomeNoOp, nil
	}

	if err := b.executeTrade(ctx, state, sample); err != nil {
		return observability.OutcomeError, err
	}
	return observability.OutcomeTraded, nil
}

// pruneHistory ages persisted records out of the served history. Best-effort:
// a prune failure never blocks the cycle.
func (b *Bot) pruneHistory(ctx context.Context) {
	if b.cfg.Retention <= 0 {
		return
	}
	cutoff := b.now().UTC().Add(-b.cfg.Retention)

	if _, err := b.trades.Prune(ctx, cutoff); err != nil {
		b.logger.Warn("failed to prune trade history", zap.Error(err))
	}
	if _, err := b.profits.Prune(ctx, cutoff); err != nil {
		b.logger.Warn("failed to prune profit history", zap.Error(err))
	}
	if _, err := b.prices.Prune(ctx, cutoff); err != nil {
		b.logger.Warn("failed to prune price history", zap.Error(err))
	}
}

// logTrend computes the advisory trend context. Failure to compute it
// degrades to the threshold-only policy, never aborts the cycle.
func (b *Bot) logTrend(ctx context.Context, sample *entity.PriceSample) {
	history, err := b.prices.Window(ctx, b.now().Add(-trendWindow))
	if err != nil {
		b.logger.Warn("could not load price history for trend analysis", zap.Error(err))
		return
	}

	snap := b.analyzer.Analyze(history, sample.BaseInQuote, b.now())
	b.logger.Info("trend snapshot",
		zap.String("direction_1h", string(snap.Direction1h)),
		zap.String("direction_24h", string(snap.Direction24h)),
		zap.String("direction_7d", string(snap.Direction7d)),
		zap.String("volatility_1h", snap.Volatility1h.String()),
		zap.String("volatility_24h", snap.Volatility24h.String()))
}

func (b *Bot) executeTrade(ctx context.Context, state *entity.TradingState, sample *entity.PriceSample) error {
	action := entity.ActionSellBase
	if state.Position == entity.PositionQuote {
		action = entity.ActionBuyBase
	}

	before, err := b.balances.Snapshot(ctx, b.cfg.WalletPubkey, b.cfg.Pair)
	if err != nil {
		return errors.Wrap(err, "read balances before swap")
	}

	spend, err := b.spendableAmount(state.Position, before)
	if err != nil {
		return err
	}

	result, err := b.swaps.Execute(ctx, b.cfg.Pair, action, spend)
	if err != nil {
		var failure *swapper.Failure
		if errors.As(err, &failure) {
			b.metrics.SwapFailuresTotal.WithLabelValues(string(failure.Stage)).Inc()
		}
		return err
	}

	// The swap is confirmed and irreversible past this point; everything
	// below settles and records it rather than deciding anything.
	after, err := b.balances.Snapshot(ctx, b.cfg.WalletPubkey, b.cfg.Pair)
	if err != nil {
		b.logger.Error("balances unreadable after confirmed swap, recording trade without settlement",
			zap.String("signature", result.Signature), zap.Error(err))
		after = before
	}

	movement := reconciler.Measure(before, after, action)
	if movement.Anomaly != nil {
		b.logger.Warn("balance anomaly after swap",
			zap.String("signature", result.Signature),
			zap.String("detail", movement.Anomaly.Detail))
	}

	settlement := b.accountant.Settle(state, action, movement.RealizedPrice, movement.BaseMoved)

	positionAfter := state.Position.Opposite()
	// The reference for the next threshold comparison stays in quote-per-base
	// terms in both directions, the same unit the settlement arithmetic uses.
	priceAtTrade := sample.BaseInQuote

	rec := &entity.TradeRecord{
		ID:                 uuid.New().String(),
		Timestamp:          b.now().UTC(),
		PositionBefore:     state.Position,
		PositionAfter:      positionAfter,
		Action:             action,
		Signature:          result.Signature,
		BaseBalanceBefore:  before.Base,
		BaseBalanceAfter:   after.Base,
		QuoteBalanceBefore: before.Quote,
		QuoteBalanceAfter:  after.Quote,
		PriceAtTrade:       priceAtTrade,
		RealizedSlippage:   swapper.RealizedSlippage(result.QuotedPrice, movement.RealizedPrice),
		ProfitLoss:         settlement.ProfitLoss,
	}
	cumulative := settlement.CumulativeProfit
	rec.CumulativeProfitAfter = &cumulative

	state.Commit(positionAfter, priceAtTrade)

	if err := b.trades.Save(ctx, rec); err != nil {
		b.logger.Error("failed to persist trade record", zap.Error(err),
			zap.String("signature", result.Signature))
	}
	profitRec := b.accountant.Record(settlement, rec.ID, b.cfg.InitialCapital, b.now().UTC())
	if err := b.profits.Save(ctx, profitRec); err != nil {
		b.logger.Error("failed to persist profit record", zap.Error(err))
	}

	b.metrics.TradesTotal.Inc()
	b.metrics.CumulativeProfit.Set(settlement.CumulativeProfit.InexactFloat64())

	b.notify.Push(ctx, tradeSummary(b.cfg.Pair, rec, movement))

	b.logger.Info("trade executed",
		zap.String("action", string(action)),
		zap.String("signature", result.Signature),
		zap.String("realized_price", movement.RealizedPrice.String()),
		zap.String("profit_loss", formatPrice(settlement.ProfitLoss)),
		zap.String("cumulative_profit", settlement.CumulativeProfit.String()))
	return nil
}

// spendableAmount is the full held balance, minus the fee buffer when the
// held asset is the one paying network fees (the base/native asset).
func (b *Bot) spendableAmount(position entity.Position, snapshot *reconciler.BalanceSnapshot) (decimal.Decimal, error) {
	if position == entity.PositionBase {
		spend := snapshot.Base.Sub(b.cfg.FeeBuffer)
		if !spend.IsPositive() {
			return decimal.Decimal{}, errors.Errorf(
				"%s balance %s does not cover the %s fee buffer",
				b.cfg.Pair.Base.Symbol, snapshot.Base, b.cfg.FeeBuffer)
		}
		return spend, nil
	}
	if !snapshot.Quote.IsPositive() {
		return decimal.Decimal{}, errors.Errorf("no %s balance to trade", b.cfg.Pair.Quote.Symbol)
	}
	return snapshot.Quote, nil
}

func (b *Bot) sendDailySummary(ctx context.Context) {
	state := b.state.Load()
	if state == nil {
		return
	}

	window, err := b.prices.Window(ctx, b.now().Add(-24*time.Hour))
	if err != nil || len(window) == 0 {
		return
	}

	high, low := window[0].BaseInQuote, window[0].BaseInQuote
	for _, s := range window[1:] {
		if s.BaseInQuote.GreaterThan(high) {
			high = s.BaseInQuote
		}
		if s.BaseInQuote.LessThan(low) {
			low = s.BaseInQuote
		}
	}

	b.notify.Push(ctx, fmt.Sprintf("📊 %s daily summary\nhigh: %s\nlow: %s\ncumulative profit: %s %s",
		b.cfg.Pair, high, low, state.CumulativeProfit, b.cfg.Pair.Quote.Symbol))
}

func tradeSummary(pair entity.Pair, rec *entity.TradeRecord, movement reconciler.Movement) string {
	verb := "Sold"
	if rec.Action == entity.ActionBuyBase {
		verb = "Bought"
	}
	return fmt.Sprintf("✅ %s %s %s at %s %s\nspent: %s\nreceived: %s\nP&L: %s\ncumulative: %s %s\ntx: %s",
		verb, movement.BaseMoved, pair.Base.Symbol,
		movement.RealizedPrice, pair.Quote.Symbol,
		movement.SpentAmount, movement.ReceivedAmount,
		formatPrice(rec.ProfitLoss),
		formatPrice(rec.CumulativeProfitAfter), pair.Quote.Symbol,
		rec.Signature)
}

func formatPrice(p *decimal.Decimal) string {
	if p == nil {
		return "n/a"
	}
	return p.String()
}

func untilNextMidnightUTC(now time.Time) time.Duration {
	now = now.UTC()
	next := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).Add(24 * time.Hour)
	return next.Sub(now)
}
