// Package reconciler measures what a swap actually did to the wallet by
// snapshotting on-chain balances before and after and diffing them. Quoted
// amounts are never trusted for settlement.
package reconciler

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/kazusol/soltrader/internal/entity"
	"github.com/kazusol/soltrader/pkg/retrier"
)

// lamportsPerSol converts the native balance into UI units.
var lamportsPerSol = decimal.New(1, 9)

// ChainReader is the subset of the RPC client the reconciler needs.
type ChainReader interface {
	GetBalance(ctx context.Context, pubkey string) (uint64, error)
	GetTokenBalance(ctx context.Context, owner, mint string) (decimal.Decimal, error)
}

// BalanceSnapshot is both sides of the pair at one instant, UI amounts.
type BalanceSnapshot struct {
	Base  decimal.Decimal
	Quote decimal.Decimal
}

// Reader fetches balance snapshots with retries. Balance reads are
// idempotent, so blind retry is safe.
type Reader struct {
	chain   ChainReader
	retrier *retrier.Executor
	logger  *zap.Logger
}

// NewReader creates a balance reader over the given chain client.
func NewReader(chain ChainReader, r *retrier.Executor, logger *zap.Logger) *Reader {
	return &Reader{chain: chain, retrier: r, logger: logger}
}

// Snapshot reads both balances of the pair for the wallet: the native
// lamport balance for the base asset and the SPL token balance for the
// quote asset.
func (r *Reader) Snapshot(ctx context.Context, wallet string, pair entity.Pair) (*BalanceSnapshot, error) {
	base, err := retrier.DoWithData(r.retrier, ctx, "read "+pair.Base.Symbol+" balance",
		func(ctx context.Context) (decimal.Decimal, error) {
			lamports, err := r.chain.GetBalance(ctx, wallet)
			if err != nil {
				return decimal.Decimal{}, err
			}
			return decimal.NewFromUint64(lamports).Div(lamportsPerSol), nil
		})
	if err != nil {
		return nil, err
	}

	quote, err := retrier.DoWithData(r.retrier, ctx, "read "+pair.Quote.Symbol+" balance",
		func(ctx context.Context) (decimal.Decimal, error) {
			return r.chain.GetTokenBalance(ctx, wallet, pair.Quote.Mint)
		})
	if err != nil {
		return nil, err
	}

	r.logger.Debug("balance snapshot",
		zap.String("wallet", wallet),
		zap.String(pair.Base.Symbol, base.String()),
		zap.String(pair.Quote.Symbol, quote.String()))

	return &BalanceSnapshot{Base: base, Quote: quote}, nil
}

// Movement is what the swap actually moved, derived purely from two
// snapshots.
type Movement struct {
	SpentAmount    decimal.Decimal // held asset spent, UI units
	ReceivedAmount decimal.Decimal // other asset received, UI units
	BaseMoved      decimal.Decimal // base-asset quantity the swap moved
	RealizedPrice  decimal.Decimal // quote per base, zero when anomalous
	Anomaly        *entity.BalanceAnomalyError
}

// Measure diffs the snapshots for the given action. The realized price is
// always expressed as quote-per-base regardless of direction. A non-positive
// spent or received delta cannot yield a meaningful price; the swap already
// executed, so the movement degrades to a zero realized price and carries an
// anomaly instead of failing.
func Measure(before, after *BalanceSnapshot, action entity.Action) Movement {
	var m Movement

	switch action {
	case entity.ActionSellBase:
		m.SpentAmount = before.Base.Sub(after.Base)
		m.ReceivedAmount = after.Quote.Sub(before.Quote)
		m.BaseMoved = m.SpentAmount
	case entity.ActionBuyBase:
		m.SpentAmount = before.Quote.Sub(after.Quote)
		m.ReceivedAmount = after.Base.Sub(before.Base)
		m.BaseMoved = m.ReceivedAmount
	}

	if !m.SpentAmount.IsPositive() || !m.ReceivedAmount.IsPositive() {
		m.RealizedPrice = decimal.Zero
		m.Anomaly = &entity.BalanceAnomalyError{
			Detail: "spent " + m.SpentAmount.String() + ", received " + m.ReceivedAmount.String() +
				" for " + string(action),
		}
		return m
	}

	if action == entity.ActionSellBase {
		m.RealizedPrice = m.ReceivedAmount.Div(m.SpentAmount)
	} else {
		m.RealizedPrice = m.SpentAmount.Div(m.ReceivedAmount)
	}
	return m
}
