// Package pricer turns aggregator quotes into decimal exchange rates.
package pricer

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/kazusol/soltrader/internal/clients/jupiter"
	"github.com/kazusol/soltrader/internal/entity"
	"github.com/kazusol/soltrader/pkg/retrier"
)

const priceSource = "Jupiter"

// QuoteProvider supplies quotes for exact notional amounts.
type QuoteProvider interface {
	GetQuote(ctx context.Context, inputMint, outputMint string, amount uint64, slippageBps int) (*jupiter.Quote, error)
}

// JupiterPricer computes prices from quote output/input ratios, adjusted for
// each asset's smallest-unit decimal scale. Quote fetches are read-only and
// idempotent, so they are blindly retried.
type JupiterPricer struct {
	quotes  QuoteProvider
	retrier *retrier.Executor
	logger  *zap.Logger
}

// NewJupiterPricer creates a pricer over the given quote provider.
func NewJupiterPricer(quotes QuoteProvider, r *retrier.Executor, logger *zap.Logger) *JupiterPricer {
	return &JupiterPricer{quotes: quotes, retrier: r, logger: logger}
}

// GetPrice returns how much of `to` one unit of `from` buys, derived from a
// quote for the given notional amount of `from` (UI units).
func (p *JupiterPricer) GetPrice(ctx context.Context, from, to entity.Asset, notional decimal.Decimal) (decimal.Decimal, error) {
	amountRaw := notional.Shift(from.Decimals).Truncate(0).BigInt().Uint64()
	if amountRaw == 0 {
		return decimal.Decimal{}, errors.New("notional amount rounds to zero smallest units")
	}

	quote, err := retrier.DoWithData(p.retrier, ctx, "fetch quote "+from.Symbol+"/"+to.Symbol,
		func(ctx context.Context) (*jupiter.Quote, error) {
			q, err := p.quotes.GetQuote(ctx, from.Mint, to.Mint, amountRaw, 0)
			if err != nil && !entity.IsRetryable(err) {
				return nil, retrier.Permanent(err)
			}
			return q, err
		})
	if err != nil {
		return decimal.Decimal{}, err
	}

	return PriceFromQuote(quote, from, to)
}

// PriceFromQuote converts a quote's output/input amount ratio into a price
// in `to` units per one `from` unit.
func PriceFromQuote(quote *jupiter.Quote, from, to entity.Asset) (decimal.Decimal, error) {
	in, err := decimal.NewFromString(quote.InAmount)
	if err != nil {
		return decimal.Decimal{}, &entity.QuoteMalformedError{Reason: "unparseable input amount " + quote.InAmount}
	}
	if in.LessThanOrEqual(decimal.Zero) {
		return decimal.Decimal{}, &entity.QuoteMalformedError{Reason: "non-positive input amount " + quote.InAmount}
	}
	out, err := decimal.NewFromString(quote.OutAmount)
	if err != nil {
		return decimal.Decimal{}, &entity.QuoteMalformedError{Reason: "unparseable output amount " + quote.OutAmount}
	}

	// (out / 10^toDecimals) / (in / 10^fromDecimals)
	return out.Shift(-to.Decimals).Div(in.Shift(-from.Decimals)), nil
}

// Sample observes the exchange rate in both directions for one unit of each
// asset, producing the cycle's immutable price sample.
func (p *JupiterPricer) Sample(ctx context.Context, pair entity.Pair) (*entity.PriceSample, error) {
	one := decimal.NewFromInt(1)

	baseInQuote, err := p.GetPrice(ctx, pair.Base, pair.Quote, one)
	if err != nil {
		return nil, errors.Wrapf(err, "price %s in %s", pair.Base.Symbol, pair.Quote.Symbol)
	}
	quoteInBase, err := p.GetPrice(ctx, pair.Quote, pair.Base, one)
	if err != nil {
		return nil, errors.Wrapf(err, "price %s in %s", pair.Quote.Symbol, pair.Base.Symbol)
	}

	p.logger.Info("current prices",
		zap.String("pair", pair.String()),
		zap.String("base_in_quote", baseInQuote.String()),
		zap.String("quote_in_base", quoteInBase.String()))

	return &entity.PriceSample{
		ID:          uuid.New().String(),
		Timestamp:   time.Now().UTC(),
		BaseInQuote: baseInQuote,
		QuoteInBase: quoteInBase,
		Source:      priceSource,
	}, nil
}
