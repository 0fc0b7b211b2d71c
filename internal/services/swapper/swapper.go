// Package swapper executes one swap as a linear pipeline: quote, build, sign,
// submit, confirm. Every failure reports the stage it died in; an executed
// swap is never silently lost between stages.
package swapper

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/kazusol/soltrader/internal/clients/jupiter"
	"github.com/kazusol/soltrader/internal/clients/solana"
	"github.com/kazusol/soltrader/internal/entity"
	"github.com/kazusol/soltrader/internal/services/pricer"
	"github.com/kazusol/soltrader/internal/soltx"
	"github.com/kazusol/soltrader/pkg/retrier"
)

// Stage identifies where in the pipeline a swap failed.
type Stage string

const (
	StageQuoting    Stage = "quoting"
	StageBuilding   Stage = "building"
	StageSigning    Stage = "signing"
	StageSubmitting Stage = "submitting"
	StageConfirming Stage = "confirming"
)

// defaultConfirmTimeout bounds the confirmation poll. A blockhash is valid
// for roughly a minute; a transaction not confirmed well past that window has
// been dropped and will never land, so waiting longer only wedges the caller.
const defaultConfirmTimeout = 90 * time.Second

// Failure is a swap pipeline failure tagged with its stage.
type Failure struct {
	Stage Stage
	Err   error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("swap failed while %s: %v", f.Stage, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// Provider builds quotes and unsigned swap transactions.
type Provider interface {
	GetQuote(ctx context.Context, inputMint, outputMint string, amount uint64, slippageBps int) (*jupiter.Quote, error)
	BuildSwapTransaction(ctx context.Context, userPublicKey string, quote *jupiter.Quote) (*jupiter.SwapTransaction, error)
}

// Chain submits and confirms transactions.
type Chain interface {
	GetLatestBlockhash(ctx context.Context) (*solana.Blockhash, error)
	SendTransaction(ctx context.Context, signedTxBase64, knownSignature string) (string, error)
	ConfirmTransaction(ctx context.Context, signature string) error
}

// Signer holds the trading keypair.
type Signer interface {
	PublicKey() string
	SignTransaction(tx *soltx.Transaction) error
}

// Result is a confirmed swap.
type Result struct {
	Signature string
	// QuotedPrice is the quote-per-base price implied by the quote's
	// amounts, used later to measure realized slippage.
	QuotedPrice decimal.Decimal
}

// Executor drives the swap pipeline. Pre-submission stages use the standard
// retry budget; submission gets its own, longer budget since resubmitting
// identical signed bytes is idempotent.
type Executor struct {
	provider       Provider
	chain          Chain
	signer         Signer
	retrier        *retrier.Executor
	submitRetrier  *retrier.Executor
	slippageBps    int
	confirmTimeout time.Duration
	logger         *zap.Logger
}

// New creates a swap executor.
func New(provider Provider, chain Chain, signer Signer, r, submitRetrier *retrier.Executor, slippageBps int, logger *zap.Logger) *Executor {
	return &Executor{
		provider:       provider,
		chain:          chain,
		signer:         signer,
		retrier:        r,
		submitRetrier:  submitRetrier,
		slippageBps:    slippageBps,
		confirmTimeout: defaultConfirmTimeout,
		logger:         logger,
	}
}

// Execute swaps spendAmount (UI units of the held asset) in the direction of
// action and blocks until the chain confirms the transaction.
func (e *Executor) Execute(ctx context.Context, pair entity.Pair, action entity.Action, spendAmount decimal.Decimal) (*Result, error) {
	from, to := legs(pair, action)

	quote, err := e.fetchQuote(ctx, from, to, spendAmount)
	if err != nil {
		return nil, &Failure{Stage: StageQuoting, Err: err}
	}

	quotedPrice, err := quotedPriceQuotePerBase(quote, pair, action)
	if err != nil {
		return nil, &Failure{Stage: StageQuoting, Err: err}
	}

	swap, err := e.buildTransaction(ctx, quote)
	if err != nil {
		return nil, &Failure{Stage: StageBuilding, Err: err}
	}

	tx, err := e.prepareAndSign(ctx, swap.SwapTransaction)
	if err != nil {
		return nil, &Failure{Stage: StageSigning, Err: err}
	}

	signature, err := e.submit(ctx, tx)
	if err != nil {
		return nil, &Failure{Stage: StageSubmitting, Err: err}
	}

	// Confirmation gets its own deadline: a dropped transaction never
	// confirms, and an unbounded poll here would hold the cycle forever.
	confirmCtx, cancel := context.WithTimeout(ctx, e.confirmTimeout)
	defer cancel()
	if err := e.chain.ConfirmTransaction(confirmCtx, signature); err != nil {
		return nil, &Failure{Stage: StageConfirming, Err: err}
	}

	e.logger.Info("swap confirmed",
		zap.String("action", string(action)),
		zap.String("signature", signature),
		zap.String("quoted_price", quotedPrice.String()))

	return &Result{Signature: signature, QuotedPrice: quotedPrice}, nil
}

// legs resolves the spend and receive assets for the action.
func legs(pair entity.Pair, action entity.Action) (from, to entity.Asset) {
	if action == entity.ActionSellBase {
		return pair.Base, pair.Quote
	}
	return pair.Quote, pair.Base
}

func (e *Executor) fetchQuote(ctx context.Context, from, to entity.Asset, spendAmount decimal.Decimal) (*jupiter.Quote, error) {
	amountRaw := spendAmount.Shift(from.Decimals).Truncate(0).BigInt().Uint64()
	if amountRaw == 0 {
		return nil, errors.Errorf("spend amount %s %s rounds to zero smallest units", spendAmount, from.Symbol)
	}

	return retrier.DoWithData(e.retrier, ctx, "fetch swap quote",
		func(ctx context.Context) (*jupiter.Quote, error) {
			q, err := e.provider.GetQuote(ctx, from.Mint, to.Mint, amountRaw, e.slippageBps)
			if err != nil && !entity.IsRetryable(err) {
				return nil, retrier.Permanent(err)
			}
			return q, err
		})
}

func (e *Executor) buildTransaction(ctx context.Context, quote *jupiter.Quote) (*jupiter.SwapTransaction, error) {
	return retrier.DoWithData(e.retrier, ctx, "build swap transaction",
		func(ctx context.Context) (*jupiter.SwapTransaction, error) {
			swap, err := e.provider.BuildSwapTransaction(ctx, e.signer.PublicKey(), quote)
			if err != nil && !entity.IsRetryable(err) {
				return nil, retrier.Permanent(err)
			}
			return swap, err
		})
}

// prepareAndSign decodes the provider-built transaction, downgrades it to the
// legacy format when possible, stamps a fresh blockhash, and signs.
func (e *Executor) prepareAndSign(ctx context.Context, txBase64 string) (*soltx.Transaction, error) {
	raw, err := base64.StdEncoding.DecodeString(txBase64)
	if err != nil {
		return nil, errors.Wrap(err, "decode transaction payload")
	}

	tx, err := soltx.Parse(raw)
	if err != nil {
		return nil, err
	}

	if err := tx.DowngradeToLegacy(); err != nil {
		return nil, err
	}

	blockhash, err := retrier.DoWithData(e.retrier, ctx, "fetch blockhash",
		func(ctx context.Context) (*solana.Blockhash, error) {
			return e.chain.GetLatestBlockhash(ctx)
		})
	if err != nil {
		return nil, err
	}

	if err := tx.SetRecentBlockhash(blockhash.Blockhash); err != nil {
		return nil, err
	}

	if err := e.signer.SignTransaction(tx); err != nil {
		return nil, err
	}
	return tx, nil
}

// submit sends the signed bytes under the long submission budget. The bytes
// never change between attempts, so a duplicate landing on-chain resolves to
// the transaction's own signature rather than a double execution.
func (e *Executor) submit(ctx context.Context, tx *soltx.Transaction) (string, error) {
	signed := base64.StdEncoding.EncodeToString(tx.Serialize())
	knownSignature := tx.Signature()

	return retrier.DoWithData(e.submitRetrier, ctx, "submit transaction",
		func(ctx context.Context) (string, error) {
			return e.chain.SendTransaction(ctx, signed, knownSignature)
		})
}

// quotedPriceQuotePerBase normalizes the quote's implied price to
// quote-per-base regardless of swap direction.
func quotedPriceQuotePerBase(quote *jupiter.Quote, pair entity.Pair, action entity.Action) (decimal.Decimal, error) {
	from, to := legs(pair, action)
	price, err := pricer.PriceFromQuote(quote, from, to)
	if err != nil {
		return decimal.Decimal{}, err
	}
	if action == entity.ActionBuyBase {
		if price.IsZero() {
			return decimal.Decimal{}, &entity.QuoteMalformedError{Reason: "zero output amount"}
		}
		price = decimal.NewFromInt(1).Div(price)
	}
	return price, nil
}

// RealizedSlippage is the percentage deviation of the realized price from
// the quoted price, negative when the fill was worse than quoted for a sell.
// Nil when the quoted price is zero.
func RealizedSlippage(quoted, realized decimal.Decimal) *decimal.Decimal {
	if quoted.IsZero() {
		return nil
	}
	s := realized.Sub(quoted).Div(quoted).Mul(decimal.NewFromInt(100))
	return &s
}
