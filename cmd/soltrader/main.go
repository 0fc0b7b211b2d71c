// Command soltrader runs the SOL/USDC momentum trading engine: a periodic
// decision cycle over Jupiter quotes and Solana swaps, plus an HTTP control
// plane for health, manual triggering and analytics.
//
// Usage:
//
//	soltrader --config config.yaml
//	soltrader (uses environment variables, .env honored)
package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kazusol/soltrader/config"
	"github.com/kazusol/soltrader/internal/app"
	"github.com/kazusol/soltrader/internal/clients/jupiter"
	"github.com/kazusol/soltrader/internal/clients/solana"
	"github.com/kazusol/soltrader/internal/notifier"
	"github.com/kazusol/soltrader/internal/observability"
	"github.com/kazusol/soltrader/internal/services/pricer"
	"github.com/kazusol/soltrader/internal/services/reconciler"
	"github.com/kazusol/soltrader/internal/services/rehydrate"
	"github.com/kazusol/soltrader/internal/services/swapper"
	"github.com/kazusol/soltrader/internal/storage/prices"
	"github.com/kazusol/soltrader/internal/storage/profits"
	"github.com/kazusol/soltrader/internal/storage/trades"
	"github.com/kazusol/soltrader/internal/wallet"
	"github.com/kazusol/soltrader/internal/web"
	"github.com/kazusol/soltrader/pkg/retrier"
)

func main() {
	cfg, err := config.Get()
	if err != nil {
		log.Fatal(err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("engine stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	w, err := wallet.New(cfg.WalletPrivateKey)
	if err != nil {
		return err
	}
	logger.Info("wallet loaded", zap.String("pubkey", w.PublicKey()))

	tradeStore, err := trades.NewWALStore(cfg.WalDir + "/trades")
	if err != nil {
		return err
	}
	defer tradeStore.Close()

	profitStore, err := profits.NewWALStore(cfg.WalDir + "/profits")
	if err != nil {
		return err
	}
	defer profitStore.Close()

	priceStore, err := prices.NewWALStore(cfg.WalDir + "/prices")
	if err != nil {
		return err
	}
	defer priceStore.Close()

	jup := jupiter.New(cfg.JupiterURL)
	chain := solana.New(cfg.RPCURL)

	standardRetrier := retrier.New(retrier.WithLogger(logger))
	// Submission gets more attempts and a per-attempt cap so a hung node
	// does not stall the cycle past the blockhash validity window.
	submitRetrier := retrier.New(
		retrier.WithMaxAttempts(5),
		retrier.WithPerAttemptTimeout(45*time.Second),
		retrier.WithLogger(logger),
	)

	metrics := observability.NewMetrics()

	var notify app.Notifier = noopNotifier{}
	if cfg.NotificationsEnabled() {
		notify = notifier.New(cfg.LineChannelToken, cfg.LineUserID, logger)
	} else {
		logger.Info("LINE credentials absent, notifications disabled")
	}

	bot := app.New(
		app.Config{
			Pair:           cfg.Pair,
			WalletPubkey:   w.PublicKey(),
			Interval:       cfg.TradeInterval,
			FeeBuffer:      cfg.FeeBuffer,
			InitialCapital: cfg.InitialCapital,
			Retention:      cfg.Retention(),
		},
		pricer.NewJupiterPricer(jup, standardRetrier, logger),
		swapper.New(jup, chain, w, standardRetrier, submitRetrier, cfg.SlippageBps, logger),
		reconciler.NewReader(chain, standardRetrier, logger),
		rehydrate.New(tradeStore, profitStore, logger),
		tradeStore,
		profitStore,
		priceStore,
		notify,
		metrics,
		logger,
	)

	server := web.New(bot, profitStore, priceStore, tradeStore, metrics.Handler(), logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return bot.Run(ctx)
	})
	g.Go(func() error {
		return server.Run(ctx, cfg.HTTPAddr)
	})

	return g.Wait()
}

type noopNotifier struct{}

func (noopNotifier) Push(context.Context, string) {}
