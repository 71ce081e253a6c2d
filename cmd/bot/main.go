// cmd/bot/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rovshanmuradov/coinbot/internal/api"
	"github.com/rovshanmuradov/coinbot/internal/blockchain/solbc"
	"github.com/rovshanmuradov/coinbot/internal/bot"
	"github.com/rovshanmuradov/coinbot/internal/config"
	"github.com/rovshanmuradov/coinbot/internal/dex/jupiter"
	"github.com/rovshanmuradov/coinbot/internal/events"
	"github.com/rovshanmuradov/coinbot/internal/feed/pumpfun"
	"github.com/rovshanmuradov/coinbot/internal/registry"
	"github.com/rovshanmuradov/coinbot/internal/relay/jito"
	"github.com/rovshanmuradov/coinbot/internal/storage/journal"
	"github.com/rovshanmuradov/coinbot/internal/telegram"
	"github.com/rovshanmuradov/coinbot/internal/utils/httpclient"
	"github.com/rovshanmuradov/coinbot/internal/utils/logger"
	"github.com/rovshanmuradov/coinbot/internal/utils/metrics"
	"github.com/rovshanmuradov/coinbot/internal/wallet"
)

const (
	shutdownTimeout = 30 * time.Second
	drainTimeout    = 10 * time.Second
	eventBuffer     = 512
)

func main() {
	configPath := flag.String("config", "", "optional config file (yaml/json/toml); env and .env always apply")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "coinbot: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logCfg := logger.DefaultConfig()
	logCfg.LogFile = cfg.LogFile
	logCfg.Development = cfg.DebugLogging
	appLogger, err := logger.New(logCfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = appLogger.Sync() }()
	log := appLogger.WithComponent("main")
	log.Info("Starting coinbot")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdown := bot.NewShutdownHandler(appLogger.Logger, shutdownTimeout)

	w, err := loadWallet(cfg)
	if err != nil {
		return err
	}
	readOnly := w == nil
	if readOnly {
		log.Warn("⚠️ No private key configured, running read-only: entries and exits are quoted but never sent")
	} else {
		log.Info("🔑 Wallet loaded", zap.String("address", w.String()))
	}

	collector := metrics.NewCollector()
	positions := registry.New()

	bus := events.NewBus(appLogger.Logger, eventBuffer)

	var trades *journal.Journal
	if cfg.JournalPath != "" {
		trades, err = journal.Open(ctx, cfg.JournalPath, appLogger.Logger)
		if err != nil {
			return fmt.Errorf("open trade journal: %w", err)
		}
		shutdown.Add("trade_journal", trades)
		shutdown.Add("trade_recorder", journal.NewRecorder(trades, bus, appLogger.Logger))
	}

	httpOpts := func(name string) httpclient.Options {
		return httpclient.Options{
			Name:       name,
			Timeout:    cfg.HTTPTimeout(),
			Retries:    cfg.HTTPRetries,
			RatePerSec: cfg.HTTPRatePerSec,
		}
	}
	relay := jito.NewClient(
		httpclient.New(httpOpts("jito"), collector, appLogger.Logger),
		cfg.JitoURL, jito.DefaultSettleDelay, appLogger.Logger)
	swapper := jupiter.NewClient(
		httpclient.New(httpOpts("jupiter"), collector, appLogger.Logger),
		jupiter.Config{QuoteURL: cfg.JupiterQuoteURL, SwapURL: cfg.JupiterSwapURL, PriorityFee: cfg.JitoTip},
		w, relay, appLogger.Logger)
	feed := pumpfun.NewFeed(
		httpclient.New(httpOpts("feed"), collector, appLogger.Logger),
		cfg.FeedURL, appLogger.Logger)

	deps := bot.Deps{
		DEX:      swapper,
		Feed:     feed,
		Registry: positions,
		Bus:      bus,
		Metrics:  collector,
	}
	if !readOnly {
		rpcClient := solbc.NewClient(cfg.RPCHTTPS, appLogger.Logger)
		shutdown.Add("solana_rpc", rpcClient)
		deps.Account = solbc.NewAccountInfo(rpcClient, &w.PublicKey)
	}

	engine := bot.NewEngine(bot.Options{
		Filter:        cfg.Filter(),
		Scanner:       cfg.Scanner(),
		Monitor:       cfg.Monitor(),
		EntryLamports: cfg.EntryLamports(),
		SlippagePct:   cfg.SlippagePct,
		ReadOnly:      readOnly,
	}, deps, appLogger.Logger)

	var tradeLog telegram.TradeLog
	if trades != nil {
		tradeLog = trades
	}

	g, gctx := errgroup.WithContext(ctx)

	if cfg.TelegramBotToken == "" {
		log.Warn("TELEGRAM_BOT_TOKEN not set, Telegram control disabled")
	} else {
		commands := telegram.NewCommands(ctx, engine, tradeLog, cfg.TelegramAllowedUser, appLogger.Logger)
		tg, err := telegram.NewBot(cfg.TelegramBotToken, commands, appLogger.Logger)
		if err != nil {
			log.Error("Telegram disabled", zap.Error(err))
		} else {
			if cfg.TelegramAllowedUser != 0 {
				shutdown.Add("notifier", telegram.NewNotifier(tg.API(), cfg.TelegramAllowedUser, bus, appLogger.Logger))
			}
			g.Go(func() error { return tg.Run(gctx) })
		}
	}

	// Closed in reverse: the engine stops publishing, the bus drains into the
	// still-subscribed notifier and recorder, then the journal closes.
	shutdown.Add("event_bus", bus)
	shutdown.AddFunc("engine", func() error {
		engine.Stop()
		drainCtx, drainCancel := context.WithTimeout(context.Background(), drainTimeout)
		defer drainCancel()
		if err := engine.Wait(drainCtx); err != nil {
			return fmt.Errorf("engine tasks still running: %w", err)
		}
		return nil
	})

	if cfg.AdminAddr != "" {
		if cfg.AdminToken == "" {
			log.Warn("ADMIN_TOKEN not set, admin API start/stop disabled")
		}
		admin := api.NewServer(ctx, cfg.AdminAddr, cfg.AdminToken, engine, tradeLog, appLogger.Logger)
		g.Go(func() error { return admin.ListenAndServe(gctx) })
	}

	if cfg.AutoStart {
		if err := engine.Start(ctx); err != nil {
			log.Error("Auto start failed", zap.Error(err))
		}
	}

	g.Go(func() error {
		if sig := bot.WaitForSignal(gctx); sig != "" {
			log.Info("Received shutdown signal", zap.String("signal", sig))
		}
		cancel()
		return nil
	})

	runErr := g.Wait()
	cancel()

	if err := shutdown.Shutdown(context.Background()); err != nil {
		log.Error("Shutdown finished with errors", zap.Error(err))
	}
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	log.Info("coinbot stopped")
	return nil
}

// loadWallet returns nil when no key source is configured.
func loadWallet(cfg *config.Config) (*wallet.Wallet, error) {
	switch {
	case cfg.PrivateKey != "":
		w, err := wallet.NewWallet(cfg.PrivateKey)
		if err != nil {
			return nil, fmt.Errorf("private_key: %w", err)
		}
		return w, nil
	case cfg.WalletFile != "":
		w, err := wallet.LoadWallet(cfg.WalletFile, cfg.WalletName)
		if err != nil {
			return nil, fmt.Errorf("wallet file: %w", err)
		}
		return w, nil
	default:
		return nil, nil
	}
}
