// internal/bot/entry.go
package bot

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/coinbot/internal/dex"
	"github.com/rovshanmuradov/coinbot/internal/domain"
	"github.com/rovshanmuradov/coinbot/internal/events"
	"github.com/rovshanmuradov/coinbot/internal/monitor"
	"github.com/rovshanmuradov/coinbot/internal/sniping"
)

// admission returns the scanner handler for r: filter, buy, spawn a monitor.
// Every failure abandons the opportunity.
func (e *Engine) admission(r *run) sniping.Handler {
	return func(ctx context.Context, opp domain.Opportunity) {
		logger := e.logger.With(zap.String("mint", opp.Mint), zap.String("name", opp.DisplayName()))

		if reason := e.opts.Filter.Reject(opp); reason != "" {
			e.metrics.Rejected(reason)
			logger.Debug("Opportunity rejected", zap.String("reason", reason))
			return
		}
		e.metrics.Admitted()

		if !r.Active() {
			return
		}
		if e.registry.Has(opp.Mint) {
			logger.Debug("Position already open")
			return
		}

		logger.Info("🎯 Elite launch detected, buying",
			zap.Duration("age", opp.Age),
			zap.Float64("liquidity_usd", opp.LiquidityUSD),
			zap.Int("holders", opp.Holders),
			zap.Float64("pump_5m_pct", opp.PriceChange5mPct),
			zap.Float64("entry_sol", float64(e.opts.EntryLamports)/domain.LamportsPerSOL))

		pos, ok := e.enter(ctx, opp, logger)
		if !ok {
			return
		}

		m := monitor.NewPositionMonitor(e.opts.Monitor, pos, e.dex, e.registry, e.bus, e.metrics, e.logger)
		e.goTask(func() { m.Run(ctx, r) })
	}
}

// enter buys EntryLamports worth of opp and returns the resulting position.
func (e *Engine) enter(ctx context.Context, opp domain.Opportunity, logger *zap.Logger) (domain.Position, bool) {
	quote, err := e.dex.GetQuote(ctx, domain.SOLMint, opp.Mint, e.opts.EntryLamports, e.opts.SlippagePct)
	if err == nil {
		err = quote.Validate()
	}
	if err != nil {
		e.metrics.Entry(false)
		logger.Info("Entry quote failed, skipping", zap.Error(err))
		return domain.Position{}, false
	}

	receipt, err := e.dex.ExecuteSwap(ctx, quote)
	if err != nil {
		e.metrics.Entry(false)
		if errors.Is(err, dex.ErrReadOnly) {
			logger.Debug("Read-only mode, entry skipped")
		} else {
			logger.Warn("Entry swap failed, skipping", zap.Error(err))
		}
		return domain.Position{}, false
	}
	if receipt == nil || receipt.OutAmount == 0 {
		e.metrics.Entry(false)
		logger.Warn("Entry swap returned no units, skipping")
		return domain.Position{}, false
	}
	e.metrics.Entry(true)

	pos := domain.NewPosition(opp.Mint, receipt.InAmount, receipt.OutAmount, time.Now())
	logger.Info("✅ Entry executed",
		zap.Uint64("cost_lamports", receipt.InAmount),
		zap.Uint64("units", receipt.OutAmount),
		zap.Float64("entry_price", pos.EntryPrice),
		zap.String("signature", receipt.Signature))

	if e.bus != nil {
		err := e.bus.Publish(events.NewEntryExecuted(events.EntryExecutedEvent{
			Mint:         opp.Mint,
			Name:         opp.DisplayName(),
			CostLamports: receipt.InAmount,
			Units:        receipt.OutAmount,
			EntryPrice:   pos.EntryPrice,
			Signature:    receipt.Signature,
		}))
		if err != nil {
			logger.Debug("Event not published", zap.Error(err))
		}
	}
	return pos, true
}
