// internal/monitor/monitor.go
package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/coinbot/internal/dex"
	"github.com/rovshanmuradov/coinbot/internal/domain"
	"github.com/rovshanmuradov/coinbot/internal/events"
	"github.com/rovshanmuradov/coinbot/internal/utils/metrics"
)

const (
	DefaultProbeInterval = 4 * time.Second
	DefaultRetryInterval = 3 * time.Second
)

// Run is the engine run a monitor belongs to. Active turns false and Done is
// closed when the engine is stopped.
type Run interface {
	Active() bool
	Done() <-chan struct{}
}

// Store is the part of the position registry a monitor writes to.
type Store interface {
	Upsert(pos domain.Position)
	Update(mint string, fn func(*domain.Position)) bool
	Remove(mint string) bool
}

// Publisher receives trade events.
type Publisher interface {
	Publish(event events.Event) error
}

// Config contains the exit policy and timing for one monitor.
type Config struct {
	ProbeRatio    float64
	SlippagePct   float64
	ProbeInterval time.Duration
	RetryInterval time.Duration
	Ladder        Ladder
	Stops         Stops
	// RetryFailedExits keeps SoldPercent unchanged after a failed sale so the
	// decision fires again. By default a fired decision always advances it.
	RetryFailedExits bool
}

func (c Config) withDefaults() Config {
	if c.ProbeInterval <= 0 {
		c.ProbeInterval = DefaultProbeInterval
	}
	if c.RetryInterval <= 0 {
		c.RetryInterval = DefaultRetryInterval
	}
	if c.Ladder == nil {
		c.Ladder = DefaultLadder()
	}
	if c.SlippagePct <= 0 {
		c.SlippagePct = 1
	}
	return c
}

// PositionMonitor owns the exit state machine of a single position. Only the
// goroutine running Run mutates pos; State may be read concurrently.
type PositionMonitor struct {
	cfg     Config
	dex     dex.DEX
	prober  *Prober
	store   Store
	bus     Publisher
	metrics *metrics.Collector
	logger  *zap.Logger

	pos domain.Position

	mu    sync.RWMutex
	state domain.PositionState
}

// NewPositionMonitor creates a monitor for a freshly entered position.
func NewPositionMonitor(
	cfg Config,
	pos domain.Position,
	d dex.DEX,
	store Store,
	bus Publisher,
	collector *metrics.Collector,
	logger *zap.Logger,
) *PositionMonitor {
	cfg = cfg.withDefaults()
	pos.SoldPercent = 0
	pos.PeakPrice = pos.EntryPrice
	pos.State = domain.StateActive

	return &PositionMonitor{
		cfg:     cfg,
		dex:     d,
		prober:  NewProber(d, pos.Mint, pos.Units, cfg.ProbeRatio, cfg.SlippagePct),
		store:   store,
		bus:     bus,
		metrics: collector,
		logger:  logger.Named("monitor").With(zap.String("mint", pos.Mint)),
		pos:     pos,
		state:   domain.StateActive,
	}
}

// State returns the current lifecycle state.
func (m *PositionMonitor) State() domain.PositionState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

func (m *PositionMonitor) setState(s domain.PositionState) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
	m.pos.State = s
}

// Run drives probe/decide cycles until the position is sold out, the run is
// stopped, or ctx is cancelled. A stop never forces a final sale.
func (m *PositionMonitor) Run(ctx context.Context, run Run) {
	if m.pos.Units == 0 {
		m.logger.Warn("Position has no units, monitor not started")
		return
	}

	m.store.Upsert(m.pos)
	m.metrics.MonitorStarted()
	defer m.metrics.MonitorStopped()

	m.logger.Info("📊 Monitor started",
		zap.Uint64("units", m.pos.Units),
		zap.Float64("entry_price", m.pos.EntryPrice),
		zap.Uint64("probe_amount", m.prober.Amount()))

	for run.Active() && m.pos.SoldPercent < 100 && ctx.Err() == nil {
		wait := m.iterate(ctx)
		if m.pos.SoldPercent >= 100 {
			break
		}
		if !sleep(ctx, run, wait) {
			break
		}
	}

	reason := "stopped"
	if m.pos.SoldPercent >= 100 {
		reason = "sold_out"
	}
	m.close(reason)
}

// iterate runs one probe/decide/execute cycle and returns the delay before the
// next one. Panics are contained to the iteration.
func (m *PositionMonitor) iterate(ctx context.Context) (wait time.Duration) {
	wait = m.cfg.ProbeInterval
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("Monitor iteration panicked", zap.Any("panic", r))
			wait = m.cfg.ProbeInterval
		}
	}()

	price, err := m.prober.Price(ctx)
	if err != nil {
		m.metrics.ProbeFailed()
		m.logger.Debug("Probe failed", zap.Error(err))
		return m.cfg.RetryInterval
	}

	if price > m.pos.PeakPrice {
		m.pos.PeakPrice = price
	}
	peak := m.pos.PeakPrice
	m.store.Update(m.pos.Mint, func(p *domain.Position) { p.PeakPrice = peak })

	decision := Decide(m.pos, price, m.cfg.Ladder, m.cfg.Stops)
	if decision.Action != ActionHold {
		m.execute(ctx, decision, price)
	}

	sold, state := m.pos.SoldPercent, m.pos.State
	m.store.Update(m.pos.Mint, func(p *domain.Position) {
		p.SoldPercent = sold
		p.State = state
	})
	return wait
}

// execute sells according to d and advances SoldPercent. After a failed sale
// SoldPercent is left alone only when RetryFailedExits is set.
func (m *PositionMonitor) execute(ctx context.Context, d Decision, price float64) {
	full := d.Full(m.pos.SoldPercent)
	if full {
		m.setState(domain.StateExiting)
	}

	units := d.SellUnits(m.pos)
	receipt, err := m.sell(ctx, units)
	m.metrics.Exit(d.Reason(), err == nil)
	if err != nil && m.cfg.RetryFailedExits {
		m.logger.Error("Exit failed, will retry",
			zap.String("reason", d.Reason()),
			zap.Uint64("units", units),
			zap.Error(err))
		if full {
			m.setState(domain.StateActive)
		}
		return
	}

	m.advance(d)
	if err != nil {
		m.logger.Error("Exit failed, position marked sold",
			zap.String("reason", d.Reason()),
			zap.Uint64("units", units),
			zap.Float64("sold_total", m.pos.SoldPercent),
			zap.Error(err))
		return
	}

	switch d.Action {
	case ActionTakeProfit:
		m.logger.Info("💰 Profit target reached",
			zap.Int("tier", d.Tier),
			zap.Float64("sold", d.Percent),
			zap.Float64("sold_total", m.pos.SoldPercent),
			zap.Float64("multiple", m.pos.Multiple(price)))
	case ActionHardStop:
		m.logger.Info("🛑 Hard stop triggered", zap.Float64("price", price))
	case ActionTrailingStop:
		m.logger.Info("📉 Trailing stop triggered",
			zap.Float64("price", price),
			zap.Float64("peak", m.pos.PeakPrice))
	}

	m.publish(events.NewExitExecuted(events.ExitExecutedEvent{
		Mint:             m.pos.Mint,
		Reason:           d.Reason(),
		Percent:          d.Percent,
		SoldPercent:      m.pos.SoldPercent,
		Units:            units,
		Price:            price,
		ProceedsLamports: receipt.OutAmount,
		Signature:        receipt.Signature,
	}))
}

func (m *PositionMonitor) advance(d Decision) {
	if d.Action == ActionTakeProfit {
		m.pos.SoldPercent += d.Percent
	} else {
		m.pos.SoldPercent = 100
	}
	if m.pos.SoldPercent > 100 {
		m.pos.SoldPercent = 100
	}
}

func (m *PositionMonitor) sell(ctx context.Context, units uint64) (*dex.Receipt, error) {
	quote, err := m.dex.GetQuote(ctx, m.pos.Mint, domain.SOLMint, units, m.cfg.SlippagePct)
	if err != nil {
		return nil, fmt.Errorf("sell quote: %w", err)
	}
	if err := quote.Validate(); err != nil {
		return nil, err
	}
	receipt, err := m.dex.ExecuteSwap(ctx, quote)
	if err != nil {
		return nil, fmt.Errorf("sell swap: %w", err)
	}
	if receipt == nil {
		return nil, fmt.Errorf("sell swap: empty receipt")
	}
	return receipt, nil
}

func (m *PositionMonitor) close(reason string) {
	m.setState(domain.StateClosed)
	m.store.Remove(m.pos.Mint)

	m.logger.Info("Monitor closed",
		zap.String("reason", reason),
		zap.Float64("sold_percent", m.pos.SoldPercent),
		zap.Float64("peak_price", m.pos.PeakPrice))

	m.publish(events.NewPositionClosed(events.PositionClosedEvent{
		Mint:        m.pos.Mint,
		Reason:      reason,
		SoldPercent: m.pos.SoldPercent,
		PeakPrice:   m.pos.PeakPrice,
		EntryPrice:  m.pos.EntryPrice,
	}))
}

func (m *PositionMonitor) publish(e events.Event) {
	if m.bus == nil {
		return
	}
	if err := m.bus.Publish(e); err != nil {
		m.logger.Debug("Event not published", zap.Error(err))
	}
}

// sleep waits d unless the run is stopped or ctx is cancelled first.
func sleep(ctx context.Context, run Run, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-run.Done():
		return false
	case <-ctx.Done():
		return false
	}
}
