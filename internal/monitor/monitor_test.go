package monitor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rovshanmuradov/coinbot/internal/domain"
	"github.com/rovshanmuradov/coinbot/internal/events"
	"github.com/rovshanmuradov/coinbot/internal/utils/metrics"
)

const (
	testMint  = "Mint1111111111111111111111111111111111111111"
	testUnits = 10_000
)

type recordingBus struct {
	events []events.Event
}

func (b *recordingBus) Publish(e events.Event) error {
	b.events = append(b.events, e)
	return nil
}

func testConfig() Config {
	return Config{
		ProbeRatio:    0.01,
		SlippagePct:   1,
		ProbeInterval: time.Millisecond,
		RetryInterval: time.Millisecond,
		Stops:         Stops{HardStopLossPct: 0.3, TrailingStopLossPct: 0.25},
	}
}

func newTestMonitor(t *testing.T, d *scriptedDEX, store Store, bus Publisher) *PositionMonitor {
	t.Helper()
	pos := domain.NewPosition(testMint, testUnits, testUnits, time.Now())
	require.Equal(t, 1.0, pos.EntryPrice)
	d.probeAmount = ProbeAmount(testUnits, 0.01)
	return NewPositionMonitor(testConfig(), pos, d, store, bus, metrics.NewCollector(), zaptest.NewLogger(t))
}

func runToCompletion(t *testing.T, m *PositionMonitor, run Run) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		m.Run(context.Background(), run)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("monitor did not finish")
	}
}

func TestMonitor_LadderSequence(t *testing.T) {
	d := &scriptedDEX{prices: []float64{1.0, 2.0, 7.5, 16.0, 30.0}}
	store := newWatchingStore()
	bus := &recordingBus{}
	m := newTestMonitor(t, d, store, bus)

	runToCompletion(t, m, newTestRun())

	// tier 3 sells 30%, tier 2 sells 20%, tier 1 sells the remaining 50%.
	assert.Equal(t, []uint64{3000, 2000, 5000}, d.soldUnits())
	assert.Equal(t, 5, d.probeCount())
	assert.Equal(t, domain.StateClosed, m.State())
	assert.False(t, store.Has(testMint))

	var sold []float64
	for _, p := range store.snapshots() {
		sold = append(sold, p.SoldPercent)
	}
	assert.Contains(t, sold, 30.0)
	assert.Contains(t, sold, 50.0)

	var reasons []string
	for _, e := range bus.events {
		if exit, ok := e.(*events.ExitExecutedEvent); ok {
			reasons = append(reasons, exit.Reason)
		}
	}
	assert.Equal(t, []string{"tier_3", "tier_2", "tier_1"}, reasons)

	last := bus.events[len(bus.events)-1]
	closed, ok := last.(*events.PositionClosedEvent)
	require.True(t, ok)
	assert.Equal(t, "sold_out", closed.Reason)
	assert.Equal(t, 100.0, closed.SoldPercent)
}

func TestMonitor_HardStop(t *testing.T) {
	d := &scriptedDEX{prices: []float64{0.69}}
	store := newWatchingStore()
	m := newTestMonitor(t, d, store, nil)

	runToCompletion(t, m, newTestRun())

	assert.Equal(t, []uint64{testUnits}, d.soldUnits())
	assert.False(t, store.Has(testMint))
}

func TestMonitor_TrailingStopAfterPartialExit(t *testing.T) {
	d := &scriptedDEX{prices: []float64{5.0, 3.7}}
	store := newWatchingStore()
	bus := &recordingBus{}
	m := newTestMonitor(t, d, store, bus)

	runToCompletion(t, m, newTestRun())

	// tier 4 at 5x sells 40%, then 3.7 is 26% below the 5.0 peak.
	assert.Equal(t, []uint64{4000, 6000}, d.soldUnits())

	exit, ok := bus.events[1].(*events.ExitExecutedEvent)
	require.True(t, ok)
	assert.Equal(t, "trailing_stop", exit.Reason)
	assert.Equal(t, 100.0, exit.SoldPercent)
}

func TestMonitor_SoldAndPeakAreMonotonic(t *testing.T) {
	d := &scriptedDEX{prices: []float64{1.2, 3.1, 2.9, 0, 8.0, 6.5, 7.1, 15.5, 12.0, 15.2, 16.0, 15.0, 1.0}}
	store := newWatchingStore()
	m := newTestMonitor(t, d, store, nil)

	runToCompletion(t, m, newTestRun())

	history := store.snapshots()
	require.NotEmpty(t, history)
	prevSold, prevPeak := 0.0, 1.0
	for _, p := range history {
		assert.GreaterOrEqual(t, p.SoldPercent, prevSold)
		assert.LessOrEqual(t, p.SoldPercent, 100.0)
		assert.GreaterOrEqual(t, p.PeakPrice, prevPeak)
		assert.GreaterOrEqual(t, p.PeakPrice, p.EntryPrice)
		prevSold, prevPeak = p.SoldPercent, p.PeakPrice
	}
	assert.False(t, store.Has(testMint))
}

func TestMonitor_FailedSellStillAdvances(t *testing.T) {
	run := newTestRun()
	d := &scriptedDEX{prices: []float64{7.5}, failSwaps: 1}
	d.onProbe = func(n int) {
		if n == 1 {
			run.stop()
		}
	}
	store := newWatchingStore()
	bus := &recordingBus{}
	m := newTestMonitor(t, d, store, bus)

	runToCompletion(t, m, run)

	// tier 3 fired at 7.5x; the sale failed but the tier is consumed.
	assert.Empty(t, d.soldUnits())
	assert.Equal(t, 1, d.probeCount())
	history := store.snapshots()
	require.NotEmpty(t, history)
	assert.Equal(t, 30.0, history[len(history)-1].SoldPercent)

	require.Len(t, bus.events, 1)
	closed, ok := bus.events[0].(*events.PositionClosedEvent)
	require.True(t, ok)
	assert.Equal(t, "stopped", closed.Reason)
	assert.Equal(t, 30.0, closed.SoldPercent)
}

func TestMonitor_FailedStopStillCloses(t *testing.T) {
	d := &scriptedDEX{prices: []float64{0.5}, failSwaps: 1}
	store := newWatchingStore()
	bus := &recordingBus{}
	m := newTestMonitor(t, d, store, bus)

	runToCompletion(t, m, newTestRun())

	assert.Empty(t, d.soldUnits())
	assert.Equal(t, 1, d.probeCount())
	assert.False(t, store.Has(testMint))

	require.Len(t, bus.events, 1)
	closed := bus.events[0].(*events.PositionClosedEvent)
	assert.Equal(t, "sold_out", closed.Reason)
}

func TestMonitor_RetryFailedExits(t *testing.T) {
	d := &scriptedDEX{prices: []float64{0.5}, failSwaps: 2, probeAmount: ProbeAmount(testUnits, 0.01)}
	store := newWatchingStore()
	cfg := testConfig()
	cfg.RetryFailedExits = true
	pos := domain.NewPosition(testMint, testUnits, testUnits, time.Now())
	m := NewPositionMonitor(cfg, pos, d, store, nil, metrics.NewCollector(), zaptest.NewLogger(t))

	runToCompletion(t, m, newTestRun())

	assert.Equal(t, []uint64{testUnits}, d.soldUnits())
	assert.Equal(t, 3, d.probeCount())
	for _, p := range store.snapshots()[:2] {
		assert.Equal(t, 0.0, p.SoldPercent)
	}
}

func TestMonitor_ProbeFailureRetries(t *testing.T) {
	d := &scriptedDEX{prices: []float64{0, 0, 0.5}}
	store := newWatchingStore()
	m := newTestMonitor(t, d, store, nil)

	runToCompletion(t, m, newTestRun())

	assert.Equal(t, 3, d.probeCount())
	assert.Equal(t, []uint64{testUnits}, d.soldUnits())
}

func TestMonitor_StopMidIterationDoesNotSell(t *testing.T) {
	run := newTestRun()
	release := make(chan struct{})
	d := &scriptedDEX{prices: []float64{1.0}}
	d.onProbe = func(n int) {
		if n == 1 {
			run.stop()
			<-release
		}
	}
	store := newWatchingStore()
	bus := &recordingBus{}
	m := newTestMonitor(t, d, store, bus)

	done := make(chan struct{})
	go func() {
		m.Run(context.Background(), run)
		close(done)
	}()

	require.Eventually(t, func() bool { return !run.Active() }, time.Second, time.Millisecond)
	assert.True(t, store.Has(testMint))
	close(release)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("monitor did not stop")
	}

	assert.Equal(t, 1, d.probeCount())
	assert.Empty(t, d.soldUnits())
	assert.Len(t, store.snapshots(), 2)
	assert.False(t, store.Has(testMint))
	assert.Equal(t, domain.StateClosed, m.State())

	require.Len(t, bus.events, 1)
	closed := bus.events[0].(*events.PositionClosedEvent)
	assert.Equal(t, "stopped", closed.Reason)
}

func TestMonitor_StopDuringSaleFinishesIt(t *testing.T) {
	run := newTestRun()
	release := make(chan struct{})
	d := &scriptedDEX{prices: []float64{7.5}}
	d.onSwap = func(n int) {
		if n == 1 {
			run.stop()
			<-release
		}
	}
	store := newWatchingStore()
	bus := &recordingBus{}
	m := newTestMonitor(t, d, store, bus)

	done := make(chan struct{})
	go func() {
		m.Run(context.Background(), run)
		close(done)
	}()

	require.Eventually(t, func() bool { return !run.Active() }, time.Second, time.Millisecond)
	assert.True(t, store.Has(testMint))
	close(release)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("monitor did not stop")
	}

	assert.Equal(t, []uint64{3000}, d.soldUnits())
	assert.Equal(t, 1, d.probeCount())
	history := store.snapshots()
	require.NotEmpty(t, history)
	assert.Equal(t, 30.0, history[len(history)-1].SoldPercent)
	assert.False(t, store.Has(testMint))

	require.Len(t, bus.events, 2)
	exit, ok := bus.events[0].(*events.ExitExecutedEvent)
	require.True(t, ok)
	assert.Equal(t, "tier_3", exit.Reason)
	closed, ok := bus.events[1].(*events.PositionClosedEvent)
	require.True(t, ok)
	assert.Equal(t, "stopped", closed.Reason)
	assert.Equal(t, 30.0, closed.SoldPercent)
}

func TestMonitor_ZeroUnitsNeverStarts(t *testing.T) {
	d := &scriptedDEX{prices: []float64{1}}
	store := newWatchingStore()
	pos := domain.NewPosition(testMint, 100, 0, time.Now())
	m := NewPositionMonitor(testConfig(), pos, d, store, nil, nil, zaptest.NewLogger(t))

	m.Run(context.Background(), newTestRun())

	assert.Zero(t, d.probeCount())
	assert.False(t, store.Has(testMint))
}

func TestProbeAmount(t *testing.T) {
	assert.Equal(t, uint64(100), ProbeAmount(10_000, 0.01))
	assert.Equal(t, uint64(1), ProbeAmount(50, 0.01))
	assert.Equal(t, uint64(1), ProbeAmount(0, 0.01))
	assert.Equal(t, uint64(12), ProbeAmount(1234, 0.01))
}
