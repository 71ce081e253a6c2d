package monitor

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/rovshanmuradov/coinbot/internal/dex"
	"github.com/rovshanmuradov/coinbot/internal/domain"
	"github.com/rovshanmuradov/coinbot/internal/registry"
)

// testRun is a controllable engine run.
type testRun struct {
	active atomic.Bool
	done   chan struct{}
	once   sync.Once
}

func newTestRun() *testRun {
	r := &testRun{done: make(chan struct{})}
	r.active.Store(true)
	return r
}

func (r *testRun) Active() bool          { return r.active.Load() }
func (r *testRun) Done() <-chan struct{} { return r.done }

func (r *testRun) stop() {
	r.once.Do(func() {
		r.active.Store(false)
		close(r.done)
	})
}

// scriptedDEX answers probes from a price script and records every sale.
// Prices are lamports per unit; the last price repeats once the script is spent.
type scriptedDEX struct {
	mu          sync.Mutex
	probeAmount uint64
	prices      []float64
	probes      int
	sells       []uint64
	swaps       int
	failSwaps   int
	onProbe     func(n int)
	onSwap      func(n int)
}

func (d *scriptedDEX) GetName() string { return "scripted" }

func (d *scriptedDEX) GetQuote(_ context.Context, in, out string, amount uint64, _ float64) (*dex.Quote, error) {
	if out != domain.SOLMint {
		return nil, errors.New("unexpected output mint")
	}

	d.mu.Lock()
	if amount != d.probeAmount {
		d.mu.Unlock()
		return &dex.Quote{InputMint: in, OutputMint: out, InAmount: amount, OutAmount: amount}, nil
	}
	idx := d.probes
	if idx >= len(d.prices) {
		idx = len(d.prices) - 1
	}
	price := d.prices[idx]
	d.probes++
	n := d.probes
	hook := d.onProbe
	d.mu.Unlock()

	if hook != nil {
		hook(n)
	}
	if price <= 0 {
		return &dex.Quote{InputMint: in, OutputMint: out, InAmount: amount}, nil
	}
	return &dex.Quote{
		InputMint:  in,
		OutputMint: out,
		InAmount:   amount,
		OutAmount:  uint64(price * float64(amount)),
	}, nil
}

func (d *scriptedDEX) ExecuteSwap(_ context.Context, q *dex.Quote) (*dex.Receipt, error) {
	d.mu.Lock()
	d.swaps++
	n, hook := d.swaps, d.onSwap
	d.mu.Unlock()
	if hook != nil {
		hook(n)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failSwaps > 0 {
		d.failSwaps--
		return nil, errors.New("bundle rejected")
	}
	d.sells = append(d.sells, q.InAmount)
	return &dex.Receipt{Signature: "sig", InAmount: q.InAmount, OutAmount: q.OutAmount}, nil
}

func (d *scriptedDEX) soldUnits() []uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]uint64(nil), d.sells...)
}

func (d *scriptedDEX) probeCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.probes
}

// watchingStore records every registry state a monitor writes.
type watchingStore struct {
	*registry.Registry
	mu      sync.Mutex
	history []domain.Position
}

func newWatchingStore() *watchingStore {
	return &watchingStore{Registry: registry.New()}
}

func (s *watchingStore) Update(mint string, fn func(*domain.Position)) bool {
	ok := s.Registry.Update(mint, fn)
	if p, found := s.Registry.Get(mint); found {
		s.mu.Lock()
		s.history = append(s.history, p)
		s.mu.Unlock()
	}
	return ok
}

func (s *watchingStore) snapshots() []domain.Position {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Position(nil), s.history...)
}
