// internal/bot/engine.go
package bot

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/coinbot/internal/dex"
	"github.com/rovshanmuradov/coinbot/internal/domain"
	"github.com/rovshanmuradov/coinbot/internal/events"
	"github.com/rovshanmuradov/coinbot/internal/monitor"
	"github.com/rovshanmuradov/coinbot/internal/registry"
	"github.com/rovshanmuradov/coinbot/internal/sniping"
	"github.com/rovshanmuradov/coinbot/internal/utils/metrics"
)

var (
	// ErrAlreadyRunning is returned by Start while a run is active.
	ErrAlreadyRunning = errors.New("engine already running")
	// ErrNoWallet is returned by Balance when no wallet is configured.
	ErrNoWallet = errors.New("wallet not configured")
)

// Engine states reported by Status.
const (
	StateRunning = "running"
	StateStopped = "stopped"
)

// AccountInfo reports the trading wallet balance.
type AccountInfo interface {
	Balance(ctx context.Context) (uint64, error)
}

// Publisher receives trade events.
type Publisher interface {
	Publish(event events.Event) error
}

// Options holds the trading parameters of the engine.
type Options struct {
	Filter        sniping.Filter
	Scanner       sniping.Config
	Monitor       monitor.Config
	EntryLamports uint64
	SlippagePct   float64
	ReadOnly      bool
}

// Deps are the engine's collaborators. Account, Bus and Metrics may be nil.
type Deps struct {
	DEX      dex.DEX
	Feed     sniping.Feed
	Account  AccountInfo
	Registry *registry.Registry
	Bus      Publisher
	Metrics  *metrics.Collector
}

// Status is a point-in-time view of the engine.
type Status struct {
	State     string    `json:"state"`
	RunID     string    `json:"run_id,omitempty"`
	StartedAt time.Time `json:"started_at,omitempty"`
	Positions int       `json:"positions"`
	ReadOnly  bool      `json:"read_only"`
}

// Running reports whether the state is running.
func (s Status) Running() bool {
	return s.State == StateRunning
}

// run is one Start/Stop cycle. Closing it is the only cancellation signal the
// scanner and monitors observe.
type run struct {
	id        string
	startedAt time.Time
	seen      *sniping.SeenSet
	active    atomic.Bool
	done      chan struct{}
	once      sync.Once
}

func newRun() *run {
	r := &run{
		id:        uuid.New().String(),
		startedAt: time.Now(),
		seen:      sniping.NewSeenSet(),
		done:      make(chan struct{}),
	}
	r.active.Store(true)
	return r
}

func (r *run) Active() bool          { return r.active.Load() }
func (r *run) Done() <-chan struct{} { return r.done }

func (r *run) close() bool {
	closed := false
	r.once.Do(func() {
		r.active.Store(false)
		close(r.done)
		closed = true
	})
	return closed
}

// Engine owns the run state and spawns the scanner, admissions and monitors.
type Engine struct {
	opts     Options
	dex      dex.DEX
	feed     sniping.Feed
	account  AccountInfo
	registry *registry.Registry
	bus      Publisher
	metrics  *metrics.Collector
	logger   *zap.Logger

	mu      sync.Mutex
	current *run

	tasks sync.WaitGroup
}

func NewEngine(opts Options, deps Deps, logger *zap.Logger) *Engine {
	reg := deps.Registry
	if reg == nil {
		reg = registry.New()
	}
	return &Engine{
		opts:     opts,
		dex:      deps.DEX,
		feed:     deps.Feed,
		account:  deps.Account,
		registry: reg,
		bus:      deps.Bus,
		metrics:  deps.Metrics,
		logger:   logger.Named("engine"),
	}
}

// Start opens a new run and launches the scanner. ctx bounds every task of
// the run and should live as long as the process.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.current != nil && e.current.Active() {
		return ErrAlreadyRunning
	}

	r := newRun()
	e.current = r
	e.metrics.SetRunning(true)

	scanner := sniping.NewScanner(e.feed, e.opts.Scanner, e.admission(r), e.goTask, e.metrics, e.logger)
	e.goTask(func() { scanner.Run(ctx, r, r.seen) })

	e.logger.Info("🚀 Engine started",
		zap.String("run_id", r.id),
		zap.Uint64("entry_lamports", e.opts.EntryLamports),
		zap.Bool("read_only", e.opts.ReadOnly))
	return nil
}

// Stop closes the current run. In-flight calls finish; monitors remove their
// positions at their next check without selling. It reports whether a run
// was actually stopped.
func (e *Engine) Stop() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.current == nil || !e.current.close() {
		return false
	}
	e.metrics.SetRunning(false)
	e.logger.Info("🛑 Engine stopping",
		zap.String("run_id", e.current.id),
		zap.Int("open_positions", e.registry.Len()))
	return true
}

// Status reports the current run state.
func (e *Engine) Status() Status {
	e.mu.Lock()
	r := e.current
	e.mu.Unlock()

	st := Status{
		State:     StateStopped,
		Positions: e.registry.Len(),
		ReadOnly:  e.opts.ReadOnly,
	}
	if r != nil && r.Active() {
		st.State = StateRunning
		st.RunID = r.id
		st.StartedAt = r.startedAt
	}
	return st
}

// ListPositions returns a snapshot of every open position.
func (e *Engine) ListPositions() []domain.Position {
	return e.registry.SnapshotAll()
}

// Position returns a copy of the open position for mint.
func (e *Engine) Position(mint string) (domain.Position, bool) {
	return e.registry.Get(mint)
}

// Balance returns the wallet balance in lamports.
func (e *Engine) Balance(ctx context.Context) (uint64, error) {
	if e.account == nil {
		return 0, ErrNoWallet
	}
	return e.account.Balance(ctx)
}

// Wait blocks until every task spawned by any run has returned or ctx ends.
func (e *Engine) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		e.tasks.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the engine. It does not wait for tasks.
func (e *Engine) Close() error {
	e.Stop()
	return nil
}

// goTask runs task in a tracked goroutine. Panics are logged and contained.
func (e *Engine) goTask(task func()) {
	e.tasks.Add(1)
	e.metrics.TaskStarted()
	go func() {
		defer e.tasks.Done()
		defer e.metrics.TaskDone()
		defer func() {
			if rec := recover(); rec != nil {
				e.logger.Error("Task panicked", zap.Any("panic", rec))
			}
		}()
		task()
	}()
}
