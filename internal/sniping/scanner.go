// internal/sniping/scanner.go
package sniping

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/coinbot/internal/domain"
	"github.com/rovshanmuradov/coinbot/internal/utils/metrics"
)

const (
	DefaultPollInterval  = 2800 * time.Millisecond
	DefaultRetryInterval = 3 * time.Second
	DefaultMaxAge        = 900 * time.Second
)

// Feed returns the current snapshot of newly listed tokens.
type Feed interface {
	FetchOpportunities(ctx context.Context) ([]domain.Opportunity, error)
}

// Run is the engine run gating the scan loop.
type Run interface {
	Active() bool
	Done() <-chan struct{}
}

// Handler receives every fresh opportunity exactly once per run.
type Handler func(ctx context.Context, opp domain.Opportunity)

// Launcher starts task in its own goroutine. The engine uses it to track tasks.
type Launcher func(task func())

type Config struct {
	PollInterval  time.Duration
	RetryInterval time.Duration
	MaxAge        time.Duration
}

// Scanner polls the feed and dispatches unseen, young opportunities.
type Scanner struct {
	feed    Feed
	cfg     Config
	handle  Handler
	launch  Launcher
	metrics *metrics.Collector
	logger  *zap.Logger
}

func NewScanner(feed Feed, cfg Config, handle Handler, launch Launcher, collector *metrics.Collector, logger *zap.Logger) *Scanner {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = DefaultRetryInterval
	}
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = DefaultMaxAge
	}
	if launch == nil {
		launch = func(task func()) { go task() }
	}
	return &Scanner{
		feed:    feed,
		cfg:     cfg,
		handle:  handle,
		launch:  launch,
		metrics: collector,
		logger:  logger.Named("scanner"),
	}
}

// Run polls until the run is stopped or ctx is cancelled. Feed failures are
// logged and retried after the retry interval.
func (s *Scanner) Run(ctx context.Context, run Run, seen *SeenSet) {
	s.logger.Info("🔍 Scanner started",
		zap.Duration("poll_interval", s.cfg.PollInterval),
		zap.Duration("max_age", s.cfg.MaxAge))
	defer s.logger.Info("Scanner stopped", zap.Int("seen", seen.Len()))

	for run.Active() && ctx.Err() == nil {
		opps, err := s.feed.FetchOpportunities(ctx)
		s.metrics.FeedPoll(err == nil)
		if err != nil {
			s.logger.Warn("Feed fetch failed", zap.Error(err))
			if !wait(ctx, run, s.cfg.RetryInterval) {
				return
			}
			continue
		}

		dispatched := s.Dispatch(ctx, opps, seen)
		if dispatched > 0 {
			s.logger.Debug("Dispatched opportunities",
				zap.Int("count", dispatched),
				zap.Int("snapshot", len(opps)))
		}

		if !wait(ctx, run, s.cfg.PollInterval) {
			return
		}
	}
}

// Dispatch hands every unseen opportunity not older than MaxAge to the handler
// in its own task and returns how many were dispatched.
func (s *Scanner) Dispatch(ctx context.Context, opps []domain.Opportunity, seen *SeenSet) int {
	n := 0
	for _, opp := range opps {
		if opp.Mint == "" || seen.Contains(opp.Mint) {
			continue
		}
		if opp.Age > s.cfg.MaxAge {
			continue
		}
		if !seen.Add(opp.Mint) {
			continue
		}
		n++
		s.launch(func() { s.handle(ctx, opp) })
	}
	return n
}

func wait(ctx context.Context, run Run, d time.Duration) bool {
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
