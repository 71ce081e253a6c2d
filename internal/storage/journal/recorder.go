// internal/storage/journal/recorder.go
package journal

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/coinbot/internal/events"
	"github.com/rovshanmuradov/coinbot/internal/storage"
	"github.com/rovshanmuradov/coinbot/internal/storage/models"
)

// Subscriber is the part of the event bus the recorder needs.
type Subscriber interface {
	Subscribe(eventType events.EventType, handler events.Handler) events.Subscription
}

// Recorder writes every executed trade event to a TradeStore.
type Recorder struct {
	store  storage.TradeStore
	logger *zap.Logger
	subs   []events.Subscription
}

// NewRecorder subscribes to entry and exit events.
func NewRecorder(store storage.TradeStore, bus Subscriber, logger *zap.Logger) *Recorder {
	r := &Recorder{store: store, logger: logger.Named("recorder")}
	r.subs = append(r.subs,
		bus.Subscribe(events.EntryExecuted, events.HandlerFunc(r.Handle)),
		bus.Subscribe(events.ExitExecuted, events.HandlerFunc(r.Handle)),
	)
	return r
}

// Handle converts a trade event into a journal row.
func (r *Recorder) Handle(ctx context.Context, event events.Event) error {
	var trade models.Trade
	switch e := event.(type) {
	case *events.EntryExecutedEvent:
		trade = models.Trade{
			Side:      models.SideBuy,
			Mint:      e.Mint,
			Reason:    "entry",
			Percent:   100,
			Units:     e.Units,
			Lamports:  e.CostLamports,
			Price:     e.EntryPrice,
			Signature: e.Signature,
			CreatedAt: e.Timestamp(),
		}
	case *events.ExitExecutedEvent:
		trade = models.Trade{
			Side:      models.SideSell,
			Mint:      e.Mint,
			Reason:    e.Reason,
			Percent:   e.Percent,
			Units:     e.Units,
			Lamports:  e.ProceedsLamports,
			Price:     e.Price,
			Signature: e.Signature,
			CreatedAt: e.Timestamp(),
		}
	default:
		return fmt.Errorf("unexpected event %T", event)
	}

	if err := r.store.SaveTrade(ctx, &trade); err != nil {
		r.logger.Error("Failed to journal trade", zap.String("mint", trade.Mint), zap.Error(err))
		return err
	}
	return nil
}

// Close unsubscribes from the bus.
func (r *Recorder) Close() error {
	for _, s := range r.subs {
		s.Unsubscribe()
	}
	r.subs = nil
	return nil
}
