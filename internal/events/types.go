// internal/events/types.go
package events

import (
	"time"
)

// EventType represents the type of event.
type EventType string

const (
	EntryExecuted  EventType = "trade.entry"
	ExitExecuted   EventType = "trade.exit"
	PositionClosed EventType = "position.closed"
)

// Event is the base interface for all events.
type Event interface {
	Type() EventType
	Timestamp() time.Time
}

// BaseEvent provides common fields for all events.
type BaseEvent struct {
	EventType EventType
	EventTime time.Time
}

// Type returns the event type.
func (e BaseEvent) Type() EventType {
	return e.EventType
}

// Timestamp returns when the event occurred.
func (e BaseEvent) Timestamp() time.Time {
	return e.EventTime
}

// EntryExecutedEvent is emitted when an admitted opportunity was bought.
type EntryExecutedEvent struct {
	BaseEvent
	Mint         string
	Name         string
	CostLamports uint64
	Units        uint64
	EntryPrice   float64
	Signature    string
}

// ExitExecutedEvent is emitted after every partial or full sale.
type ExitExecutedEvent struct {
	BaseEvent
	Mint             string
	Reason           string // tier_1..tier_4, hard_stop, trailing_stop
	Percent          float64
	SoldPercent      float64
	Units            uint64
	Price            float64
	ProceedsLamports uint64
	Signature        string
}

// PositionClosedEvent is emitted when a monitor leaves the registry.
type PositionClosedEvent struct {
	BaseEvent
	Mint        string
	Reason      string // "sold_out" or "stopped"
	SoldPercent float64
	PeakPrice   float64
	EntryPrice  float64
}

// NewEntryExecuted builds an EntryExecutedEvent stamped with now.
func NewEntryExecuted(e EntryExecutedEvent) *EntryExecutedEvent {
	e.BaseEvent = BaseEvent{EventType: EntryExecuted, EventTime: time.Now()}
	return &e
}

// NewExitExecuted builds an ExitExecutedEvent stamped with now.
func NewExitExecuted(e ExitExecutedEvent) *ExitExecutedEvent {
	e.BaseEvent = BaseEvent{EventType: ExitExecuted, EventTime: time.Now()}
	return &e
}

// NewPositionClosed builds a PositionClosedEvent stamped with now.
func NewPositionClosed(e PositionClosedEvent) *PositionClosedEvent {
	e.BaseEvent = BaseEvent{EventType: PositionClosed, EventTime: time.Now()}
	return &e
}
