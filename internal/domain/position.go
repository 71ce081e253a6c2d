// internal/domain/position.go
package domain

import "time"

// PositionState is the lifecycle state of a managed position.
type PositionState string

const (
	StateActive  PositionState = "active"
	StateExiting PositionState = "exiting"
	StateClosed  PositionState = "closed"
)

// Position is the engine's record of one executed entry and its exit management.
// Prices are expressed in lamports per raw token unit.
type Position struct {
	Mint        string
	EntryPrice  float64
	PeakPrice   float64
	Units       uint64
	SoldPercent float64
	State       PositionState
	OpenedAt    time.Time
	UpdatedAt   time.Time
}

// NewPosition creates an active position from the realized entry amounts.
func NewPosition(mint string, totalCost, units uint64, now time.Time) Position {
	entry := 0.0
	if units > 0 {
		entry = float64(totalCost) / float64(units)
	}
	return Position{
		Mint:       mint,
		EntryPrice: entry,
		PeakPrice:  entry,
		Units:      units,
		State:      StateActive,
		OpenedAt:   now,
		UpdatedAt:  now,
	}
}

// RemainingUnits returns the part of the original units not yet sold.
func (p Position) RemainingUnits() float64 {
	return float64(p.Units) * (1 - p.SoldPercent/100)
}

// Multiple returns price relative to the entry price.
func (p Position) Multiple(price float64) float64 {
	if p.EntryPrice <= 0 {
		return 0
	}
	return price / p.EntryPrice
}
