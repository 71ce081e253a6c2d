// internal/monitor/decision.go
package monitor

import (
	"fmt"
	"math"

	"github.com/rovshanmuradov/coinbot/internal/domain"
)

// Action is what a monitor does after a probe.
type Action int

const (
	ActionHold Action = iota
	ActionTakeProfit
	ActionHardStop
	ActionTrailingStop
)

func (a Action) String() string {
	switch a {
	case ActionTakeProfit:
		return "take_profit"
	case ActionHardStop:
		return "hard_stop"
	case ActionTrailingStop:
		return "trailing_stop"
	default:
		return "hold"
	}
}

// Stops holds stop-loss fractions, e.g. 0.3 means 30% below the reference.
type Stops struct {
	HardStopLossPct     float64
	TrailingStopLossPct float64
}

// Decision is the outcome of evaluating one probe against a position.
type Decision struct {
	Action  Action
	Tier    int
	Percent float64
}

// Reason is the label used in logs, events and metrics.
func (d Decision) Reason() string {
	if d.Action == ActionTakeProfit {
		return fmt.Sprintf("tier_%d", d.Tier)
	}
	return d.Action.String()
}

// Full reports whether executing d leaves nothing unsold.
func (d Decision) Full(sold float64) bool {
	return d.Action == ActionHardStop || d.Action == ActionTrailingStop || sold+d.Percent >= 100
}

// SellUnits returns how many raw units d sells, never less than one.
// Tier sales are sized on the original units; stops sell what is left.
func (d Decision) SellUnits(pos domain.Position) uint64 {
	var units float64
	switch d.Action {
	case ActionTakeProfit:
		units = float64(pos.Units) * (d.Percent / 100)
	case ActionHardStop, ActionTrailingStop:
		units = pos.RemainingUnits()
	default:
		return 0
	}
	n := uint64(math.Floor(units))
	if n < 1 {
		n = 1
	}
	return n
}

// Decide evaluates the ladder first and the stops only when no tier fired.
// pos.PeakPrice must already include price.
func Decide(pos domain.Position, price float64, ladder Ladder, stops Stops) Decision {
	if tier, percent, ok := ladder.Match(price, pos.EntryPrice, pos.SoldPercent); ok {
		return Decision{Action: ActionTakeProfit, Tier: tier.Rank, Percent: percent}
	}

	remaining := 100 - pos.SoldPercent
	if remaining <= 0 {
		return Decision{Action: ActionHold}
	}
	if price <= pos.EntryPrice*(1-stops.HardStopLossPct) {
		return Decision{Action: ActionHardStop, Percent: remaining}
	}
	if price <= pos.PeakPrice*(1-stops.TrailingStopLossPct) {
		return Decision{Action: ActionTrailingStop, Percent: remaining}
	}
	return Decision{Action: ActionHold}
}
