// internal/sniping/filter.go
package sniping

import (
	"github.com/rovshanmuradov/coinbot/internal/domain"
)

// Rejection reasons, also used as metric labels.
const (
	RejectLiquidity = "liquidity"
	RejectHolders   = "holders"
	RejectDev       = "dev_holding"
	RejectTop10     = "top10_holding"
	RejectVolume    = "volume"
	RejectPump      = "pump_5m"
	RejectMomentum  = "momentum"
)

// Filter holds the admission thresholds. Holding percentages are upper bounds,
// everything else a lower bound.
type Filter struct {
	MinLiquidityUSD    float64
	MinHolders         int
	MaxDevHoldingPct   float64
	MaxTop10HoldingPct float64
	MinVolumeUSD       float64
	Min5mPumpPct       float64
}

// Admit reports whether o passes every threshold.
func (f Filter) Admit(o domain.Opportunity) bool {
	return f.Reject(o) == ""
}

// Reject returns the first failing threshold, or "" when o is admitted.
func (f Filter) Reject(o domain.Opportunity) string {
	switch {
	case o.LiquidityUSD < f.MinLiquidityUSD:
		return RejectLiquidity
	case o.Holders < f.MinHolders:
		return RejectHolders
	case o.DevHoldingPct > f.MaxDevHoldingPct:
		return RejectDev
	case o.Top10HoldingPct > f.MaxTop10HoldingPct:
		return RejectTop10
	case o.VolumeUSD < f.MinVolumeUSD:
		return RejectVolume
	case o.PriceChange5mPct < f.Min5mPumpPct:
		return RejectPump
	case o.Momentum <= 0:
		return RejectMomentum
	}
	return ""
}
