// internal/domain/opportunity.go
package domain

import "time"

// SOLMint is the wrapped SOL mint used as the base asset for every trade.
const SOLMint = "So11111111111111111111111111111111111111112"

// LamportsPerSOL converts between SOL and lamports.
const LamportsPerSOL = 1_000_000_000

// Opportunity is a freshly launched token reported by the discovery feed.
// It is evaluated once for admission and then discarded.
type Opportunity struct {
	Mint             string
	Name             string
	Age              time.Duration
	LiquidityUSD     float64
	Holders          int
	DevHoldingPct    float64
	Top10HoldingPct  float64
	VolumeUSD        float64
	PriceChange5mPct float64
	Momentum         float64 // MACD 12/26/9
}

// DisplayName returns the token name, falling back to the mint.
func (o Opportunity) DisplayName() string {
	if o.Name != "" {
		return o.Name
	}
	return o.Mint
}

// ShortMint returns an abbreviated mint for logs and chat replies.
func ShortMint(mint string) string {
	if len(mint) >= 8 {
		return mint[:4] + "..." + mint[len(mint)-4:]
	}
	return mint
}
