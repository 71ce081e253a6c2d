// internal/monitor/price.go
package monitor

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/rovshanmuradov/coinbot/internal/dex"
	"github.com/rovshanmuradov/coinbot/internal/domain"
)

// errEmptyProbe is returned when a probe quote has no output.
var errEmptyProbe = errors.New("probe returned no output")

// Prober samples the current price of a token by quoting a small, fixed sale
// back into SOL. Probes are never executed.
type Prober struct {
	quoter      dex.Quoter
	mint        string
	amount      uint64
	slippagePct float64
}

// ProbeAmount returns max(floor(units*ratio), 1).
func ProbeAmount(units uint64, ratio float64) uint64 {
	n := uint64(math.Floor(float64(units) * ratio))
	if n < 1 {
		return 1
	}
	return n
}

// NewProber creates a prober for mint sized on the original units.
func NewProber(quoter dex.Quoter, mint string, units uint64, ratio, slippagePct float64) *Prober {
	return &Prober{
		quoter:      quoter,
		mint:        mint,
		amount:      ProbeAmount(units, ratio),
		slippagePct: slippagePct,
	}
}

// Amount returns the probe size in raw units.
func (p *Prober) Amount() uint64 {
	return p.amount
}

// Price returns lamports per raw token unit. A quote without input or
// output amounts is an empty probe.
func (p *Prober) Price(ctx context.Context) (float64, error) {
	quote, err := p.quoter.GetQuote(ctx, p.mint, domain.SOLMint, p.amount, p.slippagePct)
	if err != nil {
		return 0, fmt.Errorf("probe quote: %w", err)
	}
	price := quote.Price()
	if price <= 0 {
		return 0, errEmptyProbe
	}
	return price, nil
}
