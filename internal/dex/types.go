// internal/dex/types.go
package dex

import (
	"encoding/json"
	"fmt"
)

// Quote is a priced route between two mints. Amounts are raw units.
type Quote struct {
	InputMint   string
	OutputMint  string
	InAmount    uint64
	OutAmount   uint64
	SlippageBps int
	// Raw keeps the aggregator response so it can be echoed back on execution.
	Raw json.RawMessage
}

// Validate checks that the quote carries usable amounts.
func (q *Quote) Validate() error {
	if q == nil {
		return fmt.Errorf("%w: nil quote", ErrInvalidQuote)
	}
	if q.InAmount == 0 {
		return fmt.Errorf("%w: zero input amount", ErrInvalidQuote)
	}
	if q.OutAmount == 0 {
		return fmt.Errorf("%w: zero output amount", ErrInvalidQuote)
	}
	return nil
}

// Price returns output units per input unit.
func (q *Quote) Price() float64 {
	if q == nil || q.InAmount == 0 {
		return 0
	}
	return float64(q.OutAmount) / float64(q.InAmount)
}

// Receipt is the realized result of an executed swap.
type Receipt struct {
	Signature string
	BundleID  string
	InAmount  uint64
	OutAmount uint64
}
