// internal/dex/dex.go
package dex

import (
	"context"
	"errors"
)

var (
	// ErrNoRoute is returned when the aggregator cannot route the swap.
	ErrNoRoute = errors.New("no route for swap")
	// ErrReadOnly is returned by executors that have no signing key.
	ErrReadOnly = errors.New("no signing key configured: read-only mode")
	// ErrInvalidQuote is returned for quotes with missing or zero amounts.
	ErrInvalidQuote = errors.New("invalid quote")
)

// Quoter prices a swap without executing it.
type Quoter interface {
	GetQuote(ctx context.Context, inputMint, outputMint string, amount uint64, slippagePct float64) (*Quote, error)
}

// Executor executes a previously obtained quote.
type Executor interface {
	ExecuteSwap(ctx context.Context, quote *Quote) (*Receipt, error)
}

// DEX quotes and executes swaps through one venue.
type DEX interface {
	Quoter
	Executor
	// GetName returns the venue name.
	GetName() string
}
