// internal/storage/models/trade.go
package models

import "time"

// Trade sides.
const (
	SideBuy  = "buy"
	SideSell = "sell"
)

// Trade is one executed swap.
type Trade struct {
	ID        string
	Side      string
	Mint      string
	Reason    string // "entry", "tier_1".."tier_4", "hard_stop", "trailing_stop"
	Percent   float64
	Units     uint64
	Lamports  uint64 // cost for buys, proceeds for sells
	Price     float64
	Signature string
	CreatedAt time.Time
}
