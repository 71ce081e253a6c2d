// internal/monitor/ladder.go
package monitor

// Tier is one rung of the profit ladder. Sell returns the percentage of the
// original position to release for the current sold percentage; 0 disables it.
type Tier struct {
	Rank     int
	Multiple float64
	Sell     func(sold float64) float64
}

// Ladder is evaluated top to bottom; the first tier that is both unlocked by
// price and still owes a sale wins.
type Ladder []Tier

// DefaultLadder returns the 30x/15x/7x/3x take-profit ladder.
func DefaultLadder() Ladder {
	return Ladder{
		{Rank: 1, Multiple: 30, Sell: func(sold float64) float64 {
			return 100 - sold
		}},
		{Rank: 2, Multiple: 15, Sell: func(sold float64) float64 {
			if sold < 90 {
				return 20
			}
			return 100 - sold
		}},
		{Rank: 3, Multiple: 7, Sell: func(sold float64) float64 {
			if sold < 70 {
				return 30
			}
			return 0
		}},
		{Rank: 4, Multiple: 3, Sell: func(sold float64) float64 {
			if sold < 40 {
				return 40
			}
			return 0
		}},
	}
}

// Match returns the first tier that fires and the percentage it sells.
func (l Ladder) Match(price, entry, sold float64) (Tier, float64, bool) {
	if entry <= 0 || sold >= 100 {
		return Tier{}, 0, false
	}
	for _, tier := range l {
		percent := tier.Sell(sold)
		if percent <= 0 {
			continue
		}
		if price >= entry*tier.Multiple {
			return tier, percent, true
		}
	}
	return Tier{}, 0, false
}
