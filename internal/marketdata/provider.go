// Package marketdata fetches price histories and turns them into the
// percent moves the outcome passes record.
package marketdata

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Candle is one normalized price bar. Bars with no traded close are
// dropped at the provider boundary, so Close is always usable.
type Candle struct {
	Ts     time.Time `json:"ts"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// Provider returns bars covering [start, end] for one symbol. interval
// uses the provider's own vocabulary ("1m", "5m", "1d").
type Provider interface {
	Candles(ctx context.Context, symbol string, start, end time.Time, interval string) ([]Candle, error)
}

// PctMove computes the percent move between the last trades at or
// before two instants. Using at-or-before on both ends keeps the move
// observable at `to` without peeking past it.
func PctMove(candles []Candle, from, to time.Time) (decimal.Decimal, error) {
	base, ok := closeAtOrBefore(candles, from)
	if !ok {
		return decimal.Zero, fmt.Errorf("no quote at or before %s", from.UTC().Format(time.RFC3339))
	}
	final, ok := closeAtOrBefore(candles, to)
	if !ok {
		return decimal.Zero, fmt.Errorf("no quote at or before %s", to.UTC().Format(time.RFC3339))
	}
	if base == 0 {
		return decimal.Zero, fmt.Errorf("zero baseline price at %s", from.UTC().Format(time.RFC3339))
	}
	b := decimal.NewFromFloat(base)
	f := decimal.NewFromFloat(final)
	return f.Sub(b).Div(b).Mul(decimal.NewFromInt(100)), nil
}

func closeAtOrBefore(candles []Candle, at time.Time) (float64, bool) {
	var (
		best   float64
		bestTs time.Time
		found  bool
	)
	for _, c := range candles {
		if c.Ts.After(at) {
			continue
		}
		if !found || c.Ts.After(bestTs) {
			best = c.Close
			bestTs = c.Ts
			found = true
		}
	}
	return best, found
}
