// Package indicator provides technical indicator calculations over daily
// closing prices.
//
// Streaming indicators implement the Indicator interface and are fed one close
// at a time. The Compute* functions run a streaming indicator across a whole
// series and return a slice aligned index-for-index with the input, with
// absent entries where the indicator did not yet have enough history.
package indicator

import "papersim/internal/model"

// Indicator is the interface for all streaming technical indicators.
type Indicator interface {
	// Name returns the indicator name (e.g., "SMA_50", "RSI_14").
	Name() string

	// Update feeds the next closing price and recalculates.
	Update(close float64)

	// Value returns the current calculated value. Returns 0 if not enough data.
	Value() float64

	// Ready returns true when enough data has been accumulated.
	Ready() bool
}

// Series is an indicator output aligned with the price series it was
// computed from.
type Series []model.Value

// run feeds closes through ind and collects a Series.
func run(ind Indicator, closes []float64) Series {
	out := make(Series, len(closes))
	for i, c := range closes {
		ind.Update(c)
		if ind.Ready() {
			out[i] = model.Some(ind.Value())
		}
	}
	return out
}

// absent returns n absent entries.
func absent(n int) Series {
	return make(Series, n)
}
