// Package strategy classifies trading days and turns signals into orders.
//
// Classify is the SMA crossover rule: it looks only at two adjacent chart
// points and emits BUY (golden cross), SELL (death cross) or HOLD.
package strategy

import "papersim/internal/model"

// CrossoverConfidence is reported for every BUY and SELL classification.
// It is fixed, not derived from the size of the crossover.
const CrossoverConfidence = 85.0

// Classify compares the short/long moving averages of two consecutive days.
//
// Buy signal: short SMA crosses above long SMA (golden cross)
// Sell signal: short SMA crosses below long SMA (death cross)
//
// Any missing average, an unchanged relationship, or an exact tie yields HOLD.
func Classify(prev, cur model.ChartPoint) model.Signal {
	sig := model.Signal{Type: model.SignalHold, Timestamp: cur.Timestamp}
	if !prev.HasSMAs() || !cur.HasSMAs() {
		return sig
	}

	prevShort, prevLong := prev.ShortSMA.V, prev.LongSMA.V
	curShort, curLong := cur.ShortSMA.V, cur.LongSMA.V

	switch {
	case prevShort < prevLong && curShort > curLong:
		sig.Type = model.SignalBuy
		sig.Confidence = CrossoverConfidence
	case prevShort > prevLong && curShort < curLong:
		sig.Type = model.SignalSell
		sig.Confidence = CrossoverConfidence
	}
	return sig
}
