package strategy

import "papersim/internal/model"

// DefaultTradeQty is the lot size bought on a golden cross.
const DefaultTradeQty = 10

// Order is a trade request derived from a signal.
type Order struct {
	Side     model.Side `json:"side"`
	Quantity int64      `json:"quantity"`
}

// AutoTrader turns the current signal into at most one order: it opens a
// fixed-size position on BUY when flat and closes the whole position on SELL.
type AutoTrader struct {
	Quantity int64
}

// NewAutoTrader creates an AutoTrader buying qty units per entry.
// A non-positive qty falls back to DefaultTradeQty.
func NewAutoTrader(qty int64) AutoTrader {
	if qty <= 0 {
		qty = DefaultTradeQty
	}
	return AutoTrader{Quantity: qty}
}

// Decide returns the order to place for sig given the current position.
// ok is false when the signal calls for no trade.
func (a AutoTrader) Decide(sig model.Signal, position int64) (Order, bool) {
	switch {
	case sig.Type == model.SignalBuy && position == 0:
		return Order{Side: model.Buy, Quantity: a.Quantity}, true
	case sig.Type == model.SignalSell && position > 0:
		return Order{Side: model.Sell, Quantity: position}, true
	}
	return Order{}, false
}
