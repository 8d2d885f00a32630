package model

// Side is the direction of a trade.
type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

// Valid reports whether s is BUY or SELL.
func (s Side) Valid() bool {
	return s == Buy || s == Sell
}

// SignalType classifies a trading day.
type SignalType string

const (
	SignalBuy  SignalType = "BUY"
	SignalSell SignalType = "SELL"
	SignalHold SignalType = "HOLD"
)

// Signal is the classification emitted for the current day.
// Confidence is on a 0-100 scale.
type Signal struct {
	Type       SignalType `json:"type"`
	Confidence float64    `json:"confidence"`
	Timestamp  int64      `json:"timestamp"`
}

// HoldSignal is the signal before any day has been classified.
func HoldSignal() Signal {
	return Signal{Type: SignalHold}
}
