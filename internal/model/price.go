package model

import "encoding/json"

// PricePoint is one trading day of the replayed series.
// Timestamp is epoch milliseconds (UTC midnight of the trading day).
type PricePoint struct {
	Timestamp int64   `json:"timestamp"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
}

// ChartPoint is a PricePoint annotated with the indicator values the
// simulation replays. SMA fields are absent until their window fills.
type ChartPoint struct {
	PricePoint
	ShortSMA Value `json:"shortSMA"`
	LongSMA  Value `json:"longSMA"`
	RSI      Value `json:"rsi"`
}

// HasSMAs reports whether both moving averages are populated.
func (c ChartPoint) HasSMAs() bool {
	return c.ShortSMA.OK && c.LongSMA.OK
}

// JSON returns the JSON-encoded point (ignoring errors for hot-path usage).
func (c ChartPoint) JSON() []byte {
	b, _ := json.Marshal(c)
	return b
}
