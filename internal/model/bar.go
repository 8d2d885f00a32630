package model

// Bar is one record of the upstream daily quote feed, before it is
// converted into a PricePoint. Date is ISO-8601 (YYYY-MM-DD or RFC 3339).
type Bar struct {
	Date   string  `json:"date"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume int64   `json:"volume"`
}
