package model

import "context"

// ── Storage Port Interfaces ──
// These interfaces decouple the simulator from concrete storage
// implementations (CSV files, SQLite).

// BarWriter persists upstream daily bars for a symbol.
type BarWriter interface {
	// WriteBars stores bars for symbol; the first row for a day wins.
	// Returns the number of rows inserted.
	WriteBars(ctx context.Context, symbol string, bars []Bar) (int, error)
}

// PriceReader loads a symbol's daily series ordered by ascending timestamp.
type PriceReader interface {
	// ReadPrices returns points with fromMs <= Timestamp < toMs.
	// A zero toMs means no upper bound.
	ReadPrices(ctx context.Context, symbol string, fromMs, toMs int64) ([]PricePoint, error)
}
