package indicator

import "papersim/internal/model"

// ChartConfig selects the indicator windows annotated onto a chart.
type ChartConfig struct {
	ShortWindow int
	LongWindow  int
	RSIPeriod   int
}

// DefaultChartConfig is the 50/100 crossover with a 14-day RSI.
func DefaultChartConfig() ChartConfig {
	return ChartConfig{
		ShortWindow: ShortWindow,
		LongWindow:  LongWindow,
		RSIPeriod:   DefaultRSIPeriod,
	}
}

// Closes extracts closing prices from points.
func Closes(points []model.PricePoint) []float64 {
	closes := make([]float64, len(points))
	for i, p := range points {
		closes[i] = p.Close
	}
	return closes
}

// BuildChart precomputes both moving averages (and RSI) over points and
// returns the combined series the simulation replays. Input order is kept
// as-is; points are assumed ascending by timestamp.
func BuildChart(points []model.PricePoint, cfg ChartConfig) []model.ChartPoint {
	closes := Closes(points)
	short := ComputeSMA(closes, cfg.ShortWindow)
	long := ComputeSMA(closes, cfg.LongWindow)
	rsi := ComputeRSI(closes, cfg.RSIPeriod)

	chart := make([]model.ChartPoint, len(points))
	for i, p := range points {
		chart[i] = model.ChartPoint{
			PricePoint: p,
			ShortSMA:   short[i],
			LongSMA:    long[i],
			RSI:        rsi[i],
		}
	}
	return chart
}
