package indicator

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// TradingDaysPerYear annualizes daily ratios.
const TradingDaysPerYear = 252

// ComputeSharpeRatio returns the annualized Sharpe ratio of dailyReturns
// with a risk-free rate of 0: mean / stddev * sqrt(periodsPerYear).
//
// The standard deviation is the population one (divide by N). Fewer than two
// returns, or returns with zero dispersion, yield 0.
func ComputeSharpeRatio(dailyReturns []float64, periodsPerYear int) float64 {
	if len(dailyReturns) < 2 || constant(dailyReturns) {
		return 0
	}

	mean := stat.Mean(dailyReturns, nil)
	// Population moment; stat.StdDev and stat.MeanStdDev divide by N-1.
	std := math.Sqrt(stat.Moment(2, dailyReturns, nil))
	if std == 0 {
		return 0
	}
	return mean / std * math.Sqrt(float64(periodsPerYear))
}

// AnnualizedSharpe is ComputeSharpeRatio over daily returns.
func AnnualizedSharpe(dailyReturns []float64) float64 {
	return ComputeSharpeRatio(dailyReturns, TradingDaysPerYear)
}

func constant(xs []float64) bool {
	for _, x := range xs[1:] {
		if x != xs[0] {
			return false
		}
	}
	return true
}
