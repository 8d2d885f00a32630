package portfolio

import (
	"math"

	"papersim/internal/indicator"
)

// ValuePoint is one mark-to-market observation of the portfolio.
type ValuePoint struct {
	Timestamp int64   `json:"timestamp"`
	Value     float64 `json:"value"`
}

// Summary is the performance report shown alongside the simulation.
type Summary struct {
	SharpeRatio    float64 `json:"sharpe_ratio"`
	WinRatePct     float64 `json:"win_rate_pct"`
	TotalReturnPct float64 `json:"total_return_pct"` // of the replayed price series
	MaxDrawdownPct float64 `json:"max_drawdown_pct"` // of the portfolio value
	RealizedPnL    float64 `json:"realized_pnl"`
	FinalValue     float64 `json:"final_value"`
	TotalTrades    int     `json:"total_trades"`
	WinningTrades  int     `json:"winning_trades"`
}

// DailyReturns converts a value history into simple period returns.
// Steps whose previous value is 0 are skipped.
func DailyReturns(history []ValuePoint) []float64 {
	if len(history) < 2 {
		return nil
	}
	returns := make([]float64, 0, len(history)-1)
	for i := 1; i < len(history); i++ {
		prev := history[i-1].Value
		if prev == 0 {
			continue
		}
		returns = append(returns, (history[i].Value-prev)/prev)
	}
	return returns
}

// WinRate returns the percentage of trades with positive P&L, counting every
// trade (buys included) in the denominator. 0 when there are no trades.
func WinRate(trades []Trade) float64 {
	if len(trades) == 0 {
		return 0
	}
	return float64(winners(trades)) / float64(len(trades)) * 100
}

func winners(trades []Trade) int {
	n := 0
	for _, t := range trades {
		if t.PnL > 0 {
			n++
		}
	}
	return n
}

// TotalReturnPct is the percentage change from the first to the last close.
func TotalReturnPct(closes []float64) float64 {
	if len(closes) < 2 || closes[0] == 0 {
		return 0
	}
	first, last := closes[0], closes[len(closes)-1]
	return (last - first) / first * 100
}

// MaxDrawdownPct returns the largest peak-to-trough decline of the value
// history, as a percentage of the peak.
func MaxDrawdownPct(history []ValuePoint) float64 {
	peak := math.Inf(-1)
	maxDD := 0.0
	for _, h := range history {
		if h.Value > peak {
			peak = h.Value
		}
		if peak > 0 {
			if dd := (peak - h.Value) / peak * 100; dd > maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD
}

// Summarize builds the performance report for a ledger, its value history
// and the closes replayed so far.
func Summarize(l Ledger, history []ValuePoint, closes []float64) Summary {
	return Summary{
		SharpeRatio:    indicator.AnnualizedSharpe(DailyReturns(history)),
		WinRatePct:     WinRate(l.Trades),
		TotalReturnPct: TotalReturnPct(closes),
		MaxDrawdownPct: MaxDrawdownPct(history),
		RealizedPnL:    l.Portfolio.TotalPnL,
		FinalValue:     l.Portfolio.Value,
		TotalTrades:    len(l.Trades),
		WinningTrades:  winners(l.Trades),
	}
}
