package portfolio

import (
	"math"
	"testing"
)

func TestDailyReturns(t *testing.T) {
	history := []ValuePoint{{1, 100}, {2, 110}, {3, 0}, {4, 50}, {5, 55}}
	got := DailyReturns(history)
	want := []float64{0.1, -1, 0.1} // step 3→4 skipped: previous value 0
	if len(got) != len(want) {
		t.Fatalf("len: got %d (%v), want %d", len(got), got, len(want))
	}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-12 {
			t.Errorf("return %d: got %f, want %f", i, got[i], want[i])
		}
	}
	if DailyReturns(history[:1]) != nil {
		t.Error("single point: expected nil")
	}
}

func TestWinRate(t *testing.T) {
	trades := []Trade{{PnL: 0}, {PnL: 100}, {PnL: 0}, {PnL: -20}}
	if got := WinRate(trades); got != 25 {
		t.Errorf("got %.2f, want 25", got)
	}
	if got := WinRate(nil); got != 0 {
		t.Errorf("empty: got %.2f, want 0", got)
	}
}

func TestTotalReturnPct(t *testing.T) {
	if got := TotalReturnPct([]float64{100, 90, 120}); math.Abs(got-20) > 1e-9 {
		t.Errorf("got %.4f, want 20", got)
	}
	if got := TotalReturnPct([]float64{100}); got != 0 {
		t.Errorf("single close: got %.4f, want 0", got)
	}
}

func TestMaxDrawdownPct(t *testing.T) {
	history := []ValuePoint{{1, 100}, {2, 120}, {3, 90}, {4, 130}, {5, 117}}
	// peak 120 → 90 is 25%
	if got := MaxDrawdownPct(history); math.Abs(got-25) > 1e-9 {
		t.Errorf("got %.4f, want 25", got)
	}
	if got := MaxDrawdownPct(nil); got != 0 {
		t.Errorf("empty: got %.4f, want 0", got)
	}
}

func TestSummarize(t *testing.T) {
	l := NewLedger(1000)
	l, _, _ = l.Buy(fill(10, 50))
	l, _, _ = l.Sell(fill(10, 60))

	history := []ValuePoint{{1, 1000}, {2, 1000}, {3, 1100}}
	s := Summarize(l, history, []float64{50, 55, 60})

	if s.TotalTrades != 2 || s.WinningTrades != 1 {
		t.Errorf("trade counts: got %d/%d, want 2/1", s.TotalTrades, s.WinningTrades)
	}
	if s.RealizedPnL != 100 {
		t.Errorf("realized: got %.2f, want 100", s.RealizedPnL)
	}
	if s.WinRatePct != 50 {
		t.Errorf("win rate: got %.2f, want 50", s.WinRatePct)
	}
	if math.Abs(s.TotalReturnPct-20) > 1e-9 {
		t.Errorf("total return: got %.4f, want 20", s.TotalReturnPct)
	}
	if s.SharpeRatio <= 0 {
		t.Errorf("sharpe: got %.4f, want positive", s.SharpeRatio)
	}
}
