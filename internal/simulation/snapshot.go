package simulation

import (
	"encoding/json"

	"papersim/internal/model"
	"papersim/internal/portfolio"
)

// Snapshot is the compact view of a State published after each dispatch.
// It omits the price series, which subscribers already hold.
type Snapshot struct {
	RunID        string              `json:"runId"`
	Symbol       string              `json:"symbol"`
	Status       Status              `json:"status"`
	Paused       bool                `json:"paused"`
	CurrentIndex int                 `json:"currentIndex"`
	TotalDays    int                 `json:"totalDays"`
	Day          *model.ChartPoint   `json:"day,omitempty"`
	Signal       model.Signal        `json:"signal"`
	Portfolio    portfolio.Portfolio `json:"portfolio"`
	TradeCount   int                 `json:"tradeCount"`
	LastTrade    *portfolio.Trade    `json:"lastTrade,omitempty"`
}

// Snapshot builds the compact view of s.
func (s State) Snapshot(runID, symbol string) Snapshot {
	snap := Snapshot{
		RunID:        runID,
		Symbol:       symbol,
		Status:       s.Status,
		CurrentIndex: s.CurrentIndex,
		TotalDays:    len(s.AllData),
		Signal:       s.CurrentSignal,
		Portfolio:    s.Portfolio,
		TradeCount:   len(s.Trades),
	}
	if day, ok := s.Current(); ok {
		snap.Day = &day
	}
	if n := len(s.Trades); n > 0 {
		last := s.Trades[n-1]
		snap.LastTrade = &last
	}
	return snap
}

// JSON encodes the snapshot. It never fails for a Snapshot value.
func (s Snapshot) JSON() []byte {
	b, _ := json.Marshal(s)
	return b
}
