// Package simulation is the replay state machine.
//
// State is a plain value owned by the caller. Reduce is the only way to move
// it forward: it is a pure function of (state, action) with no I/O, no clock
// and no locking, so callers must serialize dispatches against one State.
// Actions that are unknown or invalid for the current status return the
// input state unchanged; Reduce never panics on them.
package simulation

import (
	"papersim/internal/indicator"
	"papersim/internal/model"
	"papersim/internal/portfolio"
)

// Status is the lifecycle stage of a simulation.
type Status string

const (
	StatusIdle     Status = "idle"
	StatusRunning  Status = "running"
	StatusFinished Status = "finished"
)

// DefaultStartIndex is the first cursor position: the first day whose
// previous day already has both moving averages (long window of 100).
const DefaultStartIndex = indicator.LongWindow

// State is the full simulation snapshot. The embedded Ledger contributes the
// "portfolio" and "trades" fields.
type State struct {
	Status         Status             `json:"status"`
	AllData        []model.ChartPoint `json:"allData"`
	SimulationData []model.ChartPoint `json:"simulationData"` // AllData[0 : CurrentIndex+1]
	CurrentIndex   int                `json:"currentIndex"`

	portfolio.Ledger

	PortfolioHistory []portfolio.ValuePoint `json:"portfolioHistory"`
	CurrentSignal    model.Signal           `json:"currentSignal"`
}

// InitialState is the idle snapshot: no data, zero portfolio, HOLD signal.
func InitialState() State {
	return State{
		Status:        StatusIdle,
		CurrentSignal: model.HoldSignal(),
	}
}

// Current returns the chart point under the cursor.
func (s State) Current() (model.ChartPoint, bool) {
	if s.Status == StatusIdle || s.CurrentIndex < 0 || s.CurrentIndex >= len(s.AllData) {
		return model.ChartPoint{}, false
	}
	return s.AllData[s.CurrentIndex], true
}

// AtLastDay reports whether the cursor sits on the final data point.
func (s State) AtLastDay() bool {
	return s.CurrentIndex >= len(s.AllData)-1
}

// Performance summarizes the run so far.
func (s State) Performance() portfolio.Summary {
	closes := make([]float64, len(s.SimulationData))
	for i, p := range s.SimulationData {
		closes[i] = p.Close
	}
	return portfolio.Summarize(s.Ledger, s.PortfolioHistory, closes)
}
