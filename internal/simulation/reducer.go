package simulation

import (
	"papersim/internal/model"
	"papersim/internal/portfolio"
	"papersim/internal/strategy"
)

// Reduce applies a to s and returns the next state.
func Reduce(s State, a Action) State {
	switch a.Type {
	case ActionStart:
		return start(s, a)
	case ActionAdvanceDay:
		return advanceDay(s)
	case ActionExecuteTrade:
		return executeTrade(s, a)
	case ActionReset:
		return InitialState()
	default:
		return s
	}
}

func start(s State, a Action) State {
	cursor := a.StartIndex
	if cursor <= 0 {
		cursor = DefaultStartIndex
	}
	if s.Status != StatusIdle || cursor >= len(a.Data) || !(a.InitialBalance >= 0) {
		return s
	}

	first := a.Data[cursor]
	ledger := portfolio.NewLedger(a.InitialBalance)
	return State{
		Status:         StatusRunning,
		AllData:        a.Data,
		SimulationData: a.Data[: cursor+1 : cursor+1],
		CurrentIndex:   cursor,
		Ledger:         ledger,
		PortfolioHistory: []portfolio.ValuePoint{
			{Timestamp: first.Timestamp, Value: ledger.Portfolio.Value},
		},
		CurrentSignal: model.HoldSignal(),
	}
}

func advanceDay(s State) State {
	if s.Status != StatusRunning {
		return s
	}
	if s.AtLastDay() {
		s.Status = StatusFinished
		return s
	}

	next := s.CurrentIndex + 1
	prev, cur := s.AllData[s.CurrentIndex], s.AllData[next]

	s.CurrentIndex = next
	s.SimulationData = s.AllData[: next+1 : next+1]
	s.CurrentSignal = strategy.Classify(prev, cur)
	s.Portfolio = s.Portfolio.MarkToMarket(cur.Close)
	s.PortfolioHistory = appendValue(s.PortfolioHistory, portfolio.ValuePoint{
		Timestamp: cur.Timestamp,
		Value:     s.Portfolio.Value,
	})
	return s
}

func executeTrade(s State, a Action) State {
	cur, ok := s.Current()
	if s.Status != StatusRunning || !ok {
		return s
	}

	ledger, _, ok := s.Ledger.Apply(a.TradeType, portfolio.Fill{
		Symbol:    a.Symbol,
		Quantity:  a.Quantity,
		Price:     cur.Close,
		Timestamp: cur.Timestamp,
	})
	if !ok {
		return s
	}
	s.Ledger = ledger
	return s
}

// appendValue copies before appending so earlier snapshots keep their own
// history.
func appendValue(h []portfolio.ValuePoint, v portfolio.ValuePoint) []portfolio.ValuePoint {
	out := make([]portfolio.ValuePoint, len(h), len(h)+1)
	copy(out, h)
	return append(out, v)
}
