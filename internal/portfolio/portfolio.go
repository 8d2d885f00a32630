// Package portfolio is the single-symbol paper account: cash, position,
// realized P&L and the trade history, plus the performance statistics
// derived from them.
//
// All operations are value-in/value-out; a Ledger is never mutated in place,
// so a caller holding an older Ledger keeps seeing the old account.
package portfolio

// Portfolio is the account snapshot.
//
// Balance and Position never go negative: the ledger refuses any trade that
// would make them so. DailyPnL is part of the snapshot shape but no operation
// recomputes it.
type Portfolio struct {
	Balance  float64 `json:"balance"`
	Position int64   `json:"position"`
	Value    float64 `json:"value"`
	TotalPnL float64 `json:"totalPnL"`
	DailyPnL float64 `json:"dailyPnL"`
}

// New creates a flat portfolio holding initialBalance in cash.
func New(initialBalance float64) Portfolio {
	return Portfolio{
		Balance: initialBalance,
		Value:   initialBalance,
	}
}

// Equity returns balance + position * price.
func (p Portfolio) Equity(price float64) float64 {
	return p.Balance + float64(p.Position)*price
}

// MarkToMarket returns p with Value revalued at price.
// Balance and Position are untouched.
func (p Portfolio) MarkToMarket(price float64) Portfolio {
	p.Value = p.Equity(price)
	return p
}
