package simulation

import "papersim/internal/model"

// ActionType names a state transition.
type ActionType string

const (
	ActionStart        ActionType = "START"
	ActionAdvanceDay   ActionType = "ADVANCE_DAY"
	ActionExecuteTrade ActionType = "EXECUTE_TRADE"
	ActionReset        ActionType = "RESET"
)

// Action is a request to transition the simulation. Only the fields of the
// named Type are read.
type Action struct {
	Type ActionType `json:"type"`

	// START
	Data           []model.ChartPoint `json:"data,omitempty"`
	InitialBalance float64            `json:"initialBalance,omitempty"`
	StartIndex     int                `json:"startIndex,omitempty"` // 0 = DefaultStartIndex

	// EXECUTE_TRADE
	TradeType model.Side `json:"tradeType,omitempty"`
	Quantity  int64      `json:"quantity,omitempty"`
	Symbol    string     `json:"symbol,omitempty"`
}

// Start begins a replay of data with initialBalance in cash.
func Start(data []model.ChartPoint, initialBalance float64) Action {
	return Action{Type: ActionStart, Data: data, InitialBalance: initialBalance}
}

// AdvanceDay moves the cursor one trading day forward.
func AdvanceDay() Action {
	return Action{Type: ActionAdvanceDay}
}

// ExecuteTrade trades quantity units of symbol at the current close.
func ExecuteTrade(side model.Side, quantity int64, symbol string) Action {
	return Action{Type: ActionExecuteTrade, TradeType: side, Quantity: quantity, Symbol: symbol}
}

// Reset discards the run and returns to the idle snapshot.
func Reset() Action {
	return Action{Type: ActionReset}
}
