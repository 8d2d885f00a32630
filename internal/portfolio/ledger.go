package portfolio

import (
	"strconv"

	"papersim/internal/model"
)

// Trade is an executed paper trade. PnL is 0 for buys; for sells it is
// (sell price - most recent buy price) * quantity.
type Trade struct {
	ID        string     `json:"id"`
	Timestamp int64      `json:"timestamp"`
	Type      model.Side `json:"type"`
	Symbol    string     `json:"symbol"`
	Quantity  int64      `json:"quantity"`
	Price     float64    `json:"price"`
	PnL       float64    `json:"pnl"`
}

// Fill is a trade request priced at the current market close.
type Fill struct {
	Symbol    string
	Quantity  int64
	Price     float64
	Timestamp int64
}

// Ledger pairs the portfolio with its trade history.
type Ledger struct {
	Portfolio Portfolio `json:"portfolio"`
	Trades    []Trade   `json:"trades"`

	// Price of the most recent BUY, 0 before the first one. Cached so a
	// SELL does not rescan the history.
	lastBuyPrice float64
}

// NewLedger opens a ledger with initialBalance in cash and no trades.
func NewLedger(initialBalance float64) Ledger {
	return Ledger{Portfolio: New(initialBalance)}
}

// LastBuyPrice returns the price of the most recent BUY trade, or 0.
func (l Ledger) LastBuyPrice() float64 {
	return l.lastBuyPrice
}

// Apply dispatches to Buy or Sell by side. Unknown sides are rejected.
func (l Ledger) Apply(side model.Side, f Fill) (Ledger, Trade, bool) {
	switch side {
	case model.Buy:
		return l.Buy(f)
	case model.Sell:
		return l.Sell(f)
	}
	return l, Trade{}, false
}

// Buy spends quantity*price of cash on quantity units.
// It is rejected wholesale (ok=false, l returned unchanged) when the balance
// cannot cover the cost or quantity is not positive.
func (l Ledger) Buy(f Fill) (Ledger, Trade, bool) {
	cost := float64(f.Quantity) * f.Price
	if f.Quantity <= 0 || !(l.Portfolio.Balance >= cost) {
		return l, Trade{}, false
	}

	p := l.Portfolio
	p.Balance -= cost
	p.Position += f.Quantity
	p = p.MarkToMarket(f.Price)

	t := l.newTrade(model.Buy, f, 0)
	return Ledger{
		Portfolio:    p,
		Trades:       appendTrade(l.Trades, t),
		lastBuyPrice: f.Price,
	}, t, true
}

// Sell closes quantity units at price and realizes P&L against the most
// recent BUY price (0 when there has been no buy).
// It is rejected wholesale when the position is smaller than quantity or
// quantity is not positive.
func (l Ledger) Sell(f Fill) (Ledger, Trade, bool) {
	if f.Quantity <= 0 || l.Portfolio.Position < f.Quantity {
		return l, Trade{}, false
	}

	pnl := (f.Price - l.lastBuyPrice) * float64(f.Quantity)

	p := l.Portfolio
	p.Balance += float64(f.Quantity) * f.Price
	p.Position -= f.Quantity
	p.TotalPnL += pnl
	p = p.MarkToMarket(f.Price)

	t := l.newTrade(model.Sell, f, pnl)
	return Ledger{
		Portfolio:    p,
		Trades:       appendTrade(l.Trades, t),
		lastBuyPrice: l.lastBuyPrice,
	}, t, true
}

func (l Ledger) newTrade(side model.Side, f Fill, pnl float64) Trade {
	return Trade{
		ID:        strconv.Itoa(len(l.Trades) + 1),
		Timestamp: f.Timestamp,
		Type:      side,
		Symbol:    f.Symbol,
		Quantity:  f.Quantity,
		Price:     f.Price,
		PnL:       pnl,
	}
}

// appendTrade copies before appending so older Ledgers never observe the
// new trade through a shared backing array.
func appendTrade(trades []Trade, t Trade) []Trade {
	out := make([]Trade, len(trades), len(trades)+1)
	copy(out, trades)
	return append(out, t)
}
