package strategy

import (
	"testing"

	"papersim/internal/model"
)

func point(ts int64, short, long *float64) model.ChartPoint {
	p := model.ChartPoint{PricePoint: model.PricePoint{Timestamp: ts, Close: 100}}
	if short != nil {
		p.ShortSMA = model.Some(*short)
	}
	if long != nil {
		p.LongSMA = model.Some(*long)
	}
	return p
}

func f(v float64) *float64 { return &v }

func TestClassify(t *testing.T) {
	tests := []struct {
		name       string
		prev, cur  model.ChartPoint
		want       model.SignalType
		confidence float64
	}{
		{"golden cross", point(1, f(1), f(2)), point(2, f(3), f(2)), model.SignalBuy, 85},
		{"death cross", point(1, f(3), f(2)), point(2, f(1), f(2)), model.SignalSell, 85},
		{"stays above", point(1, f(3), f(2)), point(2, f(4), f(2)), model.SignalHold, 0},
		{"stays below", point(1, f(1), f(2)), point(2, f(1.5), f(2)), model.SignalHold, 0},
		{"touches from below", point(1, f(1), f(2)), point(2, f(2), f(2)), model.SignalHold, 0},
		{"leaves a tie upward", point(1, f(2), f(2)), point(2, f(3), f(2)), model.SignalHold, 0},
		{"leaves a tie downward", point(1, f(2), f(2)), point(2, f(1), f(2)), model.SignalHold, 0},
		{"missing prev short", point(1, nil, f(2)), point(2, f(3), f(2)), model.SignalHold, 0},
		{"missing prev long", point(1, f(1), nil), point(2, f(3), f(2)), model.SignalHold, 0},
		{"missing cur short", point(1, f(1), f(2)), point(2, nil, f(2)), model.SignalHold, 0},
		{"missing cur long", point(1, f(1), f(2)), point(2, f(3), nil), model.SignalHold, 0},
		{"zero averages are present", point(1, f(-1), f(0)), point(2, f(1), f(0)), model.SignalBuy, 85},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.prev, tt.cur)
			if got.Type != tt.want {
				t.Errorf("type: got %s, want %s", got.Type, tt.want)
			}
			if got.Confidence != tt.confidence {
				t.Errorf("confidence: got %.1f, want %.1f", got.Confidence, tt.confidence)
			}
			if got.Timestamp != tt.cur.Timestamp {
				t.Errorf("timestamp: got %d, want %d", got.Timestamp, tt.cur.Timestamp)
			}
		})
	}
}

func TestClassify_Symmetric(t *testing.T) {
	buy := Classify(point(1, f(1), f(2)), point(2, f(3), f(2)))
	sell := Classify(point(1, f(3), f(2)), point(2, f(1), f(2)))
	if buy.Type != model.SignalBuy || sell.Type != model.SignalSell {
		t.Fatalf("got %s/%s, want BUY/SELL", buy.Type, sell.Type)
	}
}

func TestAutoTrader_Decide(t *testing.T) {
	at := NewAutoTrader(10)
	tests := []struct {
		name     string
		signal   model.SignalType
		position int64
		want     Order
		ok       bool
	}{
		{"buy when flat", model.SignalBuy, 0, Order{Side: model.Buy, Quantity: 10}, true},
		{"buy while holding", model.SignalBuy, 10, Order{}, false},
		{"sell whole position", model.SignalSell, 25, Order{Side: model.Sell, Quantity: 25}, true},
		{"sell when flat", model.SignalSell, 0, Order{}, false},
		{"hold", model.SignalHold, 10, Order{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := at.Decide(model.Signal{Type: tt.signal}, tt.position)
			if ok != tt.ok || got != tt.want {
				t.Errorf("got (%+v, %v), want (%+v, %v)", got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestNewAutoTrader_DefaultQty(t *testing.T) {
	if got := NewAutoTrader(0).Quantity; got != DefaultTradeQty {
		t.Errorf("got %d, want %d", got, DefaultTradeQty)
	}
}
