package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"papersim/internal/feed"
	"papersim/internal/model"
	"papersim/internal/portfolio"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "bars.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func ms(y int, m time.Month, d int) int64 {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).UnixMilli()
}

func TestStore_WriteAndRead(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	bars := []model.Bar{
		{Date: "2024-01-03", Open: 2, High: 3, Low: 1, Close: 2.5, Volume: 10},
		{Date: "2024-01-02", Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 20},
		{Date: "2023-12-29", Open: 9, High: 9, Low: 9, Close: 9},
		{Date: "not-a-date", Close: 1},
	}
	n, err := s.WriteBars(ctx, "IBM", bars)
	if err != nil {
		t.Fatalf("WriteBars: %v", err)
	}
	if n != 3 {
		t.Fatalf("written: got %d, want 3", n)
	}

	from, to := ms(2024, 1, 1), ms(2025, 1, 1)
	points, err := s.ReadPrices(ctx, "IBM", from, to)
	if err != nil {
		t.Fatalf("ReadPrices: %v", err)
	}
	if len(points) != 2 {
		t.Fatalf("points: got %d, want 2", len(points))
	}
	want := model.PricePoint{Timestamp: ms(2024, 1, 2), Open: 1, High: 2, Low: 0.5, Close: 1.5}
	if points[0] != want {
		t.Errorf("first: got %+v, want %+v", points[0], want)
	}
	if points[1].Timestamp != ms(2024, 1, 3) {
		t.Errorf("not ordered ascending: %+v", points)
	}

	all, err := s.ReadPrices(ctx, "IBM", 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Errorf("unbounded read: got %d, want 3", len(all))
	}

	other, err := s.ReadPrices(ctx, "AAPL", 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(other) != 0 {
		t.Errorf("other symbol: got %d points", len(other))
	}
}

func TestStore_DuplicateDateKeepsFirst(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	bars := []model.Bar{
		{Date: "2024-01-02", Open: 10, High: 10, Low: 10, Close: 10},
		{Date: "2024-01-02", Open: 20, High: 20, Low: 20, Close: 20},
		{Date: "2024-01-03", Open: 11, High: 11, Low: 11, Close: 11},
	}
	n, err := s.WriteBars(ctx, "IBM", bars)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("written: got %d, want 2 distinct days", n)
	}

	stored, err := s.ReadPrices(ctx, "IBM", 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	prepared := feed.Prepare(bars, 2024)
	if len(stored) != len(prepared) {
		t.Fatalf("stored %d points, prepared %d", len(stored), len(prepared))
	}
	for i := range prepared {
		if stored[i] != prepared[i] {
			t.Errorf("point %d: store %+v, csv %+v", i, stored[i], prepared[i])
		}
	}
	if stored[0].Close != 10 {
		t.Errorf("duplicate day: got close %v, want 10", stored[0].Close)
	}

	// A later import does not overwrite a stored day.
	n, err = s.WriteBars(ctx, "IBM", []model.Bar{{Date: "2024-01-02", Close: 7}})
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("re-import: got %d written, want 0", n)
	}
	again, err := s.ReadPrices(ctx, "IBM", 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if again[0].Close != 10 {
		t.Errorf("re-import replaced stored day: %+v", again[0])
	}
}

func TestStore_Symbols(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	syms, err := s.Symbols(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(syms) != 0 {
		t.Errorf("empty store: got %v", syms)
	}

	for _, sym := range []string{"MSFT", "IBM"} {
		if _, err := s.WriteBars(ctx, sym, []model.Bar{{Date: "2024-01-02", Close: 1}}); err != nil {
			t.Fatal(err)
		}
	}
	syms, err = s.Symbols(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(syms) != 2 || syms[0] != "IBM" || syms[1] != "MSFT" {
		t.Errorf("symbols: got %v", syms)
	}
}

func TestJournal(t *testing.T) {
	j, err := OpenJournal(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("OpenJournal: %v", err)
	}
	defer j.Close()
	ctx := context.Background()

	buy := portfolio.Trade{ID: "1", Timestamp: 100, Type: model.Buy, Symbol: "IBM", Quantity: 10, Price: 50}
	sell := portfolio.Trade{ID: "2", Timestamp: 200, Type: model.Sell, Symbol: "IBM", Quantity: 10, Price: 60, PnL: 100}
	for _, tr := range []portfolio.Trade{buy, sell} {
		if err := j.Record(ctx, "run-a", tr); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}
	if err := j.Record(ctx, "run-b", buy); err != nil {
		t.Fatal(err)
	}

	got, err := j.GetTrades(ctx, "run-a", 10)
	if err != nil {
		t.Fatalf("GetTrades: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("run-a trades: got %d, want 2", len(got))
	}
	if got[0].TradeID != "2" || got[0].Side != model.Sell || got[0].PnL != 100 {
		t.Errorf("newest first: got %+v", got[0])
	}

	all, err := j.GetTrades(ctx, "", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Errorf("all runs: got %d, want 3", len(all))
	}

	limited, err := j.GetTrades(ctx, "", 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(limited) != 1 || limited[0].RunID != "run-b" {
		t.Errorf("limit: got %+v", limited)
	}
}
