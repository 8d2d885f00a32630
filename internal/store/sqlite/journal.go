package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"

	"papersim/internal/model"
	"papersim/internal/portfolio"
)

// Journal is an append-only audit log of executed paper trades, keyed by
// the run that produced them. It is never read back into a simulation.
type Journal struct {
	mu sync.Mutex
	db *sql.DB
}

// TradeRecord is a row of the trades table.
type TradeRecord struct {
	ID        int64      `json:"id"`
	RunID     string     `json:"run_id"`
	TradeID   string     `json:"trade_id"`
	Symbol    string     `json:"symbol"`
	Side      model.Side `json:"side"`
	Quantity  int64      `json:"quantity"`
	Price     float64    `json:"price"`
	PnL       float64    `json:"pnl"`
	Timestamp int64      `json:"timestamp"`
}

// OpenJournal opens (or creates) the trade journal at path.
func OpenJournal(path string) (*Journal, error) {
	db, err := openDB(path)
	if err != nil {
		return nil, err
	}

	schema := `
	CREATE TABLE IF NOT EXISTS trades (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id     TEXT    NOT NULL,
		trade_id   TEXT    NOT NULL,
		symbol     TEXT    NOT NULL,
		side       TEXT    NOT NULL,
		qty        INTEGER NOT NULL,
		price      REAL    NOT NULL,
		pnl        REAL    NOT NULL DEFAULT 0,
		ts         INTEGER NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_trades_run ON trades(run_id);
	CREATE INDEX IF NOT EXISTS idx_trades_symbol ON trades(symbol);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite journal schema: %w", err)
	}

	slog.Info("[journal] opened trade journal", "path", path)
	return &Journal{db: db}, nil
}

// Record appends an executed trade for runID.
func (j *Journal) Record(ctx context.Context, runID string, t portfolio.Trade) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	_, err := j.db.ExecContext(ctx,
		`INSERT INTO trades (run_id, trade_id, symbol, side, qty, price, pnl, ts)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, t.ID, t.Symbol, string(t.Type), t.Quantity, t.Price, t.PnL, t.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("sqlite insert trade: %w", err)
	}
	return nil
}

// GetTrades returns the last limit trades of runID, newest first.
// An empty runID selects trades of every run.
func (j *Journal) GetTrades(ctx context.Context, runID string, limit int) ([]TradeRecord, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	rows, err := j.db.QueryContext(ctx,
		`SELECT id, run_id, trade_id, symbol, side, qty, price, pnl, ts
		 FROM trades
		 WHERE (? = '' OR run_id = ?)
		 ORDER BY id DESC LIMIT ?`, runID, runID, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite query trades: %w", err)
	}
	defer rows.Close()

	var trades []TradeRecord
	for rows.Next() {
		var t TradeRecord
		var side string
		if err := rows.Scan(&t.ID, &t.RunID, &t.TradeID, &t.Symbol, &side,
			&t.Quantity, &t.Price, &t.PnL, &t.Timestamp); err != nil {
			return nil, fmt.Errorf("sqlite scan trades: %w", err)
		}
		t.Side = model.Side(side)
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// Close closes the journal database.
func (j *Journal) Close() error {
	return j.db.Close()
}
