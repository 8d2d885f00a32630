// Package sqlite stores the daily bar history and the trade journal in a
// local SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"papersim/internal/feed"
	"papersim/internal/model"
)

// Store is the bar store. It implements model.BarWriter and
// model.PriceReader.
type Store struct {
	db *sql.DB
}

var (
	_ model.BarWriter   = (*Store)(nil)
	_ model.PriceReader = (*Store)(nil)
)

// Open opens (or creates) the database at path with WAL mode and the bars
// schema.
func Open(path string) (*Store, error) {
	db, err := openDB(path)
	if err != nil {
		return nil, err
	}
	if err := createBarSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	slog.Info("[sqlite] opened bar store", "path", path)
	return &Store{db: db}, nil
}

func openDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}
	// single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	return db, nil
}

func createBarSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS bars (
			symbol TEXT    NOT NULL,
			ts     INTEGER NOT NULL,
			date   TEXT    NOT NULL,
			open   REAL    NOT NULL,
			high   REAL    NOT NULL,
			low    REAL    NOT NULL,
			close  REAL    NOT NULL,
			volume INTEGER,
			PRIMARY KEY (symbol, ts)
		);
	`)
	return err
}

// DB returns the underlying sql.DB for health checks.
func (s *Store) DB() *sql.DB { return s.db }

// WriteBars inserts bars for symbol in a single transaction. A day already
// stored, or repeated earlier in bars, keeps its first row, the same rule
// feed.Prepare applies. Bars whose date does not parse are skipped. Returns
// the number of rows actually inserted.
func (s *Store) WriteBars(ctx context.Context, symbol string, bars []model.Bar) (int, error) {
	start := time.Now()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("sqlite begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO bars (symbol, ts, date, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("sqlite prepare: %w", err)
	}
	defer stmt.Close()

	written := 0
	for _, b := range bars {
		ts, err := feed.ParseDate(b.Date)
		if err != nil {
			slog.Warn("[sqlite] skipping bar", "symbol", symbol, "date", b.Date, "err", err)
			continue
		}
		res, err := stmt.ExecContext(ctx, symbol, ts.UnixMilli(), ts.Format("2006-01-02"),
			b.Open, b.High, b.Low, b.Close, b.Volume)
		if err != nil {
			return 0, fmt.Errorf("sqlite insert bar: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("sqlite rows affected: %w", err)
		}
		written += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("sqlite commit: %w", err)
	}

	slog.Info("[sqlite] committed bars", "symbol", symbol, "count", written,
		"skipped", len(bars)-written, "took", time.Since(start))
	return written, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
