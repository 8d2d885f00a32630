package sqlite

import (
	"context"
	"fmt"

	"papersim/internal/model"
)

// ReadPrices returns the stored series for symbol with fromMs <= ts < toMs,
// ordered by timestamp ascending. toMs 0 means no upper bound.
func (s *Store) ReadPrices(ctx context.Context, symbol string, fromMs, toMs int64) ([]model.PricePoint, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT ts, open, high, low, close
		FROM bars
		WHERE symbol = ? AND ts >= ? AND (? = 0 OR ts < ?)
		ORDER BY ts ASC
	`, symbol, fromMs, toMs, toMs)
	if err != nil {
		return nil, fmt.Errorf("sqlite query bars: %w", err)
	}
	defer rows.Close()

	var points []model.PricePoint
	for rows.Next() {
		var p model.PricePoint
		if err := rows.Scan(&p.Timestamp, &p.Open, &p.High, &p.Low, &p.Close); err != nil {
			return nil, fmt.Errorf("sqlite scan bars: %w", err)
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

// Symbols lists the symbols with at least one stored bar.
func (s *Store) Symbols(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT symbol FROM bars ORDER BY symbol`)
	if err != nil {
		return nil, fmt.Errorf("sqlite query symbols: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var sym string
		if err := rows.Scan(&sym); err != nil {
			return nil, fmt.Errorf("sqlite scan symbols: %w", err)
		}
		out = append(out, sym)
	}
	return out, rows.Err()
}
