// Package feed turns the upstream daily quote feed into the ordered price
// series the simulator replays.
//
// The upstream format is the Yahoo Finance daily history CSV:
//
//	Date,Open,High,Low,Close,Adj Close,Volume
//
// Rows with non-numeric prices (Yahoo writes "null" for missing days) are
// dropped rather than failing the whole file.
package feed

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gocarina/gocsv"

	"papersim/internal/model"
)

// csvRow mirrors one CSV line. Prices are kept as text so one bad cell
// only drops its own row.
type csvRow struct {
	Date     string `csv:"Date"`
	Open     string `csv:"Open"`
	High     string `csv:"High"`
	Low      string `csv:"Low"`
	Close    string `csv:"Close"`
	AdjClose string `csv:"Adj Close"`
	Volume   string `csv:"Volume"`
}

// ParseCSV reads daily bars from r.
func ParseCSV(r io.Reader) ([]model.Bar, error) {
	var rows []*csvRow
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}

	bars := make([]model.Bar, 0, len(rows))
	skipped := 0
	for _, row := range rows {
		bar, ok := row.bar()
		if !ok {
			skipped++
			continue
		}
		bars = append(bars, bar)
	}
	if skipped > 0 {
		slog.Debug("[feed] skipped invalid rows", "count", skipped)
	}
	return bars, nil
}

// LoadCSVFile reads daily bars from a CSV file.
func LoadCSVFile(path string) ([]model.Bar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ParseCSV(f)
}

func (r *csvRow) bar() (model.Bar, bool) {
	prices := make([]float64, 4)
	for i, s := range []string{r.Open, r.High, r.Low, r.Close} {
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return model.Bar{}, false
		}
		prices[i] = f
	}
	// Volume is informational; a bad cell does not invalidate the bar.
	vol, _ := strconv.ParseInt(strings.TrimSpace(r.Volume), 10, 64)

	return model.Bar{
		Date:   strings.TrimSpace(r.Date),
		Open:   prices[0],
		High:   prices[1],
		Low:    prices[2],
		Close:  prices[3],
		Volume: vol,
	}, true
}

// ParseDate accepts YYYY-MM-DD or RFC 3339 and returns the UTC instant.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return t.UTC(), nil
}

// dated is a bar with its parsed date.
type dated struct {
	bar model.Bar
	ts  time.Time
}

// Prepare keeps the bars of one calendar year (year <= 0 keeps all), drops
// unparseable dates and duplicate days (first occurrence wins), sorts them
// ascending and converts them to price points.
func Prepare(bars []model.Bar, year int) []model.PricePoint {
	rows := make([]dated, 0, len(bars))
	seen := make(map[int64]struct{}, len(bars))
	for _, b := range bars {
		ts, err := ParseDate(b.Date)
		if err != nil {
			slog.Debug("[feed] dropping bar", "date", b.Date, "err", err)
			continue
		}
		if year > 0 && ts.Year() != year {
			continue
		}
		ms := ts.UnixMilli()
		if _, dup := seen[ms]; dup {
			continue
		}
		seen[ms] = struct{}{}
		rows = append(rows, dated{bar: b, ts: ts})
	}

	sort.SliceStable(rows, func(i, j int) bool { return rows[i].ts.Before(rows[j].ts) })

	points := make([]model.PricePoint, len(rows))
	for i, r := range rows {
		points[i] = model.PricePoint{
			Timestamp: r.ts.UnixMilli(),
			Open:      r.bar.Open,
			High:      r.bar.High,
			Low:       r.bar.Low,
			Close:     r.bar.Close,
		}
	}
	return points
}

// YearRange returns the [from, to) epoch-millisecond bounds of a calendar
// year in UTC. year <= 0 yields (0, 0), the unbounded range.
func YearRange(year int) (int64, int64) {
	if year <= 0 {
		return 0, 0
	}
	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	return from.UnixMilli(), from.AddDate(1, 0, 0).UnixMilli()
}
