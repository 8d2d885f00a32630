package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"papersim/config"
	"papersim/internal/feed"
	"papersim/internal/indicator"
	"papersim/internal/logger"
	"papersim/internal/model"
)

var (
	envFile    string
	configPath string
)

func main() {
	root := &cobra.Command{
		Use:   "papersim",
		Short: "Paper-trading simulator replaying daily prices with an SMA crossover",
		Long: `papersim replays one calendar year of daily prices for a single symbol,
classifies each day with a 50/100-day moving average crossover and keeps a
virtual portfolio of the trades made on those signals.

Example:
  papersim import --csv IBM.csv
  papersim run --year 2024
  papersim serve`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&envFile, "env", ".env", "dotenv file to load (ignored if missing)")
	root.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file applied over the environment")

	root.AddCommand(importCmd(), runCmd(), serveCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// setup loads configuration and installs the logger for service.
func setup(service string) (*config.Config, error) {
	cfg, err := config.Load(envFile, configPath)
	if err != nil {
		return nil, err
	}
	logger.Init(service, logger.ParseLevel(cfg.LogLevel))
	return cfg, nil
}

func chartConfig(cfg *config.Config) indicator.ChartConfig {
	return indicator.ChartConfig{
		ShortWindow: cfg.ShortWindow,
		LongWindow:  cfg.LongWindow,
		RSIPeriod:   cfg.RSIPeriod,
	}
}

// barStore is what loadSeries needs from the bar store.
type barStore interface {
	model.BarWriter
	model.PriceReader
}

// loadSeries reads the replay year from the bar store. When the store has
// nothing for it and a CSV path is configured, the CSV is imported first.
func loadSeries(ctx context.Context, cfg *config.Config, store barStore) ([]model.ChartPoint, error) {
	year := cfg.ReplayYear(time.Now())
	from, to := feed.YearRange(year)

	points, err := store.ReadPrices(ctx, cfg.Symbol, from, to)
	if err != nil {
		return nil, err
	}

	if len(points) == 0 && cfg.CSVPath != "" {
		slog.Info("[papersim] no stored bars, importing CSV", "path", cfg.CSVPath, "year", year)
		bars, err := feed.LoadCSVFile(cfg.CSVPath)
		if err != nil {
			return nil, err
		}
		if _, err := store.WriteBars(ctx, cfg.Symbol, bars); err != nil {
			return nil, err
		}
		points = feed.Prepare(bars, year)
	}

	if len(points) == 0 {
		return nil, fmt.Errorf("no prices for %s in %d", cfg.Symbol, year)
	}
	if len(points) <= cfg.LongWindow {
		slog.Warn("[papersim] series shorter than the long window, simulation cannot start",
			"days", len(points), "long_window", cfg.LongWindow)
	}

	slog.Info("[papersim] loaded series", "symbol", cfg.Symbol, "year", year, "days", len(points))
	return indicator.BuildChart(points, chartConfig(cfg)), nil
}
