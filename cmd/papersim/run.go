package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"papersim/internal/notification"
	"papersim/internal/replay"
	"papersim/internal/simulation"
	sqlitestore "papersim/internal/store/sqlite"
)

func runCmd() *cobra.Command {
	var year int

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Replay the whole year headless and print the performance summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup("papersim-run")
			if err != nil {
				return err
			}
			if year > 0 {
				cfg.Year = year
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			store, err := sqlitestore.Open(cfg.SQLitePath)
			if err != nil {
				return err
			}
			defer store.Close()

			data, err := loadSeries(ctx, cfg, store)
			if err != nil {
				return err
			}

			journal, err := sqlitestore.OpenJournal(cfg.SQLitePath)
			if err != nil {
				return err
			}
			defer journal.Close()

			driver := replay.New(replay.Config{
				Symbol:         cfg.Symbol,
				InitialBalance: cfg.InitialBalance,
				StartIndex:     cfg.LongWindow,
				TickInterval:   cfg.TickInterval,
				AutoTrade:      cfg.AutoTrade,
				TradeQty:       cfg.TradeQty,
			}, data, nil)
			driver.AddRecorder("journal", journal)
			driver.AddRecorder("notify", notification.TradeAlerts{Notifier: notifiers(cfg.WebhookURL)})

			final, err := driver.RunToEnd(ctx)
			if err != nil {
				return err
			}
			printSummary(os.Stdout, cfg.Symbol, driver.Snapshot().RunID, final)
			return nil
		},
	}

	cmd.Flags().IntVar(&year, "year", 0, "calendar year to replay (default: last year)")
	return cmd
}

// notifiers always logs and also posts to the webhook when one is set.
func notifiers(webhookURL string) notification.Notifier {
	n := notification.Multi{notification.NewLogNotifier()}
	if webhookURL != "" {
		slog.Info("[papersim] trade alerts enabled", "webhook", webhookURL)
		n = append(n, notification.NewWebhookNotifier(webhookURL))
	}
	return n
}

func printSummary(w *os.File, symbol, runID string, st simulation.State) {
	perf := st.Performance()
	fmt.Fprintln(w)
	fmt.Fprintln(w, "╔══════════════════════════════════════════╗")
	fmt.Fprintln(w, "║          SIMULATION COMPLETE             ║")
	fmt.Fprintln(w, "╠══════════════════════════════════════════╣")
	fmt.Fprintf(w, "║  Symbol:            %-20s ║\n", symbol)
	fmt.Fprintf(w, "║  Run:               %-20.20s ║\n", runID)
	fmt.Fprintf(w, "║  Days replayed:     %-20d ║\n", len(st.PortfolioHistory))
	fmt.Fprintf(w, "║  Trades:            %-20d ║\n", perf.TotalTrades)
	fmt.Fprintf(w, "║  Win rate:          %-19.2f%% ║\n", perf.WinRatePct)
	fmt.Fprintf(w, "║  Realized P&L:      %-20.2f ║\n", perf.RealizedPnL)
	fmt.Fprintf(w, "║  Final value:       %-20.2f ║\n", perf.FinalValue)
	fmt.Fprintf(w, "║  Sharpe ratio:      %-20.4f ║\n", perf.SharpeRatio)
	fmt.Fprintf(w, "║  Max drawdown:      %-19.2f%% ║\n", perf.MaxDrawdownPct)
	fmt.Fprintf(w, "║  Price return:      %-19.2f%% ║\n", perf.TotalReturnPct)
	fmt.Fprintln(w, "╚══════════════════════════════════════════╝")
}
