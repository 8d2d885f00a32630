package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"papersim/internal/feed"
	sqlitestore "papersim/internal/store/sqlite"
)

func importCmd() *cobra.Command {
	var (
		csvPath string
		symbol  string
	)

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Load a daily CSV into the bar store",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup("papersim-import")
			if err != nil {
				return err
			}
			if csvPath == "" {
				csvPath = cfg.CSVPath
			}
			if csvPath == "" {
				return fmt.Errorf("no CSV given: use --csv or CSV_PATH")
			}
			if symbol == "" {
				symbol = cfg.Symbol
			}

			bars, err := feed.LoadCSVFile(csvPath)
			if err != nil {
				return err
			}

			store, err := sqlitestore.Open(cfg.SQLitePath)
			if err != nil {
				return err
			}
			defer store.Close()

			n, err := store.WriteBars(cmd.Context(), symbol, bars)
			if err != nil {
				return err
			}
			fmt.Printf("imported %d of %d bars for %s into %s\n", n, len(bars), symbol, cfg.SQLitePath)
			return nil
		},
	}

	cmd.Flags().StringVar(&csvPath, "csv", "", "daily CSV (Date,Open,High,Low,Close,Adj Close,Volume)")
	cmd.Flags().StringVar(&symbol, "symbol", "", "symbol to store the bars under (default from config)")
	return cmd
}
