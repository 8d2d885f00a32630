package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"papersim/internal/gateway"
	"papersim/internal/metrics"
	"papersim/internal/notification"
	"papersim/internal/replay"
	redisstore "papersim/internal/store/redis"
	sqlitestore "papersim/internal/store/sqlite"
)

func serveCmd() *cobra.Command {
	var autostart bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the simulator with the WebSocket gateway and metrics server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup("papersim")
			if err != nil {
				return err
			}
			processStart := time.Now()

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

			m := metrics.New(prometheus.NewRegistry())
			health := metrics.NewHealthStatus()

			driver := replay.New(replay.Config{
				Symbol:         cfg.Symbol,
				InitialBalance: cfg.InitialBalance,
				StartIndex:     cfg.LongWindow,
				TickInterval:   cfg.TickInterval,
				AutoTrade:      cfg.AutoTrade,
				TradeQty:       cfg.TradeQty,
			}, data, m)

			hub := gateway.NewHub(driver, m)
			driver.AddSink("ws", hub)
			driver.AddRecorder("journal", journal)
			driver.AddRecorder("notify", notification.TradeAlerts{Notifier: notifiers(cfg.WebhookURL)})

			src := gateway.Sources{Trades: journal, Symbols: store}
			if cfg.RedisAddr != "" {
				pub, err := redisstore.New(redisstore.Config{
					Addr:     cfg.RedisAddr,
					Password: cfg.RedisPassword,
					Channel:  cfg.RedisChannel,
				})
				if err != nil {
					return err
				}
				defer pub.Close()
				logPreviousRun(ctx, pub, cfg.Symbol)
				driver.AddSink("redis", pub)
				src.Latest = pub
				health.StartLivenessChecker(ctx, pub.Client(), store.DB(), 15*time.Second)
			} else {
				health.StartLivenessChecker(ctx, nil, store.DB(), 15*time.Second)
			}

			mux := http.NewServeMux()
			gateway.RegisterRoutes(mux, hub, driver, src, processStart)
			srv := &http.Server{
				Addr:              cfg.GatewayAddr,
				Handler:           mux,
				ReadHeaderTimeout: 5 * time.Second,
			}

			metricsSrv := metrics.NewServer(cfg.MetricsAddr, m, health)
			metricsSrv.Start()

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				return driver.Run(gctx)
			})
			g.Go(func() error {
				slog.Info("[papersim] gateway listening", "addr", cfg.GatewayAddr)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
			g.Go(func() error {
				<-gctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				metricsSrv.Stop(shutdownCtx)
				return srv.Shutdown(shutdownCtx)
			})

			if autostart {
				res, err := driver.Do(ctx, replay.Command{Type: replay.CommandStart})
				if err != nil {
					return err
				}
				if !res.Accepted {
					slog.Warn("[papersim] autostart rejected", "days", len(data))
				}
			}

			err = g.Wait()
			slog.Info("[papersim] shutdown complete")
			return err
		},
	}

	cmd.Flags().BoolVar(&autostart, "autostart", false, "start the replay immediately instead of waiting for a start command")
	return cmd
}

// logPreviousRun reports the snapshot an earlier run left in Redis, if any.
func logPreviousRun(ctx context.Context, latest gateway.LatestReader, symbol string) {
	snap, ok, err := latest.Latest(ctx, symbol)
	switch {
	case err != nil:
		slog.Warn("[papersim] read previous snapshot", "symbol", symbol, "err", err)
	case ok:
		slog.Info("[papersim] previous run",
			"run_id", snap.RunID,
			"status", snap.Status,
			"day", snap.CurrentIndex,
			"value", snap.Portfolio.Value,
			"trades", snap.TradeCount,
		)
	}
}
