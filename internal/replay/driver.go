// Package replay drives a simulation in wall-clock time.
//
// A Driver owns one simulation.State on a single goroutine. Ticks and
// control commands are serialized through that goroutine, so every
// dispatch sees the result of the previous one. After each dispatch the
// compact snapshot is fanned out to the registered sinks and executed
// trades are handed to the trade recorders.
package replay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"papersim/internal/logger"
	"papersim/internal/metrics"
	"papersim/internal/model"
	"papersim/internal/portfolio"
	"papersim/internal/simulation"
	"papersim/internal/strategy"
)

// Sink receives the snapshot published after every dispatch.
type Sink interface {
	Publish(ctx context.Context, snap simulation.Snapshot) error
}

// TradeRecorder receives every executed trade.
type TradeRecorder interface {
	Record(ctx context.Context, runID string, t portfolio.Trade) error
}

var (
	// ErrStopped is returned by Do once Run has returned.
	ErrStopped = errors.New("replay: driver stopped")
	// ErrStartRejected is returned by RunToEnd when the series is too short
	// for the start index.
	ErrStartRejected = errors.New("replay: start rejected")
)

// Config configures a Driver.
type Config struct {
	Symbol         string
	InitialBalance float64
	StartIndex     int           // 0 = simulation.DefaultStartIndex
	TickInterval   time.Duration // one trading day per tick
	AutoTrade      bool
	TradeQty       int64
}

type namedSink struct {
	name string
	sink Sink
}

type namedRecorder struct {
	name string
	rec  TradeRecorder
}

type request struct {
	cmd   Command
	reply chan Result
}

// Driver replays one price series.
type Driver struct {
	cfg     Config
	data    []model.ChartPoint
	trader  strategy.AutoTrader
	metrics *metrics.Metrics

	sinks     []namedSink
	recorders []namedRecorder

	reqs chan request
	done chan struct{}

	// owned by the goroutine running Run or RunToEnd
	state  simulation.State
	paused bool
	runID  string

	mu     sync.RWMutex
	latest simulation.State
	snap   simulation.Snapshot
}

// New creates an idle driver for data. m may be nil.
func New(cfg Config, data []model.ChartPoint, m *metrics.Metrics) *Driver {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = 100 * time.Millisecond
	}
	d := &Driver{
		cfg:     cfg,
		data:    data,
		trader:  strategy.NewAutoTrader(cfg.TradeQty),
		metrics: m,
		reqs:    make(chan request),
		done:    make(chan struct{}),
		state:   simulation.InitialState(),
	}
	d.latest = d.state
	d.snap = d.state.Snapshot("", cfg.Symbol)
	return d
}

// AddSink registers a snapshot sink. Call before Run.
func (d *Driver) AddSink(name string, s Sink) {
	d.sinks = append(d.sinks, namedSink{name: name, sink: s})
}

// AddRecorder registers a trade recorder. Call before Run.
func (d *Driver) AddRecorder(name string, r TradeRecorder) {
	d.recorders = append(d.recorders, namedRecorder{name: name, rec: r})
}

// State returns the most recent full state. Safe for concurrent use.
func (d *Driver) State() simulation.State {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.latest
}

// Snapshot returns the most recent snapshot. Safe for concurrent use.
func (d *Driver) Snapshot() simulation.Snapshot {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.snap
}

// Run advances one day per tick while the simulation is running and not
// paused, and executes control commands sent through Do. It blocks until
// ctx is cancelled.
func (d *Driver) Run(ctx context.Context) error {
	defer close(d.done)

	ticker := time.NewTicker(d.cfg.TickInterval)
	defer ticker.Stop()

	slog.Info("[replay] driver started",
		"symbol", d.cfg.Symbol, "days", len(d.data), "interval", d.cfg.TickInterval.String())

	for {
		select {
		case <-ctx.Done():
			slog.Info("[replay] driver stopped", "run_id", d.runID, "index", d.state.CurrentIndex)
			return nil
		case req := <-d.reqs:
			req.reply <- d.handle(ctx, req.cmd)
		case <-ticker.C:
			if d.state.Status == simulation.StatusRunning && !d.paused {
				d.step(ctx)
			}
		}
	}
}

// Do executes cmd on the driver goroutine and waits for its result.
func (d *Driver) Do(ctx context.Context, cmd Command) (Result, error) {
	req := request{cmd: cmd, reply: make(chan Result, 1)}
	select {
	case d.reqs <- req:
	case <-ctx.Done():
		return Result{}, ctx.Err()
	case <-d.done:
		return Result{}, ErrStopped
	}

	select {
	case r := <-req.reply:
		return r, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// RunToEnd replays the whole series without a clock and returns the final
// state. It starts the simulation first when it is idle. It must not be
// used while Run is active.
func (d *Driver) RunToEnd(ctx context.Context) (simulation.State, error) {
	if d.state.Status == simulation.StatusIdle {
		if r := d.handle(ctx, Command{Type: CommandStart}); !r.Accepted {
			return d.state, fmt.Errorf("%w: %d days, start index %d", ErrStartRejected, len(d.data), d.startIndex())
		}
	}
	for d.state.Status == simulation.StatusRunning {
		if err := ctx.Err(); err != nil {
			return d.state, err
		}
		d.step(ctx)
	}
	return d.state, nil
}

// step advances one day and lets the auto-trader react to its signal.
func (d *Driver) step(ctx context.Context) {
	d.dispatch(ctx, simulation.AdvanceDay())

	if d.state.Status == simulation.StatusFinished {
		d.logSummary(ctx)
		return
	}
	if !d.cfg.AutoTrade {
		return
	}
	if order, ok := d.trader.Decide(d.state.CurrentSignal, d.state.Portfolio.Position); ok {
		d.dispatch(ctx, simulation.ExecuteTrade(order.Side, order.Quantity, d.cfg.Symbol))
	}
}

func (d *Driver) startIndex() int {
	if d.cfg.StartIndex > 0 {
		return d.cfg.StartIndex
	}
	return simulation.DefaultStartIndex
}

// dispatch reduces a, records its effects and publishes the snapshot.
func (d *Driver) dispatch(ctx context.Context, a simulation.Action) {
	start := time.Now()
	prev := d.state
	d.state = simulation.Reduce(prev, a)
	d.observe(ctx, a, prev, d.state)
	d.publish(ctx)
	d.metrics.ObserveDispatch(string(a.Type), time.Since(start))
}

func (d *Driver) observe(ctx context.Context, a simulation.Action, prev, next simulation.State) {
	runCtx := logger.WithRunID(ctx, d.runID)

	switch a.Type {
	case simulation.ActionAdvanceDay:
		if next.CurrentIndex == prev.CurrentIndex {
			return
		}
		d.metrics.DayReplayed(string(next.CurrentSignal.Type), next.Portfolio.Value)
		if next.CurrentSignal.Type != model.SignalHold {
			slog.Info("[replay] crossover", append(logger.LogWithRun(runCtx),
				"signal", string(next.CurrentSignal.Type),
				"ts", next.CurrentSignal.Timestamp,
				"index", next.CurrentIndex)...)
		}

	case simulation.ActionExecuteTrade:
		if len(next.Trades) == len(prev.Trades) {
			d.metrics.TradeRejected()
			slog.Debug("[replay] trade rejected", append(logger.LogWithRun(runCtx),
				"side", string(a.TradeType), "qty", a.Quantity,
				"balance", prev.Portfolio.Balance, "position", prev.Portfolio.Position)...)
			return
		}
		t := next.Trades[len(next.Trades)-1]
		d.metrics.TradeExecuted(string(t.Type), next.Portfolio.Value)
		slog.Info("[replay] trade executed", append(logger.LogWithRun(runCtx),
			"id", t.ID, "side", string(t.Type), "qty", t.Quantity, "price", t.Price, "pnl", t.PnL)...)
		for _, r := range d.recorders {
			if err := r.rec.Record(runCtx, d.runID, t); err != nil {
				d.metrics.PublishFailed(r.name)
				slog.Warn("[replay] trade recorder failed", "recorder", r.name, "err", err)
			}
		}
	}
}

// publish stores the current state for readers and fans the snapshot out.
func (d *Driver) publish(ctx context.Context) {
	snap := d.state.Snapshot(d.runID, d.cfg.Symbol)
	snap.Paused = d.paused

	d.mu.Lock()
	d.latest = d.state
	d.snap = snap
	d.mu.Unlock()

	for _, s := range d.sinks {
		if err := s.sink.Publish(ctx, snap); err != nil {
			d.metrics.PublishFailed(s.name)
			slog.Warn("[replay] sink publish failed", "sink", s.name, "err", err)
		}
	}
}

func (d *Driver) logSummary(ctx context.Context) {
	perf := d.state.Performance()
	slog.Info("[replay] finished", append(logger.LogWithRun(logger.WithRunID(ctx, d.runID)),
		"symbol", d.cfg.Symbol,
		"days", d.state.CurrentIndex-d.startIndex()+1,
		"trades", perf.TotalTrades,
		"final_value", perf.FinalValue,
		"realized_pnl", perf.RealizedPnL,
		"sharpe", perf.SharpeRatio,
		"win_rate_pct", perf.WinRatePct,
		"max_drawdown_pct", perf.MaxDrawdownPct)...)
}

func newRunID() string {
	return uuid.NewString()
}
