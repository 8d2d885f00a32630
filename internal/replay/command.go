package replay

import (
	"context"
	"log/slog"

	"papersim/internal/model"
	"papersim/internal/simulation"
)

// CommandType names a control command.
type CommandType string

const (
	CommandStart  CommandType = "start"
	CommandPause  CommandType = "pause"
	CommandResume CommandType = "resume"
	CommandStep   CommandType = "step"
	CommandReset  CommandType = "reset"
	CommandTrade  CommandType = "trade"
)

// Command is a control request. InitialBalance applies to start (0 uses
// the configured balance); Side and Quantity apply to trade.
type Command struct {
	Type           CommandType `json:"type"`
	InitialBalance float64     `json:"initialBalance,omitempty"`
	Side           model.Side  `json:"side,omitempty"`
	Quantity       int64       `json:"quantity,omitempty"`
}

// Result reports whether a command changed anything, with the snapshot
// that followed it.
type Result struct {
	Accepted bool                `json:"accepted"`
	Snapshot simulation.Snapshot `json:"snapshot"`
}

func (d *Driver) handle(ctx context.Context, cmd Command) Result {
	accepted := false

	switch cmd.Type {
	case CommandStart:
		if d.state.Status != simulation.StatusIdle {
			break
		}
		balance := cmd.InitialBalance
		if balance <= 0 {
			balance = d.cfg.InitialBalance
		}
		prevRunID := d.runID
		d.runID = newRunID()
		d.paused = false
		d.dispatch(ctx, simulation.Action{
			Type:           simulation.ActionStart,
			Data:           d.data,
			InitialBalance: balance,
			StartIndex:     d.cfg.StartIndex,
		})
		accepted = d.state.Status == simulation.StatusRunning
		if accepted {
			slog.Info("[replay] run started", "run_id", d.runID, "symbol", d.cfg.Symbol,
				"balance", balance, "start_index", d.state.CurrentIndex, "days", len(d.data))
		} else {
			d.runID = prevRunID
			d.publish(ctx)
		}

	case CommandPause:
		if d.state.Status == simulation.StatusRunning && !d.paused {
			d.paused = true
			accepted = true
			d.publish(ctx)
		}

	case CommandResume:
		if d.paused {
			d.paused = false
			accepted = true
			d.publish(ctx)
		}

	case CommandStep:
		if d.state.Status == simulation.StatusRunning {
			d.step(ctx)
			accepted = true
		}

	case CommandReset:
		d.paused = false
		d.runID = ""
		d.dispatch(ctx, simulation.Reset())
		accepted = true

	case CommandTrade:
		before := len(d.state.Trades)
		d.dispatch(ctx, simulation.ExecuteTrade(cmd.Side, cmd.Quantity, d.cfg.Symbol))
		accepted = len(d.state.Trades) > before

	default:
		slog.Warn("[replay] unknown command", "type", string(cmd.Type))
	}

	return Result{Accepted: accepted, Snapshot: d.Snapshot()}
}
