// Package notification delivers trade alerts to external channels.
package notification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"papersim/internal/model"
	"papersim/internal/portfolio"
)

// AlertLevel represents the severity of an alert.
type AlertLevel string

const (
	AlertInfo    AlertLevel = "INFO"
	AlertWarning AlertLevel = "WARNING"
)

// Alert is a notification to be sent. Trade is set for trade alerts.
type Alert struct {
	Level   AlertLevel
	Title   string
	Message string
	RunID   string
	Trade   *portfolio.Trade
}

// Notifier is implemented by every delivery backend.
type Notifier interface {
	Send(ctx context.Context, alert Alert) error
}

// LogNotifier writes alerts to the structured log.
type LogNotifier struct{}

// NewLogNotifier creates a log-based notifier.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) Send(ctx context.Context, alert Alert) error {
	attrs := []any{
		"level", string(alert.Level),
		"message", alert.Message,
		"run_id", alert.RunID,
	}
	if t := alert.Trade; t != nil {
		attrs = append(attrs, "trade_id", t.ID, "side", string(t.Type), "qty", t.Quantity, "price", t.Price, "pnl", t.PnL)
	}
	slog.InfoContext(ctx, "[notify] "+alert.Title, attrs...)
	return nil
}

// Multi fans an alert out to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) Send(ctx context.Context, alert Alert) error {
	var errs []error
	for _, n := range m {
		if err := n.Send(ctx, alert); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// TradeAlerts turns executed trades into alerts.
type TradeAlerts struct {
	Notifier Notifier
}

// Record sends one alert for trade t of run runID.
func (a TradeAlerts) Record(ctx context.Context, runID string, t portfolio.Trade) error {
	return a.Notifier.Send(ctx, TradeAlert(runID, t))
}

// TradeAlert formats an executed trade. Losing sells are warnings.
func TradeAlert(runID string, t portfolio.Trade) Alert {
	alert := Alert{
		Level: AlertInfo,
		Title: fmt.Sprintf("%s %d %s", t.Type, t.Quantity, t.Symbol),
		RunID: runID,
		Trade: &t,
	}
	if t.Type == model.Sell {
		alert.Message = fmt.Sprintf("sold at %.2f, pnl %.2f", t.Price, t.PnL)
		if t.PnL < 0 {
			alert.Level = AlertWarning
		}
	} else {
		alert.Message = fmt.Sprintf("bought at %.2f", t.Price)
	}
	return alert
}
