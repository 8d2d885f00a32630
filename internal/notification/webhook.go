package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// WebhookNotifier POSTs alerts as JSON to an HTTP endpoint.
type WebhookNotifier struct {
	url    string
	client *http.Client
}

// NewWebhookNotifier creates a webhook notifier for url.
func NewWebhookNotifier(url string) *WebhookNotifier {
	return &WebhookNotifier{
		url: url,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// webhookPayload is the JSON body of a webhook call.
type webhookPayload struct {
	Level   AlertLevel    `json:"level"`
	Title   string        `json:"title"`
	Message string        `json:"message"`
	RunID   string        `json:"run_id,omitempty"`
	Trade   *tradePayload `json:"trade,omitempty"`
	SentAt  string        `json:"sent_at"`
}

type tradePayload struct {
	ID     string  `json:"id"`
	Side   string  `json:"side"`
	Symbol string  `json:"symbol"`
	Qty    int64   `json:"qty"`
	Price  float64 `json:"price"`
	PnL    float64 `json:"pnl"`
	Day    string  `json:"day"` // simulated trading day, YYYY-MM-DD
}

func newWebhookPayload(alert Alert, now time.Time) webhookPayload {
	p := webhookPayload{
		Level:   alert.Level,
		Title:   alert.Title,
		Message: alert.Message,
		RunID:   alert.RunID,
		SentAt:  now.UTC().Format(time.RFC3339Nano),
	}
	if t := alert.Trade; t != nil {
		p.Trade = &tradePayload{
			ID:     t.ID,
			Side:   string(t.Type),
			Symbol: t.Symbol,
			Qty:    t.Quantity,
			Price:  t.Price,
			PnL:    t.PnL,
			Day:    time.UnixMilli(t.Timestamp).UTC().Format("2006-01-02"),
		}
	}
	return p
}

func (w *WebhookNotifier) Send(ctx context.Context, alert Alert) error {
	body, err := json.Marshal(newWebhookPayload(alert, time.Now()))
	if err != nil {
		return fmt.Errorf("webhook: marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook: %s returned %d", w.url, resp.StatusCode)
	}

	slog.Debug("[webhook] delivered", "title", alert.Title, "status", resp.StatusCode)
	return nil
}
