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

// WebhookNotifier POSTs alerts as JSON. The body is a WebhookPayload; the
// bracket and error objects are present only on trade alerts.
type WebhookNotifier struct {
	url    string
	client *http.Client
}

// NewWebhookNotifier creates a notifier posting to url.
func NewWebhookNotifier(url string) *WebhookNotifier {
	return &WebhookNotifier{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// WebhookPayload is the JSON body sent per alert.
type WebhookPayload struct {
	Source  string         `json:"source"`
	Event   string         `json:"event"` // bracket status, or "alert"
	Level   AlertLevel     `json:"level"`
	Symbol  string         `json:"symbol,omitempty"`
	Title   string         `json:"title"`
	Message string         `json:"message,omitempty"`
	Bracket *Bracket       `json:"bracket,omitempty"`
	Error   *ExchangeError `json:"error,omitempty"`
	TS      string         `json:"ts"`
}

func newWebhookPayload(a Alert) WebhookPayload {
	at := a.At
	if at.IsZero() {
		at = time.Now().UTC()
	}
	return WebhookPayload{
		Source:  "tabot",
		Event:   eventName(a),
		Level:   a.Level,
		Symbol:  a.Symbol,
		Title:   a.Title,
		Message: a.Message,
		Bracket: a.Bracket,
		Error:   a.Error,
		TS:      at.Format(time.RFC3339Nano),
	}
}

func (w *WebhookNotifier) Send(ctx context.Context, alert Alert) error {
	body, err := json.Marshal(newWebhookPayload(alert))
	if err != nil {
		return fmt.Errorf("webhook: marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Tabot-Level", string(alert.Level))

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook: unexpected status %d", resp.StatusCode)
	}

	slog.Debug("webhook alert sent", "symbol", alert.Symbol, "event", eventName(alert))
	return nil
}

func eventName(a Alert) string {
	if a.Bracket != nil {
		return a.Bracket.Status
	}
	return "alert"
}
